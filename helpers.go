package pubapi

import (
	"net/url"
	"path"
	"strings"
)

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// parsePublished turns the published query parameter into a filter value.
// Only the exact strings "true" and "false" filter; anything else, including
// an absent parameter, matches both states.
func parsePublished(v string) *bool {
	var b bool
	switch v {
	case "true":
		b = true
	case "false":
		b = false
	default:
		return nil
	}
	return &b
}
