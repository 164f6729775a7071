package pubapi

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pubapi/post"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"http://www.sitemaps.org/schemas/sitemap/0.9 urlset"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
}

// changeFreq guesses how often a post changes from how recently it was
// last edited.
func changeFreq(updated, now time.Time) string {
	switch age := now.Sub(updated); {
	case age < 7*24*time.Hour:
		return "daily"
	case age < 90*24*time.Hour:
		return "weekly"
	default:
		return "monthly"
	}
}

func (a *App) renderSitemap(c echo.Context, posts []post.Post) error {
	base := a.Config.URL
	now := time.Now()

	home := sitemapURL{Loc: BuildURL(base), ChangeFreq: "daily"}
	if latest := latestUpdate(posts); !latest.IsZero() {
		home.LastMod = latest.UTC().Format(time.RFC3339)
	}
	urls := []sitemapURL{home}
	for _, p := range posts {
		urls = append(urls, sitemapURL{
			Loc:        BuildURL(base, "posts", p.Slug),
			LastMod:    p.UpdatedAt.UTC().Format(time.RFC3339),
			ChangeFreq: changeFreq(p.UpdatedAt, now),
		})
	}

	body, err := xml.Marshal(sitemapURLSet{URLs: urls})
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/xml; charset=utf-8", append([]byte(xml.Header), body...))
}

// latestUpdate returns the most recent UpdatedAt among posts, or the zero
// time when there are none.
func latestUpdate(posts []post.Post) time.Time {
	var latest time.Time
	for _, p := range posts {
		if p.UpdatedAt.After(latest) {
			latest = p.UpdatedAt
		}
	}
	return latest
}
