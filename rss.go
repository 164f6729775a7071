package pubapi

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gorilla/feeds"
	"github.com/labstack/echo/v4"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/eringen/pubapi/post"
)

const feedSummaryLen = 280

// contentRenderer turns post content, written as Markdown, into the HTML
// carried in feed items. Raw HTML in the source is dropped.
var contentRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

func (a *App) buildFeed(posts []post.Post) *feeds.Feed {
	base := a.Config.URL
	feed := &feeds.Feed{
		Title:       a.Config.Name,
		Link:        &feeds.Link{Href: base},
		Description: a.Config.Description,
		Created:     time.Now(),
	}
	for _, p := range posts {
		postURL := BuildURL(base, "posts", p.Slug)
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          postURL,
			Title:       p.Title,
			Link:        &feeds.Link{Href: postURL},
			Description: summarize(p.Content, feedSummaryLen),
			Content:     renderContent(p.Content),
			Created:     p.CreatedAt,
			Updated:     p.UpdatedAt,
		})
	}
	feed.Updated = latestUpdate(posts)
	return feed
}

func (a *App) renderRSS(c echo.Context, posts []post.Post) error {
	body, err := a.buildFeed(posts).ToRss()
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(body))
}

func (a *App) renderAtom(c echo.Context, posts []post.Post) error {
	body, err := a.buildFeed(posts).ToAtom()
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/atom+xml; charset=utf-8", []byte(body))
}

func renderContent(md string) string {
	var buf bytes.Buffer
	if err := contentRenderer.Convert([]byte(md), &buf); err != nil {
		return md
	}
	return buf.String()
}

// summarize cuts s to at most n runes, ending with an ellipsis when cut.
func summarize(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
