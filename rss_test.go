package pubapi

import (
	"strings"
	"testing"
	"time"

	"github.com/eringen/pubapi/post"
)

func TestBuildFeedUpdatedIsLatestEdit(t *testing.T) {
	a := &App{Config: Config{Name: "Blog", URL: "https://blog.example.com"}}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	posts := []post.Post{
		{ID: 1, Title: "Vecchio", Slug: "vecchio", CreatedAt: base, UpdatedAt: base.Add(48 * time.Hour)},
		{ID: 2, Title: "Nuovo", Slug: "nuovo", CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour)},
	}

	feed := a.buildFeed(posts)
	if want := base.Add(48 * time.Hour); !feed.Updated.Equal(want) {
		t.Errorf("Updated = %v, want %v", feed.Updated, want)
	}
	if len(feed.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(feed.Items))
	}
	if got := feed.Items[0].Link.Href; got != "https://blog.example.com/posts/vecchio/" {
		t.Errorf("Items[0].Link = %q, want %q", got, "https://blog.example.com/posts/vecchio/")
	}
}

func TestBuildFeedEmpty(t *testing.T) {
	a := &App{Config: Config{Name: "Blog", URL: "https://blog.example.com"}}
	feed := a.buildFeed(nil)
	if !feed.Updated.IsZero() {
		t.Errorf("Updated = %v, want zero time", feed.Updated)
	}
	if _, err := feed.ToRss(); err != nil {
		t.Errorf("ToRss failed: %v", err)
	}
}

func TestRenderContent(t *testing.T) {
	tests := []struct {
		in       string
		contains string
		excludes string
	}{
		{"**forte**", "<strong>forte</strong>", ""},
		{"# Titolo", "<h1>Titolo</h1>", ""},
		{"testo <script>alert(1)</script>", "testo", "<script>"},
	}
	for _, tt := range tests {
		got := renderContent(tt.in)
		if !strings.Contains(got, tt.contains) {
			t.Errorf("renderContent(%q) = %q, want it to contain %q", tt.in, got, tt.contains)
		}
		if tt.excludes != "" && strings.Contains(got, tt.excludes) {
			t.Errorf("renderContent(%q) = %q, must not contain %q", tt.in, got, tt.excludes)
		}
	}
}

func TestSummarize(t *testing.T) {
	if got := summarize("breve", 10); got != "breve" {
		t.Errorf("summarize = %q, want %q", got, "breve")
	}
	if got := summarize("perché sì", 6); got != "perché…" {
		t.Errorf("summarize = %q, want %q", got, "perché…")
	}
}
