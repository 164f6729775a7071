package gormstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/eringen/pubapi/post"
)

// Tests run against a real PostgreSQL server and are skipped unless
// PUBAPI_TEST_POSTGRES_DSN is set. The tables are truncated before each test.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("PUBAPI_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PUBAPI_TEST_POSTGRES_DSN not set")
	}
	s, err := New(dsn, false)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.db.Exec(`TRUNCATE post_tags, posts, tags, categories RESTART IDENTITY CASCADE`).Error; err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return s
}

func ptr[T any](v T) *T { return &v }

func TestStoreLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	news, err := s.EnsureCategory(ctx, "news")
	if err != nil {
		t.Fatalf("EnsureCategory failed: %v", err)
	}
	var tags []post.Tag
	for _, name := range []string{"a", "b", "c"} {
		tag, err := s.EnsureTag(ctx, name)
		if err != nil {
			t.Fatalf("EnsureTag failed: %v", err)
		}
		tags = append(tags, tag)
	}

	created, err := s.CreatePost(ctx, post.NewPost{
		Title: "Ciao Mondo!", Slug: "ciao-mondo", Content: "c", Published: true,
		CategoryID: news.ID, TagIDs: []int64{tags[0].ID, tags[1].ID},
	})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if created.Category.Name != "news" {
		t.Errorf("Category.Name = %q, want %q", created.Category.Name, "news")
	}

	got, err := s.FindPost(ctx, "ciao-mondo")
	if err != nil {
		t.Fatalf("FindPost failed: %v", err)
	}
	if want := []int64{tags[0].ID, tags[1].ID}; !reflect.DeepEqual(got.TagIDs(), want) {
		t.Errorf("Tags = %v, want %v", got.TagIDs(), want)
	}

	updated, err := s.UpdatePost(ctx, "ciao-mondo", post.Patch{
		Published:      ptr(false),
		ConnectTags:    []int64{tags[2].ID},
		DisconnectTags: []int64{tags[0].ID},
	})
	if err != nil {
		t.Fatalf("UpdatePost failed: %v", err)
	}
	if updated.Published {
		t.Error("Published should be false")
	}
	if want := []int64{tags[1].ID, tags[2].ID}; !reflect.DeepEqual(updated.TagIDs(), want) {
		t.Errorf("Tags = %v, want %v", updated.TagIDs(), want)
	}

	drafts, err := s.FindPosts(ctx, post.Query{Published: ptr(false)})
	if err != nil {
		t.Fatalf("FindPosts failed: %v", err)
	}
	if len(drafts) != 1 {
		t.Errorf("drafts = %d, want 1", len(drafts))
	}

	if err := s.DeletePost(ctx, "ciao-mondo"); err != nil {
		t.Fatalf("DeletePost failed: %v", err)
	}
	if _, err := s.FindPost(ctx, "ciao-mondo"); !errors.Is(err, post.ErrNotFound) {
		t.Errorf("expected post.ErrNotFound, got %v", err)
	}
	if err := s.DeletePost(ctx, "ciao-mondo"); !errors.Is(err, post.ErrNotFound) {
		t.Errorf("expected post.ErrNotFound, got %v", err)
	}
}

func TestStoreConstraints(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	news, err := s.EnsureCategory(ctx, "news")
	if err != nil {
		t.Fatalf("EnsureCategory failed: %v", err)
	}
	if _, err := s.CreatePost(ctx, post.NewPost{Title: "x", Slug: "x", Content: "c", CategoryID: news.ID}); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	tests := []struct {
		name string
		np   post.NewPost
	}{
		{"unknown category", post.NewPost{Title: "y", Slug: "y", Content: "c", CategoryID: 999}},
		{"unknown tag", post.NewPost{Title: "z", Slug: "z", Content: "c", CategoryID: news.ID, TagIDs: []int64{999}}},
		{"duplicate slug", post.NewPost{Title: "X", Slug: "x", Content: "c", CategoryID: news.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.CreatePost(ctx, tt.np); !errors.Is(err, post.ErrConstraint) {
				t.Fatalf("expected post.ErrConstraint, got %v", err)
			}
		})
	}

	posts, err := s.FindPosts(ctx, post.Query{})
	if err != nil {
		t.Fatalf("FindPosts failed: %v", err)
	}
	if len(posts) != 1 {
		t.Errorf("FindPosts count = %d, want 1", len(posts))
	}
	if _, err := s.UpdatePost(ctx, "ghost", post.Patch{Content: ptr("c")}); !errors.Is(err, post.ErrNotFound) {
		t.Errorf("expected post.ErrNotFound, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		constraint bool
	}{
		{"nil", nil, false},
		{"foreign key", gorm.ErrForeignKeyViolated, true},
		{"wrapped duplicate", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true},
		{"other", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if tt.err == nil {
				if got != nil {
					t.Errorf("classify(nil) = %v, want nil", got)
				}
				return
			}
			if errors.Is(got, post.ErrConstraint) != tt.constraint {
				t.Errorf("classify(%v) = %v, constraint = %v", tt.err, got, tt.constraint)
			}
			if !tt.constraint && got != tt.err {
				t.Errorf("classify(%v) = %v, want the error unchanged", tt.err, got)
			}
		})
	}
}

func TestRowToPost(t *testing.T) {
	img := "/img/cover.png"
	now := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	row := postRow{
		ID: 7, Title: "Ciao", Slug: "ciao", Image: &img, Content: "c", Published: true,
		CategoryID: 2, Category: categoryRow{ID: 2, Name: "news"},
		Tags:      []tagRow{{ID: 1, Name: "a"}, {ID: 3, Name: "c"}},
		CreatedAt: now, UpdatedAt: now,
	}
	p := row.toPost()
	if p.ID != 7 || p.Slug != "ciao" || !p.Published || p.CategoryID != 2 {
		t.Errorf("toPost() = %+v", p)
	}
	if p.Image == nil || *p.Image != img {
		t.Errorf("Image = %v, want %q", p.Image, img)
	}
	if p.Category.Name != "news" {
		t.Errorf("Category.Name = %q, want %q", p.Category.Name, "news")
	}
	if want := []int64{1, 3}; !reflect.DeepEqual(p.TagIDs(), want) {
		t.Errorf("TagIDs() = %v, want %v", p.TagIDs(), want)
	}

	if got := (postRow{}).toPost().Tags; got == nil || len(got) != 0 {
		t.Errorf("Tags of untagged row = %#v, want empty non-nil slice", got)
	}
}
