package post

import (
	"context"
	"fmt"
	"strings"

	"github.com/eringen/pubapi/slug"
)

// Manager runs post operations against a Store. It keeps no state of its
// own and is safe for concurrent use when the Store is.
type Manager struct {
	store Store
}

// NewManager creates a Manager backed by store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// List returns the posts matching f. The publication filter runs in the
// store; the search text is matched case-insensitively against title and
// content afterwards.
func (m *Manager) List(ctx context.Context, f Filter) (Page, error) {
	posts, err := m.store.FindPosts(ctx, Query{Published: f.Published})
	if err != nil {
		return Page{}, err
	}
	if strings.TrimSpace(f.Search) != "" {
		posts = matchText(posts, f.Search)
	}
	if posts == nil {
		posts = []Post{}
	}
	return Page{Count: len(posts), Posts: posts}, nil
}

// Get returns the post with the given slug, or ErrNotFound.
func (m *Manager) Get(ctx context.Context, slug string) (Post, error) {
	return m.store.FindPost(ctx, slug)
}

// Create derives the slug from the title and stores the post connected to
// its category and tags.
func (m *Manager) Create(ctx context.Context, in CreateInput) (Post, error) {
	s, err := deriveSlug(in.Title)
	if err != nil {
		return Post{}, err
	}
	if in.CategoryID <= 0 {
		return Post{}, fmt.Errorf("%w: categoryId is required", ErrInvalid)
	}
	return m.store.CreatePost(ctx, NewPost{
		Title:      in.Title,
		Slug:       s,
		Image:      in.Image,
		Content:    in.Content,
		Published:  in.Published,
		CategoryID: in.CategoryID,
		TagIDs:     uniqueIDs(in.Tags),
	})
}

// Update applies in to the post identified by slug. Fields left nil keep
// their value; a new title also moves the post to a new slug.
func (m *Manager) Update(ctx context.Context, slug string, in UpdateInput) (Post, error) {
	current, err := m.store.FindPost(ctx, slug)
	if err != nil {
		return Post{}, err
	}

	patch := Patch{
		Image:     in.Image,
		Content:   in.Content,
		Published: in.Published,
	}
	if in.Title != nil {
		s, err := deriveSlug(*in.Title)
		if err != nil {
			return Post{}, err
		}
		patch.Title = in.Title
		patch.Slug = &s
	}
	if in.CategoryID != nil {
		if *in.CategoryID <= 0 {
			return Post{}, fmt.Errorf("%w: categoryId must be positive", ErrInvalid)
		}
		patch.CategoryID = in.CategoryID
	}
	if len(in.Tags) > 0 {
		patch.ConnectTags, patch.DisconnectTags = reconcileTags(current.TagIDs(), in.Tags, in.OverwriteTags)
	}

	return m.store.UpdatePost(ctx, slug, patch)
}

// Delete removes the post with the given slug, or returns ErrNotFound.
func (m *Manager) Delete(ctx context.Context, slug string) error {
	if _, err := m.store.FindPost(ctx, slug); err != nil {
		return err
	}
	return m.store.DeletePost(ctx, slug)
}

func deriveSlug(title string) (string, error) {
	s := slug.Derive(title)
	if s == "" {
		return "", fmt.Errorf("%w: title has no letters or digits to build a slug from", ErrInvalid)
	}
	return s, nil
}

func matchText(posts []Post, search string) []Post {
	needle := strings.ToLower(search)
	var out []Post
	for _, p := range posts {
		if strings.Contains(strings.ToLower(p.Title), needle) ||
			strings.Contains(strings.ToLower(p.Content), needle) {
			out = append(out, p)
		}
	}
	return out
}
