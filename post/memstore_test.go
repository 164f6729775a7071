package post

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// memStore is an in-memory Store that enforces the same constraints as the
// SQL stores: known category and tag ids, unique slugs.
type memStore struct {
	mu         sync.Mutex
	nextID     int64
	categories map[int64]Category
	tags       map[int64]Tag
	posts      map[string]*Post
	findErr    error
	calls      []string
}

func newMemStore() *memStore {
	return &memStore{
		categories: map[int64]Category{1: {ID: 1, Name: "news"}, 2: {ID: 2, Name: "tech"}},
		tags: map[int64]Tag{
			1: {ID: 1, Name: "a"},
			2: {ID: 2, Name: "b"},
			3: {ID: 3, Name: "c"},
		},
		posts: make(map[string]*Post),
	}
}

func (s *memStore) record(call string) {
	s.calls = append(s.calls, call)
}

func (s *memStore) FindPosts(ctx context.Context, q Query) ([]Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("FindPosts")
	if s.findErr != nil {
		return nil, s.findErr
	}
	var out []Post
	for _, p := range s.posts {
		if q.Published != nil && p.Published != *q.Published {
			continue
		}
		out = append(out, clonePost(*p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) FindPost(ctx context.Context, slug string) (Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("FindPost")
	if s.findErr != nil {
		return Post{}, s.findErr
	}
	p, ok := s.posts[slug]
	if !ok {
		return Post{}, ErrNotFound
	}
	return clonePost(*p), nil
}

func (s *memStore) CreatePost(ctx context.Context, np NewPost) (Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CreatePost")
	cat, ok := s.categories[np.CategoryID]
	if !ok {
		return Post{}, fmt.Errorf("%w: unknown category %d", ErrConstraint, np.CategoryID)
	}
	tags, err := s.lookupTags(np.TagIDs)
	if err != nil {
		return Post{}, err
	}
	if _, taken := s.posts[np.Slug]; taken {
		return Post{}, fmt.Errorf("%w: slug %q already in use", ErrConstraint, np.Slug)
	}
	s.nextID++
	now := time.Now().UTC()
	p := &Post{
		ID:         s.nextID,
		Title:      np.Title,
		Slug:       np.Slug,
		Image:      np.Image,
		Content:    np.Content,
		Published:  np.Published,
		CategoryID: cat.ID,
		Category:   cat,
		Tags:       tags,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.posts[p.Slug] = p
	return clonePost(*p), nil
}

func (s *memStore) UpdatePost(ctx context.Context, slug string, patch Patch) (Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("UpdatePost")
	cur, ok := s.posts[slug]
	if !ok {
		return Post{}, ErrNotFound
	}
	next := clonePost(*cur)
	if patch.Title != nil {
		next.Title = *patch.Title
	}
	if patch.Slug != nil {
		if other, taken := s.posts[*patch.Slug]; taken && other.ID != cur.ID {
			return Post{}, fmt.Errorf("%w: slug %q already in use", ErrConstraint, *patch.Slug)
		}
		next.Slug = *patch.Slug
	}
	if patch.Image != nil {
		next.Image = patch.Image
	}
	if patch.Content != nil {
		next.Content = *patch.Content
	}
	if patch.Published != nil {
		next.Published = *patch.Published
	}
	if patch.CategoryID != nil {
		cat, ok := s.categories[*patch.CategoryID]
		if !ok {
			return Post{}, fmt.Errorf("%w: unknown category %d", ErrConstraint, *patch.CategoryID)
		}
		next.CategoryID, next.Category = cat.ID, cat
	}
	drop := make(map[int64]bool)
	for _, id := range patch.DisconnectTags {
		drop[id] = true
	}
	kept := next.Tags[:0]
	for _, t := range next.Tags {
		if !drop[t.ID] {
			kept = append(kept, t)
		}
	}
	added, err := s.lookupTags(patch.ConnectTags)
	if err != nil {
		return Post{}, err
	}
	next.Tags = append(kept, added...)
	sort.Slice(next.Tags, func(i, j int) bool { return next.Tags[i].ID < next.Tags[j].ID })
	next.UpdatedAt = time.Now().UTC()

	delete(s.posts, slug)
	stored := next
	s.posts[next.Slug] = &stored
	return clonePost(next), nil
}

func (s *memStore) DeletePost(ctx context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DeletePost")
	if _, ok := s.posts[slug]; !ok {
		return ErrNotFound
	}
	delete(s.posts, slug)
	return nil
}

func (s *memStore) lookupTags(ids []int64) ([]Tag, error) {
	var tags []Tag
	for _, id := range ids {
		t, ok := s.tags[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown tag %d", ErrConstraint, id)
		}
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].ID < tags[j].ID })
	return tags, nil
}

func clonePost(p Post) Post {
	p.Tags = append([]Tag(nil), p.Tags...)
	return p
}
