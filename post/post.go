// Package post implements the blog post lifecycle: listing with publication
// and text filters, lookup by slug, creation, merge-patch updates with tag
// reconciliation, and deletion. Persistence is delegated to a Store.
package post

import "time"

// Category groups posts. Its lifecycle is owned by the store, posts only
// reference it.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Tag labels posts. Posts and tags are many-to-many.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Post is a blog entry together with its category and tags.
type Post struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Image      *string   `json:"image"`
	Content    string    `json:"content"`
	Published  bool      `json:"published"`
	CategoryID int64     `json:"categoryId"`
	Category   Category  `json:"category"`
	Tags       []Tag     `json:"tags"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TagIDs returns the identifiers of the tags currently attached to p.
func (p Post) TagIDs() []int64 {
	ids := make([]int64, 0, len(p.Tags))
	for _, t := range p.Tags {
		ids = append(ids, t.ID)
	}
	return ids
}

// Filter narrows List results. A nil Published matches both states.
type Filter struct {
	Published *bool
	Search    string
}

// Page is the result of List.
type Page struct {
	Count int    `json:"count"`
	Posts []Post `json:"posts"`
}

// CreateInput carries the fields of a new post.
type CreateInput struct {
	Title      string
	Image      *string
	Content    string
	Published  bool
	CategoryID int64
	Tags       []int64
}

// UpdateInput is a merge patch: nil fields are left untouched. Tags are only
// considered when non-empty; OverwriteTags switches from adding the missing
// tags to replacing the whole set.
type UpdateInput struct {
	Title         *string
	Image         *string
	Content       *string
	Published     *bool
	CategoryID    *int64
	Tags          []int64
	OverwriteTags bool
}
