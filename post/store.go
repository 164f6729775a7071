package post

import "context"

// Query selects posts in the store. A nil Published matches both states.
type Query struct {
	Published *bool
}

// NewPost is the row handed to Store.CreatePost.
type NewPost struct {
	Title      string
	Slug       string
	Image      *string
	Content    string
	Published  bool
	CategoryID int64
	TagIDs     []int64
}

// Patch is a sparse update. Nil fields are not written. ConnectTags and
// DisconnectTags are applied to the tag associations after the column
// changes.
type Patch struct {
	Title          *string
	Slug           *string
	Image          *string
	Content        *string
	Published      *bool
	CategoryID     *int64
	ConnectTags    []int64
	DisconnectTags []int64
}

// Store persists posts. Every returned Post has its Category and Tags
// loaded. Implementations return ErrNotFound for a missing slug and wrap
// ErrConstraint for foreign key and uniqueness violations; a failed
// CreatePost or UpdatePost must leave no partial write behind.
type Store interface {
	FindPosts(ctx context.Context, q Query) ([]Post, error)
	FindPost(ctx context.Context, slug string) (Post, error)
	CreatePost(ctx context.Context, p NewPost) (Post, error)
	UpdatePost(ctx context.Context, slug string, p Patch) (Post, error)
	DeletePost(ctx context.Context, slug string) error
}
