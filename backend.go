package pubapi

import (
	"context"
	"fmt"

	"github.com/eringen/pubapi/gormstore"
	"github.com/eringen/pubapi/post"
	"github.com/eringen/pubapi/sqlstore"
)

// Backend is a post.Store that also manages the categories and tags posts
// refer to, and owns a connection that must be closed.
type Backend interface {
	post.Store
	EnsureCategory(ctx context.Context, name string) (post.Category, error)
	EnsureTag(ctx context.Context, name string) (post.Tag, error)
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Backend = (*sqlstore.Store)(nil)
	_ Backend = (*gormstore.Store)(nil)
)

// OpenBackend opens the backend selected by cfg.Driver.
func OpenBackend(cfg DatabaseConfig, debug bool) (Backend, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return sqlstore.New(cfg.Path)
	case "postgres":
		return gormstore.New(cfg.DSN, debug)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
