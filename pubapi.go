// Package pubapi is a JSON API for managing blog posts, built with Go and Echo.
// It exposes list, get, create, update and delete operations on posts, plus an
// RSS and Atom feeds and a sitemap of published posts.
//
// Posts are stored through a Backend (SQLite by default, PostgreSQL via GORM)
// and all lifecycle rules live in the post package.
package pubapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pubapi/post"
)

// App is the central pubapi application. It wires together the backend,
// the post manager, handlers and middleware.
type App struct {
	Config Config
	Echo   *echo.Echo
	Store  Backend
	Posts  *post.Manager

	writeLimiter *WriteLimiter
	customRoutes []func(*App)
	initialized  bool
}

// New creates a new App with the given configuration.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(parseLogLevel(cfg.LogLevel))

	a := &App{
		Config: cfg,
		Echo:   e,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Init opens the backend (unless one was supplied with WithStore) and
// registers middleware and routes. Start calls it; tests call it directly
// and drive a.Echo with httptest.
func (a *App) Init() error {
	if a.initialized {
		return nil
	}
	if a.Store == nil {
		store, err := OpenBackend(a.Config.Database, a.Config.Debug)
		if err != nil {
			return fmt.Errorf("pubapi: init store: %w", err)
		}
		a.Store = store
	}
	a.Posts = post.NewManager(a.Store)

	if a.Config.WritesPerMinute > 0 {
		a.writeLimiter = NewWriteLimiter(a.Config.WritesPerMinute, time.Minute)
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.initialized = true
	return nil
}

// Start initializes the app and serves HTTP until Shutdown is called.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	a.Echo.Logger.Infof("pubapi listening on %s", a.Config.Addr)
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/", handleWelcome)
	e.GET("/healthz", a.handleHealth)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/atom.xml", a.handleAtom)

	g := e.Group("/posts")
	g.GET("", a.handleListPosts)
	g.POST("", a.handleCreatePost)
	g.GET("/:slug", a.handleGetPost)
	g.PUT("/:slug", a.handleUpdatePost)
	g.DELETE("/:slug", a.handleDeletePost)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.writeLimiter != nil {
		a.writeLimiter.Stop()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
