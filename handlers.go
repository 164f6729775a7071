package pubapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pubapi/post"
)

func handleWelcome(c echo.Context) error {
	return c.HTML(http.StatusOK, "<h1>Welcome to the blog!</h1>")
}

func (a *App) handleHealth(c echo.Context) error {
	if err := a.Store.Ping(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "store unavailable").SetInternal(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleListPosts(c echo.Context) error {
	page, err := a.Posts.List(c.Request().Context(), post.Filter{
		Published: parsePublished(c.QueryParam("published")),
		Search:    c.QueryParam("search"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse{
		Message: fmt.Sprintf("Posts found: %d", page.Count),
		Count:   page.Count,
		Posts:   page.Posts,
	})
}

func (a *App) handleGetPost(c echo.Context) error {
	p, err := a.Posts.Get(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (a *App) handleCreatePost(c echo.Context) error {
	var req createPostRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	p, err := a.Posts.Create(c.Request().Context(), post.CreateInput{
		Title:      req.Title,
		Image:      req.Image,
		Content:    req.Content,
		Published:  req.Published,
		CategoryID: req.CategoryID,
		Tags:       req.Tags,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, postResponse{Message: "Post created", Post: p})
}

func (a *App) handleUpdatePost(c echo.Context) error {
	var req updatePostRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	p, err := a.Posts.Update(c.Request().Context(), c.Param("slug"), post.UpdateInput{
		Title:         req.Title,
		Image:         req.Image,
		Content:       req.Content,
		Published:     req.Published,
		CategoryID:    req.CategoryID,
		Tags:          req.Tags,
		OverwriteTags: req.OverwriteTags,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, postResponse{Message: "Post updated", Post: p})
}

func (a *App) handleDeletePost(c echo.Context) error {
	if err := a.Posts.Delete(c.Request().Context(), c.Param("slug")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Post deleted"})
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.publishedPosts(c)
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.publishedPosts(c)
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleAtom(c echo.Context) error {
	posts, err := a.publishedPosts(c)
	if err != nil {
		return err
	}
	return a.renderAtom(c, posts)
}

func (a *App) publishedPosts(c echo.Context) ([]post.Post, error) {
	published := true
	page, err := a.Posts.List(c.Request().Context(), post.Filter{Published: &published})
	if err != nil {
		return nil, err
	}
	return page.Posts, nil
}

// bindBody decodes the JSON body only (path and query are not bound) and
// runs struct validation.
func bindBody(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return err
	}
	return c.Validate(dst)
}

// httpErrorHandler maps errors to JSON responses. Not-found and validation
// outcomes go to the client as-is; anything else is logged and reported as
// a generic 500.
func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := ""
	var he *echo.HTTPError
	switch {
	case errors.Is(err, post.ErrNotFound):
		code, msg = http.StatusNotFound, "Post not found"
	case errors.Is(err, post.ErrConstraint), errors.Is(err, post.ErrInvalid):
		code, msg = http.StatusBadRequest, err.Error()
	case errors.As(err, &he):
		code, msg = he.Code, fmt.Sprint(he.Message)
	}

	var body any = messageResponse{Message: msg}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		body = errorResponse{Error: "Internal server error"}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		c.Logger().Errorf("write error response: %v", err)
	}
}
