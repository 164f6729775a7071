package pubapi

import "github.com/eringen/pubapi/post"

// createPostRequest is the body of POST /posts.
type createPostRequest struct {
	Title      string  `json:"title" validate:"required"`
	Image      *string `json:"image"`
	Content    string  `json:"content" validate:"required"`
	Published  bool    `json:"published"`
	CategoryID int64   `json:"categoryId" validate:"required,gt=0"`
	Tags       []int64 `json:"tags" validate:"dive,gt=0"`
}

// updatePostRequest is the body of PUT /posts/:slug. Absent keys decode to
// nil and leave the stored value alone.
type updatePostRequest struct {
	Title         *string `json:"title"`
	Image         *string `json:"image"`
	Content       *string `json:"content" validate:"omitnil,min=1"`
	Published     *bool   `json:"published"`
	CategoryID    *int64  `json:"categoryId" validate:"omitempty,gt=0"`
	Tags          []int64 `json:"tags" validate:"dive,gt=0"`
	OverwriteTags bool    `json:"overwriteTags"`
}

type listResponse struct {
	Message string      `json:"message"`
	Count   int         `json:"count"`
	Posts   []post.Post `json:"posts"`
}

type postResponse struct {
	Message string    `json:"message"`
	Post    post.Post `json:"post"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}
