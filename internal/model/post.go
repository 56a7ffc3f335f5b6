package model

import (
	"errors"
	"time"
)

// Post is a discussion thread. CommentCount is a denormalized cache of the
// number of live comments attached to it.
type Post struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"userId"`
	Author       string    `db:"author" json:"author"`
	Title        string    `db:"title" json:"title"`
	Content      string    `db:"content" json:"content"`
	Image        *string   `db:"image" json:"image"`
	UserImage    *string   `db:"user_image" json:"userImage"`
	CommentCount int       `db:"comment_count" json:"commentCount"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// CreatePostRequest is the request body for creating a post.
type CreatePostRequest struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Image   *string `json:"image"`
}

// Post constraints
const (
	MaxPostTitleLength = 300
	PostImageFolder    = "posts"
	MaxPostImageSize   = 10 * 1024 * 1024 // 10MB
)

// Post errors
var (
	ErrPostNotFound     = errors.New("post not found")
	ErrTitleRequired    = errors.New("post title is required")
	ErrTitleTooLong     = errors.New("post title too long")
	ErrPostBodyRequired = errors.New("post content is required")
)
