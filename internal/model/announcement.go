package model

import (
	"errors"
	"time"
)

// Announcement is an admin-authored banner message.
type Announcement struct {
	ID        string      `db:"id" json:"id"`
	UserID    string      `db:"user_id" json:"userId"`
	Title     string      `db:"title" json:"title"`
	Content   string      `db:"content" json:"content"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
	Author    UserSummary `db:"-" json:"author"`
}

// CreateAnnouncementRequest is the request body for creating an announcement.
type CreateAnnouncementRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

var (
	ErrAnnouncementNotFound = errors.New("announcement not found")
	ErrAnnouncementInvalid  = errors.New("title and content are required")
)
