package model

import (
	"errors"
	"time"
)

// Notification types
const (
	// NotificationTypeComment tells a post's author about a new top-level comment.
	NotificationTypeComment = "comment"
	// NotificationTypeReply tells a comment's author about a reply.
	NotificationTypeReply = "reply"
)

// Notification is one inbox entry. UserID is the recipient and ActorID the
// user whose comment triggered it.
type Notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"-"`
	ActorID   string    `db:"actor_id" json:"actorId"`
	Type      string    `db:"type" json:"type"`
	PostID    string    `db:"post_id" json:"postId"`
	CommentID string    `db:"comment_id" json:"commentId"`
	IsRead    bool      `db:"is_read" json:"isRead"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	Actor UserSummary `db:"-" json:"actor"`
}

// NotificationListResponse is the inbox view.
type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unreadCount"`
}

// MarkReadRequest is the request body for PATCH /notifications/read.
type MarkReadRequest struct {
	NotificationIDs []string `json:"notificationIds"`
}

// DeviceToken is a user's registered device for push notifications.
type DeviceToken struct {
	UserID    string    `db:"user_id" json:"-"`
	Token     string    `db:"token" json:"-"`
	Platform  string    `db:"platform" json:"platform"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// RegisterTokenRequest is the request body for registering a device token.
type RegisterTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// Platform constants
const (
	PlatformExpo    = "expo"
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)

// Notification list bounds
const (
	DefaultNotificationLimit = 20
	MaxNotificationLimit     = 50
)

var (
	// ErrDeviceTokenRequired is returned when a device registration has no token
	ErrDeviceTokenRequired = errors.New("device token is required")

	// ErrInvalidPlatform is returned for an unknown device platform
	ErrInvalidPlatform = errors.New("invalid device platform")
)
