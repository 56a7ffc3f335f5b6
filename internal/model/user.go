package model

import (
	"errors"
	"time"
)

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// UnknownAuthorName is shown when a comment's author cannot be resolved.
const UnknownAuthorName = "Unknown"

// User is the identity collaborator. IDs are opaque strings issued upstream.
type User struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Email      string    `db:"email" json:"email"`
	ProfilePic *string   `db:"profile_pic" json:"profilePic"`
	Role       string    `db:"role" json:"role"`
	IsBanned   bool      `db:"is_banned" json:"isBanned"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// IsAdmin reports whether the user holds moderation privileges.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserSummary is the display identity attached to comments and announcements.
type UserSummary struct {
	ID         string `db:"id" json:"_id"`
	Name       string `db:"name" json:"name"`
	ProfilePic string `db:"profile_pic" json:"profilePic"`
}

// PlaceholderAuthor is the identity used when author lookup fails.
func PlaceholderAuthor(id, defaultAvatar string) UserSummary {
	return UserSummary{ID: id, Name: UnknownAuthorName, ProfilePic: defaultAvatar}
}

// UpsertUserRequest is the request body for PUT /users/me.
type UpsertUserRequest struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	ProfilePic *string `json:"profilePic"`
}

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrUserBanned is returned when a banned user attempts to write
	ErrUserBanned = errors.New("user is banned")

	// ErrNotAdmin is returned when a non-admin attempts a privileged action
	ErrNotAdmin = errors.New("admin privileges required")

	// ErrNameRequired is returned when a profile is saved without a name
	ErrNameRequired = errors.New("name is required")

	// ErrInvalidProfile is returned for malformed profile fields
	ErrInvalidProfile = errors.New("invalid profile")
)
