package repository

import (
	"context"
	"time"

	"talksphere/internal/model"
)

// CommentRepository is the flat comment store. Each method is a single atomic
// store operation; multi-step protocols (cascades, counters) live in the
// service layer.
type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	GetByID(ctx context.Context, commentID string) (*model.Comment, error)
	// ListByPost returns every comment of a post, oldest first.
	ListByPost(ctx context.Context, postID string) ([]model.Comment, error)
	// ListChildIDs returns the ids of direct replies to parentID, oldest first.
	ListChildIDs(ctx context.Context, parentID string) ([]string, error)
	// Delete removes one comment. It reports false, not an error, when the
	// comment is already gone.
	Delete(ctx context.Context, commentID string) (bool, error)
	// DeleteByPost removes every comment of a post without walking the tree.
	DeleteByPost(ctx context.Context, postID string) (int, error)
	UpdateContent(ctx context.Context, commentID, content string, updatedAt time.Time) (*model.Comment, error)
	// UpdateVotes runs mutate against the latest stored copy of the comment
	// while holding it exclusively, then persists the result.
	UpdateVotes(ctx context.Context, commentID string, mutate func(c *model.Comment)) (*model.Comment, error)
	CountByPost(ctx context.Context, postID string) (int, error)
}

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, postID string) (*model.Post, error)
	List(ctx context.Context) ([]model.Post, error)
	ListIDs(ctx context.Context) ([]string, error)
	Exists(ctx context.Context, postID string) (bool, error)
	Delete(ctx context.Context, postID string) error
	// AdjustCommentCount atomically adds delta to the post's comment count.
	AdjustCommentCount(ctx context.Context, postID string, delta int) error
	// SetCommentCount overwrites the cached count.
	SetCommentCount(ctx context.Context, postID string, count int) error
	// RecountComments replaces the cached count with a live count of the
	// post's comments in one step and returns it.
	RecountComments(ctx context.Context, postID string) (int, error)
}

type UserRepository interface {
	Upsert(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, userID string) (*model.User, error)
	// List returns every user, newest first.
	List(ctx context.Context) ([]model.User, error)
	// GetSummaries returns display identities for the ids that exist.
	// Unknown ids are simply missing from the map.
	GetSummaries(ctx context.Context, userIDs []string) (map[string]model.UserSummary, error)
	SetBanned(ctx context.Context, userID string, banned bool) error
	// SetRole is used to seed administrators; there is no HTTP route for it.
	SetRole(ctx context.Context, userID, role string) error
}

type ReportRepository interface {
	Create(ctx context.Context, report *model.Report) error
	List(ctx context.Context) ([]model.Report, error)
	Resolve(ctx context.Context, reportID string) (*model.Report, error)
}

type AnnouncementRepository interface {
	Create(ctx context.Context, a *model.Announcement) error
	List(ctx context.Context) ([]model.Announcement, error)
	GetByID(ctx context.Context, id string) (*model.Announcement, error)
	Delete(ctx context.Context, id string) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	// ListByUser returns the newest notifications first.
	ListByUser(ctx context.Context, userID string, limit int) ([]model.Notification, error)
	MarkAsRead(ctx context.Context, userID string, ids []string) error
	MarkAllAsRead(ctx context.Context, userID string) error
	UnreadCount(ctx context.Context, userID string) (int, error)
}

type DeviceTokenRepository interface {
	// Upsert moves an existing token to userID, since a device can change hands.
	Upsert(ctx context.Context, userID, token, platform string) error
	GetByUserID(ctx context.Context, userID string) ([]model.DeviceToken, error)
	Delete(ctx context.Context, token string) error
}
