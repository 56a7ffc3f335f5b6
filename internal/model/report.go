package model

import (
	"errors"
	"time"
)

// Report statuses
const (
	ReportPending  = "pending"
	ReportResolved = "resolved"
)

// Report flags a post or a comment for moderator review. Exactly one of
// PostID and CommentID is set.
type Report struct {
	ID          string    `db:"id" json:"id"`
	PostID      *string   `db:"post_id" json:"postId"`
	CommentID   *string   `db:"comment_id" json:"commentId"`
	ReporterID  string    `db:"reporter_id" json:"reporterId"`
	Reason      string    `db:"reason" json:"reason"`
	Description string    `db:"description" json:"description"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// CreateReportRequest is the request body for reporting content.
type CreateReportRequest struct {
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

// Report errors
var (
	ErrReportNotFound = errors.New("report not found")
	ErrReasonRequired = errors.New("reason is required")
)
