package model

import (
	"errors"
	"time"
)

// Comment is a single stored comment. The store keeps comments flat; the
// reply tree is rebuilt on every read.
type Comment struct {
	ID         string    `db:"id" json:"id"`
	PostID     string    `db:"post_id" json:"postId"`
	ParentID   *string   `db:"parent_id" json:"parentId"`
	AuthorID   string    `db:"author_id" json:"userId"`
	Content    string    `db:"content" json:"content"`
	LikedBy    []string  `db:"-" json:"likedBy"`
	DislikedBy []string  `db:"-" json:"dislikedBy"`
	Likes      int       `db:"likes" json:"likes"`
	Dislikes   int       `db:"dislikes" json:"dislikes"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// IsTopLevel reports whether the comment hangs directly off its post.
func (c *Comment) IsTopLevel() bool {
	return c.ParentID == nil
}

// Clone returns a deep copy so callers never share vote slices with a store.
func (c Comment) Clone() Comment {
	out := c
	if c.ParentID != nil {
		parent := *c.ParentID
		out.ParentID = &parent
	}
	out.LikedBy = append([]string{}, c.LikedBy...)
	out.DislikedBy = append([]string{}, c.DislikedBy...)
	return out
}

// CommentNode is a read-time view of a comment with its nested replies.
type CommentNode struct {
	Comment
	Author      UserSummary    `json:"author"`
	ContentHTML string         `json:"contentHtml,omitempty"`
	Replies     []*CommentNode `json:"replies"`
}

// CreateCommentRequest is the request body for adding or replying to a comment.
type CreateCommentRequest struct {
	Content string `json:"content"`
	// PostID is accepted for client compatibility but ignored on replies.
	PostID string `json:"postId,omitempty"`
}

// UpdateCommentRequest is the request body for editing a comment.
type UpdateCommentRequest struct {
	Content string `json:"content"`
}

// DeleteCommentResponse reports how many comments a cascade removed.
type DeleteCommentResponse struct {
	Message string `json:"message"`
	Removed int    `json:"removed"`
}

// VoteDirection selects which ledger set a vote toggles.
type VoteDirection string

const (
	VoteLike    VoteDirection = "like"
	VoteDislike VoteDirection = "dislike"
)

// Valid reports whether d is a known direction.
func (d VoteDirection) Valid() bool {
	return d == VoteLike || d == VoteDislike
}

// Comment constraints
const (
	MaxCommentLength = 5000
)

// Comment errors
var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrNotCommentOwner = errors.New("not the owner of this comment")
	ErrContentRequired = errors.New("comment content is required")
	ErrContentTooLong  = errors.New("comment content too long")
	ErrInvalidVote     = errors.New("invalid vote direction")

	// ErrCounterStale marks a cascade delete that stopped part way. Some
	// comments are gone and the post's comment count needs a re-count.
	ErrCounterStale = errors.New("comment delete interrupted, comment count may be stale")
)
