package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the comment stream
const (
	EventCommentCreated    = "comment_created"
	EventCommentDeleted    = "comment_deleted"
	EventCommentCountStale = "comment_count_stale"
	EventPostDeleted       = "post_deleted"
)

// Stream names
const (
	StreamComments = "stream:comments"
)

// ConsumerGroupComments is the group shared by the reconcile and
// notification workers.
const ConsumerGroupComments = "comment_workers"

// CommentEvent is published after comment mutations. Stale-count events
// trigger a recount and created events a notification; the rest are an
// audit trail for other consumers.
type CommentEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`

	PostID    string `json:"post_id"`
	CommentID string `json:"comment_id,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`

	// Removed is the number of comments a delete took out.
	Removed int `json:"removed,omitempty"`
}

// NewCommentCreatedEvent is emitted for both top-level comments and replies.
func NewCommentCreatedEvent(postID, commentID, actorID string) CommentEvent {
	return CommentEvent{
		Type:      EventCommentCreated,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		CommentID: commentID,
		ActorID:   actorID,
	}
}

// NewCommentDeletedEvent records a completed cascade.
func NewCommentDeletedEvent(postID, commentID, actorID string, removed int) CommentEvent {
	return CommentEvent{
		Type:      EventCommentDeleted,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		CommentID: commentID,
		ActorID:   actorID,
		Removed:   removed,
	}
}

// NewCommentCountStaleEvent asks a worker to recount a post's comments.
func NewCommentCountStaleEvent(postID, commentID string, removed int) CommentEvent {
	return CommentEvent{
		Type:      EventCommentCountStale,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		CommentID: commentID,
		Removed:   removed,
	}
}

// NewPostDeletedEvent records a moderation post removal.
func NewPostDeletedEvent(postID, actorID string, removed int) CommentEvent {
	return CommentEvent{
		Type:      EventPostDeleted,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		ActorID:   actorID,
		Removed:   removed,
	}
}

// ToMap converts the event to a map for Redis XADD.
func (e CommentEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseCommentEvent parses a CommentEvent from Redis stream message values.
func ParseCommentEvent(values map[string]interface{}) (CommentEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return CommentEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event CommentEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return CommentEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
