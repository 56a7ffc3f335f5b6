package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"talksphere/internal/queue"
)

// CountReconciler recomputes a post's stored comment count from the
// comment store. This abstracts the service layer so workers don't depend
// on repositories directly.
type CountReconciler interface {
	// ReconcilePost rewrites the post's comment_count and returns the new value.
	ReconcilePost(ctx context.Context, postID string) (int, error)
}

// CommentNotifier fans a new comment out to the users it concerns.
type CommentNotifier interface {
	NotifyCommentCreated(ctx context.Context, postID, commentID, actorID string) error
}

// Handler processes comment events from the queue.
type Handler struct {
	reconciler CountReconciler
	notifier   CommentNotifier // nil disables notifications
}

// NewHandler creates a new event handler. notifier may be nil.
func NewHandler(reconciler CountReconciler, notifier CommentNotifier) *Handler {
	return &Handler{reconciler: reconciler, notifier: notifier}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.CommentEvent) error {
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventCommentCountStale:
		err = h.handleCountStale(ctx, event)
	case queue.EventCommentCreated:
		err = h.handleCommentCreated(ctx, event)
	case queue.EventCommentDeleted, queue.EventPostDeleted:
		log.Printf("[Worker] %s: post=%s comment=%s actor=%s removed=%d",
			event.Type, event.PostID, event.CommentID, event.ActorID, event.Removed)
	default:
		log.Printf("[Worker] Unknown event type: %s", event.Type)
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s duration=%v err=%v",
			event.Type, time.Since(startTime), err)
		return err
	}

	log.Printf("[Worker] HandleEvent OK: type=%s duration=%v", event.Type, time.Since(startTime))
	return nil
}

// handleCountStale recounts the comments of a post whose cascade was
// interrupted part way through.
func (h *Handler) handleCountStale(ctx context.Context, event queue.CommentEvent) error {
	if event.PostID == "" {
		return fmt.Errorf("count stale event without post id")
	}
	log.Printf("[Worker] CountStale: post=%s comment=%s removed=%d", event.PostID, event.CommentID, event.Removed)

	count, err := h.reconciler.ReconcilePost(ctx, event.PostID)
	if err != nil {
		return fmt.Errorf("reconcile post %s: %w", event.PostID, err)
	}

	log.Printf("[Worker] CountStale DONE: post=%s comment_count=%d", event.PostID, count)
	return nil
}

func (h *Handler) handleCommentCreated(ctx context.Context, event queue.CommentEvent) error {
	log.Printf("[Worker] CommentCreated: post=%s comment=%s actor=%s", event.PostID, event.CommentID, event.ActorID)
	if h.notifier == nil {
		return nil
	}
	if event.CommentID == "" {
		return fmt.Errorf("comment created event without comment id")
	}
	if err := h.notifier.NotifyCommentCreated(ctx, event.PostID, event.CommentID, event.ActorID); err != nil {
		return fmt.Errorf("notify comment %s: %w", event.CommentID, err)
	}
	return nil
}
