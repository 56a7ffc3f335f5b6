package worker

import (
	"context"

	"talksphere/internal/queue"
)

// InlinePublisher hands events straight to a Handler in the caller's
// goroutine. It stands in for the Redis stream when REDIS_URL is unset, so
// reconciles and notifications still happen in single-process setups.
type InlinePublisher struct {
	handler *Handler
}

var _ queue.Publisher = (*InlinePublisher)(nil)

func NewInlinePublisher(handler *Handler) *InlinePublisher {
	return &InlinePublisher{handler: handler}
}

// Publish runs the handler and returns an empty message id.
func (p *InlinePublisher) Publish(ctx context.Context, stream string, event queue.CommentEvent) (string, error) {
	return "", p.handler.HandleEvent(ctx, event)
}
