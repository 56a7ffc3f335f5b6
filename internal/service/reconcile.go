package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"talksphere/internal/model"
	"talksphere/internal/repository"
)

// ReconcileService repairs denormalized comment counts by recounting the
// comment store, the source of truth.
type ReconcileService struct {
	postRepo repository.PostRepository
}

func NewReconcileService(postRepo repository.PostRepository) *ReconcileService {
	return &ReconcileService{postRepo: postRepo}
}

// ReconcilePost overwrites the post's comment count with a live count and
// returns it. Count and write are one store operation.
func (s *ReconcileService) ReconcilePost(ctx context.Context, postID string) (int, error) {
	postID, err := model.ParseID(postID)
	if err != nil {
		return 0, err
	}

	count, err := s.postRepo.RecountComments(ctx, postID)
	if err != nil {
		return 0, fmt.Errorf("recount post %s: %w", postID, err)
	}

	log.Printf("[ReconcileService] Post %s comment_count=%d", postID, count)
	return count, nil
}

// ReconcileAll reconciles every post and returns how many were processed.
// A post deleted while the sweep runs is skipped.
func (s *ReconcileService) ReconcileAll(ctx context.Context) (int, error) {
	ids, err := s.postRepo.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list post ids: %w", err)
	}

	done := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := s.ReconcilePost(ctx, id); err != nil {
			if errors.Is(err, model.ErrPostNotFound) {
				continue
			}
			return done, err
		}
		done++
	}

	log.Printf("[ReconcileService] Reconciled %d of %d posts", done, len(ids))
	return done, nil
}
