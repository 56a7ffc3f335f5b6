package service

import (
	"context"
	"fmt"
	"log"

	"talksphere/internal/model"
	"talksphere/internal/repository"
)

// CascadeError reports a cascade that failed after it had already removed
// some comments. It matches model.ErrCounterStale with errors.Is.
type CascadeError struct {
	CommentID string
	Removed   int
	Err       error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("cascade delete of comment %s stopped after %d removals: %v", e.CommentID, e.Removed, e.Err)
}

func (e *CascadeError) Unwrap() []error {
	return []error{model.ErrCounterStale, e.Err}
}

// CascadeDeleter removes a comment together with every transitive reply.
// Callers make the authorization decision before calling Delete.
type CascadeDeleter struct {
	comments repository.CommentRepository
}

func NewCascadeDeleter(comments repository.CommentRepository) *CascadeDeleter {
	return &CascadeDeleter{comments: comments}
}

// Delete walks the reply tree under commentID with an explicit stack: pop an
// id, push its children, delete it. It returns how many comments were
// actually removed. Ids that are already gone count zero, so overlapping
// cascades racing on the same subtree both succeed.
//
// If the store fails before anything was removed the plain error is returned.
// After the first removal failures come back as *CascadeError.
func (d *CascadeDeleter) Delete(ctx context.Context, commentID string) (int, error) {
	stack := []string{commentID}
	removed := 0

	fail := func(err error) (int, error) {
		if removed == 0 {
			return 0, err
		}
		log.Printf("[CascadeDeleter] Interrupted: root=%s removed=%d err=%v", commentID, removed, err)
		return removed, &CascadeError{CommentID: commentID, Removed: removed, Err: err}
	}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := d.comments.ListChildIDs(ctx, id)
		if err != nil {
			return fail(fmt.Errorf("list replies of %s: %w", id, err))
		}
		stack = append(stack, children...)

		ok, err := d.comments.Delete(ctx, id)
		if err != nil {
			return fail(fmt.Errorf("delete comment %s: %w", id, err))
		}
		if ok {
			removed++
		}
	}

	return removed, nil
}
