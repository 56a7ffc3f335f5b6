package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"talksphere/internal/content"
	"talksphere/internal/model"
	"talksphere/internal/queue"
	"talksphere/internal/repository"
)

// CommentService implements the comment operations: create, reply, list,
// edit, delete, moderation delete and vote. Every mutating call takes the
// acting user's id explicitly.
type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
	deleter     *CascadeDeleter
	authors     *AuthorResolver
	publisher   queue.Publisher // nil disables events
	now         func() time.Time
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	authors *AuthorResolver,
	publisher queue.Publisher,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		userRepo:    userRepo,
		deleter:     NewCascadeDeleter(commentRepo),
		authors:     authors,
		publisher:   publisher,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// =============================================================================
// Create / Reply
// =============================================================================

// Create adds a top-level comment to a post and bumps the post's counter.
func (s *CommentService) Create(ctx context.Context, postID, requesterID string, req model.CreateCommentRequest) (*model.Comment, error) {
	postID, err := model.ParseID(postID)
	if err != nil {
		return nil, err
	}
	text, err := cleanCommentContent(req.Content)
	if err != nil {
		return nil, err
	}
	if err := ensureCanWrite(ctx, s.userRepo, requesterID); err != nil {
		return nil, err
	}

	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("check post exists: %w", err)
	}
	if !exists {
		return nil, model.ErrPostNotFound
	}

	comment, err := s.insert(ctx, postID, nil, requesterID, text)
	if err != nil {
		return comment, err
	}

	log.Printf("[CommentService] User %s commented on post %s (comment=%s)", requesterID, postID, comment.ID)
	return comment, nil
}

// Reply adds a reply under an existing comment. The reply always lands on
// the parent's post.
func (s *CommentService) Reply(ctx context.Context, parentID, requesterID string, req model.CreateCommentRequest) (*model.Comment, error) {
	parentID, err := model.ParseID(parentID)
	if err != nil {
		return nil, err
	}
	text, err := cleanCommentContent(req.Content)
	if err != nil {
		return nil, err
	}
	if err := ensureCanWrite(ctx, s.userRepo, requesterID); err != nil {
		return nil, err
	}

	parent, err := s.commentRepo.GetByID(ctx, parentID)
	if err != nil {
		return nil, err
	}

	comment, err := s.insert(ctx, parent.PostID, &parent.ID, requesterID, text)
	if err != nil {
		return comment, err
	}

	log.Printf("[CommentService] User %s replied to comment %s on post %s (comment=%s)",
		requesterID, parentID, parent.PostID, comment.ID)
	return comment, nil
}

// insert stores the comment and adds one to the post's counter. A counter
// failure after the insert returns the stored comment along with an error
// matching model.ErrCounterStale.
func (s *CommentService) insert(ctx context.Context, postID string, parentID *string, authorID, text string) (*model.Comment, error) {
	now := s.now()
	comment := &model.Comment{
		ID:         model.NewID(),
		PostID:     postID,
		ParentID:   parentID,
		AuthorID:   authorID,
		Content:    text,
		LikedBy:    []string{},
		DislikedBy: []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	var countErr error
	err := s.postRepo.AdjustCommentCount(ctx, postID, 1)
	switch {
	case errors.Is(err, model.ErrPostNotFound):
		return nil, s.withdraw(ctx, comment)
	case err != nil:
		countErr = s.markStale(ctx, postID, comment.ID, 1, err)
	}

	s.publish(ctx, queue.NewCommentCreatedEvent(postID, comment.ID, authorID))
	return comment, countErr
}

// withdraw removes a comment whose post was deleted after the existence
// check, so a moderation post delete never leaves it behind.
func (s *CommentService) withdraw(ctx context.Context, comment *model.Comment) error {
	if _, err := s.commentRepo.Delete(ctx, comment.ID); err != nil {
		log.Printf("[CommentService] Withdraw FAILED: comment=%s post=%s err=%v", comment.ID, comment.PostID, err)
		return fmt.Errorf("withdraw comment of deleted post: %w", err)
	}
	log.Printf("[CommentService] Withdrew comment %s, post %s was deleted", comment.ID, comment.PostID)
	return model.ErrPostNotFound
}

// =============================================================================
// List
// =============================================================================

// ListForPost returns the post's comments as a forest, oldest first at every
// level, with authors resolved. Author lookup failures degrade to a
// placeholder identity.
func (s *CommentService) ListForPost(ctx context.Context, postID string) ([]*model.CommentNode, error) {
	postID, err := model.ParseID(postID)
	if err != nil {
		return nil, err
	}

	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("check post exists: %w", err)
	}
	if !exists {
		return nil, model.ErrPostNotFound
	}

	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	roots := BuildCommentTree(comments)

	authorIDs := make([]string, 0, len(comments))
	for _, c := range comments {
		authorIDs = append(authorIDs, c.AuthorID)
	}
	authors := s.authors.Resolve(ctx, authorIDs)

	walkTree(roots, func(n *model.CommentNode) {
		n.Author = authors[n.AuthorID]
		n.ContentHTML = content.RenderMarkdown(n.Content)
	})

	return roots, nil
}

// =============================================================================
// Edit
// =============================================================================

// Edit replaces a comment's content. Only the author may edit.
func (s *CommentService) Edit(ctx context.Context, commentID, requesterID string, req model.UpdateCommentRequest) (*model.Comment, error) {
	commentID, err := model.ParseID(commentID)
	if err != nil {
		return nil, err
	}

	existing, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if existing.AuthorID != requesterID {
		return nil, model.ErrNotCommentOwner
	}

	text, err := cleanCommentContent(req.Content)
	if err != nil {
		return nil, err
	}
	if err := ensureCanWrite(ctx, s.userRepo, requesterID); err != nil {
		return nil, err
	}

	comment, err := s.commentRepo.UpdateContent(ctx, commentID, text, s.now())
	if err != nil {
		return nil, err
	}

	log.Printf("[CommentService] User %s edited comment %s", requesterID, commentID)
	return comment, nil
}

// =============================================================================
// Delete
// =============================================================================

// Delete removes a comment and all of its replies. Only the author may
// delete. It returns how many comments were removed.
func (s *CommentService) Delete(ctx context.Context, commentID, requesterID string) (int, error) {
	commentID, err := model.ParseID(commentID)
	if err != nil {
		return 0, err
	}

	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return 0, err
	}
	if comment.AuthorID != requesterID {
		return 0, model.ErrNotCommentOwner
	}

	removed, err := s.cascade(ctx, comment, requesterID)
	if err != nil {
		return removed, err
	}

	log.Printf("[CommentService] User %s deleted comment %s from post %s (removed=%d)",
		requesterID, commentID, comment.PostID, removed)
	return removed, nil
}

// ModerationDelete removes a comment and its replies on behalf of a
// moderator. The caller has already checked the moderator's privileges.
func (s *CommentService) ModerationDelete(ctx context.Context, commentID, moderatorID string) (int, error) {
	commentID, err := model.ParseID(commentID)
	if err != nil {
		return 0, err
	}

	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return 0, err
	}

	removed, err := s.cascade(ctx, comment, moderatorID)
	if err != nil {
		return removed, err
	}

	log.Printf("[CommentService] Moderator %s deleted comment %s from post %s (removed=%d)",
		moderatorID, commentID, comment.PostID, removed)
	return removed, nil
}

// cascade runs the deleter and settles the post's counter with a single
// adjustment. When the cascade stops part way the partial count is still
// subtracted and a reconcile is requested.
func (s *CommentService) cascade(ctx context.Context, comment *model.Comment, actorID string) (int, error) {
	removed, err := s.deleter.Delete(ctx, comment.ID)
	if err != nil {
		var ce *CascadeError
		if !errors.As(err, &ce) {
			return 0, fmt.Errorf("delete comment: %w", err)
		}
		// Best effort with a fresh context: the request context may be the
		// reason the cascade stopped.
		bg := context.WithoutCancel(ctx)
		if adjErr := s.postRepo.AdjustCommentCount(bg, comment.PostID, -ce.Removed); adjErr != nil &&
			!errors.Is(adjErr, model.ErrPostNotFound) {
			log.Printf("[CommentService] Partial counter adjust failed: post=%s delta=%d err=%v",
				comment.PostID, -ce.Removed, adjErr)
		}
		s.publish(bg, queue.NewCommentCountStaleEvent(comment.PostID, comment.ID, ce.Removed))
		return ce.Removed, err
	}

	if removed > 0 {
		if err := s.adjustCount(ctx, comment.PostID, comment.ID, -removed); err != nil {
			return removed, err
		}
	}

	s.publish(ctx, queue.NewCommentDeletedEvent(comment.PostID, comment.ID, actorID, removed))
	return removed, nil
}

// =============================================================================
// Vote
// =============================================================================

// Vote toggles the user's like or dislike on a comment and returns the
// updated comment.
func (s *CommentService) Vote(ctx context.Context, commentID, userID string, dir model.VoteDirection) (*model.Comment, error) {
	commentID, err := model.ParseID(commentID)
	if err != nil {
		return nil, err
	}
	if !dir.Valid() {
		return nil, model.ErrInvalidVote
	}
	if err := ensureCanWrite(ctx, s.userRepo, userID); err != nil {
		return nil, err
	}

	comment, err := s.commentRepo.UpdateVotes(ctx, commentID, func(c *model.Comment) {
		_ = ApplyVote(c, userID, dir)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[CommentService] User %s voted %s on comment %s (likes=%d dislikes=%d)",
		userID, dir, commentID, comment.Likes, comment.Dislikes)
	return comment, nil
}

// =============================================================================
// Helpers
// =============================================================================

// adjustCount applies delta to the post's counter. A post that is already
// gone has no counter to keep in sync. Any other failure leaves the counter
// stale, so a reconcile is requested.
func (s *CommentService) adjustCount(ctx context.Context, postID, commentID string, delta int) error {
	err := s.postRepo.AdjustCommentCount(ctx, postID, delta)
	if err == nil || errors.Is(err, model.ErrPostNotFound) {
		return nil
	}
	return s.markStale(ctx, postID, commentID, delta, err)
}

// markStale requests a reconcile for a counter adjustment that failed.
func (s *CommentService) markStale(ctx context.Context, postID, commentID string, delta int, err error) error {
	log.Printf("[CommentService] Counter adjust FAILED: post=%s delta=%d err=%v", postID, delta, err)
	s.publish(context.WithoutCancel(ctx), queue.NewCommentCountStaleEvent(postID, commentID, 0))
	return fmt.Errorf("%w: adjust post %s by %d: %w", model.ErrCounterStale, postID, delta, err)
}

// publish sends an event after the store writes succeeded. Failures are
// logged and never fail the request.
func (s *CommentService) publish(ctx context.Context, event queue.CommentEvent) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.Publish(ctx, queue.StreamComments, event); err != nil {
		log.Printf("[CommentService] Failed to publish %s event: %v", event.Type, err)
	}
}

// cleanCommentContent strips markup and validates what is left.
func cleanCommentContent(raw string) (string, error) {
	text := content.Clean(raw)
	if text == "" {
		return "", model.ErrContentRequired
	}
	if utf8.RuneCountInString(text) > model.MaxCommentLength {
		return "", model.ErrContentTooLong
	}
	return text, nil
}

// ensureCanWrite refuses banned users. Users without a stored profile are
// allowed: identities are issued upstream and a profile is optional.
func ensureCanWrite(ctx context.Context, users repository.UserRepository, userID string) error {
	user, err := users.GetByID(ctx, userID)
	if errors.Is(err, model.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if user.IsBanned {
		return model.ErrUserBanned
	}
	return nil
}
