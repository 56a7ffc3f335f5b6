package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"talksphere/internal/model"
	"talksphere/internal/repository"
)

// NotificationService keeps each user's inbox of comment activity and pushes
// the same events to their registered devices.
type NotificationService struct {
	notifRepo   repository.NotificationRepository
	tokenRepo   repository.DeviceTokenRepository
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	authors     *AuthorResolver
	pusher      Pusher // Can be nil if push not configured
	now         func() time.Time
}

func NewNotificationService(
	notifRepo repository.NotificationRepository,
	tokenRepo repository.DeviceTokenRepository,
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	authors *AuthorResolver,
	pusher Pusher,
) *NotificationService {
	return &NotificationService{
		notifRepo:   notifRepo,
		tokenRepo:   tokenRepo,
		commentRepo: commentRepo,
		postRepo:    postRepo,
		authors:     authors,
		pusher:      pusher,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// =============================================================================
// Fan-out
// =============================================================================

// NotifyCommentCreated tells the parent comment's author about a reply, or
// the post's author about a top-level comment. Nobody is notified about their
// own comments, and comments or targets deleted in the meantime are skipped.
// Push failures are logged only so a retried event cannot duplicate the
// inbox entry.
func (s *NotificationService) NotifyCommentCreated(ctx context.Context, postID, commentID, actorID string) error {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if errors.Is(err, model.ErrCommentNotFound) {
		log.Printf("[NotificationService] Comment %s gone before notify, skipping", commentID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load comment: %w", err)
	}

	recipient, notifType, err := s.recipientFor(ctx, comment)
	if err != nil {
		return err
	}
	if recipient == "" || recipient == comment.AuthorID {
		return nil
	}

	n := &model.Notification{
		ID:        model.NewID(),
		UserID:    recipient,
		ActorID:   comment.AuthorID,
		Type:      notifType,
		PostID:    comment.PostID,
		CommentID: comment.ID,
		CreatedAt: s.now(),
	}
	if err := s.notifRepo.Create(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	log.Printf("[NotificationService] %s notification for user %s (actor=%s comment=%s)",
		notifType, recipient, comment.AuthorID, comment.ID)

	if s.pusher != nil {
		s.sendPush(ctx, n)
	}
	return nil
}

// recipientFor returns "" when the comment's target no longer exists.
func (s *NotificationService) recipientFor(ctx context.Context, c *model.Comment) (string, string, error) {
	if c.ParentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *c.ParentID)
		if errors.Is(err, model.ErrCommentNotFound) {
			return "", "", nil
		}
		if err != nil {
			return "", "", fmt.Errorf("load parent comment: %w", err)
		}
		return parent.AuthorID, model.NotificationTypeReply, nil
	}

	post, err := s.postRepo.GetByID(ctx, c.PostID)
	if errors.Is(err, model.ErrPostNotFound) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("load post: %w", err)
	}
	return post.UserID, model.NotificationTypeComment, nil
}

func (s *NotificationService) sendPush(ctx context.Context, n *model.Notification) {
	tokens, err := s.tokenRepo.GetByUserID(ctx, n.UserID)
	if err != nil {
		log.Printf("[NotificationService] Failed to get device tokens for user %s: %v", n.UserID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	tokenStrings := make([]string, len(tokens))
	for i, t := range tokens {
		tokenStrings[i] = t.Token
	}

	actor := s.authors.Resolve(ctx, []string{n.ActorID})[n.ActorID]
	msg := buildPushMessage(actor.Name, n)

	if err := s.pusher.Push(ctx, tokenStrings, msg); err != nil {
		log.Printf("[NotificationService] Failed to send push to user %s: %v", n.UserID, err)
	}
}

func buildPushMessage(actorName string, n *model.Notification) PushMessage {
	msg := PushMessage{
		Data: map[string]string{
			"type":      n.Type,
			"postId":    n.PostID,
			"commentId": n.CommentID,
			"actorId":   n.ActorID,
		},
	}
	switch n.Type {
	case model.NotificationTypeReply:
		msg.Title = "New Reply"
		msg.Body = actorName + " replied to your comment"
	default:
		msg.Title = "New Comment"
		msg.Body = actorName + " commented on your post"
	}
	return msg
}

// =============================================================================
// Inbox
// =============================================================================

// List returns the newest notifications with actors resolved and the total
// unread count for the badge.
func (s *NotificationService) List(ctx context.Context, userID string, limit int) (*model.NotificationListResponse, error) {
	if limit <= 0 {
		limit = model.DefaultNotificationLimit
	}
	if limit > model.MaxNotificationLimit {
		limit = model.MaxNotificationLimit
	}

	items, err := s.notifRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.notifRepo.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	actorIDs := make([]string, len(items))
	for i, n := range items {
		actorIDs[i] = n.ActorID
	}
	actors := s.authors.Resolve(ctx, actorIDs)
	for i := range items {
		items[i].Actor = actors[items[i].ActorID]
	}

	return &model.NotificationListResponse{Notifications: items, UnreadCount: unread}, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, userID string, ids []string) error {
	return s.notifRepo.MarkAsRead(ctx, userID, ids)
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID string) error {
	return s.notifRepo.MarkAllAsRead(ctx, userID)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.notifRepo.UnreadCount(ctx, userID)
}

// =============================================================================
// Devices
// =============================================================================

// RegisterDeviceToken stores a device's push token. An empty platform is
// inferred from the token format.
func (s *NotificationService) RegisterDeviceToken(ctx context.Context, userID, token, platform string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.ErrDeviceTokenRequired
	}

	platform = strings.ToLower(strings.TrimSpace(platform))
	switch platform {
	case "":
		platform = model.PlatformAndroid
		if isExpoToken(token) {
			platform = model.PlatformExpo
		}
	case model.PlatformExpo, model.PlatformIOS, model.PlatformAndroid:
	default:
		return model.ErrInvalidPlatform
	}

	if err := s.tokenRepo.Upsert(ctx, userID, token, platform); err != nil {
		return err
	}
	log.Printf("[NotificationService] Device registered for user %s (platform=%s)", userID, platform)
	return nil
}

// RemoveDeviceToken unregisters a device, e.g. on logout.
func (s *NotificationService) RemoveDeviceToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.ErrDeviceTokenRequired
	}
	return s.tokenRepo.Delete(ctx, token)
}
