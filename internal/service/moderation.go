package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"talksphere/internal/content"
	"talksphere/internal/model"
	"talksphere/internal/queue"
	"talksphere/internal/repository"
)

// ModerationService covers user reports and the admin actions taken on them.
// Handlers check the admin role before calling the admin methods.
type ModerationService struct {
	reportRepo  repository.ReportRepository
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
	comments    *CommentService
	publisher   queue.Publisher
}

func NewModerationService(
	reportRepo repository.ReportRepository,
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
	comments *CommentService,
	publisher queue.Publisher,
) *ModerationService {
	return &ModerationService{
		reportRepo:  reportRepo,
		postRepo:    postRepo,
		commentRepo: commentRepo,
		userRepo:    userRepo,
		comments:    comments,
		publisher:   publisher,
	}
}

// =============================================================================
// Reports
// =============================================================================

// ReportPost files a report against a post.
func (s *ModerationService) ReportPost(ctx context.Context, postID, reporterID string, req model.CreateReportRequest) (*model.Report, error) {
	postID, err := model.ParseID(postID)
	if err != nil {
		return nil, err
	}
	reason, description, err := cleanReport(req)
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

	report := newReport(reporterID, reason, description)
	report.PostID = &postID
	if err := s.reportRepo.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	log.Printf("[ModerationService] User %s reported post %s", reporterID, postID)
	return report, nil
}

// ReportComment files a report against a comment.
func (s *ModerationService) ReportComment(ctx context.Context, commentID, reporterID string, req model.CreateReportRequest) (*model.Report, error) {
	commentID, err := model.ParseID(commentID)
	if err != nil {
		return nil, err
	}
	reason, description, err := cleanReport(req)
	if err != nil {
		return nil, err
	}

	if _, err := s.commentRepo.GetByID(ctx, commentID); err != nil {
		return nil, err
	}

	report := newReport(reporterID, reason, description)
	report.CommentID = &commentID
	if err := s.reportRepo.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	log.Printf("[ModerationService] User %s reported comment %s", reporterID, commentID)
	return report, nil
}

// ListReports returns all reports, newest first.
func (s *ModerationService) ListReports(ctx context.Context) ([]model.Report, error) {
	reports, err := s.reportRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// ResolveReport marks a report as handled.
func (s *ModerationService) ResolveReport(ctx context.Context, reportID, adminID string) (*model.Report, error) {
	reportID, err := model.ParseID(reportID)
	if err != nil {
		return nil, err
	}
	report, err := s.reportRepo.Resolve(ctx, reportID)
	if err != nil {
		return nil, err
	}
	log.Printf("[ModerationService] Admin %s resolved report %s", adminID, reportID)
	return report, nil
}

// =============================================================================
// Admin actions
// =============================================================================

// SetUserBanned bans or unbans a user. Banned users can still read but
// cannot post, comment, edit or vote.
func (s *ModerationService) SetUserBanned(ctx context.Context, userID, adminID string, banned bool) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return model.ErrUserNotFound
	}
	if err := s.userRepo.SetBanned(ctx, userID, banned); err != nil {
		return err
	}
	log.Printf("[ModerationService] Admin %s set banned=%t for user %s", adminID, banned, userID)
	return nil
}

// DeleteComment removes a comment and its replies regardless of owner.
func (s *ModerationService) DeleteComment(ctx context.Context, commentID, adminID string) (int, error) {
	return s.comments.ModerationDelete(ctx, commentID, adminID)
}

// DeletePost removes a post together with all of its comments. The post goes
// first so new comments are refused from then on; its comments follow in one
// bulk delete rather than a cascade per comment, and no counter is adjusted.
// A comment inserted concurrently withdraws itself when its counter update
// finds the post gone.
func (s *ModerationService) DeletePost(ctx context.Context, postID, adminID string) (int, error) {
	postID, err := model.ParseID(postID)
	if err != nil {
		return 0, err
	}

	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return 0, err
	}

	removed, err := s.commentRepo.DeleteByPost(ctx, postID)
	if err != nil {
		log.Printf("[ModerationService] Comments of deleted post %s not removed: %v", postID, err)
		return 0, fmt.Errorf("delete comments of post: %w", err)
	}

	if s.publisher != nil {
		event := queue.NewPostDeletedEvent(postID, adminID, removed)
		if _, err := s.publisher.Publish(ctx, queue.StreamComments, event); err != nil {
			log.Printf("[ModerationService] Failed to publish PostDeleted event: post=%s err=%v", postID, err)
		}
	}

	log.Printf("[ModerationService] Admin %s deleted post %s (comments removed=%d)", adminID, postID, removed)
	return removed, nil
}

func cleanReport(req model.CreateReportRequest) (string, string, error) {
	reason := content.Clean(req.Reason)
	if reason == "" {
		return "", "", model.ErrReasonRequired
	}
	return reason, content.Clean(req.Description), nil
}

func newReport(reporterID, reason, description string) *model.Report {
	return &model.Report{
		ID:          model.NewID(),
		ReporterID:  reporterID,
		Reason:      reason,
		Description: description,
		Status:      model.ReportPending,
		CreatedAt:   timeNow(),
	}
}
