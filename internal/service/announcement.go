package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"talksphere/internal/content"
	"talksphere/internal/model"
	"talksphere/internal/repository"
)

type AnnouncementService struct {
	repo    repository.AnnouncementRepository
	authors *AuthorResolver
}

func NewAnnouncementService(repo repository.AnnouncementRepository, authors *AuthorResolver) *AnnouncementService {
	return &AnnouncementService{repo: repo, authors: authors}
}

// Create publishes an announcement. The handler has already checked that
// adminID holds the admin role.
func (s *AnnouncementService) Create(ctx context.Context, adminID string, req model.CreateAnnouncementRequest) (*model.Announcement, error) {
	title := content.Clean(req.Title)
	body := content.Clean(req.Content)
	if title == "" || body == "" {
		return nil, model.ErrAnnouncementInvalid
	}

	a := &model.Announcement{
		ID:        model.NewID(),
		UserID:    adminID,
		Title:     title,
		Content:   body,
		CreatedAt: timeNow(),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create announcement: %w", err)
	}
	a.Author = s.authors.Resolve(ctx, []string{adminID})[adminID]

	log.Printf("[AnnouncementService] Admin %s created announcement %s", adminID, a.ID)
	return a, nil
}

// List returns announcements newest first with their authors resolved.
func (s *AnnouncementService) List(ctx context.Context) ([]model.Announcement, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}

	ids := make([]string, 0, len(items))
	for _, a := range items {
		ids = append(ids, a.UserID)
	}
	authors := s.authors.Resolve(ctx, ids)
	for i := range items {
		items[i].Author = authors[items[i].UserID]
	}
	return items, nil
}

// Delete removes an announcement.
func (s *AnnouncementService) Delete(ctx context.Context, id, adminID string) error {
	id, err := model.ParseID(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("[AnnouncementService] Admin %s deleted announcement %s", adminID, id)
	return nil
}

func timeNow() time.Time {
	return time.Now().UTC()
}
