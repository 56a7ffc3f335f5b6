package memory

import (
	"context"
	"sort"
	"sync"

	"talksphere/internal/model"
	"talksphere/internal/repository"
)

// ReportStore is an in-memory ReportRepository.
type ReportStore struct {
	mu      sync.RWMutex
	reports map[string]*model.Report
}

var _ repository.ReportRepository = (*ReportStore)(nil)

func NewReportStore() *ReportStore {
	return &ReportStore{reports: make(map[string]*model.Report)}
}

func (s *ReportStore) Create(ctx context.Context, r *model.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *r
	s.reports[r.ID] = &stored
	return nil
}

func (s *ReportStore) List(ctx context.Context) ([]model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Report, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *ReportStore) Resolve(ctx context.Context, reportID string) (*model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[reportID]
	if !ok {
		return nil, model.ErrReportNotFound
	}
	r.Status = model.ReportResolved
	out := *r
	return &out, nil
}

// AnnouncementStore is an in-memory AnnouncementRepository.
type AnnouncementStore struct {
	mu    sync.RWMutex
	items map[string]*model.Announcement
}

var _ repository.AnnouncementRepository = (*AnnouncementStore)(nil)

func NewAnnouncementStore() *AnnouncementStore {
	return &AnnouncementStore{items: make(map[string]*model.Announcement)}
}

func (s *AnnouncementStore) Create(ctx context.Context, a *model.Announcement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *a
	s.items[a.ID] = &stored
	return nil
}

func (s *AnnouncementStore) List(ctx context.Context) ([]model.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Announcement, 0, len(s.items))
	for _, a := range s.items {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *AnnouncementStore) GetByID(ctx context.Context, id string) (*model.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.items[id]
	if !ok {
		return nil, model.ErrAnnouncementNotFound
	}
	out := *a
	return &out, nil
}

func (s *AnnouncementStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return model.ErrAnnouncementNotFound
	}
	delete(s.items, id)
	return nil
}
