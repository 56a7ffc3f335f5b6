package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"talksphere/internal/model"
	"talksphere/internal/repository"
)

// UserStore is an in-memory UserRepository.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*model.User
}

var _ repository.UserRepository = (*UserStore)(nil)

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*model.User)}
}

// Upsert keeps the stored role and ban flag of an existing user.
func (s *UserStore) Upsert(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.users[u.ID]; ok {
		existing.Name = u.Name
		existing.Email = u.Email
		existing.ProfilePic = u.ProfilePic
		*u = *existing
		return nil
	}

	stored := *u
	if stored.Role == "" {
		stored.Role = model.RoleUser
	}
	stored.IsBanned = false
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.users[u.ID] = &stored
	*u = stored
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, userID string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (s *UserStore) List(ctx context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *UserStore) GetSummaries(ctx context.Context, userIDs []string) (map[string]model.UserSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]model.UserSummary, len(userIDs))
	for _, id := range userIDs {
		u, ok := s.users[id]
		if !ok {
			continue
		}
		summary := model.UserSummary{ID: u.ID, Name: u.Name}
		if u.ProfilePic != nil {
			summary.ProfilePic = *u.ProfilePic
		}
		out[id] = summary
	}
	return out, nil
}

func (s *UserStore) SetBanned(ctx context.Context, userID string, banned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	u.IsBanned = banned
	return nil
}

func (s *UserStore) SetRole(ctx context.Context, userID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	u.Role = role
	return nil
}
