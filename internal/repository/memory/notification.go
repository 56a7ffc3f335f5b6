package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"talksphere/internal/model"
	"talksphere/internal/repository"
)

// NotificationStore is an in-memory NotificationRepository.
type NotificationStore struct {
	mu     sync.RWMutex
	byUser map[string][]*model.Notification
}

var _ repository.NotificationRepository = (*NotificationStore)(nil)

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{byUser: make(map[string][]*model.Notification)}
}

func (s *NotificationStore) Create(ctx context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *n
	stored.IsRead = false
	s.byUser[n.UserID] = append(s.byUser[n.UserID], &stored)
	return nil
}

func (s *NotificationStore) ListByUser(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Notification, 0, len(s.byUser[userID]))
	for _, n := range s.byUser[userID] {
		out = append(out, *n)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *NotificationStore) MarkAsRead(ctx context.Context, userID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for _, n := range s.byUser[userID] {
		if _, ok := want[n.ID]; ok {
			n.IsRead = true
		}
	}
	return nil
}

func (s *NotificationStore) MarkAllAsRead(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.byUser[userID] {
		n.IsRead = true
	}
	return nil
}

func (s *NotificationStore) UnreadCount(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.byUser[userID] {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}

// DeviceTokenStore is an in-memory DeviceTokenRepository keyed by token.
type DeviceTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]*model.DeviceToken
}

var _ repository.DeviceTokenRepository = (*DeviceTokenStore)(nil)

func NewDeviceTokenStore() *DeviceTokenStore {
	return &DeviceTokenStore{tokens: make(map[string]*model.DeviceToken)}
}

func (s *DeviceTokenStore) Upsert(ctx context.Context, userID, token, platform string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.tokens[token]; ok {
		existing.UserID = userID
		existing.Platform = platform
		existing.UpdatedAt = now
		return nil
	}
	s.tokens[token] = &model.DeviceToken{
		UserID:    userID,
		Token:     token,
		Platform:  platform,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (s *DeviceTokenStore) GetByUserID(ctx context.Context, userID string) ([]model.DeviceToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.DeviceToken
	for _, t := range s.tokens {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *DeviceTokenStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, token)
	return nil
}
