package service

import (
	"context"
	"sync"

	"talksphere/internal/model"
	"talksphere/internal/queue"
	"talksphere/internal/repository"
)

// =============================================================================
// MOCK REPOSITORIES
// =============================================================================
//
// Each mock wraps a real store and lets a test override single methods with a
// function field. Methods without an override fall through to the wrapped
// store, so tests only describe the failure they care about.

type mockCommentRepository struct {
	repository.CommentRepository

	getByIDFn      func(ctx context.Context, id string) (*model.Comment, error)
	listChildIDsFn func(ctx context.Context, parentID string) ([]string, error)
	deleteFn       func(ctx context.Context, id string) (bool, error)
	deleteByPostFn func(ctx context.Context, postID string) (int, error)

	deleteCalls []string
}

func (m *mockCommentRepository) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return m.CommentRepository.GetByID(ctx, id)
}

func (m *mockCommentRepository) ListChildIDs(ctx context.Context, parentID string) ([]string, error) {
	if m.listChildIDsFn != nil {
		return m.listChildIDsFn(ctx, parentID)
	}
	return m.CommentRepository.ListChildIDs(ctx, parentID)
}

func (m *mockCommentRepository) Delete(ctx context.Context, id string) (bool, error) {
	m.deleteCalls = append(m.deleteCalls, id)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return m.CommentRepository.Delete(ctx, id)
}

func (m *mockCommentRepository) DeleteByPost(ctx context.Context, postID string) (int, error) {
	if m.deleteByPostFn != nil {
		return m.deleteByPostFn(ctx, postID)
	}
	return m.CommentRepository.DeleteByPost(ctx, postID)
}

type mockPostRepository struct {
	repository.PostRepository

	adjustFn func(ctx context.Context, postID string, delta int) error
	existsFn func(ctx context.Context, postID string) (bool, error)

	adjustCalls  []int
	recountCalls []string
	setCalls     []int
}

func (m *mockPostRepository) RecountComments(ctx context.Context, postID string) (int, error) {
	m.recountCalls = append(m.recountCalls, postID)
	return m.PostRepository.RecountComments(ctx, postID)
}

func (m *mockPostRepository) SetCommentCount(ctx context.Context, postID string, count int) error {
	m.setCalls = append(m.setCalls, count)
	return m.PostRepository.SetCommentCount(ctx, postID, count)
}

func (m *mockPostRepository) Exists(ctx context.Context, postID string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, postID)
	}
	return m.PostRepository.Exists(ctx, postID)
}

func (m *mockPostRepository) AdjustCommentCount(ctx context.Context, postID string, delta int) error {
	m.adjustCalls = append(m.adjustCalls, delta)
	if m.adjustFn != nil {
		return m.adjustFn(ctx, postID, delta)
	}
	return m.PostRepository.AdjustCommentCount(ctx, postID, delta)
}

type mockUserRepository struct {
	repository.UserRepository

	getByIDFn      func(ctx context.Context, id string) (*model.User, error)
	getSummariesFn func(ctx context.Context, ids []string) (map[string]model.UserSummary, error)

	getSummariesCalls [][]string
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	if m.UserRepository == nil {
		return nil, model.ErrUserNotFound
	}
	return m.UserRepository.GetByID(ctx, id)
}

func (m *mockUserRepository) GetSummaries(ctx context.Context, ids []string) (map[string]model.UserSummary, error) {
	m.getSummariesCalls = append(m.getSummariesCalls, append([]string(nil), ids...))
	if m.getSummariesFn != nil {
		return m.getSummariesFn(ctx, ids)
	}
	if m.UserRepository == nil {
		return map[string]model.UserSummary{}, nil
	}
	return m.UserRepository.GetSummaries(ctx, ids)
}

// mockPublisher records published events.
type mockPublisher struct {
	mu     sync.Mutex
	events []queue.CommentEvent
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, stream string, event queue.CommentEvent) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.events = append(m.events, event)
	return "1-0", nil
}

func (m *mockPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

func strPtr(s string) *string { return &s }
