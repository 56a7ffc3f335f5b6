package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"talksphere/internal/model"
	"talksphere/internal/repository"
)

// PostStore is an in-memory PostRepository. Recounts read the comment store
// it was built with.
type PostStore struct {
	mu       sync.RWMutex
	posts    map[string]*model.Post
	comments *CommentStore
}

var _ repository.PostRepository = (*PostStore)(nil)

func NewPostStore(comments *CommentStore) *PostStore {
	return &PostStore{posts: make(map[string]*model.Post), comments: comments}
}

func (s *PostStore) Create(ctx context.Context, p *model.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *p
	s.posts[p.ID] = &stored
	return nil
}

func (s *PostStore) GetByID(ctx context.Context, postID string) (*model.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[postID]
	if !ok {
		return nil, model.ErrPostNotFound
	}
	out := *p
	return &out, nil
}

func (s *PostStore) List(ctx context.Context) ([]model.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Post, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *PostStore) ListIDs(ctx context.Context) ([]string, error) {
	posts, _ := s.List(ctx)
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids, nil
}

func (s *PostStore) Exists(ctx context.Context, postID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.posts[postID]
	return ok, nil
}

func (s *PostStore) Delete(ctx context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return model.ErrPostNotFound
	}
	delete(s.posts, postID)
	return nil
}

func (s *PostStore) AdjustCommentCount(ctx context.Context, postID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return model.ErrPostNotFound
	}
	p.CommentCount += delta
	return nil
}

// RecountComments counts while holding the post lock, so no counter
// adjustment interleaves with the recount.
func (s *PostStore) RecountComments(ctx context.Context, postID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return 0, model.ErrPostNotFound
	}
	if s.comments == nil {
		return 0, errors.New("post store has no comment store to count")
	}
	count, err := s.comments.CountByPost(ctx, postID)
	if err != nil {
		return 0, err
	}
	p.CommentCount = count
	return count, nil
}

func (s *PostStore) SetCommentCount(ctx context.Context, postID string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return model.ErrPostNotFound
	}
	p.CommentCount = count
	return nil
}
