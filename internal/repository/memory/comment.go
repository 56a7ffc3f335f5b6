// Package memory holds in-process implementations of the repository
// interfaces. They back the "memory" storage driver and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"talksphere/internal/model"
	"talksphere/internal/repository"
)

// CommentStore keeps comments in a keyed map with two secondary indexes:
// children by parent id and all comments by post id.
type CommentStore struct {
	mu       sync.RWMutex
	comments map[string]*model.Comment
	byParent map[string][]string
	byPost   map[string][]string
}

var _ repository.CommentRepository = (*CommentStore)(nil)

// NewCommentStore creates an empty comment store.
func NewCommentStore() *CommentStore {
	return &CommentStore{
		comments: make(map[string]*model.Comment),
		byParent: make(map[string][]string),
		byPost:   make(map[string][]string),
	}
}

func (s *CommentStore) Create(ctx context.Context, c *model.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := c.Clone()
	s.comments[stored.ID] = &stored
	s.byPost[stored.PostID] = append(s.byPost[stored.PostID], stored.ID)
	if stored.ParentID != nil {
		s.byParent[*stored.ParentID] = append(s.byParent[*stored.ParentID], stored.ID)
	}
	return nil
}

func (s *CommentStore) GetByID(ctx context.Context, commentID string) (*model.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[commentID]
	if !ok {
		return nil, model.ErrCommentNotFound
	}
	out := c.Clone()
	return &out, nil
}

func (s *CommentStore) ListByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byPost[postID]
	out := make([]model.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.comments[id]; ok {
			out = append(out, c.Clone())
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *CommentStore) ListChildIDs(ctx context.Context, parentID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	children := make([]model.Comment, 0, len(s.byParent[parentID]))
	for _, id := range s.byParent[parentID] {
		if c, ok := s.comments[id]; ok {
			children = append(children, *c)
		}
	}
	sortByCreation(children)

	ids := make([]string, len(children))
	for i, c := range children {
		ids[i] = c.ID
	}
	return ids, nil
}

func (s *CommentStore) Delete(ctx context.Context, commentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return false, nil
	}
	s.removeLocked(c)
	return true, nil
}

func (s *CommentStore) DeleteByPost(ctx context.Context, postID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, id := range append([]string{}, s.byPost[postID]...) {
		if c, ok := s.comments[id]; ok {
			s.removeLocked(c)
			removed++
		}
	}
	delete(s.byPost, postID)
	return removed, nil
}

func (s *CommentStore) UpdateContent(ctx context.Context, commentID, content string, updatedAt time.Time) (*model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return nil, model.ErrCommentNotFound
	}
	c.Content = content
	c.UpdatedAt = updatedAt
	out := c.Clone()
	return &out, nil
}

func (s *CommentStore) UpdateVotes(ctx context.Context, commentID string, mutate func(c *model.Comment)) (*model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return nil, model.ErrCommentNotFound
	}
	working := c.Clone()
	mutate(&working)

	c.LikedBy = append([]string{}, working.LikedBy...)
	c.DislikedBy = append([]string{}, working.DislikedBy...)
	c.Likes = working.Likes
	c.Dislikes = working.Dislikes
	return &working, nil
}

func (s *CommentStore) CountByPost(ctx context.Context, postID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, id := range s.byPost[postID] {
		if _, ok := s.comments[id]; ok {
			count++
		}
	}
	return count, nil
}

// removeLocked drops c from the map and both indexes. Callers hold s.mu.
func (s *CommentStore) removeLocked(c *model.Comment) {
	delete(s.comments, c.ID)
	s.byPost[c.PostID] = without(s.byPost[c.PostID], c.ID)
	if c.ParentID != nil {
		s.byParent[*c.ParentID] = without(s.byParent[*c.ParentID], c.ID)
		if len(s.byParent[*c.ParentID]) == 0 {
			delete(s.byParent, *c.ParentID)
		}
	}
}

func without(ids []string, target string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// sortByCreation orders oldest first. Equal timestamps keep insertion order.
func sortByCreation(comments []model.Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
}
