package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"talksphere/internal/content"
	"talksphere/internal/model"
	"talksphere/internal/repository"
)

type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	now      func() time.Time
}

func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository) *PostService {
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create creates a new post with a zero comment count. The author's name and
// avatar are copied onto the post.
func (s *PostService) Create(ctx context.Context, userID string, req model.CreatePostRequest) (*model.Post, error) {
	title := content.Clean(req.Title)
	body := content.Clean(req.Content)
	if title == "" {
		return nil, model.ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > model.MaxPostTitleLength {
		return nil, model.ErrTitleTooLong
	}
	if body == "" {
		return nil, model.ErrPostBodyRequired
	}
	if err := ensureCanWrite(ctx, s.userRepo, userID); err != nil {
		return nil, err
	}

	now := s.now()
	post := &model.Post{
		ID:        model.NewID(),
		UserID:    userID,
		Author:    model.UnknownAuthorName,
		Title:     title,
		Content:   body,
		Image:     trimmedOrNil(req.Image),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if author, err := s.userRepo.GetByID(ctx, userID); err == nil {
		post.Author = author.Name
		post.UserImage = author.ProfilePic
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	log.Printf("[PostService] User %s created post %s", userID, post.ID)
	return post, nil
}

// GetByID retrieves a single post.
func (s *PostService) GetByID(ctx context.Context, postID string) (*model.Post, error) {
	postID, err := model.ParseID(postID)
	if err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, postID)
}

// List returns all posts, newest first.
func (s *PostService) List(ctx context.Context) ([]model.Post, error) {
	posts, err := s.postRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
