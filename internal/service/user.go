package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"

	"talksphere/internal/content"
	"talksphere/internal/model"
	"talksphere/internal/repository"
)

// UserService manages the display profiles of upstream-issued identities.
type UserService struct {
	repo    repository.UserRepository
	authors *AuthorResolver
}

func NewUserService(repo repository.UserRepository, authors *AuthorResolver) *UserService {
	return &UserService{repo: repo, authors: authors}
}

// UpsertProfile creates or updates the caller's profile. Role and ban state
// are never changed here.
func (s *UserService) UpsertProfile(ctx context.Context, userID string, req model.UpsertUserRequest) (*model.User, error) {
	name := content.Clean(req.Name)
	if name == "" {
		return nil, model.ErrNameRequired
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return nil, fmt.Errorf("%w: invalid email", model.ErrInvalidProfile)
		}
	}

	user := &model.User{
		ID:         userID,
		Name:       name,
		Email:      req.Email,
		ProfilePic: trimmedOrNil(req.ProfilePic),
	}
	if err := s.repo.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	if s.authors != nil {
		s.authors.Invalidate(userID)
	}

	log.Printf("[UserService] Profile saved for user %s", userID)
	return user, nil
}

// GetByID returns a user's profile.
func (s *UserService) GetByID(ctx context.Context, userID string) (*model.User, error) {
	return s.repo.GetByID(ctx, userID)
}

// List returns every user with their role and ban state.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// RequireAdmin returns model.ErrNotAdmin unless the user holds the admin
// role. Unknown users are not admins.
func (s *UserService) RequireAdmin(ctx context.Context, userID string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.ErrNotAdmin
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if !user.IsAdmin() {
		return model.ErrNotAdmin
	}
	return nil
}

// SeedAdmins grants the admin role to each id, creating a bare profile for
// ids that have never been seen.
func (s *UserService) SeedAdmins(ctx context.Context, userIDs []string) error {
	for _, id := range userIDs {
		err := s.repo.SetRole(ctx, id, model.RoleAdmin)
		if errors.Is(err, model.ErrUserNotFound) {
			err = s.repo.Upsert(ctx, &model.User{ID: id, Name: id, Role: model.RoleAdmin})
		}
		if err != nil {
			return fmt.Errorf("seed admin %s: %w", id, err)
		}
		log.Printf("[UserService] Admin role granted to %s", id)
	}
	return nil
}
