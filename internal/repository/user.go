package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"talksphere/internal/model"
)

// userRepository implements UserRepository using sqlx
type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// Upsert inserts the user or refreshes their display fields. Role and ban
// state are never overwritten from a profile update.
func (r *userRepository) Upsert(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (id, name, email, profile_pic, role, is_banned, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, NOW())
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, email = EXCLUDED.email, profile_pic = EXCLUDED.profile_pic
		RETURNING role, is_banned, created_at
	`
	role := u.Role
	if role == "" {
		role = model.RoleUser
	}

	row := r.db.QueryRowxContext(ctx, query, u.ID, u.Name, u.Email, u.ProfilePic, role)
	if err := row.Scan(&u.Role, &u.IsBanned, &u.CreatedAt); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, userID string) (*model.User, error) {
	query := `
		SELECT id, name, email, profile_pic, role, is_banned, created_at
		FROM users
		WHERE id = $1
	`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &u, nil
}

// List returns all users for the admin dashboard, newest first.
func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	query := `
		SELECT id, name, email, profile_pic, role, is_banned, created_at
		FROM users
		ORDER BY created_at DESC, id
	`

	users := []model.User{}
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// GetSummaries fetches display identities for a batch of ids in one query.
func (r *userRepository) GetSummaries(ctx context.Context, userIDs []string) (map[string]model.UserSummary, error) {
	result := make(map[string]model.UserSummary, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		ID         string  `db:"id"`
		Name       string  `db:"name"`
		ProfilePic *string `db:"profile_pic"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, name, profile_pic FROM users WHERE id = ANY($1)
	`, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to get user summaries: %w", err)
	}

	for _, row := range rows {
		s := model.UserSummary{ID: row.ID, Name: row.Name}
		if row.ProfilePic != nil {
			s.ProfilePic = *row.ProfilePic
		}
		result[row.ID] = s
	}
	return result, nil
}

// SetBanned flips the ban flag.
func (r *userRepository) SetBanned(ctx context.Context, userID string, banned bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET is_banned = $1 WHERE id = $2`, banned, userID)
	if err != nil {
		return fmt.Errorf("failed to set banned: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) SetRole(ctx context.Context, userID, role string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET role = $1 WHERE id = $2`, role, userID)
	if err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrUserNotFound
	}
	return nil
}
