package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"talksphere/internal/model"
)

type announcementRepository struct {
	db *sqlx.DB
}

func NewAnnouncementRepository(db *sqlx.DB) AnnouncementRepository {
	return &announcementRepository{db: db}
}

func (r *announcementRepository) Create(ctx context.Context, a *model.Announcement) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO announcements (id, user_id, title, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, a.ID, a.UserID, a.Title, a.Content, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert announcement: %w", err)
	}
	return nil
}

func (r *announcementRepository) List(ctx context.Context) ([]model.Announcement, error) {
	items := []model.Announcement{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT id, user_id, title, content, created_at FROM announcements ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	return items, nil
}

func (r *announcementRepository) GetByID(ctx context.Context, id string) (*model.Announcement, error) {
	var a model.Announcement
	err := r.db.GetContext(ctx, &a, `
		SELECT id, user_id, title, content, created_at FROM announcements WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrAnnouncementNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get announcement: %w", err)
	}
	return &a, nil
}

func (r *announcementRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrAnnouncementNotFound
	}
	return nil
}
