package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"talksphere/internal/model"
)

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, author, title, content, image, user_image, comment_count, created_at, updated_at`

// Create inserts a new post.
func (r *postRepository) Create(ctx context.Context, p *model.Post) error {
	query := `
		INSERT INTO posts (id, user_id, author, title, content, image, user_image, comment_count, created_at, updated_at)
		VALUES (:id, :user_id, :author, :title, :content, :image, :user_image, :comment_count, :created_at, :updated_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// GetByID retrieves a single post.
func (r *postRepository) GetByID(ctx context.Context, postID string) (*model.Post, error) {
	var post model.Post
	err := r.db.GetContext(ctx, &post, `SELECT `+postColumns+` FROM posts WHERE id = $1`, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &post, nil
}

// List returns all posts, newest first.
func (r *postRepository) List(ctx context.Context) ([]model.Post, error) {
	posts := []model.Post{}
	err := r.db.SelectContext(ctx, &posts, `SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// ListIDs returns every post id.
func (r *postRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM posts ORDER BY created_at ASC`); err != nil {
		return nil, fmt.Errorf("list post ids: %w", err)
	}
	return ids, nil
}

// Exists checks if a post exists.
func (r *postRepository) Exists(ctx context.Context, postID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, postID)
	if err != nil {
		return false, fmt.Errorf("check post exists: %w", err)
	}
	return exists, nil
}

// Delete removes a post row. Its comments are removed separately.
func (r *postRepository) Delete(ctx context.Context, postID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, postID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrPostNotFound
	}
	return nil
}

// AdjustCommentCount applies delta in a single UPDATE so concurrent writers
// never lose an increment.
func (r *postRepository) AdjustCommentCount(ctx context.Context, postID string, delta int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE posts SET comment_count = comment_count + $1, updated_at = NOW() WHERE id = $2
	`, delta, postID)
	if err != nil {
		return fmt.Errorf("adjust comment count: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrPostNotFound
	}
	return nil
}

// RecountComments recounts in the same statement that writes, so a comment
// insert or delete cannot slip in between the count and the write.
func (r *postRepository) RecountComments(ctx context.Context, postID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		UPDATE posts
		SET comment_count = (SELECT COUNT(*) FROM comments WHERE post_id = $1)
		WHERE id = $1
		RETURNING comment_count
	`, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.ErrPostNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("recount comments: %w", err)
	}
	return count, nil
}

// SetCommentCount overwrites the cached comment count.
func (r *postRepository) SetCommentCount(ctx context.Context, postID string, count int) error {
	result, err := r.db.ExecContext(ctx, `UPDATE posts SET comment_count = $1 WHERE id = $2`, count, postID)
	if err != nil {
		return fmt.Errorf("set comment count: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrPostNotFound
	}
	return nil
}
