package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"talksphere/internal/model"
)

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db}
}

// commentRow mirrors the comments table. Vote sets are TEXT[] columns.
type commentRow struct {
	ID         string         `db:"id"`
	PostID     string         `db:"post_id"`
	ParentID   *string        `db:"parent_id"`
	AuthorID   string         `db:"author_id"`
	Content    string         `db:"content"`
	LikedBy    pq.StringArray `db:"liked_by"`
	DislikedBy pq.StringArray `db:"disliked_by"`
	Likes      int            `db:"likes"`
	Dislikes   int            `db:"dislikes"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (r commentRow) toModel() model.Comment {
	return model.Comment{
		ID:         r.ID,
		PostID:     r.PostID,
		ParentID:   r.ParentID,
		AuthorID:   r.AuthorID,
		Content:    r.Content,
		LikedBy:    append([]string{}, r.LikedBy...),
		DislikedBy: append([]string{}, r.DislikedBy...),
		Likes:      r.Likes,
		Dislikes:   r.Dislikes,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

const commentColumns = `id, post_id, parent_id, author_id, content, liked_by, disliked_by,
	likes, dislikes, created_at, updated_at`

// Create inserts a new comment with the id and timestamps chosen by the caller.
func (r *commentRepository) Create(ctx context.Context, c *model.Comment) error {
	query := `
		INSERT INTO comments (id, post_id, parent_id, author_id, content, liked_by, disliked_by,
		                      likes, dislikes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.PostID, c.ParentID, c.AuthorID, c.Content,
		pq.Array(c.LikedBy), pq.Array(c.DislikedBy),
		c.Likes, c.Dislikes, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// GetByID retrieves a single comment.
func (r *commentRepository) GetByID(ctx context.Context, commentID string) (*model.Comment, error) {
	var row commentRow
	err := r.db.GetContext(ctx, &row, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, commentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	c := row.toModel()
	return &c, nil
}

// ListByPost returns all comments of a post in creation order.
func (r *commentRepository) ListByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	var rows []commentRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+commentColumns+`
		FROM comments
		WHERE post_id = $1
		ORDER BY created_at ASC, id ASC
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	comments := make([]model.Comment, len(rows))
	for i, row := range rows {
		comments[i] = row.toModel()
	}
	return comments, nil
}

// ListChildIDs returns the ids of direct replies.
func (r *commentRepository) ListChildIDs(ctx context.Context, parentID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `
		SELECT id FROM comments WHERE parent_id = $1 ORDER BY created_at ASC, id ASC
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list child comments: %w", err)
	}
	return ids, nil
}

// Delete removes a single comment row.
func (r *commentRepository) Delete(ctx context.Context, commentID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, commentID)
	if err != nil {
		return false, fmt.Errorf("delete comment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rows > 0, nil
}

// DeleteByPost removes all comments of a post in one statement.
func (r *commentRepository) DeleteByPost(ctx context.Context, postID string) (int, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE post_id = $1`, postID)
	if err != nil {
		return 0, fmt.Errorf("delete post comments: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return int(rows), nil
}

// UpdateContent replaces the comment body.
func (r *commentRepository) UpdateContent(ctx context.Context, commentID, content string, updatedAt time.Time) (*model.Comment, error) {
	var row commentRow
	err := r.db.GetContext(ctx, &row, `
		UPDATE comments
		SET content = $1, updated_at = $2
		WHERE id = $3
		RETURNING `+commentColumns, content, updatedAt, commentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	c := row.toModel()
	return &c, nil
}

// UpdateVotes locks the row, applies mutate and writes the vote columns back
// in one transaction.
func (r *commentRepository) UpdateVotes(ctx context.Context, commentID string, mutate func(c *model.Comment)) (*model.Comment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var row commentRow
	err = tx.GetContext(ctx, &row, `SELECT `+commentColumns+` FROM comments WHERE id = $1 FOR UPDATE`, commentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock comment: %w", err)
	}

	c := row.toModel()
	mutate(&c)

	_, err = tx.ExecContext(ctx, `
		UPDATE comments
		SET liked_by = $1, disliked_by = $2, likes = $3, dislikes = $4
		WHERE id = $5
	`, pq.Array(c.LikedBy), pq.Array(c.DislikedBy), c.Likes, c.Dislikes, commentID)
	if err != nil {
		return nil, fmt.Errorf("update votes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &c, nil
}

// CountByPost counts the live comments of a post.
func (r *commentRepository) CountByPost(ctx context.Context, postID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM comments WHERE post_id = $1`, postID); err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return count, nil
}
