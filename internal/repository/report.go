package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"talksphere/internal/model"
)

type reportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) ReportRepository {
	return &reportRepository{db: db}
}

const reportColumns = `id, post_id, comment_id, reporter_id, reason, description, status, created_at`

func (r *reportRepository) Create(ctx context.Context, report *model.Report) error {
	query := `
		INSERT INTO reports (id, post_id, comment_id, reporter_id, reason, description, status, created_at)
		VALUES (:id, :post_id, :comment_id, :reporter_id, :reason, :description, :status, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// List returns every report, newest first.
func (r *reportRepository) List(ctx context.Context) ([]model.Report, error) {
	reports := []model.Report{}
	err := r.db.SelectContext(ctx, &reports, `SELECT `+reportColumns+` FROM reports ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// Resolve marks a report as resolved.
func (r *reportRepository) Resolve(ctx context.Context, reportID string) (*model.Report, error) {
	var report model.Report
	err := r.db.GetContext(ctx, &report, `
		UPDATE reports SET status = $1 WHERE id = $2 RETURNING `+reportColumns,
		model.ReportResolved, reportID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve report: %w", err)
	}
	return &report, nil
}
