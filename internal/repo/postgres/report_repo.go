package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrReportNotFound = errors.New("report not found")

type ReportRecord struct {
	ID          string
	ReporterID  string
	TargetType  string
	TargetID    string
	// ReportedAccountID names the account behind the reported content. For
	// user targets it equals TargetID.
	ReportedAccountID *string
	Reason            string
	Description       string
	Status            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type ReportRepo struct {
	pool *pgxpool.Pool
}

func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

func (r *ReportRepo) Create(ctx context.Context, rec ReportRecord) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if rec.ID == "" || rec.ReporterID == "" || rec.TargetID == "" || rec.Reason == "" {
		return fmt.Errorf("invalid report payload")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO reports (id, reporter_id, target_type, target_id, reported_account_id, reason, description, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', NOW(), NOW())
`, rec.ID, rec.ReporterID, rec.TargetType, rec.TargetID, rec.ReportedAccountID, rec.Reason, rec.Description); err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

func (r *ReportRepo) GetByID(ctx context.Context, reportID string) (ReportRecord, error) {
	if r.pool == nil {
		return ReportRecord{}, fmt.Errorf("postgres pool is nil")
	}

	rec, err := scanReport(r.pool.QueryRow(ctx, `
SELECT id, reporter_id, target_type, target_id, reported_account_id, reason, description, status, created_at, updated_at
FROM reports
WHERE id = $1
`, reportID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReportRecord{}, ErrReportNotFound
		}
		return ReportRecord{}, fmt.Errorf("get report: %w", err)
	}
	return rec, nil
}

func (r *ReportRepo) ListPending(ctx context.Context, limit int) ([]ReportRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, reporter_id, target_type, target_id, reported_account_id, reason, description, status, created_at, updated_at
FROM reports
WHERE status = 'pending'
ORDER BY created_at ASC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending reports: %w", err)
	}
	defer rows.Close()

	var out []ReportRecord
	for rows.Next() {
		rec, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return out, nil
}

// MarkResolved flips a pending report to its terminal status. The pending
// guard makes resolution one-shot: a second resolver sees resolved=false.
func (r *ReportRepo) MarkResolved(ctx context.Context, tx pgx.Tx, reportID, status string) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	tag, err := tx.Exec(ctx, `
UPDATE reports
SET status = $2, updated_at = NOW()
WHERE id = $1 AND status = 'pending'
`, reportID, status)
	if err != nil {
		return false, fmt.Errorf("mark report resolved: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanReport(row pgx.Row) (ReportRecord, error) {
	var rec ReportRecord
	if err := row.Scan(
		&rec.ID,
		&rec.ReporterID,
		&rec.TargetType,
		&rec.TargetID,
		&rec.ReportedAccountID,
		&rec.Reason,
		&rec.Description,
		&rec.Status,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return ReportRecord{}, err
	}
	return rec, nil
}
