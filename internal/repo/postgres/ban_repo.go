package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BanRecord struct {
	ID             string
	AccountID      string
	Reason         string
	SourceReportID string
	IssuedAt       time.Time
}

type BanRepo struct {
	pool *pgxpool.Pool
}

func NewBanRepo(pool *pgxpool.Pool) *BanRepo {
	return &BanRepo{pool: pool}
}

func (r *BanRepo) Create(ctx context.Context, tx pgx.Tx, rec BanRecord) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if rec.ID == "" || rec.AccountID == "" || rec.SourceReportID == "" {
		return fmt.Errorf("invalid ban payload")
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO ban_records (id, account_id, reason, source_report_id, issued_at)
VALUES ($1, $2, $3, $4, NOW())
`, rec.ID, rec.AccountID, rec.Reason, rec.SourceReportID); err != nil {
		return fmt.Errorf("create ban record: %w", err)
	}
	return nil
}

func (r *BanRepo) ListByAccount(ctx context.Context, accountID string) ([]BanRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, account_id, reason, source_report_id, issued_at
FROM ban_records
WHERE account_id = $1
ORDER BY issued_at DESC
`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list ban records: %w", err)
	}
	defer rows.Close()

	var out []BanRecord
	for rows.Next() {
		var rec BanRecord
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.Reason, &rec.SourceReportID, &rec.IssuedAt); err != nil {
			return nil, fmt.Errorf("scan ban record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ban records: %w", err)
	}
	return out, nil
}
