package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrConfessionNotFound = errors.New("confession not found")

type ConfessionRecord struct {
	ID        string
	AccountID string
	Content   string
	Category  string
	CreatedAt time.Time
}

type ConfessionRepo struct {
	pool *pgxpool.Pool
}

func NewConfessionRepo(pool *pgxpool.Pool) *ConfessionRepo {
	return &ConfessionRepo{pool: pool}
}

func (r *ConfessionRepo) Create(ctx context.Context, rec ConfessionRecord) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if rec.ID == "" || rec.AccountID == "" || rec.Content == "" {
		return fmt.Errorf("invalid confession payload")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO confessions (id, account_id, content, category, created_at)
VALUES ($1, $2, $3, $4, NOW())
`, rec.ID, rec.AccountID, rec.Content, rec.Category); err != nil {
		return fmt.Errorf("create confession: %w", err)
	}
	return nil
}

func (r *ConfessionRepo) Get(ctx context.Context, confessionID string) (ConfessionRecord, error) {
	if r.pool == nil {
		return ConfessionRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var rec ConfessionRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, account_id, content, category, created_at
FROM confessions
WHERE id = $1
`, confessionID).Scan(&rec.ID, &rec.AccountID, &rec.Content, &rec.Category, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ConfessionRecord{}, ErrConfessionNotFound
		}
		return ConfessionRecord{}, fmt.Errorf("get confession: %w", err)
	}
	return rec, nil
}

func (r *ConfessionRepo) ListRecent(ctx context.Context, limit int) ([]ConfessionRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, account_id, content, category, created_at
FROM confessions
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list confessions: %w", err)
	}
	defer rows.Close()

	var out []ConfessionRecord
	for rows.Next() {
		var rec ConfessionRecord
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.Content, &rec.Category, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan confession: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate confessions: %w", err)
	}
	return out, nil
}
