package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountRecord struct {
	ID                string
	Credits           int64
	IsVerified        bool
	IsBanned          bool
	DaysWithoutReport int
	TotalLikes        int
	TotalDislikes     int
	TotalComments     int
	CreatedAt         time.Time
}

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Ensure creates the account row on first contact. Existing rows are left
// untouched so repeated calls are safe on every request path.
func (r *AccountRepo) Ensure(ctx context.Context, accountID string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if accountID == "" {
		return fmt.Errorf("account id is required")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO accounts (id) VALUES ($1)
ON CONFLICT (id) DO NOTHING
`, accountID); err != nil {
		return fmt.Errorf("ensure account: %w", err)
	}
	return nil
}

func (r *AccountRepo) Get(ctx context.Context, accountID string) (AccountRecord, error) {
	if r.pool == nil {
		return AccountRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var rec AccountRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, credits, is_verified, is_banned, days_without_report, total_likes, total_dislikes, total_comments, created_at
FROM accounts
WHERE id = $1
`, accountID).Scan(
		&rec.ID,
		&rec.Credits,
		&rec.IsVerified,
		&rec.IsBanned,
		&rec.DaysWithoutReport,
		&rec.TotalLikes,
		&rec.TotalDislikes,
		&rec.TotalComments,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountRecord{}, ErrAccountNotFound
		}
		return AccountRecord{}, fmt.Errorf("get account: %w", err)
	}
	return rec, nil
}

func (r *AccountRepo) IsBanned(ctx context.Context, accountID string) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	var banned bool
	err := r.pool.QueryRow(ctx, `
SELECT is_banned FROM accounts WHERE id = $1
`, accountID).Scan(&banned)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrAccountNotFound
		}
		return false, fmt.Errorf("read ban flag: %w", err)
	}
	return banned, nil
}

func (r *AccountRepo) SetBanned(ctx context.Context, tx pgx.Tx, accountID string) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	tag, err := tx.Exec(ctx, `
UPDATE accounts SET is_banned = TRUE WHERE id = $1
`, accountID)
	if err != nil {
		return fmt.Errorf("set ban flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// ResetReportStreak zeroes the clean-days counter when a report against the
// account is upheld. The day of the report does not count as clean, so the
// advance marker moves to today as well.
func (r *AccountRepo) ResetReportStreak(ctx context.Context, tx pgx.Tx, accountID string) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
UPDATE accounts SET days_without_report = 0, streak_advanced_on = CURRENT_DATE WHERE id = $1
`, accountID); err != nil {
		return fmt.Errorf("reset report streak: %w", err)
	}
	return nil
}

// AddEngagement bumps one of the engagement counters for a like, dislike or
// comment the account's content received.
func (r *AccountRepo) AddEngagement(ctx context.Context, accountID, kind string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	var column string
	switch kind {
	case "like":
		column = "total_likes"
	case "dislike":
		column = "total_dislikes"
	case "comment":
		column = "total_comments"
	default:
		return fmt.Errorf("unknown engagement kind %q", kind)
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE accounts SET `+column+` = `+column+` + 1 WHERE id = $1
`, accountID)
	if err != nil {
		return fmt.Errorf("bump engagement counter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// AdvanceCleanStreaks adds one clean day to every unbanned account that has
// not been advanced today. Repeats within the same day match no rows, so the
// caller's schedule only has to fire at least daily.
func (r *AccountRepo) AdvanceCleanStreaks(ctx context.Context) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE accounts
SET days_without_report = days_without_report + 1,
    streak_advanced_on = CURRENT_DATE
WHERE is_banned = FALSE AND streak_advanced_on < CURRENT_DATE
`)
	if err != nil {
		return 0, fmt.Errorf("advance clean streaks: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SetVerified flips the badge on. Returns false without error when the
// account was already verified so the caller can skip the bonus.
func (r *AccountRepo) SetVerified(ctx context.Context, accountID string) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE accounts SET is_verified = TRUE WHERE id = $1 AND is_verified = FALSE
`, accountID)
	if err != nil {
		return false, fmt.Errorf("set verified flag: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
