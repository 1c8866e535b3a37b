package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("credit transaction not found")
)

// TransactionKind distinguishes ledger entries sharing a correlation id.
// A debit and its compensating refund carry the same correlation id with
// different kinds, which is what the unique index enforces.
type TransactionKind string

const (
	KindDebit  TransactionKind = "debit"
	KindCredit TransactionKind = "credit"
	KindRefund TransactionKind = "refund"
)

type TransactionRecord struct {
	ID            string
	AccountID     string
	Delta         int64
	Reason        string
	Kind          TransactionKind
	CorrelationID string
	CreatedAt     time.Time
}

// LedgerTx is the per-transaction surface the ledger service drives. It is
// satisfied by a pgx transaction wrapper here and by an in-memory fake in
// service tests.
type LedgerTx interface {
	// LockBalance reads the account balance under FOR UPDATE so concurrent
	// spends on the same account serialize.
	LockBalance(ctx context.Context, accountID string) (int64, error)
	FindTransaction(ctx context.Context, correlationID string, kind TransactionKind) (TransactionRecord, error)
	InsertTransaction(ctx context.Context, rec TransactionRecord) error
	// ApplyBalanceDelta adjusts the balance and returns the new value. The
	// accounts.credits CHECK constraint backstops against going negative.
	ApplyBalanceDelta(ctx context.Context, accountID string, delta int64) (int64, error)
}

type LedgerRepo struct {
	pool *pgxpool.Pool
}

func NewLedgerRepo(pool *pgxpool.Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

func (r *LedgerRepo) InTx(ctx context.Context, fn func(context.Context, LedgerTx) error) error {
	return WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		return fn(txCtx, &ledgerTx{tx: tx})
	})
}

func (r *LedgerRepo) Balance(ctx context.Context, accountID string) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var balance int64
	err := r.pool.QueryRow(ctx, `
SELECT credits FROM accounts WHERE id = $1
`, accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return balance, nil
}

// SumDeltas returns the sum of all ledger entries for the account. A healthy
// ledger keeps this equal to the stored balance.
func (r *LedgerRepo) SumDeltas(ctx context.Context, accountID string) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var sum int64
	err := r.pool.QueryRow(ctx, `
SELECT COALESCE(SUM(delta), 0) FROM credit_transactions WHERE account_id = $1
`, accountID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum ledger deltas: %w", err)
	}
	return sum, nil
}

func (r *LedgerRepo) ListByAccount(ctx context.Context, accountID string, limit int) ([]TransactionRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, account_id, delta, reason, kind, correlation_id, created_at
FROM credit_transactions
WHERE account_id = $1
ORDER BY created_at DESC
LIMIT $2
`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger transactions: %w", err)
	}
	defer rows.Close()

	var out []TransactionRecord
	for rows.Next() {
		var rec TransactionRecord
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.Delta, &rec.Reason, &rec.Kind, &rec.CorrelationID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger transaction: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger transactions: %w", err)
	}
	return out, nil
}

type ledgerTx struct {
	tx pgx.Tx
}

func (l *ledgerTx) LockBalance(ctx context.Context, accountID string) (int64, error) {
	var balance int64
	err := l.tx.QueryRow(ctx, `
SELECT credits FROM accounts WHERE id = $1 FOR UPDATE
`, accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, fmt.Errorf("lock account balance: %w", err)
	}
	return balance, nil
}

func (l *ledgerTx) FindTransaction(ctx context.Context, correlationID string, kind TransactionKind) (TransactionRecord, error) {
	var rec TransactionRecord
	err := l.tx.QueryRow(ctx, `
SELECT id, account_id, delta, reason, kind, correlation_id, created_at
FROM credit_transactions
WHERE correlation_id = $1 AND kind = $2
`, correlationID, string(kind)).Scan(&rec.ID, &rec.AccountID, &rec.Delta, &rec.Reason, &rec.Kind, &rec.CorrelationID, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TransactionRecord{}, ErrTransactionNotFound
		}
		return TransactionRecord{}, fmt.Errorf("find credit transaction: %w", err)
	}
	return rec, nil
}

func (l *ledgerTx) InsertTransaction(ctx context.Context, rec TransactionRecord) error {
	if _, err := l.tx.Exec(ctx, `
INSERT INTO credit_transactions (id, account_id, delta, reason, kind, correlation_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
`, rec.ID, rec.AccountID, rec.Delta, rec.Reason, string(rec.Kind), rec.CorrelationID); err != nil {
		return fmt.Errorf("insert credit transaction: %w", err)
	}
	return nil
}

func (l *ledgerTx) ApplyBalanceDelta(ctx context.Context, accountID string, delta int64) (int64, error) {
	var balance int64
	err := l.tx.QueryRow(ctx, `
UPDATE accounts
SET credits = credits + $2
WHERE id = $1
RETURNING credits
`, accountID, delta).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, fmt.Errorf("apply balance delta: %w", err)
	}
	return balance, nil
}
