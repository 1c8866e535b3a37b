// Package ledger owns the credit balances. Every balance change is an
// append-only credit_transactions row keyed by a caller-supplied correlation
// id, so retried commands never move credits twice.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zwakele57/chat-v2/internal/domain/enums"
	"github.com/zwakele57/chat-v2/internal/events"
	"github.com/zwakele57/chat-v2/internal/metrics"
	pgrepo "github.com/zwakele57/chat-v2/internal/repo/postgres"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrAccountNotFound     = errors.New("account not found")
)

type Store interface {
	InTx(ctx context.Context, fn func(context.Context, pgrepo.LedgerTx) error) error
	Balance(ctx context.Context, accountID string) (int64, error)
	SumDeltas(ctx context.Context, accountID string) (int64, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]pgrepo.TransactionRecord, error)
}

type Publisher interface {
	Publish(event events.Event)
}

type Service struct {
	store Store
	bus   Publisher
	now   func() time.Time
}

type Dependencies struct {
	Store Store
	Bus   Publisher
}

func NewService(deps Dependencies) *Service {
	return &Service{
		store: deps.Store,
		bus:   deps.Bus,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type MoveResult struct {
	TxID       string
	AccountID  string
	Amount     int64
	NewBalance int64
	// Idempotent is true when the correlation id was already processed and
	// no new ledger entry was written.
	Idempotent bool
}

// Debit removes credits from the account. The balance is locked, re-checked,
// and the entry inserted in one transaction; a correlation id that already
// has a debit short-circuits without touching the balance.
func (s *Service) Debit(ctx context.Context, accountID string, amount int64, reason enums.CreditReason, correlationID string) (MoveResult, error) {
	if err := validateMove(accountID, amount, reason, correlationID); err != nil {
		return MoveResult{}, err
	}
	if s.store == nil {
		return MoveResult{}, fmt.Errorf("ledger store is not configured")
	}

	var out MoveResult
	err := s.store.InTx(ctx, func(txCtx context.Context, tx pgrepo.LedgerTx) error {
		balance, err := tx.LockBalance(txCtx, accountID)
		if err != nil {
			return mapStoreErr(err)
		}

		existing, err := tx.FindTransaction(txCtx, correlationID, pgrepo.KindDebit)
		if err == nil {
			out = MoveResult{
				TxID:       existing.ID,
				AccountID:  existing.AccountID,
				Amount:     -existing.Delta,
				NewBalance: balance,
				Idempotent: true,
			}
			return nil
		}
		if !errors.Is(err, pgrepo.ErrTransactionNotFound) {
			return err
		}

		if balance < amount {
			return ErrInsufficientCredits
		}

		txID := uuid.NewString()
		if err := tx.InsertTransaction(txCtx, pgrepo.TransactionRecord{
			ID:            txID,
			AccountID:     accountID,
			Delta:         -amount,
			Reason:        string(reason),
			Kind:          pgrepo.KindDebit,
			CorrelationID: correlationID,
		}); err != nil {
			return err
		}

		newBalance, err := tx.ApplyBalanceDelta(txCtx, accountID, -amount)
		if err != nil {
			return mapStoreErr(err)
		}

		out = MoveResult{TxID: txID, AccountID: accountID, Amount: amount, NewBalance: newBalance}
		return nil
	})
	if err != nil {
		return MoveResult{}, err
	}

	if !out.Idempotent {
		s.recordMove(out, -out.Amount, reason)
	}
	return out, nil
}

// Credit adds credits to the account, idempotent on the correlation id.
func (s *Service) Credit(ctx context.Context, accountID string, amount int64, reason enums.CreditReason, correlationID string) (MoveResult, error) {
	if err := validateMove(accountID, amount, reason, correlationID); err != nil {
		return MoveResult{}, err
	}
	if s.store == nil {
		return MoveResult{}, fmt.Errorf("ledger store is not configured")
	}

	var out MoveResult
	err := s.store.InTx(ctx, func(txCtx context.Context, tx pgrepo.LedgerTx) error {
		balance, err := tx.LockBalance(txCtx, accountID)
		if err != nil {
			return mapStoreErr(err)
		}

		existing, err := tx.FindTransaction(txCtx, correlationID, pgrepo.KindCredit)
		if err == nil {
			out = MoveResult{
				TxID:       existing.ID,
				AccountID:  existing.AccountID,
				Amount:     existing.Delta,
				NewBalance: balance,
				Idempotent: true,
			}
			return nil
		}
		if !errors.Is(err, pgrepo.ErrTransactionNotFound) {
			return err
		}

		txID := uuid.NewString()
		if err := tx.InsertTransaction(txCtx, pgrepo.TransactionRecord{
			ID:            txID,
			AccountID:     accountID,
			Delta:         amount,
			Reason:        string(reason),
			Kind:          pgrepo.KindCredit,
			CorrelationID: correlationID,
		}); err != nil {
			return err
		}

		newBalance, err := tx.ApplyBalanceDelta(txCtx, accountID, amount)
		if err != nil {
			return mapStoreErr(err)
		}

		out = MoveResult{TxID: txID, AccountID: accountID, Amount: amount, NewBalance: newBalance}
		return nil
	})
	if err != nil {
		return MoveResult{}, err
	}

	if !out.Idempotent {
		s.recordMove(out, out.Amount, reason)
	}
	return out, nil
}

// Refund compensates an earlier debit identified by its correlation id. The
// refund reuses the correlation id with the refund kind, so it can run at
// most once no matter how many times a cleanup path retries it.
func (s *Service) Refund(ctx context.Context, correlationID string) (MoveResult, error) {
	if strings.TrimSpace(correlationID) == "" {
		return MoveResult{}, fmt.Errorf("%w: correlation id is required", ErrValidation)
	}
	if s.store == nil {
		return MoveResult{}, fmt.Errorf("ledger store is not configured")
	}

	var out MoveResult
	err := s.store.InTx(ctx, func(txCtx context.Context, tx pgrepo.LedgerTx) error {
		original, err := tx.FindTransaction(txCtx, correlationID, pgrepo.KindDebit)
		if err != nil {
			return err
		}

		balance, err := tx.LockBalance(txCtx, original.AccountID)
		if err != nil {
			return mapStoreErr(err)
		}

		existing, err := tx.FindTransaction(txCtx, correlationID, pgrepo.KindRefund)
		if err == nil {
			out = MoveResult{
				TxID:       existing.ID,
				AccountID:  existing.AccountID,
				Amount:     existing.Delta,
				NewBalance: balance,
				Idempotent: true,
			}
			return nil
		}
		if !errors.Is(err, pgrepo.ErrTransactionNotFound) {
			return err
		}

		amount := -original.Delta
		txID := uuid.NewString()
		if err := tx.InsertTransaction(txCtx, pgrepo.TransactionRecord{
			ID:            txID,
			AccountID:     original.AccountID,
			Delta:         amount,
			Reason:        string(enums.ReasonRefund),
			Kind:          pgrepo.KindRefund,
			CorrelationID: correlationID,
		}); err != nil {
			return err
		}

		newBalance, err := tx.ApplyBalanceDelta(txCtx, original.AccountID, amount)
		if err != nil {
			return mapStoreErr(err)
		}

		out = MoveResult{TxID: txID, AccountID: original.AccountID, Amount: amount, NewBalance: newBalance}
		return nil
	})
	if err != nil {
		return MoveResult{}, err
	}

	if !out.Idempotent {
		s.recordMove(out, out.Amount, enums.ReasonRefund)
	}
	return out, nil
}

func (s *Service) Balance(ctx context.Context, accountID string) (int64, error) {
	if strings.TrimSpace(accountID) == "" {
		return 0, fmt.Errorf("%w: account id is required", ErrValidation)
	}
	if s.store == nil {
		return 0, fmt.Errorf("ledger store is not configured")
	}

	balance, err := s.store.Balance(ctx, accountID)
	if err != nil {
		return 0, mapStoreErr(err)
	}
	return balance, nil
}

func (s *Service) History(ctx context.Context, accountID string, limit int) ([]pgrepo.TransactionRecord, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrValidation)
	}
	if s.store == nil {
		return nil, fmt.Errorf("ledger store is not configured")
	}
	return s.store.ListByAccount(ctx, accountID, limit)
}

func (s *Service) recordMove(out MoveResult, delta int64, reason enums.CreditReason) {
	metrics.CreditsMovedTotal.WithLabelValues(string(reason)).Inc()
	if s.bus != nil {
		s.bus.Publish(events.BalanceChanged{
			AccountID:  out.AccountID,
			NewBalance: out.NewBalance,
			Delta:      delta,
			Reason:     reason,
		})
	}
}

func validateMove(accountID string, amount int64, reason enums.CreditReason, correlationID string) error {
	if strings.TrimSpace(accountID) == "" {
		return fmt.Errorf("%w: account id is required", ErrValidation)
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if !reason.Valid() {
		return fmt.Errorf("%w: unknown credit reason %q", ErrValidation, reason)
	}
	if strings.TrimSpace(correlationID) == "" {
		return fmt.Errorf("%w: correlation id is required", ErrValidation)
	}
	return nil
}

func mapStoreErr(err error) error {
	if errors.Is(err, pgrepo.ErrAccountNotFound) {
		return ErrAccountNotFound
	}
	return err
}
