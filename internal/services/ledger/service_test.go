package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/zwakele57/chat-v2/internal/domain/enums"
	"github.com/zwakele57/chat-v2/internal/events"
	pgrepo "github.com/zwakele57/chat-v2/internal/repo/postgres"
)

type fakeStore struct {
	balances map[string]int64
	txs      []pgrepo.TransactionRecord
}

func newFakeStore(balances map[string]int64) *fakeStore {
	if balances == nil {
		balances = map[string]int64{}
	}
	return &fakeStore{balances: balances}
}

func (f *fakeStore) InTx(ctx context.Context, fn func(context.Context, pgrepo.LedgerTx) error) error {
	shadow := &fakeStore{balances: map[string]int64{}, txs: append([]pgrepo.TransactionRecord{}, f.txs...)}
	for k, v := range f.balances {
		shadow.balances[k] = v
	}

	if err := fn(ctx, (*fakeTx)(shadow)); err != nil {
		return err
	}

	f.balances = shadow.balances
	f.txs = shadow.txs
	return nil
}

func (f *fakeStore) Balance(_ context.Context, accountID string) (int64, error) {
	balance, ok := f.balances[accountID]
	if !ok {
		return 0, pgrepo.ErrAccountNotFound
	}
	return balance, nil
}

func (f *fakeStore) SumDeltas(_ context.Context, accountID string) (int64, error) {
	var sum int64
	for _, tx := range f.txs {
		if tx.AccountID == accountID {
			sum += tx.Delta
		}
	}
	return sum, nil
}

func (f *fakeStore) ListByAccount(_ context.Context, accountID string, _ int) ([]pgrepo.TransactionRecord, error) {
	var out []pgrepo.TransactionRecord
	for _, tx := range f.txs {
		if tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	return out, nil
}

type fakeTx fakeStore

func (f *fakeTx) LockBalance(_ context.Context, accountID string) (int64, error) {
	balance, ok := f.balances[accountID]
	if !ok {
		return 0, pgrepo.ErrAccountNotFound
	}
	return balance, nil
}

func (f *fakeTx) FindTransaction(_ context.Context, correlationID string, kind pgrepo.TransactionKind) (pgrepo.TransactionRecord, error) {
	for _, tx := range f.txs {
		if tx.CorrelationID == correlationID && tx.Kind == kind {
			return tx, nil
		}
	}
	return pgrepo.TransactionRecord{}, pgrepo.ErrTransactionNotFound
}

func (f *fakeTx) InsertTransaction(_ context.Context, rec pgrepo.TransactionRecord) error {
	f.txs = append(f.txs, rec)
	return nil
}

func (f *fakeTx) ApplyBalanceDelta(_ context.Context, accountID string, delta int64) (int64, error) {
	if _, ok := f.balances[accountID]; !ok {
		return 0, pgrepo.ErrAccountNotFound
	}
	f.balances[accountID] += delta
	return f.balances[accountID], nil
}

type eventRecorder struct {
	published []events.Event
}

func (r *eventRecorder) Publish(event events.Event) {
	r.published = append(r.published, event)
}

func newTestService(store *fakeStore) (*Service, *eventRecorder) {
	rec := &eventRecorder{}
	return NewService(Dependencies{Store: store, Bus: rec}), rec
}

func TestDebitThenRefundRestoresBalance(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(map[string]int64{"acc-1": 85})
	svc, _ := newTestService(store)

	debit, err := svc.Debit(ctx, "acc-1", 10, enums.ReasonSearchFee, "ticket-1")
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if debit.NewBalance != 75 {
		t.Fatalf("expected balance 75 after debit, got %d", debit.NewBalance)
	}

	refund, err := svc.Refund(ctx, "ticket-1")
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refund.NewBalance != 85 {
		t.Fatalf("expected balance 85 after refund, got %d", refund.NewBalance)
	}
	if refund.AccountID != "acc-1" || refund.Amount != 10 {
		t.Fatalf("unexpected refund result: %+v", refund)
	}

	again, err := svc.Refund(ctx, "ticket-1")
	if err != nil {
		t.Fatalf("second refund: %v", err)
	}
	if !again.Idempotent {
		t.Fatal("expected second refund to be idempotent")
	}
	if again.NewBalance != 85 {
		t.Fatalf("expected balance to stay at 85, got %d", again.NewBalance)
	}

	history, err := svc.History(ctx, "acc-1", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected exactly 2 ledger entries, got %d", len(history))
	}
}

func TestDebitRejectsOverdraft(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(map[string]int64{"acc-1": 3})
	svc, _ := newTestService(store)

	if _, err := svc.Debit(ctx, "acc-1", 5, enums.ReasonSkipFee, "skip-1"); !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}

	balance, err := svc.Balance(ctx, "acc-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 3 {
		t.Fatalf("expected balance untouched at 3, got %d", balance)
	}
	if len(store.txs) != 0 {
		t.Fatalf("expected no ledger entries, got %d", len(store.txs))
	}
}

func TestDebitIsIdempotentPerCorrelation(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(map[string]int64{"acc-1": 100})
	svc, _ := newTestService(store)

	first, err := svc.Debit(ctx, "acc-1", 10, enums.ReasonSearchFee, "ticket-7")
	if err != nil {
		t.Fatalf("first debit: %v", err)
	}
	second, err := svc.Debit(ctx, "acc-1", 10, enums.ReasonSearchFee, "ticket-7")
	if err != nil {
		t.Fatalf("second debit: %v", err)
	}

	if second.TxID != first.TxID {
		t.Fatalf("expected the original tx id back, got %s and %s", first.TxID, second.TxID)
	}
	if !second.Idempotent {
		t.Fatal("expected second debit to be idempotent")
	}
	if second.NewBalance != 90 {
		t.Fatalf("expected balance debited once to 90, got %d", second.NewBalance)
	}
}

func TestLedgerConservesCredits(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(map[string]int64{"acc-1": 0})
	svc, _ := newTestService(store)

	if _, err := svc.Credit(ctx, "acc-1", 50, enums.ReasonAdminGrant, "grant-1"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := svc.Debit(ctx, "acc-1", 10, enums.ReasonSearchFee, "ticket-1"); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if _, err := svc.Debit(ctx, "acc-1", 5, enums.ReasonSkipFee, "skip-1"); err != nil {
		t.Fatalf("skip debit: %v", err)
	}
	if _, err := svc.Refund(ctx, "ticket-1"); err != nil {
		t.Fatalf("refund: %v", err)
	}

	balance, err := svc.Balance(ctx, "acc-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	sum, err := store.SumDeltas(ctx, "acc-1")
	if err != nil {
		t.Fatalf("sum deltas: %v", err)
	}
	if balance != sum {
		t.Fatalf("ledger out of balance: stored %d, entries sum to %d", balance, sum)
	}
	if balance != 45 {
		t.Fatalf("expected final balance 45, got %d", balance)
	}
}

func TestMoveValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(newFakeStore(map[string]int64{"acc-1": 10}))

	if _, err := svc.Credit(ctx, "acc-1", 0, enums.ReasonAdminGrant, "grant-1"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero amount, got %v", err)
	}
	if _, err := svc.Credit(ctx, "acc-1", -5, enums.ReasonAdminGrant, "grant-2"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative amount, got %v", err)
	}
	if _, err := svc.Debit(ctx, "acc-1", 5, enums.CreditReason("mystery"), "x-1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown reason, got %v", err)
	}
	if _, err := svc.Debit(ctx, "", 5, enums.ReasonSearchFee, "x-2"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty account, got %v", err)
	}
	if _, err := svc.Debit(ctx, "missing", 5, enums.ReasonSearchFee, "x-3"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestRefundUnknownCorrelation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(newFakeStore(map[string]int64{"acc-1": 10}))

	if _, err := svc.Refund(ctx, "never-happened"); !errors.Is(err, pgrepo.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestBalanceChangedEvents(t *testing.T) {
	ctx := context.Background()
	svc, rec := newTestService(newFakeStore(map[string]int64{"acc-1": 20}))

	if _, err := svc.Debit(ctx, "acc-1", 10, enums.ReasonSearchFee, "ticket-1"); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if _, err := svc.Debit(ctx, "acc-1", 10, enums.ReasonSearchFee, "ticket-1"); err != nil {
		t.Fatalf("idempotent debit: %v", err)
	}

	if len(rec.published) != 1 {
		t.Fatalf("expected exactly one event, got %d", len(rec.published))
	}
	change, ok := rec.published[0].(events.BalanceChanged)
	if !ok {
		t.Fatalf("unexpected event type %T", rec.published[0])
	}
	if change.AccountID != "acc-1" || change.Delta != -10 || change.NewBalance != 10 {
		t.Fatalf("unexpected event payload: %+v", change)
	}
}
