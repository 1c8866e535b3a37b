package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var ErrTicketNotFound = errors.New("search ticket not found")

const (
	queueKey        = "match:queue"
	ticketKeyPrefix = "match:ticket:"
)

// TicketRecord is one account waiting in the search queue. FeeTxID ties the
// ticket to the ledger debit that paid for it so cancellation can refund.
type TicketRecord struct {
	TicketID   string    `json:"ticket_id"`
	AccountID  string    `json:"account_id"`
	FeeTxID    string    `json:"fee_tx_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// QueueRepo keeps the waiting pool in a sorted set scored by enqueue time in
// unix milliseconds, with the full ticket in a side key per account. Oldest
// two entries pair first.
type QueueRepo struct {
	client *goredis.Client
}

func NewQueueRepo(client *goredis.Client) *QueueRepo {
	return &QueueRepo{client: client}
}

func (r *QueueRepo) Enqueue(ctx context.Context, rec TicketRecord) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if rec.TicketID == "" || rec.AccountID == "" {
		return fmt.Errorf("invalid ticket payload")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal ticket: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, ticketKeyPrefix+rec.AccountID, data, 0)
	pipe.ZAdd(ctx, queueKey, goredis.Z{
		Score:  float64(rec.EnqueuedAt.UnixMilli()),
		Member: rec.AccountID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue ticket: %w", err)
	}
	return nil
}

func (r *QueueRepo) Get(ctx context.Context, accountID string) (TicketRecord, error) {
	if r.client == nil {
		return TicketRecord{}, fmt.Errorf("redis client is nil")
	}

	data, err := r.client.Get(ctx, ticketKeyPrefix+accountID).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return TicketRecord{}, ErrTicketNotFound
		}
		return TicketRecord{}, fmt.Errorf("get ticket: %w", err)
	}

	var rec TicketRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return TicketRecord{}, fmt.Errorf("unmarshal ticket: %w", err)
	}
	return rec, nil
}

// Remove takes the account out of the waiting pool and returns its ticket.
// Only one of two racing removers gets the record; the other sees
// ErrTicketNotFound.
func (r *QueueRepo) Remove(ctx context.Context, accountID string) (TicketRecord, error) {
	if r.client == nil {
		return TicketRecord{}, fmt.Errorf("redis client is nil")
	}

	data, err := r.client.GetDel(ctx, ticketKeyPrefix+accountID).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			// The ticket key is gone but the queue member may still be there,
			// left behind by a remover that died between GetDel and ZRem.
			// Clear it so an orphan can never sit at the queue head forever.
			if zremErr := r.client.ZRem(ctx, queueKey, accountID).Err(); zremErr != nil {
				return TicketRecord{}, fmt.Errorf("clear orphaned queue entry: %w", zremErr)
			}
			return TicketRecord{}, ErrTicketNotFound
		}
		return TicketRecord{}, fmt.Errorf("remove ticket: %w", err)
	}
	if err := r.client.ZRem(ctx, queueKey, accountID).Err(); err != nil {
		return TicketRecord{}, fmt.Errorf("remove from queue: %w", err)
	}

	var rec TicketRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return TicketRecord{}, fmt.Errorf("unmarshal ticket: %w", err)
	}
	return rec, nil
}

// Oldest returns up to n account ids in enqueue order without removing them.
func (r *QueueRepo) Oldest(ctx context.Context, n int) ([]string, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if n <= 0 {
		return nil, nil
	}

	ids, err := r.client.ZRange(ctx, queueKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read queue head: %w", err)
	}
	return ids, nil
}

func (r *QueueRepo) Size(ctx context.Context) (int64, error) {
	if r.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}

	size, err := r.client.ZCard(ctx, queueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("read queue size: %w", err)
	}
	return size, nil
}

// StaleBefore lists accounts whose tickets were enqueued before the cutoff,
// for the expiry sweeper.
func (r *QueueRepo) StaleBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	ids, err := r.client.ZRangeByScore(ctx, queueKey, &goredis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", cutoff.UnixMilli()),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("read stale queue entries: %w", err)
	}
	return ids, nil
}
