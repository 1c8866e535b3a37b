package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const pairCooldownPrefix = "pair:cd:"

// PairRepo remembers recently matched pairs so two accounts that just talked
// are not paired again immediately.
type PairRepo struct {
	client *goredis.Client
}

func NewPairRepo(client *goredis.Client) *PairRepo {
	return &PairRepo{client: client}
}

func (r *PairRepo) MarkPaired(ctx context.Context, a, b string, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if ttl <= 0 {
		return nil
	}

	if err := r.client.Set(ctx, pairKey(a, b), 1, ttl).Err(); err != nil {
		return fmt.Errorf("mark pair cooldown: %w", err)
	}
	return nil
}

func (r *PairRepo) RecentlyPaired(ctx context.Context, a, b string) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	n, err := r.client.Exists(ctx, pairKey(a, b)).Result()
	if err != nil {
		return false, fmt.Errorf("check pair cooldown: %w", err)
	}
	return n > 0, nil
}

// pairKey is order-independent so (a,b) and (b,a) hit the same key.
func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return pairCooldownPrefix + a + ":" + b
}
