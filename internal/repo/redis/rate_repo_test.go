package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func TestRateRepoCountsWithinWindow(t *testing.T) {
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := NewRateRepo(client)

	count, ttl, err := repo.IncrementWindow(ctx, "report:rl:acc-1", time.Minute)
	if err != nil {
		t.Fatalf("first increment: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected a fresh window ttl, got %s", ttl)
	}

	count, ttl, err = repo.IncrementWindow(ctx, "report:rl:acc-1", time.Minute)
	if err != nil {
		t.Fatalf("second increment: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
	if ttl <= 0 {
		t.Fatalf("expected the window still open, ttl %s", ttl)
	}
}

func TestRateRepoWindowExpires(t *testing.T) {
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := NewRateRepo(client)

	for i := 0; i < 3; i++ {
		if _, _, err := repo.IncrementWindow(ctx, "report:rl:acc-1", time.Minute); err != nil {
			t.Fatalf("increment %d: %v", i+1, err)
		}
	}

	mr.FastForward(time.Minute + time.Second)

	count, _, err := repo.IncrementWindow(ctx, "report:rl:acc-1", time.Minute)
	if err != nil {
		t.Fatalf("increment after expiry: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a fresh window after expiry, got count %d", count)
	}
}
