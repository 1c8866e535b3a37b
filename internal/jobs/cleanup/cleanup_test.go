package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSweeper struct {
	calls int
	n     int
	err   error
}

func (f *fakeSweeper) CleanupStale(_ context.Context) (int, error) {
	f.calls++
	return f.n, f.err
}

func TestRunSweepsOnce(t *testing.T) {
	sweeper := &fakeSweeper{n: 3}
	job := New(sweeper, time.Minute, nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run sweep: %v", err)
	}

	if sweeper.calls != 1 {
		t.Fatalf("expected one sweep call, got %d", sweeper.calls)
	}
}

func TestRunPropagatesSweepError(t *testing.T) {
	wantErr := errors.New("redis down")
	job := New(&fakeSweeper{err: wantErr}, 0, nil)

	if err := job.Run(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("expected sweep error, got %v", err)
	}
}

func TestRunWithoutSweeperIsNoop(t *testing.T) {
	job := New(nil, time.Minute, nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("expected nil error without sweeper, got %v", err)
	}
}
