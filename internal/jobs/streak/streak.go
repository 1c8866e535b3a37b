// Package streak runs the periodic advance of the clean-days counter that
// feeds account verification.
package streak

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Advancer adds one clean day to every account that has none recorded for
// today. The membership service implements it.
type Advancer interface {
	AdvanceCleanStreaks(ctx context.Context) (int64, error)
}

type Job struct {
	advancer Advancer
	every    time.Duration
	logger   *zap.Logger
}

func New(advancer Advancer, every time.Duration, logger *zap.Logger) *Job {
	if every <= 0 {
		every = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		advancer: advancer,
		every:    every,
		logger:   logger,
	}
}

// Run executes a single advance pass.
func (j *Job) Run(ctx context.Context) error {
	if j.advancer == nil {
		return nil
	}

	advanced, err := j.advancer.AdvanceCleanStreaks(ctx)
	if err != nil {
		return err
	}
	if advanced > 0 {
		j.logger.Info("advanced clean-day streaks", zap.Int64("count", advanced))
	}
	return nil
}

// Start runs once immediately, then loops Run on the configured interval
// until the context is cancelled. The advance is per-day idempotent, so an
// interval shorter than a day just makes the rollover prompt.
func (j *Job) Start(ctx context.Context) {
	if err := j.Run(ctx); err != nil {
		j.logger.Warn("streak advance failed", zap.Error(err))
	}

	ticker := time.NewTicker(j.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Warn("streak advance failed", zap.Error(err))
			}
		}
	}
}
