// Package cleanup runs the periodic sweep that expires abandoned search
// tickets and refunds their fees.
package cleanup

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TicketSweeper expires search tickets past their TTL. The matchmaking
// service implements it.
type TicketSweeper interface {
	CleanupStale(ctx context.Context) (int, error)
}

type Job struct {
	sweeper TicketSweeper
	every   time.Duration
	logger  *zap.Logger
}

func New(sweeper TicketSweeper, every time.Duration, logger *zap.Logger) *Job {
	if every <= 0 {
		every = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		sweeper: sweeper,
		every:   every,
		logger:  logger,
	}
}

// Run executes a single sweep.
func (j *Job) Run(ctx context.Context) error {
	if j.sweeper == nil {
		return nil
	}

	expired, err := j.sweeper.CleanupStale(ctx)
	if err != nil {
		return err
	}
	if expired > 0 {
		j.logger.Info("expired stale search tickets", zap.Int("count", expired))
	}
	return nil
}

// Start loops Run on the configured interval until the context is cancelled.
// Sweep errors are logged and the loop keeps going.
func (j *Job) Start(ctx context.Context) {
	ticker := time.NewTicker(j.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Warn("ticket sweep failed", zap.Error(err))
			}
		}
	}
}
