package services

import (
	"context"
	"fmt"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/saeid-a/GymSessionsBack/internal/repository"
)

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// txRunner runs a unit of work in one transaction and replays it when
// Postgres reports a serialization failure, a deadlock, or a stale version.
type txRunner struct {
	db          txBeginner
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	metrics     MetricsRecorder
}

func newTxRunner(db txBeginner, maxAttempts int, metrics MetricsRecorder) *txRunner {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &txRunner{
		db:          db,
		maxAttempts: maxAttempts,
		baseDelay:   10 * time.Millisecond,
		maxDelay:    200 * time.Millisecond,
		metrics:     metrics,
	}
}

func (r *txRunner) run(ctx context.Context, fn func(tx pgx.Tx) error) error {
	var result error
	attempt := 0
	retrier := retry.NewRetrier(r.maxAttempts, r.baseDelay, r.maxDelay)

	err := retrier.Run(func() error {
		attempt++
		if attempt > 1 {
			r.metrics.RecordTxRetry()
		}
		if err := ctx.Err(); err != nil {
			result = err
			return nil
		}

		err := r.attempt(ctx, fn)
		if repository.IsRetryable(err) {
			log.Debug().Err(err).Int("attempt", attempt).Msg("retrying transaction")
			return err
		}
		result = err
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: gave up after %d attempts: %v", ErrConcurrencyConflict, attempt, err)
	}
	return result
}

func (r *txRunner) attempt(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
