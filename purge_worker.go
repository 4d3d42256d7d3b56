package feedkit

import (
	"context"
	"fmt"
	"time"

	"github.com/coregx/feedkit/retry"
)

// PurgeWorker periodically deletes subscriptions whose lease expired.
// It is the only component that removes expired records; the callback never does.
//
// Thread safety: Safe for concurrent use.
type PurgeWorker struct {
	store               *Store
	logger              Logger
	notificationService NotificationService
	batchSize           int
	backoff             retry.Strategy
}

// PurgeOption is a function that configures a PurgeWorker.
type PurgeOption func(*PurgeWorker) error

// NewPurgeWorker creates a new PurgeWorker with the provided options.
//
// Required options:
//   - WithPurgeStore: subscription store
//
// Example:
//
//	worker, err := feedkit.NewPurgeWorker(
//	    feedkit.WithPurgeStore(store),
//	    feedkit.WithPurgeLogger(logger),
//	    feedkit.WithPurgeBatchSize(500), // optional
//	)
//	go worker.Run(ctx, time.Minute)
func NewPurgeWorker(opts ...PurgeOption) (*PurgeWorker, error) {
	w := &PurgeWorker{
		logger:              &NoopLogger{},
		notificationService: &NoOpNotificationService{},
		batchSize:           100,
		backoff:             retry.DefaultStrategy(),
	}

	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply purge worker option", err)
		}
	}

	if w.store == nil {
		return nil, NewError(ErrCodeConfiguration, "Store is required (use WithPurgeStore)")
	}

	return w, nil
}

// WithPurgeStore sets the store to purge. Required.
func WithPurgeStore(store *Store) PurgeOption {
	return func(w *PurgeWorker) error {
		if store == nil {
			return fmt.Errorf("store cannot be nil")
		}
		w.store = store
		return nil
	}
}

// WithPurgeLogger sets the logger instance. Optional, defaults to NoopLogger.
func WithPurgeLogger(logger Logger) PurgeOption {
	return func(w *PurgeWorker) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		w.logger = logger
		return nil
	}
}

// WithPurgeBatchSize sets how many expired records are deleted per pass.
// Must be > 0, default is 100.
func WithPurgeBatchSize(size int) PurgeOption {
	return func(w *PurgeWorker) error {
		if size <= 0 {
			return fmt.Errorf("batch size must be > 0, got %d", size)
		}
		w.batchSize = size
		return nil
	}
}

// WithPurgeNotifications sets an optional notification service told about each removal.
func WithPurgeNotifications(service NotificationService) PurgeOption {
	return func(w *PurgeWorker) error {
		if service == nil {
			return fmt.Errorf("notification service cannot be nil")
		}
		w.notificationService = service
		return nil
	}
}

// WithPurgeBackoff sets how the worker slows down while passes keep failing.
// Optional, defaults to retry.DefaultStrategy.
func WithPurgeBackoff(strategy retry.Strategy) PurgeOption {
	return func(w *PurgeWorker) error {
		if err := strategy.Validate(); err != nil {
			return err
		}
		w.backoff = strategy
		return nil
	}
}

// PurgeExpired deletes expired subscriptions until none are left or ctx is done.
// Returns the number of deleted records.
func (w *PurgeWorker) PurgeExpired(ctx context.Context) (int, error) {
	total := 0
	for ctx.Err() == nil {
		removed, err := w.store.PurgeExpired(ctx, w.batchSize)
		if err != nil {
			return total, err
		}

		for _, sub := range removed {
			if err := w.notificationService.NotifySubscriptionRemoved(ctx, sub, RemovalExpired); err != nil {
				w.logger.Warnf("Failed to send removal notification: %v", err)
			}
		}
		total += len(removed)

		// A short batch means nothing is left; an empty one with failures must not spin.
		if len(removed) < w.batchSize {
			break
		}
	}

	if total > 0 {
		w.logger.Infof("Purged %d expired subscriptions", total)
	}
	return total, nil
}

// Run starts the purge loop. It runs until the context is canceled, purging at
// the specified interval. After a failed pass the next one is delayed by the
// backoff strategy when that is longer than interval.
//
// This method blocks and should typically be run in a goroutine.
func (w *PurgeWorker) Run(ctx context.Context, interval time.Duration) {
	backoff := retry.NewBackoff(w.backoff)
	timer := time.NewTimer(interval)
	defer timer.Stop()

	w.logger.Info("Purge worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Purge worker stopped")
			return
		case <-timer.C:
			next := interval
			if _, err := w.PurgeExpired(ctx); err != nil {
				if delay := backoff.Failure(); delay > next {
					next = delay
				}
				w.logger.Errorf("Error purging expired subscriptions (failure %d, next pass in %v): %v",
					backoff.Failures(), next, err)
			} else {
				backoff.Reset()
			}
			timer.Reset(next)
		}
	}
}
