package feedkit

import (
	"context"
	"fmt"

	"github.com/coregx/feedkit/model"
	"github.com/google/uuid"
)

// Store provides clock-aware access to subscription records on top of a
// SubscriptionRepository. It is the only component that stamps creation and
// expiration times, using the Clock it was constructed with.
//
// Thread safety: Safe for concurrent use if the repository is.
type Store struct {
	repo   SubscriptionRepository
	clock  Clock
	logger Logger
}

// StoreOption is a function that configures a Store.
type StoreOption func(*Store) error

// NewStore creates a new Store with the provided options.
//
// Required options:
//   - WithStoreRepository: subscription repository
//   - WithStoreClock: time source (SystemClock in production, FixedClock in tests)
//
// Example:
//
//	store, err := feedkit.NewStore(
//	    feedkit.WithStoreRepository(repos.Subscription),
//	    feedkit.WithStoreClock(feedkit.SystemClock{}),
//	    feedkit.WithStoreLogger(logger),
//	)
func NewStore(opts ...StoreOption) (*Store, error) {
	s := &Store{logger: &NoopLogger{}}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply store option", err)
		}
	}

	if s.repo == nil {
		return nil, NewError(ErrCodeConfiguration, "SubscriptionRepository is required (use WithStoreRepository)")
	}
	if s.clock == nil {
		return nil, NewError(ErrCodeConfiguration, "Clock is required (use WithStoreClock)")
	}

	return s, nil
}

// WithStoreRepository sets the backing subscription repository.
func WithStoreRepository(repo SubscriptionRepository) StoreOption {
	return func(s *Store) error {
		if repo == nil {
			return fmt.Errorf("repository cannot be nil")
		}
		s.repo = repo
		return nil
	}
}

// WithStoreClock sets the time source for creation and expiration times.
func WithStoreClock(clock Clock) StoreOption {
	return func(s *Store) error {
		if clock == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		s.clock = clock
		return nil
	}
}

// WithStoreLogger sets the logger instance. Optional, defaults to NoopLogger.
func WithStoreLogger(logger Logger) StoreOption {
	return func(s *Store) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// Now returns the store's notion of the current time.
func (s *Store) Now() int64 {
	return s.clock.Now().Unix()
}

// Find retrieves a subscription by ID.
// Returns ErrNoData when no single record matches.
func (s *Store) Find(ctx context.Context, id string) (*model.Subscription, error) {
	if id == "" {
		return nil, ErrNoData
	}

	sub, err := s.repo.Load(ctx, id)
	if err != nil {
		if IsNoData(err) {
			return nil, ErrNoData
		}
		return nil, storageError("failed to load subscription", err)
	}

	return &sub, nil
}

// Save upserts a subscription. A missing ID is generated, and CreatedTime is
// stamped from the clock the first time a record is saved.
func (s *Store) Save(ctx context.Context, sub model.Subscription) (*model.Subscription, error) {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.CreatedTime == 0 {
		sub.CreatedTime = s.Now()
	}
	if sub.State == "" {
		sub.State = model.StateUnverified
	}

	saved, err := s.repo.Save(ctx, sub)
	if err != nil {
		return nil, storageError("failed to save subscription", err)
	}

	s.logger.Debugf("Subscription saved: id=%s, topic=%s, state=%s", saved.ID, saved.TopicURL, saved.State)
	return &saved, nil
}

// Delete removes a subscription and reports whether a record was removed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}

	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, storageError("failed to delete subscription", err)
	}

	if removed {
		s.logger.Debugf("Subscription deleted: id=%s", id)
	}
	return removed, nil
}

// SetLeaseSeconds updates a subscription's lease and recomputes its expiration
// as now + lease.
func (s *Store) SetLeaseSeconds(ctx context.Context, id string, lease int64) (*model.Subscription, error) {
	return s.update(ctx, id, func(sub *model.Subscription) {
		sub.SetLeaseSeconds(lease, s.clock.Now())
	})
}

// SetExpirationTime recomputes a subscription's expiration from its current lease and now.
func (s *Store) SetExpirationTime(ctx context.Context, id string) (*model.Subscription, error) {
	return s.update(ctx, id, func(sub *model.Subscription) {
		sub.SetLeaseSeconds(sub.LeaseSeconds, s.clock.Now())
	})
}

// Verify marks a subscription verified with the lease granted by the hub.
func (s *Store) Verify(ctx context.Context, id string, lease int64) (*model.Subscription, error) {
	return s.update(ctx, id, func(sub *model.Subscription) {
		sub.MarkVerified(lease, s.clock.Now())
	})
}

// PurgeExpired deletes up to limit subscriptions whose granted lease ran out
// and returns the records it removed.
func (s *Store) PurgeExpired(ctx context.Context, limit int) ([]model.Subscription, error) {
	expired, err := s.repo.FindExpired(ctx, s.clock.Now(), limit)
	if err != nil {
		if IsNoData(err) {
			return nil, nil
		}
		return nil, storageError("failed to find expired subscriptions", err)
	}

	removed := make([]model.Subscription, 0, len(expired))
	for _, sub := range expired {
		ok, err := s.repo.Delete(ctx, sub.ID)
		if err != nil {
			s.logger.Errorf("Failed to delete expired subscription %s: %v", sub.ID, err)
			continue
		}
		if ok {
			removed = append(removed, sub)
		}
	}

	return removed, nil
}

func (s *Store) update(ctx context.Context, id string, mutate func(*model.Subscription)) (*model.Subscription, error) {
	sub, err := s.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	mutate(sub)
	return s.Save(ctx, *sub)
}

// storageError wraps err as a STORAGE_ERROR unless it already is one.
func storageError(message string, err error) error {
	if IsCode(err, ErrCodeStorage) {
		return err
	}
	return NewErrorWithCause(ErrCodeStorage, message, err)
}
