package feedkit

import (
	"context"
	"time"

	"github.com/coregx/feedkit/model"
)

// SubscriptionRepository defines the persistence interface for subscription records.
// Records are keyed by their opaque string ID (the callback URL's last path segment).
//
// Implementations must be safe for concurrent use. They are not expected to guard
// against concurrent verification of the same record: last write wins.
// Backend failures should be reported as *Error with ErrCodeStorage; no retries.
type SubscriptionRepository interface {
	// Load retrieves a subscription by ID.
	// Returns ErrNoData if not found, or if more than one record matches.
	Load(ctx context.Context, id string) (model.Subscription, error)

	// Save creates the subscription if its ID is unknown, or replaces the stored record.
	// The ID must be set by the caller.
	Save(ctx context.Context, m model.Subscription) (model.Subscription, error)

	// Delete permanently removes a subscription.
	// Returns true if a record was removed.
	Delete(ctx context.Context, id string) (bool, error)

	// FindExpired finds subscriptions that were granted a lease (expiration time > 0)
	// whose expiration time is <= now, oldest first.
	// Results are ordered by expiration time ASC (oldest first).
	// Returns ErrNoData if none found.
	FindExpired(ctx context.Context, now time.Time, limit int) ([]model.Subscription, error)
}
