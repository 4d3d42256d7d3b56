// Package memory provides an in-process SubscriptionRepository backed by
// github.com/patrickmn/go-cache. Useful for tests, development and single-node
// deployments that can afford to lose subscriptions on restart.
package memory

import (
	"context"
	"sort"
	"time"

	"github.com/coregx/feedkit"
	"github.com/coregx/feedkit/model"
	"github.com/patrickmn/go-cache"
)

// SubscriptionRepository implements feedkit.SubscriptionRepository in memory.
// Records never expire from the cache on their own; lease expiry is handled by
// feedkit.PurgeWorker like for every other backend.
type SubscriptionRepository struct {
	cache *cache.Cache
}

// NewSubscriptionRepository creates an empty in-memory repository.
func NewSubscriptionRepository() *SubscriptionRepository {
	return &SubscriptionRepository{cache: cache.New(cache.NoExpiration, 0)}
}

// Load retrieves a subscription by ID.
func (r *SubscriptionRepository) Load(_ context.Context, id string) (model.Subscription, error) {
	v, found := r.cache.Get(id)
	if !found {
		return model.Subscription{}, feedkit.ErrNoData
	}
	return v.(model.Subscription), nil
}

// Save creates or replaces a subscription.
func (r *SubscriptionRepository) Save(_ context.Context, m model.Subscription) (model.Subscription, error) {
	if m.ID == "" {
		return m, feedkit.NewError(feedkit.ErrCodeStorage, "subscription ID is required")
	}
	r.cache.Set(m.ID, m, cache.NoExpiration)
	return m, nil
}

// Delete removes a subscription.
func (r *SubscriptionRepository) Delete(_ context.Context, id string) (bool, error) {
	if _, found := r.cache.Get(id); !found {
		return false, nil
	}
	r.cache.Delete(id)
	return true, nil
}

// FindExpired finds subscriptions whose granted lease ran out.
func (r *SubscriptionRepository) FindExpired(_ context.Context, now time.Time, limit int) ([]model.Subscription, error) {
	var subs []model.Subscription
	for _, item := range r.cache.Items() {
		sub := item.Object.(model.Subscription)
		if sub.IsExpired(now) {
			subs = append(subs, sub)
		}
	}
	if len(subs) == 0 {
		return nil, feedkit.ErrNoData
	}

	sort.Slice(subs, func(i, j int) bool {
		return subs[i].ExpirationTime < subs[j].ExpirationTime
	})
	if limit > 0 && len(subs) > limit {
		subs = subs[:limit]
	}
	return subs, nil
}

// Count returns the number of stored subscriptions.
func (r *SubscriptionRepository) Count() int {
	return r.cache.ItemCount()
}
