// Package redis provides a SubscriptionRepository backed by Redis through
// github.com/redis/go-redis/v9.
//
// Each subscription is a JSON value under "<prefix>subscription:<id>". Verified
// subscriptions with a lease are also indexed in the sorted set
// "<prefix>subscription:expiry" scored by expiration time, which FindExpired reads.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/coregx/feedkit"
	"github.com/coregx/feedkit/model"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key written by the repository.
const DefaultKeyPrefix = "feedkit:"

// SubscriptionRepository implements feedkit.SubscriptionRepository using Redis.
type SubscriptionRepository struct {
	client redis.UniversalClient
	prefix string
}

// NewSubscriptionRepository creates a repository using the default key prefix.
func NewSubscriptionRepository(client redis.UniversalClient) *SubscriptionRepository {
	return NewSubscriptionRepositoryWithPrefix(client, DefaultKeyPrefix)
}

// NewSubscriptionRepositoryWithPrefix creates a repository with a custom key prefix.
func NewSubscriptionRepositoryWithPrefix(client redis.UniversalClient, prefix string) *SubscriptionRepository {
	return &SubscriptionRepository{client: client, prefix: prefix}
}

// Connect creates a client for addr and checks it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, feedkit.NewError(feedkit.ErrCodeConfiguration, "redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, feedkit.NewErrorWithCause(feedkit.ErrCodeStorage, "failed to connect to redis", err)
	}
	return client, nil
}

// record is the stored form; model.Subscription hides secrets from JSON.
type record struct {
	ID              string `json:"id"`
	TopicURL        string `json:"topic_url"`
	HubURL          string `json:"hub_url"`
	CallbackURL     string `json:"callback_url"`
	VerifyTokenHash string `json:"verify_token_hash"`
	Secret          string `json:"secret"`
	LeaseSeconds    int64  `json:"lease_seconds"`
	CreatedTime     int64  `json:"created_time"`
	ExpirationTime  int64  `json:"expiration_time"`
	State           string `json:"subscription_state"`
}

func toRecord(m model.Subscription) record {
	return record{
		ID:              m.ID,
		TopicURL:        m.TopicURL,
		HubURL:          m.HubURL,
		CallbackURL:     m.CallbackURL,
		VerifyTokenHash: m.VerifyTokenHash,
		Secret:          m.Secret,
		LeaseSeconds:    m.LeaseSeconds,
		CreatedTime:     m.CreatedTime,
		ExpirationTime:  m.ExpirationTime,
		State:           string(m.State),
	}
}

func (r record) subscription() model.Subscription {
	return model.Subscription{
		ID:              r.ID,
		TopicURL:        r.TopicURL,
		HubURL:          r.HubURL,
		CallbackURL:     r.CallbackURL,
		VerifyTokenHash: r.VerifyTokenHash,
		Secret:          r.Secret,
		LeaseSeconds:    r.LeaseSeconds,
		CreatedTime:     r.CreatedTime,
		ExpirationTime:  r.ExpirationTime,
		State:           model.SubscriptionState(r.State),
	}
}

func (r *SubscriptionRepository) key(id string) string {
	return r.prefix + "subscription:" + id
}

func (r *SubscriptionRepository) expiryKey() string {
	return r.prefix + "subscription:expiry"
}

// Load retrieves a subscription by ID.
func (r *SubscriptionRepository) Load(ctx context.Context, id string) (model.Subscription, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Subscription{}, feedkit.ErrNoData
		}
		return model.Subscription{}, feedkit.NewErrorWithCause(feedkit.ErrCodeStorage, "failed to load subscription", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.Subscription{}, feedkit.NewErrorWithCause(feedkit.ErrCodeStorage, "failed to decode subscription", err)
	}
	return rec.subscription(), nil
}

// Save creates or replaces a subscription and keeps the expiry index in sync.
func (r *SubscriptionRepository) Save(ctx context.Context, m model.Subscription) (model.Subscription, error) {
	if m.ID == "" {
		return m, feedkit.NewError(feedkit.ErrCodeStorage, "subscription ID is required")
	}

	data, err := json.Marshal(toRecord(m))
	if err != nil {
		return m, feedkit.NewErrorWithCause(feedkit.ErrCodeStorage, "failed to encode subscription", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(m.ID), data, 0)
		if m.ExpirationTime > 0 {
			pipe.ZAdd(ctx, r.expiryKey(), redis.Z{Score: float64(m.ExpirationTime), Member: m.ID})
		} else {
			pipe.ZRem(ctx, r.expiryKey(), m.ID)
		}
		return nil
	})
	if err != nil {
		return m, feedkit.NewErrorWithCause(feedkit.ErrCodeStorage, "failed to save subscription", err)
	}
	return m, nil
}

// Delete removes a subscription and reports whether it existed.
func (r *SubscriptionRepository) Delete(ctx context.Context, id string) (bool, error) {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, r.key(id))
		pipe.ZRem(ctx, r.expiryKey(), id)
		return nil
	})
	if err != nil {
		return false, feedkit.NewErrorWithCause(feedkit.ErrCodeStorage, "failed to delete subscription", err)
	}
	return del.Val() > 0, nil
}

// FindExpired returns leased subscriptions with expiration <= now, oldest first.
func (r *SubscriptionRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]model.Subscription, error) {
	ids, err := r.client.ZRangeByScore(ctx, r.expiryKey(), &redis.ZRangeBy{
		Min:   "1",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, feedkit.NewErrorWithCause(feedkit.ErrCodeStorage, "failed to find expired subscriptions", err)
	}

	subs := make([]model.Subscription, 0, len(ids))
	for _, id := range ids {
		sub, err := r.Load(ctx, id)
		if feedkit.IsNoData(err) {
			// Index entry outlived its record.
			r.client.ZRem(ctx, r.expiryKey(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}

	if len(subs) == 0 {
		return nil, feedkit.ErrNoData
	}
	return subs, nil
}
