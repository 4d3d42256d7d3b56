package relica

import (
	"context"
	"database/sql"
	"time"

	"github.com/coregx/feedkit"
	"github.com/coregx/feedkit/model"
	"github.com/coregx/relica"
)

// SubscriptionRepository implements feedkit.SubscriptionRepository using Relica.
type SubscriptionRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewSubscriptionRepository creates a new SubscriptionRepository with default table prefix.
func NewSubscriptionRepository(sqlDB *sql.DB, driverName string) *SubscriptionRepository {
	return &SubscriptionRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: DefaultTablePrefix}
}

// NewSubscriptionRepositoryWithPrefix creates a new SubscriptionRepository with custom table prefix.
func NewSubscriptionRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *SubscriptionRepository {
	return &SubscriptionRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *SubscriptionRepository) tableName() string {
	return r.tablePrefix + "subscription"
}

// Load retrieves a subscription by ID.
// Storage is expected to keep IDs unique; an ambiguous match is reported as ErrNoData.
func (r *SubscriptionRepository) Load(ctx context.Context, id string) (model.Subscription, error) {
	var subs []model.Subscription
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("id = ?", id).
		Limit(2).
		WithContext(ctx).
		All(&subs)
	if err != nil {
		return model.Subscription{}, feedkit.NewErrorWithCause(feedkit.ErrCodeStorage, "failed to load subscription", err)
	}
	if len(subs) != 1 {
		return model.Subscription{}, feedkit.ErrNoData
	}
	return subs[0], nil
}

// Save creates or updates a subscription.
func (r *SubscriptionRepository) Save(ctx context.Context, m model.Subscription) (model.Subscription, error) {
	if m.ID == "" {
		return m, feedkit.NewError(feedkit.ErrCodeStorage, "subscription ID is required")
	}

	_, err := r.Load(ctx, m.ID)
	if feedkit.IsNoData(err) {
		// Insert using Model() API
		if err := r.db.WithContext(ctx).Model(&m).Table(r.tableName()).Insert(); err != nil {
			return m, feedkit.NewErrorWithCause(feedkit.ErrCodeStorage, "failed to insert subscription", err)
		}
		return m, nil
	}
	if err != nil {
		return m, err
	}

	_, err = r.db.WithContext(ctx).Update(r.tableName()).
		Set(map[string]interface{}{
			"topic_url":          m.TopicURL,
			"hub_url":            m.HubURL,
			"callback_url":       m.CallbackURL,
			"verify_token_hash":  m.VerifyTokenHash,
			"secret":             m.Secret,
			"lease_seconds":      m.LeaseSeconds,
			"created_time":       m.CreatedTime,
			"expiration_time":    m.ExpirationTime,
			"subscription_state": string(m.State),
		}).
		Where("id = ?", m.ID).
		WithContext(ctx).
		Execute()
	if err != nil {
		return m, feedkit.NewErrorWithCause(feedkit.ErrCodeStorage, "failed to update subscription", err)
	}
	return m, nil
}

// Delete removes a subscription and reports whether it existed.
func (r *SubscriptionRepository) Delete(ctx context.Context, id string) (bool, error) {
	m, err := r.Load(ctx, id)
	if feedkit.IsNoData(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	// Delete using Model() API
	if err := r.db.WithContext(ctx).Model(&m).Table(r.tableName()).Delete(); err != nil {
		return false, feedkit.NewErrorWithCause(feedkit.ErrCodeStorage, "failed to delete subscription", err)
	}
	return true, nil
}

// FindExpired finds subscriptions whose granted lease ran out, oldest first.
func (r *SubscriptionRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("expiration_time > 0 AND expiration_time <= ?", now.Unix()).
		OrderBy("expiration_time ASC").
		Limit(int64(limit)).
		WithContext(ctx).
		All(&subs)
	if err != nil {
		return nil, feedkit.NewErrorWithCause(feedkit.ErrCodeStorage, "failed to find expired subscriptions", err)
	}
	if len(subs) == 0 {
		return nil, feedkit.ErrNoData
	}
	return subs, nil
}
