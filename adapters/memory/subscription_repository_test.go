package memory

import (
	"context"
	"testing"
	"time"

	"github.com/coregx/feedkit"
	"github.com/coregx/feedkit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionRepository_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriptionRepository()

	_, err := repo.Load(ctx, "missing")
	assert.True(t, feedkit.IsNoData(err))

	sub := model.NewSubscription("http://example.com/topic", "http://hub", "http://cb", "cba")
	saved, err := repo.Save(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, sub, saved)
	assert.Equal(t, 1, repo.Count())

	loaded, err := repo.Load(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub, loaded)

	// Save replaces the stored record.
	loaded.State = model.StateVerified
	_, err = repo.Save(ctx, loaded)
	require.NoError(t, err)
	reloaded, err := repo.Load(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsVerified())
	assert.Equal(t, 1, repo.Count())

	removed, err := repo.Delete(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(ctx, sub.ID)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 0, repo.Count())
}

func TestSubscriptionRepository_SaveRequiresID(t *testing.T) {
	_, err := NewSubscriptionRepository().Save(context.Background(), model.Subscription{})
	assert.True(t, feedkit.IsCode(err, feedkit.ErrCodeStorage))
}

func TestSubscriptionRepository_FindExpired(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriptionRepository()
	now := time.Unix(1700000000, 0)

	_, err := repo.FindExpired(ctx, now, 10)
	assert.True(t, feedkit.IsNoData(err))

	newSub := func(topic string, lease int64, verified bool) model.Subscription {
		sub := model.NewSubscription(topic, "http://hub", "http://cb", "token")
		switch {
		case verified:
			sub.MarkVerified(lease, now.Add(-time.Hour))
		case lease > 0:
			sub.SetLeaseSeconds(lease, now.Add(-time.Hour))
		}
		_, err := repo.Save(ctx, sub)
		require.NoError(t, err)
		return sub
	}

	oldest := newSub("http://example.com/a", 60, true)
	older := newSub("http://example.com/b", 120, true)
	newSub("http://example.com/c", 7200, true) // still leased
	newSub("http://example.com/d", 0, false)   // never leased
	pending := newSub("http://example.com/e", 90, false)

	expired, err := repo.FindExpired(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, expired, 3)
	assert.Equal(t, oldest.ID, expired[0].ID)
	assert.Equal(t, pending.ID, expired[1].ID, "a lapsed lease is purged while awaiting re-confirmation")
	assert.Equal(t, older.ID, expired[2].ID)

	limited, err := repo.FindExpired(ctx, now, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
