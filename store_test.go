package feedkit_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coregx/feedkit"
	"github.com/coregx/feedkit/adapters/memory"
	"github.com/coregx/feedkit/model"
	"github.com/coregx/feedkit/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualClock is a Clock tests can move forward.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNewStore_RequiredOptions(t *testing.T) {
	repo := memory.NewSubscriptionRepository()

	tests := []struct {
		name string
		opts []feedkit.StoreOption
	}{
		{"no options", nil},
		{"missing clock", []feedkit.StoreOption{feedkit.WithStoreRepository(repo)}},
		{"missing repository", []feedkit.StoreOption{feedkit.WithStoreClock(feedkit.SystemClock{})}},
		{"nil repository", []feedkit.StoreOption{feedkit.WithStoreRepository(nil), feedkit.WithStoreClock(feedkit.SystemClock{})}},
		{"nil logger", []feedkit.StoreOption{
			feedkit.WithStoreRepository(repo), feedkit.WithStoreClock(feedkit.SystemClock{}), feedkit.WithStoreLogger(nil),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := feedkit.NewStore(tt.opts...)
			require.Error(t, err)
			assert.True(t, feedkit.IsCode(err, feedkit.ErrCodeConfiguration))
		})
	}
}

func TestStore_SaveFindDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	saved, err := store.Save(ctx, model.Subscription{TopicURL: testTopic})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID, "missing ID is generated")
	assert.Equal(t, testNow.Unix(), saved.CreatedTime)
	assert.Equal(t, model.StateUnverified, saved.State)

	found, err := store.Find(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, *saved, *found)

	// CreatedTime survives later saves.
	found.HubURL = testHub
	found.CreatedTime = 5
	resaved, err := store.Save(ctx, *found)
	require.NoError(t, err)
	assert.Equal(t, int64(5), resaved.CreatedTime)

	removed, err := store.Delete(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Delete(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = store.Find(ctx, saved.ID)
	assert.True(t, feedkit.IsNoData(err))

	_, err = store.Find(ctx, "")
	assert.True(t, feedkit.IsNoData(err))
}

func TestStore_LeaseRecomputesExpiration(t *testing.T) {
	ctx := context.Background()
	clock := &manualClock{now: testNow}
	store, err := feedkit.NewStore(
		feedkit.WithStoreRepository(memory.NewSubscriptionRepository()),
		feedkit.WithStoreClock(clock),
	)
	require.NoError(t, err)

	sub, err := store.Save(ctx, model.NewSubscription(testTopic, testHub, testCallback, testToken))
	require.NoError(t, err)

	sub, err = store.SetLeaseSeconds(ctx, sub.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, testNow.Unix()+100, sub.ExpirationTime)
	assert.Equal(t, model.StateUnverified, sub.State)

	clock.Advance(50 * time.Second)
	sub, err = store.SetExpirationTime(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, testNow.Unix()+150, sub.ExpirationTime)

	sub, err = store.Verify(ctx, sub.ID, 10)
	require.NoError(t, err)
	assert.True(t, sub.IsVerified())
	assert.Equal(t, testNow.Unix()+60, sub.ExpirationTime)

	_, err = store.Verify(ctx, "missing", 10)
	assert.True(t, feedkit.IsNoData(err))
}

func TestStore_StorageErrors(t *testing.T) {
	ctx := context.Background()
	store, err := feedkit.NewStore(
		feedkit.WithStoreRepository(failingRepository{}),
		feedkit.WithStoreClock(feedkit.FixedClock(testNow)),
	)
	require.NoError(t, err)

	_, err = store.Find(ctx, "id")
	assert.True(t, feedkit.IsCode(err, feedkit.ErrCodeStorage))

	_, err = store.Save(ctx, model.Subscription{ID: "id"})
	assert.True(t, feedkit.IsCode(err, feedkit.ErrCodeStorage))

	_, err = store.Delete(ctx, "id")
	assert.True(t, feedkit.IsCode(err, feedkit.ErrCodeStorage))

	_, err = store.PurgeExpired(ctx, 10)
	assert.True(t, feedkit.IsCode(err, feedkit.ErrCodeStorage))
}

func TestPurgeWorker_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	clock := &manualClock{now: testNow}
	repo := memory.NewSubscriptionRepository()
	store, err := feedkit.NewStore(feedkit.WithStoreRepository(repo), feedkit.WithStoreClock(clock))
	require.NoError(t, err)

	// Three verified with short leases, one with a long lease, one never verified.
	for i, lease := range []int64{10, 20, 30, 10000} {
		sub := model.NewSubscription(testTopic, testHub, testCallback+string(rune('a'+i)), testToken)
		saved, err := store.Save(ctx, sub)
		require.NoError(t, err)
		_, err = store.Verify(ctx, saved.ID, lease)
		require.NoError(t, err)
	}
	pending, err := store.Save(ctx, model.NewSubscription("http://example.com/pending", testHub, testCallback, testToken))
	require.NoError(t, err)

	notes := &recordingNotifications{}
	worker, err := feedkit.NewPurgeWorker(
		feedkit.WithPurgeStore(store),
		feedkit.WithPurgeBatchSize(2),
		feedkit.WithPurgeNotifications(notes),
	)
	require.NoError(t, err)

	n, err := worker.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "nothing expired yet")

	clock.Advance(time.Hour)
	n, err = worker.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, notes.events, 3)
	assert.Equal(t, 2, repo.Count())

	_, err = store.Find(ctx, pending.ID)
	assert.NoError(t, err, "records without a granted lease are never purged")
}

func TestPurgeWorker_RunStopsOnCancel(t *testing.T) {
	store, _ := newTestStore(t)
	worker, err := feedkit.NewPurgeWorker(feedkit.WithPurgeStore(store))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestNewPurgeWorker_Options(t *testing.T) {
	_, err := feedkit.NewPurgeWorker()
	require.Error(t, err)
	assert.True(t, feedkit.IsCode(err, feedkit.ErrCodeConfiguration))

	store, _ := newTestStore(t)
	_, err = feedkit.NewPurgeWorker(feedkit.WithPurgeStore(store), feedkit.WithPurgeBatchSize(0))
	require.Error(t, err)
	assert.True(t, feedkit.IsCode(err, feedkit.ErrCodeConfiguration))

	_, err = feedkit.NewPurgeWorker(feedkit.WithPurgeStore(store), feedkit.WithPurgeBackoff(retry.Strategy{}))
	require.Error(t, err)
	assert.True(t, feedkit.IsCode(err, feedkit.ErrCodeConfiguration))
}

// countingRepository fails every FindExpired call and counts them.
type countingRepository struct {
	failingRepository
	calls atomic.Int32
}

func (r *countingRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]model.Subscription, error) {
	r.calls.Add(1)
	return r.failingRepository.FindExpired(ctx, now, limit)
}

func TestPurgeWorker_RunBacksOffOnFailure(t *testing.T) {
	repo := &countingRepository{}
	store, err := feedkit.NewStore(
		feedkit.WithStoreRepository(repo),
		feedkit.WithStoreClock(feedkit.FixedClock(testNow)),
	)
	require.NoError(t, err)

	worker, err := feedkit.NewPurgeWorker(
		feedkit.WithPurgeStore(store),
		feedkit.WithPurgeBackoff(retry.Strategy{BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second, ExponentialBase: 2}),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	worker.Run(ctx, time.Millisecond)

	calls := repo.calls.Load()
	assert.GreaterOrEqual(t, calls, int32(1))
	assert.LessOrEqual(t, calls, int32(3), "failed passes must back off instead of running every interval")
}
