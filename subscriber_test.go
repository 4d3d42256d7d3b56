package feedkit_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/coregx/feedkit"
	"github.com/coregx/feedkit/adapters/memory"
	"github.com/coregx/feedkit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHub records subscription requests and answers with a fixed status.
type fakeHub struct {
	mu       sync.Mutex
	status   int
	requests []url.Values
}

func (h *fakeHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	h.mu.Lock()
	h.requests = append(h.requests, r.PostForm)
	h.mu.Unlock()
	w.WriteHeader(h.status)
	_, _ = w.Write([]byte("hub says no"))
}

func (h *fakeHub) last() url.Values {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.requests[len(h.requests)-1]
}

func (h *fakeHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.requests)
}

func newTestSubscriber(t *testing.T, store *feedkit.Store) *feedkit.Subscriber {
	t.Helper()
	s, err := feedkit.NewSubscriber(
		feedkit.WithSubscriberStore(store),
		feedkit.WithCallbackBaseURL(testCallback),
	)
	require.NoError(t, err)
	return s
}

func TestNewSubscriber_RequiredOptions(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := feedkit.NewSubscriber(feedkit.WithCallbackBaseURL(testCallback))
	assert.True(t, feedkit.IsCode(err, feedkit.ErrCodeConfiguration))

	_, err = feedkit.NewSubscriber(feedkit.WithSubscriberStore(store))
	assert.True(t, feedkit.IsCode(err, feedkit.ErrCodeConfiguration))

	_, err = feedkit.NewSubscriber(feedkit.WithSubscriberStore(store), feedkit.WithCallbackBaseURL("/relative"))
	assert.True(t, feedkit.IsCode(err, feedkit.ErrCodeConfiguration))
}

func TestSubscriber_SubscribeThenVerify(t *testing.T) {
	ctx := context.Background()
	hub := &fakeHub{status: http.StatusAccepted}
	hubSrv := httptest.NewServer(hub)
	defer hubSrv.Close()

	store, _ := newTestStore(t)
	subscriber := newTestSubscriber(t, store)

	sub, err := subscriber.Subscribe(ctx, feedkit.SubscribeRequest{
		HubURL:       hubSrv.URL,
		TopicURL:     testTopic,
		LeaseSeconds: 3600,
		Secret:       "s3cret",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StateUnverified, sub.State)
	assert.Equal(t, testCallback+"/"+sub.ID, sub.CallbackURL)

	form := hub.last()
	assert.Equal(t, "subscribe", form.Get("hub.mode"))
	assert.Equal(t, testTopic, form.Get("hub.topic"))
	assert.Equal(t, sub.CallbackURL, form.Get("hub.callback"))
	assert.Equal(t, "3600", form.Get("hub.lease_seconds"))
	assert.Equal(t, "s3cret", form.Get("hub.secret"))
	assert.Equal(t, []string{"sync", "async"}, form["hub.verify"])
	token := form.Get("hub.verify_token")
	require.NotEmpty(t, token)
	assert.Equal(t, model.HashToken(token), sub.VerifyTokenHash)

	// The hub confirms through the callback with the token it was given.
	cb := newTestCallback(t, store)
	q := url.Values{}
	q.Set("hub.mode", "subscribe")
	q.Set("hub.topic", testTopic)
	q.Set("hub.challenge", "challenge-1")
	q.Set("hub.verify_token", token)
	q.Set("hub.lease_seconds", "3600")
	callbackPath := "/callback/" + sub.ID

	resp, err := cb.Handle(ctx, feedkit.NewRequest("GET", callbackPath, q.Encode(), nil, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "challenge-1", resp.Body())

	stored, err := store.Find(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsVerified())

	// Unsubscribe rotates the token; the old one no longer verifies.
	require.NoError(t, subscriber.Unsubscribe(ctx, sub.ID))
	form = hub.last()
	assert.Equal(t, "unsubscribe", form.Get("hub.mode"))
	assert.Empty(t, form.Get("hub.secret"))
	newToken := form.Get("hub.verify_token")
	require.NotEqual(t, token, newToken)

	q.Set("hub.mode", "unsubscribe")
	q.Del("hub.lease_seconds")
	resp, err = cb.Handle(ctx, feedkit.NewRequest("GET", callbackPath, q.Encode(), nil, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())

	q.Set("hub.verify_token", newToken)
	resp, err = cb.Handle(ctx, feedkit.NewRequest("GET", callbackPath, q.Encode(), nil, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	_, err = store.Find(ctx, sub.ID)
	assert.True(t, feedkit.IsNoData(err))
}

func TestSubscriber_ResubscribeAwaitsConfirmation(t *testing.T) {
	ctx := context.Background()
	hub := &fakeHub{status: http.StatusNoContent}
	hubSrv := httptest.NewServer(hub)
	defer hubSrv.Close()

	clock := &manualClock{now: testNow}
	store, err := feedkit.NewStore(
		feedkit.WithStoreRepository(memory.NewSubscriptionRepository()),
		feedkit.WithStoreClock(clock),
	)
	require.NoError(t, err)
	subscriber := newTestSubscriber(t, store)
	req := feedkit.SubscribeRequest{HubURL: hubSrv.URL, TopicURL: testTopic}

	first, err := subscriber.Subscribe(ctx, req)
	require.NoError(t, err)
	confirmed := hub.last().Get("hub.verify_token")
	verified, err := store.Verify(ctx, first.ID, 100)
	require.NoError(t, err)

	second, err := subscriber.Subscribe(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, model.StateUnverified, second.State)
	assert.False(t, second.MatchesToken(confirmed))
	assert.True(t, second.MatchesToken(hub.last().Get("hub.verify_token")))
	assert.Equal(t, verified.LeaseSeconds, second.LeaseSeconds)
	assert.Equal(t, verified.ExpirationTime, second.ExpirationTime)
	assert.Empty(t, hub.last().Get("hub.lease_seconds"))

	// The hub never confirms; the carried-over lease still lapses.
	clock.Advance(101 * time.Second)
	removed, err := store.PurgeExpired(ctx, 10)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, first.ID, removed[0].ID)
}

func TestSubscriber_HubRejects(t *testing.T) {
	hub := &fakeHub{status: http.StatusBadRequest}
	hubSrv := httptest.NewServer(hub)
	defer hubSrv.Close()

	ctx := context.Background()
	store, repo := newTestStore(t)
	subscriber := newTestSubscriber(t, store)

	sub, err := subscriber.Subscribe(ctx, feedkit.SubscribeRequest{HubURL: hubSrv.URL, TopicURL: testTopic})
	require.Error(t, err)
	assert.True(t, feedkit.IsCode(err, feedkit.ErrCodeDelivery))
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "hub says no")
	assert.Nil(t, sub)
	assert.Equal(t, 0, repo.Count(), "rejected subscription is not kept")
	assert.Equal(t, 1, hub.count(), "no automatic retries")
}

func TestSubscriber_HubRejectsRestoresRecord(t *testing.T) {
	ctx := context.Background()
	hub := &fakeHub{status: http.StatusAccepted}
	hubSrv := httptest.NewServer(hub)
	defer hubSrv.Close()

	store, _ := newTestStore(t)
	subscriber := newTestSubscriber(t, store)
	req := feedkit.SubscribeRequest{HubURL: hubSrv.URL, TopicURL: testTopic}

	first, err := subscriber.Subscribe(ctx, req)
	require.NoError(t, err)
	confirmed := hub.last().Get("hub.verify_token")
	verified, err := store.Verify(ctx, first.ID, 3600)
	require.NoError(t, err)

	hub.mu.Lock()
	hub.status = http.StatusInternalServerError
	hub.mu.Unlock()

	_, err = subscriber.Subscribe(ctx, req)
	assert.True(t, feedkit.IsCode(err, feedkit.ErrCodeDelivery))
	err = subscriber.Unsubscribe(ctx, first.ID)
	assert.True(t, feedkit.IsCode(err, feedkit.ErrCodeDelivery))

	stored, err := store.Find(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, *verified, *stored)
	assert.True(t, stored.MatchesToken(confirmed))
}

func TestSubscriber_UnsubscribeAwaitsConfirmation(t *testing.T) {
	ctx := context.Background()
	hub := &fakeHub{status: http.StatusAccepted}
	hubSrv := httptest.NewServer(hub)
	defer hubSrv.Close()

	store, _ := newTestStore(t)
	subscriber := newTestSubscriber(t, store)

	sub, err := subscriber.Subscribe(ctx, feedkit.SubscribeRequest{HubURL: hubSrv.URL, TopicURL: testTopic})
	require.NoError(t, err)
	verified, err := store.Verify(ctx, sub.ID, 3600)
	require.NoError(t, err)

	require.NoError(t, subscriber.Unsubscribe(ctx, sub.ID))

	pending, err := store.Find(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateUnverified, pending.State)
	assert.True(t, pending.MatchesToken(hub.last().Get("hub.verify_token")))
	assert.Equal(t, verified.ExpirationTime, pending.ExpirationTime)
}

func TestSubscriber_InvalidRequest(t *testing.T) {
	store, _ := newTestStore(t)
	subscriber := newTestSubscriber(t, store)

	tests := []struct {
		name string
		req  feedkit.SubscribeRequest
	}{
		{"missing hub", feedkit.SubscribeRequest{TopicURL: testTopic}},
		{"missing topic", feedkit.SubscribeRequest{HubURL: testHub}},
		{"relative topic", feedkit.SubscribeRequest{HubURL: testHub, TopicURL: "feed.xml"}},
		{"negative lease", feedkit.SubscribeRequest{HubURL: testHub, TopicURL: testTopic, LeaseSeconds: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := subscriber.Subscribe(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, feedkit.IsCode(err, feedkit.ErrCodeInvalidArgument))
		})
	}
}

func TestSubscriber_UnsubscribeUnknown(t *testing.T) {
	store, _ := newTestStore(t)
	subscriber := newTestSubscriber(t, store)

	err := subscriber.Unsubscribe(context.Background(), "missing")
	assert.True(t, feedkit.IsNoData(err))
}
