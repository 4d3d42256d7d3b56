package feedkit_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/coregx/feedkit"
	"github.com/coregx/feedkit/adapters/memory"
	"github.com/coregx/feedkit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTopic    = "http://example.com/topic"
	testHub      = "http://hub.example.com/"
	testCallback = "http://subscriber.example.com/callback"
	testToken    = "cba"
)

var testNow = time.Unix(1700000000, 0)

func newTestStore(t *testing.T) (*feedkit.Store, *memory.SubscriptionRepository) {
	t.Helper()
	repo := memory.NewSubscriptionRepository()
	store, err := feedkit.NewStore(
		feedkit.WithStoreRepository(repo),
		feedkit.WithStoreClock(feedkit.FixedClock(testNow)),
	)
	require.NoError(t, err)
	return store, repo
}

func seedSubscription(t *testing.T, store *feedkit.Store) *model.Subscription {
	t.Helper()
	sub, err := store.Save(context.Background(), model.NewSubscription(testTopic, testHub, testCallback, testToken))
	require.NoError(t, err)
	return sub
}

func newTestCallback(t *testing.T, store *feedkit.Store, opts ...feedkit.CallbackOption) *feedkit.Callback {
	t.Helper()
	cb, err := feedkit.NewCallback(append([]feedkit.CallbackOption{feedkit.WithCallbackStore(store)}, opts...)...)
	require.NoError(t, err)
	return cb
}

func verificationQuery(mode, token string, lease string) string {
	q := url.Values{}
	q.Set("hub.mode", mode)
	q.Set("hub.topic", testTopic)
	q.Set("hub.challenge", "abc")
	q.Set("hub.verify_token", token)
	if lease != "" {
		q.Set("hub.lease_seconds", lease)
	}
	return q.Encode()
}

func TestNewCallback_RequiresStore(t *testing.T) {
	_, err := feedkit.NewCallback()
	require.Error(t, err)
	assert.True(t, feedkit.IsCode(err, feedkit.ErrCodeConfiguration))

	_, err = feedkit.NewCallback(feedkit.WithCallbackStore(nil))
	require.Error(t, err)
	assert.True(t, feedkit.IsCode(err, feedkit.ErrCodeConfiguration))
}

func TestCallback_HandleWithoutStore(t *testing.T) {
	var cb feedkit.Callback
	_, err := cb.Handle(context.Background(), feedkit.NewRequest("GET", "/callback/x", "", nil, nil))
	require.Error(t, err)
	assert.True(t, feedkit.IsCode(err, feedkit.ErrCodeConfiguration))
}

func TestCallback_SubscriberCount(t *testing.T) {
	store, _ := newTestStore(t)
	cb := newTestCallback(t, store)
	assert.Equal(t, 1, cb.SubscriberCount())

	for _, n := range []int{0, -1, -100} {
		err := cb.SetSubscriberCount(n)
		require.Error(t, err)
		assert.True(t, feedkit.IsCode(err, feedkit.ErrCodeInvalidArgument))
	}
	assert.Equal(t, 1, cb.SubscriberCount())

	require.NoError(t, cb.SetSubscriberCount(7))
	assert.Equal(t, 7, cb.SubscriberCount())

	_, err := feedkit.NewCallback(feedkit.WithCallbackStore(store), feedkit.WithSubscriberCount(0))
	require.Error(t, err)
	assert.True(t, feedkit.IsCode(err, feedkit.ErrCodeInvalidArgument))
}

func TestParseSubscriberCount(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"1", 1, false},
		{" 42 ", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"", 0, true},
		{"abc", 0, true},
		{"1.5", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n, err := feedkit.ParseSubscriberCount(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, feedkit.IsCode(err, feedkit.ErrCodeInvalidArgument))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestCallback_SubscribeVerification(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	sub := seedSubscription(t, store)
	require.Equal(t, "6d970874d0db767a7058798973f22cf6589601edab57996312f2ef7b56e5584d", sub.VerifyTokenHash)

	notes := &recordingNotifications{}
	cb := newTestCallback(t, store, feedkit.WithNotifications(notes))

	resp, err := cb.Handle(ctx, feedkit.NewRequest("GET", "/callback/"+sub.ID,
		verificationQuery("subscribe", testToken, "1234567"), nil, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "abc", resp.Body())

	stored, err := store.Find(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateVerified, stored.State)
	assert.Equal(t, int64(1234567), stored.LeaseSeconds)
	assert.Equal(t, stored.CreatedTime+1234567, stored.ExpirationTime)
	assert.Equal(t, []string{"verified:" + sub.ID}, notes.events)
}

func TestCallback_SubscribeVerificationLargeLease(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	sub := seedSubscription(t, store)
	cb := newTestCallback(t, store)

	resp, err := cb.Handle(ctx, feedkit.NewRequest("GET", "/callback/"+sub.ID,
		verificationQuery("subscribe", testToken, "10000000000"), nil, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	stored, err := store.Find(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000000000), stored.LeaseSeconds)
	assert.Equal(t, testNow.Unix()+10000000000, stored.ExpirationTime)
	assert.False(t, stored.IsExpired(testNow))
}

func TestCallback_VerificationIgnoresStoredTopic(t *testing.T) {
	tests := []struct {
		name  string
		topic string
	}{
		{"no stored topic", ""},
		{"different stored topic", "http://example.com/other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store, _ := newTestStore(t)
			_, err := store.Save(ctx, model.Subscription{
				ID:              "verifytokenkey",
				TopicURL:        tt.topic,
				VerifyTokenHash: model.HashToken(testToken),
			})
			require.NoError(t, err)
			cb := newTestCallback(t, store)

			resp, err := cb.Handle(ctx, feedkit.NewRequest("GET", "/callback/verifytokenkey",
				verificationQuery("subscribe", testToken, "1234567"), nil, nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode())
			assert.Equal(t, "abc", resp.Body())

			stored, err := store.Find(ctx, "verifytokenkey")
			require.NoError(t, err)
			assert.True(t, stored.IsVerified())
			assert.Equal(t, testNow.Unix()+1234567, stored.ExpirationTime)
		})
	}
}

func TestCallback_UnderscoreParamsAndQueryKey(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	sub := seedSubscription(t, store)
	cb := newTestCallback(t, store)

	q := url.Values{}
	q.Set("hub_mode", "subscribe")
	q.Set("hub_topic", testTopic)
	q.Set("hub_challenge", "xyz")
	q.Set("hub_verify_token", testToken)
	q.Set("hub_lease_seconds", "60")
	q.Set("xhub.subscription", sub.ID)

	resp, err := cb.Handle(ctx, feedkit.NewRequest("GET", "/callback", q.Encode(), nil, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "xyz", resp.Body())

	stored, err := store.Find(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsVerified())
	assert.Equal(t, testNow.Unix()+60, stored.ExpirationTime)
}

func TestCallback_UnsubscribeVerification(t *testing.T) {
	ctx := context.Background()
	store, repo := newTestStore(t)
	sub := seedSubscription(t, store)
	notes := &recordingNotifications{}
	cb := newTestCallback(t, store, feedkit.WithNotifications(notes))

	resp, err := cb.Handle(ctx, feedkit.NewRequest("GET", "/callback/"+sub.ID,
		verificationQuery("unsubscribe", testToken, ""), nil, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "abc", resp.Body())

	_, err = store.Find(ctx, sub.ID)
	assert.True(t, feedkit.IsNoData(err))
	assert.Equal(t, 0, repo.Count())
	assert.Equal(t, []string{"removed:" + sub.ID + ":unsubscribed"}, notes.events)
}

func TestCallback_InvalidVerification(t *testing.T) {
	base := url.Values{
		"hub.mode":          {"subscribe"},
		"hub.topic":         {testTopic},
		"hub.challenge":     {"abc"},
		"hub.verify_token":  {testToken},
		"hub.lease_seconds": {"1234567"},
	}
	without := func(name string) string {
		q := url.Values{}
		for k, v := range base {
			if k != name {
				q[k] = v
			}
		}
		return q.Encode()
	}
	with := func(name, value string) string {
		q := url.Values{}
		for k, v := range base {
			q[k] = v
		}
		q.Set(name, value)
		return q.Encode()
	}

	tests := []struct {
		name   string
		method string
		path   string
		query  string
	}{
		{"missing mode", "GET", "", without("hub.mode")},
		{"missing topic", "GET", "", without("hub.topic")},
		{"missing challenge", "GET", "", without("hub.challenge")},
		{"missing verify token", "GET", "", without("hub.verify_token")},
		{"missing lease on subscribe", "GET", "", without("hub.lease_seconds")},
		{"non-numeric lease", "GET", "", with("hub.lease_seconds", "12a")},
		{"negative lease", "GET", "", with("hub.lease_seconds", "-5")},
		{"unknown mode", "GET", "", with("hub.mode", "publish")},
		{"relative topic", "GET", "", with("hub.topic", "/topic")},
		{"wrong token", "GET", "", with("hub.verify_token", "abc")},
		{"unknown key", "GET", "/callback/unknown", base.Encode()},
		{"no key", "GET", "/", base.Encode()},
		{"put method", "PUT", "", base.Encode()},
		{"delete method", "DELETE", "", base.Encode()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store, _ := newTestStore(t)
			sub := seedSubscription(t, store)
			cb := newTestCallback(t, store)

			path := tt.path
			if path == "" {
				path = "/callback/" + sub.ID
			}

			resp, err := cb.Handle(ctx, feedkit.NewRequest(tt.method, path, tt.query, nil, nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode())
			assert.Empty(t, resp.Body())

			stored, err := store.Find(ctx, sub.ID)
			require.NoError(t, err)
			assert.Equal(t, *sub, *stored, "store must be untouched")
		})
	}
}

func TestCallback_Distribution(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	sub := seedSubscription(t, store)

	var received []model.FeedUpdate
	processor := feedkit.FeedProcessorFunc(func(_ context.Context, u model.FeedUpdate) error {
		received = append(received, u)
		return errors.New("processor failure is ignored")
	})
	cb := newTestCallback(t, store, feedkit.WithFeedProcessor(processor))

	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"atom", "application/atom+xml", "<feed xmlns='http://www.w3.org/2005/Atom'/>"},
		{"malformed body", "application/atom+xml", "this is not xml <<"},
		{"rss with charset", "application/RSS+XML; charset=utf-8", "<rss/>"},
		{"generic xml", "text/xml", "<rss/>"},
		{"rdf", "application/rdf+xml", "<rdf:RDF/>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			header.Set("Content-Type", tt.contentType)

			resp, err := cb.Handle(ctx, feedkit.NewRequest("POST", "/callback/"+sub.ID, "", header, []byte(tt.body)))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode())
			assert.Equal(t, "1", resp.HeaderLine(feedkit.HeaderOnBehalfOf, ""))
		})
	}

	require.Len(t, received, len(tests))
	assert.Equal(t, sub.ID, received[1].SubscriptionID)
	assert.Equal(t, "this is not xml <<", received[1].String())
	assert.True(t, received[1].Authentic)
}

func TestCallback_DistributionRejected(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	sub := seedSubscription(t, store)

	calls := 0
	cb := newTestCallback(t, store, feedkit.WithFeedProcessor(feedkit.FeedProcessorFunc(
		func(context.Context, model.FeedUpdate) error {
			calls++
			return nil
		})))

	tests := []struct {
		name        string
		method      string
		path        string
		contentType string
	}{
		{"kml content type", "POST", "/callback/" + sub.ID, "application/kml+xml"},
		{"json content type", "POST", "/callback/" + sub.ID, "application/json"},
		{"missing content type", "POST", "/callback/" + sub.ID, ""},
		{"unknown subscription", "POST", "/callback/missing", "application/atom+xml"},
		{"feed body via GET", "GET", "/callback/" + sub.ID, "application/atom+xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.contentType != "" {
				header.Set("Content-Type", tt.contentType)
			}
			resp, err := cb.Handle(ctx, feedkit.NewRequest(tt.method, tt.path, "", header, []byte("<feed/>")))
			require.NoError(t, err)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode())
			assert.Empty(t, resp.Body())
			assert.Empty(t, resp.HeaderLine(feedkit.HeaderOnBehalfOf, ""))
		})
	}
	assert.Equal(t, 0, calls)
}

func TestCallback_OnBehalfOf(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	sub := seedSubscription(t, store)
	cb := newTestCallback(t, store, feedkit.WithSubscriberCount(3))

	post := func(onBehalfOf string) *feedkit.Response {
		header := http.Header{}
		header.Set("Content-Type", "application/atom+xml")
		if onBehalfOf != "" {
			header.Set(feedkit.HeaderOnBehalfOf, onBehalfOf)
		}
		resp, err := cb.Handle(ctx, feedkit.NewRequest("POST", "/callback/"+sub.ID, "", header, nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode())
		return resp
	}

	assert.Equal(t, "3", post("").HeaderLine(feedkit.HeaderOnBehalfOf, ""))
	assert.Equal(t, "12", post("12").HeaderLine(feedkit.HeaderOnBehalfOf, ""))
	assert.Equal(t, "3", post("0").HeaderLine(feedkit.HeaderOnBehalfOf, ""))
	assert.Equal(t, "3", post("many").HeaderLine(feedkit.HeaderOnBehalfOf, ""))
}

func TestCallback_SignedDistribution(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	seed := model.NewSubscription(testTopic, testHub, testCallback, testToken)
	seed.Secret = "s3cret"
	sub, err := store.Save(ctx, seed)
	require.NoError(t, err)

	var got model.FeedUpdate
	cb := newTestCallback(t, store, feedkit.WithFeedProcessor(feedkit.FeedProcessorFunc(
		func(_ context.Context, u model.FeedUpdate) error {
			got = u
			return nil
		})))

	header := http.Header{}
	header.Set("Content-Type", "application/atom+xml")
	header.Set(feedkit.HeaderSignature, "sha1=0000")
	resp, err := cb.Handle(ctx, feedkit.NewRequest("POST", "/callback/"+sub.ID, "", header, []byte("<feed/>")))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.False(t, got.Authentic)
	assert.Equal(t, "sha1=0000", got.Signature)
}

type failingRepository struct{}

func (failingRepository) Load(context.Context, string) (model.Subscription, error) {
	return model.Subscription{}, errors.New("connection refused")
}

func (failingRepository) Save(_ context.Context, m model.Subscription) (model.Subscription, error) {
	return m, errors.New("connection refused")
}

func (failingRepository) Delete(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

func (failingRepository) FindExpired(context.Context, time.Time, int) ([]model.Subscription, error) {
	return nil, errors.New("connection refused")
}

func TestCallback_StorageFailureIsNotFound(t *testing.T) {
	store, err := feedkit.NewStore(
		feedkit.WithStoreRepository(failingRepository{}),
		feedkit.WithStoreClock(feedkit.FixedClock(testNow)),
	)
	require.NoError(t, err)
	cb := newTestCallback(t, store)

	resp, err := cb.Handle(context.Background(), feedkit.NewRequest("GET", "/callback/key",
		verificationQuery("subscribe", testToken, "60"), nil, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestCallback_ServeHTTP(t *testing.T) {
	store, _ := newTestStore(t)
	sub := seedSubscription(t, store)
	cb := newTestCallback(t, store)

	srv := httptest.NewServer(cb)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/callback/" + sub.ID + "?" + verificationQuery("subscribe", testToken, "300"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/callback/"+sub.ID, "application/atom+xml", strings.NewReader("<feed/>"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get(feedkit.HeaderOnBehalfOf))

	resp, err = http.Post(srv.URL+"/callback/"+sub.ID, "application/kml+xml", strings.NewReader("<kml/>"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type recordingNotifications struct {
	events []string
}

func (r *recordingNotifications) NotifySubscriptionVerified(_ context.Context, s model.Subscription) error {
	r.events = append(r.events, "verified:"+s.ID)
	return nil
}

func (r *recordingNotifications) NotifySubscriptionRemoved(_ context.Context, s model.Subscription, reason string) error {
	r.events = append(r.events, "removed:"+s.ID+":"+reason)
	return nil
}

func (r *recordingNotifications) NotifyUpdateReceived(_ context.Context, u model.FeedUpdate) error {
	r.events = append(r.events, "update:"+u.SubscriptionID)
	return nil
}
