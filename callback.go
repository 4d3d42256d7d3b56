package feedkit

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/coregx/feedkit/model"
)

// Callback is the subscriber-side endpoint a hub talks to.
//
// GET requests are verification requests: when the hub parameters are complete,
// the topic is an absolute URI, and the verify token matches the stored record,
// a subscribe confirmation verifies the record and an unsubscribe confirmation
// deletes it. The response echoes hub.challenge with status 200.
//
// POST requests with a feed Content-Type for a known subscription are content
// distributions. The payload is passed to the FeedProcessor untouched and the
// response is always 200, whatever the payload looks like.
//
// Every other request, and every verification that fails, gets an empty 404 and
// leaves the store untouched.
//
// Thread safety: Safe for concurrent use. Concurrent verifications of the same
// record are not serialised; the last write wins.
type Callback struct {
	store               *Store
	processor           FeedProcessor
	logger              Logger
	notificationService NotificationService
	subscriberCount     atomic.Int64
}

// NewCallback creates a new Callback with the provided options.
//
// Required options:
//   - WithCallbackStore: subscription store
//
// Optional options:
//   - WithCallbackLogger: logger (default NoopLogger)
//   - WithFeedProcessor: payload consumer (default NoopProcessor)
//   - WithSubscriberCount: X-Hub-On-Behalf-Of fallback (default 1)
//   - WithNotifications: lifecycle notifications (default none)
func NewCallback(opts ...CallbackOption) (*Callback, error) {
	c := &Callback{
		processor:           NoopProcessor{},
		logger:              &NoopLogger{},
		notificationService: &NoOpNotificationService{},
	}
	c.subscriberCount.Store(1)

	for _, opt := range opts {
		if err := opt(c); err != nil {
			if IsCode(err, ErrCodeInvalidArgument) {
				return nil, err
			}
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply callback option", err)
		}
	}

	if c.store == nil {
		return nil, NewError(ErrCodeConfiguration, "Store is required (use WithCallbackStore)")
	}

	return c, nil
}

// SetSubscriberCount sets the X-Hub-On-Behalf-Of fallback value.
// Returns INVALID_ARGUMENT when n <= 0.
func (c *Callback) SetSubscriberCount(n int) error {
	if n <= 0 {
		return NewError(ErrCodeInvalidArgument, "subscriber count must be greater than zero, got "+strconv.Itoa(n))
	}
	c.subscriberCount.Store(int64(n))
	return nil
}

// SubscriberCount returns the X-Hub-On-Behalf-Of fallback value.
func (c *Callback) SubscriberCount() int {
	return int(c.subscriberCount.Load())
}

// Handle processes one hub request and returns the response to send.
//
// Untrusted input never produces an error, only a 404 response. An error is
// returned only when the Callback itself is not usable.
func (c *Callback) Handle(ctx context.Context, req *Request) (*Response, error) {
	if c == nil || c.store == nil {
		return nil, NewError(ErrCodeConfiguration, "callback has no store configured (use NewCallback)")
	}
	if req == nil {
		return nil, NewError(ErrCodeInvalidArgument, "request is required")
	}

	switch req.Method {
	case http.MethodGet:
		return c.handleVerification(ctx, req), nil
	case http.MethodPost:
		return c.handleDistribution(ctx, req), nil
	default:
		c.logger.Debugf("Callback rejected %s %s: method not allowed", req.Method, req.Path)
		return notFound(), nil
	}
}

// ServeHTTP adapts the callback to net/http.
func (c *Callback) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := RequestFromHTTP(r)
	if err != nil {
		c.logger.Warnf("Callback failed to read request: %v", err)
		_ = notFound().WriteTo(w)
		return
	}

	resp, err := c.Handle(r.Context(), req)
	if err != nil {
		c.logger.Errorf("Callback failed: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if err := resp.WriteTo(w); err != nil {
		c.logger.Warnf("Callback failed to write response: %v", err)
	}
}

func (c *Callback) handleVerification(ctx context.Context, req *Request) *Response {
	params := VerificationParamsFromRequest(req)
	if err := params.Validate(); err != nil {
		c.logger.Debugf("Verification rejected: %v", err)
		return notFound()
	}

	sub, ok := c.lookup(ctx, req)
	if !ok {
		return notFound()
	}

	if !sub.MatchesToken(params.VerifyToken) {
		c.logger.Warnf("Verification rejected: verify token mismatch for subscription %s", sub.ID)
		return notFound()
	}

	switch params.Mode {
	case ModeSubscribe:
		verified, err := c.store.Verify(ctx, sub.ID, params.Lease())
		if err != nil {
			c.logger.Errorf("Failed to verify subscription %s: %v", sub.ID, err)
			return notFound()
		}
		c.logger.Infof("Subscription %s verified for %ds", verified.ID, verified.LeaseSeconds)
		if err := c.notificationService.NotifySubscriptionVerified(ctx, *verified); err != nil {
			c.logger.Warnf("Failed to send verification notification: %v", err)
		}

	case ModeUnsubscribe:
		if _, err := c.store.Delete(ctx, sub.ID); err != nil {
			c.logger.Errorf("Failed to delete subscription %s: %v", sub.ID, err)
			return notFound()
		}
		c.logger.Infof("Subscription %s removed", sub.ID)
		if err := c.notificationService.NotifySubscriptionRemoved(ctx, *sub, RemovalUnsubscribed); err != nil {
			c.logger.Warnf("Failed to send removal notification: %v", err)
		}
	}

	return mustResponse(http.StatusOK, params.Challenge, map[string]any{
		"Content-Type": "text/plain; charset=utf-8",
	})
}

func (c *Callback) handleDistribution(ctx context.Context, req *Request) *Response {
	contentType := req.HeaderValue("Content-Type")
	if !IsFeedMediaType(contentType) {
		c.logger.Debugf("Distribution rejected: unsupported content type %q", contentType)
		return notFound()
	}

	sub, ok := c.lookup(ctx, req)
	if !ok {
		return notFound()
	}

	update := model.NewFeedUpdate(*sub, contentType, req.HeaderValue(HeaderSignature), req.Body,
		time.Unix(c.store.Now(), 0))
	if !update.Authentic {
		c.logger.Warnf("Distribution for subscription %s has an invalid signature", sub.ID)
	}

	if err := c.processor.Process(ctx, update); err != nil {
		c.logger.Warnf("Feed processor failed for subscription %s: %v", sub.ID, err)
	}
	if err := c.notificationService.NotifyUpdateReceived(ctx, update); err != nil {
		c.logger.Warnf("Failed to send update notification: %v", err)
	}

	count := c.SubscriberCount()
	if n, err := ParseSubscriberCount(req.HeaderValue(HeaderOnBehalfOf)); err == nil {
		count = n
	}

	return mustResponse(http.StatusOK, "", map[string]any{HeaderOnBehalfOf: count})
}

// lookup resolves the subscription key from xhub.subscription or the last path
// segment and loads the record.
func (c *Callback) lookup(ctx context.Context, req *Request) (*model.Subscription, bool) {
	key, ok := req.QueryParam(ParamSubscriptionKey)
	if !ok || key == "" {
		key = req.LastPathSegment()
	}
	if key == "" {
		c.logger.Debugf("Callback rejected %s %s: no subscription key", req.Method, req.Path)
		return nil, false
	}

	sub, err := c.store.Find(ctx, key)
	if err != nil {
		if IsNoData(err) {
			c.logger.Debugf("Callback rejected %s %s: unknown subscription %s", req.Method, req.Path, key)
		} else {
			c.logger.Errorf("Failed to load subscription %s: %v", key, err)
		}
		return nil, false
	}
	return sub, true
}

func notFound() *Response {
	return mustResponse(http.StatusNotFound, "", nil)
}
