package feedkit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coregx/feedkit/model"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// Subscriber sends subscription requests to hubs on behalf of this callback.
//
// Key operations:
//   - Subscribe: Store an unverified subscription and ask the hub to confirm it
//   - Unsubscribe: Ask the hub to confirm removal of a stored subscription
//
// The hub answers asynchronously through the Callback; the Subscriber never marks
// records verified or deletes them itself. Hub requests are not retried.
//
// Thread safety: Safe for concurrent use.
type Subscriber struct {
	store        *Store
	client       *http.Client
	logger       Logger
	callbackBase string
}

// SubscriberOption is a function that configures a Subscriber.
type SubscriberOption func(*Subscriber) error

// NewSubscriber creates a new Subscriber with the provided options.
//
// Required options:
//   - WithSubscriberStore: subscription store
//   - WithCallbackBaseURL: public URL of the callback; subscription keys are appended to it
//
// Example:
//
//	subscriber, err := feedkit.NewSubscriber(
//	    feedkit.WithSubscriberStore(store),
//	    feedkit.WithCallbackBaseURL("https://example.com/callback"),
//	    feedkit.WithSubscriberLogger(logger),
//	)
func NewSubscriber(opts ...SubscriberOption) (*Subscriber, error) {
	s := &Subscriber{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: &NoopLogger{},
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply subscriber option", err)
		}
	}

	if s.store == nil {
		return nil, NewError(ErrCodeConfiguration, "Store is required (use WithSubscriberStore)")
	}
	if s.callbackBase == "" {
		return nil, NewError(ErrCodeConfiguration, "callback base URL is required (use WithCallbackBaseURL)")
	}

	return s, nil
}

// WithSubscriberStore sets the subscription store. Required.
func WithSubscriberStore(store *Store) SubscriberOption {
	return func(s *Subscriber) error {
		if store == nil {
			return fmt.Errorf("store cannot be nil")
		}
		s.store = store
		return nil
	}
}

// WithSubscriberHTTPClient sets the client used to reach hubs.
// Optional, defaults to a client with a 30 second timeout.
func WithSubscriberHTTPClient(client *http.Client) SubscriberOption {
	return func(s *Subscriber) error {
		if client == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		s.client = client
		return nil
	}
}

// WithSubscriberLogger sets the logger instance. Optional, defaults to NoopLogger.
func WithSubscriberLogger(logger Logger) SubscriberOption {
	return func(s *Subscriber) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithCallbackBaseURL sets the absolute URL hubs call back. Required.
func WithCallbackBaseURL(base string) SubscriberOption {
	return func(s *Subscriber) error {
		if err := absoluteURI(base); err != nil || base == "" {
			return fmt.Errorf("callback base URL %q must be an absolute URI", base)
		}
		s.callbackBase = base
		return nil
	}
}

// SubscribeRequest represents a request to subscribe to a topic through a hub.
type SubscribeRequest struct {
	HubURL       string `json:"hub"`
	TopicURL     string `json:"topic"`
	LeaseSeconds int64  `json:"leaseSeconds"` // requested lease, 0 lets the hub decide
	Secret       string `json:"secret"`       // optional, enables signed distributions
}

// Validate implements validation.Validatable.
func (r SubscribeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.HubURL, validation.Required, validation.By(absoluteURI)),
		validation.Field(&r.TopicURL, validation.Required, validation.By(absoluteURI)),
		validation.Field(&r.LeaseSeconds, validation.Min(int64(0))),
		validation.Field(&r.Secret, validation.Length(0, 199)),
	)
}

// Subscribe stores an unverified subscription and sends hub.mode=subscribe to the hub.
// Re-subscribing to a stored topic rotates the verify token and resets the record to
// unverified until the hub confirms the new token. The lease and expiration carry over,
// so a lapsed lease is still purged if the hub never answers.
//
// When the hub does not accept the request the previous record is restored, or the
// new one removed, so no unconfirmed token is left behind.
//
// Returns INVALID_ARGUMENT for a malformed request, STORAGE_ERROR when the record
// cannot be stored and DELIVERY_ERROR when the hub does not accept the request.
func (s *Subscriber) Subscribe(ctx context.Context, req SubscribeRequest) (*model.Subscription, error) {
	if err := req.Validate(); err != nil {
		return nil, NewErrorWithCause(ErrCodeInvalidArgument, "invalid subscribe request", err)
	}

	token := uuid.NewString()
	sub := model.NewSubscription(req.TopicURL, req.HubURL, s.callbackBase, token)
	previous, err := s.store.Find(ctx, sub.ID)
	switch {
	case err == nil:
		sub.LeaseSeconds = previous.LeaseSeconds
		sub.CreatedTime = previous.CreatedTime
		sub.ExpirationTime = previous.ExpirationTime
	case IsNoData(err):
		previous = nil
	default:
		return nil, err
	}
	sub.Secret = req.Secret

	saved, err := s.store.Save(ctx, sub)
	if err != nil {
		return nil, err
	}

	if err := s.send(ctx, ModeSubscribe, *saved, token, req.LeaseSeconds); err != nil {
		s.restore(ctx, saved.ID, previous)
		return nil, err
	}

	s.logger.Infof("Subscribe request accepted: id=%s, topic=%s, hub=%s", saved.ID, saved.TopicURL, saved.HubURL)
	return saved, nil
}

// Unsubscribe sends hub.mode=unsubscribe for a stored subscription. The record is
// deleted later, when the hub confirms through the Callback. Until then it holds
// the new token and is unverified; a rejected request restores the previous record.
func (s *Subscriber) Unsubscribe(ctx context.Context, id string) error {
	previous, err := s.store.Find(ctx, id)
	if err != nil {
		return err
	}

	token := uuid.NewString()
	sub := *previous
	sub.VerifyTokenHash = model.HashToken(token)
	sub.State = model.StateUnverified
	if _, err := s.store.Save(ctx, sub); err != nil {
		return err
	}

	if err := s.send(ctx, ModeUnsubscribe, sub, token, 0); err != nil {
		s.restore(ctx, sub.ID, previous)
		return err
	}

	s.logger.Infof("Unsubscribe request accepted: id=%s, topic=%s", sub.ID, sub.TopicURL)
	return nil
}

// restore puts back the record that existed before a rejected hub request,
// or removes the record when there was none.
func (s *Subscriber) restore(ctx context.Context, id string, previous *model.Subscription) {
	var err error
	if previous != nil {
		_, err = s.store.Save(ctx, *previous)
	} else {
		_, err = s.store.Delete(ctx, id)
	}
	if err != nil {
		s.logger.Errorf("Failed to restore subscription %s after hub rejection: %v", id, err)
	}
}

func (s *Subscriber) send(ctx context.Context, mode string, sub model.Subscription, token string, lease int64) error {
	form := url.Values{}
	form.Set(ParamCallback, sub.CallbackURL)
	form.Set(ParamMode, mode)
	form.Set(ParamTopic, sub.TopicURL)
	form.Add(ParamVerify, "sync")
	form.Add(ParamVerify, "async")
	form.Set(ParamVerifyToken, token)
	if lease > 0 {
		form.Set(ParamLeaseSeconds, strconv.FormatInt(lease, 10))
	}
	if sub.Secret != "" && mode == ModeSubscribe {
		form.Set(ParamSecret, sub.Secret)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.HubURL, strings.NewReader(form.Encode()))
	if err != nil {
		return NewErrorWithCause(ErrCodeDelivery, "failed to build hub request", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := s.client.Do(httpReq)
	if err != nil {
		return NewErrorWithCause(ErrCodeDelivery, fmt.Sprintf("hub %s unreachable", sub.HubURL), err)
	}
	resp := DecorateHTTPResponse(httpResp)
	body := resp.Body()

	switch resp.StatusCode() {
	case http.StatusAccepted, http.StatusNoContent:
		return nil
	}

	if len(body) > 200 {
		body = body[:200]
	}
	s.logger.Warnf("Hub %s rejected %s for %s: status=%d", sub.HubURL, mode, sub.TopicURL, resp.StatusCode())
	return NewError(ErrCodeDelivery, fmt.Sprintf("hub rejected %s request: status %d: %s", mode, resp.StatusCode(), body))
}
