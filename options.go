package feedkit

import (
	"fmt"
)

// CallbackOption is a function that configures a Callback.
// Used with the Options Pattern for flexible handler construction.
//
// Example:
//
//	cb, err := feedkit.NewCallback(
//	    feedkit.WithCallbackStore(store),
//	    feedkit.WithCallbackLogger(logger),
//	    feedkit.WithFeedProcessor(processor), // optional
//	    feedkit.WithSubscriberCount(3),       // optional
//	)
type CallbackOption func(*Callback) error

// WithCallbackStore sets the subscription store consulted and mutated by the callback.
//
// This is a required option for NewCallback.
func WithCallbackStore(store *Store) CallbackOption {
	return func(c *Callback) error {
		if store == nil {
			return fmt.Errorf("store cannot be nil")
		}
		c.store = store
		return nil
	}
}

// WithCallbackLogger sets the logger instance for the callback.
// Optional, defaults to NoopLogger.
func WithCallbackLogger(logger Logger) CallbackOption {
	return func(c *Callback) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithFeedProcessor sets the collaborator receiving accepted feed payloads.
// Optional, defaults to NoopProcessor.
func WithFeedProcessor(processor FeedProcessor) CallbackOption {
	return func(c *Callback) error {
		if processor == nil {
			return fmt.Errorf("feed processor cannot be nil")
		}
		c.processor = processor
		return nil
	}
}

// WithSubscriberCount sets the value echoed in X-Hub-On-Behalf-Of when the
// request does not carry one. Must be > 0, default is 1.
func WithSubscriberCount(n int) CallbackOption {
	return func(c *Callback) error {
		return c.SetSubscriberCount(n)
	}
}

// WithNotifications sets an optional notification service for the callback.
// This is an optional configuration - if not provided, NoOpNotificationService will be used.
//
// The notification service receives callbacks for:
//   - Confirmed subscriptions
//   - Confirmed unsubscriptions
//   - Accepted content distributions
func WithNotifications(service NotificationService) CallbackOption {
	return func(c *Callback) error {
		if service == nil {
			return fmt.Errorf("notification service cannot be nil")
		}
		c.notificationService = service
		return nil
	}
}
