package feedkit

import (
	"context"

	"github.com/coregx/feedkit/model"
)

// NotificationService defines an optional interface for sending notifications
// about subscription lifecycle events (hub confirmations, removals, updates).
//
// Implementations might send emails, Slack messages, or log to monitoring systems.
type NotificationService interface {
	// NotifySubscriptionVerified is called after the hub confirmed a subscribe request.
	NotifySubscriptionVerified(ctx context.Context, subscription model.Subscription) error

	// NotifySubscriptionRemoved is called after a subscription was deleted,
	// either by a confirmed unsubscribe or by lease expiry.
	NotifySubscriptionRemoved(ctx context.Context, subscription model.Subscription, reason string) error

	// NotifyUpdateReceived is called for every accepted content distribution request.
	NotifyUpdateReceived(ctx context.Context, update model.FeedUpdate) error
}

// Removal reasons passed to NotifySubscriptionRemoved.
const (
	RemovalUnsubscribed = "unsubscribed"
	RemovalExpired      = "expired"
)

// NoOpNotificationService is a no-op implementation of NotificationService.
// Use this when notifications are not needed.
type NoOpNotificationService struct{}

// NotifySubscriptionVerified does nothing.
func (n *NoOpNotificationService) NotifySubscriptionVerified(_ context.Context, _ model.Subscription) error {
	return nil
}

// NotifySubscriptionRemoved does nothing.
func (n *NoOpNotificationService) NotifySubscriptionRemoved(_ context.Context, _ model.Subscription, _ string) error {
	return nil
}

// NotifyUpdateReceived does nothing.
func (n *NoOpNotificationService) NotifyUpdateReceived(_ context.Context, _ model.FeedUpdate) error {
	return nil
}

// LoggingNotificationService is a simple implementation that logs notifications.
type LoggingNotificationService struct {
	logger Logger
}

// NewLoggingNotificationService creates a new LoggingNotificationService.
func NewLoggingNotificationService(logger Logger) *LoggingNotificationService {
	return &LoggingNotificationService{logger: logger}
}

// NotifySubscriptionVerified logs the hub confirmation.
func (n *LoggingNotificationService) NotifySubscriptionVerified(_ context.Context, subscription model.Subscription) error {
	n.logger.Infof("Subscription verified: id=%s, topic=%s, lease=%ds, expires=%s",
		subscription.ID, subscription.TopicURL, subscription.LeaseSeconds, subscription.Expires().UTC())
	return nil
}

// NotifySubscriptionRemoved logs the removal.
func (n *LoggingNotificationService) NotifySubscriptionRemoved(_ context.Context, subscription model.Subscription, reason string) error {
	n.logger.Infof("Subscription removed: id=%s, topic=%s, reason=%s",
		subscription.ID, subscription.TopicURL, reason)
	return nil
}

// NotifyUpdateReceived logs the content distribution.
func (n *LoggingNotificationService) NotifyUpdateReceived(_ context.Context, update model.FeedUpdate) error {
	if !update.Authentic {
		n.logger.Warnf("Unauthenticated update received: subscription=%s, topic=%s, bytes=%d",
			update.SubscriptionID, update.TopicURL, len(update.Body))
		return nil
	}
	n.logger.Debugf("Update received: subscription=%s, topic=%s, content_type=%s, bytes=%d",
		update.SubscriptionID, update.TopicURL, update.ContentType, len(update.Body))
	return nil
}
