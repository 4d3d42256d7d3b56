package reader

import (
	"context"
	"fmt"

	"github.com/coregx/feedkit"
	"github.com/coregx/feedkit/model"
)

// Handler receives feeds parsed from accepted content distributions.
type Handler interface {
	HandleFeed(ctx context.Context, update model.FeedUpdate, feed *Feed) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, update model.FeedUpdate, feed *Feed) error

// HandleFeed calls f.
func (f HandlerFunc) HandleFeed(ctx context.Context, update model.FeedUpdate, feed *Feed) error {
	return f(ctx, update, feed)
}

// Processor is a feedkit.FeedProcessor that parses distribution payloads with
// a Reader and hands the result to a Handler.
//
// Updates whose signature did not match the subscription secret are dropped.
type Processor struct {
	reader  *Reader
	handler Handler
	logger  feedkit.Logger
}

var _ feedkit.FeedProcessor = (*Processor)(nil)

// ProcessorOption is a function that configures a Processor.
type ProcessorOption func(*Processor) error

// NewProcessor creates a Processor around r.
func NewProcessor(r *Reader, opts ...ProcessorOption) (*Processor, error) {
	if r == nil {
		return nil, feedkit.NewError(feedkit.ErrCodeConfiguration, "Reader is required")
	}

	p := &Processor{
		reader: r,
		logger: &feedkit.NoopLogger{},
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, feedkit.NewErrorWithCause(feedkit.ErrCodeConfiguration, "failed to apply processor option", err)
		}
	}

	return p, nil
}

// WithHandler sets the handler receiving parsed feeds. Optional.
func WithHandler(h Handler) ProcessorOption {
	return func(p *Processor) error {
		if h == nil {
			return fmt.Errorf("handler cannot be nil")
		}
		p.handler = h
		return nil
	}
}

// WithProcessorLogger sets the logger instance. Optional, defaults to NoopLogger.
func WithProcessorLogger(logger feedkit.Logger) ProcessorOption {
	return func(p *Processor) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		p.logger = logger
		return nil
	}
}

// Process parses update and passes it to the handler.
func (p *Processor) Process(ctx context.Context, update model.FeedUpdate) error {
	if !update.Authentic {
		p.logger.Warnf("Dropping unauthenticated update for subscription %s", update.SubscriptionID)
		return nil
	}

	feed, err := p.reader.ParseBytes(update.Body)
	if err != nil {
		return err
	}

	p.logger.Debugf("Parsed %s update for %s: %d entries", feed.FeedType, update.TopicURL, len(feed.Entries))

	if p.handler == nil {
		return nil
	}
	return p.handler.HandleFeed(ctx, update, feed)
}
