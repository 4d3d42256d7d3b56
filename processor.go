package feedkit

import (
	"context"

	"github.com/coregx/feedkit/model"
)

// FeedProcessor consumes content distribution payloads accepted by the callback.
// Payloads are passed through untouched; they may be malformed or of an unexpected
// feed type, and deciding what to do with them is the processor's concern.
//
// Errors returned by Process are logged by the callback and never change its response.
type FeedProcessor interface {
	Process(ctx context.Context, update model.FeedUpdate) error
}

// FeedProcessorFunc adapts a function to FeedProcessor.
type FeedProcessorFunc func(ctx context.Context, update model.FeedUpdate) error

// Process calls f.
func (f FeedProcessorFunc) Process(ctx context.Context, update model.FeedUpdate) error {
	return f(ctx, update)
}

// NoopProcessor discards every payload.
type NoopProcessor struct{}

// Process does nothing.
func (NoopProcessor) Process(_ context.Context, _ model.FeedUpdate) error {
	return nil
}
