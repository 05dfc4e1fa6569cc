// Package paperfeed adapts the paper exchange's rebroadcast event stream
// into a pipeline.Collector, so the same state shards and strategy that
// drive a live run can be driven end-to-end against the simulator.
package paperfeed

import (
	"context"

	"marketmaker/pkg/types"
)

// eventSource is the subset of paperex.Exchange this package depends on,
// kept narrow so tests can fake it without constructing a full exchange.
type eventSource interface {
	Events() (<-chan types.Event, func())
}

// Feed republishes every event the paper exchange emits onto the pipeline
// event bus.
type Feed struct {
	exchange eventSource
}

// New wraps exchange's event stream as a Collector.
func New(exchange eventSource) *Feed {
	return &Feed{exchange: exchange}
}

// Run subscribes to the exchange's event stream and forwards every event
// until ctx is cancelled or the stream closes.
func (f *Feed) Run(ctx context.Context, publish func(types.Event)) error {
	events, unsubscribe := f.exchange.Events()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			publish(event)
		}
	}
}
