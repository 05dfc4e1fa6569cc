// Package state implements the single-writer state shards that sit between
// the event bus and the strategy: OrderBookState, PositionState,
// PendingOrdersState, and PriceState. Each owns one piece of domain data,
// mutated only by its own goroutine in the pipeline runtime in response to
// events, and read concurrently by the strategy through an RWMutex.
package state

import "marketmaker/pkg/types"

// State is the shared behavior every shard implements: a name for logging,
// and a single entry point that applies one event to the shard's owned
// data. Implementations are not expected to be safe for concurrent writes —
// the pipeline runtime guarantees a single writer per shard — but must be
// safe for concurrent reads via their own accessor methods.
type State interface {
	// Name identifies the shard for logging, e.g. "orderbook" or "position".
	Name() string
	// ProcessEvent applies one event, or returns an error if the event
	// cannot be validly applied (e.g. a fill for an unknown oid).
	ProcessEvent(event types.Event) error
}
