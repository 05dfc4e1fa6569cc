package state

import (
	"sync"

	"marketmaker/internal/indicator"
	"marketmaker/pkg/decimal"
	"marketmaker/pkg/types"
)

// PriceState owns a registry of price indicators (RSI, NATR, ...). It
// reacts only to TradeUpdate events, fanning each trade's (price,
// timestamp) out to every registered indicator.
type PriceState struct {
	mu         sync.RWMutex
	indicators *indicator.Registry
}

// NewPriceState constructs a price shard around the given registry. The
// registry is populated by the caller (cmd/marketmaker) before the shard
// joins the pipeline.
func NewPriceState(registry *indicator.Registry) *PriceState {
	return &PriceState{indicators: registry}
}

// Name identifies this shard.
func (s *PriceState) Name() string { return "price" }

// ProcessEvent applies a TradeUpdate; all other event kinds are ignored.
func (s *PriceState) ProcessEvent(event types.Event) error {
	if event.Kind != types.EventTradeUpdate {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tr := range event.Trades {
		s.indicators.UpdateAll(tr.Price, tr.Timestamp)
	}
	return nil
}

// Indicator returns the named indicator's current value, if any.
func (s *PriceState) Indicator(name string) (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indicators.Value(name)
}
