// Package strategy implements the two market-making strategies this bot
// ships: a fixed-spread quoter and a dynamic-spread quoter driven by RSI
// and NATR.
//
// Both satisfy pipeline.Strategy: IntervalMS reports how often the runtime
// should tick them, Evaluate turns a read-only Input snapshot into the
// Actions for that tick.
package strategy

import (
	"fmt"

	"marketmaker/internal/pipeline"
	"marketmaker/pkg/decimal"
	"marketmaker/pkg/types"
)

// FixedSpread quotes a constant distance around the book's mid-price every
// tick: cancel every resting oid, then place a bid at mid-spread and an ask
// at mid+spread. It skips the tick entirely if the book has no mid-price
// yet (e.g. before the first snapshot arrives).
type FixedSpread struct {
	Symbol     string
	IntervalMs uint64
	OrderSize  decimal.Decimal
	BidSpread  decimal.Decimal
	AskSpread  decimal.Decimal
}

// IntervalMS reports the configured tick interval.
func (f *FixedSpread) IntervalMS() uint64 { return f.IntervalMs }

// Evaluate cancels every pending order, then quotes a bid and ask around
// mid-price at the configured fixed spreads.
func (f *FixedSpread) Evaluate(input pipeline.Input) ([]types.Action, error) {
	if !input.HaveMid {
		return nil, nil
	}

	actions := make([]types.Action, 0, len(input.PendingOIDs)+2)
	for _, oid := range input.PendingOIDs {
		actions = append(actions, types.NewCancelOrderAction(types.CancelOrder{Symbol: f.Symbol, OID: oid}))
	}

	bidPrice := input.MidPrice.Sub(f.BidSpread)
	askPrice := input.MidPrice.Add(f.AskSpread)
	if !bidPrice.IsPositive() {
		return nil, fmt.Errorf("strategy: computed bid price %s is not positive", bidPrice)
	}

	actions = append(actions,
		types.NewPlaceOrderAction(types.PlaceOrder{Symbol: f.Symbol, Side: types.Bid, Price: bidPrice, Size: f.OrderSize}),
		types.NewPlaceOrderAction(types.PlaceOrder{Symbol: f.Symbol, Side: types.Ask, Price: askPrice, Size: f.OrderSize}),
	)
	return actions, nil
}
