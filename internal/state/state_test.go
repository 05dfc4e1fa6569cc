package state

import (
	"testing"

	"marketmaker/internal/indicator"
	"marketmaker/pkg/decimal"
	"marketmaker/pkg/types"
)

func TestOrderBookStateSnapshotThenDelta(t *testing.T) {
	t.Parallel()
	s := NewOrderBookState("BTCUSD", 0)

	err := s.ProcessEvent(types.NewOrderBookEvent(types.OrderBookUpdate{
		Symbol: "BTCUSD",
		Kind:   types.BookSnapshot,
		Bids:   []types.PriceLevel{{Price: decimal.MustParse("100"), Size: decimal.MustParse("1")}},
		Asks:   []types.PriceLevel{{Price: decimal.MustParse("101"), Size: decimal.MustParse("1")}},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mid, ok := s.MidPrice()
	if !ok || mid.String() != "100.500000" {
		t.Fatalf("mid = %v (ok=%v), want 100.500000", mid, ok)
	}

	err = s.ProcessEvent(types.NewOrderBookEvent(types.OrderBookUpdate{
		Symbol: "BTCUSD",
		Kind:   types.BookDelta,
		Bids:   []types.PriceLevel{{Price: decimal.MustParse("100"), Size: decimal.MustParse("0")}},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, ok := s.BestBid(); ok {
		t.Fatal("expected bid removed by zero-size delta")
	}
}

func TestPositionStateOnlyReactsToFills(t *testing.T) {
	t.Parallel()
	s := NewPositionState()

	if err := s.ProcessEvent(types.NewTradeEvent(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Position().IsOpen() {
		t.Fatal("expected no effect from non-fill event")
	}

	err := s.ProcessEvent(types.NewOrderFilledEvent(types.Fill{
		Side: types.Bid, Price: decimal.MustParse("100"), Size: decimal.MustParse("2"), Timestamp: 1,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Position().IsOpen() {
		t.Fatal("expected position open after fill")
	}
}

func TestPendingOrdersStateLifecycle(t *testing.T) {
	t.Parallel()
	s := NewPendingOrdersState()

	if err := s.ProcessEvent(types.NewOrderPlacedEvent(types.Order{
		OID: 1, Side: types.Bid, Price: decimal.MustParse("100"), Size: decimal.MustParse("2"),
	})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.IsEmpty() {
		t.Fatal("expected one resting order")
	}

	if err := s.ProcessEvent(types.NewOrderFilledEvent(types.Fill{
		OID: 1, Side: types.Bid, Price: decimal.MustParse("100"), Size: decimal.MustParse("2"),
	})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.IsEmpty() {
		t.Fatal("expected order removed after full fill")
	}

	// fill for unknown oid is an error
	err := s.ProcessEvent(types.NewOrderFilledEvent(types.Fill{OID: 99, Size: decimal.MustParse("1")}))
	if err == nil {
		t.Fatal("expected error for fill against unknown oid")
	}

	if err := s.ProcessEvent(types.NewOrderPlacedEvent(types.Order{
		OID: 2, Side: types.Ask, Price: decimal.MustParse("101"), Size: decimal.MustParse("1"),
	})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.ProcessEvent(types.NewOrderCancelledEvent(types.CancelledOrder{OID: 2, Side: types.Ask})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.IsEmpty() {
		t.Fatal("expected order removed after cancel")
	}

	if err := s.ProcessEvent(types.NewOrderCancelledEvent(types.CancelledOrder{OID: 42})); err == nil {
		t.Fatal("expected error cancelling unknown oid")
	}
}

func TestPriceStateFansTradesToIndicators(t *testing.T) {
	t.Parallel()
	reg := indicator.NewRegistry()
	reg.Add(indicator.NewRSI(2, 0))
	s := NewPriceState(reg)

	err := s.ProcessEvent(types.NewTradeEvent([]types.Trade{
		{Price: decimal.MustParse("10"), Timestamp: 1},
		{Price: decimal.MustParse("11"), Timestamp: 2},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.Indicator("rsi"); !ok {
		t.Fatal("expected rsi value after two trades with period 2")
	}
}
