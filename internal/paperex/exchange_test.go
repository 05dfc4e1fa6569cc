package paperex

import (
	"context"
	"testing"
	"time"

	"marketmaker/pkg/decimal"
	"marketmaker/pkg/types"
)

func newTestExchange(t *testing.T) (*Exchange, chan types.Event, chan types.PaperMessage, func()) {
	t.Helper()
	upstream := make(chan types.Event, 16)
	messages := make(chan types.PaperMessage, 16)
	ex := New("BTCUSD", 0, upstream, messages, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ex.Run(ctx)
		close(done)
	}()
	stop := func() {
		cancel()
		<-done
	}
	return ex, upstream, messages, stop
}

func snapshotEvent(bids, asks []types.PriceLevel) types.Event {
	return types.NewOrderBookEvent(types.OrderBookUpdate{
		Symbol: "BTCUSD", Kind: types.BookSnapshot, Bids: bids, Asks: asks, UpdatedAt: 1,
	})
}

func TestPlaceOrderTakerFillThenResting(t *testing.T) {
	t.Parallel()
	ex, upstream, messages, stop := newTestExchange(t)
	defer stop()

	sub, unsub := ex.Events()
	defer unsub()

	upstream <- snapshotEvent(
		[]types.PriceLevel{{Price: decimal.MustParse("99"), Size: decimal.MustParse("1")}},
		[]types.PriceLevel{{Price: decimal.MustParse("101"), Size: decimal.MustParse("1")}},
	)
	<-sub // book update rebroadcast

	// bid at 102 crosses the 101 ask for size 1, leaving 1 resting
	messages <- types.NewPaperPlaceOrder(types.PlaceOrder{
		Symbol: "BTCUSD", Side: types.Bid, Price: decimal.MustParse("102"), Size: decimal.MustParse("2"),
	})

	placed := recvWithTimeout(t, sub)
	if placed.Kind != types.EventOrderPlaced {
		t.Fatalf("expected OrderPlaced, got kind %v", placed.Kind)
	}
	filled := recvWithTimeout(t, sub)
	if filled.Kind != types.EventOrderFilled {
		t.Fatalf("expected OrderFilled, got kind %v", filled.Kind)
	}
	if filled.Filled.IsMaker {
		t.Fatal("expected taker fill (is_maker = false)")
	}
	if filled.Filled.Size.String() != "1.000000" {
		t.Fatalf("expected taker fill of size 1, got %s", filled.Filled.Size)
	}
}

func TestRestingOrderFillsWhenMarketCrosses(t *testing.T) {
	t.Parallel()
	ex, upstream, messages, stop := newTestExchange(t)
	defer stop()

	sub, unsub := ex.Events()
	defer unsub()

	// deep book, no immediate cross
	upstream <- snapshotEvent(
		[]types.PriceLevel{{Price: decimal.MustParse("99"), Size: decimal.MustParse("10")}},
		[]types.PriceLevel{{Price: decimal.MustParse("105"), Size: decimal.MustParse("10")}},
	)
	<-sub

	// place a resting ask at 103 (below best ask 105, so it does not take)
	messages <- types.NewPaperPlaceOrder(types.PlaceOrder{
		Symbol: "BTCUSD", Side: types.Ask, Price: decimal.MustParse("103"), Size: decimal.MustParse("1"),
	})
	placed := recvWithTimeout(t, sub)
	if placed.Kind != types.EventOrderPlaced {
		t.Fatalf("expected OrderPlaced, got %v", placed.Kind)
	}

	// market moves: best bid rises to 104, crossing our resting ask at 103
	upstream <- snapshotEvent(
		[]types.PriceLevel{{Price: decimal.MustParse("104"), Size: decimal.MustParse("10")}},
		[]types.PriceLevel{{Price: decimal.MustParse("105"), Size: decimal.MustParse("10")}},
	)
	bookEvt := recvWithTimeout(t, sub)
	if bookEvt.Kind != types.EventOrderBookUpdate {
		t.Fatalf("expected rebroadcast book update first, got %v", bookEvt.Kind)
	}
	fillEvt := recvWithTimeout(t, sub)
	if fillEvt.Kind != types.EventOrderFilled {
		t.Fatalf("expected OrderFilled after book update, got %v", fillEvt.Kind)
	}
	if !fillEvt.Filled.IsMaker {
		t.Fatal("expected resting fill to be maker")
	}
}

func TestCancelOrderRemovesAndEmitsEvent(t *testing.T) {
	t.Parallel()
	ex, upstream, messages, stop := newTestExchange(t)
	defer stop()

	sub, unsub := ex.Events()
	defer unsub()

	upstream <- snapshotEvent(
		[]types.PriceLevel{{Price: decimal.MustParse("99"), Size: decimal.MustParse("1")}},
		[]types.PriceLevel{{Price: decimal.MustParse("105"), Size: decimal.MustParse("1")}},
	)
	<-sub

	messages <- types.NewPaperPlaceOrder(types.PlaceOrder{
		Symbol: "BTCUSD", Side: types.Bid, Price: decimal.MustParse("98"), Size: decimal.MustParse("1"),
	})
	placed := recvWithTimeout(t, sub)
	oid := placed.Placed.OID

	messages <- types.NewPaperCancelOrder(types.CancelOrder{Symbol: "BTCUSD", OID: oid})
	cancelled := recvWithTimeout(t, sub)
	if cancelled.Kind != types.EventOrderCancelled {
		t.Fatalf("expected OrderCancelled, got %v", cancelled.Kind)
	}
	if cancelled.Cancelled.OID != oid {
		t.Fatalf("cancelled oid = %d, want %d", cancelled.Cancelled.OID, oid)
	}
}

func recvWithTimeout(t *testing.T, ch <-chan types.Event) types.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return types.Event{}
	}
}
