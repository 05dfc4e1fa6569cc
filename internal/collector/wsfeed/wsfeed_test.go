package wsfeed

import (
	"log/slog"
	"testing"

	"marketmaker/pkg/types"
)

func TestDispatchBookEvent(t *testing.T) {
	t.Parallel()
	f := New("wss://example.invalid", "BTCUSD", slog.Default())

	var got []types.Event
	f.dispatch([]byte(`{"event_type":"book","symbol":"BTCUSD","timestamp":1000,
		"bids":[{"price":"100.000000","size":"1.000000"}],
		"asks":[{"price":"101.000000","size":"2.000000"}]}`), func(e types.Event) {
		got = append(got, e)
	})

	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	e := got[0]
	if e.Kind != types.EventOrderBookUpdate || e.BookUpdate.Kind != types.BookSnapshot {
		t.Fatalf("expected book snapshot event, got %+v", e)
	}
	if e.BookUpdate.Bids[0].Price.String() != "100.000000" {
		t.Fatalf("unexpected bid price: %s", e.BookUpdate.Bids[0].Price)
	}
}

func TestDispatchTradeEvent(t *testing.T) {
	t.Parallel()
	f := New("wss://example.invalid", "BTCUSD", slog.Default())

	var got []types.Event
	f.dispatch([]byte(`{"event_type":"trade","symbol":"BTCUSD","side":"buy","price":"100.5","size":"3","timestamp":2000}`), func(e types.Event) {
		got = append(got, e)
	})

	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Kind != types.EventTradeUpdate || len(got[0].Trades) != 1 {
		t.Fatalf("expected trade event, got %+v", got[0])
	}
	if got[0].Trades[0].Side != types.Bid {
		t.Fatalf("expected buy to decode as Bid, got %v", got[0].Trades[0].Side)
	}
}

func TestDispatchIgnoresInformationalEventType(t *testing.T) {
	t.Parallel()
	f := New("wss://example.invalid", "BTCUSD", slog.Default())

	var got []types.Event
	f.dispatch([]byte(`{"event_type":"new_market"}`), func(e types.Event) { got = append(got, e) })

	if len(got) != 0 {
		t.Fatalf("expected no events for informational type, got %d", len(got))
	}
}

func TestDispatchIgnoresInvalidJSON(t *testing.T) {
	t.Parallel()
	f := New("wss://example.invalid", "BTCUSD", slog.Default())

	var got []types.Event
	f.dispatch([]byte(`not json`), func(e types.Event) { got = append(got, e) })

	if len(got) != 0 {
		t.Fatalf("expected no events for malformed payload, got %d", len(got))
	}
}
