package state

import (
	"marketmaker/internal/book"
	"marketmaker/pkg/decimal"
	"marketmaker/pkg/types"
)

// OrderBookState owns the order book for one symbol. It reacts to
// OrderBookUpdate events: a Snapshot resets the book wholesale, a Delta
// replaces (never sums) the size at each touched level.
type OrderBookState struct {
	book *book.Book
}

// NewOrderBookState constructs a shard backed by a book with the given
// depth limit (0 for unlimited).
func NewOrderBookState(symbol string, maxDepth int) *OrderBookState {
	return &OrderBookState{book: book.New(symbol, maxDepth)}
}

// Name identifies this shard.
func (s *OrderBookState) Name() string { return "orderbook" }

// ProcessEvent applies an OrderBookUpdate; all other event kinds are
// ignored, since only collector feeds produce book updates.
func (s *OrderBookState) ProcessEvent(event types.Event) error {
	if event.Kind != types.EventOrderBookUpdate {
		return nil
	}
	u := event.BookUpdate
	switch u.Kind {
	case types.BookSnapshot:
		s.book.Reset(u.Bids, u.Asks, u.UpdatedAt)
	case types.BookDelta:
		s.book.ApplyDelta(u.Bids, u.Asks, u.UpdatedAt)
	}
	return nil
}

// MidPrice returns the book's current mid-price, and false if either side
// is empty.
func (s *OrderBookState) MidPrice() (decimal.Decimal, bool) {
	return s.book.MidPrice()
}

// BestBid returns the book's best bid price/size.
func (s *OrderBookState) BestBid() (decimal.Decimal, decimal.Decimal, bool) {
	return s.book.BestBid()
}

// BestAsk returns the book's best ask price/size.
func (s *OrderBookState) BestAsk() (decimal.Decimal, decimal.Decimal, bool) {
	return s.book.BestAsk()
}

// Snapshot returns an ordered copy of the book, for the dashboard.
func (s *OrderBookState) Snapshot() book.Snapshot {
	return s.book.Snapshot()
}

// Book exposes the underlying book directly, for components (paper
// exchange, risk guard) that need simulate-only reads.
func (s *OrderBookState) Book() *book.Book {
	return s.book
}
