// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the bot — sides, orders,
// trades, fills, positions, events, and actions. It has no dependencies on
// internal packages, so it can be imported by any layer.
package types

import (
	"fmt"
	"strings"
	"time"

	"marketmaker/pkg/decimal"
)

// ————————————————————————————————————————————————————————————————————————
// Side
// ————————————————————————————————————————————————————————————————————————

// Side is the direction of an order, trade, or position: Bid (buy) or Ask
// (sell).
type Side int8

const (
	Bid Side = iota
	Ask
)

// ParseSide accepts "bid"/"ask"/"buy"/"sell", case-insensitive, matching the
// wire vocabulary used by most exchange feeds.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(s) {
	case "bid", "buy":
		return Bid, nil
	case "ask", "sell":
		return Ask, nil
	default:
		return 0, fmt.Errorf("types: unknown side %q", s)
	}
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

// String renders the side in lowercase, matching ParseSide's vocabulary.
func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}

func (s Side) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *Side) UnmarshalJSON(data []byte) error {
	parsed, err := ParseSide(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ————————————————————————————————————————————————————————————————————————
// Orders, trades, fills
// ————————————————————————————————————————————————————————————————————————

// Order is a resting limit order on a book, identified by an oid unique to
// the process that assigned it (the paper exchange or a live executor).
type Order struct {
	OID    uint64         `json:"oid"`
	Symbol string         `json:"symbol"`
	Side   Side           `json:"side"`
	Price  decimal.Decimal `json:"price"`
	Size   decimal.Decimal `json:"size"`
}

// Trade is a public market trade reported by a collector, used to drive
// price indicators.
type Trade struct {
	Symbol    string         `json:"symbol"`
	Side      Side           `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Size      decimal.Decimal `json:"size"`
	Timestamp int64          `json:"timestamp"` // unix millis
}

// Fill is a (partial or full) execution of a resting or incoming order.
type Fill struct {
	Symbol    string         `json:"symbol"`
	OID       uint64         `json:"oid"`
	Side      Side           `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Size      decimal.Decimal `json:"size"`
	IsMaker   bool           `json:"is_maker"`
	Timestamp int64          `json:"timestamp"`
}

// ————————————————————————————————————————————————————————————————————————
// Position
// ————————————————————————————————————————————————————————————————————————

// Position is the net inventory held in one symbol. The zero value
// represents a flat (closed) position — callers should check IsOpen before
// trusting EntryPrice.
type Position struct {
	Side       Side            `json:"side"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	Size       decimal.Decimal `json:"size"`
	OpenedAt   int64           `json:"opened_at"`
	UpdatedAt  int64           `json:"updated_at"`
}

// IsOpen reports whether the position carries any size.
func (p Position) IsOpen() bool {
	return p.Size.IsPositive()
}

// Update applies a fill of side/price/size at timestamp to the position,
// returning the updated value. Same-side fills widen the position at a
// size-weighted average entry price; opposite-side fills reduce, close, or
// flip the position depending on relative size.
func (p Position) Update(side Side, price, size decimal.Decimal, timestamp int64) Position {
	if !p.IsOpen() {
		return Position{
			Side:       side,
			EntryPrice: price,
			Size:       size,
			OpenedAt:   timestamp,
			UpdatedAt:  timestamp,
		}
	}

	if side == p.Side {
		notional := p.EntryPrice.Mul(p.Size).Add(price.Mul(size))
		newSize := p.Size.Add(size)
		return Position{
			Side:       p.Side,
			EntryPrice: notional.Div(newSize),
			Size:       newSize,
			OpenedAt:   p.OpenedAt,
			UpdatedAt:  timestamp,
		}
	}

	switch p.Size.Cmp(size) {
	case 1: // reduce
		return Position{
			Side:       p.Side,
			EntryPrice: p.EntryPrice,
			Size:       p.Size.Sub(size),
			OpenedAt:   p.OpenedAt,
			UpdatedAt:  timestamp,
		}
	case 0: // close
		return Position{
			Side:       p.Side,
			EntryPrice: decimal.Zero,
			Size:       decimal.Zero,
			OpenedAt:   p.OpenedAt,
			UpdatedAt:  timestamp,
		}
	default: // flip
		return Position{
			Side:       side,
			EntryPrice: price,
			Size:       size.Sub(p.Size),
			OpenedAt:   timestamp,
			UpdatedAt:  timestamp,
		}
	}
}

// CurrentValue returns the notional value of the position at currentPrice.
func (p Position) CurrentValue(currentPrice decimal.Decimal) decimal.Decimal {
	return currentPrice.Mul(p.Size)
}

// UnrealizedPnL returns the mark-to-market profit or loss at currentPrice.
func (p Position) UnrealizedPnL(currentPrice decimal.Decimal) decimal.Decimal {
	var perUnit decimal.Decimal
	if p.Side == Bid {
		perUnit = currentPrice.Sub(p.EntryPrice)
	} else {
		perUnit = p.EntryPrice.Sub(currentPrice)
	}
	return perUnit.Mul(p.Size)
}

// ————————————————————————————————————————————————————————————————————————
// Events — emitted by collectors and internal components, consumed by states
// ————————————————————————————————————————————————————————————————————————

// EventKind tags which variant of Event is populated.
type EventKind int8

const (
	EventOrderBookUpdate EventKind = iota
	EventTradeUpdate
	EventOrderPlaced
	EventOrderFilled
	EventOrderCancelled
)

// BookUpdateKind distinguishes a full snapshot from an incremental delta.
type BookUpdateKind int8

const (
	BookSnapshot BookUpdateKind = iota
	BookDelta
)

// PriceLevel is a single (price, size) entry in a book update.
type PriceLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// OrderBookUpdate carries either a full snapshot or an incremental delta for
// one symbol's book.
type OrderBookUpdate struct {
	Symbol    string         `json:"symbol"`
	Kind      BookUpdateKind `json:"kind"`
	UpdatedAt int64          `json:"updated_at"`
	Bids      []PriceLevel   `json:"bids"`
	Asks      []PriceLevel   `json:"asks"`
}

// Event is a tagged union of everything states react to. Exactly one of the
// pointer fields matching Kind is populated; this mirrors the 5-variant
// event enum every State implementation switches on.
type Event struct {
	Kind EventKind

	BookUpdate *OrderBookUpdate
	Trades     []Trade
	Placed     *Order
	Filled     *Fill
	Cancelled  *CancelledOrder
}

// CancelledOrder identifies an order removed from a book by cancellation
// rather than by fill.
type CancelledOrder struct {
	Symbol string `json:"symbol"`
	OID    uint64 `json:"oid"`
	Side   Side   `json:"side"`
}

// NewOrderBookEvent wraps an OrderBookUpdate as an Event.
func NewOrderBookEvent(u OrderBookUpdate) Event {
	return Event{Kind: EventOrderBookUpdate, BookUpdate: &u}
}

// NewTradeEvent wraps one or more Trades as an Event.
func NewTradeEvent(trades []Trade) Event {
	return Event{Kind: EventTradeUpdate, Trades: trades}
}

// NewOrderPlacedEvent wraps an Order as an Event.
func NewOrderPlacedEvent(o Order) Event {
	return Event{Kind: EventOrderPlaced, Placed: &o}
}

// NewOrderFilledEvent wraps a Fill as an Event.
func NewOrderFilledEvent(f Fill) Event {
	return Event{Kind: EventOrderFilled, Filled: &f}
}

// NewOrderCancelledEvent wraps a CancelledOrder as an Event.
func NewOrderCancelledEvent(c CancelledOrder) Event {
	return Event{Kind: EventOrderCancelled, Cancelled: &c}
}

// ————————————————————————————————————————————————————————————————————————
// Actions — emitted by a Strategy, consumed by Executors
// ————————————————————————————————————————————————————————————————————————

// ActionKind tags which variant of Action is populated.
type ActionKind int8

const (
	ActionPlaceOrder ActionKind = iota
	ActionCancelOrder
)

// PlaceOrder requests a new resting order.
type PlaceOrder struct {
	Symbol string          `json:"symbol"`
	Side   Side            `json:"side"`
	Price  decimal.Decimal `json:"price"`
	Size   decimal.Decimal `json:"size"`
}

// CancelOrder requests removal of a resting order by oid.
type CancelOrder struct {
	Symbol string `json:"symbol"`
	OID    uint64 `json:"oid"`
}

// Action is a tagged union of everything a Strategy emits for an Executor to
// dispatch.
type Action struct {
	Kind   ActionKind
	Place  *PlaceOrder
	Cancel *CancelOrder
}

// NewPlaceOrderAction wraps a PlaceOrder as an Action.
func NewPlaceOrderAction(p PlaceOrder) Action {
	return Action{Kind: ActionPlaceOrder, Place: &p}
}

// NewCancelOrderAction wraps a CancelOrder as an Action.
func NewCancelOrderAction(c CancelOrder) Action {
	return Action{Kind: ActionCancelOrder, Cancel: &c}
}

// ————————————————————————————————————————————————————————————————————————
// Paper exchange messages — the command side of internal/paperex
// ————————————————————————————————————————————————————————————————————————

// PaperMessageKind tags which variant of PaperMessage is populated.
type PaperMessageKind int8

const (
	PaperMessagePlaceOrder PaperMessageKind = iota
	PaperMessageCancelOrder
	PaperMessageClose
)

// PaperMessage is sent by internal/executor/paper to internal/paperex.
type PaperMessage struct {
	Kind   PaperMessageKind
	Place  *PlaceOrder
	Cancel *CancelOrder
}

// NewPaperPlaceOrder wraps a PlaceOrder as a PaperMessage.
func NewPaperPlaceOrder(p PlaceOrder) PaperMessage {
	return PaperMessage{Kind: PaperMessagePlaceOrder, Place: &p}
}

// NewPaperCancelOrder wraps a CancelOrder as a PaperMessage.
func NewPaperCancelOrder(c CancelOrder) PaperMessage {
	return PaperMessage{Kind: PaperMessageCancelOrder, Cancel: &c}
}

// NewPaperClose builds a Close message. paperex.Exchange ignores it: its
// shutdown, and the summary it logs then, are driven by its context and
// input channels.
func NewPaperClose() PaperMessage {
	return PaperMessage{Kind: PaperMessageClose}
}

// Now returns the current unix-millis timestamp. Kept as a single indirection
// point so tests can stub it if ever needed.
var Now = func() int64 {
	return time.Now().UnixMilli()
}
