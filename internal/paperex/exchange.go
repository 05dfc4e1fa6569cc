// Package paperex implements a paper-trading exchange: a synthetic
// counterparty that mirrors an upstream market feed, rebroadcasts its
// events, and fills the bot's own resting orders against that feed without
// the bot's own orders ever moving the displayed book (they are assumed
// small relative to resting liquidity).
package paperex

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"marketmaker/internal/book"
	"marketmaker/internal/orders"
	"marketmaker/internal/pipeline"
	"marketmaker/pkg/decimal"
	"marketmaker/pkg/types"
)

// defaultBusCapacity matches the teacher's broadcast channel sizing.
const defaultBusCapacity = 1024

// Exchange is a paper-trading simulator. It owns a private order book (kept
// in sync with the upstream feed), a private position, and an
// exchange-side collection of the bot's own pending orders. All mutation
// happens from a single goroutine via Run; Events lets other components
// subscribe to the rebroadcast event stream.
type Exchange struct {
	symbol string
	logger *slog.Logger

	book     *book.Book
	pending  *orders.Collection
	position types.Position
	mu       sync.Mutex // protects position; book and pending have their own locking

	nextOID uint64

	events   *pipeline.Bus[types.Event]
	upstream <-chan types.Event
	messages <-chan types.PaperMessage
}

// New constructs a paper exchange for symbol, consuming upstream from the
// given channel and bot messages from messages.
func New(symbol string, maxDepth int, upstream <-chan types.Event, messages <-chan types.PaperMessage, logger *slog.Logger) *Exchange {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exchange{
		symbol:   symbol,
		logger:   logger.With("component", "paperex", "symbol", symbol),
		book:     book.New(symbol, maxDepth),
		pending:  orders.New(),
		events:   pipeline.NewBus[types.Event]("paperex-events", defaultBusCapacity, logger),
		upstream: upstream,
		messages: messages,
	}
}

// Events returns a subscription to the rebroadcast/synthetic event stream,
// which is the symbol's full Event schema: the original upstream events
// plus synthetic OrderPlaced/OrderFilled/OrderCancelled from bot activity.
func (e *Exchange) Events() (<-chan types.Event, func()) {
	return e.events.Subscribe()
}

// Run drains upstream and messages until ctx is cancelled or both channels
// close, applying each to the exchange's private state in order. On exit it
// logs the shutdown summary described in spec §6.
func (e *Exchange) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("paper exchange shutting down", "summary", e.Summary())
			return
		case event, ok := <-e.upstream:
			if !ok {
				e.upstream = nil
				if e.messages == nil {
					e.logger.Info("paper exchange shutting down", "summary", e.Summary())
					return
				}
				continue
			}
			e.processUpstream(event)
		case msg, ok := <-e.messages:
			if !ok {
				e.messages = nil
				if e.upstream == nil {
					e.logger.Info("paper exchange shutting down", "summary", e.Summary())
					return
				}
				continue
			}
			e.handleMessage(msg)
		}
	}
}

// processUpstream updates the private book from an upstream event,
// rebroadcasts it, and then attempts to fill any resting bot orders that
// have become marketable as a result.
func (e *Exchange) processUpstream(event types.Event) {
	if event.Kind == types.EventOrderBookUpdate {
		u := event.BookUpdate
		switch u.Kind {
		case types.BookSnapshot:
			e.book.Reset(u.Bids, u.Asks, u.UpdatedAt)
		case types.BookDelta:
			e.book.ApplyDelta(u.Bids, u.Asks, u.UpdatedAt)
		}
	}
	e.events.Publish(event)
	e.fillMarketableRestingOrders()
}

// fillMarketableRestingOrders walks resting bot asks best-to-worst against
// the bid book, then resting bids against the ask book, simulating each
// order's own limit against current depth rather than assuming it fills in
// full at its own price. Iteration on a side stops as soon as one order
// can't be fully filled, since every order behind it is strictly
// worse-priced and so no more marketable than the one that just stalled.
func (e *Exchange) fillMarketableRestingOrders() {
	bestBid, _, haveBid := e.book.BestBid()
	bestAsk, _, haveAsk := e.book.BestAsk()

	if haveBid {
		for {
			oid, ok := e.pending.BestAskOID()
			if !ok {
				break
			}
			o, _ := e.pending.GetOrder(oid)
			if o.Price.GreaterThan(bestBid) {
				break
			}
			if !e.fillRestingOrder(o, e.book.SimulateSell) {
				break
			}
		}
	}
	if haveAsk {
		for {
			oid, ok := e.pending.BestBidOID()
			if !ok {
				break
			}
			o, _ := e.pending.GetOrder(oid)
			if o.Price.LessThan(bestAsk) {
				break
			}
			if !e.fillRestingOrder(o, e.book.SimulateBuy) {
				break
			}
		}
	}
}

// fillRestingOrder simulates a resting order against the opposite side of
// the book using simulate (SimulateBuy for a resting bid walking the asks,
// SimulateSell for a resting ask walking the bids), with the order's own
// price as the limit and its resting size as the size. It emits one
// OrderFilled per returned fill at that fill's own price and size — never
// the order's own price/size, since available depth at the crossing level
// may be less than the order is resting for — and reduces or removes the
// resting order by the total filled. Resting fills are always maker fills.
// It reports whether the order was filled in full.
func (e *Exchange) fillRestingOrder(o types.Order, simulate func(decimal.Decimal, decimal.Decimal) ([]book.Fill, decimal.Decimal)) bool {
	fills, remaining := simulate(o.Price, o.Size)
	for _, f := range fills {
		e.applyFill(types.Fill{
			Symbol:    e.symbol,
			OID:       o.OID,
			Side:      o.Side,
			Price:     f.Price,
			Size:      f.Size,
			IsMaker:   true,
			Timestamp: types.Now(),
		})
	}
	filled := o.Size.Sub(remaining)
	if filled.IsPositive() {
		e.pending.ReduceSize(o.OID, filled)
	}
	return remaining.IsZero()
}

func (e *Exchange) applyFill(fill types.Fill) {
	e.mu.Lock()
	e.position = e.position.Update(fill.Side, fill.Price, fill.Size, fill.Timestamp)
	e.mu.Unlock()
	e.events.Publish(types.NewOrderFilledEvent(fill))
}

// handleMessage applies a bot-originated PaperMessage: PlaceOrder assigns
// an oid, emits OrderPlaced, then attempts an immediate taker fill against
// the book before resting any remainder; CancelOrder removes a resting
// order; Close is a no-op here since shutdown is driven by ctx.
func (e *Exchange) handleMessage(msg types.PaperMessage) {
	switch msg.Kind {
	case types.PaperMessagePlaceOrder:
		e.placeOrder(*msg.Place)
	case types.PaperMessageCancelOrder:
		e.cancelOrder(*msg.Cancel)
	case types.PaperMessageClose:
		// shutdown is driven by context cancellation in Run; nothing to do.
	}
}

func (e *Exchange) placeOrder(req types.PlaceOrder) {
	e.nextOID++
	oid := e.nextOID

	order := types.Order{Symbol: req.Symbol, OID: oid, Side: req.Side, Price: req.Price, Size: req.Size}
	e.events.Publish(types.NewOrderPlacedEvent(order))

	var takerFills []book.Fill
	var remaining decimal.Decimal
	switch req.Side {
	case types.Bid:
		takerFills, remaining = e.book.SimulateBuy(req.Price, req.Size)
	case types.Ask:
		takerFills, remaining = e.book.SimulateSell(req.Price, req.Size)
	}
	for _, f := range takerFills {
		e.applyFill(types.Fill{
			Symbol: req.Symbol, OID: oid, Side: req.Side,
			Price: f.Price, Size: f.Size, IsMaker: false, Timestamp: types.Now(),
		})
	}

	if remaining.IsPositive() {
		order.Size = remaining
		e.pending.Insert(order)
	}
}

func (e *Exchange) cancelOrder(req types.CancelOrder) {
	o, ok := e.pending.RemoveByOID(req.OID)
	if !ok {
		e.logger.Error("cancel for unknown oid", "oid", req.OID)
		return
	}
	e.events.Publish(types.NewOrderCancelledEvent(types.CancelledOrder{
		Symbol: req.Symbol, OID: o.OID, Side: o.Side,
	}))
}

// Summary renders the human-readable shutdown report required by spec §6:
// current mid-price, resting orders, and position.
func (e *Exchange) Summary() string {
	var sb strings.Builder

	if mid, ok := e.book.MidPrice(); ok {
		fmt.Fprintf(&sb, "mid price: %s\n", mid)
	} else {
		sb.WriteString("mid price: unavailable\n")
	}

	sb.WriteString("resting orders:\n")
	empty := true
	e.pending.ForEach(func(o types.Order) {
		empty = false
		fmt.Fprintf(&sb, "  %s %s @ %s\n", o.Side, o.Size, o.Price)
	})
	if empty {
		sb.WriteString("  (none)\n")
	}

	e.mu.Lock()
	pos := e.position
	e.mu.Unlock()

	if !pos.IsOpen() {
		sb.WriteString("position: flat\n")
		return sb.String()
	}
	mid, haveMid := e.book.MidPrice()
	fmt.Fprintf(&sb, "position: %s %s @ entry %s", pos.Side, pos.Size, pos.EntryPrice)
	if haveMid {
		fmt.Fprintf(&sb, ", value %s, unrealized pnl %s", pos.CurrentValue(mid), pos.UnrealizedPnL(mid))
	}
	sb.WriteString("\n")
	return sb.String()
}

// Position returns a copy of the exchange's private position, for tests and
// the dashboard.
func (e *Exchange) Position() types.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

// Book exposes the exchange's private book for read-only inspection.
func (e *Exchange) Book() *book.Book {
	return e.book
}
