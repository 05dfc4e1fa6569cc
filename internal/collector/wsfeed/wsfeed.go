// Package wsfeed implements the live market data Collector: a single
// WebSocket connection that receives order book snapshots/deltas and trade
// prints for one symbol, decodes them into types.Event, and publishes them
// onto the pipeline's event bus.
//
// The connection auto-reconnects with exponential backoff (1s → 30s max)
// and re-subscribes to the symbol on every reconnect. A read deadline
// (90s, ~2 missed pings) ensures a silently dead connection is detected and
// replaced rather than left to stall the pipeline.
package wsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"marketmaker/pkg/decimal"
	"marketmaker/pkg/types"
)

const (
	pingInterval     = 50 * time.Second
	readTimeout      = 90 * time.Second
	maxReconnectWait = 30 * time.Second
	writeTimeout     = 10 * time.Second
)

// wireLevel mirrors the wire format of a single book level.
type wireLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// wireEnvelope peeks at the event type before deciding which payload to
// decode, since the feed multiplexes several event shapes onto one socket.
type wireEnvelope struct {
	EventType string `json:"event_type"`
}

type wireBookEvent struct {
	Symbol    string      `json:"symbol"`
	Timestamp int64       `json:"timestamp"`
	Bids      []wireLevel `json:"bids"`
	Asks      []wireLevel `json:"asks"`
}

type wirePriceChangeEvent struct {
	Symbol    string      `json:"symbol"`
	Timestamp int64       `json:"timestamp"`
	Bids      []wireLevel `json:"bids"`
	Asks      []wireLevel `json:"asks"`
}

type wireTradeEvent struct {
	Symbol    string `json:"symbol"`
	Side      string `json:"side"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Timestamp int64  `json:"timestamp"`
}

type wireSubscribeMsg struct {
	Operation string `json:"operation"`
	Symbols   []string `json:"symbols"`
}

// Feed is a pipeline.Collector backed by a single WebSocket connection for
// one symbol's market data.
type Feed struct {
	url    string
	symbol string
	logger *slog.Logger

	conn *websocket.Conn
}

// New creates a market data collector for symbol, dialing wsURL.
func New(wsURL, symbol string, logger *slog.Logger) *Feed {
	return &Feed{
		url:    wsURL,
		symbol: symbol,
		logger: logger.With("component", "wsfeed", "symbol", symbol),
	}
}

// Run connects and maintains the WebSocket connection with auto-reconnect,
// publishing decoded events until ctx is cancelled.
func (f *Feed) Run(ctx context.Context, publish func(types.Event)) error {
	backoff := time.Second

	for {
		err := f.connectAndRead(ctx, publish)
		if ctx.Err() != nil {
			return nil
		}

		f.logger.Warn("websocket disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

func (f *Feed) connectAndRead(ctx context.Context, publish func(types.Event)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	f.conn = conn
	defer func() {
		conn.Close()
		f.conn = nil
	}()

	if err := f.subscribe(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	f.logger.Info("websocket connected")

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go f.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return nil
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		f.dispatch(msg, publish)
	}
}

func (f *Feed) subscribe() error {
	return f.conn.WriteJSON(wireSubscribeMsg{Operation: "subscribe", Symbols: []string{f.symbol}})
}

func (f *Feed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := f.conn.WriteMessage(websocket.TextMessage, []byte("PING")); err != nil {
				f.logger.Warn("ping failed", "error", err)
				return
			}
		}
	}
}

func (f *Feed) dispatch(data []byte, publish func(types.Event)) {
	var envelope wireEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		f.logger.Debug("ignoring non-json ws message")
		return
	}

	switch envelope.EventType {
	case "book":
		var evt wireBookEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			f.logger.Error("unmarshal book event", "error", err)
			return
		}
		update, err := toOrderBookUpdate(evt.Symbol, types.BookSnapshot, evt.Timestamp, evt.Bids, evt.Asks)
		if err != nil {
			f.logger.Error("decode book levels", "error", err)
			return
		}
		publish(types.NewOrderBookEvent(update))

	case "price_change":
		var evt wirePriceChangeEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			f.logger.Error("unmarshal price_change event", "error", err)
			return
		}
		update, err := toOrderBookUpdate(evt.Symbol, types.BookDelta, evt.Timestamp, evt.Bids, evt.Asks)
		if err != nil {
			f.logger.Error("decode price_change levels", "error", err)
			return
		}
		publish(types.NewOrderBookEvent(update))

	case "trade":
		var evt wireTradeEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			f.logger.Error("unmarshal trade event", "error", err)
			return
		}
		side, err := types.ParseSide(evt.Side)
		if err != nil {
			f.logger.Error("decode trade side", "error", err)
			return
		}
		price, err1 := decimal.Parse(evt.Price)
		size, err2 := decimal.Parse(evt.Size)
		if err1 != nil || err2 != nil {
			f.logger.Error("decode trade price/size", "price_err", err1, "size_err", err2)
			return
		}
		publish(types.NewTradeEvent([]types.Trade{{
			Symbol: evt.Symbol, Side: side, Price: price, Size: size, Timestamp: evt.Timestamp,
		}}))

	case "last_trade_price", "tick_size_change", "best_bid_ask", "new_market", "market_resolved":
		f.logger.Debug("ignoring informational event", "type", envelope.EventType)

	default:
		f.logger.Debug("unknown ws event type", "type", envelope.EventType)
	}
}

func toOrderBookUpdate(symbol string, kind types.BookUpdateKind, ts int64, wireBids, wireAsks []wireLevel) (types.OrderBookUpdate, error) {
	bids, err := toPriceLevels(wireBids)
	if err != nil {
		return types.OrderBookUpdate{}, fmt.Errorf("bids: %w", err)
	}
	asks, err := toPriceLevels(wireAsks)
	if err != nil {
		return types.OrderBookUpdate{}, fmt.Errorf("asks: %w", err)
	}
	return types.OrderBookUpdate{Symbol: symbol, Kind: kind, UpdatedAt: ts, Bids: bids, Asks: asks}, nil
}

func toPriceLevels(levels []wireLevel) ([]types.PriceLevel, error) {
	out := make([]types.PriceLevel, 0, len(levels))
	for _, l := range levels {
		price, err := decimal.Parse(l.Price)
		if err != nil {
			return nil, fmt.Errorf("price %q: %w", l.Price, err)
		}
		size, err := decimal.Parse(l.Size)
		if err != nil {
			return nil, fmt.Errorf("size %q: %w", l.Size, err)
		}
		out = append(out, types.PriceLevel{Price: price, Size: size})
	}
	return out, nil
}
