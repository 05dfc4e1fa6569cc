// Package risk enforces runtime-level risk limits on the single symbol a
// pipeline instance trades.
//
// The Guard runs as a standalone goroutine that periodically samples
// position and mid-price state and checks them against configured limits:
//
//   - Position size:      caps the absolute size of the held position
//   - Rapid price movement: triggers a kill if mid-price moves more than
//     MaxPriceMoveSize within MaxPriceMoveWindowSec seconds
//
// When a limit is breached, the Guard cancels every resting order by
// publishing a CancelOrder action for each pending oid onto the action bus,
// and engages a cooldown during which it keeps cancelling any new resting
// order until the cooldown expires.
package risk

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"marketmaker/internal/config"
	"marketmaker/internal/state"
	"marketmaker/pkg/decimal"
	"marketmaker/pkg/types"
)

// priceAnchor stores a reference price at a point in time for detecting
// rapid price movements within a rolling window.
type priceAnchor struct {
	price     decimal.Decimal
	timestamp time.Time
}

// Snapshot represents the guard's current aggregate risk metrics, exposed
// for the dashboard.
type Snapshot struct {
	PositionSize    decimal.Decimal
	MaxPositionSize decimal.Decimal
	KillActive      bool
	KillUntil       time.Time
	KillReason      string
}

// Guard polls position and price state on an interval and cancels all
// resting orders when a configured limit is breached.
type Guard struct {
	cfg    config.RiskConfig
	logger *slog.Logger

	maxPositionSize  decimal.Decimal
	maxPriceMoveSize decimal.Decimal
	priceMoveWindow  time.Duration
	cooldown         time.Duration

	mu         sync.RWMutex
	killActive bool
	killUntil  time.Time
	killReason string
	anchor     *priceAnchor

	symbol    string
	positions *state.PositionState
	book      *state.OrderBookState
	publish   func(types.Action)
}

// New creates a risk guard. positions and book supply the readable state the
// guard samples each tick; publish is the function cancel actions are sent
// through (typically the pipeline's action bus Publish method).
func New(symbol string, cfg config.RiskConfig, positions *state.PositionState, book *state.OrderBookState, publish func(types.Action), logger *slog.Logger) (*Guard, error) {
	maxPos, err := decimal.Parse(cfg.MaxPositionSize)
	if err != nil {
		return nil, fmt.Errorf("risk: invalid max_position_size: %w", err)
	}
	maxMove, err := decimal.Parse(cfg.MaxPriceMoveSize)
	if err != nil {
		return nil, fmt.Errorf("risk: invalid max_price_move_size: %w", err)
	}
	return &Guard{
		cfg:              cfg,
		logger:           logger.With("component", "risk"),
		maxPositionSize:  maxPos,
		maxPriceMoveSize: maxMove,
		priceMoveWindow:  time.Duration(cfg.MaxPriceMoveWindowSec) * time.Second,
		cooldown:         time.Duration(cfg.CooldownSec) * time.Second,
		symbol:           symbol,
		positions:        positions,
		book:             book,
		publish:          publish,
	}, nil
}

// Run starts the risk monitoring loop. pendingOIDs is called each tick to
// fetch the current set of resting order ids so they can be cancelled on
// breach.
func (g *Guard) Run(ctx context.Context, pendingOIDs func() []uint64) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.check(pendingOIDs())
		}
	}
}

func (g *Guard) check(oids []uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	prevKillUntil := g.killUntil
	if g.killActive && time.Now().After(g.killUntil) {
		g.killActive = false
		g.logger.Info("kill switch cooldown expired")
	}

	pos := g.positions.Position()
	if pos.IsOpen() && pos.Size.GreaterThan(g.maxPositionSize) {
		g.emitKill(oids, "position size limit breached")
	}

	mid, haveMid := g.book.MidPrice()
	if haveMid {
		g.checkPriceMovement(oids, mid)
	}

	if g.killActive && g.killUntil.Equal(prevKillUntil) {
		// Stay defensive during cooldown: cancel anything that rested since.
		// A kill that fired on this tick has already cancelled every oid.
		g.cancelAll(oids)
	}
}

// checkPriceMovement detects rapid price swings using a rolling anchor. If
// the anchor is absent or older than MaxPriceMoveWindowSec, it resets to the
// current price. Otherwise, a move beyond MaxPriceMoveSize triggers a kill.
func (g *Guard) checkPriceMovement(oids []uint64, mid decimal.Decimal) {
	now := time.Now()
	if g.anchor == nil || now.Sub(g.anchor.timestamp) > g.priceMoveWindow {
		g.anchor = &priceAnchor{price: mid, timestamp: now}
		return
	}

	move := mid.Sub(g.anchor.price).Abs()
	if move.GreaterThan(g.maxPriceMoveSize) {
		g.emitKill(oids, fmt.Sprintf("rapid price movement: %s within %ds", move, g.cfg.MaxPriceMoveWindowSec))
	}
}

// emitKill engages the kill switch, starts the cooldown timer, and cancels
// every currently resting order.
func (g *Guard) emitKill(oids []uint64, reason string) {
	g.killActive = true
	g.killUntil = time.Now().Add(g.cooldown)
	g.killReason = reason

	g.logger.Error("risk kill switch engaged", "reason", reason, "cooldown_until", g.killUntil)
	g.cancelAll(oids)
}

func (g *Guard) cancelAll(oids []uint64) {
	for _, oid := range oids {
		g.publish(types.NewCancelOrderAction(types.CancelOrder{Symbol: g.symbol, OID: oid}))
	}
}

// IsKillActive reports whether the kill switch is currently engaged.
func (g *Guard) IsKillActive() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.killActive
}

// GetSnapshot returns the guard's current aggregate risk metrics.
func (g *Guard) GetSnapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return Snapshot{
		PositionSize:    g.positions.Position().Size,
		MaxPositionSize: g.maxPositionSize,
		KillActive:      g.killActive,
		KillUntil:       g.killUntil,
		KillReason:      g.killReason,
	}
}
