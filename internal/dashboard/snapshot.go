package dashboard

import (
	"time"

	"marketmaker/internal/book"
	"marketmaker/internal/risk"
	"marketmaker/pkg/decimal"
	"marketmaker/pkg/types"
)

// Provider supplies everything BuildSnapshot needs, read-only. A single
// wiring struct in cmd/marketmaker adapts the pipeline's state shards and
// risk guard to this interface.
type Provider interface {
	Symbol() string
	BookSnapshot() book.Snapshot
	MidPrice() (decimal.Decimal, bool)
	Indicator(name string) (decimal.Decimal, bool)
	Position() types.Position
	PendingOrders() []types.Order
	RiskSnapshot() risk.Snapshot
}

// BuildSnapshot aggregates state from all components into a dashboard
// snapshot.
func BuildSnapshot(p Provider) Snapshot {
	book := p.BookSnapshot()

	mid, haveMid := p.MidPrice()

	s := Snapshot{
		Timestamp: time.Now(),
		Symbol:    p.Symbol(),
		Bids:      toLevelViews(book.Bids),
		Asks:      toLevelViews(book.Asks),
		Position:  toPositionView(p.Position(), mid, haveMid),
		Risk:      toRiskView(p.RiskSnapshot()),
	}

	if haveMid {
		s.MidPrice = mid.String()
	}
	if len(book.Bids) > 0 {
		s.BestBid = &LevelView{Price: book.Bids[0].Price.String(), Size: book.Bids[0].Size.String()}
	}
	if len(book.Asks) > 0 {
		s.BestAsk = &LevelView{Price: book.Asks[0].Price.String(), Size: book.Asks[0].Size.String()}
	}
	if rsi, ok := p.Indicator("rsi"); ok {
		s.RSI = rsi.String()
	}
	if natr, ok := p.Indicator("natr"); ok {
		s.NATR = natr.String()
	}

	for _, o := range p.PendingOrders() {
		s.Pending = append(s.Pending, OrderView{OID: o.OID, Side: o.Side.String(), Price: o.Price.String(), Size: o.Size.String()})
	}

	return s
}

func toLevelViews(levels []types.PriceLevel) []LevelView {
	out := make([]LevelView, 0, len(levels))
	for _, l := range levels {
		out = append(out, LevelView{Price: l.Price.String(), Size: l.Size.String()})
	}
	return out
}

func toPositionView(pos types.Position, mid decimal.Decimal, haveMid bool) PositionView {
	if !pos.IsOpen() {
		return PositionView{Open: false}
	}
	view := PositionView{
		Open:       true,
		Side:       pos.Side.String(),
		Size:       pos.Size.String(),
		EntryPrice: pos.EntryPrice.String(),
	}
	if haveMid {
		view.CurrentValue = pos.CurrentValue(mid).String()
		view.UnrealizedPnL = pos.UnrealizedPnL(mid).String()
	}
	return view
}

func toRiskView(snap risk.Snapshot) RiskView {
	return RiskView{
		PositionSize:    snap.PositionSize.String(),
		MaxPositionSize: snap.MaxPositionSize.String(),
		KillActive:      snap.KillActive,
		KillUntil:       snap.KillUntil,
		KillReason:      snap.KillReason,
	}
}
