package strategy

import (
	"marketmaker/internal/pipeline"
	"marketmaker/pkg/decimal"
	"marketmaker/pkg/types"
)

// DynamicSpread widens its quoted spread with realized volatility (NATR)
// and skews its reference price with momentum (RSI), rather than quoting a
// constant distance around mid like FixedSpread. It skips the tick if mid,
// RSI, or NATR is not yet available.
type DynamicSpread struct {
	Symbol           string
	IntervalMs       uint64
	OrderSize        decimal.Decimal
	BaseSpread       decimal.Decimal
	VolatilityTarget decimal.Decimal // NATR units (percent), same scale as the NATR indicator's value
	SkewStrength     decimal.Decimal // fractional price adjustment, e.g. 0.001 = 0.1%
	RSILowThreshold  decimal.Decimal // default 30
	RSIHighThreshold decimal.Decimal // default 70
}

// IntervalMS reports the configured tick interval.
func (d *DynamicSpread) IntervalMS() uint64 { return d.IntervalMs }

// Evaluate cancels every pending order, then quotes a bid and ask around a
// volatility-adjusted spread and a momentum-skewed reference price.
func (d *DynamicSpread) Evaluate(input pipeline.Input) ([]types.Action, error) {
	if !input.HaveMid || !input.HaveRSI || !input.HaveNATR {
		return nil, nil
	}

	actions := make([]types.Action, 0, len(input.PendingOIDs)+2)
	for _, oid := range input.PendingOIDs {
		actions = append(actions, types.NewCancelOrderAction(types.CancelOrder{Symbol: d.Symbol, OID: oid}))
	}

	spread := d.adjustedSpread(input.NATR)
	skew := d.skew(input.RSI)
	reference := input.MidPrice.Mul(decimal.One.Add(skew))

	bidPrice := reference.Sub(spread)
	askPrice := reference.Add(spread)

	actions = append(actions,
		types.NewPlaceOrderAction(types.PlaceOrder{Symbol: d.Symbol, Side: types.Bid, Price: bidPrice, Size: d.OrderSize}),
		types.NewPlaceOrderAction(types.PlaceOrder{Symbol: d.Symbol, Side: types.Ask, Price: askPrice, Size: d.OrderSize}),
	)
	return actions, nil
}

// adjustedSpread widens BaseSpread in proportion to realized volatility:
// base * (1 + natr/volatility_target).
func (d *DynamicSpread) adjustedSpread(natr decimal.Decimal) decimal.Decimal {
	ratio := natr.Div(d.VolatilityTarget)
	return d.BaseSpread.Mul(decimal.One.Add(ratio))
}

// skew returns -SkewStrength when RSI signals oversold (<30), +SkewStrength
// when overbought (>70), and zero otherwise.
func (d *DynamicSpread) skew(rsi decimal.Decimal) decimal.Decimal {
	low := d.RSILowThreshold
	if low.IsZero() {
		low = decimal.MustParse("30")
	}
	high := d.RSIHighThreshold
	if high.IsZero() {
		high = decimal.MustParse("70")
	}
	switch {
	case rsi.LessThan(low):
		return d.SkewStrength.Neg()
	case rsi.GreaterThan(high):
		return d.SkewStrength
	default:
		return decimal.Zero
	}
}
