package indicator

import "marketmaker/pkg/decimal"

// NATR is a normalized-average-true-range indicator: it forms candles of a
// fixed duration from incoming prices, computes each candle's true range on
// close, and reports the average true range over a sliding window of
// period candles as a percentage of the most recent close.
type NATR struct {
	period           int
	intervalMs       int64
	trueRanges       []decimal.Decimal // sliding window, most recent last
	open, high, low, close decimal.Decimal
	lastClosedAt     int64
	seeded           bool

	value    decimal.Decimal
	hasValue bool
}

// NewNATR constructs a NATR over the given period of intervalMs candles.
func NewNATR(period int, intervalMs int64) *NATR {
	return &NATR{period: period, intervalMs: intervalMs}
}

// Name identifies this indicator as "natr".
func (n *NATR) Name() string { return "natr" }

// Value returns the current NATR value as a percentage.
func (n *NATR) Value() (decimal.Decimal, bool) {
	return n.value, n.hasValue
}

// Reset clears all accumulated candles and true ranges.
func (n *NATR) Reset() {
	*n = NATR{period: n.period, intervalMs: n.intervalMs}
}

// Update feeds a new (price, timestamp) sample. The very first sample seeds
// the first candle without producing output. Subsequent samples update the
// running candle's high/low/close; once intervalMs has elapsed since the
// last close, the candle's true range is computed and folded into the
// sliding window, and a new candle begins.
func (n *NATR) Update(price decimal.Decimal, timestampMs int64) {
	if !n.seeded {
		n.open = price
		n.high = price
		n.low = price
		n.close = price
		n.lastClosedAt = timestampMs
		n.seeded = true
		return
	}

	n.high = decimal.Max2(n.high, price)
	n.low = decimal.Min2(n.low, price)
	n.close = price

	if timestampMs-n.lastClosedAt < n.intervalMs {
		return
	}

	tr := trueRange(n.open, n.high, n.low)
	n.trueRanges = append(n.trueRanges, tr)
	if len(n.trueRanges) > n.period {
		n.trueRanges = n.trueRanges[len(n.trueRanges)-n.period:]
	}
	if len(n.trueRanges) == n.period {
		atr := decimal.Sum(n.trueRanges...).Div(decimal.FromInt(int64(n.period)))
		n.value = atr.Div(n.close).Mul(decimal.MustParse("100"))
		n.hasValue = true
	}

	n.open = n.close
	n.high = price
	n.low = price
	n.lastClosedAt = timestampMs
}

func trueRange(open, high, low decimal.Decimal) decimal.Decimal {
	return decimal.Max2(high.Sub(low), decimal.Max2(high.Sub(open).Abs(), low.Sub(open).Abs()))
}
