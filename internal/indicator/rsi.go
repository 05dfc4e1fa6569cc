package indicator

import "marketmaker/pkg/decimal"

// RSI is a classic relative-strength-index indicator over a sliding window
// of period prices, admitting a new sample no more often than
// updateIntervalMs.
type RSI struct {
	period           int
	updateIntervalMs int64

	window        []decimal.Decimal // most recent `period` admitted prices, oldest first
	lastUpdatedAt int64
	haveFirst     bool

	value    decimal.Decimal
	hasValue bool
}

// NewRSI constructs an RSI over the given period, admitting new samples at
// most every updateIntervalMs.
func NewRSI(period int, updateIntervalMs int64) *RSI {
	return &RSI{period: period, updateIntervalMs: updateIntervalMs}
}

// Name identifies this indicator as "rsi".
func (r *RSI) Name() string { return "rsi" }

// Value returns the current RSI value, 0-100.
func (r *RSI) Value() (decimal.Decimal, bool) {
	return r.value, r.hasValue
}

// Reset clears all accumulated samples.
func (r *RSI) Reset() {
	r.window = nil
	r.lastUpdatedAt = 0
	r.haveFirst = false
	r.value = decimal.Zero
	r.hasValue = false
}

// Update admits a new (price, timestamp) sample if enough time has passed
// since the last admitted sample, and recomputes Value once the window is
// full.
func (r *RSI) Update(price decimal.Decimal, timestampMs int64) {
	if !r.shouldUpdate(timestampMs) {
		return
	}
	r.lastUpdatedAt = timestampMs
	r.haveFirst = true

	r.window = append(r.window, price)
	if len(r.window) > r.period {
		r.window = r.window[len(r.window)-r.period:]
	}
	if len(r.window) < r.period {
		return // value stays None until the window is full
	}
	r.recompute()
}

func (r *RSI) shouldUpdate(timestampMs int64) bool {
	if !r.haveFirst {
		return true
	}
	return timestampMs-r.lastUpdatedAt >= r.updateIntervalMs
}

func (r *RSI) recompute() {
	gains := decimal.Zero
	losses := decimal.Zero
	for i := 1; i < len(r.window); i++ {
		delta := r.window[i].Sub(r.window[i-1])
		if delta.IsPositive() {
			gains = gains.Add(delta)
		} else if delta.IsNegative() {
			losses = losses.Add(delta.Neg())
		}
	}

	if losses.IsZero() {
		r.value = decimal.MustParse("100")
		r.hasValue = true
		return
	}

	rs := gains.Div(losses)
	hundred := decimal.MustParse("100")
	one := decimal.One
	r.value = hundred.Sub(hundred.Div(one.Add(rs)))
	r.hasValue = true
}
