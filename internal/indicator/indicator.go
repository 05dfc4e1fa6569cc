// Package indicator implements streaming technical indicators consumed by
// PriceState and the dynamic-spread strategy. Each indicator admits new
// samples no more often than its configured interval and exposes its
// current value (if any) through a shared interface, so PriceState can hold
// a heterogeneous, name-keyed set of them.
package indicator

import "marketmaker/pkg/decimal"

// Indicator is the shared behavior of every streaming indicator: it is fed
// (price, timestamp) samples and may or may not produce a new value on any
// given sample, depending on its own admission policy.
type Indicator interface {
	// Name identifies the indicator, e.g. "rsi" or "natr".
	Name() string
	// Value returns the indicator's current value, and false if it has not
	// yet produced one.
	Value() (decimal.Decimal, bool)
	// Update feeds a new (price, timestamp) sample.
	Update(price decimal.Decimal, timestampMs int64)
	// Reset clears all accumulated state.
	Reset()
}

// Registry is a name-keyed set of indicators, used by PriceState to fan
// trades out to every configured indicator and by the dynamic-spread
// strategy to read named values back out.
type Registry struct {
	indicators map[string]Indicator
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{indicators: make(map[string]Indicator)}
}

// Add registers ind under its own Name(). A later Add with the same name
// replaces the earlier one.
func (r *Registry) Add(ind Indicator) {
	r.indicators[ind.Name()] = ind
}

// Get returns the indicator registered under name, if any.
func (r *Registry) Get(name string) (Indicator, bool) {
	ind, ok := r.indicators[name]
	return ind, ok
}

// UpdateAll feeds the sample to every registered indicator.
func (r *Registry) UpdateAll(price decimal.Decimal, timestampMs int64) {
	for _, ind := range r.indicators {
		ind.Update(price, timestampMs)
	}
}

// Value is a convenience that looks up name and returns its current value.
func (r *Registry) Value(name string) (decimal.Decimal, bool) {
	ind, ok := r.indicators[name]
	if !ok {
		return decimal.Zero, false
	}
	return ind.Value()
}
