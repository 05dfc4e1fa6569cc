// Package book implements a price-indexed order book keyed by
// decimal.Decimal, with optional depth trimming and hypothetical fill
// simulation that never mutates state.
package book

import (
	"fmt"
	"sort"
	"sync"

	"marketmaker/pkg/decimal"
	"marketmaker/pkg/types"
)

// Fill is a simulated (or paper-exchange-real) execution against resting
// book liquidity.
type Fill struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// Book is a two-sided, decimal-keyed price-level book. Bids are kept
// highest-first, asks lowest-first. Book is safe for concurrent use; callers
// needing consistent reads across multiple fields should call Snapshot
// rather than chaining individual method calls.
type Book struct {
	mu sync.RWMutex

	symbol    string
	maxDepth  int // 0 means unlimited
	bids      map[string]decimal.Decimal
	asks      map[string]decimal.Decimal
	bidPrices []decimal.Decimal // kept sorted, bids descending
	askPrices []decimal.Decimal // kept sorted, asks ascending
	updatedAt int64
}

// New constructs an empty Book for symbol. maxDepth of 0 means no trimming.
func New(symbol string, maxDepth int) *Book {
	return &Book{
		symbol:   symbol,
		maxDepth: maxDepth,
		bids:     make(map[string]decimal.Decimal),
		asks:     make(map[string]decimal.Decimal),
	}
}

// Symbol returns the book's symbol.
func (b *Book) Symbol() string {
	return b.symbol
}

// Reset clears the book and replaces it with the given levels, used for a
// full snapshot.
func (b *Book) Reset(bids, asks []types.PriceLevel, updatedAt int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bids = make(map[string]decimal.Decimal, len(bids))
	b.asks = make(map[string]decimal.Decimal, len(asks))
	for _, lvl := range bids {
		if lvl.Size.IsPositive() {
			b.bids[lvl.Price.String()] = lvl.Size
		}
	}
	for _, lvl := range asks {
		if lvl.Size.IsPositive() {
			b.asks[lvl.Price.String()] = lvl.Size
		}
	}
	b.rebuildPricesLocked()
	b.trimLocked()
	b.updatedAt = updatedAt
}

// ApplyDelta replaces (never sums) the size at each given level. A level
// with zero size removes that price entirely. This is the module's
// resolution of the snapshot/delta open question: deltas always replace.
func (b *Book) ApplyDelta(bids, asks []types.PriceLevel, updatedAt int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, lvl := range bids {
		b.applyLevelLocked(b.bids, lvl)
	}
	for _, lvl := range asks {
		b.applyLevelLocked(b.asks, lvl)
	}
	b.rebuildPricesLocked()
	b.trimLocked()
	b.updatedAt = updatedAt
}

func (b *Book) applyLevelLocked(side map[string]decimal.Decimal, lvl types.PriceLevel) {
	key := lvl.Price.String()
	if lvl.Size.IsZero() {
		delete(side, key)
		return
	}
	side[key] = lvl.Size
}

func (b *Book) rebuildPricesLocked() {
	b.bidPrices = b.bidPrices[:0]
	for k := range b.bids {
		b.bidPrices = append(b.bidPrices, decimal.MustParse(k))
	}
	sort.Slice(b.bidPrices, func(i, j int) bool {
		return b.bidPrices[i].GreaterThan(b.bidPrices[j])
	})

	b.askPrices = b.askPrices[:0]
	for k := range b.asks {
		b.askPrices = append(b.askPrices, decimal.MustParse(k))
	}
	sort.Slice(b.askPrices, func(i, j int) bool {
		return b.askPrices[i].LessThan(b.askPrices[j])
	})
}

func (b *Book) trimLocked() {
	if b.maxDepth <= 0 {
		return
	}
	if len(b.bidPrices) > b.maxDepth {
		for _, p := range b.bidPrices[b.maxDepth:] {
			delete(b.bids, p.String())
		}
		b.bidPrices = b.bidPrices[:b.maxDepth]
	}
	if len(b.askPrices) > b.maxDepth {
		for _, p := range b.askPrices[b.maxDepth:] {
			delete(b.asks, p.String())
		}
		b.askPrices = b.askPrices[:b.maxDepth]
	}
}

// Insert sets the size of one level on side, replacing whatever size was
// there before, and trims depth afterward. size must be strictly positive;
// a zero-size insert is a remove and callers should use Remove instead.
func (b *Book) Insert(side types.Side, price, size decimal.Decimal) error {
	if !size.IsPositive() {
		return fmt.Errorf("book: insert size must be positive, got %s", size)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.levelsLocked(side)[price.String()] = size
	b.rebuildPricesLocked()
	b.trimLocked()
	return nil
}

// Remove deletes one level on side entirely, failing if the level is not
// currently present.
func (b *Book) Remove(side types.Side, price decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	levels := b.levelsLocked(side)
	key := price.String()
	if _, ok := levels[key]; !ok {
		return fmt.Errorf("book: level not found: %s %s", side, price)
	}
	delete(levels, key)
	b.rebuildPricesLocked()
	return nil
}

// Adjust adds delta to the size resting at price on side, removing the
// level if the result is exactly zero. It fails if the level is absent or
// if the result would be negative.
func (b *Book) Adjust(side types.Side, price, delta decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	levels := b.levelsLocked(side)
	key := price.String()
	existing, ok := levels[key]
	if !ok {
		return fmt.Errorf("book: level not found: %s %s", side, price)
	}

	result := existing.Add(delta)
	if result.IsNegative() {
		return fmt.Errorf("book: adjust would make level %s %s negative", side, price)
	}
	if result.IsZero() {
		delete(levels, key)
	} else {
		levels[key] = result
	}
	b.rebuildPricesLocked()
	return nil
}

func (b *Book) levelsLocked(side types.Side) map[string]decimal.Decimal {
	if side == types.Bid {
		return b.bids
	}
	return b.asks
}

// BestBid returns the highest bid price and its size, and whether the book
// has any bids.
func (b *Book) BestBid() (decimal.Decimal, decimal.Decimal, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.bidPrices) == 0 {
		return decimal.Zero, decimal.Zero, false
	}
	p := b.bidPrices[0]
	return p, b.bids[p.String()], true
}

// BestAsk returns the lowest ask price and its size, and whether the book
// has any asks.
func (b *Book) BestAsk() (decimal.Decimal, decimal.Decimal, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.askPrices) == 0 {
		return decimal.Zero, decimal.Zero, false
	}
	p := b.askPrices[0]
	return p, b.asks[p.String()], true
}

// MidPrice returns the midpoint of the best bid and ask, and false if
// either side is empty.
func (b *Book) MidPrice() (decimal.Decimal, bool) {
	bidPrice, _, haveBid := b.BestBid()
	askPrice, _, haveAsk := b.BestAsk()
	if !haveBid || !haveAsk {
		return decimal.Zero, false
	}
	return bidPrice.Add(askPrice).Div(decimal.MustParse("2")), true
}

// IsEmpty reports whether both sides are empty.
func (b *Book) IsEmpty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.bidPrices) == 0 && len(b.askPrices) == 0
}

// UpdatedAt returns the timestamp of the last applied snapshot or delta.
func (b *Book) UpdatedAt() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.updatedAt
}

// SimulateBuy walks the ask side from lowest price upward while
// price <= limitPrice, taking min(level_size, remaining) at each level,
// stopping when remaining reaches zero or no eligible level remains. It
// does not mutate the book. Returns the fills taken and whatever size
// could not be filled within the limit and available depth.
func (b *Book) SimulateBuy(limitPrice, size decimal.Decimal) ([]Fill, decimal.Decimal) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.simulateLocked(b.askPrices, b.asks, size, func(p decimal.Decimal) bool {
		return p.LessOrEqual(limitPrice)
	})
}

// SimulateSell is symmetric to SimulateBuy on the bid side, walking
// descending while price >= limitPrice.
func (b *Book) SimulateSell(limitPrice, size decimal.Decimal) ([]Fill, decimal.Decimal) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.simulateLocked(b.bidPrices, b.bids, size, func(p decimal.Decimal) bool {
		return p.GreaterOrEqual(limitPrice)
	})
}

func (b *Book) simulateLocked(prices []decimal.Decimal, levels map[string]decimal.Decimal, size decimal.Decimal, withinLimit func(decimal.Decimal) bool) ([]Fill, decimal.Decimal) {
	remaining := size
	var fills []Fill
	for _, p := range prices {
		if !remaining.IsPositive() {
			break
		}
		if !withinLimit(p) {
			break
		}
		avail := levels[p.String()]
		take := decimal.Min2(avail, remaining)
		if !take.IsPositive() {
			continue
		}
		fills = append(fills, Fill{Price: p, Size: take})
		remaining = remaining.Sub(take)
	}
	return fills, remaining
}

// Snapshot is a point-in-time read of both sides, ordered best-to-worst,
// for dashboard rendering and strategy inputs that need more than the top
// of book.
type Snapshot struct {
	Symbol    string
	UpdatedAt int64
	Bids      []types.PriceLevel
	Asks      []types.PriceLevel
}

// Snapshot returns an ordered copy of the book's current state.
func (b *Book) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bids := make([]types.PriceLevel, 0, len(b.bidPrices))
	for _, p := range b.bidPrices {
		bids = append(bids, types.PriceLevel{Price: p, Size: b.bids[p.String()]})
	}
	asks := make([]types.PriceLevel, 0, len(b.askPrices))
	for _, p := range b.askPrices {
		asks = append(asks, types.PriceLevel{Price: p, Size: b.asks[p.String()]})
	}
	return Snapshot{Symbol: b.symbol, UpdatedAt: b.updatedAt, Bids: bids, Asks: asks}
}
