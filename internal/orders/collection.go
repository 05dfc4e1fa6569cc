// Package orders implements a dual-indexed collection of resting orders:
// by price (ordered, per side) and by oid, so both "what's the best
// price" and "what's order N" are O(1)-ish lookups.
package orders

import (
	"sort"
	"sync"

	"marketmaker/pkg/decimal"
	"marketmaker/pkg/types"
)

// Collection holds resting orders for one symbol, indexed both by price
// (ordered set of oids per level) and by oid (the order itself). It is safe
// for concurrent use.
type Collection struct {
	mu       sync.RWMutex
	bids     map[string][]uint64 // price string -> oids, insertion order preserved
	asks     map[string][]uint64
	registry map[uint64]types.Order
}

// New constructs an empty Collection.
func New() *Collection {
	return &Collection{
		bids:     make(map[string][]uint64),
		asks:     make(map[string][]uint64),
		registry: make(map[uint64]types.Order),
	}
}

func (c *Collection) sideIndex(side types.Side) map[string][]uint64 {
	if side == types.Bid {
		return c.bids
	}
	return c.asks
}

// Insert adds an order to the collection, indexed by its side and price.
func (c *Collection) Insert(o types.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.sideIndex(o.Side)
	key := o.Price.String()
	idx[key] = append(idx[key], o.OID)
	c.registry[o.OID] = o
}

// RemoveByOID removes an order entirely, returning it and whether it was
// present.
func (c *Collection) RemoveByOID(oid uint64) (types.Order, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeByOIDLocked(oid)
}

func (c *Collection) removeByOIDLocked(oid uint64) (types.Order, bool) {
	o, ok := c.registry[oid]
	if !ok {
		return types.Order{}, false
	}
	idx := c.sideIndex(o.Side)
	key := o.Price.String()
	oids := idx[key]
	for i, id := range oids {
		if id == oid {
			idx[key] = append(oids[:i], oids[i+1:]...)
			break
		}
	}
	if len(idx[key]) == 0 {
		delete(idx, key)
	}
	delete(c.registry, oid)
	return o, true
}

// ReduceSize reduces the resting size of oid by size. If the remaining size
// is zero or negative, the order is removed entirely (per this module's
// resolution that both fill- and cancel-driven reductions to zero remove
// the order). Returns false if the order is absent or size is not
// positive.
func (c *Collection) ReduceSize(oid uint64, size decimal.Decimal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !size.IsPositive() {
		return false
	}
	existing, ok := c.registry[oid]
	if !ok {
		return false
	}
	if existing.Size.GreaterThan(size) {
		existing.Size = existing.Size.Sub(size)
		c.registry[oid] = existing
		return true
	}
	c.removeByOIDLocked(oid)
	return true
}

// GetOrder returns the order for oid and whether it exists.
func (c *Collection) GetOrder(oid uint64) (types.Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.registry[oid]
	return o, ok
}

// AllOIDs returns every oid currently resting, in no particular order.
func (c *Collection) AllOIDs() []uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	oids := make([]uint64, 0, len(c.registry))
	for oid := range c.registry {
		oids = append(oids, oid)
	}
	return oids
}

// BestBidOID returns the oid of the first (earliest-inserted) order at the
// best (highest) bid price.
func (c *Collection) BestBidOID() (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return bestOID(c.bids, func(a, b decimal.Decimal) bool { return a.GreaterThan(b) })
}

// BestAskOID returns the oid of the first (earliest-inserted) order at the
// best (lowest) ask price.
func (c *Collection) BestAskOID() (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return bestOID(c.asks, func(a, b decimal.Decimal) bool { return a.LessThan(b) })
}

func bestOID(idx map[string][]uint64, better func(a, b decimal.Decimal) bool) (uint64, bool) {
	var bestPrice decimal.Decimal
	var bestKey string
	found := false
	for key := range idx {
		if len(idx[key]) == 0 {
			continue
		}
		p := decimal.MustParse(key)
		if !found || better(p, bestPrice) {
			bestPrice = p
			bestKey = key
			found = true
		}
	}
	if !found {
		return 0, false
	}
	return idx[bestKey][0], true
}

// IsEmpty reports whether the collection holds no orders.
func (c *Collection) IsEmpty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.registry) == 0
}

// Len returns the number of resting orders.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.registry)
}

// Clear removes every resting order.
func (c *Collection) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bids = make(map[string][]uint64)
	c.asks = make(map[string][]uint64)
	c.registry = make(map[uint64]types.Order)
}

// ForEach calls f for every resting order, ordered by side (bids then
// asks) and then by price (best to worst), for deterministic snapshots.
func (c *Collection) ForEach(f func(types.Order)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, oid := range orderedOIDs(c.bids, func(a, b decimal.Decimal) bool { return a.GreaterThan(b) }) {
		f(c.registry[oid])
	}
	for _, oid := range orderedOIDs(c.asks, func(a, b decimal.Decimal) bool { return a.LessThan(b) }) {
		f(c.registry[oid])
	}
}

func orderedOIDs(idx map[string][]uint64, better func(a, b decimal.Decimal) bool) []uint64 {
	prices := make([]decimal.Decimal, 0, len(idx))
	for key := range idx {
		prices = append(prices, decimal.MustParse(key))
	}
	sort.Slice(prices, func(i, j int) bool { return better(prices[i], prices[j]) })

	var oids []uint64
	for _, p := range prices {
		oids = append(oids, idx[p.String()]...)
	}
	return oids
}
