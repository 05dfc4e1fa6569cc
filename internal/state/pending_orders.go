package state

import (
	"fmt"

	"marketmaker/internal/orders"
	"marketmaker/pkg/types"
)

// PendingOrdersState owns the bot's own resting orders. It reacts to
// OrderPlaced (insert), OrderFilled (reduce or remove), and OrderCancelled
// (remove); OrderBookUpdate and TradeUpdate are ignored.
type PendingOrdersState struct {
	collection *orders.Collection
}

// NewPendingOrdersState constructs an empty pending-orders shard.
func NewPendingOrdersState() *PendingOrdersState {
	return &PendingOrdersState{collection: orders.New()}
}

// Name identifies this shard.
func (s *PendingOrdersState) Name() string { return "pending_orders" }

// ProcessEvent applies one of OrderPlaced/OrderFilled/OrderCancelled.
func (s *PendingOrdersState) ProcessEvent(event types.Event) error {
	switch event.Kind {
	case types.EventOrderPlaced:
		s.collection.Insert(*event.Placed)
		return nil
	case types.EventOrderFilled:
		f := event.Filled
		if !s.collection.ReduceSize(f.OID, f.Size) {
			return fmt.Errorf("pending_orders: failed to reduce order size for oid %d", f.OID)
		}
		return nil
	case types.EventOrderCancelled:
		if _, ok := s.collection.RemoveByOID(event.Cancelled.OID); !ok {
			return fmt.Errorf("pending_orders: cancel for unknown oid %d", event.Cancelled.OID)
		}
		return nil
	default:
		return nil
	}
}

// AllOIDs returns every currently resting oid.
func (s *PendingOrdersState) AllOIDs() []uint64 {
	return s.collection.AllOIDs()
}

// GetOrder returns the order for oid, if it is resting.
func (s *PendingOrdersState) GetOrder(oid uint64) (types.Order, bool) {
	return s.collection.GetOrder(oid)
}

// ForEach calls f for every resting order, best-to-worst per side.
func (s *PendingOrdersState) ForEach(f func(types.Order)) {
	s.collection.ForEach(f)
}

// IsEmpty reports whether there are no resting orders.
func (s *PendingOrdersState) IsEmpty() bool {
	return s.collection.IsEmpty()
}
