package state

import (
	"sync"

	"marketmaker/pkg/types"
)

// PositionState owns the net inventory for one symbol. It reacts only to
// OrderFilled events, updating the position via its size-weighted-average
// and flip/reduce/close rules.
type PositionState struct {
	mu       sync.RWMutex
	position types.Position
}

// NewPositionState constructs an empty (flat) position shard.
func NewPositionState() *PositionState {
	return &PositionState{}
}

// Name identifies this shard.
func (s *PositionState) Name() string { return "position" }

// ProcessEvent applies an OrderFilled event; all other event kinds are
// ignored.
func (s *PositionState) ProcessEvent(event types.Event) error {
	if event.Kind != types.EventOrderFilled {
		return nil
	}
	f := event.Filled
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = s.position.Update(f.Side, f.Price, f.Size, f.Timestamp)
	return nil
}

// Position returns a copy of the current position.
func (s *PositionState) Position() types.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.position
}
