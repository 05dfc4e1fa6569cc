// Package pipeline wires collectors, state shards, a strategy, and
// executors into a running event loop: collectors publish events onto a
// shared bus, state shards consume them under a single-writer lock,
// the strategy periodically reads a snapshot across all shards and emits
// actions onto a second bus, and executors consume those. A single
// context.Context cancels every goroutine in the pipeline.
package pipeline

import (
	"log/slog"
	"sync"
)

// defaultSubscriberCapacity bounds how many unconsumed messages a slow
// subscriber may accumulate before Publish starts dropping for it. This
// mirrors the teacher's bounded broadcast-channel capacities.
const defaultSubscriberCapacity = 1024

// Bus is a multi-subscriber broadcast channel: every message Published is
// delivered to every current Subscriber. Go has no built-in broadcast
// channel (unlike a single-producer/multi-consumer primitive), so this
// fans a single Publish out to N per-subscriber channels explicitly.
// A slow subscriber never blocks others: Publish uses a non-blocking send
// per subscriber and logs + drops the message for any subscriber whose
// channel is full.
type Bus[T any] struct {
	mu          sync.Mutex
	subscribers map[int]chan T
	nextID      int
	capacity    int
	logger      *slog.Logger
	name        string
}

// NewBus constructs a Bus with the given per-subscriber channel capacity.
// A capacity of 0 uses defaultSubscriberCapacity.
func NewBus[T any](name string, capacity int, logger *slog.Logger) *Bus[T] {
	if capacity <= 0 {
		capacity = defaultSubscriberCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus[T]{
		subscribers: make(map[int]chan T),
		capacity:    capacity,
		logger:      logger.With("component", "bus", "bus", name),
		name:        name,
	}
}

// Subscribe registers a new subscriber and returns its channel along with
// an unsubscribe function. Callers must call unsubscribe when done to avoid
// leaking the channel and its goroutine-side buffer.
func (b *Bus[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan T, b.capacity)
	b.subscribers[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(existing)
		}
	}
	return ch, unsubscribe
}

// Publish delivers msg to every current subscriber. A subscriber whose
// buffer is full has the message dropped for it, with a logged warning,
// rather than blocking the publisher or other subscribers.
func (b *Bus[T]) Publish(msg T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- msg:
		default:
			b.logger.Warn("dropping message for slow subscriber", "subscriber_id", id)
		}
	}
}

// SubscriberCount returns the current number of active subscribers,
// primarily for tests and dashboard diagnostics.
func (b *Bus[T]) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
