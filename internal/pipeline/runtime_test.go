package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"marketmaker/internal/state"
	"marketmaker/pkg/decimal"
	"marketmaker/pkg/types"
)

type fakeCollector struct {
	events []types.Event
}

func (f *fakeCollector) Run(ctx context.Context, publish func(types.Event)) error {
	for _, e := range f.events {
		publish(e)
	}
	<-ctx.Done()
	return nil
}

type countingStrategy struct {
	ticks int32
}

func (s *countingStrategy) IntervalMS() uint64 { return 10 }

func (s *countingStrategy) Evaluate(input Input) ([]types.Action, error) {
	atomic.AddInt32(&s.ticks, 1)
	if input.HaveMid {
		return []types.Action{types.NewPlaceOrderAction(types.PlaceOrder{
			Symbol: "BTCUSD", Side: types.Bid, Price: input.MidPrice, Size: decimal.MustParse("1"),
		})}, nil
	}
	return nil, nil
}

type countingExecutor struct {
	count int32
}

func (e *countingExecutor) Execute(ctx context.Context, action types.Action) error {
	atomic.AddInt32(&e.count, 1)
	return nil
}

func TestRuntimeWiresCollectorStrategyExecutor(t *testing.T) {
	t.Parallel()

	obState := state.NewOrderBookState("BTCUSD", 0)
	collector := &fakeCollector{events: []types.Event{
		types.NewOrderBookEvent(types.OrderBookUpdate{
			Symbol: "BTCUSD", Kind: types.BookSnapshot,
			Bids: []types.PriceLevel{{Price: decimal.MustParse("100"), Size: decimal.MustParse("1")}},
			Asks: []types.PriceLevel{{Price: decimal.MustParse("101"), Size: decimal.MustParse("1")}},
		}),
	}}
	strategy := &countingStrategy{}
	executor := &countingExecutor{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Run(ctx, Config{
			Collectors: []Collector{collector},
			States:     []state.State{obState},
			BuildInput: func() Input {
				return BuildInput(obState, nil, nil, nil)
			},
			Strategy:  strategy,
			Executors: []Executor{executor},
		})
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not shut down in time")
	}

	if atomic.LoadInt32(&strategy.ticks) == 0 {
		t.Fatal("expected strategy to have ticked at least once")
	}
	if atomic.LoadInt32(&executor.count) == 0 {
		t.Fatal("expected executor to have received at least one action")
	}
}
