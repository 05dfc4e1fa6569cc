package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"marketmaker/internal/state"
	"marketmaker/pkg/decimal"
	"marketmaker/pkg/types"
)

// Collector produces events from an external or internal source (an
// exchange feed, a paper exchange's rebroadcast stream) onto publish.
// Run should block until ctx is cancelled or the source is exhausted.
type Collector interface {
	Run(ctx context.Context, publish func(types.Event)) error
}

// Executor dispatches actions to an external or internal sink (a live
// exchange client, a paper exchange's message channel). Execute errors are
// logged by the runtime but never stop the executor goroutine.
type Executor interface {
	Execute(ctx context.Context, action types.Action) error
}

// Strategy evaluates a periodic Input snapshot into zero or more Actions.
type Strategy interface {
	// IntervalMS is how often, in milliseconds, the strategy is ticked.
	IntervalMS() uint64
	// Evaluate computes actions from the current read-only snapshot.
	Evaluate(input Input) ([]types.Action, error)
}

// Input is the read-only snapshot assembled from every state shard before
// each strategy tick. Fields a particular strategy does not need are simply
// left unused; the "Have*" flags mirror the states' own option-like
// absence handling (e.g. mid-price before any book snapshot arrives).
type Input struct {
	MidPrice decimal.Decimal
	HaveMid  bool

	RSI     decimal.Decimal
	HaveRSI bool

	NATR     decimal.Decimal
	HaveNATR bool

	Position types.Position

	PendingOIDs []uint64
}

// BuildInput assembles an Input snapshot by reading each given state shard
// in turn. Passing nil for any shard leaves the corresponding fields at
// their zero/absent value, so a strategy that only needs the book and
// pending orders can omit price/position shards entirely.
func BuildInput(obState *state.OrderBookState, posState *state.PositionState, pendState *state.PendingOrdersState, priceState *state.PriceState) Input {
	var in Input
	if obState != nil {
		in.MidPrice, in.HaveMid = obState.MidPrice()
	}
	if posState != nil {
		in.Position = posState.Position()
	}
	if pendState != nil {
		in.PendingOIDs = pendState.AllOIDs()
	}
	if priceState != nil {
		in.RSI, in.HaveRSI = priceState.Indicator("rsi")
		in.NATR, in.HaveNATR = priceState.Indicator("natr")
	}
	return in
}

// Config wires together one run of the pipeline: any number of collectors,
// state shards, exactly one strategy, and any number of executors, plus the
// closure the strategy tick uses to build its Input from those shards.
type Config struct {
	Collectors  []Collector
	States      []state.State
	BuildInput  func() Input
	Strategy    Strategy
	Executors   []Executor
	EventBusCap int // 0 uses defaultSubscriberCapacity
	ActionBusCap int
	Logger      *slog.Logger

	// ActionSources run alongside collectors but publish directly onto the
	// action bus rather than the event bus — e.g. the risk guard cancelling
	// every resting order on a limit breach. Each receives the action bus's
	// Publish method and should block until ctx is cancelled.
	ActionSources []func(ctx context.Context, publish func(types.Action))
}

// Run starts every collector, state shard, the strategy tick loop, and
// every executor as its own goroutine, and blocks until ctx is cancelled
// and all goroutines have exited. This mirrors the teacher's engine
// lifecycle (WaitGroup + context cancellation) applied to the upstream
// project's task-per-component topology.
func Run(ctx context.Context, cfg Config) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "pipeline")

	eventBus := NewBus[types.Event]("events", cfg.EventBusCap, logger)
	actionBus := NewBus[types.Action]("actions", cfg.ActionBusCap, logger)

	var wg sync.WaitGroup

	for _, s := range cfg.States {
		wg.Add(1)
		go runState(ctx, &wg, s, eventBus, logger)
	}

	for _, c := range cfg.Collectors {
		wg.Add(1)
		go runCollector(ctx, &wg, c, eventBus, logger)
	}

	if cfg.Strategy != nil {
		wg.Add(1)
		go runStrategy(ctx, &wg, cfg.Strategy, cfg.BuildInput, actionBus, logger)
	}

	for _, ex := range cfg.Executors {
		wg.Add(1)
		go runExecutor(ctx, &wg, ex, actionBus, logger)
	}

	for _, src := range cfg.ActionSources {
		wg.Add(1)
		go func(src func(context.Context, func(types.Action))) {
			defer wg.Done()
			src(ctx, actionBus.Publish)
		}(src)
	}

	wg.Wait()
}

func runState(ctx context.Context, wg *sync.WaitGroup, s state.State, bus *Bus[types.Event], logger *slog.Logger) {
	defer wg.Done()
	log := logger.With("component", "state", "state", s.Name())
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := s.ProcessEvent(event); err != nil {
				log.Error("failed to process event", "error", err)
			}
		}
	}
}

func runCollector(ctx context.Context, wg *sync.WaitGroup, c Collector, bus *Bus[types.Event], logger *slog.Logger) {
	defer wg.Done()
	log := logger.With("component", "collector")
	if err := c.Run(ctx, bus.Publish); err != nil && ctx.Err() == nil {
		log.Error("collector exited with error", "error", err)
	}
}

func runExecutor(ctx context.Context, wg *sync.WaitGroup, ex Executor, bus *Bus[types.Action], logger *slog.Logger) {
	defer wg.Done()
	log := logger.With("component", "executor")
	actions, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case action, ok := <-actions:
			if !ok {
				return
			}
			if err := ex.Execute(ctx, action); err != nil {
				log.Error("failed to execute action", "error", err)
			}
		}
	}
}

func runStrategy(ctx context.Context, wg *sync.WaitGroup, s Strategy, buildInput func() Input, bus *Bus[types.Action], logger *slog.Logger) {
	defer wg.Done()
	log := logger.With("component", "strategy")

	interval := time.Duration(s.IntervalMS()) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			input := buildInput()
			actions, err := s.Evaluate(input)
			if err != nil {
				log.Error("strategy evaluation failed", "error", err)
				continue
			}
			for _, a := range actions {
				bus.Publish(a)
			}
		}
	}
}
