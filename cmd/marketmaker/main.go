// Market Maker — an event-driven market-making bot that quotes a constant
// or volatility-adjusted spread around a single symbol's mid-price.
//
// Architecture:
//
//	main.go                     — entry point: loads config, wires the pipeline, waits for SIGINT/SIGTERM
//	internal/pipeline/runtime.go — orchestrator: collectors → state shards → strategy → executors
//	internal/strategy           — FixedSpread and DynamicSpread (RSI/NATR-driven) quoting strategies
//	internal/book                — local order book mirror fed by collector snapshots/deltas
//	internal/indicator           — streaming RSI and NATR indicators fed by trade prints
//	internal/state                — single-writer shards: order book, position, pending orders, price
//	internal/paperex              — paper-trading exchange simulator for dry runs
//	internal/collector/wsfeed     — live WebSocket market data collector
//	internal/collector/paperfeed  — collector that rebroadcasts the paper exchange's own events
//	internal/executor/live        — REST executor for order placement/cancellation
//	internal/executor/paper       — executor that forwards actions into the paper exchange
//	internal/risk                 — position-size and price-shock kill switch
//	internal/dashboard            — read-only HTTP/WebSocket status server
//
// How it makes money:
//
//	The bot posts a bid below mid-price and an ask above mid-price; when
//	both sides fill, it earns the spread. DynamicSpread widens the spread
//	with realized volatility (NATR) and skews the reference price with
//	momentum (RSI) to avoid adverse selection during trending markets.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"marketmaker/internal/book"
	"marketmaker/internal/collector/paperfeed"
	"marketmaker/internal/collector/wsfeed"
	"marketmaker/internal/config"
	"marketmaker/internal/dashboard"
	"marketmaker/internal/indicator"
	"marketmaker/internal/paperex"
	"marketmaker/internal/pipeline"
	"marketmaker/internal/risk"
	"marketmaker/internal/state"
	"marketmaker/internal/strategy"
	executorlive "marketmaker/internal/executor/live"
	executorpaper "marketmaker/internal/executor/paper"
	"marketmaker/pkg/decimal"
	"marketmaker/pkg/types"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("MM_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(newLogHandler(cfg.Logging))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obState := state.NewOrderBookState(cfg.Symbol, cfg.Pipeline.BookMaxDepth)
	posState := state.NewPositionState()
	pendState := state.NewPendingOrdersState()
	priceState, err := newPriceState(cfg.Indicator)
	if err != nil {
		logger.Error("failed to build indicators", "error", err)
		os.Exit(1)
	}

	strat, err := newStrategy(cfg.Strategy, cfg.Symbol, cfg.Indicator)
	if err != nil {
		logger.Error("failed to build strategy", "error", err)
		os.Exit(1)
	}

	collectors, executors, actionSources, err := wireFeedAndExecution(ctx, cfg, obState, posState, pendState, logger)
	if err != nil {
		logger.Error("failed to wire feed/execution", "error", err)
		os.Exit(1)
	}

	var dashServer *dashboard.Server
	if cfg.Dashboard.Enabled {
		guard, gerr := risk.New(cfg.Symbol, cfg.Risk, posState, obState, nil, logger)
		if gerr != nil {
			logger.Error("failed to build risk guard for dashboard", "error", gerr)
			os.Exit(1)
		}
		provider := &dashboardProvider{symbol: cfg.Symbol, book: obState, price: priceState, position: posState, pending: pendState, guard: guard}
		dashServer = dashboard.NewServer(cfg.Dashboard, provider, logger)
		go func() {
			if err := dashServer.Start(); err != nil {
				logger.Error("dashboard server failed", "error", err)
			}
		}()
		logger.Info("dashboard started", "url", fmt.Sprintf("http://localhost:%d", cfg.Dashboard.Port))
	}

	done := make(chan struct{})
	go func() {
		pipeline.Run(ctx, pipeline.Config{
			Collectors: collectors,
			States:     []state.State{obState, posState, pendState, priceState},
			BuildInput: func() pipeline.Input {
				return pipeline.BuildInput(obState, posState, pendState, priceState)
			},
			Strategy:      strat,
			Executors:     executors,
			ActionSources: actionSources,
			EventBusCap:   cfg.Pipeline.EventBusCapacity,
			ActionBusCap:  cfg.Pipeline.ActionBusCapacity,
			Logger:        logger,
		})
		close(done)
	}()

	logger.Info("market maker started",
		"symbol", cfg.Symbol,
		"strategy", cfg.Strategy.Kind,
		"dry_run", cfg.DryRun,
	)
	if cfg.DryRun {
		logger.Warn("DRY-RUN MODE — trading against the paper exchange, no real orders will be placed")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	if dashServer != nil {
		if err := dashServer.Stop(); err != nil {
			logger.Error("failed to stop dashboard", "error", err)
		}
	}

	cancel()
	<-done
}

func newLogHandler(cfg config.LoggingConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.NewTextHandler(os.Stdout, opts)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newPriceState(cfg config.IndicatorConfig) (*state.PriceState, error) {
	registry := indicator.NewRegistry()
	registry.Add(indicator.NewRSI(cfg.RSIPeriod, cfg.RSIIntervalMs))
	registry.Add(indicator.NewNATR(cfg.NATRPeriod, cfg.NATRIntervalMs))
	return state.NewPriceState(registry), nil
}

func newStrategy(cfg config.StrategyConfig, symbol string, ind config.IndicatorConfig) (pipeline.Strategy, error) {
	orderSize, err := decimal.Parse(cfg.OrderSize)
	if err != nil {
		return nil, fmt.Errorf("strategy.order_size: %w", err)
	}

	switch cfg.Kind {
	case "fixed":
		bid, err := decimal.Parse(cfg.BidSpread)
		if err != nil {
			return nil, fmt.Errorf("strategy.bid_spread: %w", err)
		}
		ask, err := decimal.Parse(cfg.AskSpread)
		if err != nil {
			return nil, fmt.Errorf("strategy.ask_spread: %w", err)
		}
		return &strategy.FixedSpread{Symbol: symbol, IntervalMs: cfg.IntervalMs, OrderSize: orderSize, BidSpread: bid, AskSpread: ask}, nil

	case "dynamic":
		base, err := decimal.Parse(cfg.BaseSpread)
		if err != nil {
			return nil, fmt.Errorf("strategy.base_spread: %w", err)
		}
		volTarget, err := decimal.Parse(cfg.VolatilityTarget)
		if err != nil {
			return nil, fmt.Errorf("strategy.volatility_target: %w", err)
		}
		skew, err := decimal.Parse(cfg.SkewStrength)
		if err != nil {
			return nil, fmt.Errorf("strategy.skew_strength: %w", err)
		}
		ds := &strategy.DynamicSpread{
			Symbol: symbol, IntervalMs: cfg.IntervalMs, OrderSize: orderSize,
			BaseSpread: base, VolatilityTarget: volTarget, SkewStrength: skew,
		}
		if cfg.RSILow != "" {
			if ds.RSILowThreshold, err = decimal.Parse(cfg.RSILow); err != nil {
				return nil, fmt.Errorf("strategy.rsi_low: %w", err)
			}
		}
		if cfg.RSIHigh != "" {
			if ds.RSIHighThreshold, err = decimal.Parse(cfg.RSIHigh); err != nil {
				return nil, fmt.Errorf("strategy.rsi_high: %w", err)
			}
		}
		return ds, nil

	default:
		return nil, fmt.Errorf("unknown strategy kind %q", cfg.Kind)
	}
}

// wireFeedAndExecution builds the collector(s) and executor(s) for either a
// live run (real WebSocket feed + REST executor) or a dry run (paper
// exchange simulator driving both market data and fills), plus any
// ActionSources (the risk guard) that publish directly onto the action bus.
func wireFeedAndExecution(
	ctx context.Context,
	cfg *config.Config,
	obState *state.OrderBookState,
	posState *state.PositionState,
	pendState *state.PendingOrdersState,
	logger *slog.Logger,
) ([]pipeline.Collector, []pipeline.Executor, []func(context.Context, func(types.Action)), error) {
	if cfg.DryRun {
		upstream := make(chan types.Event, 1024)
		messages := make(chan types.PaperMessage, 1024)
		exchange := paperex.New(cfg.Symbol, cfg.Pipeline.BookMaxDepth, upstream, messages, logger)
		go exchange.Run(ctx)

		collectors := []pipeline.Collector{paperfeed.New(exchange)}
		executors := []pipeline.Executor{executorpaper.New(messages)}
		actionSources, err := riskActionSource(cfg, posState, obState, pendState, logger)
		return collectors, executors, actionSources, err
	}

	collectors := []pipeline.Collector{wsfeed.New(cfg.Feed.WSMarketURL, cfg.Symbol, logger)}
	executors := []pipeline.Executor{executorlive.New(cfg.Feed.RESTBaseURL, cfg.Feed.APIKey, cfg.DryRun, logger)}
	actionSources, err := riskActionSource(cfg, posState, obState, pendState, logger)
	return collectors, executors, actionSources, err
}

// riskActionSource validates the risk config up front (so a bad config.yaml
// fails at startup, not on the first tick) and returns the ActionSources
// entry that builds the real Guard once the action bus's publish func is
// available at pipeline.Run time.
func riskActionSource(
	cfg *config.Config,
	posState *state.PositionState,
	obState *state.OrderBookState,
	pendState *state.PendingOrdersState,
	logger *slog.Logger,
) ([]func(context.Context, func(types.Action)), error) {
	if _, err := risk.New(cfg.Symbol, cfg.Risk, posState, obState, nil, logger); err != nil {
		return nil, err
	}
	return []func(context.Context, func(types.Action)){
		func(ctx context.Context, publish func(types.Action)) {
			guard, err := risk.New(cfg.Symbol, cfg.Risk, posState, obState, publish, logger)
			if err != nil {
				logger.Error("risk guard construction failed", "error", err)
				return
			}
			guard.Run(ctx, pendState.AllOIDs)
		},
	}, nil
}

// dashboardProvider adapts the pipeline's state shards and risk guard to
// dashboard.Provider.
type dashboardProvider struct {
	symbol   string
	book     *state.OrderBookState
	price    *state.PriceState
	position *state.PositionState
	pending  *state.PendingOrdersState
	guard    *risk.Guard
}

func (p *dashboardProvider) Symbol() string                  { return p.symbol }
func (p *dashboardProvider) BookSnapshot() book.Snapshot      { return p.book.Snapshot() }
func (p *dashboardProvider) MidPrice() (decimal.Decimal, bool) { return p.book.MidPrice() }
func (p *dashboardProvider) Indicator(name string) (decimal.Decimal, bool) {
	return p.price.Indicator(name)
}
func (p *dashboardProvider) Position() types.Position { return p.position.Position() }
func (p *dashboardProvider) PendingOrders() []types.Order {
	var out []types.Order
	p.pending.ForEach(func(o types.Order) { out = append(out, o) })
	return out
}
func (p *dashboardProvider) RiskSnapshot() risk.Snapshot { return p.guard.GetSnapshot() }
