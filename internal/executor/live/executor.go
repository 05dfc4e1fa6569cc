// Package live implements the REST executor: it turns types.Action values
// into HTTP requests, authenticated with a bearer API key, against the
// exchange's order management API.
//
// Every request is rate-limited via per-category TokenBuckets and
// automatically retried on 5xx errors. DryRun short-circuits mutating calls
// with a fake success response, logging what would have been sent, so the
// same pipeline wiring can run safely against a read-only market feed.
package live

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"marketmaker/pkg/types"
)

// orderRequest is the wire payload for placing a single order.
type orderRequest struct {
	Symbol string `json:"symbol"`
	Side   string `json:"side"`
	Price  string `json:"price"`
	Size   string `json:"size"`
}

// orderResponse is the wire payload returned after placing an order.
type orderResponse struct {
	OID     uint64 `json:"oid"`
	Success bool   `json:"success"`
}

// Executor places and cancels orders against a live REST API.
type Executor struct {
	http   *resty.Client
	rl     *RateLimiter
	dryRun bool
	logger *slog.Logger
}

// New creates a REST executor with rate limiting and retry against
// baseURL. apiKey is attached to every request via an Authorization header;
// when dryRun is true, mutating calls are simulated rather than sent.
func New(baseURL, apiKey string, dryRun bool, logger *slog.Logger) *Executor {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+apiKey)

	return &Executor{
		http:   httpClient,
		rl:     NewRateLimiter(),
		dryRun: dryRun,
		logger: logger.With("component", "live_executor"),
	}
}

// Execute dispatches a single action: a PlaceOrder becomes a POST /orders,
// a CancelOrder becomes a DELETE /orders/{oid}.
func (e *Executor) Execute(ctx context.Context, action types.Action) error {
	switch action.Kind {
	case types.ActionPlaceOrder:
		return e.placeOrder(ctx, *action.Place)
	case types.ActionCancelOrder:
		return e.cancelOrder(ctx, *action.Cancel)
	default:
		return fmt.Errorf("live executor: unknown action kind %v", action.Kind)
	}
}

func (e *Executor) placeOrder(ctx context.Context, req types.PlaceOrder) error {
	if e.dryRun {
		e.logger.Info("DRY-RUN: would place order", "symbol", req.Symbol, "side", req.Side, "price", req.Price, "size", req.Size)
		return nil
	}
	if err := e.rl.Order.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	body := orderRequest{Symbol: req.Symbol, Side: req.Side.String(), Price: req.Price.String(), Size: req.Size.String()}
	var result orderResponse
	resp, err := e.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("/orders")
	if err != nil {
		return fmt.Errorf("post order: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("post order: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

func (e *Executor) cancelOrder(ctx context.Context, req types.CancelOrder) error {
	if e.dryRun {
		e.logger.Info("DRY-RUN: would cancel order", "oid", req.OID)
		return nil
	}
	if err := e.rl.Cancel.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	resp, err := e.http.R().
		SetContext(ctx).
		Delete(fmt.Sprintf("/orders/%d", req.OID))
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusNotFound {
		return fmt.Errorf("cancel order: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
