package live

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"marketmaker/pkg/decimal"
	"marketmaker/pkg/types"
)

func TestExecuteDryRunNeverHitsNetwork(t *testing.T) {
	t.Parallel()
	ex := New("http://127.0.0.1:0", "key", true, slog.Default())

	err := ex.Execute(context.Background(), types.NewPlaceOrderAction(types.PlaceOrder{
		Symbol: "BTCUSD", Side: types.Bid, Price: decimal.MustParse("100"), Size: decimal.MustParse("1"),
	}))
	if err != nil {
		t.Fatalf("dry-run place should not error: %v", err)
	}

	err = ex.Execute(context.Background(), types.NewCancelOrderAction(types.CancelOrder{Symbol: "BTCUSD", OID: 1}))
	if err != nil {
		t.Fatalf("dry-run cancel should not error: %v", err)
	}
}

func TestExecutePlaceOrderAgainstTestServer(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"oid":42,"success":true}`))
	}))
	defer srv.Close()

	ex := New(srv.URL, "key", false, slog.Default())
	err := ex.Execute(context.Background(), types.NewPlaceOrderAction(types.PlaceOrder{
		Symbol: "BTCUSD", Side: types.Ask, Price: decimal.MustParse("101"), Size: decimal.MustParse("1"),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExecuteCancelOrderAgainstTestServer(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("unexpected method: %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ex := New(srv.URL, "key", false, slog.Default())
	err := ex.Execute(context.Background(), types.NewCancelOrderAction(types.CancelOrder{Symbol: "BTCUSD", OID: 7}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExecuteUnknownActionErrors(t *testing.T) {
	t.Parallel()
	ex := New("http://127.0.0.1:0", "key", true, slog.Default())
	err := ex.Execute(context.Background(), types.Action{Kind: types.ActionKind(99)})
	if err == nil {
		t.Fatal("expected error for unknown action kind")
	}
}
