package paper

import (
	"context"
	"testing"
	"time"

	"marketmaker/pkg/decimal"
	"marketmaker/pkg/types"
)

func TestExecutePlaceForwardsPaperMessage(t *testing.T) {
	t.Parallel()
	ch := make(chan types.PaperMessage, 1)
	ex := New(ch)

	err := ex.Execute(context.Background(), types.NewPlaceOrderAction(types.PlaceOrder{
		Symbol: "BTCUSD", Side: types.Bid, Price: decimal.MustParse("100"), Size: decimal.MustParse("1"),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case msg := <-ch:
		if msg.Kind != types.PaperMessagePlaceOrder || msg.Place.Symbol != "BTCUSD" {
			t.Fatalf("unexpected message: %+v", msg)
		}
	default:
		t.Fatal("expected a message on the channel")
	}
}

func TestExecuteCancelForwardsPaperMessage(t *testing.T) {
	t.Parallel()
	ch := make(chan types.PaperMessage, 1)
	ex := New(ch)

	err := ex.Execute(context.Background(), types.NewCancelOrderAction(types.CancelOrder{Symbol: "BTCUSD", OID: 5}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := <-ch
	if msg.Kind != types.PaperMessageCancelOrder || msg.Cancel.OID != 5 {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestExecuteBlocksUntilContextCancelled(t *testing.T) {
	t.Parallel()
	ch := make(chan types.PaperMessage) // unbuffered, no reader
	ex := New(ch)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := ex.Execute(ctx, types.NewCancelOrderAction(types.CancelOrder{Symbol: "BTCUSD", OID: 1}))
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestExecuteUnknownActionErrors(t *testing.T) {
	t.Parallel()
	ch := make(chan types.PaperMessage, 1)
	ex := New(ch)

	err := ex.Execute(context.Background(), types.Action{Kind: types.ActionKind(99)})
	if err == nil {
		t.Fatal("expected error for unknown action kind")
	}
}
