// Package paper implements the Executor that drives the paper exchange
// simulator: it translates each types.Action the strategy emits into a
// types.PaperMessage and forwards it to the paperex.Exchange consuming that
// channel, rather than issuing a real network call.
package paper

import (
	"context"
	"fmt"

	"marketmaker/pkg/types"
)

// Executor forwards actions onto the paper exchange's message channel.
type Executor struct {
	messages chan<- types.PaperMessage
}

// New creates a paper executor publishing onto messages (typically the
// channel a paperex.Exchange was constructed to read from).
func New(messages chan<- types.PaperMessage) *Executor {
	return &Executor{messages: messages}
}

// Execute translates action into a PaperMessage and sends it, blocking
// until the send succeeds or ctx is cancelled.
func (e *Executor) Execute(ctx context.Context, action types.Action) error {
	msg, err := toPaperMessage(action)
	if err != nil {
		return err
	}
	select {
	case e.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func toPaperMessage(action types.Action) (types.PaperMessage, error) {
	switch action.Kind {
	case types.ActionPlaceOrder:
		return types.NewPaperPlaceOrder(*action.Place), nil
	case types.ActionCancelOrder:
		return types.NewPaperCancelOrder(*action.Cancel), nil
	default:
		return types.PaperMessage{}, fmt.Errorf("paper executor: unknown action kind %v", action.Kind)
	}
}
