package actor

import (
	"context"

	"github.com/codefionn/selenai/internal/tools"
)

// RuntimeClient provides a client interface to the RuntimeActor
type RuntimeClient struct {
	ref *ActorRef
}

// NewRuntimeClient creates a new client for a RuntimeActor
func NewRuntimeClient(ref *ActorRef) *RuntimeClient {
	return &RuntimeClient{ref: ref}
}

// Execute runs inv and waits for its result.
func (c *RuntimeClient) Execute(ctx context.Context, inv *tools.Invocation) (*tools.Result, error) {
	responseCh := make(chan *tools.Result, 1)
	if err := c.ref.Send(ExecuteRequest{Ctx: ctx, Invocation: inv, ResponseCh: responseCh}); err != nil {
		return nil, err
	}

	select {
	case res := <-responseCh:
		return res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reset discards the runtime's globals.
func (c *RuntimeClient) Reset(ctx context.Context) error {
	responseCh := make(chan error, 1)
	if err := c.ref.Send(ResetRequest{ResponseCh: responseCh}); err != nil {
		return err
	}

	select {
	case err := <-responseCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetWritesEnabled changes the write gate once the current invocation is
// done.
func (c *RuntimeClient) SetWritesEnabled(ctx context.Context, enabled bool) error {
	responseCh := make(chan struct{})
	if err := c.ref.Send(SetWritesRequest{Enabled: enabled, ResponseCh: responseCh}); err != nil {
		return err
	}

	select {
	case <-responseCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
