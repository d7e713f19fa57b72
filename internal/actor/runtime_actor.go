package actor

import (
	"context"
	"fmt"

	"github.com/codefionn/selenai/internal/logger"
	"github.com/codefionn/selenai/internal/script"
	"github.com/codefionn/selenai/internal/tools"
)

// ExecuteRequest runs one invocation on the runtime.
type ExecuteRequest struct {
	Ctx        context.Context
	Invocation *tools.Invocation
	ResponseCh chan *tools.Result
}

func (m ExecuteRequest) Type() string { return "ExecuteRequest" }

// ResetRequest discards the runtime's globals.
type ResetRequest struct {
	ResponseCh chan error
}

func (m ResetRequest) Type() string { return "ResetRequest" }

// SetWritesRequest flips the write gate between invocations.
type SetWritesRequest struct {
	Enabled    bool
	ResponseCh chan struct{}
}

func (m SetWritesRequest) Type() string { return "SetWritesRequest" }

// RuntimeActor owns the script runtime. Its mailbox is the only path to
// the runtime, so invocations and configuration changes never overlap.
type RuntimeActor struct {
	id      string
	runtime *script.Runtime
}

// NewRuntimeActor wraps rt.
func NewRuntimeActor(id string, rt *script.Runtime) *RuntimeActor {
	return &RuntimeActor{id: id, runtime: rt}
}

func (a *RuntimeActor) ID() string { return a.id }

func (a *RuntimeActor) Start(ctx context.Context) error {
	logger.Debug("RuntimeActor[%s] started", a.id)
	return nil
}

func (a *RuntimeActor) Stop(ctx context.Context) error {
	logger.Debug("RuntimeActor[%s] stopped", a.id)
	return nil
}

func (a *RuntimeActor) Receive(ctx context.Context, msg Message) error {
	switch m := msg.(type) {
	case ExecuteRequest:
		runCtx := m.Ctx
		if runCtx == nil {
			runCtx = ctx
		}
		m.ResponseCh <- a.runtime.Execute(runCtx, m.Invocation)
	case ResetRequest:
		m.ResponseCh <- a.runtime.Reset()
	case SetWritesRequest:
		a.runtime.SetWritesEnabled(m.Enabled)
		close(m.ResponseCh)
	default:
		return fmt.Errorf("unknown message type: %T", msg)
	}
	return nil
}
