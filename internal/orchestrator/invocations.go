package orchestrator

import (
	"context"
	"time"

	"github.com/codefionn/selenai/internal/approval"
	"github.com/codefionn/selenai/internal/logger"
	"github.com/codefionn/selenai/internal/session"
	"github.com/codefionn/selenai/internal/toolcall"
	"github.com/codefionn/selenai/internal/tools"
)

// CanceledMessage is the tool result sent to the model for a skipped call.
const CanceledMessage = "Canceled before execution."

// RunManual executes source typed by the user. Manual invocations are
// never queued.
func (o *Orchestrator) RunManual(ctx context.Context, source string) *tools.Result {
	res, _ := o.Submit(ctx, tools.NewInvocation(source, "", tools.Manual()))
	return res
}

// Submit routes inv through the write gate. It returns the result when the
// invocation ran, or the queue entry when it waits for approval.
func (o *Orchestrator) Submit(ctx context.Context, inv *tools.Invocation) (*tools.Result, *approval.Entry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.submit(ctx, inv)
}

func (o *Orchestrator) submit(ctx context.Context, inv *tools.Invocation) (*tools.Result, *approval.Entry) {
	if approval.Decide(inv, o.runtime.WritesEnabled()) == approval.RouteQueue {
		entry := o.queue.Push(inv, o.runtime.Preview(ctx, inv.Source))
		logger.Info("queued %s %s for approval", entry.Handle(), inv.Origin)
		o.recordTool(inv, nil, session.ToolStatusPending)
		o.emit(Event{Kind: EventToolQueued, Invocation: inv, Entry: entry})
		return nil, entry
	}
	return o.execute(ctx, inv), nil
}

// Approve runs the named pending invocation, or the oldest one when id is
// empty.
func (o *Orchestrator) Approve(ctx context.Context, id string) (*tools.Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	entry, err := o.queue.Take(id)
	if err != nil {
		return nil, err
	}
	logger.Info("approved %s", entry.Handle())
	res := o.execute(ctx, entry.Invocation)
	o.resumeTurn(ctx)
	return res, nil
}

// Skip discards the named pending invocation, or the oldest one when id is
// empty. Its source is never evaluated.
func (o *Orchestrator) Skip(ctx context.Context, id string) (*approval.Entry, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	entry, err := o.queue.Take(id)
	if err != nil {
		return nil, err
	}
	inv := entry.Invocation
	logger.Info("skipped %s", entry.Handle())
	o.recordTool(inv, nil, session.ToolStatusSkipped)
	o.emit(Event{Kind: EventToolSkipped, Invocation: inv, Entry: entry})
	o.answerCall(inv.Origin.CallID, CanceledMessage)
	o.resumeTurn(ctx)
	return entry, nil
}

// execute runs inv on the runtime actor and reports its terminal status.
func (o *Orchestrator) execute(ctx context.Context, inv *tools.Invocation) *tools.Result {
	start := time.Now()
	res, err := o.runner.Execute(ctx, inv)
	if err != nil {
		res = failedResult(inv, err, time.Since(start))
	}

	status := session.ToolStatusOK
	if !res.OK() {
		status = session.ToolStatusError
	}
	o.recordTool(inv, res, status)
	o.emit(Event{Kind: EventToolResult, Invocation: inv, Result: res})
	o.answerCall(inv.Origin.CallID, res.Render())
	return res
}

// rejectCall reports a call whose arguments never became an invocation.
func (o *Orchestrator) rejectCall(call *toolcall.Call, err error) {
	inv := tools.NewInvocation(call.Arguments, "", tools.ModelIssued(call.ID))
	res := failedResult(inv, err, 0)
	logger.Warn("rejected tool call %s: %v", call.ID, err)
	o.recordTool(inv, res, session.ToolStatusError)
	o.emit(Event{Kind: EventToolResult, Invocation: inv, Result: res})
	o.answerCall(call.ID, res.Render())
}

// answerCall appends the tool message for an outstanding call of the
// current turn. Results for calls outside the turn only reach the tool log.
func (o *Orchestrator) answerCall(callID, content string) {
	if callID == "" {
		return
	}
	if _, ok := o.outstanding[callID]; !ok {
		return
	}
	delete(o.outstanding, callID)
	o.addMessage(&session.Message{
		Role:       "tool",
		Content:    content,
		ToolCallID: callID,
		ToolName:   tools.ScriptToolName,
	})
}

func failedResult(inv *tools.Invocation, err error, elapsed time.Duration) *tools.Result {
	return &tools.Result{
		InvocationID: inv.ID,
		CallID:       inv.Origin.CallID,
		Status:       tools.StatusError,
		Message:      err.Error(),
		Kind:         tools.KindOf(err),
		Duration:     elapsed,
	}
}
