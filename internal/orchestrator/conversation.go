package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/codefionn/selenai/internal/consts"
	"github.com/codefionn/selenai/internal/llm"
	"github.com/codefionn/selenai/internal/logger"
	"github.com/codefionn/selenai/internal/script"
	"github.com/codefionn/selenai/internal/session"
	"github.com/codefionn/selenai/internal/toolcall"
	"github.com/codefionn/selenai/internal/tools"
)

// ErrAwaitingApproval is returned by Send while calls of the previous turn
// are still pending.
var ErrAwaitingApproval = errors.New("tool calls are waiting for approval; use /tool approve or /tool skip first")

// Send adds a user message and drives the model until it answers without
// calling the tool, or until a call has to wait for approval. In the latter
// case the turn continues once the last pending call is approved or
// skipped.
func (o *Orchestrator) Send(ctx context.Context, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.outstanding) > 0 {
		return ErrAwaitingApproval
	}

	o.addMessage(&session.Message{Role: string(llm.RoleUser), Content: text})
	o.turnActive = true
	o.rounds = 0
	o.loops.Reset()
	return o.runTurn(ctx)
}

// resumeTurn re-invokes the model once every call of the turn is answered.
func (o *Orchestrator) resumeTurn(ctx context.Context) {
	if !o.turnActive || len(o.outstanding) > 0 {
		return
	}
	if err := o.runTurn(ctx); err != nil {
		logger.Debug("resumed turn ended with error: %v", err)
	}
}

func (o *Orchestrator) runTurn(ctx context.Context) error {
	for {
		if o.rounds >= consts.MaxToolRounds {
			err := fmt.Errorf("stopped after %d tool rounds without a final answer", consts.MaxToolRounds)
			o.endTurn(err)
			return err
		}
		o.rounds++
		logger.Debug("turn round %d starting", o.rounds)

		text, calls, err := o.requestModel(ctx)
		if err != nil {
			o.endTurn(err)
			return err
		}

		o.addMessage(&session.Message{
			Role:      string(llm.RoleAssistant),
			Content:   text,
			ToolCalls: calls,
		})
		o.emit(Event{Kind: EventAssistantDone, Text: text})

		if looping, pattern := o.loops.AddText(text); looping {
			err := fmt.Errorf("model is repeating itself: %q", tools.TruncateSummary(pattern))
			o.endTurn(err)
			return err
		}

		if len(calls) == 0 {
			o.endTurn(nil)
			return nil
		}

		for _, call := range calls {
			o.outstanding[call.ID] = struct{}{}
		}
		for _, call := range calls {
			inv, err := call.Invocation()
			if err != nil {
				o.rejectCall(call, err)
				continue
			}
			o.submit(ctx, inv)
		}

		if n := len(o.outstanding); n > 0 {
			o.emit(Event{Kind: EventNotice, Text: fmt.Sprintf("%d tool call(s) waiting for approval.", n)})
			return nil
		}
	}
}

func (o *Orchestrator) endTurn(err error) {
	o.turnActive = false
	if err != nil {
		logger.Error("conversation turn failed: %v", err)
		o.emit(Event{Kind: EventError, Err: err})
	}
	o.emit(Event{Kind: EventTurnDone})
}

// requestModel sends the conversation and collects text and tool calls.
// Text is forwarded to the sink as it arrives.
func (o *Orchestrator) requestModel(ctx context.Context) (string, []*toolcall.Call, error) {
	req := o.buildRequest()

	if !o.config.Streaming {
		resp, err := o.client.Complete(ctx, req)
		if err != nil {
			return "", nil, err
		}
		if resp.Text != "" {
			o.emit(Event{Kind: EventAssistantDelta, Text: resp.Text})
		}
		return resp.Text, dedupeCalls(resp.Calls), nil
	}

	var text strings.Builder
	var calls []*toolcall.Call
	err := o.client.Stream(ctx, req, func(ev llm.Event) error {
		switch ev.Kind {
		case llm.EventText:
			text.WriteString(ev.Text)
			o.emit(Event{Kind: EventAssistantDelta, Text: ev.Text})
		case llm.EventToolCall:
			calls = append(calls, ev.Call)
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return text.String(), dedupeCalls(calls), nil
}

func (o *Orchestrator) buildRequest() *llm.Request {
	writes := o.runtime.WritesEnabled()
	history := o.session.GetMessages()
	messages := make([]llm.Message, len(history))
	for i, msg := range history {
		messages[i] = llm.Message{
			Role:       llm.Role(msg.Role),
			Content:    msg.Content,
			ToolCalls:  msg.ToolCalls,
			ToolCallID: msg.ToolCallID,
			ToolName:   msg.ToolName,
		}
	}
	return &llm.Request{
		System: llm.BuildSystemPrompt(llm.PromptContext{
			Workspace:     o.workspace.Root(),
			Repository:    o.repo,
			WritesEnabled: writes,
			Imports:       script.AllowedImports(),
		}),
		Messages:    messages,
		Tools:       []tools.ToolSpec{&tools.ScriptToolSpec{WritesEnabled: writes}},
		MaxTokens:   o.config.MaxTokens,
		Temperature: o.config.Temperature,
	}
}

// dedupeCalls drops repeated call ids; each id gets exactly one result.
func dedupeCalls(calls []*toolcall.Call) []*toolcall.Call {
	seen := make(map[string]bool, len(calls))
	out := calls[:0:0]
	for _, call := range calls {
		if call == nil || seen[call.ID] {
			continue
		}
		seen[call.ID] = true
		out = append(out, call)
	}
	return out
}
