package orchestrator

import (
	"github.com/codefionn/selenai/internal/approval"
	"github.com/codefionn/selenai/internal/tools"
)

// EventKind identifies what happened in the session.
type EventKind int

const (
	// EventAssistantDelta carries a chunk of streamed assistant text.
	EventAssistantDelta EventKind = iota
	// EventAssistantDone carries the complete text of one assistant reply.
	EventAssistantDone
	// EventToolQueued reports an invocation waiting for approval.
	EventToolQueued
	// EventToolResult reports an executed invocation.
	EventToolResult
	// EventToolSkipped reports an invocation discarded before execution.
	EventToolSkipped
	// EventNotice is an informational line for the user.
	EventNotice
	// EventError reports a failure that did not belong to an invocation.
	EventError
	// EventTurnDone marks the end of a conversation turn.
	EventTurnDone
)

var eventKindNames = map[EventKind]string{
	EventAssistantDelta: "assistant_delta",
	EventAssistantDone:  "assistant_done",
	EventToolQueued:     "tool_queued",
	EventToolResult:     "tool_result",
	EventToolSkipped:    "tool_skipped",
	EventNotice:         "notice",
	EventError:          "error",
	EventTurnDone:       "turn_done",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is delivered to the Sink in the order things happen.
type Event struct {
	Kind       EventKind
	Text       string
	Invocation *tools.Invocation
	Result     *tools.Result
	Entry      *approval.Entry
	Err        error
}

// Sink receives session events. It is called synchronously and must not
// call back into the Orchestrator.
type Sink func(Event)

func discard(Event) {}
