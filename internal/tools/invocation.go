package tools

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OriginKind tells who authored an invocation.
type OriginKind string

const (
	OriginManual OriginKind = "manual"
	OriginModel  OriginKind = "model"
)

// Origin is the provenance of an invocation. CallID is set for model
// issued invocations and must be echoed back with the result.
type Origin struct {
	Kind   OriginKind `json:"kind"`
	CallID string     `json:"call_id,omitempty"`
}

// Manual returns the origin of a human-typed script.
func Manual() Origin {
	return Origin{Kind: OriginManual}
}

// ModelIssued returns the origin of a tool call with the given upstream id.
func ModelIssued(callID string) Origin {
	return Origin{Kind: OriginModel, CallID: callID}
}

func (o Origin) IsModelIssued() bool {
	return o.Kind == OriginModel
}

func (o Origin) String() string {
	if o.IsModelIssued() {
		return fmt.Sprintf("model(%s)", o.CallID)
	}
	return string(OriginManual)
}

// Invocation is one request to evaluate script text. Treat as immutable
// once built.
type Invocation struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Reason    string    `json:"reason,omitempty"`
	Origin    Origin    `json:"origin"`
	CreatedAt time.Time `json:"created_at"`
}

// NewInvocation stamps a fresh id and creation time.
func NewInvocation(source, reason string, origin Origin) *Invocation {
	return &Invocation{
		ID:        uuid.NewString(),
		Source:    source,
		Reason:    reason,
		Origin:    origin,
		CreatedAt: time.Now(),
	}
}

// Title is the short label used in tool logs.
func (inv Invocation) Title() string {
	if inv.Origin.IsModelIssued() {
		return fmt.Sprintf("LLM %s: %s", ScriptToolName, TruncateSummary(inv.Reason))
	}
	return "Manual script: " + TruncateSummary(firstLine(inv.Source))
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
