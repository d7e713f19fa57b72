// Package llm talks to model providers. Every client declares the single
// script tool and reports assistant text and assembled tool calls as events.
package llm

import (
	"context"
	"os"
	"strings"

	"github.com/codefionn/selenai/internal/toolcall"
	"github.com/codefionn/selenai/internal/tools"
)

// Role of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message represents a chat message
type Message struct {
	Role       Role             `json:"role"`
	Content    string           `json:"content"`
	ToolCalls  []*toolcall.Call `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	ToolName   string           `json:"tool_name,omitempty"`
}

// Request is one model turn.
type Request struct {
	System      string
	Messages    []Message
	Tools       []tools.ToolSpec
	MaxTokens   int
	Temperature float64
}

// EventKind distinguishes stream events.
type EventKind int

const (
	EventText EventKind = iota
	EventToolCall
)

// Event is emitted while a response streams. Tool calls are only emitted
// once fully assembled.
type Event struct {
	Kind EventKind
	Text string
	Call *toolcall.Call
}

// Response is a complete, non-streamed model answer.
type Response struct {
	Text  string
	Calls []*toolcall.Call
}

// Client is the interface for LLM clients
type Client interface {
	// Complete sends the request and waits for the whole answer.
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Stream sends the request and reports text and tool calls as they
	// arrive. A non-nil error from onEvent aborts the stream.
	Stream(ctx context.Context, req *Request, onEvent func(Event) error) error
	// GetModelName returns the model name
	GetModelName() string
}

// Options selects and configures a provider.
type Options struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// Provider names accepted by NewClient.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderStub      = "stub"
)

var apiKeyEnv = map[string][]string{
	ProviderOpenAI:    {"OPENAI_API_KEY"},
	ProviderAnthropic: {"ANTHROPIC_API_KEY"},
	ProviderGoogle:    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// APIKeyFromEnv returns the first non-empty key variable for a provider.
func APIKeyFromEnv(provider string) string {
	for _, name := range apiKeyEnv[strings.ToLower(provider)] {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// Collect drains a stream into a Response.
func Collect(ctx context.Context, c Client, req *Request) (*Response, error) {
	resp := &Response{}
	var text strings.Builder
	err := c.Stream(ctx, req, func(ev Event) error {
		switch ev.Kind {
		case EventText:
			text.WriteString(ev.Text)
		case EventToolCall:
			resp.Calls = append(resp.Calls, ev.Call)
		}
		return nil
	})
	resp.Text = text.String()
	return resp, err
}
