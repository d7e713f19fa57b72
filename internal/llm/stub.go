package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/codefionn/selenai/internal/toolcall"
	"github.com/codefionn/selenai/internal/tools"
)

// StubClient answers without a network. Scripted responses are returned in
// order; once they run out it echoes the latest user message.
type StubClient struct {
	mu       sync.Mutex
	scripted []*Response
	requests []*Request
}

// NewStubClient returns a stub that replays responses in order.
func NewStubClient(responses ...*Response) *StubClient {
	return &StubClient{scripted: responses}
}

// Push appends a scripted response.
func (c *StubClient) Push(resp *Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripted = append(c.scripted, resp)
}

// Requests returns copies of every request received so far.
func (c *StubClient) Requests() []*Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Request(nil), c.requests...)
}

func (c *StubClient) GetModelName() string {
	return "stub"
}

func (c *StubClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	snapshot := *req
	snapshot.Messages = append([]Message(nil), req.Messages...)
	c.requests = append(c.requests, &snapshot)
	if len(c.scripted) > 0 {
		resp := c.scripted[0]
		c.scripted = c.scripted[1:]
		c.mu.Unlock()
		return resp, nil
	}
	c.mu.Unlock()

	turn := 0
	latest := ""
	for _, msg := range req.Messages {
		if msg.Role == RoleUser {
			turn++
			latest = msg.Content
		}
	}
	if turn == 0 {
		return nil, fmt.Errorf("stub client requires at least one user prompt")
	}

	trimmed := strings.TrimSpace(latest)
	switch {
	case trimmed == "":
		return &Response{Text: "I need some text to work with."}, nil
	case strings.Contains(trimmed, "script"):
		return &Response{Text: "Try `/run host.ReadFile(\"go.mod\")` to inspect a file."}, nil
	}
	return &Response{Text: fmt.Sprintf("Stub agent turn %d heard: %q", turn, trimmed)}, nil
}

// Stream replays Complete as one text event followed by its calls.
func (c *StubClient) Stream(ctx context.Context, req *Request, onEvent func(Event) error) error {
	resp, err := c.Complete(ctx, req)
	if err != nil {
		return err
	}
	if resp.Text != "" {
		if err := onEvent(Event{Kind: EventText, Text: resp.Text}); err != nil {
			return err
		}
	}
	for _, call := range resp.Calls {
		if err := onEvent(Event{Kind: EventToolCall, Call: call}); err != nil {
			return err
		}
	}
	return nil
}

// ScriptCall is a convenience for scripted responses that call the tool.
func ScriptCall(id, source, reason string) *toolcall.Call {
	args, _ := json.Marshal(toolcall.Args{Source: source, Reason: reason})
	return toolcall.NewCall(id, tools.ScriptToolName, string(args), 0)
}
