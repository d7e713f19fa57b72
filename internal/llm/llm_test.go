package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	aoption "github.com/anthropics/anthropic-sdk-go/option"
	ooption "github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/selenai/internal/toolcall"
	"github.com/codefionn/selenai/internal/tools"
)

func sseServer(t *testing.T, events []string, captured *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if captured != nil {
			_ = json.Unmarshal(body, captured)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, ev := range events {
			fmt.Fprint(w, ev)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testRequest() *Request {
	return &Request{
		System:   "be brief",
		Messages: []Message{{Role: RoleUser, Content: "list files"}},
		Tools:    []tools.ToolSpec{&tools.ScriptToolSpec{}},
	}
}

func collectEvents(t *testing.T, c Client) (string, []*toolcall.Call) {
	t.Helper()
	resp, err := Collect(context.Background(), c, testRequest())
	require.NoError(t, err)
	return resp.Text, resp.Calls
}

func TestOpenAIStreamAssemblesToolCalls(t *testing.T) {
	events := []string{
		`data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"role":"assistant","content":"Looking"}}]}` + "\n\n",
		`data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"run_script","arguments":"{\"source\":"}}]}}]}` + "\n\n",
		`data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"host.ListDir(\\\".\\\")\"}"}}]}}]}` + "\n\n",
		`data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}` + "\n\n",
		"data: [DONE]\n\n",
	}
	var body map[string]any
	srv := sseServer(t, events, &body)

	c, err := NewOpenAIClient("test-key", srv.URL, "gpt-test", ooption.WithMaxRetries(0))
	require.NoError(t, err)

	text, calls := collectEvents(t, c)
	assert.Equal(t, "Looking", text)
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)

	inv, err := calls[0].Invocation()
	require.NoError(t, err)
	assert.Equal(t, `host.ListDir(".")`, inv.Source)
	assert.Equal(t, "call_1", inv.Origin.CallID)

	assert.Equal(t, "gpt-test", body["model"])
	toolsField, ok := body["tools"].([]any)
	require.True(t, ok)
	require.Len(t, toolsField, 1)
	fn := toolsField[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, tools.ScriptToolName, fn["name"])
	messages := body["messages"].([]any)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
}

func TestOpenAIConvertsToolHistory(t *testing.T) {
	req := &Request{Messages: []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, ToolCalls: []*toolcall.Call{ScriptCall("call_1", "1", "r")}},
		{Role: RoleTool, ToolCallID: "call_1", ToolName: tools.ScriptToolName, Content: "value:\n1\n"},
	}}
	msgs := convertMessagesToOpenAI(req)
	require.Len(t, msgs, 3)
	require.NotNil(t, msgs[1].OfAssistant)
	assert.Equal(t, "call_1", msgs[1].OfAssistant.ToolCalls[0].ID)
	require.NotNil(t, msgs[2].OfTool)
	assert.Equal(t, "call_1", msgs[2].OfTool.ToolCallID)
}

func TestOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient("", "", "")
	assert.Error(t, err)
}

func TestAnthropicStreamAssemblesToolCalls(t *testing.T) {
	sse := func(name, data string) string {
		return "event: " + name + "\ndata: " + data + "\n\n"
	}
	events := []string{
		sse("message_start", `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","model":"claude-test","content":[],"stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":1,"output_tokens":1}}}`),
		sse("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`),
		sse("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"On it."}}`),
		sse("content_block_stop", `{"type":"content_block_stop","index":0}`),
		sse("content_block_start", `{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_1","name":"run_script","input":{}}}`),
		sse("content_block_delta", `{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"source\": \"40"}}`),
		sse("content_block_delta", `{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":" + 2\", \"reason\": \"math\"}"}}`),
		sse("content_block_stop", `{"type":"content_block_stop","index":1}`),
		sse("message_delta", `{"type":"message_delta","delta":{"stop_reason":"tool_use","stop_sequence":null},"usage":{"output_tokens":5}}`),
		sse("message_stop", `{"type":"message_stop"}`),
	}
	var body map[string]any
	srv := sseServer(t, events, &body)

	c, err := NewAnthropicClient("test-key", srv.URL, "claude-test", aoption.WithMaxRetries(0))
	require.NoError(t, err)

	text, calls := collectEvents(t, c)
	assert.Equal(t, "On it.", text)
	require.Len(t, calls, 1)

	inv, err := calls[0].Invocation()
	require.NoError(t, err)
	assert.Equal(t, "40 + 2", inv.Source)
	assert.Equal(t, "math", inv.Reason)
	assert.Equal(t, "toolu_1", inv.Origin.CallID)

	toolsField := body["tools"].([]any)
	assert.Equal(t, tools.ScriptToolName, toolsField[0].(map[string]any)["name"])
}

func TestAnthropicFoldsToolResults(t *testing.T) {
	msgs := convertMessagesToAnthropic([]Message{
		{Role: RoleUser, Content: "go"},
		{Role: RoleAssistant, ToolCalls: []*toolcall.Call{
			ScriptCall("a", "1", ""),
			toolcall.NewCall("b", tools.ScriptToolName, `{"source":`, 1),
		}},
		{Role: RoleTool, ToolCallID: "a", Content: "ok"},
		{Role: RoleTool, ToolCallID: "b", Content: "bad args"},
	})
	require.Len(t, msgs, 3)
	assert.Len(t, msgs[1].Content, 2)
	assert.Len(t, msgs[2].Content, 2)
}

func TestStubClientScriptedThenEcho(t *testing.T) {
	stub := NewStubClient(&Response{Text: "first", Calls: []*toolcall.Call{ScriptCall("c1", "1", "")}})

	resp, err := Collect(context.Background(), stub, testRequest())
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Text)
	require.Len(t, resp.Calls, 1)

	resp, err = stub.Complete(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, `Stub agent turn 1 heard: "list files"`, resp.Text)
	assert.Len(t, stub.Requests(), 2)

	_, err = stub.Complete(context.Background(), &Request{})
	assert.Error(t, err)
}

func TestStubStreamStopsOnCallbackError(t *testing.T) {
	stub := NewStubClient(&Response{Text: "x", Calls: []*toolcall.Call{ScriptCall("c1", "1", "")}})
	boom := errors.New("boom")
	err := stub.Stream(context.Background(), testRequest(), func(Event) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestNewClientProviders(t *testing.T) {
	c, err := NewClient(context.Background(), Options{Provider: "stub"})
	require.NoError(t, err)
	assert.Equal(t, "stub", c.GetModelName())

	c, err = NewClient(context.Background(), Options{})
	require.NoError(t, err)
	assert.IsType(t, &StubClient{}, c)

	_, err = NewClient(context.Background(), Options{Provider: "carrier-pigeon"})
	assert.Error(t, err)

	t.Setenv("OPENAI_API_KEY", "from-env")
	c, err = NewClient(context.Background(), Options{Provider: "OpenAI", Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "m", c.GetModelName())
}

func TestBuildSystemPromptReflectsWritePolicy(t *testing.T) {
	readOnly := BuildSystemPrompt(PromptContext{Workspace: "/repo", Imports: []string{"fmt", "strings"}})
	assert.Contains(t, readOnly, "READ-ONLY")
	assert.Contains(t, readOnly, "fmt, strings")
	assert.Contains(t, readOnly, "/repo")
	assert.NotContains(t, readOnly, "Write Mode**: ENABLED")
	assert.NotContains(t, readOnly, "Repository:")

	writable := BuildSystemPrompt(PromptContext{
		Workspace:     "/repo",
		Repository:    "git repository at /repo, branch main",
		WritesEnabled: true,
	})
	assert.Contains(t, writable, "Repository: git repository at /repo, branch main.")
	assert.Contains(t, writable, "Write Mode**: ENABLED")
	assert.True(t, strings.Contains(writable, "host.PatchFile(path, unifiedDiff)"))
}
