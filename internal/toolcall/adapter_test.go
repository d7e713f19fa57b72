package toolcall

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	genai "google.golang.org/genai"

	"github.com/codefionn/selenai/internal/tools"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Args
		wantErr bool
	}{
		{name: "source and reason", raw: `{"source":"1+1","reason":" add "}`, want: Args{Source: "1+1", Reason: "add"}},
		{name: "reason optional", raw: `{"source":"x"}`, want: Args{Source: "x"}},
		{name: "extra fields ignored", raw: `{"source":"x","other":1}`, want: Args{Source: "x"}},
		{name: "empty", raw: "  ", wantErr: true},
		{name: "truncated", raw: `{"source":"1+`, wantErr: true},
		{name: "missing source", raw: `{"reason":"r"}`, wantErr: true},
		{name: "blank source", raw: `{"source":"  "}`, wantErr: true},
		{name: "wrong type", raw: `{"source":42}`, wantErr: true},
		{name: "not an object", raw: `["source"]`, wantErr: true},
		{name: "trailing data", raw: `{"source":"x"}}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArgs(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tools.ErrArgumentParse))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssemblerInterleavedCalls(t *testing.T) {
	a := NewAssembler()
	a.Add(Fragment{Index: 0, ID: "call_a", Name: tools.ScriptToolName, Arguments: `{"sou`})
	a.Add(Fragment{Index: 1, ID: "call_b", Name: tools.ScriptToolName, Arguments: `{"source":`})
	a.Add(Fragment{Index: 0, Arguments: `rce":"1"}`})
	a.Add(Fragment{Index: 1, Arguments: `"2"}`})
	assert.Equal(t, 2, a.Pending())

	b, err := a.Complete("call_b")
	require.NoError(t, err)
	assert.Equal(t, `{"source":"2"}`, b.Arguments)
	assert.Equal(t, 1, a.Pending())

	rest := a.Finish()
	require.Len(t, rest, 1)
	assert.Equal(t, "call_a", rest[0].ID)
	assert.Equal(t, `{"source":"1"}`, rest[0].Arguments)
	assert.Equal(t, 0, a.Pending())
}

func TestAssemblerCompleteUnknown(t *testing.T) {
	a := NewAssembler()
	_, err := a.Complete("nope")
	assert.True(t, errors.Is(err, tools.ErrNotFound))
	_, err = a.CompleteIndex(3)
	assert.True(t, errors.Is(err, tools.ErrNotFound))
}

func TestAssemblerSynthesizesMissingIDs(t *testing.T) {
	a := NewAssembler()
	id := a.Add(Fragment{Index: 0, Name: "run script", Arguments: "{}"})
	assert.Equal(t, "call_run_script_1", id)
	assert.Equal(t, id, a.Add(Fragment{Index: 0, Arguments: " "}))
}

func TestAssemblerConcurrentCalls(t *testing.T) {
	a := NewAssembler()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("call_%d", i)
			for _, piece := range []string{`{"source":"`, fmt.Sprint(i), `"}`} {
				a.Add(Fragment{Index: i, ID: id, Name: tools.ScriptToolName, Arguments: piece})
			}
		}(i)
	}
	wg.Wait()

	calls := a.Finish()
	require.Len(t, calls, 8)
	for _, call := range calls {
		args, err := ParseArgs(call.Arguments)
		require.NoError(t, err)
		assert.Equal(t, "call_"+args.Source, call.ID)
	}
}

func TestCallInvocation(t *testing.T) {
	call := NewCall("toolu_1", tools.ScriptToolName, `{"source":"x := 1","reason":"inspect"}`, 0)
	inv, err := call.Invocation()
	require.NoError(t, err)
	assert.Equal(t, "x := 1", inv.Source)
	assert.Equal(t, "inspect", inv.Reason)
	assert.True(t, inv.Origin.IsModelIssued())
	assert.Equal(t, "toolu_1", inv.Origin.CallID)

	_, err = NewCall("c", tools.ScriptToolName, `{"source":`, 0).Invocation()
	assert.True(t, errors.Is(err, tools.ErrArgumentParse))

	_, err = NewCall("c", "shell", `{"source":"ls"}`, 0).Invocation()
	assert.True(t, errors.Is(err, tools.ErrCapabilityDenied))
}

func TestFromOpenAIChunk(t *testing.T) {
	chunks := []string{
		`{"id":"1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"role":"assistant","content":"Let me look"}}]}`,
		`{"id":"1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_x","type":"function","function":{"name":"run_script","arguments":"{\"source\""}}]}}]}`,
		`{"id":"1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":":\"1+1\"}"}}]}}]}`,
		`{"id":"1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
	}

	a := NewAssembler()
	var text string
	var done bool
	for _, raw := range chunks {
		var chunk openai.ChatCompletionChunk
		require.NoError(t, json.Unmarshal([]byte(raw), &chunk))
		d := FromOpenAIChunk(chunk)
		text += d.Text
		for _, f := range d.Fragments {
			a.Add(f)
		}
		done = done || d.Done
	}

	assert.Equal(t, "Let me look", text)
	assert.True(t, done)
	calls := a.Finish()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_x", calls[0].ID)
	assert.Equal(t, tools.ScriptToolName, calls[0].Name)
	assert.Equal(t, `{"source":"1+1"}`, calls[0].Arguments)
}

func TestAnthropicStream(t *testing.T) {
	events := []string{
		`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Checking."}}`,
		`{"type":"content_block_stop","index":0}`,
		`{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_9","name":"run_script","input":{}}}`,
		`{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"source\":"}}`,
		`{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"\"2\"}"}}`,
		`{"type":"content_block_stop","index":1}`,
	}

	stream := NewAnthropicStream(NewAssembler())
	var text string
	var calls []*Call
	for _, raw := range events {
		var ev anthropic.MessageStreamEventUnion
		require.NoError(t, json.Unmarshal([]byte(raw), &ev))
		delta, call, err := stream.Handle(ev)
		require.NoError(t, err)
		text += delta
		if call != nil {
			calls = append(calls, call)
		}
	}

	assert.Equal(t, "Checking.", text)
	require.Len(t, calls, 1)
	assert.Equal(t, "toolu_9", calls[0].ID)
	assert.Equal(t, `{"source":"2"}`, calls[0].Arguments)
}

func TestFromGenAIContent(t *testing.T) {
	content := &genai.Content{
		Role: genai.RoleModel,
		Parts: []*genai.Part{
			{Text: "Running."},
			{FunctionCall: &genai.FunctionCall{Name: tools.ScriptToolName, Args: map[string]any{"source": "3", "reason": "why"}}},
		},
	}

	text, calls := FromGenAIContent(content, 0)
	assert.Equal(t, "Running.", text)
	require.Len(t, calls, 1)
	assert.Equal(t, "call_run_script_1", calls[0].ID)

	inv, err := calls[0].Invocation()
	require.NoError(t, err)
	assert.Equal(t, "3", inv.Source)
	assert.Equal(t, "why", inv.Reason)
}
