package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/codefionn/selenai/internal/consts"
	"github.com/codefionn/selenai/internal/toolcall"
	"github.com/codefionn/selenai/internal/tools"
)

const defaultAnthropicModel = "claude-sonnet-4-5"

// AnthropicClient implements the Client interface using the official Anthropic SDK.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

// NewAnthropicClient creates an Anthropic client backed by the official SDK.
func NewAnthropicClient(apiKey, baseURL, model string, extra ...option.RequestOption) (*AnthropicClient, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, fmt.Errorf("anthropic client requires an API key (set ANTHROPIC_API_KEY)")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultAnthropicModel
	}

	opts := []option.RequestOption{option.WithAPIKey(key)}
	if base := strings.TrimSpace(baseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	opts = append(opts, extra...)

	return &AnthropicClient{client: anthropic.NewClient(opts...), model: model}, nil
}

func (c *AnthropicClient) GetModelName() string {
	return c.model
}

func (c *AnthropicClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	params, err := c.buildParams(req)
	if err != nil {
		return nil, err
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic completion failed: %w", err)
	}

	out := &Response{}
	var text strings.Builder
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			args := "{}"
			if len(block.Input) > 0 {
				args = string(block.Input)
			}
			out.Calls = append(out.Calls, toolcall.NewCall(block.ID, block.Name, args, len(out.Calls)))
		}
	}
	out.Text = text.String()
	return out, nil
}

func (c *AnthropicClient) Stream(ctx context.Context, req *Request, onEvent func(Event) error) error {
	params, err := c.buildParams(req)
	if err != nil {
		return err
	}

	stream := c.client.Messages.NewStreaming(ctx, params)
	if stream == nil {
		return fmt.Errorf("anthropic stream failed: no stream returned")
	}
	defer stream.Close()

	asm := toolcall.NewAssembler()
	blocks := toolcall.NewAnthropicStream(asm)
	for stream.Next() {
		text, call, err := blocks.Handle(stream.Current())
		if err != nil {
			return err
		}
		if text != "" {
			if err := onEvent(Event{Kind: EventText, Text: text}); err != nil {
				return err
			}
		}
		if call != nil {
			if err := onEvent(Event{Kind: EventToolCall, Call: call}); err != nil {
				return err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("anthropic stream failed: %w", err)
	}

	// Blocks cut off without a stop event still surface so their parse
	// failure is reported against the right call id.
	for _, call := range asm.Finish() {
		if err := onEvent(Event{Kind: EventToolCall, Call: call}); err != nil {
			return err
		}
	}
	return nil
}

func (c *AnthropicClient) buildParams(req *Request) (anthropic.MessageNewParams, error) {
	if req == nil {
		return anthropic.MessageNewParams{}, fmt.Errorf("anthropic completion request cannot be nil")
	}

	messages := convertMessagesToAnthropic(req.Messages)
	if len(messages) == 0 {
		return anthropic.MessageNewParams{}, fmt.Errorf("anthropic completion requires at least one user or assistant message")
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = consts.DefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if sys := strings.TrimSpace(req.System); sys != "" {
		params.System = []anthropic.TextBlockParam{{Text: sys}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if len(req.Tools) > 0 {
		params.Tools = convertToolsToAnthropic(req.Tools)
	}
	return params, nil
}

// convertMessagesToAnthropic folds consecutive tool results into a single
// user turn, which is how the Messages API expects them.
func convertMessagesToAnthropic(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	var results []anthropic.ContentBlockParamUnion

	flush := func() {
		if len(results) > 0 {
			out = append(out, anthropic.NewUserMessage(results...))
			results = nil
		}
	}

	for _, msg := range messages {
		switch msg.Role {
		case RoleTool:
			results = append(results, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false))
			continue
		case RoleAssistant:
			flush()
			blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(msg.ToolCalls))
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, toolInput(call.Arguments), call.Name))
			}
			if len(blocks) == 0 {
				continue
			}
			out = append(out, anthropic.MessageParam{Role: anthropic.MessageParamRoleAssistant, Content: blocks})
		default:
			flush()
			if msg.Content == "" {
				continue
			}
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	flush()
	return out
}

// toolInput decodes recorded call arguments. Arguments that never parsed
// are replayed as an empty object so the history stays acceptable.
func toolInput(arguments string) any {
	var input map[string]any
	if err := json.Unmarshal([]byte(arguments), &input); err != nil || input == nil {
		return map[string]any{}
	}
	return input
}

func convertToolsToAnthropic(specs []tools.ToolSpec) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		params := spec.Parameters()
		schema := anthropic.ToolInputSchemaParam{Properties: params["properties"]}
		if required, ok := params["required"].([]string); ok {
			schema.Required = required
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        spec.Name(),
			Description: anthropic.String(spec.Description()),
			InputSchema: schema,
			Type:        anthropic.ToolTypeCustom,
		}})
	}
	return out
}
