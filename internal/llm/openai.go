package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/codefionn/selenai/internal/consts"
	"github.com/codefionn/selenai/internal/toolcall"
	"github.com/codefionn/selenai/internal/tools"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient implements Client with the chat completions API.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient creates an OpenAI client. baseURL may point at any
// compatible endpoint.
func NewOpenAIClient(apiKey, baseURL, model string, extra ...option.RequestOption) (*OpenAIClient, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, fmt.Errorf("openai client requires an API key (set OPENAI_API_KEY)")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultOpenAIModel
	}

	opts := []option.RequestOption{option.WithAPIKey(key)}
	if base := strings.TrimSpace(baseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(base, "/")+"/"))
	}
	opts = append(opts, extra...)

	return &OpenAIClient{client: openai.NewClient(opts...), model: model}, nil
}

func (c *OpenAIClient) GetModelName() string {
	return c.model
}

func (c *OpenAIClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	resp, err := c.client.Chat.Completions.New(ctx, c.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return &Response{}, nil
	}

	msg := resp.Choices[0].Message
	out := &Response{Text: msg.Content}
	for i, tc := range msg.ToolCalls {
		out.Calls = append(out.Calls, toolcall.NewCall(tc.ID, tc.Function.Name, tc.Function.Arguments, i))
	}
	return out, nil
}

func (c *OpenAIClient) Stream(ctx context.Context, req *Request, onEvent func(Event) error) error {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.buildParams(req))
	defer stream.Close()

	asm := toolcall.NewAssembler()
	for stream.Next() {
		delta := toolcall.FromOpenAIChunk(stream.Current())
		if delta.Text != "" {
			if err := onEvent(Event{Kind: EventText, Text: delta.Text}); err != nil {
				return err
			}
		}
		for _, f := range delta.Fragments {
			asm.Add(f)
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("openai stream failed: %w", err)
	}

	for _, call := range asm.Finish() {
		if err := onEvent(Event{Kind: EventToolCall, Call: call}); err != nil {
			return err
		}
	}
	return nil
}

func (c *OpenAIClient) buildParams(req *Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: convertMessagesToOpenAI(req),
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = consts.DefaultMaxTokens
	}
	params.MaxTokens = openai.Int(int64(maxTokens))
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if len(req.Tools) > 0 {
		params.Tools = convertToolsToOpenAI(req.Tools)
	}
	return params
}

func convertMessagesToOpenAI(req *Request) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if sys := strings.TrimSpace(req.System); sys != "" {
		out = append(out, openai.SystemMessage(sys))
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(msg.Content))
				continue
			}
			calls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(msg.ToolCalls))
			for _, call := range msg.ToolCalls {
				calls = append(calls, openai.ChatCompletionMessageToolCallParam{
					ID: call.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Name,
						Arguments: call.Arguments,
					},
				})
			}
			assistant := openai.ChatCompletionAssistantMessageParam{ToolCalls: calls}
			if msg.Content != "" {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(msg.Content)}
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case RoleTool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func convertToolsToOpenAI(specs []tools.ToolSpec) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(specs))
	for _, spec := range specs {
		out = append(out, openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        spec.Name(),
				Description: openai.String(spec.Description()),
				Parameters:  shared.FunctionParameters(spec.Parameters()),
			},
		})
	}
	return out
}
