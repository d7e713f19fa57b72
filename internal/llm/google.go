package llm

import (
	"context"
	"fmt"
	"strings"

	genai "google.golang.org/genai"

	"github.com/codefionn/selenai/internal/consts"
	"github.com/codefionn/selenai/internal/toolcall"
	"github.com/codefionn/selenai/internal/tools"
)

const defaultGoogleModel = "gemini-2.5-flash"

// GoogleClient implements the Client interface using the official Google GenAI SDK.
type GoogleClient struct {
	client *genai.Client
	model  string
}

// NewGoogleClient creates a Gemini API client for the provided model.
func NewGoogleClient(ctx context.Context, apiKey, baseURL, model string) (*GoogleClient, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, fmt.Errorf("google client requires an API key (set GEMINI_API_KEY)")
	}
	model = strings.TrimPrefix(strings.TrimSpace(model), "models/")
	if model == "" {
		model = defaultGoogleModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	}
	if base := strings.TrimSpace(baseURL); base != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google GenAI client: %w", err)
	}
	return &GoogleClient{client: client, model: model}, nil
}

func (c *GoogleClient) GetModelName() string {
	return c.model
}

func (c *GoogleClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, convertMessagesToGenAI(req.Messages), buildGenAIConfig(req))
	if err != nil {
		return nil, fmt.Errorf("google genai completion failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return &Response{}, nil
	}
	text, calls := toolcall.FromGenAIContent(resp.Candidates[0].Content, 0)
	return &Response{Text: text, Calls: calls}, nil
}

func (c *GoogleClient) Stream(ctx context.Context, req *Request, onEvent func(Event) error) error {
	contents := convertMessagesToGenAI(req.Messages)
	if len(contents) == 0 {
		return nil
	}

	seen := 0
	for result, err := range c.client.Models.GenerateContentStream(ctx, c.model, contents, buildGenAIConfig(req)) {
		if err != nil {
			return fmt.Errorf("google genai stream failed: %w", err)
		}
		if len(result.Candidates) == 0 {
			continue
		}
		text, calls := toolcall.FromGenAIContent(result.Candidates[0].Content, seen)
		seen += len(calls)
		if text != "" {
			if err := onEvent(Event{Kind: EventText, Text: text}); err != nil {
				return err
			}
		}
		for _, call := range calls {
			if err := onEvent(Event{Kind: EventToolCall, Call: call}); err != nil {
				return err
			}
		}
	}
	return nil
}

func buildGenAIConfig(req *Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if sys := strings.TrimSpace(req.System); sys != "" {
		cfg.SystemInstruction = genai.NewContentFromText(sys, genai.RoleUser)
	}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		cfg.Temperature = &temp
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = consts.DefaultMaxTokens
	}
	cfg.MaxOutputTokens = int32(maxTokens)
	if len(req.Tools) > 0 {
		cfg.Tools = convertToolsToGenAI(req.Tools)
		cfg.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAuto},
		}
	}
	return cfg
}

func convertMessagesToGenAI(messages []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleAssistant:
			parts := make([]*genai.Part, 0, 1+len(msg.ToolCalls))
			if msg.Content != "" {
				parts = append(parts, genai.NewPartFromText(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				args, _ := toolInput(call.Arguments).(map[string]any)
				part := genai.NewPartFromFunctionCall(call.Name, args)
				part.FunctionCall.ID = call.ID
				parts = append(parts, part)
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
		case RoleTool:
			part := genai.NewPartFromFunctionResponse(msg.ToolName, map[string]any{"output": msg.Content})
			part.FunctionResponse.ID = msg.ToolCallID
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
		default:
			if msg.Content == "" {
				continue
			}
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	return contents
}

func convertToolsToGenAI(specs []tools.ToolSpec) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, spec := range specs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:                 spec.Name(),
			Description:          spec.Description(),
			ParametersJsonSchema: spec.Parameters(),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}
