package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/codefionn/selenai/internal/logger"
)

// NewClient creates the client for opts.Provider. A missing API key is
// filled from the provider's environment variable.
func NewClient(ctx context.Context, opts Options) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		provider = ProviderStub
	}
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		key = APIKeyFromEnv(provider)
	}

	logger.Debug("llm: creating %s client (model=%q)", provider, opts.Model)

	switch provider {
	case ProviderOpenAI:
		return NewOpenAIClient(key, opts.BaseURL, opts.Model)
	case ProviderAnthropic:
		return NewAnthropicClient(key, opts.BaseURL, opts.Model)
	case ProviderGoogle:
		return NewGoogleClient(ctx, key, opts.BaseURL, opts.Model)
	case ProviderStub:
		return NewStubClient(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: openai, anthropic, google, stub)", opts.Provider)
	}
}
