package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ajramos/mailtriage/internal/config"
)

// NewProviderFromConfig creates a Provider from the LLM section of the config.
// apiKey is only consulted by providers that need one.
func NewProviderFromConfig(ctx context.Context, cfg config.LLMConfig, timeout time.Duration, apiKey string) (Provider, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("LLM is disabled")
	}
	switch cfg.Provider {
	case "ollama", "":
		return NewClient(cfg.Endpoint, cfg.Model, timeout), nil
	case "bedrock":
		b, err := NewBedrock(ctx, cfg.Region, cfg.Model, timeout)
		if err != nil {
			return nil, err
		}
		if cfg.MaxTokens > 0 {
			b.MaxTokens = cfg.MaxTokens
		}
		return b, nil
	case "anthropic":
		if cfg.APIKey != "" {
			apiKey = cfg.APIKey
		}
		endpoint := cfg.Endpoint
		if endpoint == config.DefaultLLMConfig().Endpoint {
			endpoint = ""
		}
		return NewAnthropic(endpoint, apiKey, cfg.Model, cfg.MaxTokens, timeout)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
}
