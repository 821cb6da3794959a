package llm

import (
	"context"
	"fmt"
	"net/http"
)

// Provider defines a generic LLM interface
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// GenerateOptions tunes a single call. Zero values select the provider default.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// StatusError reports a non-200 answer from an HTTP provider
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
}

// Temporary reports whether retrying the call may succeed
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
