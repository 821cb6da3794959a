package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAnthropicEndpoint  = "https://api.anthropic.com/v1/messages"
	defaultAnthropicModel     = "claude-sonnet-4-5-20250929"
	defaultAnthropicMaxTokens = 1024
	anthropicAPIVersion       = "2023-06-01"
)

// AnthropicClient talks to the Anthropic Messages API directly
type AnthropicClient struct {
	Endpoint  string
	Model     string
	MaxTokens int

	apiKey string
	http   *http.Client
}

// NewAnthropic creates a Messages API client. An empty endpoint selects the public API.
func NewAnthropic(endpoint, apiKey, model string, maxTokens int, timeout time.Duration) (*AnthropicClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if strings.TrimSpace(endpoint) == "" {
		endpoint = defaultAnthropicEndpoint
	}
	if strings.TrimSpace(model) == "" {
		model = defaultAnthropicModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	return &AnthropicClient{
		Endpoint:  endpoint,
		Model:     model,
		MaxTokens: maxTokens,
		apiKey:    apiKey,
		http:      &http.Client{Timeout: timeout},
	}, nil
}

// Name returns provider name
func (a *AnthropicClient) Name() string { return "anthropic" }

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicResponse struct {
	ID         string                  `json:"id"`
	Content    []anthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
}

type anthropicErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends a single user turn and returns the concatenated text blocks
func (a *AnthropicClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	reqBody := anthropicRequest{
		Model:     a.Model,
		MaxTokens: a.MaxTokens,
		Messages: []anthropicMessage{{
			Role:    "user",
			Content: []anthropicContentBlock{{Type: "text", Text: prompt}},
		}},
	}
	if opts.MaxTokens > 0 {
		reqBody.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		t := opts.Temperature
		reqBody.Temperature = &t
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := a.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Anthropic API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr anthropicErrorResponse
		msg := string(respBody)
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return "", &StatusError{Provider: "anthropic", StatusCode: resp.StatusCode, Message: msg}
	}

	var result anthropicResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	var parts []string
	for _, block := range result.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	text := strings.TrimSpace(strings.Join(parts, ""))
	if text == "" {
		return "", fmt.Errorf("empty response from Anthropic API")
	}
	return text, nil
}
