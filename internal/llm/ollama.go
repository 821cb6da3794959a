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

// Client represents an Ollama client for local LLM interactions
type Client struct {
	Endpoint string
	Model    string
	Timeout  time.Duration

	http *http.Client
}

// NewClient creates a new Ollama client
func NewClient(endpoint, model string, timeout time.Duration) *Client {
	return &Client{
		Endpoint: endpoint,
		Model:    model,
		Timeout:  timeout,
		http:     &http.Client{Timeout: timeout},
	}
}

// Request represents the JSON structure expected by Ollama
type Request struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// Response represents the response from Ollama
type Response struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Generate sends a prompt to Ollama and returns the generated text
func (c *Client) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	reqBody := Request{
		Model:  c.Model,
		Prompt: prompt,
		Stream: false,
	}
	if opts.Temperature > 0 || opts.MaxTokens > 0 {
		reqBody.Options = map[string]interface{}{}
		if opts.Temperature > 0 {
			reqBody.Options["temperature"] = opts.Temperature
		}
		if opts.MaxTokens > 0 {
			reqBody.Options["num_predict"] = opts.MaxTokens
		}
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var r Response
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &r) == nil && r.Error != "" {
			msg = r.Error
		}
		return "", &StatusError{Provider: "ollama", StatusCode: resp.StatusCode, Message: msg}
	}

	var response Response
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode ollama response: %w", err)
	}

	return strings.TrimSpace(response.Response), nil
}

// Name returns provider name
func (c *Client) Name() string { return "ollama" }

// IsAvailable checks if the Ollama service is available
func (c *Client) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.Replace(c.Endpoint, "/api/generate", "/api/tags", 1), nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
