package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnthropic_RequiresKey(t *testing.T) {
	_, err := NewAnthropic("", " ", "", 0, time.Second)
	assert.Error(t, err)

	c, err := NewAnthropic("", "sk", "", 0, time.Second)
	require.NoError(t, err)
	assert.Equal(t, defaultAnthropicEndpoint, c.Endpoint)
	assert.Equal(t, defaultAnthropicModel, c.Model)
	assert.Equal(t, defaultAnthropicMaxTokens, c.MaxTokens)
	assert.Equal(t, "anthropic", c.Name())
}

func TestAnthropicClient_Generate(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"msg_1","content":[{"type":"text","text":"Hello "},{"type":"text","text":"there"}],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	c, err := NewAnthropic(srv.URL, "sk-test", "claude-test", 512, time.Second)
	require.NoError(t, err)

	out, err := c.Generate(context.Background(), "write a reply", GenerateOptions{Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", out)

	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, 512, got.MaxTokens)
	require.NotNil(t, got.Temperature)
	assert.Equal(t, 0.7, *got.Temperature)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "write a reply", got.Messages[0].Content[0].Text)
}

func TestAnthropicClient_Generate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	c, err := NewAnthropic(srv.URL, "bad", "", 0, time.Second)
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "p", GenerateOptions{})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "invalid x-api-key", se.Message)
	assert.False(t, se.Temporary())
}

func TestAnthropicClient_Generate_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()

	c, err := NewAnthropic(srv.URL, "sk", "", 0, time.Second)
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "p", GenerateOptions{})
	assert.ErrorContains(t, err, "empty response")
}
