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

func TestClient_Generate(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"response": "  Important \n"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/api/generate", "llama3.2:latest", 5*time.Second)
	out, err := c.Generate(context.Background(), "classify", GenerateOptions{Temperature: 0.3})

	require.NoError(t, err)
	assert.Equal(t, "Important", out)
	assert.Equal(t, "llama3.2:latest", got.Model)
	assert.Equal(t, "classify", got.Prompt)
	assert.False(t, got.Stream)
	assert.Equal(t, 0.3, got.Options["temperature"])
	assert.Equal(t, "ollama", c.Name())
}

func TestClient_Generate_NoOptions(t *testing.T) {
	var raw map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(`{"response": "ok"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "m", time.Second).Generate(context.Background(), "p", GenerateOptions{})
	require.NoError(t, err)
	_, hasOptions := raw["options"]
	assert.False(t, hasOptions)
}

func TestClient_Generate_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": "model is loading"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "m", time.Second).Generate(context.Background(), "p", GenerateOptions{})

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Equal(t, "model is loading", se.Message)
	assert.True(t, se.Temporary())
}

func TestClient_Generate_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response": "late"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(srv.URL, "m", time.Second).Generate(ctx, "p", GenerateOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_IsAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models": []}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	assert.True(t, NewClient(srv.URL+"/api/generate", "m", time.Second).IsAvailable(context.Background()))
	assert.False(t, NewClient(srv.URL+"/other", "m", time.Second).IsAvailable(context.Background()))
}

func TestStatusError_Temporary(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		e := &StatusError{Provider: "x", StatusCode: tt.code}
		assert.Equal(t, tt.want, e.Temporary(), http.StatusText(tt.code))
	}
}
