package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ajramos/mailtriage/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptService_UpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	s, err := NewPromptService(path)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.UpdatePrompt(ctx, config.PromptReplyGeneration, "Reply briefly to {{subject}}"))

	reloaded, err := NewPromptService(path)
	require.NoError(t, err)
	assert.Equal(t, "Reply briefly to {{subject}}", reloaded.GetPrompt(config.PromptReplyGeneration))

	var customized []config.PromptKind
	for _, e := range reloaded.ListPrompts() {
		if e.Customized {
			customized = append(customized, e.Kind)
		}
	}
	assert.Equal(t, []config.PromptKind{config.PromptReplyGeneration}, customized)
}

func TestPromptService_Reset(t *testing.T) {
	s, err := NewPromptService(filepath.Join(t.TempDir(), "prompts.yaml"))
	require.NoError(t, err)
	ctx := context.Background()
	defaults := config.DefaultPrompts()

	require.NoError(t, s.UpdatePrompt(ctx, config.PromptChatSystem, "chat"))
	require.NoError(t, s.UpdatePrompt(ctx, config.PromptCategorization, "categorize"))

	require.NoError(t, s.ResetPrompts(ctx, config.PromptChatSystem))
	assert.Equal(t, defaults.ChatSystem, s.GetPrompt(config.PromptChatSystem))
	assert.Equal(t, "categorize", s.GetPrompt(config.PromptCategorization))

	require.NoError(t, s.ResetPrompts(ctx, ""))
	assert.Equal(t, defaults.Categorization, s.GetPrompt(config.PromptCategorization))
}

func TestPromptService_InvalidInput(t *testing.T) {
	s, err := NewPromptService("")
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, s.UpdatePrompt(ctx, config.PromptSummarization, "  "), ErrInvalidPrompt)
	assert.ErrorIs(t, s.UpdatePrompt(ctx, config.PromptKind("signature"), "x"), ErrInvalidPrompt)
	assert.ErrorIs(t, s.ResetPrompts(ctx, config.PromptKind("signature")), ErrInvalidPrompt)
}
