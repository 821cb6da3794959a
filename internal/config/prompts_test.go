package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPrompts_AllKindsPresent(t *testing.T) {
	ps := DefaultPrompts()
	for _, k := range PromptKinds {
		assert.NotEmpty(t, ps.Get(k), string(k))
	}
	assert.Contains(t, ps.Get(PromptReplyGeneration), "{{tone}}")
	assert.Contains(t, ps.Get(PromptChatSystem), "{{user_message}}")
}

func TestParsePromptKind(t *testing.T) {
	k, err := ParsePromptKind(" summarization ")
	assert.NoError(t, err)
	assert.Equal(t, PromptSummarization, k)

	_, err = ParsePromptKind("labels")
	assert.ErrorIs(t, err, ErrUnknownPrompt)
}

func TestPromptSet_UpdateAndReset(t *testing.T) {
	ps := DefaultPrompts()

	require.NoError(t, ps.Update(PromptCategorization, "Pick one: {{subject}}"))
	require.NoError(t, ps.Update(PromptSummarization, "Sum {{emails}}"))
	assert.Equal(t, "Pick one: {{subject}}", ps.Get(PromptCategorization))

	assert.Error(t, ps.Update(PromptCategorization, "   "))
	assert.ErrorIs(t, ps.Update("labels", "x"), ErrUnknownPrompt)

	require.NoError(t, ps.Reset(PromptCategorization))
	assert.Equal(t, DefaultPrompts().Categorization, ps.Categorization)
	assert.Equal(t, "Sum {{emails}}", ps.Summarization)

	require.NoError(t, ps.Reset(""))
	assert.Equal(t, *DefaultPrompts(), *ps)

	assert.ErrorIs(t, ps.Reset("labels"), ErrUnknownPrompt)
}

func TestLoadPrompts_MissingFile(t *testing.T) {
	ps, err := LoadPrompts(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, *DefaultPrompts(), *ps)

	ps, err = LoadPrompts("")
	require.NoError(t, err)
	assert.Equal(t, *DefaultPrompts(), *ps)
}

func TestLoadPrompts_FillsMissingEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categorization: |\n  Only {{subject}}\n"), 0600))

	ps, err := LoadPrompts(path)
	require.NoError(t, err)
	assert.Equal(t, "Only {{subject}}\n", ps.Categorization)
	assert.Equal(t, DefaultPrompts().ChatSystem, ps.ChatSystem)
}

func TestLoadPrompts_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categorization: [unclosed"), 0600))

	_, err := LoadPrompts(path)
	assert.ErrorContains(t, err, "failed to parse prompts file")
}

func TestSavePrompts_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "prompts.yaml")
	ps := DefaultPrompts()
	require.NoError(t, ps.Update(PromptChatSystem, "Be brief. {{user_message}}"))
	require.NoError(t, ps.SavePrompts(path))

	loaded, err := LoadPrompts(path)
	require.NoError(t, err)
	assert.Equal(t, "Be brief. {{user_message}}", loaded.ChatSystem)
	assert.Equal(t, ps.ReplyGeneration, loaded.ReplyGeneration)
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		template string
		vars     map[string]string
		expected string
	}{
		{"simple", "Hi {{sender}}", map[string]string{"sender": "Ana"}, "Hi Ana"},
		{"repeated", "{{tone}} and {{tone}}", map[string]string{"tone": "warm"}, "warm and warm"},
		{"unknown_left", "{{a}} {{b}}", map[string]string{"a": "1"}, "1 {{b}}"},
		{"no_vars", "plain {{x}}", nil, "plain {{x}}"},
		{"value_not_rescanned", "{{a}}", map[string]string{"a": "{{b}}", "b": "B"}, "{{b}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Render(tt.template, tt.vars))
		})
	}
}
