package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// PromptKind names one of the editable prompt templates
type PromptKind string

const (
	PromptCategorization   PromptKind = "categorization"
	PromptActionExtraction PromptKind = "action_extraction"
	PromptReplyGeneration  PromptKind = "reply_generation"
	PromptSummarization    PromptKind = "summarization"
	PromptChatSystem       PromptKind = "chat_system"
)

// PromptKinds lists every prompt kind in display order
var PromptKinds = []PromptKind{
	PromptCategorization,
	PromptActionExtraction,
	PromptReplyGeneration,
	PromptSummarization,
	PromptChatSystem,
}

// ErrUnknownPrompt is returned for a prompt kind outside PromptKinds
var ErrUnknownPrompt = errors.New("unknown prompt")

// ParsePromptKind validates a prompt name
func ParsePromptKind(s string) (PromptKind, error) {
	k := PromptKind(strings.TrimSpace(s))
	for _, known := range PromptKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPrompt, s)
}

// PromptSet is the editable set of prompt templates. Variables use the
// {{name}} placeholder syntax.
type PromptSet struct {
	Categorization   string `yaml:"categorization"`
	ActionExtraction string `yaml:"action_extraction"`
	ReplyGeneration  string `yaml:"reply_generation"`
	Summarization    string `yaml:"summarization"`
	ChatSystem       string `yaml:"chat_system"`
}

// DefaultPrompts returns the built-in templates
func DefaultPrompts() *PromptSet {
	return &PromptSet{
		Categorization: `Categorize emails into: Important, Newsletter, Spam, To-Do.
To-Do emails must include a direct request requiring user action.

Email to categorize:
Subject: {{subject}}
From: {{sender}}
Body: {{body}}

Respond with ONLY the category name (e.g., "Important", "To-Do", "Newsletter", or "Spam").`,

		ActionExtraction: `Extract tasks from the email.

Email content:
Subject: {{subject}}
From: {{sender}}
Body: {{body}}

Extract action items in the following JSON format:
[
  {
    "description": "Clear description of the action item",
    "deadline": "YYYY-MM-DD or null if no deadline mentioned",
    "priority": "High" | "Medium" | "Low"
  }
]

If there are no action items, return an empty array [].
Respond with ONLY valid JSON.`,

		ReplyGeneration: `If an email is a meeting request, draft a polite reply asking for an agenda.

Original Email:
Subject: {{subject}}
From: {{sender}}
Body: {{body}}

Tone: {{tone}}
Additional Context: {{context}}

Generate a {{tone}} reply that:
1. Acknowledges the email content
2. If it's a meeting request, politely asks for an agenda
3. Is concise and professional
4. Includes appropriate greeting and closing

Respond with ONLY the reply text (no subject line).`,

		Summarization: `You are an email summarization assistant. Create a concise summary of the provided emails.

Emails to summarize:
{{emails}}

Focus: {{focus}}

Provide a brief summary that:
1. Highlights key themes and topics
2. Mentions urgent or important items
3. Groups similar emails together
4. Is easy to scan quickly

Keep the summary under 200 words.`,

		ChatSystem: `You are an intelligent email assistant helping users manage their inbox. You have access to the user's emails and can answer questions about them, summarize them, find emails matching certain criteria and suggest replies.

Be conversational, helpful, and concise. When referencing specific emails, mention the sender and subject.

Current conversation context:
{{conversation_history}}

Available emails:
{{email_context}}

User query: {{user_message}}

Provide a helpful, conversational response.`,
	}
}

func (p *PromptSet) field(kind PromptKind) *string {
	switch kind {
	case PromptCategorization:
		return &p.Categorization
	case PromptActionExtraction:
		return &p.ActionExtraction
	case PromptReplyGeneration:
		return &p.ReplyGeneration
	case PromptSummarization:
		return &p.Summarization
	case PromptChatSystem:
		return &p.ChatSystem
	}
	return nil
}

// Get returns the template for kind, falling back to the default when unset
func (p *PromptSet) Get(kind PromptKind) string {
	if p != nil {
		if f := p.field(kind); f != nil && strings.TrimSpace(*f) != "" {
			return *f
		}
	}
	if f := DefaultPrompts().field(kind); f != nil {
		return *f
	}
	return ""
}

// Update replaces one template
func (p *PromptSet) Update(kind PromptKind, text string) error {
	f := p.field(kind)
	if f == nil {
		return fmt.Errorf("%w: %q", ErrUnknownPrompt, kind)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("empty prompt for %s", kind)
	}
	*f = text
	return nil
}

// Reset restores one template, or all of them when kind is empty
func (p *PromptSet) Reset(kind PromptKind) error {
	defaults := DefaultPrompts()
	if kind == "" {
		*p = *defaults
		return nil
	}
	f := p.field(kind)
	if f == nil {
		return fmt.Errorf("%w: %q", ErrUnknownPrompt, kind)
	}
	*f = *defaults.field(kind)
	return nil
}

// fillMissing copies defaults into blank templates
func (p *PromptSet) fillMissing() {
	defaults := DefaultPrompts()
	for _, k := range PromptKinds {
		if f := p.field(k); strings.TrimSpace(*f) == "" {
			*f = *defaults.field(k)
		}
	}
}

// LoadPrompts reads a prompt set from a YAML file. A missing file yields
// the defaults; missing entries are filled from the defaults.
func LoadPrompts(path string) (*PromptSet, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPrompts(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultPrompts(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	ps := &PromptSet{}
	if err := yaml.Unmarshal(data, ps); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}
	ps.fillMissing()
	return ps, nil
}

// SavePrompts writes the prompt set as YAML
func (p *PromptSet) SavePrompts(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create prompts directory: %w", err)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal prompts: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write prompts file: %w", err)
	}
	return nil
}

// Render substitutes {{name}} placeholders. Unknown placeholders are left as is.
func Render(template string, vars map[string]string) string {
	if len(vars) == 0 {
		return template
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{{"+k+"}}", vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
