package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/ajramos/mailtriage/internal/config"
)

// PromptServiceImpl implements PromptService over a YAML prompt file
type PromptServiceImpl struct {
	path   string
	mu     sync.RWMutex
	set    *config.PromptSet
	logger *log.Logger
}

// NewPromptService loads the prompt set at path. An empty path keeps the
// prompts in memory only.
func NewPromptService(path string) (*PromptServiceImpl, error) {
	set, err := config.LoadPrompts(path)
	if err != nil {
		return nil, err
	}
	return &PromptServiceImpl{path: path, set: set}, nil
}

// SetLogger sets the logger for debug output
func (s *PromptServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

func (s *PromptServiceImpl) GetPrompt(kind config.PromptKind) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.Get(kind)
}

func (s *PromptServiceImpl) ListPrompts() []PromptEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	defaults := config.DefaultPrompts()
	out := make([]PromptEntry, 0, len(config.PromptKinds))
	for _, k := range config.PromptKinds {
		text := s.set.Get(k)
		out = append(out, PromptEntry{Kind: k, Text: text, Customized: text != defaults.Get(k)})
	}
	return out
}

func (s *PromptServiceImpl) UpdatePrompt(ctx context.Context, kind config.PromptKind, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("prompt text cannot be empty: %w", ErrInvalidPrompt)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.set.Update(kind, text); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPrompt, err)
	}
	if err := s.saveLocked(); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Printf("PromptService: updated %s prompt", kind)
	}
	return nil
}

// ResetPrompts restores one prompt, or all of them when kind is empty
func (s *PromptServiceImpl) ResetPrompts(ctx context.Context, kind config.PromptKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.set.Reset(kind); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPrompt, err)
	}
	if err := s.saveLocked(); err != nil {
		return err
	}
	if s.logger != nil {
		if kind == "" {
			s.logger.Printf("PromptService: reset all prompts")
		} else {
			s.logger.Printf("PromptService: reset %s prompt", kind)
		}
	}
	return nil
}

func (s *PromptServiceImpl) saveLocked() error {
	if s.path == "" {
		return nil
	}
	if err := s.set.SavePrompts(s.path); err != nil {
		return fmt.Errorf("failed to save prompts: %w", err)
	}
	return nil
}
