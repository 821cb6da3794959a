package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

const (
	chatHistoryKey = "chat_history"

	// ChatErrorMessage is the assistant reply recorded when the AI call fails
	ChatErrorMessage = "Sorry, I encountered an error. Please try again."
)

// ChatServiceImpl implements ChatService. The history is persisted so a
// conversation survives restarts.
type ChatServiceImpl struct {
	store     PersistentStore
	aiService AIService
	emails    EmailService
	now       func() time.Time
	logger    *log.Logger
	mu        sync.Mutex
}

// NewChatService creates a new chat service
func NewChatService(store PersistentStore, aiService AIService, emails EmailService) *ChatServiceImpl {
	return &ChatServiceImpl{
		store:     store,
		aiService: aiService,
		emails:    emails,
		now:       time.Now,
	}
}

// SetLogger sets the logger for debug output
func (s *ChatServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// Send records the user message, asks the assistant, and records the answer.
// An AI failure is answered with ChatErrorMessage rather than an error.
func (s *ChatServiceImpl) Send(ctx context.Context, message string) (*ChatResponse, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("message cannot be empty: %w", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.loadLocked(ctx)
	if err != nil {
		return nil, err
	}

	req := ChatRequest{Message: message, ConversationHistory: history}
	if s.emails != nil {
		if emails, err := s.emails.List(ctx); err == nil {
			req.EmailContext = emails
		} else if s.logger != nil {
			s.logger.Printf("ChatService: email context unavailable: %v", err)
		}
	}

	history = append(history, ChatMessage{Role: "user", Content: message, Timestamp: s.now()})

	var resp *ChatResponse
	if s.aiService == nil {
		err = ErrAIServiceDown
	} else {
		resp, err = s.aiService.Chat(ctx, req)
	}
	if err != nil || resp == nil {
		if s.logger != nil {
			s.logger.Printf("ChatService: chat failed: %v", err)
		}
		resp = &ChatResponse{Message: ChatErrorMessage, ReferencedEmails: []string{}, SuggestedActions: []string{}}
	}
	history = append(history, ChatMessage{Role: "assistant", Content: resp.Message, Timestamp: s.now()})

	if err := s.saveLocked(ctx, history); err != nil {
		return nil, err
	}
	return resp, nil
}

// History returns the conversation so far
func (s *ChatServiceImpl) History(ctx context.Context) ([]ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// Reset clears the conversation
func (s *ChatServiceImpl) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Remove(ctx, chatHistoryKey); err != nil {
		return fmt.Errorf("failed to clear chat history: %w", err)
	}
	return nil
}

func (s *ChatServiceImpl) loadLocked(ctx context.Context) ([]ChatMessage, error) {
	raw, found, err := s.store.Get(ctx, chatHistoryKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	if !found || strings.TrimSpace(raw) == "" {
		return []ChatMessage{}, nil
	}
	var history []ChatMessage
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, fmt.Errorf("failed to decode chat history: %w: %v", ErrInvalidFormat, err)
	}
	return history, nil
}

func (s *ChatServiceImpl) saveLocked(ctx context.Context, history []ChatMessage) error {
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to encode chat history: %w", err)
	}
	if err := s.store.Set(ctx, chatHistoryKey, string(data)); err != nil {
		return fmt.Errorf("failed to save chat history: %w", err)
	}
	return nil
}
