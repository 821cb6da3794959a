package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/ajramos/mailtriage/internal/mail"
)

type emailPatch struct {
	read     *bool
	category mail.Category
}

// EmailServiceImpl implements EmailService. Read state and category changes
// are kept in an overlay that the next Refresh drops.
type EmailServiceImpl struct {
	source       EmailSource
	cacheService CacheService
	aiService    AIService
	logger       *log.Logger

	mu      sync.Mutex
	emails  []mail.Email
	loaded  bool
	overlay map[string]emailPatch
}

// NewEmailService creates a new email service
func NewEmailService(source EmailSource, cacheService CacheService, aiService AIService) *EmailServiceImpl {
	return &EmailServiceImpl{
		source:       source,
		cacheService: cacheService,
		aiService:    aiService,
		overlay:      make(map[string]emailPatch),
	}
}

// SetLogger sets the logger for debug output
func (s *EmailServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// List returns the emails, loading them on first use
func (s *EmailServiceImpl) List(ctx context.Context) ([]mail.Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		if err := s.fetchLocked(ctx); err != nil {
			return nil, err
		}
	}
	return s.viewLocked(), nil
}

// Get returns one email with the overlay applied
func (s *EmailServiceImpl) Get(ctx context.Context, id string) (mail.Email, error) {
	if strings.TrimSpace(id) == "" {
		return mail.Email{}, fmt.Errorf("email ID cannot be empty: %w", ErrInvalidInput)
	}
	emails, err := s.List(ctx)
	if err != nil {
		return mail.Email{}, err
	}
	if e, ok := mail.FindEmail(emails, id); ok {
		return e, nil
	}
	return mail.Email{}, fmt.Errorf("%w: %s", ErrEmailNotFound, id)
}

// Refresh reloads the list from the source and drops local patches
func (s *EmailServiceImpl) Refresh(ctx context.Context) ([]mail.Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fetchLocked(ctx); err != nil {
		return nil, err
	}
	s.overlay = make(map[string]emailPatch)
	return s.viewLocked(), nil
}

// Upload replaces the whole list. A malformed file leaves the current list
// in place.
func (s *EmailServiceImpl) Upload(ctx context.Context, name string, data []byte) (int, error) {
	emails, err := mail.ParseUpload(name, data)
	if err != nil {
		if s.logger != nil {
			s.logger.Printf("EmailService: rejected upload %s: %v", name, err)
		}
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.source.Replace(ctx, emails); err != nil {
		return 0, fmt.Errorf("failed to store uploaded emails: %w", err)
	}
	if err := s.fetchLocked(ctx); err != nil {
		return 0, err
	}
	s.overlay = make(map[string]emailPatch)

	if s.logger != nil {
		s.logger.Printf("EmailService: uploaded %d emails from %s", len(emails), name)
	}
	return len(emails), nil
}

func (s *EmailServiceImpl) MarkRead(ctx context.Context, id string) error {
	return s.patch(ctx, id, func(p *emailPatch) {
		read := true
		p.read = &read
	})
}

func (s *EmailServiceImpl) MarkUnread(ctx context.Context, id string) error {
	return s.patch(ctx, id, func(p *emailPatch) {
		read := false
		p.read = &read
	})
}

// SetCategory overrides the category locally until the next Refresh
func (s *EmailServiceImpl) SetCategory(ctx context.Context, id string, category mail.Category) error {
	if _, ok := mail.ParseCategory(string(category)); !ok {
		return fmt.Errorf("unknown category %q: %w", category, ErrInvalidInput)
	}
	return s.patch(ctx, id, func(p *emailPatch) {
		p.category = category
	})
}

// CategorizeAll classifies every email and re-fetches the list
func (s *EmailServiceImpl) CategorizeAll(ctx context.Context) (int, error) {
	if s.aiService == nil {
		return 0, fmt.Errorf("AI service not available: %w", ErrAIServiceDown)
	}
	emails, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	n, err := s.aiService.CategorizeAll(ctx, emails)
	if err != nil {
		return n, fmt.Errorf("failed to categorize emails: %w", err)
	}
	if _, err := s.Refresh(ctx); err != nil {
		return n, err
	}
	return n, nil
}

func (s *EmailServiceImpl) patch(ctx context.Context, id string, apply func(*emailPatch)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		if err := s.fetchLocked(ctx); err != nil {
			return err
		}
	}
	if _, ok := mail.FindEmail(s.emails, id); !ok {
		return fmt.Errorf("%w: %s", ErrEmailNotFound, id)
	}
	p := s.overlay[id]
	apply(&p)
	s.overlay[id] = p
	return nil
}

func (s *EmailServiceImpl) fetchLocked(ctx context.Context) error {
	emails, err := s.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load emails: %w", err)
	}
	if s.cacheService != nil {
		stored, err := s.cacheService.LoadCategories(ctx)
		switch {
		case err != nil:
			if s.logger != nil {
				s.logger.Printf("EmailService: stored categories unavailable: %v", err)
			}
		case len(stored) > 0:
			for i := range emails {
				if c, ok := stored[emails[i].ID]; ok {
					emails[i].Category = c
				}
			}
		}
	}
	s.emails = emails
	s.loaded = true
	return nil
}

func (s *EmailServiceImpl) viewLocked() []mail.Email {
	out := make([]mail.Email, len(s.emails))
	copy(out, s.emails)
	for i := range out {
		p, ok := s.overlay[out[i].ID]
		if !ok {
			continue
		}
		if p.read != nil {
			out[i].IsRead = *p.read
		}
		if p.category != "" {
			out[i].Category = p.category
		}
	}
	return out
}
