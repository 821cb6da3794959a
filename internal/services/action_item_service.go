package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/ajramos/mailtriage/internal/db"
	"github.com/ajramos/mailtriage/internal/mail"
)

// ActionItemServiceImpl implements ActionItemService
type ActionItemServiceImpl struct {
	store  *db.ActionItemStore
	logger *log.Logger
}

// NewActionItemService creates a new action item service
func NewActionItemService(store *db.ActionItemStore) *ActionItemServiceImpl {
	return &ActionItemServiceImpl{store: store}
}

// SetLogger sets the logger for debug output
func (s *ActionItemServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

func (s *ActionItemServiceImpl) Add(ctx context.Context, items []mail.ConfirmedActionItem) error {
	if s.store == nil {
		return fmt.Errorf("action item store not available")
	}
	if err := s.store.SaveItems(ctx, items); err != nil {
		return fmt.Errorf("failed to save action items: %w", err)
	}
	if s.logger != nil {
		s.logger.Printf("ActionItemService: stored %d action items", len(items))
	}
	return nil
}

// List returns confirmed items, optionally filtered by completion
func (s *ActionItemServiceImpl) List(ctx context.Context, completed *bool) ([]mail.ConfirmedActionItem, error) {
	if s.store == nil {
		return nil, fmt.Errorf("action item store not available")
	}
	items, err := s.store.ListItems(ctx, completed)
	if err != nil {
		return nil, fmt.Errorf("failed to list action items: %w", err)
	}
	return items, nil
}

func (s *ActionItemServiceImpl) Complete(ctx context.Context, id string) error {
	return s.mutate(ctx, id, "complete", func() error { return s.store.SetCompleted(ctx, id, true) })
}

func (s *ActionItemServiceImpl) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, id, "delete", func() error { return s.store.DeleteItem(ctx, id) })
}

func (s *ActionItemServiceImpl) mutate(ctx context.Context, id, op string, fn func() error) error {
	if s.store == nil {
		return fmt.Errorf("action item store not available")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("action item id cannot be empty: %w", ErrInvalidInput)
	}
	if err := fn(); err != nil {
		if errors.Is(err, db.ErrActionItemNotFound) {
			return fmt.Errorf("action item %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("failed to %s action item: %w", op, err)
	}
	if s.logger != nil {
		s.logger.Printf("ActionItemService: %s %s", op, id)
	}
	return nil
}
