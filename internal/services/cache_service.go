package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ajramos/mailtriage/internal/db"
	"github.com/ajramos/mailtriage/internal/mail"
)

// CacheServiceImpl implements CacheService
type CacheServiceImpl struct {
	store *db.CategoryStore
}

// NewCacheService creates a new cache service
func NewCacheService(store *db.CategoryStore) *CacheServiceImpl {
	return &CacheServiceImpl{
		store: store,
	}
}

// LoadCategories returns the stored categories. Rows holding an unknown
// category are skipped.
func (s *CacheServiceImpl) LoadCategories(ctx context.Context) (map[string]mail.Category, error) {
	if s.store == nil {
		return nil, fmt.Errorf("cache store not available")
	}

	raw, err := s.store.LoadCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories from cache: %w", err)
	}

	out := make(map[string]mail.Category, len(raw))
	for id, name := range raw {
		if c, ok := mail.ParseCategory(name); ok {
			out[id] = c
		}
	}
	return out, nil
}

func (s *CacheServiceImpl) SaveCategory(ctx context.Context, emailID string, category mail.Category) error {
	if s.store == nil {
		return fmt.Errorf("cache store not available")
	}

	if strings.TrimSpace(emailID) == "" || strings.TrimSpace(string(category)) == "" {
		return fmt.Errorf("emailID and category cannot be empty")
	}

	if err := s.store.SaveCategory(ctx, emailID, string(category)); err != nil {
		return fmt.Errorf("failed to save category to cache: %w", err)
	}

	return nil
}
