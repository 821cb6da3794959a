package services

import (
	"context"
	"testing"

	"github.com/ajramos/mailtriage/internal/db"
	"github.com/ajramos/mailtriage/internal/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheService_NilStore(t *testing.T) {
	service := NewCacheService(nil)
	ctx := context.Background()

	_, err := service.LoadCategories(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cache store not available")

	err = service.SaveCategory(ctx, "e1", mail.CategorySpam)
	assert.Contains(t, err.Error(), "cache store not available")
}

func TestCacheService_ValidationErrors(t *testing.T) {
	service := NewCacheService(db.NewCategoryStore(openTestDB(t)))
	ctx := context.Background()

	tests := []struct {
		name     string
		emailID  string
		category mail.Category
	}{
		{name: "empty_email_id", emailID: "", category: mail.CategorySpam},
		{name: "empty_category", emailID: "e1", category: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.SaveCategory(ctx, tt.emailID, tt.category)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "emailID and category cannot be empty")
		})
	}
}

func TestCacheService_SaveAndLoad(t *testing.T) {
	store := openTestDB(t)
	service := NewCacheService(db.NewCategoryStore(store))
	ctx := context.Background()

	require.NoError(t, service.SaveCategory(ctx, "e1", mail.CategoryImportant))
	require.NoError(t, service.SaveCategory(ctx, "e1", mail.CategoryTodo))
	require.NoError(t, service.SaveCategory(ctx, "e2", mail.CategoryNewsletter))
	// rows written by something else with an unknown name are ignored
	require.NoError(t, db.NewCategoryStore(store).SaveCategory(ctx, "e3", "Promotions"))

	got, err := service.LoadCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]mail.Category{
		"e1": mail.CategoryTodo,
		"e2": mail.CategoryNewsletter,
	}, got)
}
