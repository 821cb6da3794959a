package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	cs := NewCategoryStore(openTestStore(t))

	assert.NoError(t, cs.SaveCategory(ctx, "e1", "Important"))
	assert.NoError(t, cs.SaveCategory(ctx, "e2", "Spam"))
	assert.NoError(t, cs.SaveCategory(ctx, "e1", "Newsletter"))

	got, err := cs.LoadCategories(ctx)
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"e1": "Newsletter", "e2": "Spam"}, got)
}

func TestCategoryStore_InvalidInputs(t *testing.T) {
	ctx := context.Background()
	cs := NewCategoryStore(openTestStore(t))

	tests := []struct {
		name     string
		emailID  string
		category string
	}{
		{"empty_id", "", "Spam"},
		{"empty_category", "e1", " "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cs.SaveCategory(ctx, tt.emailID, tt.category)
			assert.EqualError(t, err, "invalid category inputs")
		})
	}
}

func TestCategoryStore_Nil(t *testing.T) {
	assert.Nil(t, NewCategoryStore(nil))
	var cs *CategoryStore
	_, err := cs.LoadCategories(context.Background())
	assert.Error(t, err)
}
