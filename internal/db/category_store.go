package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// CategoryStore keeps categories assigned by bulk classification, keyed by email id
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore creates a category store from a base store
func NewCategoryStore(store *Store) *CategoryStore {
	if store == nil {
		return nil
	}
	return &CategoryStore{db: store.DB()}
}

// SaveCategory upserts the category for an email
func (cs *CategoryStore) SaveCategory(ctx context.Context, emailID, category string) error {
	if cs == nil || cs.db == nil {
		return fmt.Errorf("category store not initialized")
	}
	if strings.TrimSpace(emailID) == "" || strings.TrimSpace(category) == "" {
		return fmt.Errorf("invalid category inputs")
	}
	_, err := cs.db.ExecContext(ctx, `INSERT INTO email_categories(email_id, category, updated_at)
VALUES(?,?,?)
ON CONFLICT(email_id) DO UPDATE SET category=excluded.category, updated_at=excluded.updated_at;
`, emailID, category, time.Now().Unix())
	return err
}

// LoadCategories returns every stored category keyed by email id
func (cs *CategoryStore) LoadCategories(ctx context.Context) (map[string]string, error) {
	if cs == nil || cs.db == nil {
		return nil, fmt.Errorf("category store not initialized")
	}
	rows, err := cs.db.QueryContext(ctx, `SELECT email_id, category FROM email_categories`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cat string
		if err := rows.Scan(&id, &cat); err != nil {
			return nil, err
		}
		out[id] = cat
	}
	return out, rows.Err()
}
