package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ajramos/mailtriage/internal/mail"
	"github.com/jmoiron/sqlx"
)

// ErrActionItemNotFound is returned when an action item id is unknown
var ErrActionItemNotFound = errors.New("action item not found")

// ActionItemStore persists confirmed action items
type ActionItemStore struct {
	db *sqlx.DB
}

// NewActionItemStore creates an action item store from a base store
func NewActionItemStore(store *Store) *ActionItemStore {
	if store == nil || store.DB() == nil {
		return nil
	}
	return &ActionItemStore{db: sqlx.NewDb(store.DB(), "sqlite")}
}

const actionItemColumns = `id, candidate_id, email_id, description, deadline, priority, completed, source_email_subject, confirmed_at`

// SaveItems upserts items. Re-confirming an item keeps its completed flag.
func (s *ActionItemStore) SaveItems(ctx context.Context, items []mail.ConfirmedActionItem) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("action item store not initialized")
	}
	if len(items) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	for _, it := range items {
		if strings.TrimSpace(it.ID) == "" {
			_ = tx.Rollback()
			return fmt.Errorf("action item without id")
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO action_items(`+actionItemColumns+`)
VALUES(?,?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET
  description=excluded.description,
  deadline=excluded.deadline,
  priority=excluded.priority,
  source_email_subject=excluded.source_email_subject;
`, it.ID, it.CandidateID, it.EmailID, it.Description, it.Deadline, string(it.Priority), it.Completed, it.SourceEmailSubject, it.ConfirmedAt.UTC())
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("save action item %s: %w", it.ID, err)
		}
	}
	return tx.Commit()
}

// ListItems returns items oldest first. A nil filter returns every item.
func (s *ActionItemStore) ListItems(ctx context.Context, completed *bool) ([]mail.ConfirmedActionItem, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("action item store not initialized")
	}
	query := `SELECT ` + actionItemColumns + ` FROM action_items`
	var args []interface{}
	if completed != nil {
		query += ` WHERE completed = ?`
		args = append(args, *completed)
	}
	query += ` ORDER BY confirmed_at ASC, id ASC`

	var items []mail.ConfirmedActionItem
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list action items: %w", err)
	}
	return items, nil
}

// GetItem loads a single item
func (s *ActionItemStore) GetItem(ctx context.Context, id string) (mail.ConfirmedActionItem, error) {
	if s == nil || s.db == nil {
		return mail.ConfirmedActionItem{}, fmt.Errorf("action item store not initialized")
	}
	var it mail.ConfirmedActionItem
	err := s.db.GetContext(ctx, &it, `SELECT `+actionItemColumns+` FROM action_items WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return mail.ConfirmedActionItem{}, ErrActionItemNotFound
	}
	if err != nil {
		return mail.ConfirmedActionItem{}, err
	}
	return it, nil
}

// SetCompleted flips the completed flag of an item
func (s *ActionItemStore) SetCompleted(ctx context.Context, id string, completed bool) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("action item store not initialized")
	}
	res, err := s.db.ExecContext(ctx, `UPDATE action_items SET completed = ? WHERE id = ?`, completed, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrActionItemNotFound
	}
	return nil
}

// DeleteItem removes an item
func (s *ActionItemStore) DeleteItem(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("action item store not initialized")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM action_items WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrActionItemNotFound
	}
	return nil
}
