package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ajramos/mailtriage/internal/mail"
)

// FileEmailSource implements EmailSource over a JSON file
type FileEmailSource struct {
	path string
}

// NewFileEmailSource creates a source reading and writing path
func NewFileEmailSource(path string) *FileEmailSource {
	return &FileEmailSource{path: path}
}

// Load reads the email list. A missing file is an empty list.
func (r *FileEmailSource) Load(ctx context.Context) ([]mail.Email, error) {
	if r.path == "" {
		return nil, fmt.Errorf("email file path cannot be empty")
	}
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return []mail.Email{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read emails: %w", err)
	}
	emails, err := mail.ParseUpload(filepath.Base(r.path), data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", r.path, err)
	}
	return emails, nil
}

// Replace writes the list atomically through a temp file
func (r *FileEmailSource) Replace(ctx context.Context, emails []mail.Email) error {
	if r.path == "" {
		return fmt.Errorf("email file path cannot be empty")
	}
	if emails == nil {
		emails = []mail.Email{}
	}
	data, err := json.MarshalIndent(emails, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode emails: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return fmt.Errorf("failed to create emails directory: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write emails: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace emails: %w", err)
	}
	return nil
}
