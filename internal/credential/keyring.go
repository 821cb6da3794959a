package credential

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/99designs/keyring"
)

const serviceName = "mailtriage"

// AnthropicAPIKey is the keyring entry holding the Anthropic API key
const AnthropicAPIKey = "anthropic_api_key"

// ErrNotFound is returned when no credential is stored under a key
var ErrNotFound = errors.New("credential not found")

// Store reads and writes secrets in the system keyring
type Store struct {
	ring keyring.Keyring
}

// Open returns a store backed by the first available system keyring. The
// encrypted file backend under configDir is the last resort.
func Open(configDir string) (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(configDir, "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt("mailtriage-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Store{ring: ring}, nil
}

// NewStore wraps an already opened keyring
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Get retrieves a credential value by key
func (s *Store) Get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("getting credential %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores a credential value by key
func (s *Store) Set(key, value string) error {
	err := s.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: serviceName + " " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a credential by key
func (s *Store) Delete(key string) error {
	err := s.ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}
