package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGetDelete(t *testing.T) {
	s := NewStore(keyring.NewArrayKeyring(nil))

	_, err := s.Get(AnthropicAPIKey)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(AnthropicAPIKey, "sk-test"))
	v, err := s.Get(AnthropicAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", v)

	require.NoError(t, s.Delete(AnthropicAPIKey))
	_, err = s.Get(AnthropicAPIKey)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DeleteMissing(t *testing.T) {
	s := NewStore(keyring.NewArrayKeyring(nil))
	assert.ErrorIs(t, s.Delete("nope"), ErrNotFound)
}
