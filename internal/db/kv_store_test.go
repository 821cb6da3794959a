package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewKVStore_NilStore(t *testing.T) {
	assert.Nil(t, NewKVStore(nil))
}

func TestKVStore_NotInitialized(t *testing.T) {
	var kv *KVStore
	ctx := context.Background()

	_, _, err := kv.Get(ctx, "k")
	assert.EqualError(t, err, "kv store not initialized")
	assert.EqualError(t, kv.Set(ctx, "k", "v"), "kv store not initialized")
	assert.EqualError(t, kv.Remove(ctx, "k"), "kv store not initialized")
}

func TestKVStore_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	kv := NewKVStore(openTestStore(t))

	_, ok, err := kv.Get(ctx, "draft_1")
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, kv.Set(ctx, "draft_1", `{"to":"a@b.c"}`))
	assert.NoError(t, kv.Set(ctx, "draft_1", `{"to":"x@y.z"}`))

	v, ok, err := kv.Get(ctx, "draft_1")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"to":"x@y.z"}`, v)

	assert.NoError(t, kv.Remove(ctx, "draft_1"))
	assert.NoError(t, kv.Remove(ctx, "draft_1"))
	_, ok, err = kv.Get(ctx, "draft_1")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestKVStore_EmptyKey(t *testing.T) {
	ctx := context.Background()
	kv := NewKVStore(openTestStore(t))

	assert.Error(t, kv.Set(ctx, " ", "v"))
	_, _, err := kv.Get(ctx, "")
	assert.Error(t, err)
}

func TestKVStore_Keys(t *testing.T) {
	ctx := context.Background()
	kv := NewKVStore(openTestStore(t))

	for _, k := range []string{"draft_b", "drafts", "draft_a", "other"} {
		require.NoError(t, kv.Set(ctx, k, "1"))
	}

	keys, err := kv.Keys(ctx, "draft_")
	assert.NoError(t, err)
	assert.Equal(t, []string{"draft_a", "draft_b"}, keys)
}
