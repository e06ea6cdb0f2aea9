package datastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetHandle(t *testing.T) {
	h1 := AssetHandle([]byte("hello"))
	h2 := AssetHandle([]byte("hello"))
	h3 := AssetHandle([]byte("world"))

	assert.Len(t, h1, 64)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)

	handle, ok := AssetHandleFromString(AssetURI(h1))
	assert.True(t, ok)
	assert.Equal(t, h1, handle)

	_, ok = AssetHandleFromString("portrait.png")
	assert.False(t, ok)
}

func TestMemoryAssetStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAssetStore()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrAssetNotFound)

	a := NewAsset("loot", AssetTypeJSON, []byte(`["gold"]`))
	require.NoError(t, store.Put(ctx, a))

	got, err := store.Get(ctx, a.Handle)
	require.NoError(t, err)
	assert.Equal(t, a.Name, got.Name)
	assert.True(t, got.IsJSONArray())
	assert.False(t, got.IsJSONObject())

	// Returned assets are copies
	got.Data[0] = '{'
	again, err := store.Get(ctx, a.Handle)
	require.NoError(t, err)
	assert.Equal(t, `["gold"]`, string(again.Data))

	assert.Equal(t, []string{a.Handle}, store.Handles())
}

func TestAssetTypeValidate(t *testing.T) {
	assert.NoError(t, AssetTypeJSON.Validate())
	assert.NoError(t, AssetTypeImage.Validate())
	assert.Error(t, AssetType("video").Validate())
}
