package assets

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/gamedata/pkg/datastore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a store connected to a miniredis instance
func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := NewStore(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, mr
}

func TestNewStore(t *testing.T) {
	t.Run("creates store successfully", func(t *testing.T) {
		store, _ := setupTestStore(t)
		assert.NotNil(t, store)
		assert.NoError(t, store.Ping(context.Background()))
	})

	t.Run("rejects empty instance name", func(t *testing.T) {
		_, err := NewStore(&redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "instance name cannot be empty")
	})
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "gamedata:inst:asset:abc", AssetKey("inst", "abc"))
	assert.Equal(t, "gamedata:inst:assets", AssetIndexKey("inst"))
	assert.Equal(t, "gamedata:inst:asset_events", AssetEventsChannel("inst"))
}

func TestPutGet(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	t.Run("round trips an asset", func(t *testing.T) {
		a := datastore.NewAsset("loot", datastore.AssetTypeJSON, []byte(`["gold"]`))
		require.NoError(t, store.Put(ctx, a))

		assert.True(t, mr.Exists(AssetKey("test-instance", a.Handle)))

		got, err := store.Get(ctx, a.Handle)
		require.NoError(t, err)
		assert.Equal(t, a, got)
		assert.True(t, got.IsJSONArray())

		// Idempotent
		require.NoError(t, store.Put(ctx, a))
		handles, err := store.Handles(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{a.Handle}, handles)
	})

	t.Run("keeps binary content intact", func(t *testing.T) {
		a := datastore.NewAsset("portrait", datastore.AssetTypeImage, []byte{0x89, 'P', 'N', 'G', 0x00, 0xff})
		require.NoError(t, store.Put(ctx, a))
		got, err := store.Get(ctx, a.Handle)
		require.NoError(t, err)
		assert.Equal(t, a.Data, got.Data)
	})

	t.Run("missing asset", func(t *testing.T) {
		_, err := store.Get(ctx, "nope")
		assert.ErrorIs(t, err, datastore.ErrAssetNotFound)

		ok, err := store.Exists(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("rejects mismatched handle", func(t *testing.T) {
		a := &datastore.AssetContent{Handle: "abc", Name: "x", Type: datastore.AssetTypeText, Data: []byte("x")}
		err := store.Put(ctx, a)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "does not match content hash")
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		a := datastore.NewAsset("x", datastore.AssetType("video"), []byte("x"))
		assert.Error(t, store.Put(ctx, a))
	})

	t.Run("rejects corrupt hash", func(t *testing.T) {
		mr.HSet(AssetKey("test-instance", "broken"), "name", "x")
		_, err := store.Get(ctx, "broken")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "missing field")
	})
}

func TestMissingAndDelete(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	a := datastore.NewAsset("a", datastore.AssetTypeText, []byte("alpha"))
	b := datastore.NewAsset("b", datastore.AssetTypeText, []byte("beta"))
	require.NoError(t, store.Put(ctx, a))
	require.NoError(t, store.Put(ctx, b))

	missing, err := store.Missing(ctx, []string{a.Handle, "ghost", b.Handle})
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost"}, missing)

	require.NoError(t, store.Delete(ctx, a.Handle))
	require.NoError(t, store.Delete(ctx, a.Handle))

	missing, err = store.Missing(ctx, []string{a.Handle, b.Handle})
	require.NoError(t, err)
	assert.Equal(t, []string{a.Handle}, missing)

	empty, err := store.Missing(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSubscribe(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handles, err := store.Subscribe(ctx)
	require.NoError(t, err)

	a := datastore.NewAsset("note", datastore.AssetTypeText, []byte("hello"))
	require.NoError(t, store.Put(context.Background(), a))

	select {
	case h := <-handles:
		assert.Equal(t, a.Handle, h)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for asset event")
	}

	cancel()
	select {
	case _, ok := <-handles:
		if ok {
			// Drain anything buffered before close
			for range handles {
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription channel not closed after cancel")
	}
}

// The Redis store plugs into the in-memory data store as its asset manager.
func TestStoreAsAssetManager(t *testing.T) {
	assets, _ := setupTestStore(t)
	ctx := context.Background()
	store := datastore.NewMemoryDataStore(datastore.WithAssetManager(assets))
	require.NoError(t, store.CreateNamespaceWithTypes(ctx, "campaign", "main", map[string]datastore.DataType{"loot": datastore.Asset}))

	v, err := store.SetJSONArrayProperty(ctx, "campaign", "main", "loot", json.RawMessage(`["gold",3]`))
	require.NoError(t, err)
	handle, err := v.AsAsset()
	require.NoError(t, err)

	stored, err := assets.Get(ctx, handle)
	require.NoError(t, err)
	assert.JSONEq(t, `["gold",3]`, string(stored.Data))

	raw, err := v.AsJSONArray()
	require.NoError(t, err)
	assert.JSONEq(t, `["gold",3]`, string(raw))
}

func TestValidateInstanceName(t *testing.T) {
	tests := []struct {
		name          string
		instance      string
		errorContains string
	}{
		{name: "single character", instance: "a"},
		{name: "hyphenated", instance: "table-1"},
		{name: "empty", instance: "", errorContains: "cannot be empty"},
		{name: "uppercase", instance: "Table", errorContains: "invalid instance name"},
		{name: "leading hyphen", instance: "-table", errorContains: "invalid instance name"},
		{name: "colon breaks key pattern", instance: "a:b", errorContains: "invalid instance name"},
		{name: "too long", instance: strings.Repeat("a", MaxInstanceNameLength+1), errorContains: "too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInstanceName(tt.instance)
			if tt.errorContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}
