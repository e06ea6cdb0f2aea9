package datastore

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T) (*MemoryDataStore, context.Context) {
	t.Helper()
	ctx := context.Background()
	store := NewMemoryDataStore()
	require.NoError(t, store.CreateNamespaceWithTypes(ctx, "token", "goblin1", map[string]DataType{
		"hp":       Long,
		"notes":    JSONObject,
		"portrait": Asset,
	}))
	_, err := store.SetPropertyWithTags(ctx, "token", "goblin1", NewLong("hp", 10), []string{"wounded"})
	require.NoError(t, err)
	_, err = store.SetDoubleProperty(ctx, "token", "goblin1", "speed", 1.5)
	require.NoError(t, err)
	_, err = store.SetBooleanProperty(ctx, "token", "goblin1", "hidden", true)
	require.NoError(t, err)
	_, err = store.SetStringProperty(ctx, "token", "goblin1", "name", "Snik")
	require.NoError(t, err)
	_, err = store.SetJSONArrayProperty(ctx, "token", "goblin1", "loot", json.RawMessage(`["gold", 3]`))
	require.NoError(t, err)

	require.NoError(t, store.CreateNamespace(ctx, "campaign", "main"))
	_, err = store.SetAssetProperty(ctx, "campaign", "main", "map", "abc123")
	require.NoError(t, err)
	require.NoError(t, store.CreateNamespaceWithInitialData(ctx, "campaign", "main", []DataValue{NewUndefined("mystery", Undefined)}))
	return store, ctx
}

func TestToDtoCoversEveryValue(t *testing.T) {
	store, ctx := seedStore(t)

	dto, err := store.ToDto(ctx, "token", "goblin1")
	require.NoError(t, err)
	require.NoError(t, dto.Validate())
	assert.Equal(t, "token", dto.Type)
	assert.Equal(t, "goblin1", dto.Namespace)

	byName := make(map[string]*GameDataValueDto)
	for _, v := range dto.Values {
		byName[v.Name] = v
	}
	require.Len(t, byName, 7)
	require.NotNil(t, byName["hp"].LongValue)
	assert.Equal(t, int64(10), *byName["hp"].LongValue)
	assert.Equal(t, []string{"wounded"}, byName["hp"].Tags)
	assert.NotNil(t, byName["notes"].UndefinedJSONObjectValue)
	assert.NotNil(t, byName["portrait"].UndefinedAssetValue)
	require.NotNil(t, byName["loot"].JSONValue)
	assert.Equal(t, `["gold",3]`, *byName["loot"].JSONValue)

	_, err = store.ToDto(ctx, "token", "nobody")
	assert.ErrorIs(t, err, ErrNamespaceNotFound)
}

func TestDtoJSONEncoding(t *testing.T) {
	n := int64(4)
	dto := &GameDataDto{
		Type:      "token",
		Namespace: "goblin1",
		Values: []*GameDataValueDto{
			{Name: "hp", LongValue: &n},
			{Name: "mp", UndefinedLongValue: &Empty{}},
		},
	}
	encoded, err := json.Marshal(dto)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "token",
		"namespace": "goblin1",
		"values": [
			{"name": "hp", "tags": null, "longValue": 4},
			{"name": "mp", "tags": null, "undefinedLongValue": {}}
		]
	}`, string(encoded))

	var decoded GameDataDto
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	require.NoError(t, decoded.Validate())
	assert.NotNil(t, decoded.Values[1].UndefinedLongValue)
}

func TestGameValueToDtoRejectsNonFiniteDoubles(t *testing.T) {
	_, err := GameValueToDto(NewDouble("speed", math.NaN()))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	dto, err := GameValueToDto(NewDouble("speed", 2.5))
	require.NoError(t, err)
	_, err = json.Marshal(dto)
	assert.NoError(t, err)
}

func TestDtoValidate(t *testing.T) {
	n := int64(1)
	s := "x"

	assert.ErrorIs(t, (&GameDataValueDto{Name: "a"}).Validate(), ErrInvalidArgument)
	assert.ErrorIs(t, (&GameDataValueDto{Name: "a", LongValue: &n, StringValue: &s}).Validate(), ErrInvalidArgument)
	assert.ErrorIs(t, (&GameDataValueDto{LongValue: &n}).Validate(), ErrInvalidArgument)
	assert.NoError(t, (&GameDataValueDto{Name: "a", UndefinedValue: &Empty{}}).Validate())

	dup := &GameDataDto{Type: "token", Namespace: "a", Values: []*GameDataValueDto{
		{Name: "hp", LongValue: &n},
		{Name: "hp", LongValue: &n},
	}}
	assert.ErrorIs(t, dup.Validate(), ErrInvalidArgument)

	bad := "not json"
	_, err := GameValueFromDto(DefaultFactory, &GameDataValueDto{Name: "x", JSONValue: &bad})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDtoRoundTrip(t *testing.T) {
	source, ctx := seedStore(t)
	dtos, err := source.ToDtos(ctx)
	require.NoError(t, err)
	require.Len(t, dtos, 2)
	assert.Equal(t, "campaign", dtos[0].Type)

	// Travel through JSON as a replication layer would
	encoded, err := json.Marshal(dtos)
	require.NoError(t, err)
	var received []*GameDataDto
	require.NoError(t, json.Unmarshal(encoded, &received))

	target := NewMemoryDataStore()
	for _, dto := range received {
		require.NoError(t, target.ImportDto(ctx, dto))
	}

	for _, key := range [][2]string{{"token", "goblin1"}, {"campaign", "main"}} {
		want, err := source.GetPropertyDataTypeMap(ctx, key[0], key[1])
		require.NoError(t, err)
		got, err := target.GetPropertyDataTypeMap(ctx, key[0], key[1])
		require.NoError(t, err)
		assert.Equal(t, want, got, "types of %s/%s", key[0], key[1])

		wantValues, _ := source.GetProperties(ctx, key[0], key[1])
		gotValues, _ := target.GetProperties(ctx, key[0], key[1])
		require.Len(t, gotValues, len(wantValues))
		for i := range wantValues {
			assert.True(t, Equal(wantValues[i], gotValues[i]), "%s differs", wantValues[i].Name())
		}
	}

	// Undefined values keep their declared type
	dt, _ := target.GetPropertyDataType(ctx, "token", "goblin1", "notes")
	assert.Equal(t, JSONObject, dt)
	defined, _ := target.IsPropertyDefined(ctx, "token", "goblin1", "notes")
	assert.False(t, defined)

	wounded, err := target.GetPropertyNamesWithTag(ctx, "token", "goblin1", "wounded")
	require.NoError(t, err)
	assert.Equal(t, []string{"hp"}, wounded)
}

func TestImportDtoDoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDataStore()
	require.NoError(t, store.CreateNamespace(ctx, "token", "goblin1"))
	_, err := store.SetLongProperty(ctx, "token", "goblin1", "hp", 3)
	require.NoError(t, err)

	n := int64(99)
	require.NoError(t, store.ImportDto(ctx, &GameDataDto{Type: "token", Namespace: "goblin1", Values: []*GameDataValueDto{
		{Name: "hp", LongValue: &n},
		{Name: "ac", LongValue: &n},
	}}))

	hp, _ := store.GetProperty(ctx, "token", "goblin1", "hp")
	v, _ := hp.AsLong()
	assert.Equal(t, int64(3), v)
	ac, _ := store.GetProperty(ctx, "token", "goblin1", "ac")
	v, _ = ac.AsLong()
	assert.Equal(t, int64(99), v)

	assert.ErrorIs(t, store.ImportDto(ctx, nil), ErrInvalidArgument)
}

func TestSnapshot(t *testing.T) {
	source, ctx := seedStore(t)

	snap, err := NewSnapshot(ctx, source)
	require.NoError(t, err)
	require.NoError(t, snap.Validate())
	assert.Len(t, snap.Data, 2)
	assert.Equal(t, []string{"abc123"}, snap.Assets)
	assert.NotZero(t, snap.CreatedAtMs)

	target := NewMemoryDataStore()
	require.NoError(t, snap.Restore(ctx, target))
	types, _ := target.GetPropertyTypes(ctx)
	assert.Equal(t, []string{"campaign", "token"}, types)

	snap.ID = "not-a-uuid"
	assert.ErrorIs(t, snap.Validate(), ErrInvalidArgument)
}
