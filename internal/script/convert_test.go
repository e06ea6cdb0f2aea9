package script

import (
	"encoding/json"
	"testing"

	"github.com/Shopify/go-lua"
	"github.com/dyluth/gamedata/pkg/datastore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTrip pushes v and reads it back from the top of the stack.
func roundTrip(t *testing.T, v datastore.DataValue) datastore.DataValue {
	t.Helper()
	state := lua.NewState()
	require.NoError(t, Push(state, v))
	require.Equal(t, 1, state.Top())
	back, err := ToDataValue(state, -1, v.Name(), datastore.DefaultFactory)
	require.NoError(t, err)
	return back
}

func TestPushRoundTrip(t *testing.T) {
	arr, err := datastore.DefaultFactory.JSONArray("loot", json.RawMessage(`["gold",3,true]`))
	require.NoError(t, err)
	obj, err := datastore.DefaultFactory.JSONObject("stats", json.RawMessage(`{"nested":{"x":1.5},"str":12,"tags":["a","b"]}`))
	require.NoError(t, err)

	tests := []struct {
		name  string
		value datastore.DataValue
	}{
		{"long", datastore.NewLong("hp", 42)},
		{"negative long", datastore.NewLong("hp", -7)},
		{"double", datastore.NewDouble("speed", 1.25)},
		{"string", datastore.NewString("name", "Snik")},
		{"boolean", datastore.NewBoolean("hidden", true)},
		{"json array", arr},
		{"json object", obj},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			back := roundTrip(t, tt.value)
			assert.True(t, datastore.Equal(tt.value, back), "got %s, want %s", back, tt.value)
		})
	}
}

func TestPushSpecialValues(t *testing.T) {
	t.Run("undefined becomes nil", func(t *testing.T) {
		state := lua.NewState()
		require.NoError(t, Push(state, datastore.NewUndefined("hp", datastore.Long)))
		assert.Equal(t, lua.TypeNil, state.TypeOf(-1))

		back, err := ToDataValue(state, -1, "hp", datastore.DefaultFactory)
		require.NoError(t, err)
		assert.True(t, back.IsUndefined())
	})

	t.Run("asset becomes a uri string", func(t *testing.T) {
		state := lua.NewState()
		asset, err := datastore.DefaultFactory.Asset("portrait", "abc")
		require.NoError(t, err)
		require.NoError(t, Push(state, asset))
		s, ok := state.ToString(-1)
		require.True(t, ok)
		assert.Equal(t, "asset://abc", s)
	})

	t.Run("asset uri string comes back as asset", func(t *testing.T) {
		asset, err := datastore.DefaultFactory.Asset("portrait", "abc")
		require.NoError(t, err)

		back := roundTrip(t, asset)
		require.Equal(t, datastore.Asset, back.DataType())
		handle, err := back.AsAsset()
		require.NoError(t, err)
		assert.Equal(t, "abc", handle)
	})

	t.Run("plain string stays a string", func(t *testing.T) {
		back := roundTrip(t, datastore.NewString("name", "asset:/not-a-uri"))
		assert.Equal(t, datastore.String, back.DataType())
	})

	t.Run("whole double comes back as long", func(t *testing.T) {
		back := roundTrip(t, datastore.NewDouble("x", 3))
		assert.Equal(t, datastore.Long, back.DataType())
	})
}

func TestToDataValueFromScript(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   datastore.DataType
		json   string
	}{
		{"sequence", `return {1, 2, "three"}`, datastore.JSONArray, `[1,2,"three"]`},
		{"record", `return {a = 1, b = {c = true}}`, datastore.JSONObject, `{"a":1,"b":{"c":true}}`},
		{"empty table", `return {}`, datastore.JSONObject, `{}`},
		{"nested sequence", `return {{1, 2}, {name = "x"}}`, datastore.JSONArray, `[[1,2],{"name":"x"}]`},
		{"float", `return 2.5`, datastore.Double, ""},
		{"integer", `return 10`, datastore.Long, ""},
		{"string", `return "x"`, datastore.String, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := lua.NewState()
			lua.OpenLibraries(state)
			require.NoError(t, lua.DoString(state, tt.source))

			v, err := ToDataValue(state, -1, "v", datastore.DefaultFactory)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.DataType())
			switch tt.want {
			case datastore.JSONArray:
				raw, err := v.AsJSONArray()
				require.NoError(t, err)
				assert.JSONEq(t, tt.json, string(raw))
			case datastore.JSONObject:
				raw, err := v.AsJSONObject()
				require.NoError(t, err)
				assert.JSONEq(t, tt.json, string(raw))
			}
		})
	}
}

func TestToDataValueRejects(t *testing.T) {
	tests := []struct {
		name          string
		source        string
		errorContains string
	}{
		{"function", `return function() end`, "cannot store a Lua function"},
		{"cyclic table", `local t = {} t.self = t return t`, "nesting exceeds"},
		{"sparse table", `return {[1] = "a", [3] = "c"}`, "sparse table"},
		{"table with nil hole", `return {1, 2, nil, 4}`, "sparse table"},
		{"mixed table", `return {10, 20, name = "x"}`, "mixes array indices and string keys"},
		{"zero index", `return {[0] = "a"}`, "not a valid array index"},
		{"fractional index", `return {[1.5] = "a"}`, "not a valid array index"},
		{"boolean key", `return {[true] = "a"}`, "keys of type boolean"},
		{"nested function", `return {f = print}`, `field "f"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := lua.NewState()
			lua.OpenLibraries(state)
			require.NoError(t, lua.DoString(state, tt.source))

			_, err := ToDataValue(state, -1, "v", datastore.DefaultFactory)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestToDataValueDeepNesting(t *testing.T) {
	state := lua.NewState()
	lua.OpenLibraries(state)
	require.NoError(t, lua.DoString(state, `
		local root = {}
		local t = root
		for i = 1, 40 do
			t.child = {}
			t = t.child
		end
		t.leaf = true
		return root
	`))

	v, err := ToDataValue(state, -1, "deep", datastore.DefaultFactory)
	require.NoError(t, err)
	assert.Equal(t, datastore.JSONObject, v.DataType())

	state.Pop(1)
	require.NoError(t, Push(state, v))
	assert.Equal(t, lua.TypeTable, state.TypeOf(-1))
}
