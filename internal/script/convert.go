package script

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/Shopify/go-lua"
	"github.com/dyluth/gamedata/pkg/datastore"
)

// Values cross the Lua boundary as follows:
//
//	LONG, DOUBLE        number
//	STRING              string
//	BOOLEAN             boolean
//	JSON_ARRAY          sequence table
//	JSON_OBJECT         table with string keys
//	ASSET               "asset://<handle>" string
//	undefined           nil
//
// Going the other way an integral number becomes LONG and a table becomes
// JSON_ARRAY when its keys are exactly 1..n, otherwise JSON_OBJECT.

// Push pushes v onto the Lua stack. A nil or undefined value pushes nil.
func Push(state *lua.State, v datastore.DataValue) error {
	if v == nil || v.IsUndefined() {
		state.PushNil()
		return nil
	}

	switch v.DataType() {
	case datastore.Long:
		n, err := v.AsLong()
		if err != nil {
			return err
		}
		state.PushInteger(int(n))
	case datastore.Double:
		f, err := v.AsDouble()
		if err != nil {
			return err
		}
		state.PushNumber(f)
	case datastore.String:
		s, err := v.AsString()
		if err != nil {
			return err
		}
		state.PushString(s)
	case datastore.Boolean:
		b, err := v.AsBoolean()
		if err != nil {
			return err
		}
		state.PushBoolean(b)
	case datastore.JSONArray:
		raw, err := v.AsJSONArray()
		if err != nil {
			return err
		}
		return pushJSON(state, raw)
	case datastore.JSONObject:
		raw, err := v.AsJSONObject()
		if err != nil {
			return err
		}
		return pushJSON(state, raw)
	case datastore.Asset:
		handle, err := v.AsAsset()
		if err != nil {
			return err
		}
		state.PushString(datastore.AssetURI(handle))
	default:
		return fmt.Errorf("cannot push %s value %q", v.DataType(), v.Name())
	}
	return nil
}

func pushJSON(state *lua.State, raw json.RawMessage) error {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("failed to decode JSON payload: %w", err)
	}
	return pushGo(state, decoded)
}

// pushGo pushes a value decoded by encoding/json.
func pushGo(state *lua.State, value any) error {
	if !state.CheckStack(2) {
		return fmt.Errorf("JSON payload too deeply nested for the Lua stack")
	}

	switch v := value.(type) {
	case nil:
		state.PushNil()
	case bool:
		state.PushBoolean(v)
	case float64:
		state.PushNumber(v)
	case string:
		state.PushString(v)
	case []any:
		state.CreateTable(len(v), 0)
		for i, item := range v {
			if err := pushGo(state, item); err != nil {
				state.Pop(1)
				return err
			}
			state.RawSetInt(-2, i+1)
		}
	case map[string]any:
		state.CreateTable(0, len(v))
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := pushGo(state, v[k]); err != nil {
				state.Pop(1)
				return err
			}
			state.SetField(-2, k)
		}
	default:
		state.PushNil()
	}
	return nil
}

// ToDataValue converts the Lua value at index into a DataValue named name.
// Functions, userdata and threads cannot cross the boundary.
func ToDataValue(state *lua.State, index int, name string, factory *datastore.Factory) (datastore.DataValue, error) {
	switch state.TypeOf(index) {
	case lua.TypeNil, lua.TypeNone:
		return factory.Undefined(name), nil
	case lua.TypeBoolean:
		return factory.Boolean(name, state.ToBoolean(index)), nil
	case lua.TypeNumber:
		f, _ := state.ToNumber(index)
		if n, ok := integral(f); ok {
			return factory.Long(name, n), nil
		}
		return factory.Double(name, f), nil
	case lua.TypeString:
		s, _ := state.ToString(index)
		if handle, ok := datastore.AssetHandleFromString(s); ok {
			return factory.Asset(name, handle)
		}
		return factory.String(name, s), nil
	case lua.TypeTable:
		value, err := tableToGo(state, index, 0)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode table %q: %w", name, err)
		}
		if _, isArray := value.([]any); isArray {
			return factory.JSONArray(name, raw)
		}
		return factory.JSONObject(name, raw)
	default:
		return nil, fmt.Errorf("cannot store a Lua %s in %q", lua.TypeNameOf(state, index), name)
	}
}

// integral reports whether f is a whole number representable as int64.
func integral(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// maxTableDepth bounds recursion through self-referencing tables.
const maxTableDepth = 64

func luaToGo(state *lua.State, index, depth int) (any, error) {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value, nil
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, fmt.Errorf("number %v has no JSON representation", value)
		}
		if n, ok := integral(value); ok {
			return n, nil
		}
		return value, nil
	case lua.TypeBoolean:
		return state.ToBoolean(index), nil
	case lua.TypeTable:
		return tableToGo(state, index, depth+1)
	case lua.TypeNil:
		return nil, nil
	default:
		return nil, fmt.Errorf("cannot encode a Lua %s as JSON", lua.TypeNameOf(state, index))
	}
}

// tableToGo converts a table to []any when its keys are exactly 1..n and to
// map[string]any when every key is a string. Any other key set is rejected.
func tableToGo(state *lua.State, index, depth int) (any, error) {
	if depth > maxTableDepth {
		return nil, fmt.Errorf("table nesting exceeds %d levels", maxTableDepth)
	}
	// Next needs a key and a value; the nested call needs room for its own
	if !state.CheckStack(3) {
		return nil, fmt.Errorf("table nesting too deep for the Lua stack")
	}

	index = state.AbsIndex(index)
	numberKeys, stringKeys, maxIndex := 0, 0, 0
	state.PushNil()
	for state.Next(index) {
		switch state.TypeOf(-2) {
		case lua.TypeString:
			stringKeys++
		case lua.TypeNumber:
			idx, ok := state.ToInteger(-2)
			if f, _ := state.ToNumber(-2); !ok || float64(idx) != f || idx < 1 {
				state.Pop(2)
				return nil, fmt.Errorf("table key %v is not a valid array index", f)
			}
			numberKeys++
			if idx > maxIndex {
				maxIndex = idx
			}
		default:
			keyType := lua.TypeNameOf(state, -2)
			state.Pop(2)
			return nil, fmt.Errorf("table keys of type %s cannot be encoded as JSON", keyType)
		}
		state.Pop(1)
	}

	if numberKeys > 0 && stringKeys > 0 {
		return nil, fmt.Errorf("table mixes array indices and string keys")
	}

	if numberKeys > 0 {
		if maxIndex != numberKeys {
			return nil, fmt.Errorf("sparse table: %d entries but highest index %d", numberKeys, maxIndex)
		}
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			item, err := luaToGo(state, -1, depth)
			state.Pop(1)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			result = append(result, item)
		}
		return result, nil
	}

	output := map[string]any{}
	state.PushNil()
	for state.Next(index) {
		key, _ := state.ToString(-2)
		item, err := luaToGo(state, -1, depth)
		if err != nil {
			state.Pop(2)
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		output[key] = item
		state.Pop(1)
	}
	return output, nil
}

// toStrings reads a sequence of strings, such as a tag list. nil yields nil.
func toStrings(state *lua.State, index int) ([]string, error) {
	if state.IsNoneOrNil(index) {
		return nil, nil
	}
	if state.TypeOf(index) != lua.TypeTable {
		return nil, fmt.Errorf("expected a list of strings, got %s", lua.TypeNameOf(state, index))
	}
	value, err := tableToGo(state, index, 0)
	if err != nil {
		return nil, err
	}
	items, ok := value.([]any)
	if !ok {
		// An empty table decodes as an object
		if m, isMap := value.(map[string]any); isMap && len(m) == 0 {
			return []string{}, nil
		}
		return nil, fmt.Errorf("expected a list of strings")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected a list of strings, found %v", item)
		}
		out = append(out, s)
	}
	return out, nil
}
