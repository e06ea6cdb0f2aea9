package datastore

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/tidwall/gjson"
)

// Factory constructs DataValues. Values that may need to resolve or register
// asset content (ASSET and JSON_ARRAY) capture the factory's AssetManager.
type Factory struct {
	assets AssetManager
}

// NewFactory returns a factory bound to the given asset manager, which may be nil.
func NewFactory(assets AssetManager) *Factory {
	return &Factory{assets: assets}
}

// DefaultFactory has no asset manager: asset values built with it cannot be
// resolved to JSON and JSON arrays cannot be wrapped as assets.
var DefaultFactory = NewFactory(nil)

// Assets returns the factory's asset manager.
func (f *Factory) Assets() AssetManager {
	return f.assets
}

// Long creates a LONG value.
func (f *Factory) Long(name string, v int64, tags ...string) DataValue {
	return longValue{base: newBase(name, tags), v: v}
}

// Double creates a DOUBLE value.
func (f *Factory) Double(name string, v float64, tags ...string) DataValue {
	return doubleValue{base: newBase(name, tags), v: v}
}

// String creates a STRING value.
func (f *Factory) String(name, v string, tags ...string) DataValue {
	return stringValue{base: newBase(name, tags), v: v}
}

// Boolean creates a BOOLEAN value.
func (f *Factory) Boolean(name string, v bool, tags ...string) DataValue {
	return booleanValue{base: newBase(name, tags), v: v}
}

// JSONArray creates a JSON_ARRAY value. raw must be a valid JSON array.
func (f *Factory) JSONArray(name string, raw json.RawMessage, tags ...string) (DataValue, error) {
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsArray() {
		return nil, invalidArgument("value for %q is not a JSON array", name)
	}
	compact, err := compactJSON(string(raw))
	if err != nil {
		return nil, invalidArgument("value for %q is not valid JSON: %v", name, err)
	}
	return jsonArrayValue{base: newBase(name, tags), raw: string(compact), assets: f.assets}, nil
}

// JSONObject creates a JSON_OBJECT value. raw must be a valid JSON object.
func (f *Factory) JSONObject(name string, raw json.RawMessage, tags ...string) (DataValue, error) {
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return nil, invalidArgument("value for %q is not a JSON object", name)
	}
	compact, err := compactJSON(string(raw))
	if err != nil {
		return nil, invalidArgument("value for %q is not valid JSON: %v", name, err)
	}
	return jsonObjectValue{base: newBase(name, tags), raw: string(compact)}, nil
}

// Asset creates an ASSET value referring to handle.
func (f *Factory) Asset(name, handle string, tags ...string) (DataValue, error) {
	if handle == "" {
		return nil, invalidArgument("asset handle for %q cannot be empty", name)
	}
	return assetValue{base: newBase(name, tags), handle: handle, assets: f.assets}, nil
}

// Undefined creates a value with no payload and no declared type.
func (f *Factory) Undefined(name string, tags ...string) DataValue {
	return undefinedValue{base: newBase(name, tags), declared: Undefined}
}

// UndefinedOf creates a value with no payload that declares type t.
func (f *Factory) UndefinedOf(name string, t DataType, tags ...string) DataValue {
	return undefinedValue{base: newBase(name, tags), declared: t}
}

// FromAny maps a Go primitive to the matching DataValue variant:
//   - nil -> UNDEFINED
//   - signed/unsigned integers -> LONG
//   - float32/float64 -> DOUBLE
//   - string -> STRING
//   - bool -> BOOLEAN
//   - []any, slices of primitives -> JSON_ARRAY
//   - map[string]any -> JSON_OBJECT
//   - json.RawMessage -> JSON_ARRAY or JSON_OBJECT depending on content
//   - DataValue -> the same value renamed and retagged
func (f *Factory) FromAny(name string, v any, tags ...string) (DataValue, error) {
	switch x := v.(type) {
	case nil:
		return f.Undefined(name, tags...), nil
	case DataValue:
		return rename(x, name).WithTags(tags), nil
	case int:
		return f.Long(name, int64(x), tags...), nil
	case int8:
		return f.Long(name, int64(x), tags...), nil
	case int16:
		return f.Long(name, int64(x), tags...), nil
	case int32:
		return f.Long(name, int64(x), tags...), nil
	case int64:
		return f.Long(name, x, tags...), nil
	case uint8:
		return f.Long(name, int64(x), tags...), nil
	case uint16:
		return f.Long(name, int64(x), tags...), nil
	case uint32:
		return f.Long(name, int64(x), tags...), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return nil, invalidArgument("value for %q overflows LONG", name)
		}
		return f.Long(name, int64(x), tags...), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, invalidArgument("value for %q overflows LONG", name)
		}
		return f.Long(name, int64(x), tags...), nil
	case float32:
		return f.Double(name, float64(x), tags...), nil
	case float64:
		return f.Double(name, x, tags...), nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return f.Long(name, n, tags...), nil
		}
		d, err := x.Float64()
		if err != nil {
			return nil, invalidArgument("value for %q is not a number: %v", name, err)
		}
		return f.Double(name, d, tags...), nil
	case string:
		return f.String(name, x, tags...), nil
	case bool:
		return f.Boolean(name, x, tags...), nil
	case json.RawMessage:
		r := gjson.ParseBytes(x)
		switch {
		case r.IsArray():
			return f.JSONArray(name, x, tags...)
		case r.IsObject():
			return f.JSONObject(name, x, tags...)
		default:
			return nil, invalidArgument("raw JSON for %q must be an array or object", name)
		}
	case map[string]any:
		raw, err := json.Marshal(x)
		if err != nil {
			return nil, invalidArgument("value for %q cannot be encoded as JSON: %v", name, err)
		}
		return f.JSONObject(name, raw, tags...)
	default:
		raw, err := json.Marshal(x)
		if err != nil {
			return nil, invalidArgument("unsupported value type %T for %q", v, name)
		}
		if gjson.ParseBytes(raw).IsArray() {
			return f.JSONArray(name, raw, tags...)
		}
		return nil, invalidArgument("unsupported value type %T for %q", v, name)
	}
}

// rename returns a copy of v carrying a different name.
func rename(v DataValue, name string) DataValue {
	if v.Name() == name {
		return v
	}
	b := newBase(name, v.Tags())
	switch x := v.(type) {
	case longValue:
		return longValue{base: b, v: x.v}
	case doubleValue:
		return doubleValue{base: b, v: x.v}
	case stringValue:
		return stringValue{base: b, v: x.v}
	case booleanValue:
		return booleanValue{base: b, v: x.v}
	case jsonArrayValue:
		return jsonArrayValue{base: b, raw: x.raw, assets: x.assets}
	case jsonObjectValue:
		return jsonObjectValue{base: b, raw: x.raw}
	case assetValue:
		return assetValue{base: b, handle: x.handle, assets: x.assets}
	case undefinedValue:
		return undefinedValue{base: b, declared: x.declared}
	default:
		panic(fmt.Sprintf("datastore: unknown DataValue variant %T", v))
	}
}

// withAssets rebinds asset-aware values to a different asset manager.
func withAssets(v DataValue, assets AssetManager) DataValue {
	if assets == nil {
		return v
	}
	switch x := v.(type) {
	case jsonArrayValue:
		x.assets = assets
		return x
	case assetValue:
		x.assets = assets
		return x
	default:
		return v
	}
}

// Package-level constructors using DefaultFactory.

// NewLong creates a LONG value.
func NewLong(name string, v int64, tags ...string) DataValue { return DefaultFactory.Long(name, v, tags...) }

// NewDouble creates a DOUBLE value.
func NewDouble(name string, v float64, tags ...string) DataValue {
	return DefaultFactory.Double(name, v, tags...)
}

// NewString creates a STRING value.
func NewString(name, v string, tags ...string) DataValue {
	return DefaultFactory.String(name, v, tags...)
}

// NewBoolean creates a BOOLEAN value.
func NewBoolean(name string, v bool, tags ...string) DataValue {
	return DefaultFactory.Boolean(name, v, tags...)
}

// NewUndefined creates an undefined value declaring type t.
func NewUndefined(name string, t DataType, tags ...string) DataValue {
	return DefaultFactory.UndefinedOf(name, t, tags...)
}
