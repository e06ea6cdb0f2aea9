package datastore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// DataValue is an immutable, named, typed and tagged unit of stored data.
// The set of implementations is closed: one per DataType plus an undefined
// variant that remembers the type it was declared with.
//
// Accessors fail with CodeUndefined when the value has no payload and with
// CodeInvalidConversion when the payload cannot be represented as the
// requested type.
type DataValue interface {
	Name() string
	DataType() DataType
	Tags() []string
	HasTag(tag string) bool
	IsUndefined() bool

	AsLong() (int64, error)
	AsDouble() (float64, error)
	AsString() (string, error)
	AsBoolean() (bool, error)
	AsJSONArray() (json.RawMessage, error)
	AsJSONObject() (json.RawMessage, error)
	AsAsset() (string, error)

	// CanBeConvertedTo reports whether this value can be coerced into t.
	// For ASSET values targeting a JSON type this resolves the asset and may block.
	CanBeConvertedTo(t DataType) bool

	// WithTags returns a copy of the value carrying exactly the given tags.
	WithTags(tags []string) DataValue

	String() string

	sealed()
}

// base holds the fields every variant shares. tags is sorted and deduplicated
// and never mutated after construction.
type base struct {
	name string
	tags []string
}

func newBase(name string, tags []string) base {
	return base{name: name, tags: normalizeTags(tags)}
}

func (b base) Name() string { return b.name }

func (b base) Tags() []string {
	out := make([]string, len(b.tags))
	copy(out, b.tags)
	return out
}

func (b base) HasTag(tag string) bool {
	i := sort.SearchStrings(b.tags, tag)
	return i < len(b.tags) && b.tags[i] == tag
}

func (b base) sealed() {}

func (b base) tagSuffix() string {
	if len(b.tags) == 0 {
		return ""
	}
	return " [" + strings.Join(b.tags, ",") + "]"
}

// normalizeTags returns a sorted copy of tags with duplicates and empty strings removed.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Long

type longValue struct {
	base
	v int64
}

func (l longValue) DataType() DataType         { return Long }
func (l longValue) IsUndefined() bool          { return false }
func (l longValue) AsLong() (int64, error)     { return l.v, nil }
func (l longValue) AsDouble() (float64, error) { return float64(l.v), nil }
func (l longValue) AsString() (string, error)  { return strconv.FormatInt(l.v, 10), nil }
func (l longValue) AsBoolean() (bool, error)   { return l.v != 0, nil }
func (l longValue) AsJSONArray() (json.RawMessage, error) {
	return wrapScalar(strconv.FormatInt(l.v, 10))
}
func (l longValue) AsJSONObject() (json.RawMessage, error) {
	return nil, conversionError(l.name, Long, JSONObject)
}
func (l longValue) AsAsset() (string, error) { return "", conversionError(l.name, Long, Asset) }

func (l longValue) CanBeConvertedTo(t DataType) bool {
	switch t {
	case Long, Double, String, Boolean, JSONArray:
		return true
	default:
		return false
	}
}

func (l longValue) WithTags(tags []string) DataValue {
	return longValue{base: newBase(l.name, tags), v: l.v}
}

func (l longValue) String() string {
	return fmt.Sprintf("%s:%s=%d%s", l.name, Long, l.v, l.tagSuffix())
}

// Double

type doubleValue struct {
	base
	v float64
}

func (d doubleValue) DataType() DataType { return Double }
func (d doubleValue) IsUndefined() bool  { return false }

// AsLong succeeds only for integral values that fit in an int64.
func (d doubleValue) AsLong() (int64, error) {
	if math.IsNaN(d.v) || math.IsInf(d.v, 0) || d.v != math.Trunc(d.v) {
		return 0, conversionError(d.name, Double, Long)
	}
	if d.v < math.MinInt64 || d.v >= math.MaxInt64 {
		return 0, conversionError(d.name, Double, Long)
	}
	return int64(d.v), nil
}

func (d doubleValue) AsDouble() (float64, error) { return d.v, nil }
func (d doubleValue) AsString() (string, error)  { return formatDouble(d.v), nil }
func (d doubleValue) AsBoolean() (bool, error)   { return d.v != 0, nil }

func (d doubleValue) AsJSONArray() (json.RawMessage, error) {
	if math.IsNaN(d.v) || math.IsInf(d.v, 0) {
		return nil, conversionError(d.name, Double, JSONArray)
	}
	return wrapScalar(formatDouble(d.v))
}

func (d doubleValue) AsJSONObject() (json.RawMessage, error) {
	return nil, conversionError(d.name, Double, JSONObject)
}
func (d doubleValue) AsAsset() (string, error) { return "", conversionError(d.name, Double, Asset) }

func (d doubleValue) CanBeConvertedTo(t DataType) bool {
	switch t {
	case Double, String, Boolean:
		return true
	case Long:
		_, err := d.AsLong()
		return err == nil
	case JSONArray:
		return !math.IsNaN(d.v) && !math.IsInf(d.v, 0)
	default:
		return false
	}
}

func (d doubleValue) WithTags(tags []string) DataValue {
	return doubleValue{base: newBase(d.name, tags), v: d.v}
}

func (d doubleValue) String() string {
	return fmt.Sprintf("%s:%s=%s%s", d.name, Double, formatDouble(d.v), d.tagSuffix())
}

func formatDouble(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// String

type stringValue struct {
	base
	v string
}

func (s stringValue) DataType() DataType { return String }
func (s stringValue) IsUndefined() bool  { return false }

// AsLong accepts integer text, or float text with an integral value.
func (s stringValue) AsLong() (int64, error) {
	text := strings.TrimSpace(s.v)
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, conversionErrorWithCause(s.name, String, Long, err)
	}
	n, err := doubleValue{base: s.base, v: f}.AsLong()
	if err != nil {
		return 0, conversionError(s.name, String, Long)
	}
	return n, nil
}

func (s stringValue) AsDouble() (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s.v), 64)
	if err != nil {
		return 0, conversionErrorWithCause(s.name, String, Double, err)
	}
	return f, nil
}

func (s stringValue) AsString() (string, error) { return s.v, nil }

func (s stringValue) AsBoolean() (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s.v)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, conversionError(s.name, String, Boolean)
	}
}

func (s stringValue) AsJSONArray() (json.RawMessage, error) {
	if !gjson.Valid(s.v) || !gjson.Parse(s.v).IsArray() {
		return nil, conversionError(s.name, String, JSONArray)
	}
	return compactJSON(s.v)
}

func (s stringValue) AsJSONObject() (json.RawMessage, error) {
	if !gjson.Valid(s.v) || !gjson.Parse(s.v).IsObject() {
		return nil, conversionError(s.name, String, JSONObject)
	}
	return compactJSON(s.v)
}

func (s stringValue) AsAsset() (string, error) {
	handle, ok := AssetHandleFromString(s.v)
	if !ok {
		return "", conversionError(s.name, String, Asset)
	}
	return handle, nil
}

func (s stringValue) CanBeConvertedTo(t DataType) bool {
	var err error
	switch t {
	case String:
		return true
	case Long:
		_, err = s.AsLong()
	case Double:
		_, err = s.AsDouble()
	case Boolean:
		_, err = s.AsBoolean()
	case JSONArray:
		_, err = s.AsJSONArray()
	case JSONObject:
		_, err = s.AsJSONObject()
	case Asset:
		_, err = s.AsAsset()
	default:
		return false
	}
	return err == nil
}

func (s stringValue) WithTags(tags []string) DataValue {
	return stringValue{base: newBase(s.name, tags), v: s.v}
}

func (s stringValue) String() string {
	return fmt.Sprintf("%s:%s=%q%s", s.name, String, s.v, s.tagSuffix())
}

// Boolean

type booleanValue struct {
	base
	v bool
}

func (b booleanValue) DataType() DataType { return Boolean }
func (b booleanValue) IsUndefined() bool  { return false }

func (b booleanValue) AsLong() (int64, error) {
	if b.v {
		return 1, nil
	}
	return 0, nil
}

func (b booleanValue) AsDouble() (float64, error) {
	if b.v {
		return 1, nil
	}
	return 0, nil
}

func (b booleanValue) AsString() (string, error) { return strconv.FormatBool(b.v), nil }
func (b booleanValue) AsBoolean() (bool, error)  { return b.v, nil }
func (b booleanValue) AsJSONArray() (json.RawMessage, error) {
	return wrapScalar(strconv.FormatBool(b.v))
}
func (b booleanValue) AsJSONObject() (json.RawMessage, error) {
	return nil, conversionError(b.name, Boolean, JSONObject)
}
func (b booleanValue) AsAsset() (string, error) { return "", conversionError(b.name, Boolean, Asset) }

func (b booleanValue) CanBeConvertedTo(t DataType) bool {
	switch t {
	case Long, Double, String, Boolean, JSONArray:
		return true
	default:
		return false
	}
}

func (b booleanValue) WithTags(tags []string) DataValue {
	return booleanValue{base: newBase(b.name, tags), v: b.v}
}

func (b booleanValue) String() string {
	return fmt.Sprintf("%s:%s=%t%s", b.name, Boolean, b.v, b.tagSuffix())
}

// JSON array

type jsonArrayValue struct {
	base
	raw    string // compact JSON
	assets AssetManager
}

func (j jsonArrayValue) DataType() DataType { return JSONArray }
func (j jsonArrayValue) IsUndefined() bool  { return false }
func (j jsonArrayValue) AsLong() (int64, error) {
	return 0, conversionError(j.name, JSONArray, Long)
}
func (j jsonArrayValue) AsDouble() (float64, error) {
	return 0, conversionError(j.name, JSONArray, Double)
}
func (j jsonArrayValue) AsString() (string, error) {
	return "", conversionError(j.name, JSONArray, String)
}
func (j jsonArrayValue) AsBoolean() (bool, error) {
	return false, conversionError(j.name, JSONArray, Boolean)
}
func (j jsonArrayValue) AsJSONArray() (json.RawMessage, error) {
	return json.RawMessage(j.raw), nil
}
func (j jsonArrayValue) AsJSONObject() (json.RawMessage, error) {
	return nil, conversionError(j.name, JSONArray, JSONObject)
}

// AsAsset wraps the array as a JSON asset, registers it with the value's
// asset manager and returns the new handle.
func (j jsonArrayValue) AsAsset() (string, error) {
	return j.toAsset(context.Background(), j.assets)
}

func (j jsonArrayValue) toAsset(ctx context.Context, assets AssetManager) (string, error) {
	if assets == nil {
		return "", conversionError(j.name, JSONArray, Asset)
	}
	a := NewAsset(j.name, AssetTypeJSON, []byte(j.raw))
	if err := assets.Put(ctx, a); err != nil {
		return "", conversionErrorWithCause(j.name, JSONArray, Asset, err)
	}
	return a.Handle, nil
}

func (j jsonArrayValue) CanBeConvertedTo(t DataType) bool {
	switch t {
	case JSONArray:
		return true
	case Asset:
		return j.assets != nil
	default:
		return false
	}
}

func (j jsonArrayValue) WithTags(tags []string) DataValue {
	return jsonArrayValue{base: newBase(j.name, tags), raw: j.raw, assets: j.assets}
}

func (j jsonArrayValue) String() string {
	return fmt.Sprintf("%s:%s=%s%s", j.name, JSONArray, j.raw, j.tagSuffix())
}

// JSON object

type jsonObjectValue struct {
	base
	raw string // compact JSON
}

func (j jsonObjectValue) DataType() DataType { return JSONObject }
func (j jsonObjectValue) IsUndefined() bool  { return false }
func (j jsonObjectValue) AsLong() (int64, error) {
	return 0, conversionError(j.name, JSONObject, Long)
}
func (j jsonObjectValue) AsDouble() (float64, error) {
	return 0, conversionError(j.name, JSONObject, Double)
}
func (j jsonObjectValue) AsString() (string, error) {
	return "", conversionError(j.name, JSONObject, String)
}
func (j jsonObjectValue) AsBoolean() (bool, error) {
	return false, conversionError(j.name, JSONObject, Boolean)
}
func (j jsonObjectValue) AsJSONArray() (json.RawMessage, error) {
	return nil, conversionError(j.name, JSONObject, JSONArray)
}
func (j jsonObjectValue) AsJSONObject() (json.RawMessage, error) {
	return json.RawMessage(j.raw), nil
}
func (j jsonObjectValue) AsAsset() (string, error) {
	return "", conversionError(j.name, JSONObject, Asset)
}

func (j jsonObjectValue) CanBeConvertedTo(t DataType) bool { return t == JSONObject }

func (j jsonObjectValue) WithTags(tags []string) DataValue {
	return jsonObjectValue{base: newBase(j.name, tags), raw: j.raw}
}

func (j jsonObjectValue) String() string {
	return fmt.Sprintf("%s:%s=%s%s", j.name, JSONObject, j.raw, j.tagSuffix())
}

// Asset

type assetValue struct {
	base
	handle string
	assets AssetManager
}

func (a assetValue) DataType() DataType { return Asset }
func (a assetValue) IsUndefined() bool  { return false }
func (a assetValue) AsLong() (int64, error) {
	return 0, conversionError(a.name, Asset, Long)
}
func (a assetValue) AsDouble() (float64, error) {
	return 0, conversionError(a.name, Asset, Double)
}

// AsString renders the asset as its handle.
func (a assetValue) AsString() (string, error) { return a.handle, nil }
func (a assetValue) AsBoolean() (bool, error) {
	return false, conversionError(a.name, Asset, Boolean)
}

// AsJSONArray resolves the asset and returns its content when it is a JSON array.
func (a assetValue) AsJSONArray() (json.RawMessage, error) {
	return a.resolveJSON(context.Background(), a.assets, JSONArray)
}

// AsJSONObject resolves the asset and returns its content when it is a JSON object.
func (a assetValue) AsJSONObject() (json.RawMessage, error) {
	return a.resolveJSON(context.Background(), a.assets, JSONObject)
}

func (a assetValue) AsAsset() (string, error) { return a.handle, nil }

func (a assetValue) resolveJSON(ctx context.Context, assets AssetManager, t DataType) (json.RawMessage, error) {
	if assets == nil {
		return nil, conversionError(a.name, Asset, t)
	}
	resolved, err := assets.Get(ctx, a.handle)
	if err != nil {
		return nil, conversionErrorWithCause(a.name, Asset, t, err)
	}
	switch {
	case t == JSONArray && resolved.IsJSONArray(), t == JSONObject && resolved.IsJSONObject():
		return compactJSON(string(resolved.Data))
	default:
		return nil, conversionError(a.name, Asset, t)
	}
}

func (a assetValue) CanBeConvertedTo(t DataType) bool {
	switch t {
	case Asset, String:
		return true
	case JSONArray, JSONObject:
		_, err := a.resolveJSON(context.Background(), a.assets, t)
		return err == nil
	default:
		return false
	}
}

func (a assetValue) WithTags(tags []string) DataValue {
	return assetValue{base: newBase(a.name, tags), handle: a.handle, assets: a.assets}
}

func (a assetValue) String() string {
	return fmt.Sprintf("%s:%s=%s%s", a.name, Asset, AssetURI(a.handle), a.tagSuffix())
}

// Undefined

type undefinedValue struct {
	base
	declared DataType
}

func (u undefinedValue) DataType() DataType                     { return u.declared }
func (u undefinedValue) IsUndefined() bool                      { return true }
func (u undefinedValue) AsLong() (int64, error)                 { return 0, undefinedError(u.name) }
func (u undefinedValue) AsDouble() (float64, error)             { return 0, undefinedError(u.name) }
func (u undefinedValue) AsString() (string, error)              { return "", undefinedError(u.name) }
func (u undefinedValue) AsBoolean() (bool, error)               { return false, undefinedError(u.name) }
func (u undefinedValue) AsJSONArray() (json.RawMessage, error)  { return nil, undefinedError(u.name) }
func (u undefinedValue) AsJSONObject() (json.RawMessage, error) { return nil, undefinedError(u.name) }
func (u undefinedValue) AsAsset() (string, error)               { return "", undefinedError(u.name) }
func (u undefinedValue) CanBeConvertedTo(DataType) bool         { return false }

func (u undefinedValue) WithTags(tags []string) DataValue {
	return undefinedValue{base: newBase(u.name, tags), declared: u.declared}
}

func (u undefinedValue) String() string {
	return fmt.Sprintf("%s:%s=<undefined>%s", u.name, u.declared, u.tagSuffix())
}

// Conversion

// Convert coerces v into a value of type to with the same name and tags.
// assets is used when the conversion needs to resolve or register asset
// content; when nil, any asset manager carried by v is used instead.
// Converting to the value's own type returns v unchanged.
func Convert(ctx context.Context, v DataValue, to DataType, assets AssetManager) (DataValue, error) {
	if v.IsUndefined() {
		return nil, undefinedError(v.Name())
	}
	if err := to.Validate(); err != nil {
		return nil, err
	}
	from := v.DataType()
	if from == to {
		return v, nil
	}

	b := newBase(v.Name(), v.Tags())
	switch to {
	case Long:
		n, err := v.AsLong()
		if err != nil {
			return nil, err
		}
		return longValue{base: b, v: n}, nil
	case Double:
		f, err := v.AsDouble()
		if err != nil {
			return nil, err
		}
		return doubleValue{base: b, v: f}, nil
	case String:
		s, err := v.AsString()
		if err != nil {
			return nil, err
		}
		return stringValue{base: b, v: s}, nil
	case Boolean:
		t, err := v.AsBoolean()
		if err != nil {
			return nil, err
		}
		return booleanValue{base: b, v: t}, nil
	case JSONArray:
		var raw json.RawMessage
		var err error
		if av, ok := v.(assetValue); ok {
			raw, err = av.resolveJSON(ctx, pickAssets(assets, av.assets), JSONArray)
		} else {
			raw, err = v.AsJSONArray()
		}
		if err != nil {
			return nil, err
		}
		return jsonArrayValue{base: b, raw: string(raw), assets: assets}, nil
	case JSONObject:
		var raw json.RawMessage
		var err error
		if av, ok := v.(assetValue); ok {
			raw, err = av.resolveJSON(ctx, pickAssets(assets, av.assets), JSONObject)
		} else {
			raw, err = v.AsJSONObject()
		}
		if err != nil {
			return nil, err
		}
		return jsonObjectValue{base: b, raw: string(raw)}, nil
	case Asset:
		var handle string
		var err error
		if jv, ok := v.(jsonArrayValue); ok {
			handle, err = jv.toAsset(ctx, pickAssets(assets, jv.assets))
		} else {
			handle, err = v.AsAsset()
		}
		if err != nil {
			return nil, err
		}
		return assetValue{base: b, handle: handle, assets: assets}, nil
	default:
		return nil, conversionError(v.Name(), from, to)
	}
}

func pickAssets(preferred, fallback AssetManager) AssetManager {
	if preferred != nil {
		return preferred
	}
	return fallback
}

// Equal reports whether a and b have the same name, type, definedness,
// payload and tags.
func Equal(a, b DataValue) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Name() != b.Name() || a.DataType() != b.DataType() || a.IsUndefined() != b.IsUndefined() {
		return false
	}
	at, bt := a.Tags(), b.Tags()
	if len(at) != len(bt) {
		return false
	}
	for i := range at {
		if at[i] != bt[i] {
			return false
		}
	}
	if a.IsUndefined() {
		return true
	}
	switch a.DataType() {
	case Long:
		x, _ := a.AsLong()
		y, _ := b.AsLong()
		return x == y
	case Double:
		x, _ := a.AsDouble()
		y, _ := b.AsDouble()
		return x == y || (math.IsNaN(x) && math.IsNaN(y))
	case String:
		x, _ := a.AsString()
		y, _ := b.AsString()
		return x == y
	case Boolean:
		x, _ := a.AsBoolean()
		y, _ := b.AsBoolean()
		return x == y
	case JSONArray:
		x, _ := a.AsJSONArray()
		y, _ := b.AsJSONArray()
		return string(x) == string(y)
	case JSONObject:
		x, _ := a.AsJSONObject()
		y, _ := b.AsJSONObject()
		return string(x) == string(y)
	case Asset:
		x, _ := a.AsAsset()
		y, _ := b.AsAsset()
		return x == y
	default:
		return false
	}
}

func wrapScalar(raw string) (json.RawMessage, error) {
	out, err := sjson.SetRaw("[]", "-1", raw)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(out), nil
}

func compactJSON(s string) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}
