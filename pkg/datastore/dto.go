package datastore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Wire representation of the store for replication and snapshotting.
//
// One GameDataDto is produced per namespace. Each GameDataValueDto sets
// exactly one of the payload fields, or exactly one of the undefined markers
// so that a receiver recovers the declared type of a value with no payload.

// Empty is the marker payload of the undefined* fields; it encodes as {}.
type Empty struct{}

// GameDataDto is the wire form of one namespace.
type GameDataDto struct {
	Type      string              `json:"type"`
	Namespace string              `json:"namespace"`
	Values    []*GameDataValueDto `json:"values"`
}

// GameDataValueDto is the wire form of one DataValue.
type GameDataValueDto struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`

	// Payload, at most one set
	LongValue    *int64   `json:"longValue,omitempty"`
	DoubleValue  *float64 `json:"doubleValue,omitempty"`
	BooleanValue *bool    `json:"booleanValue,omitempty"`
	StringValue  *string  `json:"stringValue,omitempty"`
	JSONValue    *string  `json:"jsonValue,omitempty"`  // JSON array or object text
	AssetValue   *string  `json:"assetValue,omitempty"` // asset handle

	// Undefined markers, at most one set
	UndefinedLongValue       *Empty `json:"undefinedLongValue,omitempty"`
	UndefinedDoubleValue     *Empty `json:"undefinedDoubleValue,omitempty"`
	UndefinedBooleanValue    *Empty `json:"undefinedBooleanValue,omitempty"`
	UndefinedStringValue     *Empty `json:"undefinedStringValue,omitempty"`
	UndefinedJSONArrayValue  *Empty `json:"undefinedJsonArrayValue,omitempty"`
	UndefinedJSONObjectValue *Empty `json:"undefinedJsonObjectValue,omitempty"`
	UndefinedAssetValue      *Empty `json:"undefinedAssetValue,omitempty"`
	UndefinedValue           *Empty `json:"undefinedValue,omitempty"`
}

// GameValueToDto converts a value to its wire form.
func GameValueToDto(v DataValue) (*GameDataValueDto, error) {
	dto := &GameDataValueDto{Name: v.Name(), Tags: v.Tags()}
	if v.IsUndefined() {
		marker := &Empty{}
		switch v.DataType() {
		case Long:
			dto.UndefinedLongValue = marker
		case Double:
			dto.UndefinedDoubleValue = marker
		case Boolean:
			dto.UndefinedBooleanValue = marker
		case String:
			dto.UndefinedStringValue = marker
		case JSONArray:
			dto.UndefinedJSONArrayValue = marker
		case JSONObject:
			dto.UndefinedJSONObjectValue = marker
		case Asset:
			dto.UndefinedAssetValue = marker
		case Undefined:
			dto.UndefinedValue = marker
		default:
			return nil, invalidArgument("unknown data type %s for %q", v.DataType(), v.Name())
		}
		return dto, nil
	}

	switch v.DataType() {
	case Long:
		n, err := v.AsLong()
		if err != nil {
			return nil, err
		}
		dto.LongValue = &n
	case Double:
		f, err := v.AsDouble()
		if err != nil {
			return nil, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, invalidArgument("value %q is %v and has no wire form", v.Name(), f)
		}
		dto.DoubleValue = &f
	case Boolean:
		b, err := v.AsBoolean()
		if err != nil {
			return nil, err
		}
		dto.BooleanValue = &b
	case String:
		s, err := v.AsString()
		if err != nil {
			return nil, err
		}
		dto.StringValue = &s
	case JSONArray:
		raw, err := v.AsJSONArray()
		if err != nil {
			return nil, err
		}
		s := string(raw)
		dto.JSONValue = &s
	case JSONObject:
		raw, err := v.AsJSONObject()
		if err != nil {
			return nil, err
		}
		s := string(raw)
		dto.JSONValue = &s
	case Asset:
		h, err := v.AsAsset()
		if err != nil {
			return nil, err
		}
		dto.AssetValue = &h
	default:
		return nil, invalidArgument("unknown data type %s for %q", v.DataType(), v.Name())
	}
	return dto, nil
}

// Validate checks that the DTO names a value and sets exactly one payload
// field or undefined marker.
func (d *GameDataValueDto) Validate() error {
	if d.Name == "" {
		return invalidArgument("value name cannot be empty")
	}
	set := 0
	for _, isSet := range []bool{
		d.LongValue != nil, d.DoubleValue != nil, d.BooleanValue != nil,
		d.StringValue != nil, d.JSONValue != nil, d.AssetValue != nil,
		d.UndefinedLongValue != nil, d.UndefinedDoubleValue != nil,
		d.UndefinedBooleanValue != nil, d.UndefinedStringValue != nil,
		d.UndefinedJSONArrayValue != nil, d.UndefinedJSONObjectValue != nil,
		d.UndefinedAssetValue != nil, d.UndefinedValue != nil,
	} {
		if isSet {
			set++
		}
	}
	if set != 1 {
		return invalidArgument("value %q must set exactly one payload or undefined marker, got %d", d.Name, set)
	}
	return nil
}

// GameValueFromDto rebuilds a DataValue from its wire form using f.
func GameValueFromDto(f *Factory, d *GameDataValueDto) (DataValue, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	tags := d.Tags
	switch {
	case d.LongValue != nil:
		return f.Long(d.Name, *d.LongValue, tags...), nil
	case d.DoubleValue != nil:
		return f.Double(d.Name, *d.DoubleValue, tags...), nil
	case d.BooleanValue != nil:
		return f.Boolean(d.Name, *d.BooleanValue, tags...), nil
	case d.StringValue != nil:
		return f.String(d.Name, *d.StringValue, tags...), nil
	case d.JSONValue != nil:
		r := gjson.Parse(*d.JSONValue)
		switch {
		case !gjson.Valid(*d.JSONValue):
			return nil, invalidArgument("jsonValue of %q is not valid JSON", d.Name)
		case r.IsArray():
			return f.JSONArray(d.Name, json.RawMessage(*d.JSONValue), tags...)
		case r.IsObject():
			return f.JSONObject(d.Name, json.RawMessage(*d.JSONValue), tags...)
		default:
			return nil, invalidArgument("jsonValue of %q must be an array or object", d.Name)
		}
	case d.AssetValue != nil:
		return f.Asset(d.Name, *d.AssetValue, tags...)
	case d.UndefinedLongValue != nil:
		return f.UndefinedOf(d.Name, Long, tags...), nil
	case d.UndefinedDoubleValue != nil:
		return f.UndefinedOf(d.Name, Double, tags...), nil
	case d.UndefinedBooleanValue != nil:
		return f.UndefinedOf(d.Name, Boolean, tags...), nil
	case d.UndefinedStringValue != nil:
		return f.UndefinedOf(d.Name, String, tags...), nil
	case d.UndefinedJSONArrayValue != nil:
		return f.UndefinedOf(d.Name, JSONArray, tags...), nil
	case d.UndefinedJSONObjectValue != nil:
		return f.UndefinedOf(d.Name, JSONObject, tags...), nil
	case d.UndefinedAssetValue != nil:
		return f.UndefinedOf(d.Name, Asset, tags...), nil
	default:
		return f.Undefined(d.Name, tags...), nil
	}
}

// Validate checks the namespace identity and every value.
func (d *GameDataDto) Validate() error {
	if err := validateNamespaceKey(d.Type, d.Namespace); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(d.Values))
	for i, v := range d.Values {
		if v == nil {
			return invalidArgument("value at index %d is nil", i)
		}
		if err := v.Validate(); err != nil {
			return fmt.Errorf("invalid value at index %d: %w", i, err)
		}
		if _, dup := seen[v.Name]; dup {
			return invalidArgument("duplicate value %q", v.Name)
		}
		seen[v.Name] = struct{}{}
	}
	return nil
}

// ToValues validates the DTO and rebuilds its values using f.
func (d *GameDataDto) ToValues(f *Factory) ([]DataValue, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	values := make([]DataValue, 0, len(d.Values))
	for _, vd := range d.Values {
		v, err := GameValueFromDto(f, vd)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// Snapshot is the envelope handed to a replication layer: every namespace
// plus the asset handles whose content must travel with it.
type Snapshot struct {
	ID          string         `json:"id"`            // UUID
	CreatedAtMs int64          `json:"created_at_ms"` // Unix timestamp in milliseconds
	Data        []*GameDataDto `json:"data"`
	Assets      []string       `json:"assets"`
}

// NewSnapshot captures the current contents of store.
func NewSnapshot(ctx context.Context, store DataStore) (*Snapshot, error) {
	dtos, err := store.ToDtos(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to convert namespaces: %w", err)
	}
	assets, err := store.GetAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect assets: %w", err)
	}
	return &Snapshot{
		ID:          uuid.New().String(),
		CreatedAtMs: time.Now().UnixMilli(),
		Data:        dtos,
		Assets:      assets,
	}, nil
}

// Validate checks the snapshot ID and every namespace.
func (s *Snapshot) Validate() error {
	if _, err := uuid.Parse(s.ID); err != nil {
		return invalidArgument("invalid snapshot ID: not a valid UUID")
	}
	for i, d := range s.Data {
		if d == nil {
			return invalidArgument("namespace at index %d is nil", i)
		}
		if err := d.Validate(); err != nil {
			return fmt.Errorf("invalid namespace %s/%s: %w", d.Type, d.Namespace, err)
		}
	}
	return nil
}

// Restore imports every namespace of the snapshot into store.
func (s *Snapshot) Restore(ctx context.Context, store DataStore) error {
	if err := s.Validate(); err != nil {
		return err
	}
	for _, d := range s.Data {
		if err := store.ImportDto(ctx, d); err != nil {
			return fmt.Errorf("failed to import %s/%s: %w", d.Type, d.Namespace, err)
		}
	}
	return nil
}
