package datastore

import (
	"fmt"
	"strings"
)

// DataType is the closed set of value kinds a property can hold.
type DataType int

const (
	// Undefined is the type of a value with no declared type.
	Undefined DataType = iota
	// Long is a signed 64 bit integer.
	Long
	// Double is a 64 bit floating point number.
	Double
	// String is a UTF-8 string.
	String
	// Boolean is true or false.
	Boolean
	// JSONArray is a JSON array document.
	JSONArray
	// JSONObject is a JSON object document.
	JSONObject
	// Asset is a reference to content-addressed asset data.
	Asset
)

var dataTypeNames = [...]string{
	Undefined:  "UNDEFINED",
	Long:       "LONG",
	Double:     "DOUBLE",
	String:     "STRING",
	Boolean:    "BOOLEAN",
	JSONArray:  "JSON_ARRAY",
	JSONObject: "JSON_OBJECT",
	Asset:      "ASSET",
}

// AllDataTypes returns every data type, UNDEFINED last.
func AllDataTypes() []DataType {
	return []DataType{Long, Double, String, Boolean, JSONArray, JSONObject, Asset, Undefined}
}

// String returns the wire name of the data type.
func (t DataType) String() string {
	if t < 0 || int(t) >= len(dataTypeNames) {
		return fmt.Sprintf("DataType(%d)", int(t))
	}
	return dataTypeNames[t]
}

// Validate checks that t is one of the declared data types.
func (t DataType) Validate() error {
	if t < Undefined || t > Asset {
		return invalidArgument("unknown data type %d", int(t))
	}
	return nil
}

// ParseDataType parses a data type name. Matching is case-insensitive and
// accepts both wire names ("JSON_ARRAY") and short aliases ("json-array", "int").
func ParseDataType(s string) (DataType, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "-", "_")
	switch key {
	case "LONG", "INT", "INTEGER":
		return Long, nil
	case "DOUBLE", "FLOAT", "NUMBER":
		return Double, nil
	case "STRING":
		return String, nil
	case "BOOLEAN", "BOOL":
		return Boolean, nil
	case "JSON_ARRAY", "ARRAY":
		return JSONArray, nil
	case "JSON_OBJECT", "OBJECT":
		return JSONObject, nil
	case "ASSET":
		return Asset, nil
	case "UNDEFINED":
		return Undefined, nil
	default:
		return Undefined, invalidArgument("unknown data type %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t DataType) MarshalText() ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *DataType) UnmarshalText(text []byte) error {
	parsed, err := ParseDataType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
