package listing

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dyluth/gamedata/pkg/datastore"
	"github.com/stretchr/testify/assert"
)

func TestFormatValue(t *testing.T) {
	long := strings.Repeat("x", 60)
	tests := []struct {
		name  string
		value datastore.DataValue
		want  string
	}{
		{"long", datastore.NewLong("hp", 10), "10"},
		{"boolean", datastore.NewBoolean("b", true), "true"},
		{"string quoted", datastore.NewString("s", "hi"), `"hi"`},
		{"undefined", datastore.NewUndefined("u", datastore.Long), "-"},
		{"truncated", datastore.NewString("s", long), `"` + strings.Repeat("x", 36) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValue(tt.value))
		})
	}
}

func TestFormatTags(t *testing.T) {
	assert.Equal(t, "-", formatTags(nil))
	assert.Equal(t, "a,b", formatTags([]string{"a", "b"}))
}

func TestFormatTable_SingularCount(t *testing.T) {
	var buf bytes.Buffer
	n := FormatTable(&buf, []Row{{Type: "token", Namespace: "goblin1", Value: datastore.NewLong("hp", 1)}}, "inst")
	assert.Equal(t, 1, n)
	assert.Contains(t, buf.String(), "1 property found")
}
