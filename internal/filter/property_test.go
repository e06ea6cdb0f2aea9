package filter

import (
	"testing"

	"github.com/dyluth/gamedata/pkg/datastore"
	"github.com/stretchr/testify/assert"
)

func TestCriteria_Matches(t *testing.T) {
	long := datastore.Long
	hp := datastore.NewLong("hp", 10, "wounded")
	name := datastore.NewString("name", "Snik")
	mp := datastore.NewUndefined("mp", datastore.Long)

	tests := []struct {
		name     string
		criteria Criteria
		value    datastore.DataValue
		want     bool
	}{
		{"empty criteria match all", Criteria{}, hp, true},
		{"type glob match", Criteria{TypeGlob: "tok*"}, hp, true},
		{"type glob miss", Criteria{TypeGlob: "campaign"}, hp, false},
		{"namespace glob", Criteria{NamespaceGlob: "goblin?"}, hp, true},
		{"name glob", Criteria{NameGlob: "h*"}, name, false},
		{"data type match", Criteria{DataType: &long}, hp, true},
		{"data type miss", Criteria{DataType: &long}, name, false},
		{"tag match", Criteria{Tag: "wounded"}, hp, true},
		{"tag miss", Criteria{Tag: "wounded"}, name, false},
		{"defined only skips undefined", Criteria{DefinedOnly: true}, mp, false},
		{"undefined passes without defined only", Criteria{DataType: &long}, mp, true},
		{"malformed glob matches nothing", Criteria{NameGlob: "["}, hp, false},
		{"all criteria", Criteria{TypeGlob: "token", NameGlob: "hp", DataType: &long, Tag: "wounded", DefinedOnly: true}, hp, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.criteria.Matches("token", "goblin1", tt.value))
		})
	}
}

func TestCriteria_HasFilters(t *testing.T) {
	assert.False(t, (&Criteria{}).HasFilters())
	assert.True(t, (&Criteria{Tag: "x"}).HasFilters())
	assert.True(t, (&Criteria{DefinedOnly: true}).HasFilters())
}
