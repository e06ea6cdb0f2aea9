package filter

import (
	"path/filepath"

	"github.com/dyluth/gamedata/pkg/datastore"
)

// Criteria defines filtering criteria for properties.
// All filters are ANDed together - a property must match ALL criteria to pass.
type Criteria struct {
	TypeGlob      string              // Glob pattern for property type, empty = no filter
	NamespaceGlob string              // Glob pattern for namespace, empty = no filter
	NameGlob      string              // Glob pattern for property name, empty = no filter
	DataType      *datastore.DataType // Exact data type, nil = no filter
	Tag           string              // Property must carry this tag, empty = no filter
	DefinedOnly   bool                // Skip undefined placeholders
}

// MatchesNamespace returns true if a namespace passes the type and namespace globs.
// Used to skip whole namespaces before reading their values.
func (c *Criteria) MatchesNamespace(propertyType, namespace string) bool {
	return globMatch(c.TypeGlob, propertyType) && globMatch(c.NamespaceGlob, namespace)
}

// Matches returns true if the property matches all filter criteria.
// Empty/zero criteria values are treated as "match all" for that criterion.
func (c *Criteria) Matches(propertyType, namespace string, v datastore.DataValue) bool {
	if !c.MatchesNamespace(propertyType, namespace) {
		return false
	}

	if !globMatch(c.NameGlob, v.Name()) {
		return false
	}

	if c.DataType != nil && v.DataType() != *c.DataType {
		return false
	}

	if c.Tag != "" && !v.HasTag(c.Tag) {
		return false
	}

	if c.DefinedOnly && v.IsUndefined() {
		return false
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.TypeGlob != "" ||
		c.NamespaceGlob != "" ||
		c.NameGlob != "" ||
		c.DataType != nil ||
		c.Tag != "" ||
		c.DefinedOnly
}

// globMatch treats an empty or malformed pattern as match-all and no-match respectively.
func globMatch(pattern, s string) bool {
	if pattern == "" {
		return true
	}
	matched, err := filepath.Match(pattern, s)
	return err == nil && matched
}
