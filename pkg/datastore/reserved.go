package datastore

import "strings"

// Reservation policy.
//
// Engine-owned data lives in the same store as script-owned data. A
// (propertyType, namespace) pair is reserved when either axis starts with one
// of the prefixes below; only trusted code may mutate reserved namespaces.

var reservedPropertyTypePrefixes = []string{
	"internal:",
	"maptool:",
	"system:",
}

var reservedNamespacePrefixes = []string{
	"net.rptools.",
	"rptools.",
	"maptool.",
	"tokentool.",
	"internal.",
}

// IsReservedPropertyType reports whether propertyType uses a system prefix.
func IsReservedPropertyType(propertyType string) bool {
	return hasAnyPrefix(propertyType, reservedPropertyTypePrefixes)
}

// IsReservedNamespace reports whether namespace uses a reserved package prefix.
func IsReservedNamespace(namespace string) bool {
	return hasAnyPrefix(namespace, reservedNamespacePrefixes)
}

// IsReserved reports whether the pair may only be mutated by trusted code.
func IsReserved(propertyType, namespace string) bool {
	return IsReservedPropertyType(propertyType) || IsReservedNamespace(namespace)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
