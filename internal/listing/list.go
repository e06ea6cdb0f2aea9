package listing

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/dyluth/gamedata/internal/filter"
	"github.com/dyluth/gamedata/pkg/datastore"
)

// OutputFormat specifies how to format the property list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format with truncated values
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete values as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// Validate checks if the OutputFormat is a valid enum value.
func (f OutputFormat) Validate() error {
	switch f {
	case OutputFormatDefault, OutputFormatJSONL:
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", f)
	}
}

// CollectRows walks every namespace of the store and returns the properties
// passing filters, ordered by type, namespace and name. Undefined placeholders
// are included so their declared types are visible.
func CollectRows(ctx context.Context, store datastore.DataStore, filters *filter.Criteria) ([]Row, error) {
	if filters == nil {
		filters = &filter.Criteria{}
	}

	types, err := store.GetPropertyTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list property types: %w", err)
	}

	var rows []Row
	for _, propertyType := range types {
		namespaces, err := store.GetPropertyNamespaces(ctx, propertyType)
		if err != nil {
			return nil, fmt.Errorf("failed to list namespaces of %s: %w", propertyType, err)
		}

		for _, namespace := range namespaces {
			if !filters.MatchesNamespace(propertyType, namespace) {
				continue
			}

			typeMap, err := store.GetPropertyDataTypeMap(ctx, propertyType, namespace)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s/%s: %w", propertyType, namespace, err)
			}
			names := make([]string, 0, len(typeMap))
			for name := range typeMap {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				v, err := store.GetProperty(ctx, propertyType, namespace, name)
				if err != nil {
					return nil, fmt.Errorf("failed to read %s/%s %s: %w", propertyType, namespace, name, err)
				}
				if filters.Matches(propertyType, namespace, v) {
					rows = append(rows, Row{Type: propertyType, Namespace: namespace, Value: v})
				}
			}
		}
	}

	return rows, nil
}

// ListProperties collects the properties of store matching filters and writes
// them to w in the requested format.
func ListProperties(ctx context.Context, store datastore.DataStore, instanceName string, format OutputFormat, filters *filter.Criteria, w io.Writer) error {
	if err := format.Validate(); err != nil {
		return err
	}

	rows, err := CollectRows(ctx, store, filters)
	if err != nil {
		return err
	}

	switch format {
	case OutputFormatDefault:
		FormatTable(w, rows, instanceName)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, rows); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	}

	return nil
}
