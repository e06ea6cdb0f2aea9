package datastore

import (
	"context"
	"encoding/json"
)

// DataStore is the CRUD surface over namespaced properties.
//
// A namespace is identified by the pair (propertyType, namespace) and must be
// created before any property in it can be written. Reads never fail for a
// missing property: GetProperty returns an undefined value instead.
//
// Writes coerce the incoming value into the DataType already stored under
// that name. SetProperty and the typed setters preserve the stored tags;
// SetPropertyWithTags replaces them.
//
// Implementations must be safe for concurrent use.
type DataStore interface {
	// GetPropertyTypes returns every property type that has at least one namespace.
	GetPropertyTypes(ctx context.Context) ([]string, error)
	// GetPropertyNamespaces returns the namespaces registered under propertyType.
	GetPropertyNamespaces(ctx context.Context, propertyType string) ([]string, error)
	HasPropertyNamespace(ctx context.Context, propertyType, namespace string) (bool, error)
	// HasProperty reports whether name exists, defined or not.
	HasProperty(ctx context.Context, propertyType, namespace, name string) (bool, error)
	IsPropertyDefined(ctx context.Context, propertyType, namespace, name string) (bool, error)
	// GetPropertyDataType returns UNDEFINED for a missing property.
	GetPropertyDataType(ctx context.Context, propertyType, namespace, name string) (DataType, error)
	GetPropertyDataTypeMap(ctx context.Context, propertyType, namespace string) (map[string]DataType, error)
	GetProperty(ctx context.Context, propertyType, namespace, name string) (DataValue, error)
	// GetProperties returns every defined value in the namespace.
	GetProperties(ctx context.Context, propertyType, namespace string) ([]DataValue, error)
	// GetPropertiesWithTag returns every defined value currently tagged with tag.
	GetPropertiesWithTag(ctx context.Context, propertyType, namespace, tag string) ([]DataValue, error)
	GetPropertyNamesWithTag(ctx context.Context, propertyType, namespace, tag string) ([]string, error)
	GetTags(ctx context.Context, propertyType, namespace, name string) ([]string, error)

	SetProperty(ctx context.Context, propertyType, namespace string, value DataValue) (DataValue, error)
	SetPropertyWithTags(ctx context.Context, propertyType, namespace string, value DataValue, tags []string) (DataValue, error)
	SetLongProperty(ctx context.Context, propertyType, namespace, name string, v int64) (DataValue, error)
	SetDoubleProperty(ctx context.Context, propertyType, namespace, name string, v float64) (DataValue, error)
	SetBooleanProperty(ctx context.Context, propertyType, namespace, name string, v bool) (DataValue, error)
	SetStringProperty(ctx context.Context, propertyType, namespace, name string, v string) (DataValue, error)
	SetJSONArrayProperty(ctx context.Context, propertyType, namespace, name string, v json.RawMessage) (DataValue, error)
	SetJSONObjectProperty(ctx context.Context, propertyType, namespace, name string, v json.RawMessage) (DataValue, error)
	SetAssetProperty(ctx context.Context, propertyType, namespace, name string, handle string) (DataValue, error)
	RemoveProperty(ctx context.Context, propertyType, namespace, name string) error

	// SetTags, AddTags and RemoveTags require an existing, defined property.
	SetTags(ctx context.Context, propertyType, namespace, name string, tags []string) (DataValue, error)
	AddTags(ctx context.Context, propertyType, namespace, name string, tags []string) (DataValue, error)
	RemoveTags(ctx context.Context, propertyType, namespace, name string, tags []string) (DataValue, error)

	// CreateNamespace registers an empty namespace. It is idempotent.
	CreateNamespace(ctx context.Context, propertyType, namespace string) error
	// CreateNamespaceWithInitialData registers the namespace and seeds values
	// whose names are not already present.
	CreateNamespaceWithInitialData(ctx context.Context, propertyType, namespace string, values []DataValue) error
	// CreateNamespaceWithTypes registers the namespace and declares undefined
	// placeholders for names not already present.
	CreateNamespaceWithTypes(ctx context.Context, propertyType, namespace string, types map[string]DataType) error
	// ImportDto creates or seeds a namespace from its wire representation.
	ImportDto(ctx context.Context, dto *GameDataDto) error
	ClearNamespace(ctx context.Context, propertyType, namespace string) error
	Clear(ctx context.Context) error

	ToDto(ctx context.Context, propertyType, namespace string) (*GameDataDto, error)
	ToDtos(ctx context.Context) ([]*GameDataDto, error)
	// GetAssets returns the distinct handles referenced by defined ASSET values.
	GetAssets(ctx context.Context) ([]string, error)
}
