package datastore

import (
	"context"
	"encoding/json"
)

// RestrictedDataStoreProxy exposes a DataStore to untrusted callers. Mutations
// of reserved namespaces fail with CodeReserved before the wrapped store is
// touched, Clear always fails with CodeNotOnRestrictedStore, and reads pass
// through unchanged.
type RestrictedDataStoreProxy struct {
	store DataStore
}

var _ DataStore = (*RestrictedDataStoreProxy)(nil)

// NewRestrictedDataStoreProxy wraps store.
func NewRestrictedDataStoreProxy(store DataStore) *RestrictedDataStoreProxy {
	return &RestrictedDataStoreProxy{store: store}
}

func checkReserved(propertyType, namespace string) error {
	if IsReserved(propertyType, namespace) {
		return reservedError(propertyType, namespace)
	}
	return nil
}

// GetPropertyTypes reads through to the wrapped store.
func (r *RestrictedDataStoreProxy) GetPropertyTypes(ctx context.Context) ([]string, error) {
	return r.store.GetPropertyTypes(ctx)
}

// GetPropertyNamespaces reads through to the wrapped store.
func (r *RestrictedDataStoreProxy) GetPropertyNamespaces(ctx context.Context, propertyType string) ([]string, error) {
	return r.store.GetPropertyNamespaces(ctx, propertyType)
}

// HasPropertyNamespace reads through to the wrapped store.
func (r *RestrictedDataStoreProxy) HasPropertyNamespace(ctx context.Context, propertyType, namespace string) (bool, error) {
	return r.store.HasPropertyNamespace(ctx, propertyType, namespace)
}

// HasProperty reads through to the wrapped store.
func (r *RestrictedDataStoreProxy) HasProperty(ctx context.Context, propertyType, namespace, name string) (bool, error) {
	return r.store.HasProperty(ctx, propertyType, namespace, name)
}

// IsPropertyDefined reads through to the wrapped store.
func (r *RestrictedDataStoreProxy) IsPropertyDefined(ctx context.Context, propertyType, namespace, name string) (bool, error) {
	return r.store.IsPropertyDefined(ctx, propertyType, namespace, name)
}

// GetPropertyDataType reads through to the wrapped store.
func (r *RestrictedDataStoreProxy) GetPropertyDataType(ctx context.Context, propertyType, namespace, name string) (DataType, error) {
	return r.store.GetPropertyDataType(ctx, propertyType, namespace, name)
}

// GetPropertyDataTypeMap reads through to the wrapped store.
func (r *RestrictedDataStoreProxy) GetPropertyDataTypeMap(ctx context.Context, propertyType, namespace string) (map[string]DataType, error) {
	return r.store.GetPropertyDataTypeMap(ctx, propertyType, namespace)
}

// GetProperty reads through to the wrapped store.
func (r *RestrictedDataStoreProxy) GetProperty(ctx context.Context, propertyType, namespace, name string) (DataValue, error) {
	return r.store.GetProperty(ctx, propertyType, namespace, name)
}

// GetProperties reads through to the wrapped store.
func (r *RestrictedDataStoreProxy) GetProperties(ctx context.Context, propertyType, namespace string) ([]DataValue, error) {
	return r.store.GetProperties(ctx, propertyType, namespace)
}

// GetPropertiesWithTag reads through to the wrapped store.
func (r *RestrictedDataStoreProxy) GetPropertiesWithTag(ctx context.Context, propertyType, namespace, tag string) ([]DataValue, error) {
	return r.store.GetPropertiesWithTag(ctx, propertyType, namespace, tag)
}

// GetPropertyNamesWithTag reads through to the wrapped store.
func (r *RestrictedDataStoreProxy) GetPropertyNamesWithTag(ctx context.Context, propertyType, namespace, tag string) ([]string, error) {
	return r.store.GetPropertyNamesWithTag(ctx, propertyType, namespace, tag)
}

// GetTags reads through to the wrapped store.
func (r *RestrictedDataStoreProxy) GetTags(ctx context.Context, propertyType, namespace, name string) ([]string, error) {
	return r.store.GetTags(ctx, propertyType, namespace, name)
}

// SetProperty fails with CodeReserved on reserved namespaces.
func (r *RestrictedDataStoreProxy) SetProperty(ctx context.Context, propertyType, namespace string, value DataValue) (DataValue, error) {
	if err := checkReserved(propertyType, namespace); err != nil {
		return nil, err
	}
	return r.store.SetProperty(ctx, propertyType, namespace, value)
}

// SetPropertyWithTags fails with CodeReserved on reserved namespaces.
func (r *RestrictedDataStoreProxy) SetPropertyWithTags(ctx context.Context, propertyType, namespace string, value DataValue, tags []string) (DataValue, error) {
	if err := checkReserved(propertyType, namespace); err != nil {
		return nil, err
	}
	return r.store.SetPropertyWithTags(ctx, propertyType, namespace, value, tags)
}

// SetLongProperty fails with CodeReserved on reserved namespaces.
func (r *RestrictedDataStoreProxy) SetLongProperty(ctx context.Context, propertyType, namespace, name string, v int64) (DataValue, error) {
	if err := checkReserved(propertyType, namespace); err != nil {
		return nil, err
	}
	return r.store.SetLongProperty(ctx, propertyType, namespace, name, v)
}

// SetDoubleProperty fails with CodeReserved on reserved namespaces.
func (r *RestrictedDataStoreProxy) SetDoubleProperty(ctx context.Context, propertyType, namespace, name string, v float64) (DataValue, error) {
	if err := checkReserved(propertyType, namespace); err != nil {
		return nil, err
	}
	return r.store.SetDoubleProperty(ctx, propertyType, namespace, name, v)
}

// SetBooleanProperty fails with CodeReserved on reserved namespaces.
func (r *RestrictedDataStoreProxy) SetBooleanProperty(ctx context.Context, propertyType, namespace, name string, v bool) (DataValue, error) {
	if err := checkReserved(propertyType, namespace); err != nil {
		return nil, err
	}
	return r.store.SetBooleanProperty(ctx, propertyType, namespace, name, v)
}

// SetStringProperty fails with CodeReserved on reserved namespaces.
func (r *RestrictedDataStoreProxy) SetStringProperty(ctx context.Context, propertyType, namespace, name string, v string) (DataValue, error) {
	if err := checkReserved(propertyType, namespace); err != nil {
		return nil, err
	}
	return r.store.SetStringProperty(ctx, propertyType, namespace, name, v)
}

// SetJSONArrayProperty fails with CodeReserved on reserved namespaces.
func (r *RestrictedDataStoreProxy) SetJSONArrayProperty(ctx context.Context, propertyType, namespace, name string, v json.RawMessage) (DataValue, error) {
	if err := checkReserved(propertyType, namespace); err != nil {
		return nil, err
	}
	return r.store.SetJSONArrayProperty(ctx, propertyType, namespace, name, v)
}

// SetJSONObjectProperty fails with CodeReserved on reserved namespaces.
func (r *RestrictedDataStoreProxy) SetJSONObjectProperty(ctx context.Context, propertyType, namespace, name string, v json.RawMessage) (DataValue, error) {
	if err := checkReserved(propertyType, namespace); err != nil {
		return nil, err
	}
	return r.store.SetJSONObjectProperty(ctx, propertyType, namespace, name, v)
}

// SetAssetProperty fails with CodeReserved on reserved namespaces.
func (r *RestrictedDataStoreProxy) SetAssetProperty(ctx context.Context, propertyType, namespace, name string, handle string) (DataValue, error) {
	if err := checkReserved(propertyType, namespace); err != nil {
		return nil, err
	}
	return r.store.SetAssetProperty(ctx, propertyType, namespace, name, handle)
}

// RemoveProperty fails with CodeReserved on reserved namespaces.
func (r *RestrictedDataStoreProxy) RemoveProperty(ctx context.Context, propertyType, namespace, name string) error {
	if err := checkReserved(propertyType, namespace); err != nil {
		return err
	}
	return r.store.RemoveProperty(ctx, propertyType, namespace, name)
}

// SetTags fails with CodeReserved on reserved namespaces.
func (r *RestrictedDataStoreProxy) SetTags(ctx context.Context, propertyType, namespace, name string, tags []string) (DataValue, error) {
	if err := checkReserved(propertyType, namespace); err != nil {
		return nil, err
	}
	return r.store.SetTags(ctx, propertyType, namespace, name, tags)
}

// AddTags fails with CodeReserved on reserved namespaces.
func (r *RestrictedDataStoreProxy) AddTags(ctx context.Context, propertyType, namespace, name string, tags []string) (DataValue, error) {
	if err := checkReserved(propertyType, namespace); err != nil {
		return nil, err
	}
	return r.store.AddTags(ctx, propertyType, namespace, name, tags)
}

// RemoveTags fails with CodeReserved on reserved namespaces.
func (r *RestrictedDataStoreProxy) RemoveTags(ctx context.Context, propertyType, namespace, name string, tags []string) (DataValue, error) {
	if err := checkReserved(propertyType, namespace); err != nil {
		return nil, err
	}
	return r.store.RemoveTags(ctx, propertyType, namespace, name, tags)
}

// CreateNamespace fails with CodeReserved on reserved namespaces.
func (r *RestrictedDataStoreProxy) CreateNamespace(ctx context.Context, propertyType, namespace string) error {
	if err := checkReserved(propertyType, namespace); err != nil {
		return err
	}
	return r.store.CreateNamespace(ctx, propertyType, namespace)
}

// CreateNamespaceWithInitialData fails with CodeReserved on reserved namespaces.
func (r *RestrictedDataStoreProxy) CreateNamespaceWithInitialData(ctx context.Context, propertyType, namespace string, values []DataValue) error {
	if err := checkReserved(propertyType, namespace); err != nil {
		return err
	}
	return r.store.CreateNamespaceWithInitialData(ctx, propertyType, namespace, values)
}

// CreateNamespaceWithTypes fails with CodeReserved on reserved namespaces.
func (r *RestrictedDataStoreProxy) CreateNamespaceWithTypes(ctx context.Context, propertyType, namespace string, types map[string]DataType) error {
	if err := checkReserved(propertyType, namespace); err != nil {
		return err
	}
	return r.store.CreateNamespaceWithTypes(ctx, propertyType, namespace, types)
}

// ImportDto rejects DTOs for reserved namespaces, then delegates.
func (r *RestrictedDataStoreProxy) ImportDto(ctx context.Context, dto *GameDataDto) error {
	if dto == nil {
		return invalidArgument("dto cannot be nil")
	}
	if err := checkReserved(dto.Type, dto.Namespace); err != nil {
		return err
	}
	return r.store.ImportDto(ctx, dto)
}

// ClearNamespace fails with CodeReserved on reserved namespaces.
func (r *RestrictedDataStoreProxy) ClearNamespace(ctx context.Context, propertyType, namespace string) error {
	if err := checkReserved(propertyType, namespace); err != nil {
		return err
	}
	return r.store.ClearNamespace(ctx, propertyType, namespace)
}

// Clear is never permitted: it would discard reserved data too.
func (r *RestrictedDataStoreProxy) Clear(context.Context) error {
	return &Error{
		Code:    CodeNotOnRestrictedStore,
		Message: "clear is not permitted on a restricted data store",
	}
}

// ToDto reads through to the wrapped store.
func (r *RestrictedDataStoreProxy) ToDto(ctx context.Context, propertyType, namespace string) (*GameDataDto, error) {
	return r.store.ToDto(ctx, propertyType, namespace)
}

// ToDtos reads through to the wrapped store.
func (r *RestrictedDataStoreProxy) ToDtos(ctx context.Context) ([]*GameDataDto, error) {
	return r.store.ToDtos(ctx)
}

// GetAssets reads through to the wrapped store.
func (r *RestrictedDataStoreProxy) GetAssets(ctx context.Context) ([]string, error) {
	return r.store.GetAssets(ctx)
}
