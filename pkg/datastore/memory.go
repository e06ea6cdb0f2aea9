package datastore

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"sort"
	"sync"
)

// namespaceKey identifies a namespace within the store.
type namespaceKey struct {
	propertyType string
	namespace    string
}

// namespaceData holds the values of one namespace and the reverse tag index.
// Every name in tagIndex[t] maps in values to a DataValue tagged t, and every
// tagged value appears in the bucket of each of its tags.
type namespaceData struct {
	values   map[string]DataValue           // name -> current value
	tagIndex map[string]map[string]struct{} // tag -> names
}

func newNamespaceData() *namespaceData {
	return &namespaceData{
		values:   make(map[string]DataValue),
		tagIndex: make(map[string]map[string]struct{}),
	}
}

// put stores v, replacing previous (which may be nil), and moves the name
// between tag buckets according to the difference between the two tag sets.
func (n *namespaceData) put(v, previous DataValue) {
	name := v.Name()
	var oldTags []string
	if previous != nil {
		oldTags = previous.Tags()
	}
	newTags := v.Tags()
	for _, t := range difference(oldTags, newTags) {
		n.untag(t, name)
	}
	for _, t := range difference(newTags, oldTags) {
		n.tag(t, name)
	}
	n.values[name] = v
}

// remove deletes name from the value map and from the buckets of its own tags.
func (n *namespaceData) remove(name string) bool {
	v, ok := n.values[name]
	if !ok {
		return false
	}
	for _, t := range v.Tags() {
		n.untag(t, name)
	}
	delete(n.values, name)
	return true
}

func (n *namespaceData) tag(tag, name string) {
	bucket, ok := n.tagIndex[tag]
	if !ok {
		bucket = make(map[string]struct{})
		n.tagIndex[tag] = bucket
	}
	bucket[name] = struct{}{}
}

func (n *namespaceData) untag(tag, name string) {
	bucket, ok := n.tagIndex[tag]
	if !ok {
		return
	}
	delete(bucket, name)
	if len(bucket) == 0 {
		delete(n.tagIndex, tag)
	}
}

// difference returns the elements of a not present in b. Both are sorted.
func difference(a, b []string) []string {
	var out []string
	i, j := 0, 0
	for i < len(a) {
		switch {
		case j >= len(b) || a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] == b[j]:
			i++
			j++
		default:
			j++
		}
	}
	return out
}

// MemoryDataStore is the in-memory DataStore. A single RWMutex guards every
// namespace so no caller can observe a value map and tag index that disagree.
//
// Coercions that resolve or register asset content run without the lock; the
// write is then applied under the lock only if the stored type has not changed
// in the meantime, and retried otherwise.
type MemoryDataStore struct {
	mu         sync.RWMutex
	namespaces map[namespaceKey]*namespaceData
	factory    *Factory
}

var _ DataStore = (*MemoryDataStore)(nil)

// Option configures a MemoryDataStore.
type Option func(*MemoryDataStore)

// WithAssetManager sets the asset manager used to resolve and register asset
// content during conversions. The default is a fresh MemoryAssetStore.
func WithAssetManager(assets AssetManager) Option {
	return func(m *MemoryDataStore) {
		m.factory = NewFactory(assets)
	}
}

// NewMemoryDataStore creates an empty store.
func NewMemoryDataStore(opts ...Option) *MemoryDataStore {
	m := &MemoryDataStore{
		namespaces: make(map[namespaceKey]*namespaceData),
		factory:    NewFactory(NewMemoryAssetStore()),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Factory returns the value factory bound to this store's asset manager.
func (m *MemoryDataStore) Factory() *Factory {
	return m.factory
}

// Reads

// GetPropertyTypes implements DataStore.
func (m *MemoryDataStore) GetPropertyTypes(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{})
	types := []string{}
	for key := range m.namespaces {
		if _, ok := seen[key.propertyType]; ok {
			continue
		}
		seen[key.propertyType] = struct{}{}
		types = append(types, key.propertyType)
	}
	sort.Strings(types)
	return types, nil
}

// GetPropertyNamespaces implements DataStore.
func (m *MemoryDataStore) GetPropertyNamespaces(_ context.Context, propertyType string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	namespaces := []string{}
	for key := range m.namespaces {
		if key.propertyType == propertyType {
			namespaces = append(namespaces, key.namespace)
		}
	}
	sort.Strings(namespaces)
	return namespaces, nil
}

// HasPropertyNamespace implements DataStore.
func (m *MemoryDataStore) HasPropertyNamespace(_ context.Context, propertyType, namespace string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.namespaces[namespaceKey{propertyType, namespace}]
	return ok, nil
}

// HasProperty implements DataStore.
func (m *MemoryDataStore) HasProperty(_ context.Context, propertyType, namespace, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.lookupLocked(propertyType, namespace, name)
	return ok, nil
}

// IsPropertyDefined implements DataStore.
func (m *MemoryDataStore) IsPropertyDefined(_ context.Context, propertyType, namespace, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.lookupLocked(propertyType, namespace, name)
	return ok && !v.IsUndefined(), nil
}

// GetPropertyDataType implements DataStore.
func (m *MemoryDataStore) GetPropertyDataType(_ context.Context, propertyType, namespace, name string) (DataType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.lookupLocked(propertyType, namespace, name)
	if !ok {
		return Undefined, nil
	}
	return v.DataType(), nil
}

// GetPropertyDataTypeMap implements DataStore.
func (m *MemoryDataStore) GetPropertyDataTypeMap(_ context.Context, propertyType, namespace string) (map[string]DataType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	types := make(map[string]DataType)
	nsd, ok := m.namespaces[namespaceKey{propertyType, namespace}]
	if !ok {
		return types, nil
	}
	for name, v := range nsd.values {
		types[name] = v.DataType()
	}
	return types, nil
}

// GetProperty implements DataStore. A missing property, or a property in a
// missing namespace, is returned as a fresh undefined value.
func (m *MemoryDataStore) GetProperty(_ context.Context, propertyType, namespace, name string) (DataValue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.lookupLocked(propertyType, namespace, name); ok {
		return v, nil
	}
	return m.factory.Undefined(name), nil
}

// GetProperties implements DataStore. The result is a snapshot sorted by name.
func (m *MemoryDataStore) GetProperties(_ context.Context, propertyType, namespace string) ([]DataValue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	values := []DataValue{}
	nsd, ok := m.namespaces[namespaceKey{propertyType, namespace}]
	if !ok {
		return values, nil
	}
	for _, v := range nsd.values {
		if !v.IsUndefined() {
			values = append(values, v)
		}
	}
	sortValues(values)
	return values, nil
}

// GetPropertiesWithTag implements DataStore. Names in the tag bucket are
// resolved against the live value map.
func (m *MemoryDataStore) GetPropertiesWithTag(_ context.Context, propertyType, namespace, tag string) ([]DataValue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	values := []DataValue{}
	nsd, ok := m.namespaces[namespaceKey{propertyType, namespace}]
	if !ok {
		return values, nil
	}
	for name := range nsd.tagIndex[tag] {
		if v, ok := nsd.values[name]; ok && !v.IsUndefined() {
			values = append(values, v)
		}
	}
	sortValues(values)
	return values, nil
}

// GetPropertyNamesWithTag implements DataStore.
func (m *MemoryDataStore) GetPropertyNamesWithTag(_ context.Context, propertyType, namespace, tag string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := []string{}
	nsd, ok := m.namespaces[namespaceKey{propertyType, namespace}]
	if !ok {
		return names, nil
	}
	for name := range nsd.tagIndex[tag] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// GetTags implements DataStore. A missing property has no tags.
func (m *MemoryDataStore) GetTags(_ context.Context, propertyType, namespace, name string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.lookupLocked(propertyType, namespace, name); ok {
		return v.Tags(), nil
	}
	return []string{}, nil
}

func (m *MemoryDataStore) lookupLocked(propertyType, namespace, name string) (DataValue, bool) {
	nsd, ok := m.namespaces[namespaceKey{propertyType, namespace}]
	if !ok {
		return nil, false
	}
	v, ok := nsd.values[name]
	return v, ok
}

// Writes

// SetProperty implements DataStore. Existing tags are preserved; a new
// property starts without tags.
func (m *MemoryDataStore) SetProperty(ctx context.Context, propertyType, namespace string, value DataValue) (DataValue, error) {
	return m.write(ctx, propertyType, namespace, value, nil, false)
}

// SetPropertyWithTags implements DataStore. The stored tags become exactly tags.
func (m *MemoryDataStore) SetPropertyWithTags(ctx context.Context, propertyType, namespace string, value DataValue, tags []string) (DataValue, error) {
	return m.write(ctx, propertyType, namespace, value, tags, true)
}

// SetLongProperty implements DataStore.
func (m *MemoryDataStore) SetLongProperty(ctx context.Context, propertyType, namespace, name string, v int64) (DataValue, error) {
	return m.SetProperty(ctx, propertyType, namespace, m.factory.Long(name, v))
}

// SetDoubleProperty implements DataStore.
func (m *MemoryDataStore) SetDoubleProperty(ctx context.Context, propertyType, namespace, name string, v float64) (DataValue, error) {
	return m.SetProperty(ctx, propertyType, namespace, m.factory.Double(name, v))
}

// SetBooleanProperty implements DataStore.
func (m *MemoryDataStore) SetBooleanProperty(ctx context.Context, propertyType, namespace, name string, v bool) (DataValue, error) {
	return m.SetProperty(ctx, propertyType, namespace, m.factory.Boolean(name, v))
}

// SetStringProperty implements DataStore.
func (m *MemoryDataStore) SetStringProperty(ctx context.Context, propertyType, namespace, name string, v string) (DataValue, error) {
	return m.SetProperty(ctx, propertyType, namespace, m.factory.String(name, v))
}

// SetJSONArrayProperty implements DataStore.
func (m *MemoryDataStore) SetJSONArrayProperty(ctx context.Context, propertyType, namespace, name string, v json.RawMessage) (DataValue, error) {
	value, err := m.factory.JSONArray(name, v)
	if err != nil {
		return nil, err
	}
	return m.SetProperty(ctx, propertyType, namespace, value)
}

// SetJSONObjectProperty implements DataStore.
func (m *MemoryDataStore) SetJSONObjectProperty(ctx context.Context, propertyType, namespace, name string, v json.RawMessage) (DataValue, error) {
	value, err := m.factory.JSONObject(name, v)
	if err != nil {
		return nil, err
	}
	return m.SetProperty(ctx, propertyType, namespace, value)
}

// SetAssetProperty implements DataStore.
func (m *MemoryDataStore) SetAssetProperty(ctx context.Context, propertyType, namespace, name string, handle string) (DataValue, error) {
	value, err := m.factory.Asset(name, handle)
	if err != nil {
		return nil, err
	}
	return m.SetProperty(ctx, propertyType, namespace, value)
}

// write coerces value into the stored type of its name and stores it.
// When overwriteTags is false the stored tags are kept.
func (m *MemoryDataStore) write(ctx context.Context, propertyType, namespace string, value DataValue, tags []string, overwriteTags bool) (DataValue, error) {
	if value == nil {
		return nil, invalidArgument("value cannot be nil")
	}
	name := value.Name()
	if name == "" {
		return nil, invalidArgument("property name cannot be empty")
	}
	key := namespaceKey{propertyType, namespace}

	for {
		m.mu.RLock()
		nsd, ok := m.namespaces[key]
		var existing DataValue
		if ok {
			existing = nsd.values[name]
		}
		m.mu.RUnlock()
		if !ok {
			return nil, namespaceNotFoundError(propertyType, namespace)
		}

		coerced, err := m.coerce(ctx, existing, value)
		if err != nil {
			return nil, err
		}
		if err := checkFinite(coerced); err != nil {
			return nil, err
		}

		m.mu.Lock()
		nsd, ok = m.namespaces[key]
		if !ok {
			m.mu.Unlock()
			return nil, namespaceNotFoundError(propertyType, namespace)
		}
		current := nsd.values[name]
		if !sameShape(existing, current) {
			// Stored type changed while converting; convert again.
			m.mu.Unlock()
			continue
		}
		var newTags []string
		switch {
		case overwriteTags:
			newTags = tags
		case current != nil:
			newTags = current.Tags()
		}
		stored := coerced.WithTags(newTags)
		nsd.put(stored, current)
		m.mu.Unlock()
		return stored, nil
	}
}

// coerce converts incoming into the type already stored for its name. A
// missing property, or one with no declared type, takes the incoming value's
// type. An undefined value only replaces another undefined value: it cannot
// be converted into a stored payload.
func (m *MemoryDataStore) coerce(ctx context.Context, existing, incoming DataValue) (DataValue, error) {
	if existing == nil || existing.DataType() == Undefined {
		return withAssets(incoming, m.factory.Assets()), nil
	}
	target := existing.DataType()
	if incoming.IsUndefined() {
		if !existing.IsUndefined() {
			return nil, conversionError(incoming.Name(), Undefined, target)
		}
		return m.factory.UndefinedOf(incoming.Name(), target), nil
	}
	converted, err := Convert(ctx, incoming, target, m.factory.Assets())
	if err != nil {
		if CodeOf(err) == CodeInvalidConversion {
			return nil, err
		}
		return nil, conversionErrorWithCause(incoming.Name(), incoming.DataType(), target, err)
	}
	return withAssets(converted, m.factory.Assets()), nil
}

// checkFinite rejects NaN and infinite doubles, which have no wire form.
func checkFinite(v DataValue) error {
	if v.DataType() != Double || v.IsUndefined() {
		return nil
	}
	f, err := v.AsDouble()
	if err != nil {
		return err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return invalidArgument("value %q is %v; only finite doubles can be stored", v.Name(), f)
	}
	return nil
}

func sameShape(a, b DataValue) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.DataType() == b.DataType()
}

// RemoveProperty implements DataStore. Removing a missing property is a no-op.
func (m *MemoryDataStore) RemoveProperty(_ context.Context, propertyType, namespace, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	nsd, ok := m.namespaces[namespaceKey{propertyType, namespace}]
	if !ok {
		return namespaceNotFoundError(propertyType, namespace)
	}
	nsd.remove(name)
	return nil
}

// SetTags implements DataStore.
func (m *MemoryDataStore) SetTags(_ context.Context, propertyType, namespace, name string, tags []string) (DataValue, error) {
	return m.retag(propertyType, namespace, name, func([]string) []string {
		return tags
	})
}

// AddTags implements DataStore.
func (m *MemoryDataStore) AddTags(_ context.Context, propertyType, namespace, name string, tags []string) (DataValue, error) {
	return m.retag(propertyType, namespace, name, func(current []string) []string {
		return append(current, tags...)
	})
}

// RemoveTags implements DataStore.
func (m *MemoryDataStore) RemoveTags(_ context.Context, propertyType, namespace, name string, tags []string) (DataValue, error) {
	return m.retag(propertyType, namespace, name, func(current []string) []string {
		return difference(current, normalizeTags(tags))
	})
}

func (m *MemoryDataStore) retag(propertyType, namespace, name string, next func(current []string) []string) (DataValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	nsd, ok := m.namespaces[namespaceKey{propertyType, namespace}]
	if !ok {
		return nil, namespaceNotFoundError(propertyType, namespace)
	}
	current, ok := nsd.values[name]
	if !ok || current.IsUndefined() {
		return nil, undefinedError(name)
	}
	stored := current.WithTags(next(current.Tags()))
	nsd.put(stored, current)
	return stored, nil
}

// CreateNamespace implements DataStore.
func (m *MemoryDataStore) CreateNamespace(_ context.Context, propertyType, namespace string) error {
	if err := validateNamespaceKey(propertyType, namespace); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureNamespaceLocked(propertyType, namespace)
	return nil
}

// CreateNamespaceWithInitialData implements DataStore. The input is validated
// in full before anything is stored.
func (m *MemoryDataStore) CreateNamespaceWithInitialData(_ context.Context, propertyType, namespace string, values []DataValue) error {
	if err := validateNamespaceKey(propertyType, namespace); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == nil {
			return invalidArgument("initial value cannot be nil")
		}
		if v.Name() == "" {
			return invalidArgument("property name cannot be empty")
		}
		if _, dup := seen[v.Name()]; dup {
			return invalidArgument("duplicate initial value %q", v.Name())
		}
		if err := checkFinite(v); err != nil {
			return err
		}
		seen[v.Name()] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	nsd := m.ensureNamespaceLocked(propertyType, namespace)
	for _, v := range values {
		if _, exists := nsd.values[v.Name()]; exists {
			continue
		}
		nsd.put(withAssets(v, m.factory.Assets()), nil)
	}
	return nil
}

// CreateNamespaceWithTypes implements DataStore.
func (m *MemoryDataStore) CreateNamespaceWithTypes(ctx context.Context, propertyType, namespace string, types map[string]DataType) error {
	values := make([]DataValue, 0, len(types))
	for name, t := range types {
		if err := t.Validate(); err != nil {
			return err
		}
		values = append(values, m.factory.UndefinedOf(name, t))
	}
	return m.CreateNamespaceWithInitialData(ctx, propertyType, namespace, values)
}

// ImportDto implements DataStore.
func (m *MemoryDataStore) ImportDto(ctx context.Context, dto *GameDataDto) error {
	if dto == nil {
		return invalidArgument("dto cannot be nil")
	}
	values, err := dto.ToValues(m.factory)
	if err != nil {
		return err
	}
	return m.CreateNamespaceWithInitialData(ctx, dto.Type, dto.Namespace, values)
}

func (m *MemoryDataStore) ensureNamespaceLocked(propertyType, namespace string) *namespaceData {
	key := namespaceKey{propertyType, namespace}
	nsd, ok := m.namespaces[key]
	if !ok {
		nsd = newNamespaceData()
		m.namespaces[key] = nsd
	}
	return nsd
}

func validateNamespaceKey(propertyType, namespace string) error {
	if propertyType == "" {
		return invalidArgument("property type cannot be empty")
	}
	if namespace == "" {
		return invalidArgument("namespace cannot be empty")
	}
	return nil
}

// ClearNamespace implements DataStore. Clearing a missing namespace is a no-op.
func (m *MemoryDataStore) ClearNamespace(_ context.Context, propertyType, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.namespaces, namespaceKey{propertyType, namespace})
	return nil
}

// Clear implements DataStore.
func (m *MemoryDataStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := len(m.namespaces)
	m.namespaces = make(map[namespaceKey]*namespaceData)
	log.Printf("[DataStore] Cleared %d namespaces", count)
	return nil
}

// Replication

// ToDto implements DataStore. Undefined values keep their declared type.
func (m *MemoryDataStore) ToDto(_ context.Context, propertyType, namespace string) (*GameDataDto, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	nsd, ok := m.namespaces[namespaceKey{propertyType, namespace}]
	if !ok {
		return nil, namespaceNotFoundError(propertyType, namespace)
	}
	return namespaceToDto(propertyType, namespace, nsd)
}

// ToDtos implements DataStore. Namespaces are ordered by property type, then namespace.
func (m *MemoryDataStore) ToDtos(_ context.Context) ([]*GameDataDto, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]namespaceKey, 0, len(m.namespaces))
	for key := range m.namespaces {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].propertyType != keys[j].propertyType {
			return keys[i].propertyType < keys[j].propertyType
		}
		return keys[i].namespace < keys[j].namespace
	})
	dtos := make([]*GameDataDto, 0, len(keys))
	for _, key := range keys {
		dto, err := namespaceToDto(key.propertyType, key.namespace, m.namespaces[key])
		if err != nil {
			return nil, err
		}
		dtos = append(dtos, dto)
	}
	return dtos, nil
}

func namespaceToDto(propertyType, namespace string, nsd *namespaceData) (*GameDataDto, error) {
	values := make([]DataValue, 0, len(nsd.values))
	for _, v := range nsd.values {
		values = append(values, v)
	}
	sortValues(values)
	dto := &GameDataDto{Type: propertyType, Namespace: namespace, Values: make([]*GameDataValueDto, 0, len(values))}
	for _, v := range values {
		vd, err := GameValueToDto(v)
		if err != nil {
			return nil, err
		}
		dto.Values = append(dto.Values, vd)
	}
	return dto, nil
}

// GetAssets implements DataStore.
func (m *MemoryDataStore) GetAssets(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{})
	handles := []string{}
	for _, nsd := range m.namespaces {
		for _, v := range nsd.values {
			if v.IsUndefined() || v.DataType() != Asset {
				continue
			}
			handle, err := v.AsAsset()
			if err != nil {
				continue
			}
			if _, ok := seen[handle]; ok {
				continue
			}
			seen[handle] = struct{}{}
			handles = append(handles, handle)
		}
	}
	sort.Strings(handles)
	return handles, nil
}

func sortValues(values []DataValue) {
	sort.Slice(values, func(i, j int) bool {
		return values[i].Name() < values[j].Name()
	})
}
