package datastore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"golang.org/x/sync/semaphore"
)

// Future is the eventual result of a task submitted to a Pool.
// Once started a task always runs to completion; Await only bounds how long
// the caller waits for it.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Done returns a channel closed when the task has finished.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the task finishes or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Get blocks until the task finishes.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.value, f.err
}

// Pool runs submitted tasks on goroutines, at most workers at a time.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool creates a pool running at most workers tasks concurrently.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(workers))}
}

// Submit schedules fn on p and returns its future. A panic in fn is
// delivered as the future's error.
func Submit[T any](p *Pool, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		ctx := context.Background()
		if err := p.sem.Acquire(ctx, 1); err != nil {
			f.err = fmt.Errorf("failed to acquire worker: %w", err)
			return
		}
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[DataStore] Task panicked: %v", r)
				f.err = fmt.Errorf("task panicked: %v", r)
			}
		}()
		f.value, f.err = fn(ctx)
	}()
	return f
}

func submitErr(p *Pool, fn func(ctx context.Context) error) *Future[struct{}] {
	return Submit(p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
}

// AsyncDataStore exposes a DataStore as futures so callers such as a UI loop
// never block on the store directly.
type AsyncDataStore struct {
	store DataStore
	pool  *Pool
}

// NewAsyncDataStore wraps store, running operations on pool.
func NewAsyncDataStore(store DataStore, pool *Pool) *AsyncDataStore {
	return &AsyncDataStore{store: store, pool: pool}
}

// Store returns the wrapped synchronous store.
func (a *AsyncDataStore) Store() DataStore {
	return a.store
}

// GetPropertyTypes runs DataStore.GetPropertyTypes on the pool.
func (a *AsyncDataStore) GetPropertyTypes() *Future[[]string] {
	return Submit(a.pool, func(ctx context.Context) ([]string, error) {
		return a.store.GetPropertyTypes(ctx)
	})
}

// GetPropertyNamespaces runs DataStore.GetPropertyNamespaces on the pool.
func (a *AsyncDataStore) GetPropertyNamespaces(propertyType string) *Future[[]string] {
	return Submit(a.pool, func(ctx context.Context) ([]string, error) {
		return a.store.GetPropertyNamespaces(ctx, propertyType)
	})
}

// HasPropertyNamespace runs DataStore.HasPropertyNamespace on the pool.
func (a *AsyncDataStore) HasPropertyNamespace(propertyType, namespace string) *Future[bool] {
	return Submit(a.pool, func(ctx context.Context) (bool, error) {
		return a.store.HasPropertyNamespace(ctx, propertyType, namespace)
	})
}

// HasProperty runs DataStore.HasProperty on the pool.
func (a *AsyncDataStore) HasProperty(propertyType, namespace, name string) *Future[bool] {
	return Submit(a.pool, func(ctx context.Context) (bool, error) {
		return a.store.HasProperty(ctx, propertyType, namespace, name)
	})
}

// IsPropertyDefined runs DataStore.IsPropertyDefined on the pool.
func (a *AsyncDataStore) IsPropertyDefined(propertyType, namespace, name string) *Future[bool] {
	return Submit(a.pool, func(ctx context.Context) (bool, error) {
		return a.store.IsPropertyDefined(ctx, propertyType, namespace, name)
	})
}

// GetPropertyDataType runs DataStore.GetPropertyDataType on the pool.
func (a *AsyncDataStore) GetPropertyDataType(propertyType, namespace, name string) *Future[DataType] {
	return Submit(a.pool, func(ctx context.Context) (DataType, error) {
		return a.store.GetPropertyDataType(ctx, propertyType, namespace, name)
	})
}

// GetPropertyDataTypeMap runs DataStore.GetPropertyDataTypeMap on the pool.
func (a *AsyncDataStore) GetPropertyDataTypeMap(propertyType, namespace string) *Future[map[string]DataType] {
	return Submit(a.pool, func(ctx context.Context) (map[string]DataType, error) {
		return a.store.GetPropertyDataTypeMap(ctx, propertyType, namespace)
	})
}

// GetProperty runs DataStore.GetProperty on the pool.
func (a *AsyncDataStore) GetProperty(propertyType, namespace, name string) *Future[DataValue] {
	return Submit(a.pool, func(ctx context.Context) (DataValue, error) {
		return a.store.GetProperty(ctx, propertyType, namespace, name)
	})
}

// GetProperties runs DataStore.GetProperties on the pool.
func (a *AsyncDataStore) GetProperties(propertyType, namespace string) *Future[[]DataValue] {
	return Submit(a.pool, func(ctx context.Context) ([]DataValue, error) {
		return a.store.GetProperties(ctx, propertyType, namespace)
	})
}

// GetPropertiesWithTag runs DataStore.GetPropertiesWithTag on the pool.
func (a *AsyncDataStore) GetPropertiesWithTag(propertyType, namespace, tag string) *Future[[]DataValue] {
	return Submit(a.pool, func(ctx context.Context) ([]DataValue, error) {
		return a.store.GetPropertiesWithTag(ctx, propertyType, namespace, tag)
	})
}

// GetPropertyNamesWithTag runs DataStore.GetPropertyNamesWithTag on the pool.
func (a *AsyncDataStore) GetPropertyNamesWithTag(propertyType, namespace, tag string) *Future[[]string] {
	return Submit(a.pool, func(ctx context.Context) ([]string, error) {
		return a.store.GetPropertyNamesWithTag(ctx, propertyType, namespace, tag)
	})
}

// GetTags runs DataStore.GetTags on the pool.
func (a *AsyncDataStore) GetTags(propertyType, namespace, name string) *Future[[]string] {
	return Submit(a.pool, func(ctx context.Context) ([]string, error) {
		return a.store.GetTags(ctx, propertyType, namespace, name)
	})
}

// SetProperty runs DataStore.SetProperty on the pool.
func (a *AsyncDataStore) SetProperty(propertyType, namespace string, value DataValue) *Future[DataValue] {
	return Submit(a.pool, func(ctx context.Context) (DataValue, error) {
		return a.store.SetProperty(ctx, propertyType, namespace, value)
	})
}

// SetPropertyWithTags runs DataStore.SetPropertyWithTags on the pool.
func (a *AsyncDataStore) SetPropertyWithTags(propertyType, namespace string, value DataValue, tags []string) *Future[DataValue] {
	return Submit(a.pool, func(ctx context.Context) (DataValue, error) {
		return a.store.SetPropertyWithTags(ctx, propertyType, namespace, value, tags)
	})
}

// SetLongProperty runs DataStore.SetLongProperty on the pool.
func (a *AsyncDataStore) SetLongProperty(propertyType, namespace, name string, v int64) *Future[DataValue] {
	return Submit(a.pool, func(ctx context.Context) (DataValue, error) {
		return a.store.SetLongProperty(ctx, propertyType, namespace, name, v)
	})
}

// SetDoubleProperty runs DataStore.SetDoubleProperty on the pool.
func (a *AsyncDataStore) SetDoubleProperty(propertyType, namespace, name string, v float64) *Future[DataValue] {
	return Submit(a.pool, func(ctx context.Context) (DataValue, error) {
		return a.store.SetDoubleProperty(ctx, propertyType, namespace, name, v)
	})
}

// SetBooleanProperty runs DataStore.SetBooleanProperty on the pool.
func (a *AsyncDataStore) SetBooleanProperty(propertyType, namespace, name string, v bool) *Future[DataValue] {
	return Submit(a.pool, func(ctx context.Context) (DataValue, error) {
		return a.store.SetBooleanProperty(ctx, propertyType, namespace, name, v)
	})
}

// SetStringProperty runs DataStore.SetStringProperty on the pool.
func (a *AsyncDataStore) SetStringProperty(propertyType, namespace, name, v string) *Future[DataValue] {
	return Submit(a.pool, func(ctx context.Context) (DataValue, error) {
		return a.store.SetStringProperty(ctx, propertyType, namespace, name, v)
	})
}

// SetJSONArrayProperty runs DataStore.SetJSONArrayProperty on the pool.
func (a *AsyncDataStore) SetJSONArrayProperty(propertyType, namespace, name string, v json.RawMessage) *Future[DataValue] {
	return Submit(a.pool, func(ctx context.Context) (DataValue, error) {
		return a.store.SetJSONArrayProperty(ctx, propertyType, namespace, name, v)
	})
}

// SetJSONObjectProperty runs DataStore.SetJSONObjectProperty on the pool.
func (a *AsyncDataStore) SetJSONObjectProperty(propertyType, namespace, name string, v json.RawMessage) *Future[DataValue] {
	return Submit(a.pool, func(ctx context.Context) (DataValue, error) {
		return a.store.SetJSONObjectProperty(ctx, propertyType, namespace, name, v)
	})
}

// SetAssetProperty runs DataStore.SetAssetProperty on the pool.
func (a *AsyncDataStore) SetAssetProperty(propertyType, namespace, name, handle string) *Future[DataValue] {
	return Submit(a.pool, func(ctx context.Context) (DataValue, error) {
		return a.store.SetAssetProperty(ctx, propertyType, namespace, name, handle)
	})
}

// RemoveProperty runs DataStore.RemoveProperty on the pool.
func (a *AsyncDataStore) RemoveProperty(propertyType, namespace, name string) *Future[struct{}] {
	return submitErr(a.pool, func(ctx context.Context) error {
		return a.store.RemoveProperty(ctx, propertyType, namespace, name)
	})
}

// SetTags runs DataStore.SetTags on the pool.
func (a *AsyncDataStore) SetTags(propertyType, namespace, name string, tags []string) *Future[DataValue] {
	return Submit(a.pool, func(ctx context.Context) (DataValue, error) {
		return a.store.SetTags(ctx, propertyType, namespace, name, tags)
	})
}

// AddTags runs DataStore.AddTags on the pool.
func (a *AsyncDataStore) AddTags(propertyType, namespace, name string, tags []string) *Future[DataValue] {
	return Submit(a.pool, func(ctx context.Context) (DataValue, error) {
		return a.store.AddTags(ctx, propertyType, namespace, name, tags)
	})
}

// RemoveTags runs DataStore.RemoveTags on the pool.
func (a *AsyncDataStore) RemoveTags(propertyType, namespace, name string, tags []string) *Future[DataValue] {
	return Submit(a.pool, func(ctx context.Context) (DataValue, error) {
		return a.store.RemoveTags(ctx, propertyType, namespace, name, tags)
	})
}

// CreateNamespace runs DataStore.CreateNamespace on the pool.
func (a *AsyncDataStore) CreateNamespace(propertyType, namespace string) *Future[struct{}] {
	return submitErr(a.pool, func(ctx context.Context) error {
		return a.store.CreateNamespace(ctx, propertyType, namespace)
	})
}

// CreateNamespaceWithInitialData runs DataStore.CreateNamespaceWithInitialData on the pool.
func (a *AsyncDataStore) CreateNamespaceWithInitialData(propertyType, namespace string, values []DataValue) *Future[struct{}] {
	return submitErr(a.pool, func(ctx context.Context) error {
		return a.store.CreateNamespaceWithInitialData(ctx, propertyType, namespace, values)
	})
}

// CreateNamespaceWithTypes runs DataStore.CreateNamespaceWithTypes on the pool.
func (a *AsyncDataStore) CreateNamespaceWithTypes(propertyType, namespace string, types map[string]DataType) *Future[struct{}] {
	return submitErr(a.pool, func(ctx context.Context) error {
		return a.store.CreateNamespaceWithTypes(ctx, propertyType, namespace, types)
	})
}

// ImportDto runs DataStore.ImportDto on the pool.
func (a *AsyncDataStore) ImportDto(dto *GameDataDto) *Future[struct{}] {
	return submitErr(a.pool, func(ctx context.Context) error {
		return a.store.ImportDto(ctx, dto)
	})
}

// ClearNamespace runs DataStore.ClearNamespace on the pool.
func (a *AsyncDataStore) ClearNamespace(propertyType, namespace string) *Future[struct{}] {
	return submitErr(a.pool, func(ctx context.Context) error {
		return a.store.ClearNamespace(ctx, propertyType, namespace)
	})
}

// Clear runs DataStore.Clear on the pool.
func (a *AsyncDataStore) Clear() *Future[struct{}] {
	return submitErr(a.pool, a.store.Clear)
}

// ToDto runs DataStore.ToDto on the pool.
func (a *AsyncDataStore) ToDto(propertyType, namespace string) *Future[*GameDataDto] {
	return Submit(a.pool, func(ctx context.Context) (*GameDataDto, error) {
		return a.store.ToDto(ctx, propertyType, namespace)
	})
}

// ToDtos runs DataStore.ToDtos on the pool.
func (a *AsyncDataStore) ToDtos() *Future[[]*GameDataDto] {
	return Submit(a.pool, a.store.ToDtos)
}

// GetAssets runs DataStore.GetAssets on the pool.
func (a *AsyncDataStore) GetAssets() *Future[[]string] {
	return Submit(a.pool, a.store.GetAssets)
}

// Snapshot captures the store as a replication Snapshot.
func (a *AsyncDataStore) Snapshot() *Future[*Snapshot] {
	return Submit(a.pool, func(ctx context.Context) (*Snapshot, error) {
		return NewSnapshot(ctx, a.store)
	})
}
