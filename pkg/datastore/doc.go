// Package datastore provides an in-memory, namespaced, typed property store
// used as a shared blackboard for game-session data.
//
// # Overview
//
// Scripts and framework code share one store. Framework code talks to a
// MemoryDataStore directly; scripts go through a RestrictedDataStoreProxy,
// which can read everything but cannot mutate reserved (engine-owned)
// namespaces.
//
// # Core Concepts
//
// A namespace is identified by a property type and a namespace name, for
// example ("token", "goblin1") or ("campaign", "net.rptools.core"). It must be
// created before properties can be written to it.
//
// A DataValue is an immutable named value of one DataType: LONG, DOUBLE,
// STRING, BOOLEAN, JSON_ARRAY, JSON_OBJECT or ASSET. A value may also be
// undefined: it has a name and a declared type but no payload. Reading the
// payload of an undefined value is an error, never a default.
//
// The first defined write fixes a property's type. Later writes are coerced
// into that type, and a write that cannot be coerced fails without changing
// anything.
//
// Values carry tags. Each namespace keeps a reverse index from tag to names so
// GetPropertiesWithTag does not scan the namespace.
//
// # Usage Example
//
//	store := datastore.NewMemoryDataStore()
//	ctx := context.Background()
//
//	err := store.CreateNamespaceWithTypes(ctx, "token", "goblin1",
//		map[string]datastore.DataType{"hp": datastore.Long})
//
//	// "20" is coerced into the declared LONG type
//	hp, err := store.SetStringProperty(ctx, "token", "goblin1", "hp", "20")
//
//	// Scripts get a restricted view
//	scripts := datastore.NewRestrictedDataStoreProxy(store)
//	_, err = scripts.SetLongProperty(ctx, "internal:engine", "net.rptools.core", "x", 1)
//	// errors.Is(err, datastore.ErrReserved) == true
//
// # Replication
//
// ToDto and ToDtos produce the wire form of namespaces; undefined values keep
// their declared type on the wire. GetAssets lists the asset handles whose
// content must accompany a snapshot. NewSnapshot bundles both.
//
// # Concurrency
//
// All store methods are safe for concurrent use. AsyncDataStore exposes the
// same operations as futures computed on a bounded Pool.
package datastore
