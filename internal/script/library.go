package script

import (
	"context"
	"sort"

	"github.com/Shopify/go-lua"
	"github.com/dyluth/gamedata/pkg/datastore"
)

// LibraryName is the global under which Bind installs the store functions.
const LibraryName = "datastore"

// Binding connects one Lua state to a DataStore. Store failures are raised as
// Lua errors; the most recent one is kept so callers can recover its code.
type Binding struct {
	ctx     context.Context
	store   datastore.DataStore
	factory *datastore.Factory
	lastErr error
}

// Bind installs the datastore library into state. Every call made by the
// script runs with ctx.
//
//	datastore.get(type, ns, name)                 -> value | nil
//	datastore.set(type, ns, name, value)          -> stored value
//	datastore.set_tagged(type, ns, name, value, tags)
//	datastore.remove(type, ns, name)
//	datastore.tags(type, ns, name)                -> {tag, ...}
//	datastore.add_tags(type, ns, name, tags)
//	datastore.remove_tags(type, ns, name, tags)
//	datastore.with_tag(type, ns, tag)             -> {name = value, ...}
//	datastore.has(type, ns, name)                 -> boolean
//	datastore.defined(type, ns, name)             -> boolean
//	datastore.type_of(type, ns, name)             -> "LONG", "UNDEFINED", ...
//	datastore.create_namespace(type, ns [, {name = "LONG", ...}])
func Bind(ctx context.Context, state *lua.State, store datastore.DataStore) *Binding {
	b := &Binding{ctx: ctx, store: store, factory: datastore.DefaultFactory}
	state.NewTable()
	lua.SetFunctions(state, b.functions(), 0)
	state.SetGlobal(LibraryName)
	return b
}

// Err returns the last store error raised into the script, if any.
func (b *Binding) Err() error {
	return b.lastErr
}

func (b *Binding) functions() []lua.RegistryFunction {
	return []lua.RegistryFunction{
		{Name: "get", Function: b.get},
		{Name: "set", Function: b.set},
		{Name: "set_tagged", Function: b.setTagged},
		{Name: "remove", Function: b.remove},
		{Name: "tags", Function: b.tags},
		{Name: "add_tags", Function: b.addTags},
		{Name: "remove_tags", Function: b.removeTags},
		{Name: "with_tag", Function: b.withTag},
		{Name: "has", Function: b.has},
		{Name: "defined", Function: b.defined},
		{Name: "type_of", Function: b.typeOf},
		{Name: "create_namespace", Function: b.createNamespace},
	}
}

// raise converts err into a Lua error. It does not return.
func (b *Binding) raise(state *lua.State, err error) int {
	b.lastErr = err
	lua.Errorf(state, "%s", err.Error())
	panic("unreachable")
}

// key reads the (type, namespace) pair every function starts with.
func key(state *lua.State) (string, string) {
	return lua.CheckString(state, 1), lua.CheckString(state, 2)
}

func (b *Binding) get(state *lua.State) int {
	propertyType, namespace := key(state)
	name := lua.CheckString(state, 3)
	v, err := b.store.GetProperty(b.ctx, propertyType, namespace, name)
	if err != nil {
		return b.raise(state, err)
	}
	if err := Push(state, v); err != nil {
		return b.raise(state, err)
	}
	return 1
}

func (b *Binding) set(state *lua.State) int {
	propertyType, namespace := key(state)
	name := lua.CheckString(state, 3)
	value, err := ToDataValue(state, 4, name, b.factory)
	if err != nil {
		return b.raise(state, err)
	}
	stored, err := b.store.SetProperty(b.ctx, propertyType, namespace, value)
	if err != nil {
		return b.raise(state, err)
	}
	if err := Push(state, stored); err != nil {
		return b.raise(state, err)
	}
	return 1
}

func (b *Binding) setTagged(state *lua.State) int {
	propertyType, namespace := key(state)
	name := lua.CheckString(state, 3)
	value, err := ToDataValue(state, 4, name, b.factory)
	if err != nil {
		return b.raise(state, err)
	}
	tags, err := toStrings(state, 5)
	if err != nil {
		lua.ArgumentError(state, 5, err.Error())
		panic("unreachable")
	}
	stored, err := b.store.SetPropertyWithTags(b.ctx, propertyType, namespace, value, tags)
	if err != nil {
		return b.raise(state, err)
	}
	if err := Push(state, stored); err != nil {
		return b.raise(state, err)
	}
	return 1
}

func (b *Binding) remove(state *lua.State) int {
	propertyType, namespace := key(state)
	name := lua.CheckString(state, 3)
	if err := b.store.RemoveProperty(b.ctx, propertyType, namespace, name); err != nil {
		return b.raise(state, err)
	}
	return 0
}

func (b *Binding) tags(state *lua.State) int {
	propertyType, namespace := key(state)
	name := lua.CheckString(state, 3)
	tags, err := b.store.GetTags(b.ctx, propertyType, namespace, name)
	if err != nil {
		return b.raise(state, err)
	}
	pushStrings(state, tags)
	return 1
}

func (b *Binding) addTags(state *lua.State) int {
	return b.retag(state, b.store.AddTags)
}

func (b *Binding) removeTags(state *lua.State) int {
	return b.retag(state, b.store.RemoveTags)
}

type retagFunc func(ctx context.Context, propertyType, namespace, name string, tags []string) (datastore.DataValue, error)

func (b *Binding) retag(state *lua.State, fn retagFunc) int {
	propertyType, namespace := key(state)
	name := lua.CheckString(state, 3)
	tags, err := toStrings(state, 4)
	if err != nil {
		lua.ArgumentError(state, 4, err.Error())
		panic("unreachable")
	}
	stored, err := fn(b.ctx, propertyType, namespace, name, tags)
	if err != nil {
		return b.raise(state, err)
	}
	pushStrings(state, stored.Tags())
	return 1
}

func (b *Binding) withTag(state *lua.State) int {
	propertyType, namespace := key(state)
	tag := lua.CheckString(state, 3)
	values, err := b.store.GetPropertiesWithTag(b.ctx, propertyType, namespace, tag)
	if err != nil {
		return b.raise(state, err)
	}
	state.CreateTable(0, len(values))
	for _, v := range values {
		if err := Push(state, v); err != nil {
			return b.raise(state, err)
		}
		state.SetField(-2, v.Name())
	}
	return 1
}

func (b *Binding) has(state *lua.State) int {
	propertyType, namespace := key(state)
	name := lua.CheckString(state, 3)
	ok, err := b.store.HasProperty(b.ctx, propertyType, namespace, name)
	if err != nil {
		return b.raise(state, err)
	}
	state.PushBoolean(ok)
	return 1
}

func (b *Binding) defined(state *lua.State) int {
	propertyType, namespace := key(state)
	name := lua.CheckString(state, 3)
	ok, err := b.store.IsPropertyDefined(b.ctx, propertyType, namespace, name)
	if err != nil {
		return b.raise(state, err)
	}
	state.PushBoolean(ok)
	return 1
}

func (b *Binding) typeOf(state *lua.State) int {
	propertyType, namespace := key(state)
	name := lua.CheckString(state, 3)
	dt, err := b.store.GetPropertyDataType(b.ctx, propertyType, namespace, name)
	if err != nil {
		return b.raise(state, err)
	}
	state.PushString(dt.String())
	return 1
}

func (b *Binding) createNamespace(state *lua.State) int {
	propertyType, namespace := key(state)
	if state.IsNoneOrNil(3) {
		if err := b.store.CreateNamespace(b.ctx, propertyType, namespace); err != nil {
			return b.raise(state, err)
		}
		return 0
	}

	lua.CheckType(state, 3, lua.TypeTable)
	types := make(map[string]datastore.DataType)
	state.PushNil()
	for state.Next(3) {
		if state.TypeOf(-2) != lua.TypeString || state.TypeOf(-1) != lua.TypeString {
			state.Pop(2)
			lua.ArgumentError(state, 3, "expected a table of name = type")
			panic("unreachable")
		}
		name, _ := state.ToString(-2)
		typeName, _ := state.ToString(-1)
		state.Pop(1)
		dt, err := datastore.ParseDataType(typeName)
		if err != nil {
			state.Pop(1)
			return b.raise(state, err)
		}
		types[name] = dt
	}
	if err := b.store.CreateNamespaceWithTypes(b.ctx, propertyType, namespace, types); err != nil {
		return b.raise(state, err)
	}
	return 0
}

func pushStrings(state *lua.State, items []string) {
	sorted := append([]string(nil), items...)
	sort.Strings(sorted)
	state.CreateTable(len(sorted), 0)
	for i, s := range sorted {
		state.PushString(s)
		state.RawSetInt(-2, i+1)
	}
}
