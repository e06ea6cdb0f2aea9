package script

import (
	"context"
	"fmt"
	"log"

	"github.com/Shopify/go-lua"
	"github.com/dyluth/gamedata/pkg/datastore"
)

// Runner executes Lua scripts against a DataStore. Untrusted scripts should
// be given a datastore.RestrictedDataStoreProxy.
type Runner struct {
	store datastore.DataStore
}

// NewRunner creates a runner for store.
func NewRunner(store datastore.DataStore) *Runner {
	return &Runner{store: store}
}

// RunFile executes the script at path in a fresh Lua state.
func (r *Runner) RunFile(ctx context.Context, path string) error {
	log.Printf("[Script] Running %s", path)
	return r.run(ctx, path, func(state *lua.State) error {
		return lua.DoFile(state, path)
	})
}

// RunString executes source in a fresh Lua state. name identifies the chunk
// in error messages.
func (r *Runner) RunString(ctx context.Context, name, source string) error {
	return r.run(ctx, name, func(state *lua.State) error {
		return lua.DoString(state, source)
	})
}

func (r *Runner) run(ctx context.Context, name string, exec func(*lua.State) error) error {
	state := lua.NewState()
	lua.OpenLibraries(state)
	binding := Bind(ctx, state, r.store)

	if err := exec(state); err != nil {
		// Prefer the store error so callers can match on its code
		if storeErr := binding.Err(); storeErr != nil {
			return fmt.Errorf("script %s failed: %w", name, storeErr)
		}
		return fmt.Errorf("script %s failed: %w", name, err)
	}
	return nil
}
