package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dyluth/gamedata/pkg/datastore"
)

// Seed registers the configured assets with assets and creates the configured
// namespaces in store. Relative asset files are resolved against baseDir.
// Seeding never overwrites a value that is already defined.
func (c *GamedataConfig) Seed(ctx context.Context, store datastore.DataStore, assets datastore.AssetManager, baseDir string) error {
	handles, err := c.registerAssets(ctx, assets, baseDir)
	if err != nil {
		return err
	}

	factory := datastore.NewFactory(assets)
	for _, ns := range c.Namespaces {
		types := make(map[string]datastore.DataType)
		for _, p := range ns.Properties {
			if p.Type == "" {
				continue
			}
			dt, err := datastore.ParseDataType(p.Type)
			if err != nil {
				return fmt.Errorf("namespace '%s/%s': %w", ns.Type, ns.Namespace, err)
			}
			types[p.Name] = dt
		}
		if err := store.CreateNamespaceWithTypes(ctx, ns.Type, ns.Namespace, types); err != nil {
			return fmt.Errorf("failed to create namespace '%s/%s': %w", ns.Type, ns.Namespace, err)
		}

		for _, p := range ns.Properties {
			if p.Value == nil {
				continue
			}
			defined, err := store.IsPropertyDefined(ctx, ns.Type, ns.Namespace, p.Name)
			if err != nil {
				return err
			}
			if defined {
				continue
			}
			value, err := propertyValue(factory, p, types[p.Name], handles)
			if err != nil {
				return fmt.Errorf("namespace '%s/%s': %w", ns.Type, ns.Namespace, err)
			}
			if _, err := store.SetPropertyWithTags(ctx, ns.Type, ns.Namespace, value, p.Tags); err != nil {
				return fmt.Errorf("failed to seed '%s/%s' property '%s': %w", ns.Type, ns.Namespace, p.Name, err)
			}
		}
	}

	log.Printf("[Config] Seeded %d namespaces and %d assets", len(c.Namespaces), len(handles))
	return nil
}

// propertyValue builds the seed value. An ASSET property whose value names a
// configured asset refers to that asset's handle.
func propertyValue(factory *datastore.Factory, p PropertyConfig, declared datastore.DataType, handles map[string]string) (datastore.DataValue, error) {
	if declared == datastore.Asset {
		if name, ok := p.Value.(string); ok {
			if handle, found := handles[name]; found {
				return factory.Asset(p.Name, handle)
			}
		}
	}
	return factory.FromAny(p.Name, p.Value)
}

func (c *GamedataConfig) registerAssets(ctx context.Context, assets datastore.AssetManager, baseDir string) (map[string]string, error) {
	handles := make(map[string]string, len(c.Assets))
	if len(c.Assets) == 0 {
		return handles, nil
	}
	if assets == nil {
		return nil, fmt.Errorf("assets are configured but no asset store is available")
	}

	for _, a := range c.Assets {
		data := []byte(a.Content)
		if a.File != "" {
			path := a.File
			if !filepath.IsAbs(path) {
				path = filepath.Join(baseDir, path)
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("asset '%s': failed to read file: %w", a.Name, err)
			}
			data = content
		}

		asset := datastore.NewAsset(a.Name, datastore.AssetType(a.Type), data)
		if err := assets.Put(ctx, asset); err != nil {
			return nil, fmt.Errorf("asset '%s': %w", a.Name, err)
		}
		handles[a.Name] = asset.Handle
	}
	return handles, nil
}
