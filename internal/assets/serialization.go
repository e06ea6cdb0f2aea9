package assets

import (
	"fmt"

	"github.com/dyluth/gamedata/pkg/datastore"
)

// Asset hashes carry four fields: handle, name, type and data. Data is stored
// as a Redis string, which is binary safe.

func assetToHash(a *datastore.AssetContent) map[string]interface{} {
	return map[string]interface{}{
		"handle": a.Handle,
		"name":   a.Name,
		"type":   string(a.Type),
		"data":   a.Data,
	}
}

func hashToAsset(hash map[string]string) (*datastore.AssetContent, error) {
	for _, field := range []string{"handle", "type", "data"} {
		if _, ok := hash[field]; !ok {
			return nil, fmt.Errorf("missing field %q", field)
		}
	}

	a := &datastore.AssetContent{
		Handle: hash["handle"],
		Name:   hash["name"],
		Type:   datastore.AssetType(hash["type"]),
		Data:   []byte(hash["data"]),
	}
	if err := validateAsset(a); err != nil {
		return nil, err
	}
	return a, nil
}

// validateAsset checks the type and that the handle matches the content.
func validateAsset(a *datastore.AssetContent) error {
	if a == nil {
		return fmt.Errorf("asset cannot be nil")
	}
	if err := a.Type.Validate(); err != nil {
		return err
	}
	if want := datastore.AssetHandle(a.Data); a.Handle != want {
		return fmt.Errorf("handle %s does not match content hash %s", a.Handle, want)
	}
	return nil
}
