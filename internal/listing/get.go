package listing

import (
	"context"
	"fmt"
	"io"

	"github.com/dyluth/gamedata/pkg/datastore"
)

// GetNamespace writes one namespace in its replication form as pretty-printed JSON.
// Returns an error carrying datastore.CodeNamespaceNotFound if the namespace does not exist.
func GetNamespace(ctx context.Context, store datastore.DataStore, propertyType, namespace string, w io.Writer) error {
	dto, err := store.ToDto(ctx, propertyType, namespace)
	if err != nil {
		return err
	}

	if err := FormatSingleJSON(w, dto); err != nil {
		return fmt.Errorf("failed to format namespace: %w", err)
	}

	return nil
}

// WriteSnapshot writes a snapshot of the whole store as pretty-printed JSON.
func WriteSnapshot(ctx context.Context, store datastore.DataStore, w io.Writer) error {
	snap, err := datastore.NewSnapshot(ctx, store)
	if err != nil {
		return fmt.Errorf("failed to snapshot store: %w", err)
	}

	return FormatSingleJSON(w, snap)
}

// IsNotFound returns true if err reports a missing namespace.
func IsNotFound(err error) bool {
	return datastore.CodeOf(err) == datastore.CodeNamespaceNotFound
}
