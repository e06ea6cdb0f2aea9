package printer

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/dyluth/gamedata/pkg/datastore"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects Out and ErrOut for the duration of the test
func captureOutput(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	prevOut, prevErr, prevNoColor := Out, ErrOut, color.NoColor
	Out, ErrOut, color.NoColor = &out, &errOut, true
	t.Cleanup(func() {
		Out, ErrOut, color.NoColor = prevOut, prevErr, prevNoColor
	})
	return &out, &errOut
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		_, errOut := captureOutput(t)
		err := Error("Test Error", "This is a test error", []string{})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, errOut.String(), "This is a test error")
	})

	t.Run("single suggestion printed plainly", func(t *testing.T) {
		_, errOut := captureOutput(t)
		err := Error("Test Error", "Explanation", []string{"Try this fix"})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, errOut.String(), "Try this fix")
		assert.NotContains(t, errOut.String(), "Either:")
	})

	t.Run("multiple suggestions are numbered", func(t *testing.T) {
		_, errOut := captureOutput(t)
		err := Error("Test Error", "Explanation", []string{
			"First option",
			"Second option",
		})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, errOut.String(), "Either:")
		assert.Contains(t, errOut.String(), "  2. Second option")
	})
}

func TestErrorWithContext(t *testing.T) {
	_, errOut := captureOutput(t)
	context := map[string]string{
		"namespace":     "goblin1",
		"property_type": "token",
	}
	err := ErrorWithContext("Test Error", "Explanation", context, nil)
	require.Equal(t, "Test Error", err.Error())

	output := errOut.String()
	assert.Contains(t, output, "  namespace: goblin1\n  property_type: token\n")
}

func TestStoreError(t *testing.T) {
	t.Run("uses code and metadata", func(t *testing.T) {
		_, errOut := captureOutput(t)
		store := datastore.NewMemoryDataStore()
		_, storeErr := store.SetLongProperty(context.Background(), "token", "nobody", "hp", 1)
		require.Error(t, storeErr)

		err := StoreError("Write failed", fmt.Errorf("wrapped: %w", storeErr))
		assert.Equal(t, "Write failed: NAMESPACE_NOT_FOUND", err.Error())
		assert.Contains(t, errOut.String(), "property_type: token")
		assert.Contains(t, errOut.String(), "Create the namespace first")
	})

	t.Run("falls back for plain errors", func(t *testing.T) {
		_, errOut := captureOutput(t)
		err := StoreError("Write failed", fmt.Errorf("disk on fire"))
		assert.Equal(t, "Write failed", err.Error())
		assert.Contains(t, errOut.String(), "disk on fire")
	})
}

func TestMessages(t *testing.T) {
	out, errOut := captureOutput(t)
	Success("done\n")
	Warning("careful\n")
	Step("next\n")
	Info("%d items\n", 3)

	output := out.String()
	assert.Contains(t, output, "✓ done")
	assert.Contains(t, output, "3 items")
	assert.NotContains(t, output, "careful")
	assert.NotContains(t, output, "next")

	status := errOut.String()
	assert.Contains(t, status, "⚠️  careful")
	assert.Contains(t, status, "→ next")
}
