package commands

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/gamedata/internal/printer"
	"github.com/dyluth/gamedata/pkg/datastore"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `version: "1.0"
instance: test
namespaces:
  - type: token
    namespace: goblin1
    properties:
      - name: hp
        type: long
        value: 12
        tags: [wounded]
      - name: mp
        type: long
      - name: loot
        type: asset
        value: loot
  - type: "system:settings"
    namespace: main
    properties:
      - name: difficulty
        value: hard
assets:
  - name: loot
    type: json
    content: '["gold","dagger"]'
`

// executeCommand runs the root command with args and returns what was
// written to stdout and stderr, by cobra or by the printer.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	resetFlags(rootCmd)

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)

	oldOut, oldErrOut, oldNoColor := printer.Out, printer.ErrOut, color.NoColor
	printer.Out, printer.ErrOut = stdout, stderr
	color.NoColor = true
	defer func() {
		printer.Out, printer.ErrOut, color.NoColor = oldOut, oldErrOut, oldNoColor
	}()

	err := Execute()
	return stdout.String(), stderr.String(), err
}

// resetFlags restores every flag to its default so package-level flag
// variables do not leak between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gamedata.yml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0644))
	return path
}

func writeScript(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.lua")
	require.NoError(t, os.WriteFile(path, []byte(source), 0644))
	return path
}

func TestInspect_ListMode(t *testing.T) {
	path := writeConfig(t)

	t.Run("table lists every property", func(t *testing.T) {
		output, _, err := executeCommand(t, "inspect", "--config", path)
		require.NoError(t, err)

		assert.Contains(t, output, "Properties for instance 'test'")
		assert.Contains(t, output, "hp")
		assert.Contains(t, output, "difficulty")
		assert.Contains(t, output, "[wounded]")
		assert.Contains(t, output, "4 properties found")
	})

	t.Run("filters narrow the table", func(t *testing.T) {
		output, _, err := executeCommand(t, "inspect", "--config", path, "--type", "tok*", "--defined")
		require.NoError(t, err)

		assert.Contains(t, output, "2 properties found")
		assert.NotContains(t, output, "difficulty")
	})

	t.Run("jsonl emits one object per property", func(t *testing.T) {
		output, _, err := executeCommand(t, "inspect", "--config", path, "--data-type", "LONG", "-o", "jsonl")
		require.NoError(t, err)

		var names []string
		scanner := bufio.NewScanner(strings.NewReader(output))
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "{") {
				continue
			}
			var row map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(line), &row))
			assert.Equal(t, "token", row["type"])
			names = append(names, row["name"].(string))
		}
		assert.Equal(t, []string{"hp", "mp"}, names)
	})

	t.Run("invalid output format", func(t *testing.T) {
		_, output, err := executeCommand(t, "inspect", "--config", path, "-o", "xml")
		require.Error(t, err)
		assert.Contains(t, output, "Unknown format: xml")
	})

	t.Run("invalid data type", func(t *testing.T) {
		_, output, err := executeCommand(t, "inspect", "--config", path, "--data-type", "decimal")
		require.Error(t, err)
		assert.Contains(t, output, "invalid data type")
	})
}

func TestInspect_GetMode(t *testing.T) {
	path := writeConfig(t)

	output, _, err := executeCommand(t, "inspect", "--config", path, "token", "goblin1")
	require.NoError(t, err)

	var dto datastore.GameDataDto
	require.NoError(t, json.Unmarshal([]byte(output), &dto))
	assert.Equal(t, "token", dto.Type)
	assert.Equal(t, "goblin1", dto.Namespace)
	assert.Len(t, dto.Values, 3)

	_, output, err = executeCommand(t, "inspect", "--config", path, "token", "nobody")
	require.Error(t, err)
	assert.Contains(t, output, "namespace not found")
}

func TestInspect_MissingConfigUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yml")

	output, status, err := executeCommand(t, "inspect", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, output, "No properties found for instance 'default'")
	assert.Contains(t, status, "No "+path+" found, starting with an empty store")

	output, _, err = executeCommand(t, "assets", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, output, "No assets referenced in instance 'default'")
}

func TestDto(t *testing.T) {
	path := writeConfig(t)

	output, _, err := executeCommand(t, "dto", "--config", path)
	require.NoError(t, err)

	var snap datastore.Snapshot
	require.NoError(t, json.Unmarshal([]byte(output), &snap))
	require.NoError(t, snap.Validate())
	assert.Len(t, snap.Data, 2)
	assert.Equal(t, []string{datastore.AssetHandle([]byte(`["gold","dagger"]`))}, snap.Assets)
}

func TestRun(t *testing.T) {
	path := writeConfig(t)

	t.Run("script modifies the store", func(t *testing.T) {
		scriptPath := writeScript(t, `
			local hp = datastore.get("token", "goblin1", "hp")
			datastore.set("token", "goblin1", "hp", hp + 5)
			datastore.remove_tags("token", "goblin1", "hp", {"wounded"})
		`)

		output, status, err := executeCommand(t, "run", "--config", path, "-o", "jsonl", scriptPath)
		require.NoError(t, err)
		assert.Contains(t, status, "→ Running "+scriptPath)

		found := false
		for _, line := range strings.Split(output, "\n") {
			if !strings.Contains(line, `"name":"hp"`) {
				continue
			}
			found = true
			assert.Contains(t, line, "17")
			assert.NotContains(t, line, "wounded")
		}
		assert.True(t, found, "hp row should be listed")
	})

	t.Run("reserved namespaces are read only", func(t *testing.T) {
		scriptPath := writeScript(t, `
			assert(datastore.get("system:settings", "main", "difficulty") == "hard")
			datastore.set("system:settings", "main", "difficulty", "easy")
		`)

		_, output, err := executeCommand(t, "run", "--config", path, scriptPath)
		require.Error(t, err)
		assert.Contains(t, output, string(datastore.CodeReserved))
	})

	t.Run("quiet skips the listing", func(t *testing.T) {
		scriptPath := writeScript(t, `datastore.set("token", "goblin1", "mp", 3)`)

		output, _, err := executeCommand(t, "run", "--config", path, "-q", scriptPath)
		require.NoError(t, err)
		assert.NotContains(t, output, "properties found")
	})

	t.Run("requires a script", func(t *testing.T) {
		_, _, err := executeCommand(t, "run", "--config", path)
		assert.Error(t, err)
	})
}

func TestAssets(t *testing.T) {
	path := writeConfig(t)
	handle := datastore.AssetHandle([]byte(`["gold","dagger"]`))

	t.Run("lists referenced handles", func(t *testing.T) {
		output, _, err := executeCommand(t, "assets", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, output, handle)
	})

	t.Run("redis check without redis configured", func(t *testing.T) {
		_, output, err := executeCommand(t, "assets", "--config", path, "--redis")
		require.Error(t, err)
		assert.Contains(t, output, "no Redis asset store configured")
	})

	t.Run("redis check with redis configured", func(t *testing.T) {
		mr := miniredis.RunT(t)
		t.Setenv("GAMEDATA_REDIS_ADDR", mr.Addr())

		output, _, err := executeCommand(t, "assets", "--config", path, "--redis")
		require.NoError(t, err)
		assert.Contains(t, output, handle)
		assert.Contains(t, output, "All 1 assets present in Redis")
		assert.True(t, mr.Exists("gamedata:test:asset:"+handle))
	})
}
