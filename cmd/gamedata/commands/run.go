package commands

import (
	"fmt"

	"github.com/dyluth/gamedata/internal/listing"
	"github.com/dyluth/gamedata/internal/printer"
	"github.com/dyluth/gamedata/internal/script"
	"github.com/dyluth/gamedata/pkg/datastore"
	"github.com/spf13/cobra"
)

var (
	runOutputFormat string
	runQuiet        bool
)

var runCmd = &cobra.Command{
	Use:   "run SCRIPT.lua [SCRIPT.lua...]",
	Short: "Run Lua scripts against the seeded store",
	Long: `Seed the store from the configuration, run each script in order and
print the resulting properties.

Scripts see the store through the restricted view: writes to reserved
types or namespaces fail with RESERVED, and clearing the whole store is
not available. The "datastore" table exposes get, set, set_tagged,
remove, tags, add_tags, remove_tags, with_tag, has, defined, type_of and
create_namespace.

Examples:
  gamedata run scripts/level_up.lua
  gamedata run a.lua b.lua -o jsonl`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScripts,
}

func init() {
	runCmd.Flags().StringVarP(&runOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Do not print the store after the scripts finish")

	rootCmd.AddCommand(runCmd)
}

func runScripts(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	format := listing.OutputFormat(runOutputFormat)
	if err := format.Validate(); err != nil {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", runOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	env, err := loadEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	runner := script.NewRunner(datastore.NewRestrictedDataStoreProxy(env.store))
	for _, path := range args {
		printer.Step("Running %s\n", path)
		if err := runner.RunFile(ctx, path); err != nil {
			return printer.StoreError(fmt.Sprintf("script %s failed", path), err)
		}
	}

	if runQuiet {
		return nil
	}

	if err := listing.ListProperties(ctx, env.store, env.config.Instance, format, nil, cmd.OutOrStdout()); err != nil {
		return printer.StoreError("failed to list properties", err)
	}
	return nil
}
