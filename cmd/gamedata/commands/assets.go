package commands

import (
	"fmt"

	"github.com/dyluth/gamedata/internal/printer"
	"github.com/spf13/cobra"
)

var assetsCheckRedis bool

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "List asset handles referenced by the seeded store",
	Long: `List the handles of every asset referenced by an ASSET property of the
seeded store, one per line.

With --redis, each handle is checked against the Redis asset store and
the command fails if any are missing.`,
	Args: cobra.NoArgs,
	RunE: runAssets,
}

func init() {
	assetsCmd.Flags().BoolVar(&assetsCheckRedis, "redis", false, "Check that every handle is present in Redis")

	rootCmd.AddCommand(assetsCmd)
}

func runAssets(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	env, err := loadEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	if assetsCheckRedis && env.redisAssets == nil {
		return printer.Error(
			"no Redis asset store configured",
			"--redis needs a redis section in the config or GAMEDATA_REDIS_ADDR.",
			[]string{"Add to gamedata.yml:\n  redis:\n    addr: localhost:6379"},
		)
	}

	handles, err := env.store.GetAssets(ctx)
	if err != nil {
		return printer.StoreError("failed to collect assets", err)
	}

	out := cmd.OutOrStdout()
	if len(handles) == 0 {
		printer.Info("No assets referenced in instance '%s'\n", env.config.Instance)
		return nil
	}
	for _, handle := range handles {
		fmt.Fprintln(out, handle)
	}

	if !assetsCheckRedis {
		return nil
	}

	missing, err := env.redisAssets.Missing(ctx, handles)
	if err != nil {
		return fmt.Errorf("failed to check Redis assets: %w", err)
	}
	if len(missing) > 0 {
		return printer.ErrorWithContext(
			"assets missing from Redis",
			fmt.Sprintf("%d of %d referenced assets are not stored.", len(missing), len(handles)),
			map[string]string{"instance": env.config.Instance, "missing": fmt.Sprintf("%v", missing)},
			[]string{"Re-run with the assets section of gamedata.yml pointing at the same Redis"},
		)
	}

	printer.Success("All %d assets present in Redis\n", len(handles))
	return nil
}
