package commands

import (
	"context"
	"time"

	"github.com/dyluth/gamedata/internal/listing"
	"github.com/dyluth/gamedata/internal/printer"
	"github.com/dyluth/gamedata/pkg/datastore"
	"github.com/spf13/cobra"
)

var dtoTimeout time.Duration

var dtoCmd = &cobra.Command{
	Use:   "dto",
	Short: "Print the replication snapshot of the seeded store",
	Long: `Print every namespace of the seeded store, plus the handles of the
assets its properties reference, as one JSON snapshot.

The snapshot is taken on the store's worker pool (sized by the workers
setting or GAMEDATA_WORKERS).`,
	Args: cobra.NoArgs,
	RunE: runDto,
}

func init() {
	dtoCmd.Flags().DurationVar(&dtoTimeout, "timeout", 10*time.Second, "Maximum time to wait for the snapshot")

	rootCmd.AddCommand(dtoCmd)
}

func runDto(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	env, err := loadEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	async := datastore.NewAsyncDataStore(env.store, datastore.NewPool(env.config.Workers))

	waitCtx, cancel := context.WithTimeout(ctx, dtoTimeout)
	defer cancel()

	snap, err := async.Snapshot().Await(waitCtx)
	if err != nil {
		return printer.StoreError("failed to snapshot store", err)
	}

	if err := snap.Validate(); err != nil {
		return printer.StoreError("invalid snapshot", err)
	}

	return listing.FormatSingleJSON(cmd.OutOrStdout(), snap)
}
