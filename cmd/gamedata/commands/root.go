package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/gamedata/internal/assets"
	"github.com/dyluth/gamedata/internal/config"
	"github.com/dyluth/gamedata/internal/printer"
	"github.com/dyluth/gamedata/pkg/datastore"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gamedata",
	Short: "gamedata - namespaced typed property store",
	Long: `gamedata loads a typed, namespaced property store from gamedata.yml,
lets Lua scripts read and modify it through a restricted view, and prints
its contents or its replication snapshot.

Assets referenced by properties are kept in memory, or in Redis when a
redis section (or GAMEDATA_REDIS_ADDR) is configured.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// If no subcommand is specified, show help
		return cmd.Help()
	},
	// Enable strict flag parsing - unknown flags will cause an error
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Silence Cobra's default error and usage printing
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultFile, "Path to gamedata.yml")
}

// environment is a seeded store plus the resources backing it.
type environment struct {
	config      *config.GamedataConfig
	store       *datastore.MemoryDataStore
	assetStore  datastore.AssetManager
	redisAssets *assets.Store // nil unless Redis is configured
}

func (e *environment) Close() error {
	if e.redisAssets != nil {
		return e.redisAssets.Close()
	}
	return nil
}

// loadEnvironment reads the configuration and seeds a fresh store from it.
func loadEnvironment(ctx context.Context) (*environment, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		printer.Warning("No %s found, starting with an empty store\n", configPath)
	}

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, printer.Error(
			"invalid configuration",
			err.Error(),
			[]string{fmt.Sprintf("Check %s", configPath)},
		)
	}

	env := &environment{config: cfg}
	if cfg.Redis != nil {
		redisAssets, err := assets.NewStore(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Instance)
		if err != nil {
			return nil, fmt.Errorf("failed to create asset store: %w", err)
		}
		if err := redisAssets.Ping(ctx); err != nil {
			redisAssets.Close()
			return nil, printer.ErrorWithContext(
				"Redis connection failed",
				fmt.Sprintf("Could not connect to Redis at %s", cfg.Redis.Addr),
				map[string]string{"instance": cfg.Instance},
				[]string{"Check that Redis is running, or remove the redis section from the config"},
			)
		}
		env.redisAssets = redisAssets
		env.assetStore = redisAssets
	} else {
		env.assetStore = datastore.NewMemoryAssetStore()
	}

	env.store = datastore.NewMemoryDataStore(datastore.WithAssetManager(env.assetStore))
	if err := cfg.Seed(ctx, env.store, env.assetStore, filepath.Dir(configPath)); err != nil {
		env.Close()
		return nil, printer.StoreError("failed to seed store", err)
	}

	return env, nil
}
