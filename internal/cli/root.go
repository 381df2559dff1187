// Package cli implements attendctl, the operator tool for the attendance
// database.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"classattend/internal/bootstrap"
	"classattend/internal/config"
	"classattend/internal/observability"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "attendctl",
	Short: "Administer the classroom attendance database",
	Long: `attendctl manages the timetable, exports attendance and applies schema
migrations against the Postgres backend used by the api and worker.

Configuration is read from the environment (and .env), the same keys the
server uses. Most commands need STORAGE_BACKEND=postgres.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogging)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
}

func initLogging() {
	observability.SetupLogger(logLevel, "text")
}

var errNeedsPostgres = errors.New("this command needs STORAGE_BACKEND=postgres")

// openStores loads config and connects to Postgres.
func openStores(ctx context.Context) (config.App, *bootstrap.Stores, error) {
	cfg := config.Load()
	if cfg.StorageBackend != "postgres" {
		return cfg, nil, errNeedsPostgres
	}
	stores, err := bootstrap.OpenStores(ctx, cfg)
	if err != nil {
		return cfg, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return cfg, stores, nil
}

// mustGetString gets a string flag value or panics if the flag doesn't exist.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}
