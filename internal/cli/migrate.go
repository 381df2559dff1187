package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"classattend/internal/config"
	"classattend/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	if cfg.StorageBackend != "postgres" {
		return errNeedsPostgres
	}
	db, err := store.NewDB(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	applied, err := db.Migrate(cmd.Context())
	if err != nil {
		return err
	}
	for _, v := range applied {
		fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", v)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Schema up to date")
	return nil
}
