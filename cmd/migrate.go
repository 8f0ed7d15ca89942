package cmd

import (
	"fmt"

	"cinema-core/pkg/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the document collections and their indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.config.Store.Driver != "postgres" {
				return fmt.Errorf("migrate needs STORE_DRIVER=postgres, got %q", a.config.Store.Driver)
			}

			db, err := database.InitDB(cmd.Context(), a.config.Database)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()

			applied, err := database.Migrate(cmd.Context(), db, a.logger)
			if err != nil {
				return err
			}

			a.logger.Info("Migrations complete", zap.Int("applied", applied))
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
			return nil
		},
	}
}
