package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JustJay7/court-data-service/internal/database"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Creates or updates the database schema and exits.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := database.Open(cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Info("Database migrations completed successfully", "driver", cfg.DatabaseDriver)
		return nil
	},
}
