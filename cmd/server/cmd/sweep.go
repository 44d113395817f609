package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JustJay7/court-data-service/internal/database"
	"github.com/JustJay7/court-data-service/internal/provider"
	"github.com/JustJay7/court-data-service/internal/server"
)

var sweepOlderThan time.Duration

func init() {
	sweepCmd.Flags().DurationVar(&sweepOlderThan, "older-than", 15*time.Minute, "fail queries pending for longer than this")
	rootCmd.AddCommand(sweepCmd)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Marks queries left pending by a crashed run as failed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		if err := cfg.CheckSweepAge(sweepOlderThan); err != nil {
			return fmt.Errorf("--older-than: %w", err)
		}

		db, err := database.Initialize(cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)

		svc, err := server.NewService(cfg, db, provider.NewMock(), log)
		if err != nil {
			return err
		}

		n, err := svc.ReconcileStalePending(cmd.Context(), sweepOlderThan)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d pending queries marked failed\n", n)
		return nil
	},
}
