package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JustJay7/court-data-service/internal/config"
	"github.com/JustJay7/court-data-service/internal/database"
	"github.com/JustJay7/court-data-service/internal/server"
	"github.com/JustJay7/court-data-service/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "court-data-service",
	Short: "court-data-service answers case and cause-list queries and records every attempt.",
	Long: `court-data-service looks up case details and daily cause lists through a
court data provider, downloads judgments and keeps a history of every query.
Run without a subcommand to start the HTTP API.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := database.Initialize(cfg)
		if err != nil {
			log.Fatal("Failed to initialize database", "error", err)
		}

		srv, err := server.New(cfg, db, log)
		if err != nil {
			_ = database.Close(db)
			log.Fatal("Failed to initialize server", "error", err)
		}

		log.Info("Starting court data service",
			"host", cfg.Host,
			"port", cfg.Port,
			"provider", cfg.Provider,
			"database", cfg.DatabaseDriver,
		)

		return srv.Run()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger shared by every command.
func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}
