package cmd

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/JustJay7/court-data-service/internal/database"
	"github.com/JustJay7/court-data-service/internal/provider"
	"github.com/JustJay7/court-data-service/internal/server"
)

var (
	historyLimit  int
	historyOffset int
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of queries to show")
	historyCmd.Flags().IntVar(&historyOffset, "offset", 0, "number of queries to skip")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Prints recorded queries, most recent first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyLimit < 0 || historyOffset < 0 {
			return fmt.Errorf("--limit and --offset must not be negative")
		}

		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := database.Initialize(cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)

		svc, err := server.NewService(cfg, db, provider.NewMock(), log)
		if err != nil {
			return err
		}

		queries, err := svc.ListHistory(cmd.Context(), historyLimit, historyOffset)
		if err != nil {
			return err
		}

		renderHistory(cmd, queries)
		return nil
	},
}

func renderHistory(cmd *cobra.Command, queries []database.Query) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"ID", "Time", "Kind", "Query", "Court", "Status", "Error"})

	for _, q := range queries {
		subject := fmt.Sprintf("%s/%s/%s", q.CaseType, q.CaseNumber, q.Year)
		if q.Kind == database.KindCauseList {
			subject = q.CauseListDate
		}
		t.AppendRow(table.Row{
			q.ID,
			q.QueryTime.Local().Format(time.DateTime),
			q.Kind,
			subject,
			fmt.Sprintf("%s (%s)", q.CourtName, q.CourtType),
			q.Status,
			q.ErrorMessage,
		})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}
