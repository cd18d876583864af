package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/crm-sirene/internal/audit"
	"github.com/crm-sirene/internal/db"
)

// createAuditCmd creates the audit query subcommands
func createAuditCmd() *cobra.Command {
	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the decision audit log",
	}

	auditCmd.AddCommand(createAuditStatsCmd())
	auditCmd.AddCommand(createAuditHistoryCmd())

	return auditCmd
}

// withTracker connects to PostgreSQL and hands a tracker to fn
func withTracker(cmd *cobra.Command, fn func(ctx context.Context, t *audit.Tracker) (interface{}, error)) {
	s, err := loadSettings(cmd, nil)
	if err != nil {
		fatal(err, "Invalid configuration")
	}

	ctx, cancel := signalContext()
	defer cancel()

	conn, err := db.NewConnection(ctx, "")
	if err != nil {
		fatal(err, "Failed to connect to database")
	}
	defer conn.Close()

	tracker, err := audit.NewTracker(ctx, conn.DB, s.Debug)
	if err != nil {
		fatal(err, "Failed to open audit log")
	}

	result, err := fn(ctx, tracker)
	if err != nil {
		fatal(err, "Audit query failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fatal(err, "Failed to write result")
	}
}

func createAuditStatsCmd() *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Decision counts and scores of one run, per method",
		Run: func(cmd *cobra.Command, args []string) {
			withTracker(cmd, func(ctx context.Context, t *audit.Tracker) (interface{}, error) {
				return t.GetRunStatistics(ctx, runID)
			})
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "run id printed by reconcile")
	cmd.MarkFlagRequired("run")

	return cmd
}

func createAuditHistoryCmd() *cobra.Command {
	var siret string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Every recorded decision for one establishment",
		Run: func(cmd *cobra.Command, args []string) {
			withTracker(cmd, func(ctx context.Context, t *audit.Tracker) (interface{}, error) {
				return t.GetDecisionHistory(ctx, siret)
			})
		},
	}

	cmd.Flags().StringVar(&siret, "siret", "", "establishment identifier")
	cmd.MarkFlagRequired("siret")

	return cmd
}
