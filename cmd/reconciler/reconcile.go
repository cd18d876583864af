package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/crm-sirene/internal/audit"
	"github.com/crm-sirene/internal/db"
	import_pkg "github.com/crm-sirene/internal/import"
	"github.com/crm-sirene/internal/logging"
	"github.com/crm-sirene/internal/postal"
	"github.com/crm-sirene/internal/reconcile"
	"github.com/crm-sirene/internal/registry"
	"github.com/crm-sirene/internal/sink"
)

func createReconcileCmd() *cobra.Command {
	var (
		crmPath      string
		registryPath string
		outPath      string
		withAudit    bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Match a CRM export against the prepared SIRENE file",
		Long: `Loads the CRM export (CSV or XLSX) and the normalized SIRENE file, matches
every record within its postal-code bucket and writes the enriched CRM file,
saving a full snapshot every --checkpoint-interval records.`,
		Run: func(cmd *cobra.Command, args []string) {
			s, err := loadSettings(cmd, map[string]string{
				"threshold":           "threshold",
				"checkpoint_interval": "checkpoint-interval",
				"jurisdiction":        "jurisdiction",
				"workers":             "workers",
				"max_depth":           "max-depth",
				"fields.address":      "address-column",
				"fields.direct_id":    "direct-id-column",
				"csv_separator":       "sep",
				"csv_bom":             "bom",
				"pg_table":            "pg-table",
			})
			if err != nil {
				fatal(err, "Invalid configuration")
			}
			log := logging.Default()

			ctx, cancel := signalContext()
			defer cancel()

			crm, err := import_pkg.Load(crmPath)
			if err != nil {
				fatal(err, "Failed to load CRM file")
			}
			log.Info().Str("path", crmPath).Int("records", crm.Len()).Msg("CRM loaded")

			records, _, err := registry.Load(registryPath, s.Registry)
			if err != nil {
				fatal(err, "Failed to load registry")
			}

			var sinks sink.Multi
			sinks = append(sinks, sink.NewCSV(outPath, s.Separator(), s.CSVBOM))

			opts := []reconcile.Option{
				reconcile.WithParser(postal.Default()),
				reconcile.WithLogger(log),
			}

			if s.PGTable != "" || withAudit {
				conn, err := db.NewConnection(ctx, "")
				if err != nil {
					fatal(err, "Failed to connect to database")
				}
				defer conn.Close()

				if s.PGTable != "" {
					pg, err := sink.NewPostgres(ctx, conn.DB, s.PGTable)
					if err != nil {
						fatal(err, "Failed to prepare snapshot table")
					}
					sinks = append(sinks, pg)
				}
				if withAudit {
					tracker, err := audit.NewTracker(ctx, conn.DB, s.Debug)
					if err != nil {
						fatal(err, "Failed to prepare decision log")
					}
					opts = append(opts, reconcile.WithAuditor(tracker))
				}
			}

			orch := reconcile.New(s.Config, opts...)
			run, err := orch.Reconcile(ctx, crm, records, sinks)
			if err != nil {
				fatal(err, "Reconciliation failed")
			}

			st := run.Stats
			fmt.Printf("Run %s completed in %s\n", run.ID, run.Duration().Round(time.Millisecond))
			fmt.Printf("  Records:              %d\n", st.Total)
			fmt.Printf("  Matched:              %d\n", st.Matched)
			fmt.Printf("  Direct:               %d\n", st.Direct)
			fmt.Printf("  Unmatched:            %d\n", st.Unmatched)
			fmt.Printf("  No postal bucket:     %d\n", st.NoBucket)
			fmt.Printf("  Other jurisdiction:   %d\n", st.SkippedJurisdiction)
			fmt.Printf("  Address fallbacks:    %d\n", st.AddressFallbacks)
			fmt.Printf("  Checkpoints:          %d (%d failed)\n", st.Checkpoints, st.CheckpointFailures)
			if st.Total > 0 {
				fmt.Printf("  Match rate:           %.1f%%\n", float64(st.Matched+st.Direct)/float64(st.Total)*100)
			}
			fmt.Printf("Output: %s\n", outPath)
		},
	}

	cmd.Flags().StringVar(&crmPath, "crm", "", "CRM export (CSV or XLSX)")
	cmd.Flags().StringVar(&registryPath, "registry", "", "normalized SIRENE file")
	cmd.Flags().StringVar(&outPath, "out", "crm_mis_a_jour.csv", "enriched output file")
	cmd.Flags().BoolVar(&withAudit, "audit", false, "log accepted decisions to PostgreSQL")
	cmd.Flags().Float64("threshold", reconcile.DefaultConfig().Threshold, "minimum score to accept a candidate")
	cmd.Flags().Int("checkpoint-interval", reconcile.DefaultConfig().CheckpointInterval, "records between snapshots")
	cmd.Flags().String("jurisdiction", reconcile.DefaultConfig().Jurisdiction, "country value of records to process (empty: all)")
	cmd.Flags().Int("workers", 1, "parallel matching workers")
	cmd.Flags().Int("max-depth", reconcile.DefaultConfig().MaxDepth, "headquarters hops when resolving workforce")
	cmd.Flags().String("address-column", "", "CRM address column parsed when the postal code is empty")
	cmd.Flags().String("direct-id-column", "", "CRM column holding a known establishment id")
	cmd.Flags().String("sep", ",", "output CSV separator")
	cmd.Flags().Bool("bom", false, "prefix the output with a UTF-8 BOM")
	cmd.Flags().String("pg-table", "", "also write snapshots to this PostgreSQL table")
	cmd.MarkFlagRequired("crm")
	cmd.MarkFlagRequired("registry")

	return cmd
}
