package main

import (
	"fmt"

	"github.com/spf13/cobra"

	import_pkg "github.com/crm-sirene/internal/import"
	"github.com/crm-sirene/internal/merge"
	"github.com/crm-sirene/internal/sink"
)

func createMergeCmd() *cobra.Command {
	var (
		orionPath  string
		updatePath string
		outPath    string
	)

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Apply reconciliation results to the Orion export by unique id",
		Long: `Copies the SIRET, workforce and score of the best reconciliation result of
every internal identifier onto the Orion export. Results below --min-score are
ignored. The output is ';' separated with a UTF-8 BOM.`,
		Run: func(cmd *cobra.Command, args []string) {
			s, err := loadSettings(cmd, map[string]string{"merge_min_score": "min-score"})
			if err != nil {
				fatal(err, "Invalid configuration")
			}

			orion, err := import_pkg.Load(orionPath)
			if err != nil {
				fatal(err, "Failed to load Orion file")
			}
			updates, err := import_pkg.Load(updatePath)
			if err != nil {
				fatal(err, "Failed to load reconciliation results")
			}

			opts := merge.DefaultOptions()
			opts.MinScore = s.MergeMin

			out, report, err := merge.Merge(orion, updates, opts)
			if err != nil {
				fatal(err, "Merge failed")
			}
			if err := sink.WriteTable(outPath, out, ';', true); err != nil {
				fatal(err, "Failed to write output")
			}

			fmt.Printf("Valid results (score >= %.0f): %d\n", opts.MinScore, report.Valid)
			fmt.Printf("Rows updated: %d / %d\n", report.Applied, report.OutputRows)
			if report.OutputRows > 0 {
				fmt.Printf("Update rate: %.1f%%\n", float64(report.Applied)/float64(report.OutputRows)*100)
			}
			fmt.Printf("Output: %s\n", outPath)
		},
	}

	cmd.Flags().StringVar(&orionPath, "orion", "", "Orion export (CSV or XLSX)")
	cmd.Flags().StringVar(&updatePath, "update", "", "reconciled CRM file")
	cmd.Flags().StringVar(&outPath, "out", "orion_final.csv", "merged output file")
	cmd.Flags().Float64("min-score", 130, "minimum score of applied results")
	cmd.MarkFlagRequired("orion")
	cmd.MarkFlagRequired("update")

	return cmd
}
