package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/crm-sirene/internal/cache"
	"github.com/crm-sirene/internal/etl"
)

// createPrepareCmd creates the registry preparation subcommands
func createPrepareCmd() *cobra.Command {
	prepareCmd := &cobra.Command{
		Use:   "prepare",
		Short: "Prepare the SIRENE stock files",
		Long: `Turns the SIRENE establishment and legal unit stock files into the normalized
registry file used by reconcile: filter, then names, then normalize.`,
	}

	prepareCmd.AddCommand(createPrepareFilterCmd())
	prepareCmd.AddCommand(createPrepareNamesCmd())
	prepareCmd.AddCommand(createPrepareNormalizeCmd())

	return prepareCmd
}

// transformFile streams in through fn into a temporary file renamed to out
func transformFile(in, out string, fn func(r io.Reader, w io.Writer) (etl.Stats, error)) (etl.Stats, error) {
	src, err := os.Open(in)
	if err != nil {
		return etl.Stats{}, fmt.Errorf("failed to open %s: %w", in, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(out), "."+filepath.Base(out)+".*.tmp")
	if err != nil {
		return etl.Stats{}, fmt.Errorf("failed to create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriterSize(tmp, 1<<20)
	stats, err := fn(bufio.NewReaderSize(src, 1<<20), w)
	if err != nil {
		tmp.Close()
		return stats, err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return stats, fmt.Errorf("failed to write %s: %w", out, err)
	}
	if err := tmp.Close(); err != nil {
		return stats, err
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		return stats, fmt.Errorf("failed to replace %s: %w", out, err)
	}
	return stats, nil
}

func printStats(stats etl.Stats, out string) {
	fmt.Printf("Rows read:    %d\n", stats.Read)
	fmt.Printf("Rows written: %d\n", stats.Written)
	fmt.Printf("Rows dropped: %d\n", stats.Dropped)
	if stats.Read > 0 {
		fmt.Printf("Kept:         %.2f%%\n", float64(stats.Written)/float64(stats.Read)*100)
	}
	fmt.Printf("Output: %s\n", out)
}

func createPrepareFilterCmd() *cobra.Command {
	var in, out string

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Keep employer establishments with a usable workforce bracket",
		Run: func(cmd *cobra.Command, args []string) {
			s, err := loadSettings(cmd, nil)
			if err != nil {
				fatal(err, "Invalid configuration")
			}

			stats, err := transformFile(in, out, func(r io.Reader, w io.Writer) (etl.Stats, error) {
				return etl.FilterEstablishments(s.Debug, r, w, etl.DefaultFilterRules())
			})
			if err != nil {
				fatal(err, "Filter failed")
			}
			printStats(stats, out)
		},
	}

	cmd.Flags().StringVar(&in, "in", "StockEtablissement_utf8.csv", "establishment stock file")
	cmd.Flags().StringVar(&out, "out", "Donnees_Filtrees_Completes.csv", "filtered output")

	return cmd
}

func createPrepareNamesCmd() *cobra.Command {
	var in, units, cachePath, out string

	cmd := &cobra.Command{
		Use:   "names",
		Short: "Prepend the legal unit name to every establishment",
		Run: func(cmd *cobra.Command, args []string) {
			s, err := loadSettings(cmd, nil)
			if err != nil {
				fatal(err, "Invalid configuration")
			}

			ctx, cancel := signalContext()
			defer cancel()

			names, err := cache.Open(cachePath)
			if err != nil {
				fatal(err, "Failed to open name cache")
			}
			defer names.Close()

			if _, err := names.Sync(ctx, units); err != nil {
				fatal(err, "Failed to build name cache")
			}

			stats, err := transformFile(in, out, func(r io.Reader, w io.Writer) (etl.Stats, error) {
				return etl.JoinNames(ctx, s.Debug, r, w, names)
			})
			if err != nil {
				fatal(err, "Join failed")
			}
			printStats(stats, out)
		},
	}

	cmd.Flags().StringVar(&in, "in", "Donnees_Filtrees_Completes.csv", "filtered establishments")
	cmd.Flags().StringVar(&units, "units", "StockUniteLegale_utf8.csv", "legal unit stock file")
	cmd.Flags().StringVar(&cachePath, "cache", "unite_legale.db", "legal unit name cache")
	cmd.Flags().StringVar(&out, "out", "Donnees_Filtrees_Completes_avec_noms.csv", "output with names")

	return cmd
}

func createPrepareNormalizeCmd() *cobra.Command {
	var in, out string

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Add the normalized company name column",
		Run: func(cmd *cobra.Command, args []string) {
			s, err := loadSettings(cmd, nil)
			if err != nil {
				fatal(err, "Invalid configuration")
			}

			stats, err := transformFile(in, out, func(r io.Reader, w io.Writer) (etl.Stats, error) {
				return etl.NormalizeNames(s.Debug, r, w)
			})
			if err != nil {
				fatal(err, "Normalization failed")
			}
			printStats(stats, out)
		},
	}

	cmd.Flags().StringVar(&in, "in", "Donnees_Filtrees_Completes_avec_noms.csv", "establishments with names")
	cmd.Flags().StringVar(&out, "out", "SIRENE_normalise.csv", "normalized registry file")

	return cmd
}
