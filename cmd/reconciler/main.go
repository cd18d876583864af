package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/crm-sirene/internal/config"
	"github.com/crm-sirene/internal/logging"
)

var (
	// Global configuration state shared by subcommands
	v          *viper.Viper
	configFile string
)

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
	}
	v = config.NewViper()

	// Create root command
	rootCmd := &cobra.Command{
		Use:   "reconciler",
		Short: "CRM to SIRENE reconciliation",
		Long: `Matches CRM company records to establishments of the French SIRENE registry
and enriches them with the establishment identifiers and workforce bracket.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (default ./reconciler.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (console, json)")
	rootCmd.PersistentFlags().Bool("debug", false, "trace matching decisions")
	bindFlag(rootCmd.PersistentFlags(), "log_level", "log-level")
	bindFlag(rootCmd.PersistentFlags(), "log_format", "log-format")
	bindFlag(rootCmd.PersistentFlags(), "debug", "debug")

	// Add subcommands
	rootCmd.AddCommand(createReconcileCmd())
	rootCmd.AddCommand(createMergeCmd())
	rootCmd.AddCommand(createPrepareCmd())
	rootCmd.AddCommand(createServeCmd())
	rootCmd.AddCommand(createAuditCmd())
	rootCmd.AddCommand(createPingCmd())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func bindFlag(flags *pflag.FlagSet, key, name string) {
	if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", name, err))
	}
}

// loadSettings binds the command's flags to their config keys, reads the
// configuration and configures logging. Explicit flags win over RECON_*
// variables, which win over the config file.
func loadSettings(cmd *cobra.Command, bindings map[string]string) (*config.Settings, error) {
	for key, name := range bindings {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return nil, fmt.Errorf("binding flag %s: %w", name, err)
		}
	}

	s, err := config.Load(v, configFile)
	if err != nil {
		return nil, err
	}
	if err := logging.Configure(s.LogLevel, s.LogFormat); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", s.LogLevel, err)
	}
	if s.Debug {
		if err := logging.Configure("debug", s.LogFormat); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// fatal logs err and exits
func fatal(err error, msg string) {
	logging.Default().Fatal().Err(err).Msg(msg)
}
