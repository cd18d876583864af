package main

import (
	"github.com/spf13/cobra"

	"github.com/crm-sirene/internal/logging"
	"github.com/crm-sirene/internal/metrics"
	"github.com/crm-sirene/internal/postal"
	"github.com/crm-sirene/internal/reconcile"
	"github.com/crm-sirene/internal/registry"
	"github.com/crm-sirene/internal/web"
)

func createServeCmd() *cobra.Command {
	var (
		registryPath string
		topN         int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve single-record matching over HTTP",
		Long: `Loads the registry once and answers POST /api/match with the best candidates
of one CRM record. Prometheus metrics are exposed on /metrics.`,
		Run: func(cmd *cobra.Command, args []string) {
			s, err := loadSettings(cmd, map[string]string{
				"server.addr":    "addr",
				"server.api_key": "api-key",
				"threshold":      "threshold",
			})
			if err != nil {
				fatal(err, "Invalid configuration")
			}

			ctx, cancel := signalContext()
			defer cancel()

			records, summary, err := registry.Load(registryPath, s.Registry)
			if err != nil {
				fatal(err, "Failed to load registry")
			}

			engine := reconcile.NewEngine(s.Config, records, nil, postal.Default())

			cfg := web.DefaultConfig()
			cfg.Addr = s.Server.Addr
			cfg.APIKey = s.Server.APIKey
			if topN > 0 {
				cfg.TopN = topN
			}
			if cfg.APIKey == "" {
				logging.Default().Warn().Msg("No API key configured, the API is open")
			}

			server := web.NewServer(cfg, engine, summary, metrics.New())
			if err := server.Start(ctx); err != nil {
				fatal(err, "Server failed")
			}
		},
	}

	cmd.Flags().StringVar(&registryPath, "registry", "SIRENE_normalise.csv", "normalized registry file")
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().String("api-key", "", "required X-API-Key value")
	cmd.Flags().Float64("threshold", 100, "minimum accepted score")
	cmd.Flags().IntVar(&topN, "top", 0, "candidates returned per request")

	return cmd
}
