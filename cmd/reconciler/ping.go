package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crm-sirene/internal/db"
)

func createPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the PostgreSQL connection used by sinks and audit",
		Run: func(cmd *cobra.Command, args []string) {
			if _, err := loadSettings(cmd, nil); err != nil {
				fatal(err, "Invalid configuration")
			}

			ctx, cancel := signalContext()
			defer cancel()

			conn, err := db.NewConnection(ctx, "")
			if err != nil {
				fatal(err, "Failed to connect to database")
			}
			defer conn.Close()

			version, err := conn.ServerVersion(ctx)
			if err != nil {
				fatal(err, "Query failed")
			}
			fmt.Printf("Connected to PostgreSQL %s\n", version)
		},
	}
}
