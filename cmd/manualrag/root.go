package main

import (
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/manualrag/internal/version"
)

// Persistent flags shared by every subcommand.
var (
	flagEnv    string
	flagConfig string
	flagTenant string
)

var rootCmd = &cobra.Command{
	Use:           "manualrag",
	Short:         "Question answering over equipment manuals",
	Long:          `Ingest manual pages into a Redis or Valkey vector index and answer questions with cited excerpts.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnv, "env", "", "Config environment (default: $ENV or local)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a config file, overrides --env")
	rootCmd.PersistentFlags().StringVar(&flagTenant, "tenant", "", "Tenant namespace (default: tenant.default from config)")
}

// tenantFor resolves the --tenant flag against the configured default.
func tenantFor(a *app) string {
	if flagTenant != "" {
		return flagTenant
	}
	return a.cfg.Tenant.Default
}
