package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/claimstats/internal/config"
	"github.com/gyeh/claimstats/internal/exitcode"
)

var cfg = config.New()
var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "claimload",
	Short: "Claims repricing and anomaly detection service",
	Long: "Processes healthcare claims files (CSV/JSON/XLS/XLSX): validates rows, " +
		"reprices against a contract policy table, scores anomaly risk, and serves " +
		"results over HTTP or loads them into Postgres.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			return cfg.LoadFromFile(cfgFile)
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", os.Getenv("DATABASE_URL"), "Postgres connection string (or set DATABASE_URL)")
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&cfgFile, "config", "", "Path to YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitcode.UsageError)
	}
}
