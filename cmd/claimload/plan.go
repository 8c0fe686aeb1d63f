package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gyeh/claimstats/internal/claims"
	"github.com/gyeh/claimstats/internal/decode"
	"github.com/gyeh/claimstats/internal/exitcode"
	"github.com/gyeh/claimstats/internal/logging"
	"github.com/gyeh/claimstats/internal/model"
	"github.com/gyeh/claimstats/internal/normalize"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Dry-run validation and stats (no writes)",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().StringVar(&cfg.FilePath, "file", "", "Path to claims file (required)")
	planCmd.Flags().StringVar(&cfg.Format, "format", "", "File format: csv, json, xls, xlsx (default: from extension)")
	_ = planCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)

	if err := cfg.ValidateFile(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	sha, err := normalize.FileHash(cfg.FilePath)
	if err != nil {
		log.Error().Err(err).Msg("failed to hash file")
		os.Exit(exitcode.ValidationError)
	}
	stat, err := os.Stat(cfg.FilePath)
	if err != nil {
		log.Error().Err(err).Msg("failed to stat file")
		os.Exit(exitcode.ValidationError)
	}

	format, ok := decode.Sniff(cfg.FilePath)
	if cfg.Format != "" {
		format, ok = model.ParseFormat(cfg.Format)
	}
	if !ok {
		log.Error().Str("file", cfg.FilePath).Msg("unsupported file format")
		os.Exit(exitcode.UsageError)
	}

	data, err := os.ReadFile(cfg.FilePath)
	if err != nil {
		log.Error().Err(err).Msg("read input file")
		os.Exit(exitcode.ValidationError)
	}

	rows, err := decode.Rows(data, format)
	if err != nil {
		log.Error().Err(err).Msg("decode failed")
		os.Exit(exitcode.DecodeError)
	}

	valid, rowErrs := claims.ValidateBatch(rows)

	codeCounts := make(map[string]int64)
	var billedCents int64
	for i := range valid {
		codeCounts[valid[i].ServiceCode]++
		billedCents += valid[i].BilledCents
	}

	fieldCounts := make(map[string]int64)
	for _, re := range rowErrs {
		fieldCounts[re.Field]++
	}

	fmt.Println("=== claimload plan ===")
	fmt.Printf("File:       %s\n", cfg.FilePath)
	fmt.Printf("SHA-256:    %s\n", sha)
	fmt.Printf("Size:       %d bytes\n", stat.Size())
	fmt.Printf("Format:     %s\n", format)
	fmt.Printf("Total rows: %d\n", len(rows))
	fmt.Printf("Valid:      %d\n", len(valid))
	fmt.Printf("Invalid:    %d\n", len(rowErrs))
	fmt.Printf("Billed:     $%.2f\n", normalize.CentsToDollars(billedCents))

	if len(codeCounts) > 0 {
		fmt.Println("\nService code distribution:")
		codes := make([]string, 0, len(codeCounts))
		for code := range codeCounts {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			fmt.Printf("  %-10s %6d rows\n", code, codeCounts[code])
		}
	}

	if len(fieldCounts) > 0 {
		fmt.Println("\nRejections by field:")
		fields := make([]string, 0, len(fieldCounts))
		for f := range fieldCounts {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Printf("  %-20s %6d rows\n", f, fieldCounts[f])
		}
	}

	return nil
}
