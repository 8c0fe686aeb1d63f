package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gyeh/claimstats/internal/archive"
	"github.com/gyeh/claimstats/internal/db"
	"github.com/gyeh/claimstats/internal/decode"
	"github.com/gyeh/claimstats/internal/exitcode"
	"github.com/gyeh/claimstats/internal/logging"
	"github.com/gyeh/claimstats/internal/model"
	"github.com/gyeh/claimstats/internal/pipeline"
	"github.com/gyeh/claimstats/internal/store"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process one claims file end to end",
	Long: "Runs a single file through validation, repricing, and risk scoring. " +
		"Results go to the database when --dsn is set and to a Parquet archive " +
		"when --archive is set.",
	RunE: runProcess,
}

func init() {
	f := processCmd.Flags()
	f.StringVar(&cfg.FilePath, "file", "", "Path to claims file (required)")
	f.StringVar(&cfg.Format, "format", "", "File format: csv, json, xls, xlsx (default: from extension)")
	f.StringVar(&cfg.ArchiveDir, "archive", cfg.ArchiveDir, "Directory for Parquet archives of results")
	f.StringVar(&cfg.PolicyPath, "policy", cfg.PolicyPath, "Path to YAML repricing policy table")
	f.StringVar(&cfg.Scorer, "scorer", cfg.Scorer, "Risk scorer: rules or model")
	_ = processCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if err := cfg.ValidateFile(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
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
	if int64(len(data)) > cfg.MaxFileBytes {
		log.Error().Int("size", len(data)).Int64("limit", cfg.MaxFileBytes).Msg("file exceeds size limit")
		os.Exit(exitcode.ValidationError)
	}

	runner, err := buildRunner(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("engine setup failed")
		os.Exit(exitcode.UsageError)
	}

	job := pipeline.NewJob(filepath.Base(cfg.FilePath), format, data)
	summary, err := runner.Run(ctx, job)
	if err != nil {
		snap := job.Snapshot()
		log.Error().Err(err).Str("fail_reason", string(snap.FailReason)).Msg("processing failed")
		switch snap.FailReason {
		case model.ReasonDecodeError:
			os.Exit(exitcode.DecodeError)
		case model.ReasonTooManyInvalidRows:
			os.Exit(exitcode.ValidationError)
		default:
			os.Exit(exitcode.ProcessError)
		}
	}

	snap := job.Snapshot()

	if cfg.DSN != "" {
		pool, err := db.NewPool(ctx, cfg.DSN)
		if err != nil {
			log.Error().Err(err).Msg("database connection failed")
			os.Exit(exitcode.DBConnError)
		}
		defer pool.Close()

		st := store.New(pool, logging.Component(log, "store"))
		if err := st.SaveJob(ctx, snap); err != nil {
			log.Error().Err(err).Msg("persist results failed")
			os.Exit(exitcode.ProcessError)
		}
	}

	if cfg.ArchiveDir != "" {
		path, err := archive.WriteSnapshot(cfg.ArchiveDir, snap)
		if err != nil {
			log.Error().Err(err).Msg("archive write failed")
			os.Exit(exitcode.ProcessError)
		}
		log.Info().Str("archive", path).Msg("results archived")
	}

	fmt.Printf("Process complete: %d rows read, %d scored, %d flagged, %d rejected (%.1fs)\n",
		summary.RowsRead, summary.RowsScored, summary.RowsFlagged, summary.RowsRejected,
		summary.DurationTotal.Seconds())
	return nil
}
