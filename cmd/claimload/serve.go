package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyeh/claimstats/internal/api"
	"github.com/gyeh/claimstats/internal/archive"
	"github.com/gyeh/claimstats/internal/coordinator"
	"github.com/gyeh/claimstats/internal/db"
	"github.com/gyeh/claimstats/internal/exitcode"
	"github.com/gyeh/claimstats/internal/logging"
	"github.com/gyeh/claimstats/internal/model"
	"github.com/gyeh/claimstats/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the claims processing HTTP service",
	Long: "Starts the upload API and the background worker pool. Completed " +
		"results persist to Postgres when --dsn is set and to Parquet archives " +
		"when --archive is set; otherwise results live in memory only.",
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "HTTP listen address")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent processing workers")
	f.StringVar(&cfg.ArchiveDir, "archive", cfg.ArchiveDir, "Directory for Parquet archives of results")
	f.StringVar(&cfg.PolicyPath, "policy", cfg.PolicyPath, "Path to YAML repricing policy table")
	f.StringVar(&cfg.Scorer, "scorer", cfg.Scorer, "Risk scorer: rules or model")
	rootCmd.AddCommand(serveCmd)
}

// sinks fans a completed job out to every configured destination. A
// failing destination does not stop the others.
type sinks []coordinator.ResultSink

func (s sinks) SaveJob(ctx context.Context, snap model.JobSnapshot) error {
	var errs []error
	for _, sink := range s {
		if err := sink.SaveJob(ctx, snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// archiveSink adapts the Parquet archive writer to the ResultSink interface.
type archiveSink struct {
	dir string
}

func (a archiveSink) SaveJob(_ context.Context, snap model.JobSnapshot) error {
	_, err := archive.WriteSnapshot(a.dir, snap)
	return err
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	runner, err := buildRunner(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("engine setup failed")
		os.Exit(exitcode.UsageError)
	}

	var st *store.Store
	var allSinks sinks
	if cfg.DSN != "" {
		pool, err := db.NewPool(ctx, cfg.DSN)
		if err != nil {
			log.Error().Err(err).Msg("database connection failed")
			os.Exit(exitcode.DBConnError)
		}
		defer pool.Close()

		if err := db.ApplyMigrations(ctx, pool, log); err != nil {
			log.Error().Err(err).Msg("migration failed")
			os.Exit(exitcode.DBConnError)
		}

		st = store.New(pool, logging.Component(log, "store"))
		allSinks = append(allSinks, st)
	}
	if cfg.ArchiveDir != "" {
		allSinks = append(allSinks, archiveSink{dir: cfg.ArchiveDir})
	}

	var sink coordinator.ResultSink
	if len(allSinks) > 0 {
		sink = allSinks
	}

	coord := coordinator.New(coordinator.Config{
		Workers:      cfg.Workers,
		MaxFileBytes: cfg.MaxFileBytes,
		MaxRetries:   cfg.MaxRetries,
	}, runner, sink, logging.Component(log, "coordinator"))

	server := api.NewServer(cfg, coord, st, logging.Component(log, "api"))
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Int("workers", cfg.Workers).Msg("service listening")
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			os.Exit(exitcode.ServeError)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown incomplete")
	}
	if err := coord.Stop(); err != nil {
		log.Warn().Err(err).Msg("coordinator shutdown incomplete")
	}

	log.Info().Msg("shutdown complete")
	return nil
}
