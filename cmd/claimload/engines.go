package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gyeh/claimstats/internal/config"
	"github.com/gyeh/claimstats/internal/logging"
	"github.com/gyeh/claimstats/internal/pipeline"
	"github.com/gyeh/claimstats/internal/policy"
	"github.com/gyeh/claimstats/internal/reprice"
	"github.com/gyeh/claimstats/internal/risk"
)

// buildRunner assembles the policy table, repricing engine, and risk
// engine into a pipeline runner per the active config.
func buildRunner(cfg config.Config, log zerolog.Logger) (*pipeline.Runner, error) {
	table := policy.Default()
	if cfg.PolicyPath != "" {
		var err error
		table, err = policy.Load(cfg.PolicyPath)
		if err != nil {
			return nil, fmt.Errorf("load policy table: %w", err)
		}
	}

	var scorer risk.Scorer
	switch cfg.Scorer {
	case "", "rules":
		scorer = risk.NewRuleBased(table)
	case "model":
		scorer = risk.NewModelBased(table)
	default:
		return nil, fmt.Errorf("unknown scorer %q", cfg.Scorer)
	}

	bands := risk.DefaultBands()
	if cfg.ReviewBand > 0 {
		bands.Review = cfg.ReviewBand
	}
	if cfg.FlaggedBand > 0 {
		bands.Flagged = cfg.FlaggedBand
	}

	repricer := reprice.New(table)
	riskEngine := risk.NewEngine(scorer, bands)
	runnerLog := logging.Component(log, "pipeline")
	return pipeline.NewRunner(repricer, riskEngine, cfg.InvalidRowThreshold, runnerLog), nil
}
