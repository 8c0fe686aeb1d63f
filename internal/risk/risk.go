// Package risk assigns a 0–100 risk score and anomaly flags to repriced
// claims. The scoring strategy is pluggable so a statistical model can
// replace the rule-based default behind the same interface; scoring is a
// pure function of claim, repricing, and batch context.
package risk

import (
	"github.com/gyeh/claimstats/internal/model"
)

// Scorer computes a risk score and the anomaly flags that justify it.
// Implementations must be deterministic and side-effect free.
type Scorer interface {
	Score(c *model.ClaimRecord, rep model.Repricing, batch *BatchContext) (int, []model.AnomalyFlag)
}

// Bands are the score thresholds for claim disposition.
type Bands struct {
	Review  int `yaml:"review"`
	Flagged int `yaml:"flagged"`
}

// DefaultBands returns the standard 70/90 risk bands.
func DefaultBands() Bands {
	return Bands{Review: 70, Flagged: 90}
}

// Engine combines a scoring strategy with disposition bands.
type Engine struct {
	scorer Scorer
	bands  Bands
}

// NewEngine returns a risk engine using the given strategy and bands.
func NewEngine(s Scorer, bands Bands) *Engine {
	return &Engine{scorer: s, bands: bands}
}

// Assess scores one claim and derives its final status:
// Flagged when the score reaches the flagged band or any critical-severity
// flag is present; Review when the score reaches the review band; else
// Processed.
func (e *Engine) Assess(c *model.ClaimRecord, rep model.Repricing, batch *BatchContext) model.ScoredClaim {
	score, flags := e.scorer.Score(c, rep, batch)

	sc := model.ScoredClaim{
		Claim:     *c,
		Repricing: rep,
		RiskScore: score,
		Flags:     flags,
	}
	switch {
	case score >= e.bands.Flagged || sc.HasCriticalFlag():
		sc.Status = model.StatusFlagged
	case score >= e.bands.Review:
		sc.Status = model.StatusReview
	default:
		sc.Status = model.StatusProcessed
	}
	return sc
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
