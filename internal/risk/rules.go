package risk

import (
	"github.com/gyeh/claimstats/internal/model"
	"github.com/gyeh/claimstats/internal/policy"
)

// Weights are the per-rule score contributions. The sum may exceed 100;
// the combined score is clamped.
type Weights struct {
	Excessive int `yaml:"excessive"`
	Duplicate int `yaml:"duplicate"`
	Age       int `yaml:"age"`
	Specialty int `yaml:"specialty"`
}

// DefaultWeights returns the standard rule weights.
func DefaultWeights() Weights {
	return Weights{Excessive: 40, Duplicate: 35, Age: 25, Specialty: 20}
}

// RuleBased is the default scoring strategy: independent rule checks whose
// weights sum into the score. Rules evaluate in a fixed order so flag
// order is stable.
type RuleBased struct {
	table   *policy.Table
	weights Weights
}

// NewRuleBased returns a rule-based scorer with default weights.
func NewRuleBased(table *policy.Table) *RuleBased {
	return &RuleBased{table: table, weights: DefaultWeights()}
}

// NewRuleBasedWeights returns a rule-based scorer with explicit weights.
func NewRuleBasedWeights(table *policy.Table, w Weights) *RuleBased {
	return &RuleBased{table: table, weights: w}
}

// Score runs every rule check and combines the triggered weights,
// clamped to [0,100].
func (r *RuleBased) Score(c *model.ClaimRecord, rep model.Repricing, batch *BatchContext) (int, []model.AnomalyFlag) {
	score := 0
	var flags []model.AnomalyFlag

	if c.BilledCents > r.table.ExcessiveThreshold(c.ServiceCode) {
		score += r.weights.Excessive
		flags = append(flags, model.FlagExcessiveAmount)
	}

	if p, ok := r.table.Lookup(c.ServiceCode); ok {
		if !p.AgeInRange(c.PatientAge) {
			score += r.weights.Age
			flags = append(flags, model.FlagAgeMismatch)
		}
		if !p.SpecialtyTypical(c.ProviderSpecialty) {
			score += r.weights.Specialty
			flags = append(flags, model.FlagSpecialtyMismatch)
		}
	}

	if batch.DuplicateCount(c) > 1 {
		score += r.weights.Duplicate
		flags = append(flags, model.FlagDuplicateSuspect)
	}

	return clampScore(score), flags
}
