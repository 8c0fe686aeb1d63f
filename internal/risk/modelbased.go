package risk

import (
	"math"

	"github.com/gyeh/claimstats/internal/model"
	"github.com/gyeh/claimstats/internal/policy"
)

// ModelBased is the statistical scoring strategy. It stands in for a real
// trained model: a fixed-coefficient logistic over claim features, blended
// with the rule score so that rule flags still carry their evidence. Fully
// deterministic; no fitting happens at runtime.
type ModelBased struct {
	rules *RuleBased
}

// NewModelBased returns a model-backed scorer over the same policy table
// used for rule flags.
func NewModelBased(table *policy.Table) *ModelBased {
	return &ModelBased{rules: NewRuleBased(table)}
}

// logistic coefficients. Features: billed amount relative to the
// excessive threshold, realized discount, patient age distance from 40,
// and batch duplicate count.
const (
	coefBilled   = 3.2
	coefDiscount = -0.8
	coefAgeDist  = 0.015
	coefDup      = 0.9
	intercept    = -2.1
)

// Score blends the logistic estimate with the rule score (equal weight)
// and reuses the rule checks for flags.
func (m *ModelBased) Score(c *model.ClaimRecord, rep model.Repricing, batch *BatchContext) (int, []model.AnomalyFlag) {
	ruleScore, flags := m.rules.Score(c, rep, batch)

	threshold := m.rules.table.ExcessiveThreshold(c.ServiceCode)
	billedRatio := 0.0
	if threshold > 0 {
		billedRatio = float64(c.BilledCents) / float64(threshold)
	}

	dupExtra := batch.DuplicateCount(c) - 1
	if dupExtra < 0 {
		dupExtra = 0
	}

	x := intercept +
		coefBilled*billedRatio +
		coefDiscount*(float64(rep.DiscountBPS)/10000) +
		coefAgeDist*math.Abs(float64(c.PatientAge)-40) +
		coefDup*float64(dupExtra)

	modelScore := 100 / (1 + math.Exp(-x))

	return clampScore(int(math.Round((float64(ruleScore) + modelScore) / 2))), flags
}
