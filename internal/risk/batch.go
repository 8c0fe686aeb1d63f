package risk

import "github.com/gyeh/claimstats/internal/model"

// BatchContext holds the cross-claim indexes needed by batch-level rules.
// Built once per file during the parsing stage; read-only afterwards.
type BatchContext struct {
	dup map[string]int
}

// BuildBatchContext indexes a batch of valid claims for duplicate
// detection: same patient, service code, and date of service.
func BuildBatchContext(recs []model.ClaimRecord) *BatchContext {
	dup := make(map[string]int, len(recs))
	for i := range recs {
		dup[recs[i].DuplicateKey()]++
	}
	return &BatchContext{dup: dup}
}

// DuplicateCount returns how many claims in the batch share this claim's
// patient/service/date identity (including the claim itself).
func (b *BatchContext) DuplicateCount(c *model.ClaimRecord) int {
	if b == nil {
		return 0
	}
	return b.dup[c.DuplicateKey()]
}
