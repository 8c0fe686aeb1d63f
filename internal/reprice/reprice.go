// Package reprice maps validated claims to allowed and repriced amounts
// using the service-code policy table. Output is deterministic: fixed
// inputs and a fixed table always produce the same cents.
package reprice

import (
	"fmt"

	"github.com/gyeh/claimstats/internal/model"
	"github.com/gyeh/claimstats/internal/policy"
)

// Engine reprices claims against an immutable policy table.
type Engine struct {
	table *policy.Table
}

// New returns a repricing engine over the given policy table.
func New(table *policy.Table) *Engine {
	return &Engine{table: table}
}

// Reprice computes the payer ceiling (allowed), the discounted repriced
// amount, and the realized discount for one claim.
//
// The repriced amount is billed × (1 − total discount), floored at the
// table's minimum (but never above billed), then capped at allowed. The
// realized discount is derived from the final amounts, so it reflects
// ceiling and floor effects, and is 0 when billed is 0.
func (e *Engine) Reprice(c *model.ClaimRecord) (model.Repricing, error) {
	if c.BilledCents < 0 {
		return model.Repricing{}, fmt.Errorf("claim %s: negative billed amount", c.ClaimID)
	}

	discount := e.table.DefaultDiscountBPS
	var ceiling int64
	if p, ok := e.table.Lookup(c.ServiceCode); ok {
		discount = p.BaseDiscountBPS
		if adj, ok := p.SpecialtyAdjustBPS[c.ProviderSpecialty]; ok {
			discount += adj
		}
		ceiling = p.CeilingCents
	}
	if discount < 0 {
		discount = 0
	}
	if discount > 10000 {
		discount = 10000
	}

	allowed := c.BilledCents
	if ceiling > 0 && ceiling < allowed {
		allowed = ceiling
	}

	repriced := c.BilledCents * int64(10000-discount) / 10000
	if floor := e.table.MinRepricedCents; repriced < floor {
		repriced = floor
		if repriced > c.BilledCents {
			repriced = c.BilledCents
		}
	}
	if repriced > allowed {
		repriced = allowed
	}

	return model.Repricing{
		AllowedCents:  allowed,
		RepricedCents: repriced,
		DiscountBPS:   realizedDiscountBPS(c.BilledCents, repriced),
	}, nil
}

// realizedDiscountBPS is (billed−repriced)/billed in basis points, 0 when
// billed is 0.
func realizedDiscountBPS(billed, repriced int64) int32 {
	if billed == 0 {
		return 0
	}
	return int32((billed - repriced) * 10000 / billed)
}
