// Package policy holds the service-code policy table shared by the
// repricing and risk-scoring engines. A Table is immutable after Load and
// safe for concurrent use without locking.
package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gyeh/claimstats/internal/normalize"
)

// CodePolicy is the policy entry for one service code. Zero values mean
// "no constraint": CeilingCents 0 disables the ceiling, ExcessiveCents 0
// falls back to the table default, MinAge/MaxAge 0 leave that bound open,
// and an empty Specialties list accepts any billing specialty.
type CodePolicy struct {
	Description        string           `yaml:"description,omitempty"`
	BaseDiscountBPS    int32            `yaml:"base_discount_bps"`
	SpecialtyAdjustBPS map[string]int32 `yaml:"specialty_adjust_bps,omitempty"`
	CeilingCents       int64            `yaml:"ceiling_cents,omitempty"`
	ExcessiveCents     int64            `yaml:"excessive_cents,omitempty"`
	MinAge             int              `yaml:"min_age,omitempty"`
	MaxAge             int              `yaml:"max_age,omitempty"`
	Specialties        []string         `yaml:"specialties,omitempty"`
}

// AgeInRange reports whether the patient age is plausible for this code.
func (p CodePolicy) AgeInRange(age int) bool {
	if p.MinAge > 0 && age < p.MinAge {
		return false
	}
	if p.MaxAge > 0 && age > p.MaxAge {
		return false
	}
	return true
}

// SpecialtyTypical reports whether the (normalized) provider specialty is
// one this code is typically billed by.
func (p CodePolicy) SpecialtyTypical(specialty string) bool {
	if len(p.Specialties) == 0 {
		return true
	}
	for _, s := range p.Specialties {
		if s == specialty {
			return true
		}
	}
	return false
}

// Table is the full policy table. Codes map service code to its policy;
// unknown codes fall back to the table-level defaults.
type Table struct {
	DefaultDiscountBPS    int32
	DefaultExcessiveCents int64
	MinRepricedCents      int64
	codes                 map[string]CodePolicy
}

// Lookup returns the policy for a normalized service code.
func (t *Table) Lookup(code string) (CodePolicy, bool) {
	p, ok := t.codes[code]
	return p, ok
}

// ExcessiveThreshold returns the excessive-amount threshold for a code,
// falling back to the table default.
func (t *Table) ExcessiveThreshold(code string) int64 {
	if p, ok := t.codes[code]; ok && p.ExcessiveCents > 0 {
		return p.ExcessiveCents
	}
	return t.DefaultExcessiveCents
}

// Codes returns the number of per-code entries, for logging.
func (t *Table) Codes() int {
	return len(t.codes)
}

// yamlTable is the on-disk YAML structure for policy overrides.
type yamlTable struct {
	DefaultDiscountBPS    int32                 `yaml:"default_discount_bps"`
	DefaultExcessiveCents int64                 `yaml:"default_excessive_cents"`
	MinRepricedCents      int64                 `yaml:"min_repriced_cents"`
	Codes                 map[string]CodePolicy `yaml:"codes"`
}

// Load reads a YAML policy file and merges it over the built-in defaults.
// Per-code entries replace the default entry for that code wholesale;
// non-zero table-level values replace the built-in table values.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	var yt yamlTable
	if err := yaml.Unmarshal(data, &yt); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}

	t := Default()
	if yt.DefaultDiscountBPS > 0 {
		t.DefaultDiscountBPS = yt.DefaultDiscountBPS
	}
	if yt.DefaultExcessiveCents > 0 {
		t.DefaultExcessiveCents = yt.DefaultExcessiveCents
	}
	if yt.MinRepricedCents > 0 {
		t.MinRepricedCents = yt.MinRepricedCents
	}
	for code, p := range yt.Codes {
		if err := sanitize(&p); err != nil {
			return nil, fmt.Errorf("policy for code %s: %w", code, err)
		}
		t.codes[normalize.NormalizeCode(code)] = p
	}
	return t, nil
}

// sanitize normalizes specialty keys/lists and checks bounds.
func sanitize(p *CodePolicy) error {
	if p.BaseDiscountBPS < 0 || p.BaseDiscountBPS > 10000 {
		return fmt.Errorf("base_discount_bps %d out of range [0,10000]", p.BaseDiscountBPS)
	}
	if p.MinAge < 0 || p.MaxAge < 0 {
		return fmt.Errorf("negative age bound")
	}
	if len(p.SpecialtyAdjustBPS) > 0 {
		adj := make(map[string]int32, len(p.SpecialtyAdjustBPS))
		for k, v := range p.SpecialtyAdjustBPS {
			adj[normalize.NormalizeName(k)] = v
		}
		p.SpecialtyAdjustBPS = adj
	}
	for i, s := range p.Specialties {
		p.Specialties[i] = normalize.NormalizeName(s)
	}
	return nil
}
