package model

// FlagSeverity classifies how strongly an anomaly flag suggests fraud.
type FlagSeverity string

const (
	SeverityWarning  FlagSeverity = "warning"
	SeverityCritical FlagSeverity = "critical"
)

// AnomalyFlag is a named rule violation attached to a scored claim.
type AnomalyFlag string

const (
	FlagExcessiveAmount   AnomalyFlag = "excessive_amount"
	FlagAgeMismatch       AnomalyFlag = "age_mismatch"
	FlagSpecialtyMismatch AnomalyFlag = "specialty_mismatch"
	FlagDuplicateSuspect  AnomalyFlag = "duplicate_suspect"
)

// Severity returns the severity class for the flag. The two strong fraud
// signals (excessive amount, duplicate billing) are critical and force a
// claim into Flagged status regardless of score.
func (f AnomalyFlag) Severity() FlagSeverity {
	switch f {
	case FlagExcessiveAmount, FlagDuplicateSuspect:
		return SeverityCritical
	default:
		return SeverityWarning
	}
}

// ClaimStatus is the disposition of a scored claim.
type ClaimStatus string

const (
	StatusProcessed ClaimStatus = "processed"
	StatusReview    ClaimStatus = "review"
	StatusFlagged   ClaimStatus = "flagged"
)

// Repricing holds the repricing engine's output for one claim.
// DiscountBPS is derived from the actual amounts: (billed-repriced)/billed
// in basis points, 0 when billed is 0.
type Repricing struct {
	AllowedCents  int64
	RepricedCents int64
	DiscountBPS   int32
}

// SavingsCents is the payer savings realized by repricing.
func (r Repricing) SavingsCents(billedCents int64) int64 {
	return billedCents - r.RepricedCents
}

// ScoredClaim is the final per-claim output: source record, repriced
// amounts, risk score and anomaly flags. Flags preserve rule evaluation
// order. Immutable once produced.
type ScoredClaim struct {
	Claim     ClaimRecord
	Repricing Repricing
	RiskScore int
	Flags     []AnomalyFlag
	Status    ClaimStatus
}

// HasCriticalFlag reports whether any attached flag is critical severity.
func (s *ScoredClaim) HasCriticalFlag() bool {
	for _, f := range s.Flags {
		if f.Severity() == SeverityCritical {
			return true
		}
	}
	return false
}

// RowError is one structured row-level error recorded against a file job.
// Row-level errors never abort the file; the offending row is skipped.
type RowError struct {
	RowNumber int64  `json:"row_number"`
	ClaimID   string `json:"claim_id,omitempty"`
	Stage     string `json:"stage"`
	Field     string `json:"field,omitempty"`
	Reason    string `json:"reason"`
}
