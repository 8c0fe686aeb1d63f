package model

import "time"

// ProcessSummary captures metrics from a single file processing run.
type ProcessSummary struct {
	FileName         string
	FileSHA256       string
	FileID           string
	RowsRead         int64
	RowsValid        int64
	RowsRejected     int64
	RowsPriced       int64
	RowsScored       int64
	RowsFlagged      int64
	DurationValidate time.Duration
	DurationPrice    time.Duration
	DurationScore    time.Duration
	DurationTotal    time.Duration
}

// SavingsSummary aggregates repricing savings across stored claims.
type SavingsSummary struct {
	TotalBilledCents   int64           `json:"total_billed_cents"`
	TotalRepricedCents int64           `json:"total_repriced_cents"`
	TotalSavingsCents  int64           `json:"total_savings_cents"`
	SavingsPercent     float64         `json:"savings_percent"`
	ByDate             []SavingsByDate `json:"by_date"`
}

// SavingsByDate is one claim-date bucket of the savings summary.
type SavingsByDate struct {
	ClaimDate     string `json:"claim_date"`
	BilledCents   int64  `json:"billed_cents"`
	RepricedCents int64  `json:"repriced_cents"`
	SavingsCents  int64  `json:"savings_cents"`
}

// AnomalyStat summarizes high-risk claims for one service code.
type AnomalyStat struct {
	ServiceCode  string  `json:"service_code"`
	Count        int64   `json:"count"`
	AvgRiskScore float64 `json:"avg_risk_score"`
	MaxRiskScore int32   `json:"max_risk_score"`
}
