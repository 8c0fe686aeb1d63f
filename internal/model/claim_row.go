package model

import (
	"time"

	"github.com/google/uuid"
)

// ClaimRow is the flattened, storage-ready representation of one scored
// claim. It serves both the Postgres COPY path (Columns/CopyValues) and the
// Parquet archive (struct tags). Money values are int64 cents; the discount
// is int32 basis points.
type ClaimRow struct {
	FileID    uuid.UUID `parquet:"-"`
	RowNumber int64     `parquet:"row_number"`
	RowHash   []byte    `parquet:"-"`

	ClaimID    string `parquet:"claim_id"`
	PatientID  string `parquet:"patient_id"`
	ProviderID string `parquet:"provider_id"`

	PatientAge        int32  `parquet:"patient_age"`
	PatientGender     string `parquet:"patient_gender"`
	ServiceCode       string `parquet:"service_code"`
	ProviderSpecialty string `parquet:"provider_specialty"`
	ClaimDate         string `parquet:"claim_date"`

	BilledCents   int64 `parquet:"billed_cents"`
	AllowedCents  int64 `parquet:"allowed_cents"`
	RepricedCents int64 `parquet:"repriced_cents"`
	DiscountBPS   int32 `parquet:"discount_bps"`

	RiskScore int32    `parquet:"risk_score"`
	Flags     []string `parquet:"flags,list,optional"`
	Status    string   `parquet:"status"`
}

// ToClaimRow flattens a ScoredClaim for storage under the given file id.
func ToClaimRow(fileID uuid.UUID, sc *ScoredClaim) *ClaimRow {
	flags := make([]string, len(sc.Flags))
	for i, f := range sc.Flags {
		flags[i] = string(f)
	}
	return &ClaimRow{
		FileID:            fileID,
		RowNumber:         sc.Claim.RowNumber,
		ClaimID:           sc.Claim.ClaimID,
		PatientID:         sc.Claim.PatientID,
		ProviderID:        sc.Claim.ProviderID,
		PatientAge:        int32(sc.Claim.PatientAge),
		PatientGender:     string(sc.Claim.PatientGender),
		ServiceCode:       sc.Claim.ServiceCode,
		ProviderSpecialty: sc.Claim.ProviderSpecialty,
		ClaimDate:         sc.Claim.ClaimDate.Format("2006-01-02"),
		BilledCents:       sc.Claim.BilledCents,
		AllowedCents:      sc.Repricing.AllowedCents,
		RepricedCents:     sc.Repricing.RepricedCents,
		DiscountBPS:       sc.Repricing.DiscountBPS,
		RiskScore:         int32(sc.RiskScore),
		Flags:             flags,
		Status:            string(sc.Status),
	}
}

// ClaimDateTime parses the stored claim date back into a time.Time.
func (r *ClaimRow) ClaimDateTime() time.Time {
	t, _ := time.Parse("2006-01-02", r.ClaimDate)
	return t
}

// ClaimColumns returns the ordered column names for COPY into
// claims.scored_claims.
func ClaimColumns() []string {
	return []string{
		"file_id",
		"row_number",
		"row_hash",
		"claim_id",
		"patient_id",
		"provider_id",
		"patient_age",
		"patient_gender",
		"service_code",
		"provider_specialty",
		"claim_date",
		"billed_cents",
		"allowed_cents",
		"repriced_cents",
		"discount_bps",
		"risk_score",
		"flags",
		"status",
	}
}

// CopyValues returns the row values in the same order as ClaimColumns(),
// suitable for pgx CopyFromSource.
func (r *ClaimRow) CopyValues() []any {
	return []any{
		r.FileID,
		r.RowNumber,
		r.RowHash,
		r.ClaimID,
		r.PatientID,
		r.ProviderID,
		r.PatientAge,
		r.PatientGender,
		r.ServiceCode,
		r.ProviderSpecialty,
		r.ClaimDateTime(),
		r.BilledCents,
		r.AllowedCents,
		r.RepricedCents,
		r.DiscountBPS,
		r.RiskScore,
		r.Flags,
		r.Status,
	}
}
