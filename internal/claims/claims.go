// Package claims parses and validates raw decoded rows into ClaimRecords.
package claims

import (
	"fmt"
	"strconv"

	"github.com/gyeh/claimstats/internal/decode"
	"github.com/gyeh/claimstats/internal/model"
	"github.com/gyeh/claimstats/internal/normalize"
)

// requiredFields are the fields every claim row must carry. Unknown extra
// fields are ignored.
var requiredFields = []string{
	"claim_id",
	"patient_id",
	"patient_age",
	"patient_gender",
	"service_code",
	"billed_amount",
	"allowed_amount",
	"provider_id",
	"provider_specialty",
	"claim_date",
}

// ValidationError describes why a single row failed validation.
type ValidationError struct {
	RowNumber int64
	ClaimID   string
	Field     string
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("row %d: field %s: %s", e.RowNumber, e.Field, e.Reason)
}

// RowError converts the validation error into the job's structured error
// record form.
func (e *ValidationError) RowError() model.RowError {
	return model.RowError{
		RowNumber: e.RowNumber,
		ClaimID:   e.ClaimID,
		Stage:     "validate",
		Field:     e.Field,
		Reason:    e.Reason,
	}
}

// ParseRow validates one decoded row and builds an immutable ClaimRecord.
func ParseRow(row decode.Row) (*model.ClaimRecord, *ValidationError) {
	fields := row.Fields
	claimID := fields["claim_id"]

	fail := func(field, reason string) (*model.ClaimRecord, *ValidationError) {
		return nil, &ValidationError{RowNumber: row.Number, ClaimID: claimID, Field: field, Reason: reason}
	}

	for _, f := range requiredFields {
		if fields[f] == "" {
			return fail(f, "required field is missing")
		}
	}

	age, err := strconv.Atoi(fields["patient_age"])
	if err != nil {
		return fail("patient_age", "must be an integer")
	}
	if age < 0 {
		return fail("patient_age", "must be >= 0")
	}

	billed, err := normalize.ParseMoney(fields["billed_amount"])
	if err != nil {
		return fail("billed_amount", "must be a numeric amount")
	}
	if billed < 0 {
		return fail("billed_amount", "must be >= 0")
	}

	allowed, err := normalize.ParseMoney(fields["allowed_amount"])
	if err != nil {
		return fail("allowed_amount", "must be a numeric amount")
	}
	if allowed < 0 {
		return fail("allowed_amount", "must be >= 0")
	}

	code := normalize.NormalizeCode(fields["service_code"])
	if code == "" {
		return fail("service_code", "must be non-empty")
	}

	date := normalize.ParseDate(fields["claim_date"])
	if date == nil {
		return fail("claim_date", "unrecognized date format")
	}

	return &model.ClaimRecord{
		RowNumber:         row.Number,
		ClaimID:           claimID,
		PatientID:         fields["patient_id"],
		ProviderID:        fields["provider_id"],
		PatientAge:        age,
		PatientGender:     model.ParseGender(fields["patient_gender"]),
		ServiceCode:       code,
		ProviderSpecialty: normalize.NormalizeName(fields["provider_specialty"]),
		ClaimDate:         *date,
		BilledCents:       billed,
		AllowedCents:      allowed,
	}, nil
}

// ValidateBatch partitions decoded rows into valid claims and row errors.
// A duplicate claim_id within the file is an error on the second and later
// occurrence; the first occurrence is retained and processing continues.
func ValidateBatch(rows []decode.Row) ([]model.ClaimRecord, []model.RowError) {
	valid := make([]model.ClaimRecord, 0, len(rows))
	var errs []model.RowError
	seen := make(map[string]int64, len(rows))

	for _, row := range rows {
		rec, verr := ParseRow(row)
		if verr != nil {
			errs = append(errs, verr.RowError())
			continue
		}
		if first, dup := seen[rec.ClaimID]; dup {
			errs = append(errs, model.RowError{
				RowNumber: row.Number,
				ClaimID:   rec.ClaimID,
				Stage:     "validate",
				Field:     "claim_id",
				Reason:    fmt.Sprintf("duplicate of row %d", first),
			})
			continue
		}
		seen[rec.ClaimID] = row.Number
		valid = append(valid, *rec)
	}
	return valid, errs
}
