package claims

import (
	"fmt"
	"testing"

	"github.com/gyeh/claimstats/internal/decode"
	"github.com/gyeh/claimstats/internal/model"
)

func validFields() map[string]string {
	return map[string]string{
		"claim_id":           "CLM_000001",
		"patient_id":         "PAT_123456",
		"patient_age":        "42",
		"patient_gender":     "F",
		"service_code":       "99213",
		"billed_amount":      "$250.00",
		"allowed_amount":     "225.00",
		"provider_id":        "PROV_1001",
		"provider_specialty": "Internal  Medicine",
		"claim_date":         "2025-06-15",
	}
}

func TestParseRow_Valid(t *testing.T) {
	rec, verr := ParseRow(decode.Row{Number: 7, Fields: validFields()})
	if verr != nil {
		t.Fatalf("ParseRow: %v", verr)
	}

	if rec.RowNumber != 7 {
		t.Errorf("RowNumber = %d, want 7", rec.RowNumber)
	}
	if rec.BilledCents != 25000 {
		t.Errorf("BilledCents = %d, want 25000", rec.BilledCents)
	}
	if rec.AllowedCents != 22500 {
		t.Errorf("AllowedCents = %d, want 22500", rec.AllowedCents)
	}
	if rec.PatientGender != model.GenderFemale {
		t.Errorf("PatientGender = %q, want F", rec.PatientGender)
	}
	if rec.ProviderSpecialty != "internal medicine" {
		t.Errorf("specialty not normalized: %q", rec.ProviderSpecialty)
	}
	if rec.ClaimDate.Format("2006-01-02") != "2025-06-15" {
		t.Errorf("ClaimDate = %v", rec.ClaimDate)
	}
}

func TestParseRow_Failures(t *testing.T) {
	cases := []struct {
		field string
		value string
	}{
		{"claim_id", ""},
		{"patient_age", "forty"},
		{"patient_age", "-1"},
		{"billed_amount", "lots"},
		{"billed_amount", "-10.00"},
		{"allowed_amount", ""},
		{"service_code", "---"},
		{"claim_date", "not a date"},
	}
	for _, tc := range cases {
		fields := validFields()
		fields[tc.field] = tc.value
		_, verr := ParseRow(decode.Row{Number: 1, Fields: fields})
		if verr == nil {
			t.Errorf("%s=%q: expected validation error", tc.field, tc.value)
			continue
		}
		if verr.Field != tc.field {
			t.Errorf("%s=%q: error attributed to field %q", tc.field, tc.value, verr.Field)
		}
	}
}

func TestParseRow_UnknownGenderAccepted(t *testing.T) {
	fields := validFields()
	fields["patient_gender"] = "X"
	rec, verr := ParseRow(decode.Row{Number: 1, Fields: fields})
	if verr != nil {
		t.Fatalf("unexpected rejection: %v", verr)
	}
	if rec.PatientGender != model.GenderUnknown {
		t.Errorf("PatientGender = %q, want U", rec.PatientGender)
	}
}

func TestValidateBatch_DuplicateClaimID(t *testing.T) {
	rows := make([]decode.Row, 3)
	for i := range rows {
		f := validFields()
		rows[i] = decode.Row{Number: int64(i + 1), Fields: f}
	}
	rows[1].Fields["claim_id"] = "CLM_000001" // duplicate of row 1
	rows[2].Fields["claim_id"] = "CLM_000003"

	valid, errs := ValidateBatch(rows)
	if len(valid) != 2 {
		t.Fatalf("expected 2 valid claims, got %d", len(valid))
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d: %v", len(errs), errs)
	}
	if errs[0].RowNumber != 2 || errs[0].Field != "claim_id" {
		t.Errorf("duplicate error = %+v", errs[0])
	}
	// First occurrence is the one retained.
	if valid[0].RowNumber != 1 {
		t.Errorf("retained occurrence row = %d, want 1", valid[0].RowNumber)
	}
}

func TestValidateBatch_MixedRows(t *testing.T) {
	var rows []decode.Row
	for i := 0; i < 10; i++ {
		f := validFields()
		f["claim_id"] = fmt.Sprintf("CLM_%06d", i+1)
		if i%2 == 0 {
			f["billed_amount"] = "" // invalid
		}
		rows = append(rows, decode.Row{Number: int64(i + 1), Fields: f})
	}

	valid, errs := ValidateBatch(rows)
	if len(valid) != 5 || len(errs) != 5 {
		t.Fatalf("got %d valid, %d errors; want 5/5", len(valid), len(errs))
	}
	for _, e := range errs {
		if e.Stage != "validate" {
			t.Errorf("error stage = %q, want validate", e.Stage)
		}
	}
}
