package model

import "time"

// Gender is the patient gender as reported on the claim line.
type Gender string

const (
	GenderMale    Gender = "M"
	GenderFemale  Gender = "F"
	GenderUnknown Gender = "U"
)

// ParseGender maps common submitted values onto the Gender enum.
// Anything unrecognized is GenderUnknown; claims are not rejected on gender.
func ParseGender(s string) Gender {
	switch s {
	case "M", "m", "male", "Male", "MALE":
		return GenderMale
	case "F", "f", "female", "Female", "FEMALE":
		return GenderFemale
	default:
		return GenderUnknown
	}
}

// FileFormat identifies the declared encoding of an uploaded claims file.
type FileFormat string

const (
	FormatCSV  FileFormat = "csv"
	FormatJSON FileFormat = "json"
	FormatXLS  FileFormat = "xls"
	FormatXLSX FileFormat = "xlsx"
)

// ParseFormat resolves a declared format string (case-insensitive, with or
// without a leading dot) to a FileFormat.
func ParseFormat(s string) (FileFormat, bool) {
	switch s {
	case "csv", "CSV", ".csv":
		return FormatCSV, true
	case "json", "JSON", ".json":
		return FormatJSON, true
	case "xls", "XLS", ".xls":
		return FormatXLS, true
	case "xlsx", "XLSX", ".xlsx":
		return FormatXLSX, true
	}
	return "", false
}

// ClaimRecord is one validated claim line item. Money is held as integer
// cents; records are immutable once parsed.
type ClaimRecord struct {
	// RowNumber is the 1-based data row in the source file, used to tie
	// results and errors back to the upload.
	RowNumber int64

	ClaimID    string
	PatientID  string
	ProviderID string

	PatientAge        int
	PatientGender     Gender
	ServiceCode       string
	ProviderSpecialty string
	ClaimDate         time.Time

	BilledCents int64
	// AllowedCents is the allowed amount as submitted on the claim. The
	// repricing engine computes its own allowed ceiling; the submitted value
	// is retained for audit only.
	AllowedCents int64
}

// DuplicateKey is the batch-level identity used for duplicate-claim
// detection: same patient, same service, same date of service.
func (c *ClaimRecord) DuplicateKey() string {
	return c.PatientID + "|" + c.ServiceCode + "|" + c.ClaimDate.Format("2006-01-02")
}
