package model

import (
	"time"

	"github.com/google/uuid"
)

// JobState is the processing lifecycle state of one uploaded file.
type JobState string

const (
	JobQueued     JobState = "queued"
	JobValidating JobState = "validating"
	JobParsing    JobState = "parsing"
	JobPricing    JobState = "pricing"
	JobScoring    JobState = "scoring"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

// Terminal reports whether the state admits no further transitions other
// than an explicit retry.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Progress percent reported at the completion of each stage.
const (
	ProgressQueued     = 0
	ProgressValidating = 20
	ProgressParsing    = 40
	ProgressPricing    = 60
	ProgressScoring    = 80
	ProgressCompleted  = 100
)

// FailReason is the batch-level reason a job reached JobFailed.
type FailReason string

const (
	ReasonTooManyInvalidRows FailReason = "too_many_invalid_rows"
	ReasonDecodeError        FailReason = "decode_error"
	ReasonInternalFault      FailReason = "internal_fault"
	ReasonCancelled          FailReason = "cancelled"
)

// JobSnapshot is a read-only copy of a file job's state, safe to hand to
// callers while the job is still being mutated by its worker.
type JobSnapshot struct {
	FileID     uuid.UUID   `json:"file_id"`
	FileName   string      `json:"file_name"`
	SizeBytes  int64       `json:"size_bytes"`
	Format     FileFormat  `json:"format"`
	SHA256     string      `json:"sha256"`
	State      JobState    `json:"state"`
	FailReason FailReason  `json:"fail_reason,omitempty"`
	Progress   int         `json:"progress_percent"`
	RetryCount int         `json:"retry_count"`
	RowsTotal  int64       `json:"rows_total"`
	Results    []ScoredClaim `json:"-"`
	Errors     []RowError    `json:"errors,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
