package pipeline

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gyeh/claimstats/internal/model"
	"github.com/gyeh/claimstats/internal/normalize"
)

var (
	// ErrJobNotFailed is returned by ResetForRetry when the job is not in
	// a failed state.
	ErrJobNotFailed = errors.New("job is not in failed state")
	// ErrJobRetryLimit is returned by ResetForRetry when the job has
	// exhausted its retries.
	ErrJobRetryLimit = errors.New("job retry limit reached")
)

// Job is one uploaded file's processing lifecycle. The runner executing
// the job is its only mutator; every other party reads snapshot copies.
type Job struct {
	id        uuid.UUID
	fileName  string
	sizeBytes int64
	format    model.FileFormat
	sha       string
	data      []byte

	cancelled atomic.Bool

	mu          sync.Mutex
	state       model.JobState
	failReason  model.FailReason
	progress    int
	retryCount  int
	rowsTotal   int64
	results     []model.ScoredClaim
	errors      []model.RowError
	createdAt   time.Time
	completedAt *time.Time
}

// NewJob creates a job in the Queued state for the given payload.
func NewJob(fileName string, format model.FileFormat, data []byte) *Job {
	return &Job{
		id:        uuid.New(),
		fileName:  fileName,
		sizeBytes: int64(len(data)),
		format:    format,
		sha:       normalize.BytesHash(data),
		data:      data,
		state:     model.JobQueued,
		createdAt: time.Now().UTC(),
	}
}

// ID returns the job's file id.
func (j *Job) ID() uuid.UUID { return j.id }

// Snapshot returns a deep copy of the job's current state. Callers may
// hold it indefinitely; it never aliases live job state.
func (j *Job) Snapshot() model.JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	snap := model.JobSnapshot{
		FileID:     j.id,
		FileName:   j.fileName,
		SizeBytes:  j.sizeBytes,
		Format:     j.format,
		SHA256:     j.sha,
		State:      j.state,
		FailReason: j.failReason,
		Progress:   j.progress,
		RetryCount: j.retryCount,
		RowsTotal:  j.rowsTotal,
		CreatedAt:  j.createdAt,
	}
	if j.completedAt != nil {
		t := *j.completedAt
		snap.CompletedAt = &t
	}
	if len(j.results) > 0 {
		snap.Results = make([]model.ScoredClaim, len(j.results))
		copy(snap.Results, j.results)
	}
	if len(j.errors) > 0 {
		snap.Errors = make([]model.RowError, len(j.errors))
		copy(snap.Errors, j.errors)
	}
	return snap
}

// State returns the current state.
func (j *Job) State() model.JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// RequestCancel marks the job for cooperative cancellation. The runner
// checks the flag at stage boundaries and between claims.
func (j *Job) RequestCancel() { j.cancelled.Store(true) }

// CancelRequested reports whether cancellation has been requested.
func (j *Job) CancelRequested() bool { return j.cancelled.Load() }

// ResetForRetry transitions a failed job back to Queued, clearing errors,
// results, and progress from the prior attempt. The retry count survives
// the reset and increments; maxRetries bounds it.
func (j *Job) ResetForRetry(maxRetries int) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != model.JobFailed {
		return ErrJobNotFailed
	}
	if j.retryCount >= maxRetries {
		return ErrJobRetryLimit
	}

	j.retryCount++
	j.state = model.JobQueued
	j.failReason = ""
	j.progress = model.ProgressQueued
	j.rowsTotal = 0
	j.results = nil
	j.errors = nil
	j.completedAt = nil
	j.cancelled.Store(false)
	return nil
}

// Mutators below are called only by the runner that owns the job.

// setStage moves the job into a non-terminal processing stage.
func (j *Job) setStage(s model.JobState) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return
	}
	j.state = s
}

// setProgress advances progress; it never moves backwards while the job
// is live.
func (j *Job) setProgress(p int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() || p <= j.progress {
		return
	}
	j.progress = p
}

func (j *Job) setRowsTotal(n int64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rowsTotal = n
}

func (j *Job) appendErrors(errs []model.RowError) {
	if len(errs) == 0 {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, errs...)
}

func (j *Job) appendResult(sc model.ScoredClaim) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results = append(j.results, sc)
}

// fail moves the job to the terminal Failed state, retaining any partial
// results and the full error sequence.
func (j *Job) fail(reason model.FailReason) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return
	}
	j.state = model.JobFailed
	j.failReason = reason
	now := time.Now().UTC()
	j.completedAt = &now
}

// complete moves the job to the terminal Completed state.
func (j *Job) complete() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return
	}
	j.state = model.JobCompleted
	j.progress = model.ProgressCompleted
	now := time.Now().UTC()
	j.completedAt = &now
}

// counts returns result/error tallies for summary logging.
func (j *Job) counts() (results, errors int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.results), len(j.errors)
}
