package coordinator_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gyeh/claimstats/internal/coordinator"
	"github.com/gyeh/claimstats/internal/model"
	"github.com/gyeh/claimstats/internal/pipeline"
	"github.com/gyeh/claimstats/internal/policy"
	"github.com/gyeh/claimstats/internal/reprice"
	"github.com/gyeh/claimstats/internal/risk"
)

const csvHeader = "claim_id,patient_id,patient_age,patient_gender,service_code," +
	"billed_amount,allowed_amount,provider_id,provider_specialty,claim_date\n"

func validCSV(n int) []byte {
	var sb strings.Builder
	sb.WriteString(csvHeader)
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "CLM_%06d,PAT_%06d,42,F,99213,250.00,225.00,PROV_1001,Internal Medicine,2025-06-15\n",
			i, 100000+i)
	}
	return []byte(sb.String())
}

func invalidCSV() []byte {
	return []byte(csvHeader + "CLM_000001,PAT_100001,42,F,99213,not money,225.00,PROV_1001,Internal Medicine,2025-06-15\n" +
		"CLM_000002,PAT_100002,42,F,99213,garbage,225.00,PROV_1001,Internal Medicine,2025-06-15\n")
}

func newRunner() *pipeline.Runner {
	table := policy.Default()
	return pipeline.NewRunner(
		reprice.New(table),
		risk.NewEngine(risk.NewRuleBased(table), risk.DefaultBands()),
		0.5,
		zerolog.Nop(),
	)
}

func newCoordinator(t *testing.T, cfg coordinator.Config, sink coordinator.ResultSink) *coordinator.Coordinator {
	t.Helper()
	c := coordinator.New(cfg, newRunner(), sink, zerolog.Nop())
	t.Cleanup(func() { _ = c.Stop() })
	return c
}

// waitTerminal polls until the job reaches a terminal state.
func waitTerminal(t *testing.T, c *coordinator.Coordinator, id uuid.UUID) model.JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := c.Status(id)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if snap.State.Terminal() {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", id)
	return model.JobSnapshot{}
}

func TestSubmitAndComplete(t *testing.T) {
	c := newCoordinator(t, coordinator.Config{Workers: 2}, nil)

	id, err := c.Submit(coordinator.FileMeta{FileName: "claims.csv", DeclaredFormat: "csv"}, validCSV(5))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	snap := waitTerminal(t, c, id)
	if snap.State != model.JobCompleted {
		t.Fatalf("state = %q (%s), want completed", snap.State, snap.FailReason)
	}
	if snap.Progress != 100 || snap.RowsTotal != 5 {
		t.Errorf("progress/rows = %d/%d, want 100/5", snap.Progress, snap.RowsTotal)
	}
	if snap.SHA256 == "" {
		t.Error("snapshot missing file hash")
	}
}

func TestSubmit_ManyFilesBoundedWorkers(t *testing.T) {
	c := newCoordinator(t, coordinator.Config{Workers: 4}, nil)

	ids := make([]uuid.UUID, 0, 10)
	for i := 0; i < 10; i++ {
		id, err := c.Submit(coordinator.FileMeta{
			FileName:       fmt.Sprintf("claims_%d.csv", i),
			DeclaredFormat: "csv",
		}, validCSV(20))
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	for _, id := range ids {
		snap := waitTerminal(t, c, id)
		if snap.State != model.JobCompleted {
			t.Errorf("job %s state = %q (%s)", id, snap.State, snap.FailReason)
		}
	}

	// List preserves submission order.
	list := c.List()
	if len(list) != 10 {
		t.Fatalf("List returned %d jobs, want 10", len(list))
	}
	for i, snap := range list {
		if snap.FileName != fmt.Sprintf("claims_%d.csv", i) {
			t.Errorf("List[%d] = %q, out of submission order", i, snap.FileName)
		}
	}
}

func TestSubmit_UnsupportedFormat(t *testing.T) {
	c := newCoordinator(t, coordinator.Config{}, nil)

	_, err := c.Submit(coordinator.FileMeta{FileName: "claims.parquet", DeclaredFormat: "parquet"}, validCSV(1))
	if !errors.Is(err, coordinator.ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestSubmit_FileTooLarge(t *testing.T) {
	c := newCoordinator(t, coordinator.Config{MaxFileBytes: 64}, nil)

	_, err := c.Submit(coordinator.FileMeta{FileName: "claims.csv", DeclaredFormat: "csv"}, validCSV(10))
	if !errors.Is(err, coordinator.ErrFileTooLarge) {
		t.Errorf("err = %v, want ErrFileTooLarge", err)
	}
}

func TestStatus_NotFound(t *testing.T) {
	c := newCoordinator(t, coordinator.Config{}, nil)

	if _, err := c.Status(uuid.New()); !errors.Is(err, coordinator.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := c.Retry(uuid.New()); !errors.Is(err, coordinator.ErrNotFound) {
		t.Errorf("Retry err = %v, want ErrNotFound", err)
	}
	if err := c.Cancel(uuid.New()); !errors.Is(err, coordinator.ErrNotFound) {
		t.Errorf("Cancel err = %v, want ErrNotFound", err)
	}
}

func TestRetry_FailedJob(t *testing.T) {
	c := newCoordinator(t, coordinator.Config{Workers: 1, MaxRetries: 2}, nil)

	id, err := c.Submit(coordinator.FileMeta{FileName: "claims.csv", DeclaredFormat: "csv"}, invalidCSV())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	snap := waitTerminal(t, c, id)
	if snap.State != model.JobFailed || snap.FailReason != model.ReasonTooManyInvalidRows {
		t.Fatalf("state/reason = %q/%q", snap.State, snap.FailReason)
	}

	// First and second retries run; each fails the same way.
	for attempt := 1; attempt <= 2; attempt++ {
		if err := c.Retry(id); err != nil {
			t.Fatalf("Retry %d: %v", attempt, err)
		}
		snap = waitTerminal(t, c, id)
		if snap.State != model.JobFailed {
			t.Fatalf("retry %d state = %q", attempt, snap.State)
		}
		if snap.RetryCount != attempt {
			t.Errorf("retry %d count = %d", attempt, snap.RetryCount)
		}
	}

	// Budget exhausted.
	if err := c.Retry(id); !errors.Is(err, coordinator.ErrRetryLimitExceeded) {
		t.Errorf("err = %v, want ErrRetryLimitExceeded", err)
	}
}

func TestRetry_CompletedJobRejected(t *testing.T) {
	c := newCoordinator(t, coordinator.Config{Workers: 1}, nil)

	id, err := c.Submit(coordinator.FileMeta{FileName: "claims.csv", DeclaredFormat: "csv"}, validCSV(2))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitTerminal(t, c, id)

	if err := c.Retry(id); !errors.Is(err, coordinator.ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
}

func TestCancel(t *testing.T) {
	c := newCoordinator(t, coordinator.Config{Workers: 1}, nil)

	id, err := c.Submit(coordinator.FileMeta{FileName: "claims.csv", DeclaredFormat: "csv"}, validCSV(100))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := c.Cancel(id); err != nil && !errors.Is(err, coordinator.ErrInvalidState) {
		t.Fatalf("Cancel: %v", err)
	}

	snap := waitTerminal(t, c, id)
	// Either the cancel landed in time or the job already finished.
	if snap.State == model.JobFailed && snap.FailReason != model.ReasonCancelled {
		t.Errorf("failed with reason %q, want cancelled", snap.FailReason)
	}

	// A terminal job cannot be cancelled.
	if err := c.Cancel(id); !errors.Is(err, coordinator.ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
}

// recordingSink captures completed snapshots handed to the sink.
type recordingSink struct {
	mu    sync.Mutex
	snaps []model.JobSnapshot
}

func (s *recordingSink) SaveJob(_ context.Context, snap model.JobSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snaps)
}

func TestSink_ReceivesCompletedJobs(t *testing.T) {
	sink := &recordingSink{}
	c := newCoordinator(t, coordinator.Config{Workers: 2}, sink)

	id, err := c.Submit(coordinator.FileMeta{FileName: "claims.csv", DeclaredFormat: "csv"}, validCSV(3))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitTerminal(t, c, id)

	deadline := time.Now().Add(5 * time.Second)
	for sink.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sink.count() != 1 {
		t.Fatalf("sink received %d snapshots, want 1", sink.count())
	}

	sink.mu.Lock()
	snap := sink.snaps[0]
	sink.mu.Unlock()
	if snap.FileID != id || len(snap.Results) != 3 {
		t.Errorf("sink snapshot = %s with %d results", snap.FileID, len(snap.Results))
	}
}

// failingSink always errors; persistence failures must not fail the job.
type failingSink struct{}

func (failingSink) SaveJob(context.Context, model.JobSnapshot) error {
	return errors.New("sink unavailable")
}

func TestSink_FailureIsNonFatal(t *testing.T) {
	c := newCoordinator(t, coordinator.Config{Workers: 1}, failingSink{})

	id, err := c.Submit(coordinator.FileMeta{FileName: "claims.csv", DeclaredFormat: "csv"}, validCSV(2))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	snap := waitTerminal(t, c, id)
	if snap.State != model.JobCompleted {
		t.Errorf("state = %q, want completed despite sink failure", snap.State)
	}
}

func TestStop_RejectsNewWork(t *testing.T) {
	c := coordinator.New(coordinator.Config{Workers: 1}, newRunner(), nil, zerolog.Nop())
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	_, err := c.Submit(coordinator.FileMeta{FileName: "claims.csv", DeclaredFormat: "csv"}, validCSV(1))
	if !errors.Is(err, coordinator.ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}
