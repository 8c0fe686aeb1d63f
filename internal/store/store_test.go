package store_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/claimstats/internal/db"
	"github.com/gyeh/claimstats/internal/model"
	"github.com/gyeh/claimstats/internal/store"
)

const (
	testPort     = 15433
	testDB       = "claimstest"
	testUser     = "postgres"
	testPassword = "postgres"
)

var (
	testDSN string
	pg      *embeddedpostgres.EmbeddedPostgres
)

func TestMain(m *testing.M) {
	testDSN = fmt.Sprintf("postgresql://%s:%s@localhost:%d/%s?sslmode=disable",
		testUser, testPassword, testPort, testDB)

	pg = embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(uint32(testPort)).
			Database(testDB).
			Username(testUser).
			Password(testPassword).
			Version(embeddedpostgres.V16).
			StartTimeout(30 * time.Second),
	)

	if err := pg.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start embedded postgres: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	if err := pg.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to stop embedded postgres: %v\n", err)
	}

	os.Exit(code)
}

// setupStore connects, applies migrations, and truncates prior test data.
func setupStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, testDSN)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.ApplyMigrations(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, "TRUNCATE claims.scored_claims, claims.files"); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	return store.New(pool, zerolog.Nop())
}

func scoredClaim(row int64, code string, billed, repriced int64, score int, status model.ClaimStatus, flags ...model.AnomalyFlag) model.ScoredClaim {
	return model.ScoredClaim{
		Claim: model.ClaimRecord{
			RowNumber:         row,
			ClaimID:           fmt.Sprintf("CLM_%06d", row),
			PatientID:         "PAT_123456",
			ProviderID:        "PROV_1001",
			PatientAge:        42,
			PatientGender:     model.GenderFemale,
			ServiceCode:       code,
			ProviderSpecialty: "internal medicine",
			ClaimDate:         time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC).AddDate(0, 0, int(row)),
			BilledCents:       billed,
			AllowedCents:      billed,
		},
		Repricing: model.Repricing{
			AllowedCents:  billed,
			RepricedCents: repriced,
			DiscountBPS:   0,
		},
		RiskScore: score,
		Flags:     flags,
		Status:    status,
	}
}

func testSnapshot(results ...model.ScoredClaim) model.JobSnapshot {
	now := time.Now().UTC().Truncate(time.Second)
	return model.JobSnapshot{
		FileID:      uuid.New(),
		FileName:    "claims.csv",
		SizeBytes:   1024,
		Format:      model.FormatCSV,
		SHA256:      "deadbeef",
		State:       model.JobCompleted,
		Progress:    100,
		RowsTotal:   int64(len(results)),
		Results:     results,
		CreatedAt:   now,
		CompletedAt: &now,
	}
}

func TestSaveJob_RoundTrip(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	snap := testSnapshot(
		scoredClaim(1, "99213", 25_000, 20_000, 0, model.StatusProcessed),
		scoredClaim(2, "97110", 10_000, 7_500, 40, model.StatusFlagged, model.FlagExcessiveAmount),
		scoredClaim(3, "99214", 30_000, 24_000, 75, model.StatusReview),
	)

	if err := st.SaveJob(ctx, snap); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	rows, err := st.ListClaims(ctx, store.Filter{})
	if err != nil {
		t.Fatalf("ListClaims: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("listed %d claims, want 3", len(rows))
	}

	// Highest risk first.
	if rows[0].RiskScore != 75 || rows[1].RiskScore != 40 || rows[2].RiskScore != 0 {
		t.Errorf("risk order: %d, %d, %d", rows[0].RiskScore, rows[1].RiskScore, rows[2].RiskScore)
	}
	for _, r := range rows {
		if r.FileID != snap.FileID {
			t.Errorf("row file id = %s, want %s", r.FileID, snap.FileID)
		}
	}

	// Flags survive the text[] round trip.
	var flagged *model.ClaimRow
	for i := range rows {
		if rows[i].Status == "flagged" {
			flagged = &rows[i]
		}
	}
	if flagged == nil {
		t.Fatal("flagged claim missing")
	}
	if len(flagged.Flags) != 1 || flagged.Flags[0] != "excessive_amount" {
		t.Errorf("flags = %v", flagged.Flags)
	}

	// The file record landed too.
	var state string
	var rowsTotal int64
	err = st.Pool().QueryRow(ctx,
		"SELECT state, rows_total FROM claims.files WHERE file_id = $1", snap.FileID,
	).Scan(&state, &rowsTotal)
	if err != nil {
		t.Fatalf("file row: %v", err)
	}
	if state != "completed" || rowsTotal != 3 {
		t.Errorf("file row = %s/%d", state, rowsTotal)
	}
}

func TestSaveJob_RetryReplacesRows(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	snap := testSnapshot(
		scoredClaim(1, "99213", 25_000, 20_000, 0, model.StatusProcessed),
		scoredClaim(2, "99213", 25_000, 20_000, 0, model.StatusProcessed),
		scoredClaim(3, "99213", 25_000, 20_000, 0, model.StatusProcessed),
	)
	if err := st.SaveJob(ctx, snap); err != nil {
		t.Fatalf("first SaveJob: %v", err)
	}

	// Retry of the same file produces fewer rows; the old ones must go.
	snap.Results = snap.Results[:2]
	snap.RetryCount = 1
	snap.RowsTotal = 2
	if err := st.SaveJob(ctx, snap); err != nil {
		t.Fatalf("second SaveJob: %v", err)
	}

	rows, err := st.ListClaims(ctx, store.Filter{})
	if err != nil {
		t.Fatalf("ListClaims: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("listed %d claims after retry, want 2", len(rows))
	}

	var retryCount int
	err = st.Pool().QueryRow(ctx,
		"SELECT retry_count FROM claims.files WHERE file_id = $1", snap.FileID,
	).Scan(&retryCount)
	if err != nil {
		t.Fatalf("file row: %v", err)
	}
	if retryCount != 1 {
		t.Errorf("retry_count = %d, want 1", retryCount)
	}
}

func TestListClaims_Filters(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	snap := testSnapshot(
		scoredClaim(1, "99213", 25_000, 20_000, 10, model.StatusProcessed),
		scoredClaim(2, "97110", 10_000, 7_500, 80, model.StatusReview),
		scoredClaim(3, "99213", 25_000, 20_000, 95, model.StatusFlagged, model.FlagDuplicateSuspect),
	)
	if err := st.SaveJob(ctx, snap); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	high, err := st.ListClaims(ctx, store.Filter{MinRisk: 70})
	if err != nil {
		t.Fatalf("ListClaims: %v", err)
	}
	if len(high) != 2 {
		t.Errorf("MinRisk 70 returned %d, want 2", len(high))
	}

	byCode, err := st.ListClaims(ctx, store.Filter{ServiceCode: "99213"})
	if err != nil {
		t.Fatalf("ListClaims: %v", err)
	}
	if len(byCode) != 2 {
		t.Errorf("service filter returned %d, want 2", len(byCode))
	}

	paged, err := st.ListClaims(ctx, store.Filter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("ListClaims: %v", err)
	}
	if len(paged) != 1 {
		t.Errorf("limit/offset returned %d, want 1", len(paged))
	}
}

func TestSavingsSummary(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	snap := testSnapshot(
		scoredClaim(1, "99213", 25_000, 20_000, 0, model.StatusProcessed),
		scoredClaim(2, "99214", 30_000, 24_000, 0, model.StatusProcessed),
	)
	if err := st.SaveJob(ctx, snap); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	sum, err := st.SavingsSummary(ctx)
	if err != nil {
		t.Fatalf("SavingsSummary: %v", err)
	}
	if sum.TotalBilledCents != 55_000 || sum.TotalRepricedCents != 44_000 {
		t.Errorf("totals = %d/%d", sum.TotalBilledCents, sum.TotalRepricedCents)
	}
	if sum.TotalSavingsCents != 11_000 {
		t.Errorf("savings = %d, want 11000", sum.TotalSavingsCents)
	}
	if sum.SavingsPercent < 19.9 || sum.SavingsPercent > 20.1 {
		t.Errorf("savings percent = %g, want ~20", sum.SavingsPercent)
	}
	// Distinct claim dates each get a bucket.
	if len(sum.ByDate) != 2 {
		t.Errorf("%d date buckets, want 2", len(sum.ByDate))
	}
}

func TestAnomalySummary(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	snap := testSnapshot(
		scoredClaim(1, "99213", 25_000, 20_000, 10, model.StatusProcessed),
		scoredClaim(2, "97110", 10_000, 7_500, 80, model.StatusReview),
		scoredClaim(3, "97110", 10_000, 7_500, 90, model.StatusFlagged, model.FlagExcessiveAmount),
	)
	if err := st.SaveJob(ctx, snap); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	stats, err := st.AnomalySummary(ctx, 70)
	if err != nil {
		t.Fatalf("AnomalySummary: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("%d service codes, want 1", len(stats))
	}
	if stats[0].ServiceCode != "97110" || stats[0].Count != 2 {
		t.Errorf("stat = %+v", stats[0])
	}
	if stats[0].MaxRiskScore != 90 {
		t.Errorf("max score = %d, want 90", stats[0].MaxRiskScore)
	}
	if stats[0].AvgRiskScore < 84.9 || stats[0].AvgRiskScore > 85.1 {
		t.Errorf("avg score = %g, want 85", stats[0].AvgRiskScore)
	}
}

func TestSaveJob_EmptyResults(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	snap := testSnapshot()
	snap.State = model.JobFailed
	snap.FailReason = model.ReasonTooManyInvalidRows
	snap.Progress = 0

	if err := st.SaveJob(ctx, snap); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	var failReason string
	err := st.Pool().QueryRow(ctx,
		"SELECT fail_reason FROM claims.files WHERE file_id = $1", snap.FileID,
	).Scan(&failReason)
	if err != nil {
		t.Fatalf("file row: %v", err)
	}
	if failReason != "too_many_invalid_rows" {
		t.Errorf("fail_reason = %q", failReason)
	}
}
