package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gyeh/claimstats/internal/model"
)

func testSnapshot(n int) model.JobSnapshot {
	snap := model.JobSnapshot{
		FileID:   uuid.New(),
		FileName: "claims.csv",
		State:    model.JobCompleted,
	}
	for i := 0; i < n; i++ {
		snap.Results = append(snap.Results, model.ScoredClaim{
			Claim: model.ClaimRecord{
				RowNumber:         int64(i + 1),
				ClaimID:           uuid.NewString(),
				PatientID:         "PAT_123456",
				ProviderID:        "PROV_1001",
				PatientAge:        42,
				PatientGender:     model.GenderFemale,
				ServiceCode:       "99213",
				ProviderSpecialty: "internal medicine",
				ClaimDate:         time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
				BilledCents:       25_000,
				AllowedCents:      25_000,
			},
			Repricing: model.Repricing{
				AllowedCents:  25_000,
				RepricedCents: 20_000,
				DiscountBPS:   2000,
			},
			RiskScore: 40,
			Flags:     []model.AnomalyFlag{model.FlagExcessiveAmount},
			Status:    model.StatusFlagged,
		})
	}
	return snap
}

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	snap := testSnapshot(25)

	path, err := WriteSnapshot(dir, snap)
	if err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if filepath.Base(path) != FileName(snap) {
		t.Errorf("archive name = %s", path)
	}

	rows, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(rows) != 25 {
		t.Fatalf("read %d rows, want 25", len(rows))
	}

	r := rows[0]
	if r.RowNumber != 1 || r.ServiceCode != "99213" {
		t.Errorf("row identity lost: %+v", r)
	}
	if r.BilledCents != 25_000 || r.RepricedCents != 20_000 || r.DiscountBPS != 2000 {
		t.Errorf("amounts lost: %+v", r)
	}
	if r.RiskScore != 40 || r.Status != "flagged" {
		t.Errorf("scoring lost: %+v", r)
	}
	if len(r.Flags) != 1 || r.Flags[0] != "excessive_amount" {
		t.Errorf("flags lost: %v", r.Flags)
	}
	if r.ClaimDate != "2025-06-15" {
		t.Errorf("claim date = %q", r.ClaimDate)
	}
}

func TestWriteSnapshot_EmptyResults(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteSnapshot(dir, testSnapshot(0))
	if err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	rows, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("read %d rows, want 0", len(rows))
	}
}

func TestWriteSnapshot_NoPartialFiles(t *testing.T) {
	dir := t.TempDir()
	if _, err := WriteSnapshot(dir, testSnapshot(5)); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("expected exactly 1 archive, found %d entries", len(entries))
	}
}
