// Package store persists scored claims and file metadata to Postgres and
// serves the aggregate queries behind the HTTP API.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/claimstats/internal/db"
	"github.com/gyeh/claimstats/internal/model"
	"github.com/gyeh/claimstats/internal/normalize"
	embedsql "github.com/gyeh/claimstats/internal/sql"
)

const copyBatchSize = 1024

// Store wraps a pgx pool with the claims schema operations.
type Store struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool, log zerolog.Logger) *Store {
	return &Store{pool: pool, log: log}
}

// Pool exposes the underlying pool, mainly for migrations and tests.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// SaveJob upserts the file record and replaces its scored claims. Deleting
// before the COPY makes retried files idempotent: the latest attempt's rows
// are the only rows.
func (s *Store) SaveJob(ctx context.Context, snap model.JobSnapshot) error {
	if err := s.upsertFile(ctx, snap); err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, embedsql.DeleteFileClaims, snap.FileID); err != nil {
		return fmt.Errorf("delete prior claims: %w", err)
	}
	if len(snap.Results) == 0 {
		return nil
	}

	ch := make(chan *model.ClaimRow, copyBatchSize)

	// Producer goroutine: flatten scored claims → push to channel.
	go func() {
		defer close(ch)
		for i := range snap.Results {
			row := model.ToClaimRow(snap.FileID, &snap.Results[i])
			row.RowHash = normalize.RowHashFromValues(row.RowNumber,
				row.ClaimID, row.PatientID, row.ServiceCode, row.ClaimDate)
			select {
			case ch <- row:
			case <-ctx.Done():
				return
			}
		}
	}()

	source := db.NewClaimSource(ch)
	copied, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"claims", "scored_claims"},
		model.ClaimColumns(),
		source,
	)
	if err != nil {
		return fmt.Errorf("copy scored claims: %w", err)
	}

	s.log.Info().
		Stringer("file_id", snap.FileID).
		Int64("rows_copied", copied).
		Msg("job results persisted")
	return nil
}

func (s *Store) upsertFile(ctx context.Context, snap model.JobSnapshot) error {
	_, err := s.pool.Exec(ctx, embedsql.UpsertFile,
		snap.FileID,
		snap.FileName,
		snap.SizeBytes,
		string(snap.Format),
		snap.SHA256,
		string(snap.State),
		string(snap.FailReason),
		snap.Progress,
		snap.RetryCount,
		snap.RowsTotal,
		snap.CreatedAt,
		snap.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert file: %w", err)
	}
	return nil
}

// Filter narrows ListClaims. Zero values mean "no constraint"; Limit
// defaults to 100.
type Filter struct {
	MinRisk     int
	ServiceCode string
	Limit       int
	Offset      int
}

// ListClaims returns stored claims matching the filter, highest risk first.
func (s *Store) ListClaims(ctx context.Context, f Filter) ([]model.ClaimRow, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	var minRisk *int
	if f.MinRisk > 0 {
		minRisk = &f.MinRisk
	}
	var serviceCode *string
	if f.ServiceCode != "" {
		code := normalize.NormalizeCode(f.ServiceCode)
		serviceCode = &code
	}

	rows, err := s.pool.Query(ctx, embedsql.ListClaims, minRisk, serviceCode, limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var out []model.ClaimRow
	for rows.Next() {
		var r model.ClaimRow
		var claimDate time.Time
		if err := rows.Scan(
			&r.FileID, &r.RowNumber, &r.ClaimID, &r.PatientID, &r.ProviderID,
			&r.PatientAge, &r.PatientGender, &r.ServiceCode, &r.ProviderSpecialty,
			&claimDate, &r.BilledCents, &r.AllowedCents, &r.RepricedCents,
			&r.DiscountBPS, &r.RiskScore, &r.Flags, &r.Status,
		); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		r.ClaimDate = claimDate.Format("2006-01-02")
		out = append(out, r)
	}
	return out, rows.Err()
}

// SavingsSummary totals billed vs repriced amounts across all stored
// claims, with a per-date breakdown.
func (s *Store) SavingsSummary(ctx context.Context) (*model.SavingsSummary, error) {
	var sum model.SavingsSummary
	err := s.pool.QueryRow(ctx, embedsql.SavingsSummary).Scan(
		&sum.TotalBilledCents, &sum.TotalRepricedCents, &sum.TotalSavingsCents,
	)
	if err != nil {
		return nil, fmt.Errorf("savings summary: %w", err)
	}
	if sum.TotalBilledCents > 0 {
		sum.SavingsPercent = float64(sum.TotalSavingsCents) / float64(sum.TotalBilledCents) * 100
	}

	rows, err := s.pool.Query(ctx, embedsql.SavingsByDate)
	if err != nil {
		return nil, fmt.Errorf("savings by date: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d model.SavingsByDate
		var claimDate time.Time
		if err := rows.Scan(&claimDate, &d.BilledCents, &d.RepricedCents, &d.SavingsCents); err != nil {
			return nil, fmt.Errorf("scan savings bucket: %w", err)
		}
		d.ClaimDate = claimDate.Format("2006-01-02")
		sum.ByDate = append(sum.ByDate, d)
	}
	return &sum, rows.Err()
}

// AnomalySummary reports per-service-code stats for claims at or above
// minScore.
func (s *Store) AnomalySummary(ctx context.Context, minScore int) ([]model.AnomalyStat, error) {
	rows, err := s.pool.Query(ctx, embedsql.AnomalySummary, minScore)
	if err != nil {
		return nil, fmt.Errorf("anomaly summary: %w", err)
	}
	defer rows.Close()

	var out []model.AnomalyStat
	for rows.Next() {
		var st model.AnomalyStat
		if err := rows.Scan(&st.ServiceCode, &st.Count, &st.AvgRiskScore, &st.MaxRiskScore); err != nil {
			return nil, fmt.Errorf("scan anomaly stat: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
