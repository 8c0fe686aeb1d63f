// Package pipeline drives one uploaded file through the processing
// stages: validate → parse → price → score. Each stage runs strictly
// after its predecessor; row-level failures are recorded and skipped,
// batch-level failures terminate the job.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/claimstats/internal/claims"
	"github.com/gyeh/claimstats/internal/decode"
	"github.com/gyeh/claimstats/internal/model"
	"github.com/gyeh/claimstats/internal/reprice"
	"github.com/gyeh/claimstats/internal/risk"
)

// StageError wraps a batch-level failure with the stage where it occurred.
type StageError struct {
	Stage  string
	Reason model.FailReason
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Runner executes jobs. It holds no per-job state and is safe for use by
// multiple workers; each job is still driven by exactly one worker at a
// time.
type Runner struct {
	repricer         *reprice.Engine
	risk             *risk.Engine
	invalidThreshold float64
	log              zerolog.Logger
}

// NewRunner returns a runner. invalidThreshold is the fraction of invalid
// rows (0,1] above which a file fails outright instead of proceeding with
// the valid subset.
func NewRunner(repricer *reprice.Engine, riskEngine *risk.Engine, invalidThreshold float64, log zerolog.Logger) *Runner {
	return &Runner{
		repricer:         repricer,
		risk:             riskEngine,
		invalidThreshold: invalidThreshold,
		log:              log,
	}
}

type pricedClaim struct {
	claim model.ClaimRecord
	rep   model.Repricing
}

// Run drives the job from Queued to a terminal state and reports a
// processing summary. Failures are recorded on the job itself; Run only
// returns the error for logging convenience.
func (r *Runner) Run(ctx context.Context, job *Job) (*model.ProcessSummary, error) {
	totalStart := time.Now()
	log := r.log.With().Stringer("file_id", job.ID()).Str("file", job.fileName).Logger()

	summary := &model.ProcessSummary{
		FileName:   job.fileName,
		FileSHA256: job.sha,
		FileID:     job.ID().String(),
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Msg("internal fault during processing")
			job.fail(model.ReasonInternalFault)
		}
	}()

	if r.checkCancelled(ctx, job, log, "queued") {
		return summary, &StageError{Stage: "queued", Reason: model.ReasonCancelled, Err: context.Canceled}
	}

	// Stage: Validating
	stageStart := time.Now()
	job.setStage(model.JobValidating)

	rows, err := decode.Rows(job.data, job.format)
	if err != nil {
		log.Error().Err(err).Msg("decode failed")
		job.fail(model.ReasonDecodeError)
		return summary, &StageError{Stage: "validating", Reason: model.ReasonDecodeError, Err: err}
	}
	job.setRowsTotal(int64(len(rows)))
	summary.RowsRead = int64(len(rows))

	valid, rowErrs := claims.ValidateBatch(rows)
	job.appendErrors(rowErrs)
	summary.RowsValid = int64(len(valid))
	summary.RowsRejected = int64(len(rowErrs))
	summary.DurationValidate = time.Since(stageStart)

	if len(rows) > 0 && float64(len(rowErrs))/float64(len(rows)) > r.invalidThreshold {
		log.Warn().
			Int("rows", len(rows)).
			Int("invalid", len(rowErrs)).
			Float64("threshold", r.invalidThreshold).
			Msg("too many invalid rows")
		job.fail(model.ReasonTooManyInvalidRows)
		return summary, &StageError{
			Stage:  "validating",
			Reason: model.ReasonTooManyInvalidRows,
			Err:    fmt.Errorf("%d of %d rows invalid", len(rowErrs), len(rows)),
		}
	}
	job.setProgress(model.ProgressValidating)
	log.Info().
		Int64("rows_read", summary.RowsRead).
		Int64("rows_valid", summary.RowsValid).
		Int64("rows_rejected", summary.RowsRejected).
		Dur("duration", summary.DurationValidate).
		Msg("validation complete")

	if r.checkCancelled(ctx, job, log, "validating") {
		return summary, &StageError{Stage: "validating", Reason: model.ReasonCancelled, Err: context.Canceled}
	}

	// Stage: Parsing. Builds the batch-level context for cross-claim rules.
	job.setStage(model.JobParsing)
	batch := risk.BuildBatchContext(valid)
	job.setProgress(model.ProgressParsing)

	if r.checkCancelled(ctx, job, log, "parsing") {
		return summary, &StageError{Stage: "parsing", Reason: model.ReasonCancelled, Err: context.Canceled}
	}

	// Stage: Pricing
	stageStart = time.Now()
	job.setStage(model.JobPricing)

	priced := make([]pricedClaim, 0, len(valid))
	for i := range valid {
		if i > 0 && r.checkCancelled(ctx, job, log, "pricing") {
			return summary, &StageError{Stage: "pricing", Reason: model.ReasonCancelled, Err: context.Canceled}
		}
		c := &valid[i]
		rep, err := r.repricer.Reprice(c)
		if err != nil {
			job.appendErrors([]model.RowError{{
				RowNumber: c.RowNumber,
				ClaimID:   c.ClaimID,
				Stage:     "price",
				Reason:    err.Error(),
			}})
			continue
		}
		priced = append(priced, pricedClaim{claim: *c, rep: rep})
	}
	summary.RowsPriced = int64(len(priced))
	summary.DurationPrice = time.Since(stageStart)
	job.setProgress(model.ProgressPricing)
	log.Info().
		Int64("rows_priced", summary.RowsPriced).
		Dur("duration", summary.DurationPrice).
		Msg("pricing complete")

	if r.checkCancelled(ctx, job, log, "pricing") {
		return summary, &StageError{Stage: "pricing", Reason: model.ReasonCancelled, Err: context.Canceled}
	}

	// Stage: Scoring. Results append in original row order.
	stageStart = time.Now()
	job.setStage(model.JobScoring)

	var flagged int64
	for i := range priced {
		if i > 0 && r.checkCancelled(ctx, job, log, "scoring") {
			return summary, &StageError{Stage: "scoring", Reason: model.ReasonCancelled, Err: context.Canceled}
		}
		p := &priced[i]
		sc := r.risk.Assess(&p.claim, p.rep, batch)
		if sc.Status == model.StatusFlagged {
			flagged++
		}
		job.appendResult(sc)
	}
	summary.RowsScored = int64(len(priced))
	summary.RowsFlagged = flagged
	summary.DurationScore = time.Since(stageStart)
	job.setProgress(model.ProgressScoring)

	job.complete()
	summary.DurationTotal = time.Since(totalStart)

	results, errCount := job.counts()
	log.Info().
		Int64("rows_scored", summary.RowsScored).
		Int64("rows_flagged", summary.RowsFlagged).
		Int("results", results).
		Int("row_errors", errCount).
		Dur("duration_total", summary.DurationTotal).
		Msg("processing complete")

	return summary, nil
}

// checkCancelled fails the job with ReasonCancelled when the context is
// done or cancellation was requested. Partial results are retained.
func (r *Runner) checkCancelled(ctx context.Context, job *Job, log zerolog.Logger, stage string) bool {
	if ctx.Err() == nil && !job.CancelRequested() {
		return false
	}
	log.Info().Str("stage", stage).Msg("job cancelled")
	job.fail(model.ReasonCancelled)
	return true
}
