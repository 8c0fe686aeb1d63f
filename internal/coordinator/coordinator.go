// Package coordinator manages the set of in-flight file jobs: admission
// control, the bounded worker pool, status queries, retry, and cancel.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gyeh/claimstats/internal/model"
	"github.com/gyeh/claimstats/internal/pipeline"
)

var (
	// ErrNotFound is returned for unknown file ids.
	ErrNotFound = errors.New("file not found")
	// ErrUnsupportedFormat is returned at submit for formats other than
	// CSV/JSON/XLS/XLSX.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrFileTooLarge is returned at submit when the payload exceeds the
	// configured limit.
	ErrFileTooLarge = errors.New("file exceeds size limit")
	// ErrRetryLimitExceeded is returned by Retry once the bounded retry
	// count is exhausted.
	ErrRetryLimitExceeded = errors.New("retry limit exceeded")
	// ErrInvalidState is returned by Retry/Cancel when the job is not in
	// an eligible state.
	ErrInvalidState = errors.New("job is not in an eligible state")
	// ErrQueueFull is returned when the admission queue cannot accept
	// another job.
	ErrQueueFull = errors.New("processing queue is full")
	// ErrClosed is returned after Stop.
	ErrClosed = errors.New("coordinator is shut down")
	// ErrForcedShutdown is returned by Stop when in-flight jobs did not
	// finish within the shutdown timeout.
	ErrForcedShutdown = errors.New("forced shutdown: jobs still running")
)

// Config bounds the coordinator's resource use.
type Config struct {
	Workers         int
	QueueSize       int
	MaxFileBytes    int64
	MaxRetries      int
	ShutdownTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.MaxFileBytes <= 0 {
		c.MaxFileBytes = 16 << 20
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	return c
}

// FileMeta describes a submitted upload.
type FileMeta struct {
	FileName       string
	DeclaredFormat string
}

// ResultSink receives completed job snapshots for persistence. The
// coordinator itself is purely in-memory; a nil sink is valid.
type ResultSink interface {
	SaveJob(ctx context.Context, snap model.JobSnapshot) error
}

// Coordinator owns all jobs. Each job is executed by exactly one worker;
// everything exposed to callers is a snapshot copy.
type Coordinator struct {
	cfg    Config
	runner *pipeline.Runner
	sink   ResultSink
	log    zerolog.Logger

	mu      sync.Mutex
	jobs    map[uuid.UUID]*pipeline.Job
	order   []uuid.UUID
	running map[uuid.UUID]context.CancelFunc

	queue  chan *pipeline.Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
	once   sync.Once
}

// New starts a coordinator with cfg.Workers worker goroutines.
func New(cfg Config, runner *pipeline.Runner, sink ResultSink, log zerolog.Logger) *Coordinator {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	c := &Coordinator{
		cfg:     cfg,
		runner:  runner,
		sink:    sink,
		log:     log,
		jobs:    make(map[uuid.UUID]*pipeline.Job),
		running: make(map[uuid.UUID]context.CancelFunc),
		queue:   make(chan *pipeline.Job, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	for i := 0; i < cfg.Workers; i++ {
		c.wg.Add(1)
		go c.worker(i)
	}
	return c
}

// Submit validates and admits an upload, returning its file id. The job
// starts in Queued and runs when a worker slot frees.
func (c *Coordinator) Submit(meta FileMeta, data []byte) (uuid.UUID, error) {
	if c.closed.Load() {
		return uuid.Nil, ErrClosed
	}

	format, ok := model.ParseFormat(meta.DeclaredFormat)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, meta.DeclaredFormat)
	}
	if int64(len(data)) > c.cfg.MaxFileBytes {
		return uuid.Nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(data), c.cfg.MaxFileBytes)
	}

	job := pipeline.NewJob(meta.FileName, format, data)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return uuid.Nil, ErrClosed
	}

	select {
	case c.queue <- job:
	default:
		return uuid.Nil, ErrQueueFull
	}
	c.jobs[job.ID()] = job
	c.order = append(c.order, job.ID())

	c.log.Info().
		Stringer("file_id", job.ID()).
		Str("file", meta.FileName).
		Str("format", string(format)).
		Int("size_bytes", len(data)).
		Msg("file admitted")
	return job.ID(), nil
}

// Status returns a snapshot of the job's current state.
func (c *Coordinator) Status(id uuid.UUID) (model.JobSnapshot, error) {
	c.mu.Lock()
	job, ok := c.jobs[id]
	c.mu.Unlock()
	if !ok {
		return model.JobSnapshot{}, ErrNotFound
	}
	return job.Snapshot(), nil
}

// List returns snapshots of all known jobs in submission order.
func (c *Coordinator) List() []model.JobSnapshot {
	c.mu.Lock()
	jobs := make([]*pipeline.Job, 0, len(c.order))
	for _, id := range c.order {
		jobs = append(jobs, c.jobs[id])
	}
	c.mu.Unlock()

	snaps := make([]model.JobSnapshot, len(jobs))
	for i, j := range jobs {
		snaps[i] = j.Snapshot()
	}
	return snaps
}

// Retry re-queues a failed job, clearing the prior attempt's errors and
// progress. Bounded by MaxRetries; the retry count survives the reset.
func (c *Coordinator) Retry(id uuid.UUID) error {
	if c.closed.Load() {
		return ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return ErrClosed
	}

	job, ok := c.jobs[id]
	if !ok {
		return ErrNotFound
	}

	// Reserve a queue slot before the reset so a full queue cannot leave
	// a reset job stranded.
	if len(c.queue) == cap(c.queue) {
		return ErrQueueFull
	}

	if err := job.ResetForRetry(c.cfg.MaxRetries); err != nil {
		switch {
		case errors.Is(err, pipeline.ErrJobRetryLimit):
			return ErrRetryLimitExceeded
		case errors.Is(err, pipeline.ErrJobNotFailed):
			return ErrInvalidState
		}
		return err
	}

	c.queue <- job
	c.log.Info().Stringer("file_id", id).Msg("job requeued for retry")
	return nil
}

// Cancel requests cooperative cancellation. Queued jobs are failed when a
// worker picks them up; running jobs stop at the next claim boundary.
func (c *Coordinator) Cancel(id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	job, ok := c.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if job.State().Terminal() {
		return ErrInvalidState
	}

	job.RequestCancel()
	if cancel, running := c.running[id]; running {
		cancel()
	}
	c.log.Info().Stringer("file_id", id).Msg("cancellation requested")
	return nil
}

// Stop shuts the coordinator down: no new submissions, queued jobs are
// drained, and in-flight jobs get ShutdownTimeout to finish before being
// cancelled.
func (c *Coordinator) Stop() error {
	var err error
	c.once.Do(func() {
		c.closed.Store(true)
		// Senders hold mu; taking it here means nobody is mid-send when
		// the queue closes.
		c.mu.Lock()
		close(c.queue)
		c.mu.Unlock()

		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(c.cfg.ShutdownTimeout):
			c.cancel()
			<-done
			err = ErrForcedShutdown
		}
		c.cancel()
	})
	return err
}

func (c *Coordinator) worker(id int) {
	defer c.wg.Done()
	log := c.log.With().Int("worker", id).Logger()

	for job := range c.queue {
		jobCtx, jobCancel := context.WithCancel(c.ctx)

		c.mu.Lock()
		c.running[job.ID()] = jobCancel
		c.mu.Unlock()

		summary, err := c.runner.Run(jobCtx, job)

		c.mu.Lock()
		delete(c.running, job.ID())
		c.mu.Unlock()
		jobCancel()

		if err != nil {
			log.Warn().Err(err).Stringer("file_id", job.ID()).Msg("job did not complete")
			continue
		}

		log.Info().
			Stringer("file_id", job.ID()).
			Int64("rows_scored", summary.RowsScored).
			Int64("rows_rejected", summary.RowsRejected).
			Dur("elapsed", summary.DurationTotal).
			Msg("job completed")

		if c.sink != nil {
			if err := c.sink.SaveJob(c.ctx, job.Snapshot()); err != nil {
				// Persistence is best-effort; results stay queryable
				// in memory.
				log.Warn().Err(err).Stringer("file_id", job.ID()).Msg("result sink failed")
			}
		}
	}
}
