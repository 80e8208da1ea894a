package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"testgen/internal/domain/entity"
	"testgen/internal/domain/repository"
	"testgen/internal/infrastructure/metrics"
)

// Publisher receives every job status change.
type Publisher interface {
	Publish(job entity.Job)
}

type WorkerOptions struct {
	PollInterval time.Duration
	JobTimeout   time.Duration
}

// TestGenerationWorker drains created jobs one at a time:
// 1) claim (created -> running)
// 2) run the generator
// 3) static validation
// 4) store files, finish as succeeded or failed
type TestGenerationWorker struct {
	jobsRepo  repository.JobRepository
	filesRepo repository.TestFileRepository
	generator repository.TestGenerator
	validator repository.TestFileValidator
	publisher Publisher
	logger    *slog.Logger

	pollInterval time.Duration
	jobTimeout   time.Duration

	// control
	wake     chan struct{}
	stop     chan struct{}
	stopped  chan struct{}
	started  bool
	stopOnce sync.Once
}

func NewTestGenerationWorker(
	jr repository.JobRepository,
	fr repository.TestFileRepository,
	gen repository.TestGenerator,
	val repository.TestFileValidator,
	pub Publisher,
	logger *slog.Logger,
	opts WorkerOptions,
) *TestGenerationWorker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 10 * time.Minute
	}
	return &TestGenerationWorker{
		jobsRepo:     jr,
		filesRepo:    fr,
		generator:    gen,
		validator:    val,
		publisher:    pub,
		logger:       logger,
		pollInterval: opts.PollInterval,
		jobTimeout:   opts.JobTimeout,
		wake:         make(chan struct{}, 1),
		stop:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}
}

// Notify wakes the worker without waiting for the next tick.
func (w *TestGenerationWorker) Notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *TestGenerationWorker) Start(ctx context.Context) {
	w.started = true
	go func() {
		defer close(w.stopped)
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()

		w.logger.Info("TestGenerationWorker started", "interval", w.pollInterval, "generator", w.generator.Name())

		if err := w.failInterrupted(ctx); err != nil {
			w.logger.Warn("recover interrupted jobs failed", "err", err)
		}
		if err := w.runOnce(ctx); err != nil {
			w.logger.Warn("initial runOnce failed", "err", err)
		}

		for {
			select {
			case <-ctx.Done():
				w.logger.Info("TestGenerationWorker context canceled")
				return
			case <-w.stop:
				w.logger.Info("TestGenerationWorker stopped by Stop()")
				return
			case <-ticker.C:
			case <-w.wake:
			}
			if err := w.runOnce(ctx); err != nil {
				w.logger.Warn("runOnce failed", "err", err)
			}
		}
	}()
}

func (w *TestGenerationWorker) Stop() {
	if !w.started {
		return
	}
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.stopped
	w.logger.Info("TestGenerationWorker fully stopped")
}

// failInterrupted closes out jobs left running by a previous process.
func (w *TestGenerationWorker) failInterrupted(ctx context.Context) error {
	jobs, err := w.jobsRepo.ListByStatus(ctx, entity.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("list running jobs: %w", err)
	}
	for _, job := range jobs {
		w.finish(ctx, job.ID, entity.JobStatusFailed, "interrupted by restart")
	}
	return nil
}

func (w *TestGenerationWorker) runOnce(ctx context.Context) error {
	defer w.refreshQueued(ctx)

	jobs, err := w.jobsRepo.ListByStatus(ctx, entity.JobStatusCreated)
	if err != nil {
		return fmt.Errorf("list created jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil
	}

	w.logger.Debug("found created jobs", "count", len(jobs))
	metrics.SetJobsQueued(len(jobs))

	for _, job := range jobs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// unclaimed jobs stay created for the next start
		select {
		case <-w.stop:
			return nil
		default:
		}

		claimed, err := w.jobsRepo.Transition(ctx, job.ID, entity.JobStatusCreated, entity.JobStatusRunning, "")
		if err != nil {
			// someone else got it, or it vanished
			w.logger.Warn("failed to claim job; skip", "job_id", job.ID, "err", err)
			continue
		}
		metrics.IncJobStatusChange(string(entity.JobStatusCreated), string(entity.JobStatusRunning))
		w.publish(claimed)
		metrics.SetActiveJobs(1)

		procCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
		func() {
			defer cancel()
			if err := w.processJob(procCtx, claimed); err != nil {
				w.logger.Error("processJob failed", "job_id", job.ID, "err", err)
			}
		}()
		metrics.SetActiveJobs(0)
	}

	return nil
}

func (w *TestGenerationWorker) refreshQueued(ctx context.Context) {
	n, err := w.jobsRepo.CountByStatus(context.WithoutCancel(ctx), entity.JobStatusCreated)
	if err != nil {
		w.logger.Warn("count queued jobs failed", "err", err)
		return
	}
	metrics.SetJobsQueued(n)
}

func (w *TestGenerationWorker) processJob(ctx context.Context, job *entity.Job) error {
	startTime := time.Now()
	defer func() { metrics.ObserveJobDuration(time.Since(startTime)) }()

	jobID := job.ID
	w.logger.Info("start processing job", "job_id", jobID)

	result, err := w.generator.Generate(ctx, job.Request)
	if err != nil {
		w.finish(context.WithoutCancel(ctx), jobID, entity.JobStatusFailed, "generation failed: "+err.Error())
		return fmt.Errorf("generate: %w", err)
	}

	var invalid int
	if w.validator != nil && len(result.Files) > 0 {
		invalid = len(w.validator.Validate(result.Files))
	}

	if err := w.filesRepo.SaveFiles(ctx, jobID, result.Files); err != nil {
		w.finish(context.WithoutCancel(ctx), jobID, entity.JobStatusFailed, "save files failed: "+err.Error())
		return fmt.Errorf("save files: %w", err)
	}
	if err := w.jobsRepo.SetFilesCount(ctx, jobID, len(result.Files)); err != nil {
		w.logger.Warn("failed to record files count", "job_id", jobID, "err", err)
	}

	msg := fmt.Sprintf("generated %d test file(s)", len(result.Files))
	if invalid > 0 {
		msg += fmt.Sprintf(", %d with validation errors", invalid)
	}
	w.finish(ctx, jobID, entity.JobStatusSucceeded, msg)

	w.logger.Info("job processed", "job_id", jobID, "files", len(result.Files), "invalid", invalid, "duration", time.Since(startTime))
	return nil
}

func (w *TestGenerationWorker) finish(ctx context.Context, jobID string, status entity.JobStatus, message string) {
	job, err := w.jobsRepo.Transition(ctx, jobID, entity.JobStatusRunning, status, message)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			w.logger.Warn("job already finished", "job_id", jobID, "status", status)
			return
		}
		metrics.IncError("worker", "finish")
		w.logger.Error("failed to finish job", "job_id", jobID, "status", status, "err", err)
		return
	}
	metrics.IncJobStatusChange(string(entity.JobStatusRunning), string(status))
	w.publish(job)
}

func (w *TestGenerationWorker) publish(job *entity.Job) {
	if w.publisher != nil {
		w.publisher.Publish(*job)
	}
}
