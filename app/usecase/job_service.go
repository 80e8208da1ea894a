package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"testgen/internal/domain/entity"
	"testgen/internal/domain/repository"
	"testgen/internal/infrastructure/metrics"
)

type JobUsecase interface {
	Submit(ctx context.Context, settings entity.Settings, prompt, presetID string) (*entity.Job, error)
	GetJob(ctx context.Context, id string) (*entity.Job, error)
	ListJobs(ctx context.Context) ([]*entity.Job, error)
}

// Waker is told that new work is queued.
type Waker interface {
	Notify()
}

var _ JobUsecase = (*JobService)(nil)

type JobService struct {
	jobsRepo repository.JobRepository
	waker    Waker
	logger   *slog.Logger
}

func NewJobService(jr repository.JobRepository, waker Waker, logger *slog.Logger) *JobService {
	return &JobService{
		jobsRepo: jr,
		waker:    waker,
		logger:   logger,
	}
}

// Submit queues a generation job and returns as soon as it is stored. The
// worker picks it up asynchronously.
func (u *JobService) Submit(ctx context.Context, settings entity.Settings, prompt, presetID string) (*entity.Job, error) {
	if missing := settings.MissingRequired(); len(missing) > 0 {
		metrics.IncJobRejected("missing_configuration")
		u.logger.Info("submission rejected", "missing", missing)
		return nil, ErrMissingConfiguration
	}

	prompt = strings.TrimSpace(prompt)
	if presetID != "" {
		preset, ok := entity.FindPreset(presetID)
		if !ok {
			metrics.IncJobRejected("unknown_preset")
			return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, presetID)
		}
		if prompt == "" {
			prompt = preset.Prompt
		}
	}

	job := entity.NewJob(entity.GenerationRequest{
		Prompt:               prompt,
		PresetID:             presetID,
		AnthropicAPIKey:      settings.AnthropicAPIKey,
		SentryAPIKey:         settings.SentryAPIKey,
		TechSpecification:    settings.TechSpecification,
		ProductSpecification: settings.ProductSpecification,
	})

	if err := u.jobsRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	metrics.IncJobsCreated()
	u.logger.Info("job submitted", "job_id", job.ID, "preset", presetID)

	if u.waker != nil {
		u.waker.Notify()
	}
	return job, nil
}

func (u *JobService) GetJob(ctx context.Context, id string) (*entity.Job, error) {
	job, err := u.jobsRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

func (u *JobService) ListJobs(ctx context.Context) ([]*entity.Job, error) {
	jobs, err := u.jobsRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}
