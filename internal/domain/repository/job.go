package repository

import (
	"context"
	"testgen/internal/domain/entity"
)

// JobRepository is the status store for generation jobs.
type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	GetByID(ctx context.Context, id string) (*entity.Job, error)
	List(ctx context.Context) ([]*entity.Job, error)
	ListByStatus(ctx context.Context, status entity.JobStatus) ([]*entity.Job, error)
	// Transition moves a job from one status to another only if it is
	// currently in `from`. It returns ErrNotFound or ErrInvalidTransition.
	Transition(ctx context.Context, id string, from, to entity.JobStatus, message string) (*entity.Job, error)
	SetFilesCount(ctx context.Context, id string, n int) error
	CountByStatus(ctx context.Context, status entity.JobStatus) (int, error)
}
