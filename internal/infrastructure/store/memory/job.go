package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"testgen/internal/domain/entity"
	"testgen/internal/domain/repository"
	"testgen/internal/infrastructure/metrics"
)

type JobRepo struct {
	mu   sync.RWMutex
	jobs map[string]*entity.Job
}

var _ repository.JobRepository = (*JobRepo)(nil)

func NewJobRepo() *JobRepo {
	return &JobRepo{jobs: make(map[string]*entity.Job)}
}

func (r *JobRepo) Create(_ context.Context, job *entity.Job) error {
	metrics.IncStoreOp("memory", "put")

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; ok {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *JobRepo) GetByID(_ context.Context, id string) (*entity.Job, error) {
	metrics.IncStoreOp("memory", "get")

	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

// List returns jobs newest first.
func (r *JobRepo) List(_ context.Context) ([]*entity.Job, error) {
	metrics.IncStoreOp("memory", "list")

	r.mu.RLock()
	defer r.mu.RUnlock()
	jobs := make([]*entity.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		cp := *j
		jobs = append(jobs, &cp)
	}
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
	})
	return jobs, nil
}

// ListByStatus returns matching jobs oldest first, the order the worker drains them in.
func (r *JobRepo) ListByStatus(_ context.Context, status entity.JobStatus) ([]*entity.Job, error) {
	metrics.IncStoreOp("memory", "list")

	r.mu.RLock()
	defer r.mu.RUnlock()
	var jobs []*entity.Job
	for _, j := range r.jobs {
		if j.Status == status {
			cp := *j
			jobs = append(jobs, &cp)
		}
	}
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.Before(jobs[k].CreatedAt)
	})
	return jobs, nil
}

func (r *JobRepo) Transition(_ context.Context, id string, from, to entity.JobStatus, message string) (*entity.Job, error) {
	metrics.IncStoreOp("memory", "put")

	if !entity.CanTransition(from, to) {
		return nil, fmt.Errorf("%s -> %s: %w", from, to, repository.ErrInvalidTransition)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if job.Status != from {
		return nil, fmt.Errorf("job %s is %s, not %s: %w", id, job.Status, from, repository.ErrInvalidTransition)
	}
	job.UpdateStatus(to, message)
	cp := *job
	return &cp, nil
}

func (r *JobRepo) SetFilesCount(_ context.Context, id string, n int) error {
	metrics.IncStoreOp("memory", "put")

	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	job.FilesCount = n
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *JobRepo) CountByStatus(_ context.Context, status entity.JobStatus) (int, error) {
	metrics.IncStoreOp("memory", "count")

	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, j := range r.jobs {
		if j.Status == status {
			n++
		}
	}
	return n, nil
}
