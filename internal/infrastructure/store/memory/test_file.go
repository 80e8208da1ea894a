package memory

import (
	"context"
	"sync"

	"testgen/internal/domain/entity"
	"testgen/internal/domain/repository"
	"testgen/internal/infrastructure/metrics"
)

type TestFileRepo struct {
	mu    sync.RWMutex
	files map[string][]*entity.TestFile
}

var _ repository.TestFileRepository = (*TestFileRepo)(nil)

func NewTestFileRepo() *TestFileRepo {
	return &TestFileRepo{files: make(map[string][]*entity.TestFile)}
}

// SaveFiles replaces whatever was stored for the job.
func (r *TestFileRepo) SaveFiles(_ context.Context, jobID string, files []*entity.TestFile) error {
	metrics.IncStoreOp("memory", "put")

	cp := make([]*entity.TestFile, len(files))
	for i, f := range files {
		v := *f
		v.JobID = jobID
		cp[i] = &v
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[jobID] = cp
	return nil
}

func (r *TestFileRepo) GetFilesByJobID(_ context.Context, jobID string) ([]*entity.TestFile, error) {
	metrics.IncStoreOp("memory", "get")

	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.files[jobID]
	out := make([]*entity.TestFile, len(stored))
	for i, f := range stored {
		v := *f
		out[i] = &v
	}
	return out, nil
}

func (r *TestFileRepo) DeleteByJobID(_ context.Context, jobID string) error {
	metrics.IncStoreOp("memory", "delete")

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, jobID)
	return nil
}
