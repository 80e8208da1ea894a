package usecase

import (
	"context"
	"fmt"

	"testgen/internal/domain/entity"
	"testgen/internal/domain/repository"
)

type TestFilesUseCase interface {
	GetFilesByJobID(ctx context.Context, jobID string) ([]*entity.TestFile, error)
}

type TestFilesService struct {
	jobsRepo  repository.JobRepository
	filesRepo repository.TestFileRepository
}

func NewTestFilesService(jr repository.JobRepository, fr repository.TestFileRepository) *TestFilesService {
	return &TestFilesService{jobsRepo: jr, filesRepo: fr}
}

var _ TestFilesUseCase = (*TestFilesService)(nil)

// GetFilesByJobID returns repository.ErrNotFound (wrapped) for an unknown job,
// and an empty list for a known job that produced nothing yet.
func (s *TestFilesService) GetFilesByJobID(ctx context.Context, jobID string) ([]*entity.TestFile, error) {
	if jobID == "" {
		return nil, fmt.Errorf("jobID is required")
	}
	if _, err := s.jobsRepo.GetByID(ctx, jobID); err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	files, err := s.filesRepo.GetFilesByJobID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get files for job %s: %w", jobID, err)
	}
	return files, nil
}
