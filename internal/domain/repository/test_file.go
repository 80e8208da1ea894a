package repository

import (
	"context"
	"testgen/internal/domain/entity"
)

type TestFileRepository interface {
	SaveFiles(ctx context.Context, jobID string, files []*entity.TestFile) error
	GetFilesByJobID(ctx context.Context, jobID string) ([]*entity.TestFile, error)
	DeleteByJobID(ctx context.Context, jobID string) error
}
