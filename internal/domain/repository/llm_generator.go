package repository

import (
	"context"
	"testgen/internal/domain/entity"
)

// TestGenerator is the external test-generation pipeline.
type TestGenerator interface {
	Generate(ctx context.Context, req entity.GenerationRequest) (entity.GenerationResult, error)
	Name() string
}
