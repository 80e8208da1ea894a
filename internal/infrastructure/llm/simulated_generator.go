package llm

import (
	"context"
	"time"

	"github.com/google/uuid"

	"testgen/internal/domain/entity"
	"testgen/internal/domain/repository"
	"testgen/internal/infrastructure/metrics"
)

// SimulatedGenerator stands in for the real pipeline: it waits for a fixed
// delay and produces no files.
type SimulatedGenerator struct {
	delay time.Duration
}

var _ repository.TestGenerator = (*SimulatedGenerator)(nil)

func NewSimulatedGenerator(delay time.Duration) *SimulatedGenerator {
	return &SimulatedGenerator{delay: delay}
}

func (g *SimulatedGenerator) Name() string {
	return "simulated"
}

func (g *SimulatedGenerator) Generate(ctx context.Context, _ entity.GenerationRequest) (entity.GenerationResult, error) {
	metrics.IncGeneratorRequest(g.Name())

	timer := time.NewTimer(g.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return entity.GenerationResult{}, ctx.Err()
	case <-timer.C:
	}

	return entity.GenerationResult{
		Files:     []*entity.TestFile{},
		RequestID: uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}, nil
}
