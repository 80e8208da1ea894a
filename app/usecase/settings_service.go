package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"testgen/internal/domain/entity"
	"testgen/internal/domain/repository"
	"testgen/internal/infrastructure/metrics"
)

type SettingsUseCase interface {
	Get(ctx context.Context) (entity.Settings, error)
	Update(ctx context.Context, patch entity.SettingsPatch) (entity.Settings, error)
}

type SettingsService struct {
	repo   repository.SettingsRepository
	logger *slog.Logger
}

var _ SettingsUseCase = (*SettingsService)(nil)

func NewSettingsService(repo repository.SettingsRepository, logger *slog.Logger) *SettingsService {
	return &SettingsService{repo: repo, logger: logger}
}

func (s *SettingsService) Get(ctx context.Context) (entity.Settings, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return entity.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

// Update overlays the supplied keys and leaves the rest untouched. Values are
// stored as given, without validation.
func (s *SettingsService) Update(ctx context.Context, patch entity.SettingsPatch) (entity.Settings, error) {
	merged, err := s.repo.Apply(ctx, patch)
	if err != nil {
		return entity.Settings{}, fmt.Errorf("apply settings: %w", err)
	}
	metrics.IncSettingsUpdate()

	keys := make([]string, 0, 6)
	for k := range patch.Fields() {
		keys = append(keys, k)
	}
	s.logger.Info("settings updated", "fields", keys)
	return merged, nil
}
