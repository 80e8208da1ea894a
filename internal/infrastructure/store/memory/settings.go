// Package memory holds process-local repositories. Nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"testgen/internal/domain/entity"
	"testgen/internal/domain/repository"
	"testgen/internal/infrastructure/metrics"
)

type SettingsRepo struct {
	mu       sync.RWMutex
	settings entity.Settings
}

var _ repository.SettingsRepository = (*SettingsRepo)(nil)

func NewSettingsRepo() *SettingsRepo {
	return &SettingsRepo{}
}

func (r *SettingsRepo) Get(_ context.Context) (entity.Settings, error) {
	metrics.IncStoreOp("memory", "get")

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings, nil
}

func (r *SettingsRepo) Apply(_ context.Context, patch entity.SettingsPatch) (entity.Settings, error) {
	metrics.IncStoreOp("memory", "put")

	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = r.settings.Apply(patch)
	return r.settings, nil
}
