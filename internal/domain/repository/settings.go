package repository

import (
	"context"
	"testgen/internal/domain/entity"
)

// SettingsRepository holds the single current Settings value.
type SettingsRepository interface {
	Get(ctx context.Context) (entity.Settings, error)
	// Apply merges the patch into the stored value as one atomic step and
	// returns the merged result.
	Apply(ctx context.Context, patch entity.SettingsPatch) (entity.Settings, error)
}
