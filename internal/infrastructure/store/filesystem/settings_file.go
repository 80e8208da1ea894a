package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"testgen/internal/domain/entity"
	"testgen/internal/domain/repository"
	"testgen/internal/infrastructure/metrics"
)

// SettingsFile keeps the current settings in a YAML file.
type SettingsFile struct {
	path string
	mu   sync.RWMutex
}

var _ repository.SettingsRepository = (*SettingsFile)(nil)

func NewSettingsFile(path string) (*SettingsFile, error) {
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	return &SettingsFile{path: path}, nil
}

func (s *SettingsFile) Get(_ context.Context) (entity.Settings, error) {
	metrics.IncStoreOp("file", "get")

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read()
}

func (s *SettingsFile) Apply(_ context.Context, patch entity.SettingsPatch) (entity.Settings, error) {
	metrics.IncStoreOp("file", "put")

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read()
	if err != nil {
		return entity.Settings{}, err
	}
	merged := current.Apply(patch)

	data, err := yaml.Marshal(merged)
	if err != nil {
		return entity.Settings{}, fmt.Errorf("failed to marshal settings: %w", err)
	}

	// write-then-rename so a crash never leaves a half-written file
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return entity.Settings{}, fmt.Errorf("failed to write settings file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return entity.Settings{}, fmt.Errorf("failed to replace settings file: %w", err)
	}

	return merged, nil
}

func (s *SettingsFile) read() (entity.Settings, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return entity.Settings{}, nil
	}
	if err != nil {
		return entity.Settings{}, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings entity.Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return entity.Settings{}, fmt.Errorf("failed to parse settings file: %w", err)
	}
	return settings, nil
}
