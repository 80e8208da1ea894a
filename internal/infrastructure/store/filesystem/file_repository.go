package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"testgen/internal/domain/entity"
	"testgen/internal/domain/repository"
	"testgen/internal/infrastructure/metrics"
)

const metadataFile = "metadata.json"

// TestFileRepository writes generated specs as plain files, one directory per job,
// so the output can be dropped straight into a Playwright project.
type TestFileRepository struct {
	basePath string
}

var _ repository.TestFileRepository = (*TestFileRepository)(nil)

func NewTestFileRepository(basePath string) (*TestFileRepository, error) {
	if err := ensureDir(basePath); err != nil {
		return nil, err
	}
	return &TestFileRepository{basePath: basePath}, nil
}

func (r *TestFileRepository) GetBasePath() string {
	return r.basePath
}

func (r *TestFileRepository) SaveFiles(_ context.Context, jobID string, files []*entity.TestFile) error {
	metrics.IncStoreOp("file", "put")

	jobDir, err := r.jobDir(jobID)
	if err != nil {
		return err
	}

	names := make([]string, len(files))
	seen := make(map[string]struct{}, len(files))
	for i, file := range files {
		name, err := relName(file.Name)
		if err != nil {
			return err
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate test file name %q", file.Name)
		}
		seen[name] = struct{}{}
		names[i] = name
	}

	if err := os.RemoveAll(jobDir); err != nil {
		return fmt.Errorf("failed to clear job directory: %w", err)
	}
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return fmt.Errorf("failed to create job directory: %w", err)
	}

	stored := make([]*entity.TestFile, 0, len(files))
	for i, file := range files {
		path := filepath.Join(jobDir, filepath.FromSlash(names[i]))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", names[i], err)
		}
		if err := os.WriteFile(path, []byte(file.Content), 0o644); err != nil {
			return fmt.Errorf("failed to write file %s: %w", names[i], err)
		}
		meta := *file
		meta.JobID = jobID
		meta.Name = names[i]
		meta.Content = ""
		stored = append(stored, &meta)
	}

	metadata := map[string]interface{}{
		"job_id":      jobID,
		"created_at":  time.Now().UTC(),
		"files_count": len(stored),
		"files":       stored,
	}
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(jobDir, metadataFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

func (r *TestFileRepository) GetFilesByJobID(_ context.Context, jobID string) ([]*entity.TestFile, error) {
	metrics.IncStoreOp("file", "get")

	jobDir, err := r.jobDir(jobID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(jobDir, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []*entity.TestFile{}, nil
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata struct {
		Files []*entity.TestFile `json:"files"`
	}
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	for _, file := range metadata.Files {
		name, err := relName(file.Name)
		if err != nil {
			return nil, err
		}
		content, err := os.ReadFile(filepath.Join(jobDir, filepath.FromSlash(name)))
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", file.Name, err)
		}
		file.Content = string(content)
	}

	return metadata.Files, nil
}

func (r *TestFileRepository) DeleteByJobID(_ context.Context, jobID string) error {
	metrics.IncStoreOp("file", "delete")

	jobDir, err := r.jobDir(jobID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(jobDir); err != nil {
		return fmt.Errorf("failed to delete job directory: %w", err)
	}
	return nil
}

func (r *TestFileRepository) jobDir(jobID string) (string, error) {
	if jobID == "" || strings.ContainsAny(jobID, `/\`) || strings.Contains(jobID, "..") {
		return "", fmt.Errorf("invalid job id %q", jobID)
	}
	return filepath.Join(r.basePath, jobID), nil
}

// relName keeps sub-directories of a generated file name but refuses anything
// that would land outside the job directory or on the metadata file.
func relName(name string) (string, error) {
	clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(strings.TrimSpace(name))))
	if clean == "." || clean == metadataFile || filepath.IsAbs(filepath.FromSlash(clean)) ||
		strings.HasPrefix(clean, "/") || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid test file name %q", name)
	}
	return clean, nil
}

func ensureDir(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(path, 0o755); mkErr != nil {
			return fmt.Errorf("failed to create directory %s: %w", path, mkErr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check directory %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path %s exists but is not a directory", path)
	}
	return nil
}
