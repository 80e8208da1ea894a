package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"testgen/internal/domain/entity"
)

func strPtr(s string) *string { return &s }

func TestSettingsFile_MissingFileIsEmpty(t *testing.T) {
	store, err := NewSettingsFile(filepath.Join(t.TempDir(), "conf", "user_config.yaml"))
	require.NoError(t, err)

	got, err := store.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, entity.Settings{}, got)
}

func TestSettingsFile_ApplyPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "user_config.yaml")

	store, err := NewSettingsFile(path)
	require.NoError(t, err)
	_, err = store.Apply(ctx, entity.SettingsPatch{TechSpecification: strPtr("Next.js app")})
	require.NoError(t, err)
	_, err = store.Apply(ctx, entity.SettingsPatch{AnthropicAPIKey: strPtr("k1")})
	require.NoError(t, err)

	reopened, err := NewSettingsFile(path)
	require.NoError(t, err)
	got, err := reopened.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "k1", got.AnthropicAPIKey)
	require.Equal(t, "Next.js app", got.TechSpecification)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "techSpecification: Next.js app")
}

func TestTestFileRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, err := NewTestFileRepository(t.TempDir())
	require.NoError(t, err)

	files := []*entity.TestFile{
		{Name: "login.spec.ts", Content: "import { test } from '@playwright/test';"},
		{Name: "nav.spec.ts", Content: "test('nav', async () => {});", HasError: true,
			ErrorMsg: &entity.ValidationError{File: "nav.spec.ts", Message: "missing import"}},
	}
	require.NoError(t, repo.SaveFiles(ctx, "job-42", files))

	_, err = os.Stat(filepath.Join(repo.GetBasePath(), "job-42", "login.spec.ts"))
	require.NoError(t, err)

	got, err := repo.GetFilesByJobID(ctx, "job-42")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "job-42", got[0].JobID)
	require.Equal(t, files[0].Content, got[0].Content)
	require.True(t, got[1].HasError)
	require.Equal(t, "missing import", got[1].ErrorMsg.Message)

	require.NoError(t, repo.DeleteByJobID(ctx, "job-42"))
	got, err = repo.GetFilesByJobID(ctx, "job-42")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestTestFileRepository_KeepsSubdirectories(t *testing.T) {
	ctx := context.Background()
	repo, err := NewTestFileRepository(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, repo.SaveFiles(ctx, "job-7", []*entity.TestFile{
		{Name: "auth/login.spec.ts", Content: "A"},
		{Name: "admin/login.spec.ts", Content: "B"},
	}))

	got, err := repo.GetFilesByJobID(ctx, "job-7")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "auth/login.spec.ts", got[0].Name)
	require.Equal(t, "A", got[0].Content)
	require.Equal(t, "admin/login.spec.ts", got[1].Name)
	require.Equal(t, "B", got[1].Content)
}

func TestTestFileRepository_RejectsBadNames(t *testing.T) {
	ctx := context.Background()
	repo, err := NewTestFileRepository(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, repo.SaveFiles(ctx, "job-8", []*entity.TestFile{{Name: "keep.spec.ts", Content: "K"}}))

	for _, files := range [][]*entity.TestFile{
		{{Name: "a.spec.ts"}, {Name: "./a.spec.ts"}},
		{{Name: "../outside.spec.ts"}},
		{{Name: "/etc/passwd"}},
		{{Name: "metadata.json"}},
		{{Name: ""}},
	} {
		require.Error(t, repo.SaveFiles(ctx, "job-8", files), "files %v", files[0].Name)
	}

	// a rejected save leaves the previous output alone
	got, err := repo.GetFilesByJobID(ctx, "job-8")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "K", got[0].Content)
}

func TestTestFileRepository_RejectsTraversal(t *testing.T) {
	repo, err := NewTestFileRepository(t.TempDir())
	require.NoError(t, err)

	err = repo.SaveFiles(context.Background(), "../escape", nil)
	require.Error(t, err)
}

func TestNewTestFileRepository_PathIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := NewTestFileRepository(path)
	require.Error(t, err)
}
