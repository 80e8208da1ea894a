package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"testgen/internal/domain/entity"
	"testgen/internal/domain/repository"
	"testgen/internal/infrastructure/events"
	"testgen/internal/infrastructure/metrics"
	"testgen/internal/infrastructure/store/memory"
	"testgen/internal/infrastructure/validator"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

var completeSettings = entity.Settings{
	AnthropicAPIKey:   "ak",
	SentryAPIKey:      "sk",
	TechSpecification: "Next.js storefront",
}

type countingWaker struct {
	mu sync.Mutex
	n  int
}

func (w *countingWaker) Notify() {
	w.mu.Lock()
	w.n++
	w.mu.Unlock()
}

type fakeGenerator struct {
	files []*entity.TestFile
	err   error
	block chan struct{}
	seen  chan entity.GenerationRequest
}

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) Generate(ctx context.Context, req entity.GenerationRequest) (entity.GenerationResult, error) {
	if g.seen != nil {
		g.seen <- req
	}
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return entity.GenerationResult{}, ctx.Err()
		}
	}
	if g.err != nil {
		return entity.GenerationResult{}, g.err
	}
	return entity.GenerationResult{Files: g.files}, nil
}

func TestSettingsService_UpdatePreservesAbsentFields(t *testing.T) {
	ctx := context.Background()
	svc := NewSettingsService(memory.NewSettingsRepo(), discardLogger())

	_, err := svc.Update(ctx, entity.SettingsPatch{TechSpecification: strPtr("spec"), SentryAPIKey: strPtr("s")})
	require.NoError(t, err)

	merged, err := svc.Update(ctx, entity.SettingsPatch{AnthropicAPIKey: strPtr("k1")})
	require.NoError(t, err)
	require.Equal(t, entity.Settings{AnthropicAPIKey: "k1", SentryAPIKey: "s", TechSpecification: "spec"}, merged)

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, merged, got)
}

func TestJobService_SubmitRejectsMissingConfiguration(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewJobRepo()
	waker := &countingWaker{}
	svc := NewJobService(repo, waker, discardLogger())

	for _, s := range []entity.Settings{
		{},
		{AnthropicAPIKey: "a", SentryAPIKey: "s"},
		{AnthropicAPIKey: "a", TechSpecification: "t"},
		{SentryAPIKey: "s", TechSpecification: "t"},
	} {
		job, err := svc.Submit(ctx, s, "prompt", "")
		require.ErrorIs(t, err, ErrMissingConfiguration)
		require.Nil(t, job)
	}

	jobs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Empty(t, jobs)
	require.Zero(t, waker.n)
}

func TestJobService_SubmitCreatesJob(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewJobRepo()
	waker := &countingWaker{}
	svc := NewJobService(repo, waker, discardLogger())

	job, err := svc.Submit(ctx, completeSettings, "  cover checkout  ", "")
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^job-\d+$`), job.ID)
	require.Equal(t, entity.JobStatusCreated, job.Status)
	require.Equal(t, "cover checkout", job.Request.Prompt)
	require.Equal(t, "ak", job.Request.AnthropicAPIKey)
	require.Equal(t, 1, waker.n)

	stored, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, job.ID, stored.ID)
}

func TestJobService_SubmitPresets(t *testing.T) {
	ctx := context.Background()
	svc := NewJobService(memory.NewJobRepo(), nil, discardLogger())

	job, err := svc.Submit(ctx, completeSettings, "", "sentry-issues")
	require.NoError(t, err)
	preset, _ := entity.FindPreset("sentry-issues")
	require.Equal(t, preset.Prompt, job.Request.Prompt)

	job, err = svc.Submit(ctx, completeSettings, "my own words", "user-flows")
	require.NoError(t, err)
	require.Equal(t, "my own words", job.Request.Prompt)

	_, err = svc.Submit(ctx, completeSettings, "", "nope")
	require.ErrorIs(t, err, ErrUnknownPreset)
}

func TestJobService_GetJobNotFound(t *testing.T) {
	svc := NewJobService(memory.NewJobRepo(), nil, discardLogger())
	_, err := svc.GetJob(context.Background(), "job-1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTestFilesService_UnknownJob(t *testing.T) {
	svc := NewTestFilesService(memory.NewJobRepo(), memory.NewTestFileRepo())
	_, err := svc.GetFilesByJobID(context.Background(), "job-1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

type workerFixture struct {
	jobs   *memory.JobRepo
	files  *memory.TestFileRepo
	broker *events.Broker
	worker *TestGenerationWorker
	svc    *JobService
}

func newWorkerFixture(t *testing.T, gen repository.TestGenerator, timeout time.Duration) *workerFixture {
	t.Helper()
	f := &workerFixture{
		jobs:   memory.NewJobRepo(),
		files:  memory.NewTestFileRepo(),
		broker: events.NewBroker(),
	}
	f.worker = NewTestGenerationWorker(f.jobs, f.files, gen, validator.NewPlaywrightValidator(), f.broker, discardLogger(),
		WorkerOptions{PollInterval: time.Hour, JobTimeout: timeout})
	f.svc = NewJobService(f.jobs, f.worker, discardLogger())
	return f
}

func waitForStatus(t *testing.T, repo repository.JobRepository, id string, want entity.JobStatus) *entity.Job {
	t.Helper()
	var job *entity.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = repo.GetByID(context.Background(), id)
		return err == nil && job.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestWorker_SucceedsAndStoresFiles(t *testing.T) {
	gen := &fakeGenerator{files: []*entity.TestFile{
		{Name: "login.spec.ts", Content: "import { test } from '@playwright/test';\ntest('x', () => {});"},
		{Name: "broken.spec.ts", Content: "test('x', () => {});"},
	}}
	f := newWorkerFixture(t, gen, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.worker.Start(ctx)
	defer f.worker.Stop()

	job, err := f.svc.Submit(ctx, completeSettings, "cover login", "")
	require.NoError(t, err)

	done := waitForStatus(t, f.jobs, job.ID, entity.JobStatusSucceeded)
	require.Equal(t, 2, done.FilesCount)
	require.Contains(t, done.Message, "1 with validation errors")

	files, err := f.files.GetFilesByJobID(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.False(t, files[0].HasError)
	require.True(t, files[1].HasError)
}

func TestWorker_FailsOnGeneratorError(t *testing.T) {
	f := newWorkerFixture(t, &fakeGenerator{err: errors.New("llm down")}, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.worker.Start(ctx)
	defer f.worker.Stop()

	job, err := f.svc.Submit(ctx, completeSettings, "p", "")
	require.NoError(t, err)

	failed := waitForStatus(t, f.jobs, job.ID, entity.JobStatusFailed)
	require.Contains(t, failed.Message, "llm down")
}

func TestWorker_TimesOut(t *testing.T) {
	gen := &fakeGenerator{block: make(chan struct{})}
	f := newWorkerFixture(t, gen, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.worker.Start(ctx)
	defer f.worker.Stop()

	job, err := f.svc.Submit(ctx, completeSettings, "p", "")
	require.NoError(t, err)

	failed := waitForStatus(t, f.jobs, job.ID, entity.JobStatusFailed)
	require.Contains(t, failed.Message, context.DeadlineExceeded.Error())
}

func TestWorker_PublishesLifecycle(t *testing.T) {
	gen := &fakeGenerator{block: make(chan struct{}), seen: make(chan entity.GenerationRequest, 1)}
	f := newWorkerFixture(t, gen, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job, err := f.svc.Submit(ctx, completeSettings, "p", "")
	require.NoError(t, err)
	updates, release := f.broker.Subscribe(job.ID)
	defer release()

	f.worker.Start(ctx)
	defer f.worker.Stop()

	require.Equal(t, entity.JobStatusRunning, (<-updates).Status)
	req := <-gen.seen
	require.Equal(t, "p", req.Prompt)
	close(gen.block)
	require.Equal(t, entity.JobStatusSucceeded, (<-updates).Status)
}

func TestWorker_FailsInterruptedJobsOnStart(t *testing.T) {
	f := newWorkerFixture(t, &fakeGenerator{}, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job := entity.NewJob(entity.GenerationRequest{})
	require.NoError(t, f.jobs.Create(ctx, job))
	_, err := f.jobs.Transition(ctx, job.ID, entity.JobStatusCreated, entity.JobStatusRunning, "")
	require.NoError(t, err)

	f.worker.Start(ctx)
	defer f.worker.Stop()

	failed := waitForStatus(t, f.jobs, job.ID, entity.JobStatusFailed)
	require.Equal(t, "interrupted by restart", failed.Message)
}

func TestWorker_StopWithoutStart(t *testing.T) {
	f := newWorkerFixture(t, &fakeGenerator{}, time.Second)
	f.worker.Stop()
}

func TestWorker_StopLeavesBacklogQueued(t *testing.T) {
	gen := &fakeGenerator{block: make(chan struct{}), seen: make(chan entity.GenerationRequest, 10)}
	f := newWorkerFixture(t, gen, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ids []string
	for i := 0; i < 5; i++ {
		job, err := f.svc.Submit(ctx, completeSettings, "p", "")
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}

	f.worker.Start(ctx)
	<-gen.seen // first job is in the generator

	stopped := make(chan struct{})
	go func() {
		f.worker.Stop()
		close(stopped)
	}()
	<-f.worker.stop
	close(gen.block)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	first, err := f.jobs.GetByID(ctx, ids[0])
	require.NoError(t, err)
	require.Equal(t, entity.JobStatusSucceeded, first.Status)

	queued, err := f.jobs.CountByStatus(ctx, entity.JobStatusCreated)
	require.NoError(t, err)
	require.Equal(t, 4, queued)
	require.Equal(t, float64(4), testutil.ToFloat64(metrics.JobsQueued))
}
