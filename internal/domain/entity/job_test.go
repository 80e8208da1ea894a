package entity

import (
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var jobIDPattern = regexp.MustCompile(`^job-\d+$`)

func TestNewJobIDFormat(t *testing.T) {
	id := NewJobID(time.Now())
	require.Regexp(t, jobIDPattern, id)
}

func TestNewJobIDUniqueUnderSameClock(t *testing.T) {
	now := time.Now()
	var (
		mu  sync.Mutex
		ids = make(map[string]struct{})
		wg  sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := NewJobID(now)
			mu.Lock()
			ids[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Len(t, ids, 50)
}

func TestCanTransition(t *testing.T) {
	require.True(t, CanTransition(JobStatusCreated, JobStatusRunning))
	require.True(t, CanTransition(JobStatusRunning, JobStatusSucceeded))
	require.True(t, CanTransition(JobStatusRunning, JobStatusFailed))

	require.False(t, CanTransition(JobStatusCreated, JobStatusSucceeded))
	require.False(t, CanTransition(JobStatusSucceeded, JobStatusRunning))
	require.False(t, CanTransition(JobStatusFailed, JobStatusCreated))
	require.False(t, CanTransition(JobStatusRunning, JobStatusRunning))
}

func TestNewJobStartsCreated(t *testing.T) {
	job := NewJob(GenerationRequest{Prompt: "cover login"})
	require.Equal(t, JobStatusCreated, job.Status)
	require.Regexp(t, jobIDPattern, job.ID)
	require.False(t, job.Status.IsTerminal())
}
