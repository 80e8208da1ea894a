package entity

import (
	"strconv"
	"sync"
	"time"
)

type JobStatus string

const (
	JobStatusCreated   JobStatus = "created"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether no further transition is possible.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// CanTransition reports whether from -> to is an edge of the job lifecycle.
func CanTransition(from, to JobStatus) bool {
	switch from {
	case JobStatusCreated:
		return to == JobStatusRunning
	case JobStatusRunning:
		return to == JobStatusSucceeded || to == JobStatusFailed
	}
	return false
}

// GenerationRequest is what the worker hands to the generator. Credentials stay
// out of API responses.
type GenerationRequest struct {
	Prompt               string `json:"prompt" bson:"prompt"`
	PresetID             string `json:"presetId,omitempty" bson:"preset_id,omitempty"`
	AnthropicAPIKey      string `json:"-" bson:"anthropic_api_key"`
	SentryAPIKey         string `json:"-" bson:"sentry_api_key"`
	TechSpecification    string `json:"techSpecification" bson:"tech_specification"`
	ProductSpecification string `json:"productSpecification,omitempty" bson:"product_specification,omitempty"`
}

type Job struct {
	ID         string            `json:"jobId" bson:"id"`
	Status     JobStatus         `json:"status" bson:"status"`
	Message    string            `json:"message,omitempty" bson:"message,omitempty"`
	Request    GenerationRequest `json:"request" bson:"request"`
	FilesCount int               `json:"filesCount" bson:"files_count"`
	CreatedAt  time.Time         `json:"createdAt" bson:"created_at"`
	UpdatedAt  time.Time         `json:"updatedAt" bson:"updated_at"`
}

func NewJob(req GenerationRequest) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        NewJobID(now),
		Status:    JobStatusCreated,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

var (
	jobIDMu   sync.Mutex
	lastJobID int64
)

// NewJobID returns "job-<unix millis>". Ids are strictly increasing within the
// process, so two submissions in the same millisecond still get distinct ids.
func NewJobID(now time.Time) string {
	jobIDMu.Lock()
	defer jobIDMu.Unlock()

	n := now.UnixMilli()
	if n <= lastJobID {
		n = lastJobID + 1
	}
	lastJobID = n
	return "job-" + strconv.FormatInt(n, 10)
}

func (j *Job) UpdateStatus(status JobStatus, message string) {
	j.Status = status
	j.Message = message
	j.UpdatedAt = time.Now().UTC()
}
