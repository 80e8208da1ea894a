package entity

import "time"

// GenerationResult is what a TestGenerator hands back for one job.
type GenerationResult struct {
	Files        []*TestFile `json:"files"`
	Dependencies []string    `json:"dependencies,omitempty"`
	RequestID    string      `json:"requestId"`
	CreatedAt    time.Time   `json:"createdAt"`
}
