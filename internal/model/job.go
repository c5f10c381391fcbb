package model

import "time"

// Job identifies one server-side generation task. Immutable once created.
type Job struct {
	ID          string    `json:"id"`
	Kind        JobKind   `json:"kind"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// ProgressSnapshot is the last-known progress for a tracked job.
type ProgressSnapshot struct {
	JobID      string            `json:"jobId"`
	Percent    int               `json:"percent"`
	Status     JobStatus         `json:"status"`
	Step       string            `json:"step,omitempty"`
	PreviewURL string            `json:"previewUrl,omitempty"`
	Result     *GenerationResult `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Terminal reports whether the snapshot reached a final status.
func (s ProgressSnapshot) Terminal() bool {
	return s.Status.Terminal()
}

// ProgressEvent is one decoded push event from the server stream.
type ProgressEvent struct {
	JobID      string
	Percent    int
	Status     JobStatus
	Step       string
	PreviewURL string
	Result     *GenerationResult
	Error      string
}

// Terminal reports whether the event signals job completion or failure.
func (e ProgressEvent) Terminal() bool {
	return e.Status.Terminal()
}

// CreateJobResponse is returned by the creation endpoints.
type CreateJobResponse struct {
	JobID             string    `json:"jobId"`
	Kind              JobKind   `json:"kind"`
	Status            JobStatus `json:"status"`
	EstimatedDuration int       `json:"estimatedDuration"` // seconds
	CreatedAt         time.Time `json:"createdAt"`
}

// JobStatusResponse is returned by the job status endpoint.
type JobStatusResponse struct {
	JobID       string            `json:"jobId"`
	Kind        JobKind           `json:"kind"`
	Status      JobStatus         `json:"status"`
	Progress    int               `json:"progress"`
	CurrentStep string            `json:"currentStep,omitempty"`
	Error       *string           `json:"error,omitempty"`
	Result      *GenerationResult `json:"result,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
}
