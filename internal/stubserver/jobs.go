package stubserver

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fablecraft/appcore/internal/model"
)

// jobRecord is the server-side view of one job.
type jobRecord struct {
	ID          string
	Kind        model.JobKind
	Status      model.JobStatus
	Progress    int
	CurrentStep string
	Error       *string
	Result      *model.GenerationResult
	CreatedAt   time.Time
	CompletedAt *time.Time
}

type jobStore struct {
	mu   sync.RWMutex
	jobs map[string]*jobRecord
}

func newJobStore() *jobStore {
	return &jobStore{jobs: make(map[string]*jobRecord)}
}

func (s *jobStore) create(id string, kind model.JobKind) *jobRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := &jobRecord{
		ID:        id,
		Kind:      kind,
		Status:    model.JobStatusQueued,
		CreatedAt: time.Now(),
	}
	s.jobs[id] = job
	return job
}

func (s *jobStore) get(id string) (*jobRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok
}

func (s *jobStore) setProgress(id string, progress int, step string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Status = model.JobStatusRunning
		job.Progress = progress
		job.CurrentStep = step
	}
}

func (s *jobStore) complete(id string, result *model.GenerationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Status = model.JobStatusSucceeded
		job.Progress = 100
		job.Result = result
		now := time.Now()
		job.CompletedAt = &now
	}
}

func (s *jobStore) fail(id, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Status = model.JobStatusFailed
		job.Error = &message
		now := time.Now()
		job.CompletedAt = &now
	}
}

func (s *jobStore) statusResponse(id string) (*model.JobStatusResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	return &model.JobStatusResponse{
		JobID:       job.ID,
		Kind:        job.Kind,
		Status:      job.Status,
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		Error:       job.Error,
		Result:      job.Result,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}, true
}

type jobStep struct {
	progress int
	step     string
}

var imageSteps = []jobStep{
	{10, "Sketching composition..."},
	{35, "Inking outlines..."},
	{70, "Coloring..."},
	{90, "Upscaling output..."},
}

var bookSteps = []jobStep{
	{15, "Illustrating pages..."},
	{55, "Composing layout..."},
	{85, "Binding book..."},
}

// failPrefix in a prompt makes the job fail after its first step with the
// remainder as the reason. Test/dev hook only.
const failPrefix = "fail:"

// runImageJob walks an image job through scripted steps and pushes each one.
func (s *Server) runImageJob(jobID string, req *model.GenerationRequest) {
	count := req.Count
	if count == 0 {
		count = 1
	}

	failWith := ""
	if strings.HasPrefix(req.Prompt, failPrefix) {
		failWith = strings.TrimSpace(strings.TrimPrefix(req.Prompt, failPrefix))
		if failWith == "" {
			failWith = "generation failed"
		}
	}

	result := &model.GenerationResult{JobID: jobID, Kind: model.JobKindImage}
	for i := 0; i < count; i++ {
		result.Assets = append(result.Assets, model.GeneratedAsset{
			URL:      fmt.Sprintf("https://cdn.fablecraft.dev/jobs/%s/asset-%d.png", jobID, i),
			MimeType: "image/png",
		})
	}

	s.runJob(jobID, imageSteps, result, failWith)
}

// runBookJob walks a book job through scripted steps.
func (s *Server) runBookJob(jobID string, draft *model.Draft) {
	result := &model.GenerationResult{
		JobID:    jobID,
		Kind:     model.JobKindBook,
		CoverURL: fmt.Sprintf("https://cdn.fablecraft.dev/jobs/%s/cover.png", jobID),
	}
	for i := range draft.Pages {
		result.Assets = append(result.Assets, model.GeneratedAsset{
			URL:       fmt.Sprintf("https://cdn.fablecraft.dev/jobs/%s/page-%d.png", jobID, i),
			MimeType:  "image/png",
			PageIndex: i,
		})
	}

	s.runJob(jobID, bookSteps, result, "")
}

func (s *Server) runJob(jobID string, steps []jobStep, result *model.GenerationResult, failWith string) {
	for i, step := range steps {
		time.Sleep(s.opts.StepDelay)
		s.jobs.setProgress(jobID, step.progress, step.step)
		s.hub.BroadcastProgress(jobID, step.progress, model.JobStatusRunning, step.step)

		if failWith != "" && i == 0 {
			time.Sleep(s.opts.StepDelay)
			s.jobs.fail(jobID, failWith)
			s.hub.BroadcastError(jobID, "JOB_FAILED", failWith)
			return
		}
	}

	time.Sleep(s.opts.StepDelay)
	s.jobs.complete(jobID, result)
	s.hub.BroadcastComplete(jobID, result)
}
