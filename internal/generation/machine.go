package generation

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fablecraft/appcore/internal/model"
	"github.com/fablecraft/appcore/internal/progress"
)

// Phase names the variant a machine state is in.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
	PhaseTracking   Phase = "tracking"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
)

// State is the tagged union a machine exposes to its observer. Each variant
// carries exactly the payload that is valid for it.
type State interface {
	Phase() Phase
}

// Idle is the initial state; the only state Submit is accepted from.
type Idle struct{}

// Submitting means the creation call is in flight.
type Submitting struct{}

// Tracking holds the submitted job and its latest progress snapshot.
type Tracking struct {
	Job      model.Job
	Snapshot model.ProgressSnapshot
}

// Completed holds the result of a succeeded job.
type Completed struct {
	Result model.GenerationResult
}

// Failed holds the displayable reason for a validation, network or job
// failure.
type Failed struct {
	Reason string
}

func (Idle) Phase() Phase       { return PhaseIdle }
func (Submitting) Phase() Phase { return PhaseSubmitting }
func (Tracking) Phase() Phase   { return PhaseTracking }
func (Completed) Phase() Phase  { return PhaseCompleted }
func (Failed) Phase() Phase     { return PhaseFailed }

// Tracker is the slice of the progress tracker the machine needs.
type Tracker interface {
	StartTracking(jobID string, fns ...progress.Listener)
	StopTracking(jobID string)
}

// Machine drives one generation submission from idle through completion or
// failure. One instance per logical submission slot; Reset makes the same
// instance reusable for a follow-up submission.
type Machine struct {
	mu       sync.Mutex
	state    State
	tracker  Tracker
	observer func(State)
}

// NewMachine creates an idle machine wired to the given tracker.
func NewMachine(tracker Tracker) *Machine {
	return &Machine{
		state:   Idle{},
		tracker: tracker,
	}
}

// OnChange sets the state observer. The UI renders whatever state it
// receives; it never mutates machine state directly.
func (m *Machine) OnChange(fn func(State)) {
	m.mu.Lock()
	m.observer = fn
	m.mu.Unlock()
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Submit validates and sends the given submission, then tracks the returned
// job until a terminal event arrives. Called while not idle it is a silent
// no-op: this is the guard that absorbs double-taps, and it holds here even
// if the UI forgets to disable its trigger.
func (m *Machine) Submit(ctx context.Context, sub Submitter) {
	m.mu.Lock()
	if _, ok := m.state.(Idle); !ok {
		phase := m.state.Phase()
		m.mu.Unlock()
		log.Printf("Ignoring submit while %s", phase)
		return
	}
	m.state = Submitting{}
	m.mu.Unlock()
	m.notify(Submitting{})

	if err := sub.Validate(); err != nil {
		m.fail(err.Error())
		return
	}

	resp, err := sub.Submit(ctx)
	if err != nil {
		m.fail(err.Error())
		return
	}

	job := model.Job{
		ID:          resp.JobID,
		Kind:        sub.Kind(),
		SubmittedAt: time.Now(),
	}
	next := Tracking{
		Job: job,
		Snapshot: model.ProgressSnapshot{
			JobID:  job.ID,
			Status: model.JobStatusQueued,
		},
	}

	m.mu.Lock()
	m.state = next
	m.mu.Unlock()
	m.notify(next)

	m.tracker.StartTracking(job.ID, m.onSnapshot)
}

// Cancel stops local tracking and returns to idle. Valid only while
// tracking; it does not cancel the job server-side — the job may still run
// to completion with no observer.
func (m *Machine) Cancel() {
	m.mu.Lock()
	tr, ok := m.state.(Tracking)
	if !ok {
		m.mu.Unlock()
		return
	}
	m.state = Idle{}
	m.mu.Unlock()

	m.tracker.StopTracking(tr.Job.ID)
	m.notify(Idle{})
}

// Reset discards a terminal state and returns to idle so the same machine
// can take another submission. No-op outside completed/failed.
func (m *Machine) Reset() {
	m.mu.Lock()
	switch m.state.(type) {
	case Completed, Failed:
	default:
		m.mu.Unlock()
		return
	}
	m.state = Idle{}
	m.mu.Unlock()
	m.notify(Idle{})
}

// onSnapshot receives tracker updates for the job this machine submitted.
func (m *Machine) onSnapshot(snap model.ProgressSnapshot) {
	m.mu.Lock()
	tr, ok := m.state.(Tracking)
	if !ok || tr.Job.ID != snap.JobID {
		m.mu.Unlock()
		return
	}

	var next State
	switch snap.Status {
	case model.JobStatusSucceeded:
		result := model.GenerationResult{JobID: snap.JobID, Kind: tr.Job.Kind}
		if snap.Result != nil {
			result = *snap.Result
		}
		next = Completed{Result: result}
	case model.JobStatusFailed:
		reason := snap.Error
		if reason == "" {
			reason = "generation failed"
		}
		next = Failed{Reason: reason}
	default:
		next = Tracking{Job: tr.Job, Snapshot: snap}
	}
	m.state = next
	m.mu.Unlock()

	if snap.Terminal() {
		m.tracker.StopTracking(snap.JobID)
	}
	m.notify(next)
}

func (m *Machine) fail(reason string) {
	next := Failed{Reason: reason}
	m.mu.Lock()
	m.state = next
	m.mu.Unlock()
	m.notify(next)
}

func (m *Machine) notify(s State) {
	m.mu.Lock()
	fn := m.observer
	m.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}
