package progress

import (
	"log"
	"sync"

	"github.com/fablecraft/appcore/internal/model"
)

// Listener receives snapshot updates for one tracked job.
type Listener func(model.ProgressSnapshot)

// Subscriber registers interest in a job id on the push stream. Implemented
// by Channel; nil is allowed for offline use and tests.
type Subscriber interface {
	Subscribe(jobID string)
	Unsubscribe(jobID string)
}

// Tracker holds the most recent progress snapshot per tracked job id and
// fans events out to per-job listeners. It filters the stream: events for
// ids that are not tracked are dropped, not buffered.
type Tracker struct {
	mu        sync.Mutex
	snapshots map[string]model.ProgressSnapshot
	listeners map[string][]Listener
	stream    Subscriber
}

// NewTracker creates a tracker fed by the given stream.
func NewTracker(stream Subscriber) *Tracker {
	return &Tracker{
		snapshots: make(map[string]model.ProgressSnapshot),
		listeners: make(map[string][]Listener),
		stream:    stream,
	}
}

// StartTracking resets the snapshot for jobID to zero progress and registers
// the given listeners. Any snapshot left over from a previous job in the
// same UI slot is discarded so a stale 100% is never shown.
func (t *Tracker) StartTracking(jobID string, fns ...Listener) {
	t.mu.Lock()
	t.snapshots[jobID] = model.ProgressSnapshot{
		JobID:  jobID,
		Status: model.JobStatusQueued,
	}
	t.listeners[jobID] = append([]Listener(nil), fns...)
	t.mu.Unlock()

	if t.stream != nil {
		t.stream.Subscribe(jobID)
	}
}

// StopTracking removes the snapshot and listeners for jobID. Further events
// for the id are dropped.
func (t *Tracker) StopTracking(jobID string) {
	t.mu.Lock()
	delete(t.snapshots, jobID)
	delete(t.listeners, jobID)
	t.mu.Unlock()

	if t.stream != nil {
		t.stream.Unsubscribe(jobID)
	}
}

// Snapshot returns the current snapshot for jobID, if tracked.
func (t *Tracker) Snapshot(jobID string) (model.ProgressSnapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap, ok := t.snapshots[jobID]
	return snap, ok
}

// Watch adds a listener for an already-tracked job id. The listener is
// immediately called with the current snapshot so late subscribers cannot
// miss a terminal update.
func (t *Tracker) Watch(jobID string, fn Listener) {
	t.mu.Lock()
	snap, ok := t.snapshots[jobID]
	if ok {
		t.listeners[jobID] = append(t.listeners[jobID], fn)
	}
	t.mu.Unlock()

	if ok {
		fn(snap)
	}
}

// HandleEvent applies one push event. The percent never regresses within a
// tracking session: an out-of-order lower percent is ignored, except that a
// terminal event always wins so completion is never missed. A second
// terminal event for an already-terminal job is a no-op.
func (t *Tracker) HandleEvent(ev model.ProgressEvent) {
	t.mu.Lock()
	snap, ok := t.snapshots[ev.JobID]
	if !ok {
		t.mu.Unlock()
		return
	}

	if snap.Terminal() {
		t.mu.Unlock()
		return
	}

	if !ev.Terminal() && ev.Percent < snap.Percent {
		t.mu.Unlock()
		log.Printf("Dropping out-of-order progress for job %s (%d%% < %d%%)", ev.JobID, ev.Percent, snap.Percent)
		return
	}

	snap.Status = ev.Status
	snap.Step = ev.Step
	snap.Error = ev.Error
	snap.Result = ev.Result
	if ev.PreviewURL != "" {
		snap.PreviewURL = ev.PreviewURL
	}
	switch {
	case ev.Status == model.JobStatusSucceeded:
		snap.Percent = 100
	case ev.Percent > snap.Percent:
		snap.Percent = ev.Percent
	}
	t.snapshots[ev.JobID] = snap
	fns := append([]Listener(nil), t.listeners[ev.JobID]...)
	t.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Clear drops every snapshot and listener. Called when the session ends.
func (t *Tracker) Clear() {
	t.mu.Lock()
	ids := make([]string, 0, len(t.snapshots))
	for id := range t.snapshots {
		ids = append(ids, id)
	}
	t.snapshots = make(map[string]model.ProgressSnapshot)
	t.listeners = make(map[string][]Listener)
	t.mu.Unlock()

	if t.stream != nil {
		for _, id := range ids {
			t.stream.Unsubscribe(id)
		}
	}
}
