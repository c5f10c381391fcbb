package progress

import (
	"testing"

	"github.com/fablecraft/appcore/internal/model"
)

func runningEvent(jobID string, percent int, step string) model.ProgressEvent {
	return model.ProgressEvent{
		JobID:   jobID,
		Percent: percent,
		Status:  model.JobStatusRunning,
		Step:    step,
	}
}

func TestStartTrackingResetsSnapshot(t *testing.T) {
	tr := NewTracker(nil)

	tr.StartTracking("g1")
	tr.HandleEvent(runningEvent("g1", 80, "coloring"))

	// A new job reusing the same slot must not inherit the old 80%.
	tr.StartTracking("g1")

	snap, ok := tr.Snapshot("g1")
	if !ok {
		t.Fatal("expected snapshot after StartTracking")
	}
	if snap.Percent != 0 {
		t.Errorf("expected percent reset to 0, got %d", snap.Percent)
	}
	if snap.Status != model.JobStatusQueued {
		t.Errorf("expected status queued, got %s", snap.Status)
	}
}

func TestPercentNeverRegresses(t *testing.T) {
	tr := NewTracker(nil)
	tr.StartTracking("g1")

	tr.HandleEvent(runningEvent("g1", 30, "a"))
	tr.HandleEvent(runningEvent("g1", 70, "b"))
	tr.HandleEvent(runningEvent("g1", 50, "stale"))

	snap, _ := tr.Snapshot("g1")
	if snap.Percent != 70 {
		t.Errorf("expected percent 70 after out-of-order event, got %d", snap.Percent)
	}
	if snap.Step != "b" {
		t.Errorf("expected step from latest accepted event, got %q", snap.Step)
	}
}

func TestTerminalEventAlwaysWins(t *testing.T) {
	tr := NewTracker(nil)
	tr.StartTracking("g1")

	tr.HandleEvent(runningEvent("g1", 90, "almost"))
	tr.HandleEvent(model.ProgressEvent{
		JobID:  "g1",
		Status: model.JobStatusFailed,
		Error:  "out of credits",
	})

	snap, _ := tr.Snapshot("g1")
	if !snap.Terminal() {
		t.Fatal("expected terminal snapshot after failed event")
	}
	if snap.Error != "out of credits" {
		t.Errorf("expected failure reason retained, got %q", snap.Error)
	}
}

func TestCompletionForcesFullPercent(t *testing.T) {
	tr := NewTracker(nil)
	tr.StartTracking("g1")

	tr.HandleEvent(runningEvent("g1", 40, "inking"))
	tr.HandleEvent(model.ProgressEvent{
		JobID:  "g1",
		Status: model.JobStatusSucceeded,
		Result: &model.GenerationResult{JobID: "g1"},
	})

	snap, _ := tr.Snapshot("g1")
	if snap.Percent != 100 {
		t.Errorf("expected 100%% on completion, got %d", snap.Percent)
	}
	if snap.Result == nil {
		t.Error("expected result attached to snapshot")
	}
}

func TestSecondTerminalEventIsNoop(t *testing.T) {
	tr := NewTracker(nil)

	calls := 0
	tr.StartTracking("g1", func(model.ProgressSnapshot) { calls++ })

	tr.HandleEvent(model.ProgressEvent{JobID: "g1", Status: model.JobStatusSucceeded})
	tr.HandleEvent(model.ProgressEvent{JobID: "g1", Status: model.JobStatusFailed, Error: "late"})

	if calls != 1 {
		t.Errorf("expected 1 listener call, got %d", calls)
	}
	snap, _ := tr.Snapshot("g1")
	if snap.Status != model.JobStatusSucceeded {
		t.Errorf("expected succeeded to stick, got %s", snap.Status)
	}
}

func TestUntrackedEventsAreDropped(t *testing.T) {
	tr := NewTracker(nil)

	tr.HandleEvent(runningEvent("ghost", 50, "x"))

	if _, ok := tr.Snapshot("ghost"); ok {
		t.Error("expected no snapshot for untracked job id")
	}
}

func TestStopTrackingDropsFurtherEvents(t *testing.T) {
	tr := NewTracker(nil)

	calls := 0
	tr.StartTracking("g1", func(model.ProgressSnapshot) { calls++ })
	tr.HandleEvent(runningEvent("g1", 30, "a"))
	tr.StopTracking("g1")

	tr.HandleEvent(runningEvent("g1", 60, "b"))
	tr.HandleEvent(model.ProgressEvent{JobID: "g1", Status: model.JobStatusSucceeded})

	if calls != 1 {
		t.Errorf("expected no listener calls after StopTracking, got %d total", calls)
	}
	if _, ok := tr.Snapshot("g1"); ok {
		t.Error("expected snapshot removed by StopTracking")
	}
}

func TestWatchDeliversCurrentSnapshot(t *testing.T) {
	tr := NewTracker(nil)
	tr.StartTracking("g1")
	tr.HandleEvent(model.ProgressEvent{JobID: "g1", Status: model.JobStatusSucceeded})

	var got *model.ProgressSnapshot
	tr.Watch("g1", func(s model.ProgressSnapshot) { got = &s })

	if got == nil {
		t.Fatal("expected immediate delivery of current snapshot")
	}
	if got.Status != model.JobStatusSucceeded {
		t.Errorf("expected terminal snapshot, got %s", got.Status)
	}
}

type fakeStream struct {
	subscribed   []string
	unsubscribed []string
}

func (f *fakeStream) Subscribe(jobID string)   { f.subscribed = append(f.subscribed, jobID) }
func (f *fakeStream) Unsubscribe(jobID string) { f.unsubscribed = append(f.unsubscribed, jobID) }

func TestTrackerAnnouncesInterest(t *testing.T) {
	stream := &fakeStream{}
	tr := NewTracker(stream)

	tr.StartTracking("g1")
	tr.StopTracking("g1")

	if len(stream.subscribed) != 1 || stream.subscribed[0] != "g1" {
		t.Errorf("expected subscribe for g1, got %v", stream.subscribed)
	}
	if len(stream.unsubscribed) != 1 || stream.unsubscribed[0] != "g1" {
		t.Errorf("expected unsubscribe for g1, got %v", stream.unsubscribed)
	}
}
