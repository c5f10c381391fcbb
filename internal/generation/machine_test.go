package generation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fablecraft/appcore/internal/model"
	"github.com/fablecraft/appcore/internal/progress"
)

type fakeSubmission struct {
	jobID       string
	validateErr error
	submitErr   error
	calls       int
}

func (f *fakeSubmission) Kind() model.JobKind { return model.JobKindImage }
func (f *fakeSubmission) Validate() error     { return f.validateErr }
func (f *fakeSubmission) Submit(ctx context.Context) (*model.CreateJobResponse, error) {
	f.calls++
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &model.CreateJobResponse{JobID: f.jobID, Status: model.JobStatusQueued}, nil
}

func newTestMachine() (*Machine, *progress.Tracker) {
	tracker := progress.NewTracker(nil)
	return NewMachine(tracker), tracker
}

func TestSubmitTracksUntilCompletion(t *testing.T) {
	m, tracker := newTestMachine()
	sub := &fakeSubmission{jobID: "g1"}

	m.Submit(context.Background(), sub)

	if _, ok := m.State().(Tracking); !ok {
		t.Fatalf("expected tracking state, got %s", m.State().Phase())
	}

	tracker.HandleEvent(model.ProgressEvent{JobID: "g1", Percent: 30, Status: model.JobStatusRunning})
	tracker.HandleEvent(model.ProgressEvent{JobID: "g1", Percent: 70, Status: model.JobStatusRunning})

	tr, ok := m.State().(Tracking)
	if !ok {
		t.Fatalf("expected still tracking, got %s", m.State().Phase())
	}
	if tr.Snapshot.Percent != 70 {
		t.Errorf("expected snapshot at 70%%, got %d", tr.Snapshot.Percent)
	}

	result := &model.GenerationResult{JobID: "g1", Kind: model.JobKindImage}
	tracker.HandleEvent(model.ProgressEvent{
		JobID:   "g1",
		Percent: 100,
		Status:  model.JobStatusSucceeded,
		Result:  result,
	})

	done, ok := m.State().(Completed)
	if !ok {
		t.Fatalf("expected completed state, got %s", m.State().Phase())
	}
	if done.Result.JobID != "g1" {
		t.Errorf("expected result for g1, got %q", done.Result.JobID)
	}
	if _, tracked := tracker.Snapshot("g1"); tracked {
		t.Error("expected tracker entry removed after completion")
	}
}

func TestSubmitValidationFailureSkipsNetwork(t *testing.T) {
	m, _ := newTestMachine()
	sub := &fakeSubmission{jobID: "g1", validateErr: errors.New("prompt required")}

	m.Submit(context.Background(), sub)

	failed, ok := m.State().(Failed)
	if !ok {
		t.Fatalf("expected failed state, got %s", m.State().Phase())
	}
	if failed.Reason != "prompt required" {
		t.Errorf("expected validation reason, got %q", failed.Reason)
	}
	if sub.calls != 0 {
		t.Errorf("expected no creation call, got %d", sub.calls)
	}
}

func TestSubmitNetworkFailure(t *testing.T) {
	m, tracker := newTestMachine()
	sub := &fakeSubmission{submitErr: errors.New("connection refused")}

	m.Submit(context.Background(), sub)

	if _, ok := m.State().(Failed); !ok {
		t.Fatalf("expected failed state, got %s", m.State().Phase())
	}
	if _, tracked := tracker.Snapshot(""); tracked {
		t.Error("expected nothing tracked after creation failure")
	}
}

func TestDuplicateSubmitIsNoop(t *testing.T) {
	m, _ := newTestMachine()
	first := &fakeSubmission{jobID: "g1"}
	second := &fakeSubmission{jobID: "g2"}

	m.Submit(context.Background(), first)
	m.Submit(context.Background(), second)

	tr, ok := m.State().(Tracking)
	if !ok {
		t.Fatalf("expected tracking state, got %s", m.State().Phase())
	}
	if tr.Job.ID != "g1" {
		t.Errorf("expected first job retained, got %s", tr.Job.ID)
	}
	if second.calls != 0 {
		t.Errorf("expected duplicate submit to skip the creation call, got %d", second.calls)
	}
}

func TestCancelStopsTrackingLocally(t *testing.T) {
	m, tracker := newTestMachine()
	m.Submit(context.Background(), &fakeSubmission{jobID: "g1"})

	m.Cancel()

	if _, ok := m.State().(Idle); !ok {
		t.Fatalf("expected idle after cancel, got %s", m.State().Phase())
	}
	if _, tracked := tracker.Snapshot("g1"); tracked {
		t.Error("expected tracker entry removed by cancel")
	}

	// The server-side job may still finish; with no subscription the event
	// is dropped and the machine stays idle.
	tracker.HandleEvent(model.ProgressEvent{JobID: "g1", Status: model.JobStatusSucceeded})
	if _, ok := m.State().(Idle); !ok {
		t.Errorf("expected idle to persist, got %s", m.State().Phase())
	}
}

func TestCancelOutsideTrackingIsNoop(t *testing.T) {
	m, _ := newTestMachine()

	m.Cancel()

	if _, ok := m.State().(Idle); !ok {
		t.Errorf("expected idle, got %s", m.State().Phase())
	}
}

func TestResetAllowsResubmission(t *testing.T) {
	m, tracker := newTestMachine()
	m.Submit(context.Background(), &fakeSubmission{submitErr: errors.New("boom")})

	m.Reset()
	if _, ok := m.State().(Idle); !ok {
		t.Fatalf("expected idle after reset, got %s", m.State().Phase())
	}

	m.Submit(context.Background(), &fakeSubmission{jobID: "g2"})
	tracker.HandleEvent(model.ProgressEvent{JobID: "g2", Status: model.JobStatusSucceeded})

	if _, ok := m.State().(Completed); !ok {
		t.Errorf("expected completed after resubmission, got %s", m.State().Phase())
	}
}

func TestResetOutsideTerminalIsNoop(t *testing.T) {
	m, _ := newTestMachine()
	m.Submit(context.Background(), &fakeSubmission{jobID: "g1"})

	m.Reset()

	if _, ok := m.State().(Tracking); !ok {
		t.Errorf("expected tracking to persist through reset, got %s", m.State().Phase())
	}
}

func TestObserverSeesEveryTransition(t *testing.T) {
	m, tracker := newTestMachine()

	var phases []Phase
	m.OnChange(func(s State) { phases = append(phases, s.Phase()) })

	m.Submit(context.Background(), &fakeSubmission{jobID: "g1"})
	tracker.HandleEvent(model.ProgressEvent{JobID: "g1", Percent: 50, Status: model.JobStatusRunning})
	tracker.HandleEvent(model.ProgressEvent{JobID: "g1", Status: model.JobStatusSucceeded})

	want := []Phase{PhaseSubmitting, PhaseTracking, PhaseTracking, PhaseCompleted}
	if len(phases) != len(want) {
		t.Fatalf("expected phases %v, got %v", want, phases)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("expected phases %v, got %v", want, phases)
		}
	}
}

type fakeStarter struct {
	generations int
	books       int
}

func (f *fakeStarter) CreateGeneration(ctx context.Context, req *model.GenerationRequest) (*model.CreateJobResponse, error) {
	f.generations++
	return &model.CreateJobResponse{JobID: fmt.Sprintf("img-%d", f.generations)}, nil
}

func (f *fakeStarter) CreateBook(ctx context.Context, req *model.BookGenerateRequest) (*model.CreateJobResponse, error) {
	f.books++
	return &model.CreateJobResponse{JobID: fmt.Sprintf("book-%d", f.books)}, nil
}

func TestImageSubmissionValidation(t *testing.T) {
	m, _ := newTestMachine()
	starter := &fakeStarter{}

	req := &model.GenerationRequest{CategoryID: "stickers", StyleID: "watercolor"}
	m.Submit(context.Background(), NewImageSubmission(starter, req))

	failed, ok := m.State().(Failed)
	if !ok {
		t.Fatalf("expected failed state, got %s", m.State().Phase())
	}
	if failed.Reason != "prompt required" {
		t.Errorf("expected %q, got %q", "prompt required", failed.Reason)
	}
	if starter.generations != 0 {
		t.Errorf("expected no creation call, got %d", starter.generations)
	}
}

func TestBookSubmissionValidation(t *testing.T) {
	m, _ := newTestMachine()
	starter := &fakeStarter{}

	m.Submit(context.Background(), NewBookSubmission(starter, &model.BookGenerateRequest{}))

	failed, ok := m.State().(Failed)
	if !ok {
		t.Fatalf("expected failed state, got %s", m.State().Phase())
	}
	if failed.Reason != "draftid required" {
		t.Errorf("expected %q, got %q", "draftid required", failed.Reason)
	}
	if starter.books != 0 {
		t.Errorf("expected no creation call, got %d", starter.books)
	}
}
