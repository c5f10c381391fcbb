package story

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/fablecraft/appcore/internal/client"
	"github.com/fablecraft/appcore/internal/generation"
	"github.com/fablecraft/appcore/internal/model"
)

var validate = validator.New()

// Step is the wizard cursor.
type Step string

const (
	StepSelectType  Step = "select-type"
	StepFillDetails Step = "fill-details"
	StepReviewDraft Step = "review-draft"
)

// Lifecycle is the story-creation wizard: pick theme and story type, fill
// details, create the draft, review and edit its pages, then hand the draft
// to a book generation job. Page edits stay local until an explicit save.
type Lifecycle struct {
	mu     sync.Mutex
	step   Step
	fields model.DraftRequest
	draft  *model.Draft
	busy   bool
	done   bool

	editing   bool
	editPages []string

	lastErr string

	drafts  client.DraftService
	starter client.GenerationStarter
	tracker generation.Tracker

	machine    *generation.Machine
	onBookDone func(model.GenerationResult)
}

// New creates a wizard at the first step.
func New(drafts client.DraftService, starter client.GenerationStarter, tracker generation.Tracker) *Lifecycle {
	return &Lifecycle{
		step:    StepSelectType,
		drafts:  drafts,
		starter: starter,
		tracker: tracker,
	}
}

// OnBookComplete sets the owner callback fired when book generation
// finishes. After it fires the wizard is done and takes no further input.
func (l *Lifecycle) OnBookComplete(fn func(model.GenerationResult)) {
	l.mu.Lock()
	l.onBookDone = fn
	l.mu.Unlock()
}

// Step returns the current wizard step.
func (l *Lifecycle) Step() Step {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.step
}

// Err returns the last surfaced error, or "".
func (l *Lifecycle) Err() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// Done reports whether book generation completed and the wizard is spent.
func (l *Lifecycle) Done() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// Fields returns the request fields entered so far. Going back a step never
// clears them.
func (l *Lifecycle) Fields() model.DraftRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fields
}

// SetSelection records the theme and story type chosen on the first step.
func (l *Lifecycle) SetSelection(theme model.StoryTheme, storyType model.StoryType) {
	l.mu.Lock()
	l.fields.Theme = theme
	l.fields.StoryType = storyType
	l.mu.Unlock()
}

// SetDetails records the second-step form fields.
func (l *Lifecycle) SetDetails(pageCount int, heroName string, heroAge int, premise string) {
	l.mu.Lock()
	l.fields.PageCount = pageCount
	l.fields.HeroName = heroName
	l.fields.HeroAge = heroAge
	l.fields.Premise = premise
	l.mu.Unlock()
}

// Next advances the wizard one step. The move into review is gated on a
// successful draft-creation call; on failure the wizard stays put with all
// entered fields intact and the error readable via Err.
func (l *Lifecycle) Next(ctx context.Context) error {
	l.mu.Lock()
	if l.busy || l.done {
		l.mu.Unlock()
		return nil
	}

	switch l.step {
	case StepSelectType:
		if l.fields.Theme == "" || l.fields.StoryType == "" {
			l.lastErr = "theme and story type required"
			l.mu.Unlock()
			return fmt.Errorf("theme and story type required")
		}
		if !l.fields.Theme.Valid() {
			l.lastErr = "unknown theme"
			l.mu.Unlock()
			return fmt.Errorf("unknown theme %q", l.fields.Theme)
		}
		l.step = StepFillDetails
		l.lastErr = ""
		l.mu.Unlock()
		return nil

	case StepFillDetails:
		req := l.fields
		l.busy = true
		l.mu.Unlock()
		return l.createDraft(ctx, &req)

	default:
		l.mu.Unlock()
		return nil
	}
}

func (l *Lifecycle) createDraft(ctx context.Context, req *model.DraftRequest) error {
	err := validationReason(validate.Struct(req))
	var draft *model.Draft
	if err == nil {
		draft, err = l.drafts.CreateDraft(ctx, req)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.busy = false
	if err != nil {
		l.lastErr = err.Error()
		return err
	}
	l.draft = draft
	l.step = StepReviewDraft
	l.editing = false
	l.editPages = nil
	l.lastErr = ""
	return nil
}

// Back moves one step backward without discarding entered fields.
func (l *Lifecycle) Back() {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.step {
	case StepFillDetails:
		l.step = StepSelectType
	case StepReviewDraft:
		l.step = StepFillDetails
		l.editing = false
		l.editPages = nil
	}
	l.lastErr = ""
}

// Draft returns the last-saved server draft, or nil before creation.
func (l *Lifecycle) Draft() *model.Draft {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.draft
}

// PageTexts returns the last-saved page texts.
func (l *Lifecycle) PageTexts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.draft == nil {
		return nil
	}
	return l.draft.ClonePages()
}

// Editing reports whether the review step is in its edit sub-mode.
func (l *Lifecycle) Editing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.editing
}

// EditPages returns the local editable copy while in edit mode.
func (l *Lifecycle) EditPages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.editPages...)
}

// EnterEdit switches the review step into edit mode, seeding the local copy
// from the last-saved pages.
func (l *Lifecycle) EnterEdit() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.step != StepReviewDraft || l.editing || l.draft == nil {
		return
	}
	l.editing = true
	l.editPages = l.draft.ClonePages()
}

// SetPageText edits one page of the local copy.
func (l *Lifecycle) SetPageText(index int, text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.editing {
		return fmt.Errorf("not in edit mode")
	}
	if index < 0 || index >= len(l.editPages) {
		return fmt.Errorf("page index %d out of range", index)
	}
	l.editPages[index] = text
	return nil
}

// CancelEdit discards local edits and restores the last-saved baseline.
func (l *Lifecycle) CancelEdit() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.editing = false
	l.editPages = nil
}

// Save sends local edits upstream if they differ from the last-saved pages.
// A save with no changes performs no network call and is not an error.
// Either way a successful save leaves edit mode.
func (l *Lifecycle) Save(ctx context.Context) error {
	l.mu.Lock()
	if !l.editing || l.draft == nil {
		l.mu.Unlock()
		return nil
	}
	if pagesEqual(l.editPages, l.draft.Pages) {
		l.editing = false
		l.editPages = nil
		l.lastErr = ""
		l.mu.Unlock()
		return nil
	}
	if l.busy {
		l.mu.Unlock()
		return nil
	}
	l.busy = true
	draftID := l.draft.ID
	req := &model.DraftUpdateRequest{
		Title: l.draft.Title,
		Pages: append([]string(nil), l.editPages...),
	}
	l.mu.Unlock()

	updated, err := l.drafts.UpdateDraft(ctx, draftID, req)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.busy = false
	if err != nil {
		l.lastErr = err.Error()
		return err
	}
	l.draft = updated
	l.editing = false
	l.editPages = nil
	l.lastErr = ""
	return nil
}

// GenerateBook submits the draft for illustrated-book generation. The
// underlying machine's own guard absorbs repeated calls while a submission
// is in flight or tracking.
func (l *Lifecycle) GenerateBook(ctx context.Context) {
	l.mu.Lock()
	if l.step != StepReviewDraft || l.editing || l.draft == nil || l.done {
		l.mu.Unlock()
		log.Printf("Ignoring book generation outside review step")
		return
	}
	if l.machine == nil {
		l.machine = generation.NewMachine(l.tracker)
		l.machine.OnChange(l.onMachineChange)
	}
	machine := l.machine
	req := &model.BookGenerateRequest{DraftID: l.draft.ID}
	starter := l.starter
	l.mu.Unlock()

	machine.Submit(ctx, generation.NewBookSubmission(starter, req))
}

// Machine exposes the book generation machine for UI observation, nil until
// the first GenerateBook call.
func (l *Lifecycle) Machine() *generation.Machine {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.machine
}

func (l *Lifecycle) onMachineChange(s generation.State) {
	completed, ok := s.(generation.Completed)
	if !ok {
		if failed, ok := s.(generation.Failed); ok {
			l.mu.Lock()
			l.lastErr = failed.Reason
			l.mu.Unlock()
		}
		return
	}

	l.mu.Lock()
	l.done = true
	fn := l.onBookDone
	l.mu.Unlock()
	if fn != nil {
		fn(completed.Result)
	}
}

func pagesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// validationReason turns the first validator error into a displayable
// reason like "heroname required".
func validationReason(err error) error {
	if err == nil {
		return nil
	}
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		e := errs[0]
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s required", field)
		case "min", "max":
			return fmt.Errorf("%s out of range", field)
		default:
			return fmt.Errorf("%s invalid", field)
		}
	}
	return err
}
