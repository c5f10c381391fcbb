package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/fablecraft/appcore/internal/model"
	"github.com/fablecraft/appcore/internal/story"
)

func TestStoryWizardEndToEnd(t *testing.T) {
	env := setupEnv(t)
	env.connect(t)

	wizard := env.coord.NewStoryFlow()
	ctx := context.Background()

	wizard.SetSelection(model.ThemeAdventure, model.StoryTypePicture)
	if err := wizard.Next(ctx); err != nil {
		t.Fatalf("select step failed: %v", err)
	}

	wizard.SetDetails(4, "Maya", 7, "a brave explorer finds a hidden valley")
	if err := wizard.Next(ctx); err != nil {
		t.Fatalf("draft creation failed: %v", err)
	}

	pages := wizard.PageTexts()
	if len(pages) != 4 {
		t.Fatalf("expected 4 pages from server draft, got %d", len(pages))
	}

	// Edit one page and save it back.
	wizard.EnterEdit()
	if err := wizard.SetPageText(0, "Maya laced her boots before sunrise."); err != nil {
		t.Fatal(err)
	}
	if err := wizard.Save(ctx); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if got := wizard.PageTexts()[0]; got != "Maya laced her boots before sunrise." {
		t.Errorf("expected saved page text, got %q", got)
	}

	results := make(chan model.GenerationResult, 1)
	wizard.OnBookComplete(func(r model.GenerationResult) { results <- r })

	wizard.GenerateBook(ctx)

	var result model.GenerationResult
	select {
	case result = <-results:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for book generation")
	}

	if len(result.Assets) != 4 {
		t.Errorf("expected one asset per page, got %d", len(result.Assets))
	}
	if result.CoverURL == "" {
		t.Error("expected a cover url")
	}
	if !wizard.Done() {
		t.Error("expected wizard marked done")
	}
}

func TestStoryDraftServerValidation(t *testing.T) {
	env := setupEnv(t)

	wizard := env.coord.NewStoryFlow()
	ctx := context.Background()

	wizard.SetSelection(model.ThemeSpace, model.StoryTypeComic)
	if err := wizard.Next(ctx); err != nil {
		t.Fatal(err)
	}

	// Local validation rejects the page count before any request is sent.
	wizard.SetDetails(40, "Remy", 6, "")
	if err := wizard.Next(ctx); err == nil {
		t.Fatal("expected page count rejection")
	}
	if wizard.Step() != story.StepFillDetails {
		t.Errorf("expected wizard to stay on details, got %s", wizard.Step())
	}
}
