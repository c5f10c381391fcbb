// democlient submits one sticker generation against a running backend
// (cmd/devserver by default) and prints pushed progress until the job ends.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/fablecraft/appcore/internal/client"
	"github.com/fablecraft/appcore/internal/config"
	"github.com/fablecraft/appcore/internal/generation"
	"github.com/fablecraft/appcore/internal/model"
	"github.com/fablecraft/appcore/internal/session"
)

func main() {
	prompt := flag.String("prompt", "a cat wearing a tiny hat", "generation prompt")
	category := flag.String("category", "stickers", "generation category")
	style := flag.String("style", "watercolor", "style id")
	flag.Parse()

	if !model.Category(*category).Valid() {
		log.Fatalf("Unknown category %q (valid: %v)", *category, model.ValidCategories)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Auth.Token == "" {
		log.Fatal("FABLECRAFT_TOKEN not set; copy the dev token the devserver prints on startup")
	}

	coord := session.New(cfg, client.StaticCredential(cfg.Auth.Token))
	if !coord.API().IsConfigured() {
		log.Fatal("API_BASE_URL not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := coord.Connect(ctx); err != nil {
		log.Fatalf("Failed to open push stream: %v", err)
	}
	defer coord.Disconnect()

	done := make(chan generation.State, 1)
	machine := coord.NewImageFlow()
	machine.OnChange(func(s generation.State) {
		switch st := s.(type) {
		case generation.Tracking:
			log.Printf("[%3d%%] %s", st.Snapshot.Percent, st.Snapshot.Step)
		case generation.Completed, generation.Failed:
			done <- s
		}
	})

	req := &model.GenerationRequest{
		CategoryID: *category,
		StyleID:    *style,
		Prompt:     *prompt,
	}
	machine.Submit(ctx, generation.NewImageSubmission(coord.API(), req))

	select {
	case s := <-done:
		switch st := s.(type) {
		case generation.Completed:
			for _, asset := range st.Result.Assets {
				log.Printf("Generated: %s", asset.URL)
			}
			// Cross-check the server's final view of the job.
			if status, err := coord.API().GetJobStatus(ctx, st.Result.JobID); err == nil {
				log.Printf("Server status: %s (%d%%)", status.Status, status.Progress)
			}
		case generation.Failed:
			log.Fatalf("Generation failed: %s", st.Reason)
		}
	case <-ctx.Done():
		log.Fatal("Timed out waiting for generation")
	}
}
