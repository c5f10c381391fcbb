package stubserver

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fablecraft/appcore/internal/model"
)

type draftStore struct {
	mu     sync.RWMutex
	drafts map[string]*model.Draft
}

func newDraftStore() *draftStore {
	return &draftStore{drafts: make(map[string]*model.Draft)}
}

// create builds a draft with scripted page texts from the request fields.
func (s *draftStore) create(req *model.DraftRequest) *model.Draft {
	now := time.Now()
	draft := &model.Draft{
		ID:          uuid.New().String(),
		Title:       fmt.Sprintf("%s and the %s story", req.HeroName, req.Theme),
		Theme:       req.Theme,
		StoryType:   req.StoryType,
		CoverPrompt: fmt.Sprintf("%s, %s illustration, cover art", req.HeroName, req.Theme),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i := 0; i < req.PageCount; i++ {
		draft.Pages = append(draft.Pages,
			fmt.Sprintf("Page %d: %s continues the %s adventure.", i+1, req.HeroName, req.Theme))
	}

	s.mu.Lock()
	s.drafts[draft.ID] = draft
	s.mu.Unlock()
	return draft
}

func (s *draftStore) get(id string) (*model.Draft, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	draft, ok := s.drafts[id]
	return draft, ok
}

func (s *draftStore) update(id string, req *model.DraftUpdateRequest) (*model.Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft, ok := s.drafts[id]
	if !ok {
		return nil, false
	}
	if req.Title != "" {
		draft.Title = req.Title
	}
	draft.Pages = append([]string(nil), req.Pages...)
	draft.UpdatedAt = time.Now()
	return draft, true
}
