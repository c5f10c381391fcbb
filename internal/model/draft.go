package model

import "time"

// DraftRequest is the request body for creating a story draft.
type DraftRequest struct {
	Theme     StoryTheme `json:"theme" validate:"required,oneof=adventure friendship bedtime animals space"`
	StoryType StoryType  `json:"storyType" validate:"required,oneof=picture-book comic rhyming"`
	PageCount int        `json:"pageCount" validate:"required,min=2,max=12"`
	HeroName  string     `json:"heroName" validate:"required,min=1,max=60"`
	HeroAge   int        `json:"heroAge,omitempty" validate:"omitempty,min=1,max=17"`
	Premise   string     `json:"premise,omitempty" validate:"omitempty,max=500"`
}

// Draft is the server-held intermediate story artifact.
type Draft struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Pages       []string   `json:"pages"`
	CoverPrompt string     `json:"coverPrompt,omitempty"`
	Theme       StoryTheme `json:"theme"`
	StoryType   StoryType  `json:"storyType"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ClonePages returns an independent copy of the draft's page texts.
func (d *Draft) ClonePages() []string {
	pages := make([]string, len(d.Pages))
	copy(pages, d.Pages)
	return pages
}

// DraftUpdateRequest replaces the editable fields of an existing draft.
type DraftUpdateRequest struct {
	Title string   `json:"title,omitempty" validate:"omitempty,max=120"`
	Pages []string `json:"pages" validate:"required,min=1,dive,min=1"`
}
