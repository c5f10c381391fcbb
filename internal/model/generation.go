package model

// GenerationRequest is the request body for starting an image generation job.
type GenerationRequest struct {
	CategoryID string     `json:"categoryId" validate:"required,oneof=stickers avatars posters coloring"`
	StyleID    string     `json:"styleId" validate:"required,min=1"`
	Prompt     string     `json:"prompt" validate:"required_without=ImageRef,omitempty,min=1,max=1000"`
	ImageRef   string     `json:"imageRef,omitempty" validate:"omitempty,url"`
	Quality    Quality    `json:"quality,omitempty" validate:"omitempty,oneof=standard high"`
	Model      string     `json:"model,omitempty" validate:"omitempty,max=64"`
	Dimensions Dimensions `json:"dimensions,omitempty" validate:"omitempty,oneof=square portrait landscape"`
	Count      int        `json:"count,omitempty" validate:"omitempty,min=1,max=4"`
}

// BookGenerateRequest starts illustrated-book generation for a finished draft.
// Options beyond the draft id are fixed server-side defaults.
type BookGenerateRequest struct {
	DraftID string  `json:"draftId" validate:"required,min=1"`
	Quality Quality `json:"quality,omitempty" validate:"omitempty,oneof=standard high"`
}

// GeneratedAsset is one output artifact of a generation job.
type GeneratedAsset struct {
	URL       string `json:"url"`
	MimeType  string `json:"mimeType,omitempty"`
	PageIndex int    `json:"pageIndex,omitempty"`
}

// GenerationResult is the payload of a succeeded job.
type GenerationResult struct {
	JobID    string           `json:"jobId"`
	Kind     JobKind          `json:"kind"`
	Assets   []GeneratedAsset `json:"assets"`
	CoverURL string           `json:"coverUrl,omitempty"`
}
