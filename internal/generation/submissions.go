package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fablecraft/appcore/internal/client"
	"github.com/fablecraft/appcore/internal/model"
)

var validate = validator.New()

// Submitter is one creation request the machine can run: validated locally
// first, then sent to the matching creation endpoint.
type Submitter interface {
	Kind() model.JobKind
	Validate() error
	Submit(ctx context.Context) (*model.CreateJobResponse, error)
}

// ImageSubmission submits an image generation request.
type ImageSubmission struct {
	Request *model.GenerationRequest
	starter client.GenerationStarter
}

// NewImageSubmission wraps a generation request for submission.
func NewImageSubmission(starter client.GenerationStarter, req *model.GenerationRequest) *ImageSubmission {
	return &ImageSubmission{Request: req, starter: starter}
}

func (s *ImageSubmission) Kind() model.JobKind { return model.JobKindImage }

func (s *ImageSubmission) Validate() error {
	return validationReason(validate.Struct(s.Request))
}

func (s *ImageSubmission) Submit(ctx context.Context) (*model.CreateJobResponse, error) {
	return s.starter.CreateGeneration(ctx, s.Request)
}

// BookSubmission submits illustrated-book generation for a finished draft.
type BookSubmission struct {
	Request *model.BookGenerateRequest
	starter client.GenerationStarter
}

// NewBookSubmission wraps a book generation request for submission.
func NewBookSubmission(starter client.GenerationStarter, req *model.BookGenerateRequest) *BookSubmission {
	return &BookSubmission{Request: req, starter: starter}
}

func (s *BookSubmission) Kind() model.JobKind { return model.JobKindBook }

func (s *BookSubmission) Validate() error {
	return validationReason(validate.Struct(s.Request))
}

func (s *BookSubmission) Submit(ctx context.Context) (*model.CreateJobResponse, error) {
	return s.starter.CreateBook(ctx, s.Request)
}

// validationReason turns the first validator error into a displayable
// reason like "prompt required".
func validationReason(err error) error {
	if err == nil {
		return nil
	}
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		e := errs[0]
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required", "required_without":
			return fmt.Errorf("%s required", field)
		case "min", "max":
			return fmt.Errorf("%s out of range", field)
		default:
			return fmt.Errorf("%s invalid", field)
		}
	}
	return err
}
