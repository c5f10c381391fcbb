package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/fablecraft/appcore/internal/config"
	"github.com/fablecraft/appcore/internal/model"
)

// CredentialSource supplies the opaque bearer credential for API calls and
// the push stream. The client never inspects or refreshes it.
type CredentialSource interface {
	Token() string
}

// StaticCredential is a CredentialSource holding a fixed token.
type StaticCredential string

func (s StaticCredential) Token() string { return string(s) }

// GenerationStarter defines the interface for starting generation jobs.
type GenerationStarter interface {
	CreateGeneration(ctx context.Context, req *model.GenerationRequest) (*model.CreateJobResponse, error)
	CreateBook(ctx context.Context, req *model.BookGenerateRequest) (*model.CreateJobResponse, error)
}

// DraftService defines the interface for story draft operations.
type DraftService interface {
	CreateDraft(ctx context.Context, req *model.DraftRequest) (*model.Draft, error)
	UpdateDraft(ctx context.Context, draftID string, req *model.DraftUpdateRequest) (*model.Draft, error)
}

// API is the HTTP client for the Fablecraft backend.
type API struct {
	httpClient *http.Client
	baseURL    string
	creds      CredentialSource
}

// NewAPI creates a new API client.
func NewAPI(cfg *config.APIConfig, creds CredentialSource) *API {
	return &API{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.BaseURL,
		creds:   creds,
	}
}

// CreateGeneration starts an image generation job and returns its id.
func (c *API) CreateGeneration(ctx context.Context, req *model.GenerationRequest) (*model.CreateJobResponse, error) {
	var result model.CreateJobResponse
	if err := c.post(ctx, "/api/generations", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateBook starts illustrated-book generation for a draft.
func (c *API) CreateBook(ctx context.Context, req *model.BookGenerateRequest) (*model.CreateJobResponse, error) {
	var result model.CreateJobResponse
	if err := c.post(ctx, "/api/books", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateDraft creates a new story draft.
func (c *API) CreateDraft(ctx context.Context, req *model.DraftRequest) (*model.Draft, error) {
	var result model.Draft
	if err := c.post(ctx, "/api/drafts", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateDraft replaces the editable fields of an existing draft.
func (c *API) UpdateDraft(ctx context.Context, draftID string, req *model.DraftUpdateRequest) (*model.Draft, error) {
	var result model.Draft
	if err := c.put(ctx, "/api/drafts/"+draftID, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetJobStatus retrieves the server-side view of a job. The live state
// machines never poll; this exists for diagnostics and the demo CLI.
func (c *API) GetJobStatus(ctx context.Context, jobID string) (*model.JobStatusResponse, error) {
	var result model.JobStatusResponse
	if err := c.get(ctx, "/api/jobs/"+jobID, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// post sends a POST request with JSON body
func (c *API) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	return c.send(ctx, http.MethodPost, endpoint, body, result)
}

// put sends a PUT request with JSON body
func (c *API) put(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	return c.send(ctx, http.MethodPut, endpoint, body, result)
}

// get sends a GET request and parses JSON response
func (c *API) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.doRequest(req, result)
}

func (c *API) send(ctx context.Context, method, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// doRequest executes an HTTP request and parses the response
func (c *API) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	if c.creds != nil {
		req.Header.Set("Authorization", "Bearer "+c.creds.Token())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Fablecraft API] %s %s — request failed: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("api error (status %d): %s", resp.StatusCode, apiErrorMessage(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// apiErrorMessage extracts the error message from a JSON error body,
// falling back to the raw body.
func apiErrorMessage(body []byte) string {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return string(body)
}

// IsConfigured returns true if the client has a base URL to talk to.
func (c *API) IsConfigured() bool {
	return c.baseURL != ""
}
