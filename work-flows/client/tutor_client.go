package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"dialogue-tutor/work-flows/models"
)

const (
	DefaultBaseURL    = "http://localhost:5001/api"
	ContentTypeHeader = "application/json"

	EndpointStartDialogue = "/start-dialogue"
	EndpointRespond       = "/respond"
	EndpointReview        = "/review"
)

// ErrMalformedResponse is returned when the service answers with a body that
// cannot be decoded.
var ErrMalformedResponse = errors.New("malformed response from tutoring service")

// StatusError reports a non-2xx answer from the service.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: request failed with status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: request failed with status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

type tutorClient struct {
	client  *http.Client
	baseURL string
}

type Option func(*tutorClient)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(tc *tutorClient) {
		if c != nil {
			tc.client = c
		}
	}
}

// NewTutorClient returns a client for the service rooted at baseURL, e.g.
// "http://localhost:5001/api". An empty baseURL selects DefaultBaseURL.
func NewTutorClient(baseURL string, opts ...Option) *tutorClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	tc := &tutorClient{
		client:  &http.Client{},
		baseURL: baseURL,
	}
	for _, opt := range opts {
		opt(tc)
	}
	return tc
}

func (tc *tutorClient) BaseURL() string {
	return tc.baseURL
}

func (tc *tutorClient) StartDialogue(ctx context.Context, req models.StartDialogueRequest) (*models.StartDialogueResponse, error) {
	var resp models.StartDialogueResponse
	if err := tc.post(ctx, EndpointStartDialogue, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (tc *tutorClient) Respond(ctx context.Context, req models.RespondRequest) (*models.RespondResponse, error) {
	if req.History == nil {
		req.History = []models.HistoryEntry{}
	}

	var resp models.RespondResponse
	if err := tc.post(ctx, EndpointRespond, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (tc *tutorClient) Review(ctx context.Context, req models.ReviewRequest) (*models.Review, error) {
	if req.History == nil {
		req.History = []models.HistoryEntry{}
	}

	var review models.Review
	if err := tc.post(ctx, EndpointReview, req, &review); err != nil {
		return nil, err
	}
	review.Normalize()
	return &review, nil
}

func (tc *tutorClient) post(ctx context.Context, endpoint string, body any, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tc.baseURL+endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", ContentTypeHeader)
	req.Header.Set("Accept", ContentTypeHeader)

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, endpoint, err)
	}
	return nil
}
