package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stemsi/tryout-backend/internal/model"
)

// HTTPClient implements API over the REST endpoints and their JSON envelope.
type HTTPClient struct {
	baseURL string
	token   string
	// Lang is sent as Accept-Language so error messages come back localized.
	Lang string
	hc   *http.Client
}

// NewHTTPClient creates a client for baseURL authenticating with a bearer token.
// A nil hc uses a client with a 15 second timeout.
func NewHTTPClient(baseURL, token string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), token: token, hc: hc}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Lang != "" {
		req.Header.Set("Accept-Language", c.Lang)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &APIError{Status: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if env.Error != nil || resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code, apiErr.Message = env.Error.Code, env.Error.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func (c *HTTPClient) GetSessionDetails(ctx context.Context, sessionID int64) (*model.SessionDetails, error) {
	var data struct {
		Session model.SessionDetails `json:"session"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/sessions/%d", sessionID), nil, &data); err != nil {
		return nil, err
	}
	return &data.Session, nil
}

func (c *HTTPClient) GetQuestions(ctx context.Context, subtestID int64) ([]model.QuestionView, error) {
	var data struct {
		Questions []model.QuestionView `json:"questions"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/subtests/%d/questions", subtestID), nil, &data); err != nil {
		return nil, err
	}
	return data.Questions, nil
}

func (c *HTTPClient) SaveAnswer(ctx context.Context, req model.SaveAnswerRequest) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/sessions/%d/answers", req.SessionID), req, nil)
}

func (c *HTTPClient) Submit(ctx context.Context, req model.SubmitRequest) (*model.SubmitResult, error) {
	var data struct {
		Submission model.SubmitResult `json:"submission"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/sessions/%d/submit", req.SessionID), req, &data); err != nil {
		return nil, err
	}
	return &data.Submission, nil
}

// StartSession opens or resumes the caller's session for a subtest.
func (c *HTTPClient) StartSession(ctx context.Context, packageID, subtestID int64) (*model.SessionDetails, error) {
	var data struct {
		Session model.SessionDetails `json:"session"`
	}
	path := fmt.Sprintf("/api/v1/packages/%d/subtests/%d/sessions", packageID, subtestID)
	if err := c.do(ctx, http.MethodPost, path, nil, &data); err != nil {
		return nil, err
	}
	return &data.Session, nil
}

// GetSessionResult fetches the score breakdown once it is revealed.
func (c *HTTPClient) GetSessionResult(ctx context.Context, sessionID int64) (*model.SessionResult, error) {
	var data struct {
		Result model.SessionResult `json:"result"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/sessions/%d/result", sessionID), nil, &data); err != nil {
		return nil, err
	}
	return &data.Result, nil
}
