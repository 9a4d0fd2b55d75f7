// Package client talks to a MockMate server over HTTP. *Client satisfies the
// interview session's Relay and the voice call's Transcriber.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jxucoder/mockmate/pkg/model"
)

// HeaderUserID carries the caller identity for saved interviews.
const HeaderUserID = "X-User-ID"

// APIError is an {error} response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

// NetworkError wraps a failure to reach the server or decode its reply.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "Network or Client Error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// Client is an HTTP client for the MockMate API.
type Client struct {
	baseURL string
	userID  string
	client  *http.Client
}

// New creates a client for the server at baseURL. userID is sent with
// interview history requests; empty means anonymous.
func New(baseURL, userID string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.client = hc
	return c
}

type textResponse struct {
	Text string `json:"text"`
}

// Interview relays one turn. A nil history is sent as an empty array.
func (c *Client) Interview(ctx context.Context, history []model.Turn, role string) (string, error) {
	if history == nil {
		history = []model.Turn{}
	}
	req := struct {
		History []model.Turn `json:"history"`
		Role    string       `json:"role"`
	}{history, role}

	var resp textResponse
	if err := c.do(ctx, http.MethodPost, "/api/interview", req, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Transcribe sends recorded audio as base64 JSON and returns the transcript.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	req := struct {
		Audio    string `json:"audio"`
		MIMEType string `json:"mimeType,omitempty"`
	}{base64.StdEncoding.EncodeToString(audio), mimeType}

	var resp textResponse
	if err := c.do(ctx, http.MethodPost, "/api/transcribe", req, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

// SaveInterview stores a transcript and returns the saved record.
func (c *Client) SaveInterview(ctx context.Context, iv *model.Interview) (*model.Interview, error) {
	req := struct {
		ID      string       `json:"id,omitempty"`
		Role    string       `json:"role"`
		History []model.Turn `json:"history"`
	}{iv.ID, iv.Role, iv.History}

	var saved model.Interview
	if err := c.do(ctx, http.MethodPost, "/api/interviews", req, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// ListInterviews returns the caller's saved interviews, newest first.
func (c *Client) ListInterviews(ctx context.Context) ([]*model.Interview, error) {
	var out []*model.Interview
	if err := c.do(ctx, http.MethodGet, "/api/interviews", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetInterview fetches one saved interview.
func (c *Client) GetInterview(ctx context.Context, id string) (*model.Interview, error) {
	var iv model.Interview
	if err := c.do(ctx, http.MethodGet, "/api/interviews/"+url.PathEscape(id), nil, &iv); err != nil {
		return nil, err
	}
	return &iv, nil
}

// do performs a JSON round trip. Server {error} bodies become *APIError;
// everything else that goes wrong becomes *NetworkError.
func (c *Client) do(ctx context.Context, method, path string, reqBody, respBody any) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return &NetworkError{Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &NetworkError{Err: err}
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userID != "" {
		req.Header.Set(HeaderUserID, c.userID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return &APIError{Status: resp.StatusCode, Message: e.Error}
		}
		return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if err := json.Unmarshal(data, respBody); err != nil {
		return &NetworkError{Err: fmt.Errorf("parsing response: %w", err)}
	}
	return nil
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == status
}
