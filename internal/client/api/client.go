// Package api is the HTTP client for the collection server's REST
// surface: board join (session token) and project snapshot load/save.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iudanet/canvasync/pkg/api"
)

// Client is the HTTP client for the server's non-streaming endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates an API client for baseURL (e.g. "http://host:8080").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Join requests a session token for a board.
func (c *Client) Join(ctx context.Context, req api.JoinRequest) (*api.JoinResponse, error) {
	var resp api.JoinResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/join", "", req, &resp); err != nil {
		return nil, fmt.Errorf("join request failed: %w", err)
	}
	return &resp, nil
}

// LoadProject fetches a stored project snapshot.
func (c *Client) LoadProject(ctx context.Context, token, projectID string) (*api.ProjectResponse, error) {
	var resp api.ProjectResponse
	path := fmt.Sprintf("/api/projects/%s", projectID)
	if err := c.doRequest(ctx, http.MethodGet, path, token, nil, &resp); err != nil {
		return nil, fmt.Errorf("load project request failed: %w", err)
	}
	return &resp, nil
}

// SaveProject stores a point-in-time snapshot under projectID.
func (c *Client) SaveProject(ctx context.Context, token, projectID string, req api.SaveProjectRequest) error {
	path := fmt.Sprintf("/api/projects/%s", projectID)
	if err := c.doRequest(ctx, http.MethodPut, path, token, req, nil); err != nil {
		return fmt.Errorf("save project request failed: %w", err)
	}
	return nil
}

// doRequest performs one JSON request/response round trip.
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result any) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
