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
	"time"

	"reelsmith/internal/api"
	"reelsmith/internal/workflow"
)

// ErrDaemonUnavailable reports that the daemon could not be reached.
var ErrDaemonUnavailable = errors.New("daemon is not reachable")

// Client talks to a running daemon over its HTTP API.
type Client struct {
	base string
	http *http.Client
}

// New builds a client for the daemon at the given bind address.
func New(bind string) *Client {
	base := strings.TrimSpace(bind)
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var status api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &status)
	return status, err
}

// Trigger starts a workflow and returns its ID.
func (c *Client) Trigger(ctx context.Context, req api.TriggerRequest) (string, error) {
	var resp api.TriggerResponse
	if err := c.do(ctx, http.MethodPost, "/api/workflows", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// List fetches active and recent executions.
func (c *Client) List(ctx context.Context) (api.WorkflowListResponse, error) {
	var resp api.WorkflowListResponse
	err := c.do(ctx, http.MethodGet, "/api/workflows", nil, &resp)
	return resp, err
}

// Get fetches one execution snapshot.
func (c *Client) Get(ctx context.Context, id string) (workflow.Snapshot, error) {
	var snapshot workflow.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/workflows/"+id, nil, &snapshot)
	return snapshot, err
}

// Cancel requests cancellation of one execution. It returns false when
// the workflow was already terminal.
func (c *Client) Cancel(ctx context.Context, id string) (bool, error) {
	var resp api.CancelResponse
	err := c.do(ctx, http.MethodDelete, "/api/workflows/"+id, nil, &resp)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.status == http.StatusConflict {
			return false, nil
		}
		return false, err
	}
	return resp.Cancelled, nil
}

type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("daemon returned %d: %s", e.status, e.message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload api.ErrorResponse
		message := resp.Status
		if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr == nil && payload.Error != "" {
			message = payload.Error
		}
		return &apiError{status: resp.StatusCode, message: message}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
