package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shopanalyst/internal/utils"
)

const fallbackMessage = "an unexpected error occurred"

// GatewayError is the single failure shape the rest of the client sees. Any
// transport error, non-2xx status or malformed payload is collapsed into one
// human-readable message; callers never handle raw HTTP errors.
type GatewayError struct {
	Op      string
	Message string
}

func (e *GatewayError) Error() string { return e.Message }

// Client talks to the analyst backend's REST API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *utils.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *utils.Logger) *Client {
	if logger == nil {
		logger = utils.NewDiscardLogger()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Health probes backend liveness.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, "health")
}

// CreateSession asks the backend for a new session scoped to storeURL and
// returns its id.
func (c *Client) CreateSession(ctx context.Context, storeURL string) (string, error) {
	var out createSessionResponse
	if err := c.do(ctx, http.MethodPost, "/sessions", createSessionRequest{StoreURL: storeURL}, &out, "create session"); err != nil {
		return "", err
	}
	return out.SessionID, nil
}

// Chat sends one turn and waits for the analyst's reply.
func (c *Client) Chat(ctx context.Context, sessionID, message string) (*ChatResponse, error) {
	var out ChatResponse
	if err := c.do(ctx, http.MethodPost, "/chat", chatRequest{SessionID: sessionID, Message: message}, &out, "chat"); err != nil {
		return nil, err
	}
	return &out, nil
}

// History returns the ordered message log for a session.
func (c *Client) History(ctx context.Context, sessionID string) ([]HistoryMessage, error) {
	var out []HistoryMessage
	path := "/sessions/" + url.PathEscape(sessionID) + "/history"
	if err := c.do(ctx, http.MethodGet, path, nil, &out, "fetch history"); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSessions returns all known sessions in server order.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var out []Session
	if err := c.do(ctx, http.MethodGet, "/sessions", nil, &out, "list sessions"); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteSession removes a session server-side.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(sessionID), nil, nil, "delete session")
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, op string) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return c.fail(op, fallbackMessage, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return c.fail(op, fallbackMessage, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(op, transportMessage(err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.fail(op, statusMessage(resp), nil)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return c.fail(op, fallbackMessage, err)
		}
	}
	return nil
}

func (c *Client) fail(op, message string, cause error) error {
	if cause != nil {
		c.logger.Debugf("api %s: %v", op, cause)
	}
	return &GatewayError{Op: op, Message: message}
}

// statusMessage extracts the backend's {"detail": "..."} error body when
// present, otherwise falls back to the HTTP status line.
func statusMessage(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil {
		var payload struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Detail != "" {
			return payload.Detail
		}
	}
	if resp.Status != "" {
		return fmt.Sprintf("request failed: %s", resp.Status)
	}
	return fallbackMessage
}

func transportMessage(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		err = uerr.Err
	}
	if err == nil || err.Error() == "" {
		return fallbackMessage
	}
	return err.Error()
}
