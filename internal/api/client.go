// Package api wraps the Learn@Home REST endpoints. Wrappers never return Go
// errors to the reconciliation layer: every outcome is normalized into a
// Result and callers branch on its flags. An unauthorized Result anywhere
// means the token is dead and the session must be torn down.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Result is the normalized outcome of one REST call.
//
// Valid=false, Authorized=true: the call failed but the token is fine
// (validation error or transient network failure). Authorized=false: the
// server rejected the token. No wrapper retries; retrying is the caller's
// decision and nothing in this flow does it automatically.
type Result struct {
	Valid       bool
	Authorized  bool
	Message     string
	FieldErrors map[string]string
}

func ok() Result {
	return Result{Valid: true, Authorized: true}
}

func transient(err error) Result {
	return Result{Valid: false, Authorized: true, Message: fmt.Sprintf("request failed, try again later: %v", err)}
}

type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// do runs one request and decodes a 2xx body into out (when out != nil).
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) Result {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return transient(err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return transient(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transient(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Result{Valid: false, Authorized: false, Message: "session expired"}
	case resp.StatusCode == http.StatusBadRequest:
		var payload struct {
			Errors map[string]string `json:"errors"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return Result{Valid: false, Authorized: true, Message: "validation failed", FieldErrors: payload.Errors}
	case resp.StatusCode >= 300:
		return Result{Valid: false, Authorized: true, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return transient(err)
		}
	}
	return ok()
}
