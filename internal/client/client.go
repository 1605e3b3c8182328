// Package client is the Go client for the planner API: durable-state
// pulls, heartbeats, roster and permission calls, and the relay socket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/Kwentar/wows-planner/internal/apperr"
	"github.com/Kwentar/wows-planner/internal/models"
)

// Tablet is the durable-state pull shape. can_edit is computed by the
// server as owner OR granted.
type Tablet struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	OwnerID      string         `json:"ownerId"`
	Layers       []models.Layer `json:"layers"`
	Pings        []models.Ping  `json:"pings,omitempty"`
	LastModified int64          `json:"lastModified"`
	CanEdit      bool           `json:"can_edit"`
}

// Patch is a partial durable mutation. A pings-only patch needs no edit
// grant.
type Patch struct {
	Title *string             `json:"title,omitempty"`
	State *models.TabletState `json:"state,omitempty"`
	Pings []models.Ping       `json:"pings,omitempty"`
}

// Me is the identity endpoint response.
type Me struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	IsAnonymous bool   `json:"isAnonymous"`
	Name        string `json:"name"`
}

// Client talks to one planner server. The cookie jar keeps the anonymous
// identity stable across calls and the socket dial.
type Client struct {
	baseURL string
	http    *http.Client
	headers map[string]string
}

// New creates a client for the given base URL.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		headers: make(map[string]string),
	}, nil
}

// SetHeader sets a header sent with every request (e.g. the access-proxy
// email header in tests).
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return apperr.ErrUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		return apperr.ErrForbidden
	case resp.StatusCode == http.StatusNotFound:
		return apperr.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: status %d: %s", method, endpoint, resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// GetMe resolves the caller's identity.
func (c *Client) GetMe(ctx context.Context) (Me, error) {
	var me Me
	err := c.do(ctx, http.MethodGet, "/me", nil, &me)
	return me, err
}

// Rename sets the caller's display name.
func (c *Client) Rename(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPatch, "/me", map[string]string{"name": name}, nil)
}

// ListTablets returns the caller's own tablets.
func (c *Client) ListTablets(ctx context.Context) ([]Tablet, error) {
	var out []Tablet
	err := c.do(ctx, http.MethodGet, "/planners", nil, &out)
	return out, err
}

// CreateTablet makes a new tablet.
func (c *Client) CreateTablet(ctx context.Context, title string) (Tablet, error) {
	var out Tablet
	err := c.do(ctx, http.MethodPost, "/planners", map[string]string{"title": title}, &out)
	return out, err
}

// GetTablet pulls the durable state of a tablet.
func (c *Client) GetTablet(ctx context.Context, id string) (Tablet, error) {
	var out Tablet
	err := c.do(ctx, http.MethodGet, "/planners/"+id, nil, &out)
	return out, err
}

// PatchTablet applies a partial durable mutation.
func (c *Client) PatchTablet(ctx context.Context, id string, patch Patch) error {
	return c.do(ctx, http.MethodPatch, "/planners/"+id, patch, nil)
}

// Heartbeat marks the caller present on the tablet. Soft no-op server
// side for unknown ids.
func (c *Client) Heartbeat(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/planners/"+id+"/heartbeat", nil, nil)
}

// SessionUsers fetches the presence roster.
func (c *Client) SessionUsers(ctx context.Context, id string) ([]models.SessionUser, error) {
	var out []models.SessionUser
	err := c.do(ctx, http.MethodGet, "/planners/"+id+"/users", nil, &out)
	return out, err
}

// SetPermission grants or revokes edit rights; owner only.
func (c *Client) SetPermission(ctx context.Context, id, userID string, canEdit bool) error {
	body := map[string]any{"userId": userID, "canEdit": canEdit}
	return c.do(ctx, http.MethodPost, "/planners/"+id+"/permissions", body, nil)
}
