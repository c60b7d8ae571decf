// Package ledger talks to the shared, cross-device draw ledger.
//
// HTTPClient speaks the check/record protocol against one endpoint per
// category. Simulated keeps the ledger in memory for demo runs and tests.
// Neither retries: the draw workflow owns the failure policy.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"carddraw/internal/models"
)

var (
	// ErrUnexpectedStatus is returned when the ledger answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected ledger status")
	// ErrNoEndpoint is returned when a category has no configured endpoint.
	ErrNoEndpoint = errors.New("no ledger endpoint for category")
)

type checkResponse struct {
	Exists bool `json:"exists"`
}

// HTTPClient is the production ledger client.
type HTTPClient struct {
	endpoints map[models.Category]string
	http      *http.Client
}

// NewHTTPClient creates a client for the given per-category endpoints.
// A zero timeout keeps the transport default.
func NewHTTPClient(endpoints map[models.Category]string, timeout time.Duration) *HTTPClient {
	cp := make(map[models.Category]string, len(endpoints))
	for c, u := range endpoints {
		cp[c] = u
	}
	return &HTTPClient{
		endpoints: cp,
		http:      &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) endpoint(category models.Category) (string, error) {
	u, ok := c.endpoints[category]
	if !ok || strings.TrimSpace(u) == "" {
		return "", fmt.Errorf("%w: %s", ErrNoEndpoint, category)
	}
	return u, nil
}

// CheckExists asks the ledger whether team already drew in category.
func (c *HTTPClient) CheckExists(ctx context.Context, category models.Category, team string) (bool, error) {
	base, err := c.endpoint(category)
	if err != nil {
		return false, err
	}
	u, err := url.Parse(base)
	if err != nil {
		return false, fmt.Errorf("parse ledger url: %w", err)
	}
	q := u.Query()
	q.Set("action", "check")
	q.Set("team", team)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return false, fmt.Errorf("build check request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("check team: %w", err)
	}
	defer resp.Body.Close()

	// A non-2xx body is never read, so the caller fails open on it.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("check team: %w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	var body checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode check response: %w", err)
	}
	return body.Exists, nil
}

// RecordResult appends (team, result) to the category's ledger. The response
// body is ignored.
func (c *HTTPClient) RecordResult(ctx context.Context, category models.Category, team, result string) error {
	base, err := c.endpoint(category)
	if err != nil {
		return err
	}
	form := url.Values{}
	form.Set("action", "record")
	form.Set("team", team)
	form.Set("result", result)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build record request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("record result: %w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}
