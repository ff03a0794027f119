// Package feed builds and issues feed API requests.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// APIKeyHeader carries the API key on every request.
const APIKeyHeader = "X-PachubeApiKey"

var (
	ErrInvalidTarget = errors.New("invalid target")
	ErrStatus        = errors.New("unexpected response status")
)

// Target is one feed to poll, optionally narrowed to one datastream.
type Target struct {
	Name         string
	FeedID       string
	DatastreamID string
	APIKey       string
}

// Single reports whether the target is narrowed to one datastream, in which
// case the response document is that datastream's record.
func (t Target) Single() bool {
	return t.DatastreamID != ""
}

// Label names the target in logs and summaries.
func (t Target) Label() string {
	if t.Name != "" {
		return t.Name
	}
	if t.Single() {
		return t.FeedID + "/" + t.DatastreamID
	}
	return t.FeedID
}

// Path returns the request path for the target.
func (t Target) Path() string {
	var sb strings.Builder
	sb.WriteString("/v2/feeds/")
	sb.WriteString(url.PathEscape(t.FeedID))
	if t.Single() {
		sb.WriteString("/datastreams/")
		sb.WriteString(url.PathEscape(t.DatastreamID))
	}
	sb.WriteString(".json")
	return sb.String()
}

func (t Target) Validate() error {
	if t.FeedID == "" {
		return fmt.Errorf("%w: feed id cannot be empty", ErrInvalidTarget)
	}
	if t.APIKey == "" {
		return fmt.Errorf("%w: %s: api key cannot be empty", ErrInvalidTarget, t.Label())
	}
	return nil
}

// Client issues feed requests against a base URL such as
// http://api.pachube.com.
type Client struct {
	http    *http.Client
	baseURL string
}

func NewClient(client *http.Client, baseURL string) *Client {
	return &Client{
		http:    client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// NewRequest builds the GET request for t.
func (c *Client) NewRequest(ctx context.Context, t Target) (*http.Request, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+t.Path(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(APIKeyHeader, t.APIKey)
	req.Header.Set("Accept", "application/json")

	return req, nil
}

// Fetch requests t and returns the response with its body unread.
func (c *Client) Fetch(ctx context.Context, t Target) (*http.Response, error) {
	req, err := c.NewRequest(ctx, t)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Do sends req. Non-2xx responses are drained, closed and reported as
// ErrStatus.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}

	return resp, nil
}
