package trackerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Credentials are the per-project connection settings. They are built
// fresh from configuration for every call and never stored elsewhere.
type Credentials struct {
	Host   string
	APIKey string
}

// String redacts the API key so credentials are safe to print.
func (c Credentials) String() string {
	return fmt.Sprintf("{host=%s key=%s}", normalizeHost(c.Host), redact(c.APIKey))
}

// LogValue keeps the API key out of structured logs.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("host", normalizeHost(c.Host)),
		slog.String("key", redact(c.APIKey)),
	)
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

// Client provides methods to interact with the tracker REST API.
type Client struct {
	Host       string // Base URL without trailing slash
	APIKey     string
	MaxPages   int
	HTTPClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.HTTPClient = hc
		}
	}
}

// WithMaxPages bounds how many pages a collection listing may fetch.
func WithMaxPages(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.MaxPages = n
		}
	}
}

// NewClient creates a new tracker client.
func NewClient(host, key string, opts ...Option) *Client {
	c := &Client{
		Host:     normalizeHost(host),
		APIKey:   key,
		MaxPages: DefaultMaxPages,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromCredentials creates a client for the given credentials.
func NewClientFromCredentials(creds Credentials, opts ...Option) *Client {
	return NewClient(creds.Host, creds.APIKey, opts...)
}

func normalizeHost(host string) string {
	return strings.TrimRight(strings.TrimSpace(host), "/")
}

// do performs an authenticated request and reads the whole response body.
func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Host+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(APIKeyHeader, c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

func decode(resp *Response, path string, out interface{}) error {
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &DecodeError{Path: path, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

// Request sends a JSON request and decodes the JSON response into out.
// The status code is not inspected; a well-formed error body decodes like
// any other.
func (c *Client) Request(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	return decode(resp, path, out)
}

// getCollection fetches a listing and decodes the array stored under key
// into out. An error status or a body without key is an error, never an
// empty listing.
func (c *Client) getCollection(ctx context.Context, path, key string, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if resp.IsError() {
		var body struct {
			Errors []string `json:"errors"`
		}
		_ = json.Unmarshal(resp.Body, &body)
		return &StatusError{Path: path, StatusCode: resp.StatusCode, Errors: body.Errors}
	}

	var envelope map[string]json.RawMessage
	if err := decode(resp, path, &envelope); err != nil {
		return err
	}
	raw, ok := envelope[key]
	if !ok || string(raw) == "null" {
		return &DecodeError{Path: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("missing %q", key)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &DecodeError{Path: path, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

// Raw sends a JSON request and returns the response without decoding it,
// for callers that need to inspect the status code.
func (c *Client) Raw(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	return c.do(ctx, method, path, body)
}

// ListProjects retrieves every project, following offset pagination until
// the tracker returns an empty page.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	offset := 0

	for page := 0; ; page++ {
		if page >= c.MaxPages {
			return nil, fmt.Errorf("failed to list projects: %w (%d pages, offset %d)", ErrTooManyPages, page, offset)
		}

		params := url.Values{}
		params.Set("limit", fmt.Sprintf("%d", DefaultPageSize))
		params.Set("offset", fmt.Sprintf("%d", offset))

		var pageItems []Project
		if err := c.getCollection(ctx, "/projects.json?"+params.Encode(), "projects", &pageItems); err != nil {
			return nil, fmt.Errorf("failed to list projects: %w", err)
		}

		if len(pageItems) == 0 {
			break
		}
		projects = append(projects, pageItems...)
		offset += len(pageItems)
	}

	return projects, nil
}

// ListTrackers retrieves the issue categories.
func (c *Client) ListTrackers(ctx context.Context) ([]Tracker, error) {
	var trackers []Tracker
	if err := c.getCollection(ctx, "/trackers.json", "trackers", &trackers); err != nil {
		return nil, fmt.Errorf("failed to list trackers: %w", err)
	}
	return trackers, nil
}

// ListPriorities retrieves the issue priority enumeration.
func (c *Client) ListPriorities(ctx context.Context) ([]Priority, error) {
	var priorities []Priority
	if err := c.getCollection(ctx, "/enumerations/issue_priorities.json", "issue_priorities", &priorities); err != nil {
		return nil, fmt.Errorf("failed to list priorities: %w", err)
	}
	return priorities, nil
}

// GetIssue retrieves a single issue.
func (c *Client) GetIssue(ctx context.Context, ref Ref) (*Issue, error) {
	path := issuePath(ref)

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, &NotFoundError{Ref: ref, StatusCode: resp.StatusCode}
	}

	var env issueEnvelope
	if err := decode(resp, path, &env); err != nil {
		return nil, err
	}
	if env.Issue == nil {
		return nil, &NotFoundError{Ref: ref, StatusCode: resp.StatusCode}
	}
	return env.Issue, nil
}

// CreateIssue creates an issue from payload. Success is judged by the shape
// of the response: it must contain issue.id.
func (c *Client) CreateIssue(ctx context.Context, payload IssuePayload) (*Issue, error) {
	const path = "/issues.json"

	resp, err := c.do(ctx, http.MethodPost, path, createRequest{Issue: payload})
	if err != nil {
		return nil, err
	}

	var env issueEnvelope
	if err := decode(resp, path, &env); err != nil {
		return nil, err
	}
	if env.Issue == nil || env.Issue.ID.String() == "" {
		return nil, &CreationError{StatusCode: resp.StatusCode, Errors: env.Errors}
	}
	return env.Issue, nil
}

// AddComment appends a note to an existing issue. The raw response is
// returned so the caller can judge success from the status code.
func (c *Client) AddComment(ctx context.Context, ref Ref, comment string) (*Response, error) {
	return c.Raw(ctx, http.MethodPut, issuePath(ref), commentRequest{Issue: notesUpdate{Notes: comment}})
}

// IssueURL returns the web URL for an issue.
func (c *Client) IssueURL(ref Ref) string {
	return IssueURL(c.Host, ref)
}

// IssueURL builds the web URL for an issue on host.
func IssueURL(host string, ref Ref) string {
	return fmt.Sprintf("%s/issues/%s", normalizeHost(host), ref.String())
}

func issuePath(ref Ref) string {
	return fmt.Sprintf("/issues/%s.json", url.PathEscape(ref.String()))
}
