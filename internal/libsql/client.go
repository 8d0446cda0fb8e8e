// Package libsql is a minimal client for libSQL databases reached over the
// HTTP pipeline protocol. Every Execute is one stateless request that runs a
// single statement and closes the stream.
package libsql

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	pipelinePath   = "/v2/pipeline"
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 64 << 10
)

var (
	ErrEmptyURL          = errors.New("libsql: database url is empty")
	ErrEmptyToken        = errors.New("libsql: auth token is empty")
	ErrUnsupportedScheme = errors.New("libsql: unsupported url scheme")
)

// Client executes statements against one database. It is safe for
// concurrent use.
type Client struct {
	endpoint   string
	authToken  string
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds every request. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func New(databaseURL, authToken string, opts ...Option) (*Client, error) {
	const op = "libsql.New"

	if strings.TrimSpace(authToken) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyToken)
	}

	base, err := NormalizeURL(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c := &Client{
		endpoint:  base + pipelinePath,
		authToken: authToken,
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}

	return c, nil
}

// NormalizeURL turns a libsql:// database URL into the https:// base the
// pipeline endpoint hangs off. http and https URLs pass through.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("libsql: parse url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "libsql", "https":
		u.Scheme = "https"
	case "http":
		u.Scheme = "http"
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("libsql: url %q has no host", raw)
	}

	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/"), nil
}

// Endpoint is the pipeline URL requests are posted to.
func (c *Client) Endpoint() string { return c.endpoint }

// Execute runs one statement with positional args and returns its result.
// Every failure is an *Error.
func (c *Client) Execute(ctx context.Context, sql string, args ...any) (*Result, error) {
	body, err := json.Marshal(newPipeline(sql, args))
	if err != nil {
		return nil, &Error{Message: "encode request", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Message: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp)
	}

	var out pipelineResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Status: resp.Status, Message: "decode response", Err: err}
	}

	if out.Error != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Status: resp.Status, Message: out.Error.Message, Code: out.Error.Code}
	}
	if len(out.Results) == 0 {
		return nil, &Error{StatusCode: resp.StatusCode, Status: resp.Status, Message: "empty pipeline response"}
	}

	first := out.Results[0]
	if first.Type == resultError || first.Error != nil {
		msg, code := "statement failed", ""
		if first.Error != nil {
			if first.Error.Message != "" {
				msg = first.Error.Message
			}
			code = first.Error.Code
		}
		return nil, &Error{StatusCode: resp.StatusCode, Status: resp.Status, Message: msg, Code: code}
	}

	if first.Response == nil || first.Response.Result == nil {
		return &Result{Columns: []Column{}, Rows: []Row{}}, nil
	}
	return first.Response.Result.normalize(), nil
}

// Close releases idle connections held by the HTTP client.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func statusError(resp *http.Response) *Error {
	e := &Error{StatusCode: resp.StatusCode, Status: resp.Status, Message: "unexpected status"}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if len(bytes.TrimSpace(raw)) == 0 {
		return e
	}

	var body struct {
		Error *wireError `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != nil && body.Error.Message != "" {
		e.Message = body.Error.Message
		e.Code = body.Error.Code
		return e
	}

	e.Message = strings.TrimSpace(string(raw))
	return e
}
