// Package upstream talks to the external user directory the storefront used
// before accounts moved into its own database.
package upstream

import (
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
	validatePath = "/api/validate.php"
	listingPath  = "/api/listing.php"
	maxBody      = 1 << 20
)

var (
	ErrUpstream = errors.New("user directory unavailable")
	ErrRejected = errors.New("user directory rejected the credentials")
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// DirectoryUser is what the directory tells us about a validated account.
type DirectoryUser struct {
	Email     string
	FirstName string
	LastName  string
}

func New(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	const op = "upstream.New"

	if apiKey == "" {
		return nil, fmt.Errorf("%s: api key is empty", op)
	}
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%s: invalid base url %q", op, baseURL)
	}

	return &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type validateResponse struct {
	Success *bool  `json:"success"`
	Valid   *bool  `json:"valid"`
	Status  string `json:"status"`
	Error   string `json:"error"`
	User    struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"user"`
}

func (r validateResponse) ok() bool {
	switch {
	case r.Success != nil:
		return *r.Success
	case r.Valid != nil:
		return *r.Valid
	default:
		return strings.EqualFold(r.Status, "success") || strings.EqualFold(r.Status, "ok")
	}
}

// Validate checks email and password against the directory. Rejected
// credentials yield ErrRejected; anything else that goes wrong is ErrUpstream.
func (c *Client) Validate(ctx context.Context, email, password string) (DirectoryUser, error) {
	const op = "upstream.Validate"

	status, body, err := c.post(ctx, validatePath, url.Values{
		"email":    {email},
		"password": {password},
	})
	if err != nil {
		return DirectoryUser{}, fmt.Errorf("%s: %w", op, err)
	}

	switch {
	case status >= 500:
		return DirectoryUser{}, fmt.Errorf("%s: %w: status %d", op, ErrUpstream, status)
	case status >= 400:
		return DirectoryUser{}, fmt.Errorf("%s: %w", op, ErrRejected)
	}

	var resp validateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return DirectoryUser{}, fmt.Errorf("%s: %w: %v", op, ErrUpstream, err)
	}
	if !resp.ok() {
		return DirectoryUser{}, fmt.Errorf("%s: %w", op, ErrRejected)
	}

	user := DirectoryUser{Email: email, FirstName: resp.User.FirstName, LastName: resp.User.LastName}
	if resp.User.Email != "" {
		user.Email = resp.User.Email
	}
	return user, nil
}

// ListUsers returns the directory listing as the directory sent it.
func (c *Client) ListUsers(ctx context.Context) (json.RawMessage, error) {
	const op = "upstream.ListUsers"

	status, body, err := c.post(ctx, listingPath, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("%s: %w: status %d", op, ErrUpstream, status)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%s: %w: response is not json", op, ErrUpstream)
	}

	return json.RawMessage(body), nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values) (int, []byte, error) {
	form.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	return resp.StatusCode, body, nil
}
