package discogs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"crate/internal/logging"
	"crate/internal/services"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "crate/dev"
)

// HTTPDoer describes the HTTP client used to reach Discogs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response is the status and body of one GET request.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the status code is in the 2xx range.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Client provides authenticated access to the Discogs API.
type Client struct {
	token      string
	baseURL    string
	userAgent  string
	httpClient HTTPDoer
	interval   time.Duration
	logger     *slog.Logger

	mu          sync.Mutex
	lastRequest time.Time
	requests    atomic.Int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		if agent = strings.TrimSpace(agent); agent != "" {
			c.userAgent = agent
		}
	}
}

// WithRequestInterval spaces consecutive requests at least interval apart.
func WithRequestInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Discogs client.
func New(token, baseURL string, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("discogs api token required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("discogs base url required")
	}
	client := &Client{
		token:      token,
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "discogs")
	return client, nil
}

// RequestCount returns the number of requests issued so far.
func (c *Client) RequestCount() int64 {
	return c.requests.Load()
}

// Get issues one authenticated GET request. Transport failures are returned as
// errors; any status code is returned with its body.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	resource, _ := services.ResourceFromContext(ctx)

	if err := c.pace(ctx); err != nil {
		return nil, services.Wrap(services.ErrTransport, resource, "GET", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, resource, "build request", rawURL, err)
	}
	req.Header.Set("Authorization", "Discogs token="+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	c.requests.Add(1)
	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, resource, "GET", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, resource, "read body", rawURL, err)
	}

	logger := logging.WithContext(ctx, c.logger)
	logger.Debug("discogs request",
		logging.String("url", rawURL),
		logging.Int("status", resp.StatusCode),
		logging.Int("bytes", len(body)),
		logging.Duration("elapsed", time.Since(started)),
	)
	result := &Response{StatusCode: resp.StatusCode, Body: body}
	if !result.OK() {
		logging.WarnWithContext(logger, "discogs returned non-success status",
			"discogs_http_status",
			logging.String("url", rawURL),
			logging.Int("status", resp.StatusCode),
			logging.String(logging.FieldErrorHint, "check the API token and the Discogs rate limit"),
			logging.String(logging.FieldImpact, "response body is parsed anyway and may fail downstream"),
		)
	}
	return result, nil
}

// pace blocks until the configured interval has elapsed since the previous request.
func (c *Client) pace(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.interval > 0 && !c.lastRequest.IsZero() {
		if wait := c.interval - time.Since(c.lastRequest); wait > 0 {
			if err := sleepWithContext(ctx, wait); err != nil {
				return fmt.Errorf("wait for request slot: %w", err)
			}
		}
	}
	c.lastRequest = time.Now()
	return nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
