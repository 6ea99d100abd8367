// Package feed implements the HTTP client for the server's delta stream.
// All failures surface as errors so the caller's event cursor stays put;
// the next tick retries from the same position.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lu-zhengda/mailsync/internal/events"
)

// SessionProvider resolves the opaque session token for an account.
type SessionProvider interface {
	Session(accountID string) (string, error)
}

// Options tunes a Client.
type Options struct {
	// Timeout bounds each request end to end. Zero means DefaultTimeout.
	Timeout time.Duration
	// RequestsPerSecond throttles the client across all calls. Zero
	// means no throttling.
	RequestsPerSecond float64
}

// DefaultTimeout bounds one feed request when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Client fetches delta pages for one account over HTTP. It implements
// events.Feed.
type Client struct {
	baseURL    string
	accountID  string
	sessions   SessionProvider
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ events.Feed = (*Client)(nil)

// NewClient creates a delta-feed client for one account. baseURL is the
// API root, e.g. https://mail.example.com/api.
func NewClient(baseURL, accountID string, sessions SessionProvider, opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountID:  accountID,
		sessions:   sessions,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

// Fetch returns the page of deltas recorded after cursor.
func (c *Client) Fetch(ctx context.Context, cursor string) (*events.Response, error) {
	body, err := c.get(ctx, "/events?cursor="+url.QueryEscape(cursor))
	if err != nil {
		return nil, err
	}
	resp, err := events.ParseResponse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event page: %w", err)
	}
	return resp, nil
}

// LatestEventID returns the stream's current head cursor, used to
// bootstrap an account or restart after a server-demanded refresh.
func (c *Client) LatestEventID(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "/events/latest")
	if err != nil {
		return "", err
	}
	resp, err := events.ParseResponse(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse latest event: %w", err)
	}
	return resp.EventID, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for rate limiter: %w", err)
	}

	token, err := c.sessions.Session(c.accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
