package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

// StatusError is a non-2xx response from a remote endpoint.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.Code)
}

// Transient reports whether err is worth retrying: network-level failures and
// responses with status 5xx, 408 or 429. Any other 4xx is terminal.
func Transient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Code >= 500:
			return true
		case statusErr.Code == http.StatusRequestTimeout, statusErr.Code == http.StatusTooManyRequests:
			return true
		default:
			return false
		}
	}

	// anything that never produced a response is a network-level failure
	return true
}

type Config struct {
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	UserAgent   string
}

func DefaultConfig() Config {
	return Config{
		Timeout:     30 * time.Second,
		MaxAttempts: 5,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		UserAgent:   "mediasync/1.0",
	}
}

// Client wraps an *http.Client with bounded retries. The connection pool is
// shared across calls, the retry state is not.
type Client struct {
	http *http.Client
	cfg  Config
}

func NewClient(cfg Config) *Client {
	// the jitter draw needs a positive range
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Millisecond
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}

	return &Client{
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
		cfg: cfg,
	}
}

// HTTPClient exposes the pooled client for SDKs that bring their own request
// plumbing. Calls made through it get the shared pool but no retries; wrap
// those calls in Do.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Get fetches url and returns the response body. Transient failures are
// retried with backoff, a terminal status fails immediately as a StatusError.
func (c *Client) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	var body []byte
	err := c.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		for k, vs := range header {
			req.Header[k] = vs
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			io.Copy(io.Discard, resp.Body)
			return &StatusError{Code: resp.StatusCode, URL: url}
		}

		body, err = io.ReadAll(resp.Body)

		return err
	}, Transient)

	return body, err
}

// Do runs op, retrying transient failures up to the attempt budget with
// decorrelated-jitter backoff. Cancelling ctx aborts the in-flight attempt
// and schedules no further ones.
func (c *Client) Do(ctx context.Context, op func(context.Context) error, transient func(error) bool) error {
	if transient == nil {
		transient = Transient
	}

	var lastErr error
	delay := c.cfg.BaseDelay
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !transient(lastErr) {
			return lastErr
		}
		if attempt == c.cfg.MaxAttempts {
			break
		}

		// decorrelated jitter: sleep somewhere between the base delay and
		// three times the previous sleep, capped
		delay = c.cfg.BaseDelay + time.Duration(rand.Int63n(int64(3*delay)))
		if delay > c.cfg.MaxDelay {
			delay = c.cfg.MaxDelay
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("gave up after %d attempts: %w", c.cfg.MaxAttempts, lastErr)
}
