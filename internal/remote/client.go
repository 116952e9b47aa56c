package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

// Request describes one JSON-over-HTTP call.
type Request struct {
	Op     Op
	Method string
	Path   string
	Query  url.Values
	Body   any // JSON-encoded when non-nil
	Out    any // JSON-decoded into when non-nil
}

// Client performs remote calls with a bounded wait, retries on transient
// failures, and reports every call to an Observer.
type Client struct {
	cfg      Config
	http     *http.Client
	observer Observer
	auth     func(*http.Request)
	authErr  error
}

// Option customises a Client.
type Option func(*Client)

// WithAuth sets a hook that decorates each outgoing request with credentials.
func WithAuth(fn func(*http.Request)) Option {
	return func(c *Client) { c.auth = fn }
}

// WithAuthError sets the sentinel returned for 401/403 responses.
func WithAuthError(err error) Option {
	return func(c *Client) { c.authErr = err }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a Client for cfg.BaseURL.
func NewClient(cfg Config, observer Observer, opts ...Option) *Client {
	if observer == nil {
		observer = NoopObserver{}
	}
	c := &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
		observer: observer,
		authErr:  ErrAuthRequired,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the client's configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Do executes req within the op's timeout. 401/403 responses map to the
// client's auth sentinel and are not retried.
func (c *Client) Do(ctx context.Context, req Request) error {
	start := time.Now()
	var attempts atomic.Int32

	_, err := WithTimeout(ctx, c.cfg.OpTimeout(req.Op), func(ctx context.Context) (struct{}, error) {
		var lastErr error
		for i := 0; i < 1+c.cfg.MaxRetries; i++ {
			attempts.Add(1)
			err := c.doRequest(ctx, req)
			if err == nil {
				return struct{}{}, nil
			}
			lastErr = err
			if ctx.Err() != nil || !retryable(err) {
				break
			}
		}
		return struct{}{}, lastErr
	})

	if err != nil && !isSentinel(err) {
		switch {
		case isConnectionError(err):
			err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		case int(attempts.Load()) > 1:
			err = fmt.Errorf("%w: %w", ErrRetryExhausted, err)
		}
	}

	c.observer.OnCallComplete(CallEvent{
		Service:   c.cfg.Service,
		Op:        req.Op,
		LatencyMs: time.Since(start).Milliseconds(),
		Attempts:  int(attempts.Load()),
		Success:   err == nil,
		ErrorCode: ErrorCode(err),
	})
	return err
}

func (c *Client) doRequest(ctx context.Context, req Request) error {
	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	u := strings.TrimRight(c.cfg.BaseURL, "/") + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.auth != nil {
		c.auth(httpReq)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	switch {
	case httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden:
		return c.authErr
	case httpResp.StatusCode < 200 || httpResp.StatusCode > 299:
		return &StatusError{Code: httpResp.StatusCode, Body: truncate(string(respBody), 200)}
	}

	if req.Out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, req.Out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// StatusError carries a non-success HTTP status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote returned status %d: %s", e.Code, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

// WithTimeout races fn against a timer. On expiry it returns ErrTimeout
// without waiting for fn; a late result from fn is discarded.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if timeout <= 0 {
		return fn(ctx)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(callCtx)
		done <- result{v: v, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return r.v, r.err
	case <-timer.C:
		return zero, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	if isSentinel(err) || errors.Is(err, ErrInvalidResponse) {
		return false
	}
	return true
}

func isSentinel(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrAuthRequired) ||
		errors.Is(err, ErrJiraAuthRequired) ||
		errors.Is(err, context.Canceled)
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr *net.OpError
	return errors.As(err, &netErr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
