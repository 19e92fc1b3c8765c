package cms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const maxResponseBytes = 8 << 20

var ErrNotConfigured = errors.New("not configured")

// TransportError is returned when every attempt failed before a usable
// response was read (network error, timeout, truncated body).
type TransportError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a response that arrived but cannot be used: a non-2xx
// status or a body that is not JSON. It is never retried.
type StatusError struct {
	StatusCode  int
	ContentType string
}

func (e *StatusError) Error() string {
	if e.StatusCode >= 200 && e.StatusCode < 300 {
		return fmt.Sprintf("unexpected content type %q", e.ContentType)
	}
	return fmt.Sprintf("upstream returned HTTP %d", e.StatusCode)
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) IsJSON() bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json")
}

type FetchOptions struct {
	Header  http.Header
	Tries   int
	Timeout time.Duration
}

// FetchWithRetry issues a GET request, retrying up to opts.Tries times on
// transport failures only. Every attempt gets its own timeout and the body is
// read inside that window. HTTP error statuses are returned to the caller as-is.
func FetchWithRetry(ctx context.Context, client *http.Client, url string, opts FetchOptions) (*Response, error) {
	tries := max(opts.Tries, 1)

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= tries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}

		attempts = attempt
		resp, err := fetchOnce(ctx, client, url, opts)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		slog.Debug("Upstream attempt failed", "url", url, "attempt", attempt, "tries", tries, "error", err)
	}

	return nil, &TransportError{URL: url, Attempts: attempts, Err: lastErr}
}

func fetchOnce(ctx context.Context, client *http.Client, url string, opts FetchOptions) (*Response, error) {
	attemptCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range opts.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
