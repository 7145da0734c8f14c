// Package httpx is the single point of outbound network concern: one
// JSON-over-HTTP request with a bounded timeout, typed failures, and a shared
// limit on in-flight requests. Retries are a policy decision of the caller and
// deliberately absent here.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// TimeoutError reports a request that exceeded the per-call timeout.
type TimeoutError struct {
	URL string
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("request to %s timed out", e.URL) }

// StatusError reports a non-2xx response.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request to %s returned status %d: %s", e.URL, e.Status, e.Body)
}

// DecodeError reports a response body that could not be parsed as JSON.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Client performs single JSON requests over a limited transport.
type Client struct {
	client  *http.Client
	timeout time.Duration
}

// NewClient builds a client whose requests share the limiter's in-flight
// bound. timeout applies per request.
func NewClient(timeout time.Duration, limiter *Limiter) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		client:  &http.Client{Transport: limiter.Transport(nil)},
		timeout: timeout,
	}
}

// HTTPClient returns an *http.Client bound to the same limiter and timeout,
// for libraries that take a client rather than a transport.
func (c *Client) HTTPClient() *http.Client {
	return &http.Client{Transport: c.client.Transport, Timeout: c.timeout}
}

// DoJSON issues one request and decodes the JSON response into out. params, if
// non-nil, is encoded into the query string. Failures are one of
// *TimeoutError, *StatusError, *DecodeError, or the context's own error when
// the caller cancelled.
func (c *Client) DoJSON(ctx context.Context, method, rawURL string, headers map[string]string, params url.Values, body any, out any) error {
	if len(params) > 0 {
		sep := "?"
		if u, err := url.Parse(rawURL); err == nil && u.RawQuery != "" {
			sep = "&"
		}
		rawURL = rawURL + sep + params.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(b)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, rawURL, bodyReader)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Distinguish the per-call deadline from caller cancellation.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return &TimeoutError{URL: rawURL}
		}
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return &TimeoutError{URL: rawURL}
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{URL: rawURL, Status: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecodeError{URL: rawURL, Err: err}
	}
	return nil
}
