package httpx

import (
	"io"
	"net/http"

	"golang.org/x/sync/semaphore"
)

// Limiter caps the number of simultaneous outbound HTTP requests across the
// whole process. Excess requests wait behind the semaphore; waiting respects
// the request context.
type Limiter struct {
	sem *semaphore.Weighted
}

// NewLimiter builds a limiter allowing n in-flight requests.
func NewLimiter(n int) *Limiter {
	if n <= 0 {
		n = 5
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n))}
}

// Transport wraps base so every round trip holds one semaphore slot. A nil
// base uses http.DefaultTransport.
func (l *Limiter) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &limitedTransport{base: base, limiter: l}
}

type limitedTransport struct {
	base    http.RoundTripper
	limiter *Limiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.sem.Acquire(req.Context(), 1); err != nil {
		return nil, err
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.limiter.sem.Release(1)
		return nil, err
	}
	// Hold the slot until the body is drained so the in-flight bound covers
	// the whole exchange, not just the headers.
	resp.Body = &releaseOnClose{ReadCloser: resp.Body, limiter: t.limiter}
	return resp, nil
}

type releaseOnClose struct {
	io.ReadCloser
	limiter *Limiter
	closed  bool
}

func (r *releaseOnClose) Close() error {
	if !r.closed {
		r.closed = true
		r.limiter.sem.Release(1)
	}
	return r.ReadCloser.Close()
}
