package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoJSONDecodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "chips" {
			t.Errorf("missing query param, got %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"value":"ok"}`))
	}))
	defer srv.Close()

	c := NewClient(time.Second, NewLimiter(2))
	var out struct {
		Value string `json:"value"`
	}
	params := url.Values{}
	params.Set("q", "chips")
	if err := c.DoJSON(context.Background(), http.MethodGet, srv.URL, nil, params, nil, &out); err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if out.Value != "ok" {
		t.Fatalf("unexpected response: %+v", out)
	}
}

func TestDoJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(time.Second, NewLimiter(1))
	err := c.DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil, nil, &struct{}{})
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusInternalServerError {
		t.Fatalf("expected StatusError 500, got %v", err)
	}
}

func TestDoJSONDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient(time.Second, NewLimiter(1))
	err := c.DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil, nil, &struct{}{})
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestDoJSONTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(50*time.Millisecond, NewLimiter(1))
	err := c.DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil, nil, nil)
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
}

func TestDoJSONCallerCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	c := NewClient(5*time.Second, NewLimiter(1))
	err := c.DoJSON(ctx, http.MethodGet, srv.URL, nil, nil, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDoJSONSendsBodyAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("missing auth header")
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("missing json content type")
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(time.Second, NewLimiter(1))
	body := map[string]any{"query": "x"}
	headers := map[string]string{"Authorization": "Bearer k"}
	if err := c.DoJSON(context.Background(), http.MethodPost, srv.URL, headers, nil, body, nil); err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
}

func TestLimiterBoundsInFlightRequests(t *testing.T) {
	const limit = 3
	var inFlight, peak int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&inFlight, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, NewLimiter(limit))
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil, nil, nil); err != nil {
				t.Errorf("DoJSON: %v", err)
			}
		}()
	}
	wg.Wait()

	if p := atomic.LoadInt64(&peak); p > limit {
		t.Fatalf("in-flight peak %d exceeded limit %d", p, limit)
	}
}
