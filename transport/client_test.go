package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond

	return cfg
}

func TestGetRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := NewClient(testConfig())
	body, err := client.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("expected body %q, got %q", "ok", string(body))
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestGetFailsImmediatelyOnTerminalStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(testConfig())
	_, err := client.Get(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Errorf("expected a 404 StatusError, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", got)
	}
}

func TestGetExhaustsAttemptBudget(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxAttempts = 3
	client := NewClient(cfg)
	_, err := client.Get(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestGetWithZeroDelays(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	// an unset backoff must not blow up the jitter draw
	client := NewClient(Config{Timeout: time.Second, MaxAttempts: 3})
	body, err := client.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("expected body %q, got %q", "ok", string(body))
	}
}

func TestGetStopsOnCancellation(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.BaseDelay = time.Minute
	cfg.MaxDelay = time.Minute
	client := NewClient(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := client.Get(ctx, srv.URL, nil)
		done <- err
	}()

	// let the first attempt fail, then cancel during the backoff
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancellation did not abort the retry loop")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 attempt before cancellation, got %d", got)
	}
}

func TestTransient(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
		want bool
	}{
		{"server error", &StatusError{Code: 500}, true},
		{"bad gateway", &StatusError{Code: 502}, true},
		{"request timeout", &StatusError{Code: 408}, true},
		{"too many requests", &StatusError{Code: 429}, true},
		{"not found", &StatusError{Code: 404}, false},
		{"unauthorized", &StatusError{Code: 401}, false},
		{"network failure", errors.New("connection refused"), true},
		{"cancelled", context.Canceled, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := Transient(tc.err); got != tc.want {
				t.Errorf("Transient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
