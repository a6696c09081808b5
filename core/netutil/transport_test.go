package netutil

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type scriptedTransport struct {
	errs  []error
	calls int
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls++
	if s.calls <= len(s.errs) {
		return nil, s.errs[s.calls-1]
	}
	rec := httptest.NewRecorder()
	rec.WriteString("ok")
	return rec.Result(), nil
}

func dialErr() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
}

func TestRetryTransportRetriesDialErrors(t *testing.T) {
	base := &scriptedTransport{errs: []error{dialErr(), dialErr()}}
	rt := &RetryTransport{Base: base, MaxRetries: 3, Backoff: time.Millisecond}

	req := httptest.NewRequest(http.MethodGet, "http://example.invalid/", nil)
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	resp.Body.Close()
	if base.calls != 3 {
		t.Fatalf("calls = %d, want 3", base.calls)
	}
}

func TestRetryTransportStopsOnPermanentError(t *testing.T) {
	base := &scriptedTransport{errs: []error{errors.New("bad certificate"), nil}}
	rt := &RetryTransport{Base: base, MaxRetries: 3, Backoff: time.Millisecond}

	req := httptest.NewRequest(http.MethodGet, "http://example.invalid/", nil)
	if _, err := rt.RoundTrip(req); err == nil {
		t.Fatal("expected error")
	}
	if base.calls != 1 {
		t.Fatalf("calls = %d, want 1", base.calls)
	}
}

func TestRetryTransportSkipsUnreplayableBody(t *testing.T) {
	base := &scriptedTransport{errs: []error{dialErr()}}
	rt := &RetryTransport{Base: base, MaxRetries: 3, Backoff: time.Millisecond}

	req, _ := http.NewRequest(http.MethodPost, "http://example.invalid/", strings.NewReader("x"))
	req.GetBody = nil
	if _, err := rt.RoundTrip(req); err == nil {
		t.Fatal("expected error")
	}
	if base.calls != 1 {
		t.Fatalf("calls = %d, want 1", base.calls)
	}
}

func TestShouldRetryAndClassify(t *testing.T) {
	if !ShouldRetry(dialErr()) {
		t.Fatal("dial error should be retryable")
	}
	if ShouldRetry(context.Canceled) {
		t.Fatal("cancellation must not be retried")
	}
	if got := Classify(dialErr()); got != "dial" {
		t.Fatalf("Classify(dial) = %q", got)
	}
	if got := Classify(context.DeadlineExceeded); got != "timeout" {
		t.Fatalf("Classify(deadline) = %q", got)
	}
	if got := Classify(errors.New("boom")); got != "unknown" {
		t.Fatalf("Classify(other) = %q", got)
	}
}
