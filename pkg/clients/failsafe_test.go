package clients

import (
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/failsafe-go/failsafe-go"
)

//nolint:bodyclose // test responses have no body
func TestNewHTTPRetryPolicy_NormalizesConfigToBoundRetries(t *testing.T) {
	cfg := HTTPExecutorConfig{
		MaxRetries: -3,
		BaseDelay:  0,
		MaxDelay:   0,
	}
	policy := NewHTTPRetryPolicy(cfg)

	var attempts int32
	_, err := failsafe.With(policy).Get(func() (*http.Response, error) {
		atomic.AddInt32(&attempts, 1)
		return nil, errors.New("network partition")
	})
	if err == nil {
		t.Fatal("expected request to fail")
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Fatalf("expected bounded single attempt with negative retries, got %d", got)
	}
}

//nolint:bodyclose // test responses have no body
func TestNewHTTPRetryPolicy_RetriesUpToConfiguredLimit(t *testing.T) {
	cfg := HTTPExecutorConfig{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Millisecond,
		ShouldRetry: func(_ *http.Response, err error) bool {
			return err != nil
		},
	}
	policy := NewHTTPRetryPolicy(cfg)

	var attempts int32
	_, err := failsafe.With(policy).Get(func() (*http.Response, error) {
		count := atomic.AddInt32(&attempts, 1)
		if count < 3 {
			return nil, errors.New("dns lag")
		}
		return &http.Response{StatusCode: http.StatusOK}, nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestCircuitBreaker_OpensAfterRepeatedFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "inference",
		MinRequests: 2,
		MaxRequests: 1,
		Timeout:     time.Minute,
	})

	for i := 0; i < 2; i++ {
		_ = cb.Call(func() error { return errors.New("model backend down") })
	}

	if !cb.IsOpen() {
		t.Fatalf("expected breaker open after repeated failures, state=%s", cb.State())
	}
	if err := cb.Call(func() error { return nil }); err == nil {
		t.Fatal("expected call to be rejected while open")
	}
}

func TestDefaultShouldRetry(t *testing.T) {
	if !DefaultShouldRetry(nil, errors.New("refused")) {
		t.Fatal("expected retry on transport error")
	}
	if !DefaultShouldRetry(&http.Response{StatusCode: http.StatusBadGateway}, nil) {
		t.Fatal("expected retry on 502")
	}
	if DefaultShouldRetry(&http.Response{StatusCode: http.StatusBadRequest}, nil) {
		t.Fatal("did not expect retry on 400")
	}
}
