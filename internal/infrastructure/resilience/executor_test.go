package resilience

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
)

func fastRetryConfig(attempts int) Config {
	return Config{
		RetryMaxAttempts:    attempts,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
	}
}

func TestExecuteRetriesRetryableFailure(t *testing.T) {
	exec := NewExecutor(fastRetryConfig(3))
	errTemp := errors.New("temporary")

	attempts := 0
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTemp
		}
		return nil
	}, func(err error) ErrorClassification {
		return ErrorClassification{Retryable: errors.Is(err, errTemp), RecordFailure: true}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteStopsOnPermanentFailure(t *testing.T) {
	exec := NewExecutor(fastRetryConfig(3))
	errPermanent := &HTTPStatusError{Service: "catalog", Operation: "search", StatusCode: http.StatusBadRequest, Status: "400 Bad Request"}

	attempts := 0
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return errPermanent
	}, ClassifyHTTP)
	if !errors.Is(err, errPermanent) || attempts != 1 {
		t.Fatalf("expected single permanent failure, got %v after %d attempts", err, attempts)
	}
}

func TestExecuteReturnsLastErrorWhenAttemptsExhausted(t *testing.T) {
	exec := NewExecutor(fastRetryConfig(2))
	unavailable := &HTTPStatusError{StatusCode: http.StatusServiceUnavailable, Status: "503"}

	attempts := 0
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return unavailable
	}, ClassifyHTTP)
	if !errors.Is(err, unavailable) || attempts != 2 {
		t.Fatalf("got %v after %d attempts", err, attempts)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	cfg := fastRetryConfig(1)
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = 50 * time.Millisecond
	cfg.BreakerHalfOpenMaxCalls = 1
	exec := NewExecutor(cfg)

	errTemp := errors.New("temporary")
	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "llm.complete", func(context.Context) error { return errTemp }, nil)
		if !errors.Is(err, errTemp) {
			t.Fatalf("iteration %d: expected temporary error, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "llm.complete", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, nil)
	if !errors.Is(err, gobreaker.ErrOpenState) || !IsCircuitOpen(err) {
		t.Fatalf("expected open state error, got %v", err)
	}
	if got := exec.State("llm.complete"); got != "open" {
		t.Fatalf("expected open breaker, got %q", got)
	}
	if got := exec.State("never.ran"); got != "closed" {
		t.Fatalf("expected closed breaker, got %q", got)
	}
}

func TestNilExecutorRunsOnce(t *testing.T) {
	var exec *Executor
	value, err := Do(context.Background(), exec, "op", func(context.Context) (int, error) { return 42, nil }, nil)
	if err != nil || value != 42 {
		t.Fatalf("Do() = %d, %v", value, err)
	}
}

func TestDoReturnsZeroValueOnFailure(t *testing.T) {
	exec := NewExecutor(fastRetryConfig(1))
	value, err := Do(context.Background(), exec, "op", func(context.Context) (string, error) {
		return "partial", errors.New("boom")
	}, nil)
	if err == nil || value != "" {
		t.Fatalf("Do() = %q, %v", value, err)
	}
}

func TestClassifyHTTP(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorClassification
	}{
		{"canceled", context.Canceled, ErrorClassification{}},
		{"throttled", &HTTPStatusError{StatusCode: http.StatusTooManyRequests}, ErrorClassification{Retryable: true, RecordFailure: true}},
		{"unauthorized", &HTTPStatusError{StatusCode: http.StatusUnauthorized}, ErrorClassification{}},
		{"open circuit", gobreaker.ErrOpenState, ErrorClassification{Retryable: true, RecordFailure: true}},
		{"plain", errors.New("decode"), ErrorClassification{RecordFailure: true}},
	}
	for _, tc := range cases {
		if got := ClassifyHTTP(tc.err); got != tc.want {
			t.Fatalf("%s: got %+v, want %+v", tc.name, got, tc.want)
		}
	}
}

func TestWrapTemporary(t *testing.T) {
	err := WrapTemporary("catalog search", &HTTPStatusError{StatusCode: http.StatusBadGateway}, nil)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary kind, got %v", err)
	}
	err = WrapTemporary("catalog search", &HTTPStatusError{StatusCode: http.StatusNotFound}, nil)
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("404 must not be temporary")
	}
}

func TestSingleShotNeverRetriesButKeepsBreakerAccounting(t *testing.T) {
	exec := NewExecutor(fastRetryConfig(3))

	attempts := 0
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return &HTTPStatusError{StatusCode: http.StatusTooManyRequests}
	}, SingleShot(ClassifyHTTP))
	if err == nil || attempts != 1 {
		t.Fatalf("expected one failed attempt, got %d attempts, err=%v", attempts, err)
	}

	c := SingleShot(nil)(&HTTPStatusError{StatusCode: http.StatusServiceUnavailable})
	if c.Retryable || !c.RecordFailure {
		t.Fatalf("unexpected classification: %+v", c)
	}
}
