package upstream

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err    error
		expect ErrorAction
	}{
		{errors.New("explorer status 400: bad request"), ActionFatal},
		{errors.New("explorer status 401: unauthorized"), ActionFatal},
		{errors.New("explorer status 403: forbidden"), ActionFatal},
		{errors.New("explorer status 404: no such address"), ActionFatal},
		{errors.New("decode response: unexpected end of JSON input"), ActionFatal},
		{errors.New("explorer status 429: rate limited"), ActionRetry},
		{errors.New("explorer status 500: internal error"), ActionRetry},
		{errors.New("explorer status 502: bad gateway"), ActionRetry},
		{errors.New("connection reset by peer"), ActionRetry},
		{errors.New("context deadline exceeded"), ActionRetry},
	}

	for _, tt := range tests {
		if got := ClassifyError(tt.err); got != tt.expect {
			t.Errorf("ClassifyError(%q) = %v, want %v", tt.err, got, tt.expect)
		}
	}
}

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:     attempts,
		InitialDelay:    time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		BackoffMultiple: 2.0,
	}
}

func TestDoWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := doWithRetry(context.Background(), fastRetry(4), func() error {
		calls++
		if calls < 3 {
			return errors.New("explorer status 503: unavailable")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("doWithRetry = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoWithRetry_FatalStopsImmediately(t *testing.T) {
	calls := 0
	fatal := errors.New("explorer status 404: not found")
	err := doWithRetry(context.Background(), fastRetry(4), func() error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("doWithRetry = %v, want the fatal error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on fatal)", calls)
	}
}

func TestDoWithRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	transient := errors.New("timeout")
	err := doWithRetry(context.Background(), fastRetry(3), func() error {
		calls++
		return transient
	})
	if !errors.Is(err, transient) {
		t.Fatalf("doWithRetry = %v, want last transient error", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoWithRetry_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := fastRetry(5)
	cfg.InitialDelay = time.Minute // force the cancel branch

	err := doWithRetry(ctx, cfg, func() error {
		return errors.New("timeout")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("doWithRetry = %v, want context.Canceled", err)
	}
}

func TestCalculateBackoff(t *testing.T) {
	cfg := RetryConfig{
		InitialDelay:    time.Second,
		MaxDelay:        10 * time.Second,
		BackoffMultiple: 2.0,
	}

	tests := []struct {
		attempt int
		expect  time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second}, // capped
		{8, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := calculateBackoff(tt.attempt, cfg); got != tt.expect {
			t.Errorf("calculateBackoff(%d) = %v, want %v", tt.attempt, got, tt.expect)
		}
	}
}
