package upstream

import (
	"context"
	"math"
	"strings"
	"time"
)

// RetryConfig defines retry behavior.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialDelay    time.Duration `yaml:"initial_delay"`
	MaxDelay        time.Duration `yaml:"max_delay"`
	BackoffMultiple float64       `yaml:"backoff_multiple"`
}

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     4,
	InitialDelay:    1 * time.Second,
	MaxDelay:        30 * time.Second,
	BackoffMultiple: 2.0,
}

func (c *RetryConfig) applyDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultRetryConfig.MaxAttempts
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = DefaultRetryConfig.InitialDelay
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = DefaultRetryConfig.MaxDelay
	}
	if c.BackoffMultiple == 0 {
		c.BackoffMultiple = DefaultRetryConfig.BackoffMultiple
	}
}

// ErrorAction determines how to handle an error.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionFatal
)

// ClassifyError determines the action for a given error. Client-side
// request problems are fatal; rate limits, 5xx and network errors retry.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionRetry // Should not happen
	}

	s := strings.ToLower(err.Error())

	if strings.Contains(s, "status 400") || strings.Contains(s, "status 401") ||
		strings.Contains(s, "status 403") || strings.Contains(s, "status 404") ||
		strings.Contains(s, "decode response") {
		return ActionFatal
	}

	// Default to Retry (429, 5xx, network, timeout)
	return ActionRetry
}

// doWithRetry executes fn with exponential backoff. Context cancellation
// aborts between attempts.
func doWithRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	cfg.applyDefaults()

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if ClassifyError(err) == ActionFatal {
			return err // Stop immediately, do not retry
		}

		if attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := calculateBackoff(attempt, cfg)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

func calculateBackoff(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.BackoffMultiple, float64(attempt))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}
