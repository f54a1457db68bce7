package cron

import (
	"math/rand"
	"time"
)

// RetryConfig controls exponential backoff for failed job runs.
type RetryConfig struct {
	MaxRetries int           // retry attempts after the first failure (0 = no retry)
	BaseDelay  time.Duration // initial backoff delay
	MaxDelay   time.Duration // backoff ceiling
}

// DefaultRetryConfig suits generation runs: the failure mode is almost
// always a transient provider error, so two retries a few seconds apart
// cover it without hammering the API.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 2,
		BaseDelay:  3 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// ExecuteWithRetry runs fn, retrying on error with exponential backoff + jitter.
// Returns the first successful result or the last error after all retries.
func ExecuteWithRetry(fn func() (string, error), cfg RetryConfig) (result string, attempts int, err error) {
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err = fn()
		if err == nil {
			return result, attempt + 1, nil
		}

		if attempt < cfg.MaxRetries {
			time.Sleep(backoffWithJitter(cfg.BaseDelay, cfg.MaxDelay, attempt))
		}
	}
	return "", cfg.MaxRetries + 1, err
}

// backoffWithJitter computes delay = min(base * 2^attempt, max) ± 25%.
func backoffWithJitter(base, max time.Duration, attempt int) time.Duration {
	delay := base << uint(attempt)
	if delay > max {
		delay = max
	}

	quarter := delay / 4
	if quarter > 0 {
		jitter := time.Duration(rand.Int63n(int64(quarter*2))) - quarter
		delay += jitter
	}

	return delay
}

// maxOutputBytes caps what a run may leave in the run log. Task
// descriptions are short; the cap only matters when a handler surfaces
// a whole generated document.
const maxOutputBytes = 16 * 1024

// TruncateOutput truncates s to maxOutputBytes, marking the cut.
func TruncateOutput(s string) string {
	if len(s) <= maxOutputBytes {
		return s
	}
	return s[:maxOutputBytes] + "...[truncated]"
}
