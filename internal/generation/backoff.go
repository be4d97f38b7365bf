package generation

import (
	"math/rand/v2"
	"time"
)

// BackoffConfig controls retry delay growth between transient failures.
type BackoffConfig struct {
	// InitialInterval is the delay before the first retry.
	InitialInterval time.Duration

	// MaxInterval caps the exponential growth.
	MaxInterval time.Duration

	// Multiplier scales the delay per retry. Values below 1.0 are
	// clamped to 1.0 so the interval never decreases.
	Multiplier float64

	// UseJitter enables full-jitter randomization of each delay.
	UseJitter bool
}

// DefaultBackoffConfig returns the retry delay defaults.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
		UseJitter:       true,
	}
}

// calculateBackoff computes the retry delay for attempt (1-based) using
// exponential backoff with full jitter. Provider Retry-After guidance
// takes precedence over the computed delay. Thread-safe via math/rand/v2.
func (c BackoffConfig) calculateBackoff(attempt int, cause *TranslationError) time.Duration {
	// Ensure minimum interval to prevent hot looping.
	baseBackoff := c.InitialInterval
	if baseBackoff <= 0 {
		baseBackoff = time.Millisecond
	}

	for i := 1; i < attempt; i++ {
		multiplier := c.Multiplier
		if multiplier < 1.0 {
			multiplier = 1.0
		}
		baseBackoff = time.Duration(float64(baseBackoff) * multiplier)
		if baseBackoff > c.MaxInterval {
			baseBackoff = c.MaxInterval
			break
		}
	}

	delay := baseBackoff
	if c.UseJitter {
		// Full jitter: random between 0 and the calculated backoff.
		jitterMs := rand.Int64N(baseBackoff.Milliseconds() + 1) // #nosec G404 -- non-cryptographic jitter is appropriate here
		delay = time.Duration(jitterMs) * time.Millisecond
	}

	if cause != nil && cause.RetryAfter > 0 && cause.RetryAfter <= c.MaxInterval {
		return cause.RetryAfter
	}
	return delay
}
