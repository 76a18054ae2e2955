// Package retry runs an operation with exponential backoff and jitter.
// Used for transient failures on startup paths such as database pings.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// Config controls the backoff schedule.
type Config struct {
	MaxRetries int           // retry attempts after the first try
	BaseDelay  time.Duration // delay before the first retry
	MaxDelay   time.Duration // cap on any single delay
	Multiplier float64       // growth factor per retry
	Jitter     bool          // randomize delays to avoid thundering herd
}

// DefaultConfig retries three times over roughly seven seconds.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// Do runs op until it succeeds, the attempts are exhausted, or the context is
// done. It returns the last error when all attempts fail.
func Do(ctx context.Context, cfg Config, name string, op func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := cfg.delay(attempt)
			log.Debug().
				Str("operation", name).
				Int("attempt", attempt).
				Dur("delay", delay).
				Err(lastErr).
				Msg("retrying after backoff")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if lastErr = op(); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (c Config) delay(attempt int) time.Duration {
	d := float64(c.BaseDelay) * math.Pow(c.Multiplier, float64(attempt-1))
	if max := float64(c.MaxDelay); d > max {
		d = max
	}
	if c.Jitter {
		// up to 25% random spread below the computed delay
		d -= d * 0.25 * rand.Float64()
	}
	return time.Duration(d)
}
