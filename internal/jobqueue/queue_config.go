package jobqueue

import (
	"time"

	"github.com/riverqueue/river"
)

// QueueConfig holds the tunable parameters for the signal-processing queue.
type QueueConfig struct {
	// MaxWorkers is the number of concurrent signal-processing workers.
	// Signals are independent of each other; only reprocessing of the same
	// signal needs to be safe, and the per-record idempotency checks cover
	// that.
	MaxWorkers int

	// MaxRetries caps how often a failed signal job is retried. Retries are
	// safe: every record creation is keyed by source-signal reference.
	MaxRetries int

	// JobTimeout bounds one full pipeline invocation, including the
	// provider chain's sequential network calls.
	JobTimeout time.Duration
}

// DefaultQueueConfig returns the defaults used when the config file does not
// override them.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		MaxWorkers: 4,
		MaxRetries: 3,
		JobTimeout: 5 * time.Minute,
	}
}

// RiverQueueConfig converts our config to River's queue configuration format.
func (c *QueueConfig) RiverQueueConfig() map[string]river.QueueConfig {
	return map[string]river.QueueConfig{
		river.QueueDefault: {
			MaxWorkers: c.MaxWorkers,
		},
	}
}
