package sync

import "time"

const (
	DefaultMaxFiles      = 20
	DefaultMaxBatchBytes = 10 * 1024 * 1024
	DefaultConcurrency   = 4
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 1 * time.Second
)

// Config bounds one sync run. The engine keeps the effective config across
// runs; a zero field in a supplied Config means "keep the current value".
type Config struct {
	// MaxFiles caps the number of files per batch.
	MaxFiles int
	// MaxBatchBytes caps the cumulative byte size per batch. A single file
	// larger than this still forms its own batch.
	MaxBatchBytes int64
	// Concurrency bounds how many batches upload in parallel.
	Concurrency int
	// RetryAttempts is the number of passes RetryFailed makes over failed files.
	RetryAttempts int
	// RetryDelay is the wait between retry passes.
	RetryDelay time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		MaxFiles:      DefaultMaxFiles,
		MaxBatchBytes: DefaultMaxBatchBytes,
		Concurrency:   DefaultConcurrency,
		RetryAttempts: DefaultRetryAttempts,
		RetryDelay:    DefaultRetryDelay,
	}
}

// Merge overlays the positive fields of other onto a copy of c.
func (c Config) Merge(other *Config) Config {
	if other == nil {
		return c
	}
	if other.MaxFiles > 0 {
		c.MaxFiles = other.MaxFiles
	}
	if other.MaxBatchBytes > 0 {
		c.MaxBatchBytes = other.MaxBatchBytes
	}
	if other.Concurrency > 0 {
		c.Concurrency = other.Concurrency
	}
	if other.RetryAttempts > 0 {
		c.RetryAttempts = other.RetryAttempts
	}
	if other.RetryDelay > 0 {
		c.RetryDelay = other.RetryDelay
	}
	return c
}
