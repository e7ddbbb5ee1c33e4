package shared

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"syscall"
	"time"
)

const (
	initialBackoffDelay = 50 * time.Millisecond
	maxBackoffDelay     = time.Second
)

// RetryConfig bounds retries of a device operation
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// Sleep waits between attempts; nil means time.Sleep
	Sleep func(time.Duration)
}

// DefaultRetryConfig returns the retry policy used for NSM session opens
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: initialBackoffDelay,
		MaxDelay:     maxBackoffDelay,
	}
}

// NoRetry runs the operation exactly once
func NoRetry() *RetryConfig {
	return &RetryConfig{MaxAttempts: 1}
}

// IsTransient reports whether err is a device condition that can clear on
// its own. A missing device or a permission error is permanent.
func IsTransient(err error) bool {
	return errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EINTR)
}

// backoff doubles the delay per attempt, capped at MaxDelay, plus up to 10%
// jitter
func (c *RetryConfig) backoff(attempt int) time.Duration {
	delay := c.InitialDelay
	for i := 1; i < attempt && delay < c.MaxDelay; i++ {
		delay *= 2
	}
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay + cryptoJitter(delay/10)
}

func cryptoJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	return time.Duration(binary.LittleEndian.Uint64(b[:]) % uint64(max))
}

// RetryWithBackoff runs operation until it succeeds, fails with a
// non-transient error, or MaxAttempts is reached. The last error is returned.
func RetryWithBackoff(config *RetryConfig, operation func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	sleep := config.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = operation()
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) || attempt == attempts {
			break
		}
		sleep(config.backoff(attempt))
	}
	return lastErr
}
