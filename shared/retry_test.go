package shared

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryWithBackoff(t *testing.T) {
	var slept []time.Duration
	cfg := &RetryConfig{
		MaxAttempts:  4,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     25 * time.Millisecond,
		Sleep:        func(d time.Duration) { slept = append(slept, d) },
	}

	t.Run("Transient errors are retried", func(t *testing.T) {
		slept = nil
		calls := 0
		err := RetryWithBackoff(cfg, func() error {
			calls++
			if calls < 3 {
				return &os.PathError{Op: "open", Path: "/dev/nsm", Err: syscall.EBUSY}
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
		if assert.Len(t, slept, 2) {
			assert.GreaterOrEqual(t, slept[0], 10*time.Millisecond)
			assert.Less(t, slept[0], 11*time.Millisecond)
			assert.GreaterOrEqual(t, slept[1], 20*time.Millisecond)
		}
	})

	t.Run("Delay is capped", func(t *testing.T) {
		slept = nil
		err := RetryWithBackoff(cfg, func() error { return syscall.EAGAIN })
		assert.ErrorIs(t, err, syscall.EAGAIN)
		assert.Len(t, slept, 3)
		assert.Less(t, slept[2], 28*time.Millisecond)
	})

	t.Run("Permanent errors are not retried", func(t *testing.T) {
		slept = nil
		calls := 0
		missing := &os.PathError{Op: "open", Path: "/dev/nsm", Err: syscall.ENOENT}
		err := RetryWithBackoff(cfg, func() error {
			calls++
			return missing
		})
		assert.Same(t, missing, err)
		assert.Equal(t, 1, calls)
		assert.Empty(t, slept)
	})

	t.Run("NoRetry", func(t *testing.T) {
		calls := 0
		_ = RetryWithBackoff(NoRetry(), func() error {
			calls++
			return syscall.EBUSY
		})
		assert.Equal(t, 1, calls)
	})
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(fmt.Errorf("open session: %w", syscall.EINTR)))
	assert.False(t, IsTransient(errors.New("device busy")))
	assert.False(t, IsTransient(nil))
}
