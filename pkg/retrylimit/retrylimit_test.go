package retrylimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxAttempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  maxAttempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := WithRetryConfig(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("flaky")
		}
		return nil
	}, nil, fastConfig(10))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	boom := errors.New("down")
	err := WithRetryConfig(context.Background(), func() error {
		return boom
	}, nil, fastConfig(3))

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestWithRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetryConfig(ctx, func() error {
		return errors.New("never succeeds")
	}, nil, fastConfig(100))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestAdaptiveLimiterClamps(t *testing.T) {
	lim := NewAdaptiveLimiter(2, 1, 5, 1, 0.5)

	for i := 0; i < 10; i++ {
		lim.Failure()
	}
	assert.Equal(t, 1.0, lim.CurrentLimit(), "never drops below min")
}

func TestOnRetryCallback(t *testing.T) {
	var seen []int
	_ = WithRetryConfig(context.Background(), func() error {
		return errors.New("nope")
	}, nil, RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1.0,
		OnRetry:      func(attempt int, _ error) { seen = append(seen, attempt) },
	})

	assert.Equal(t, []int{1, 2, 3}, seen)
}
