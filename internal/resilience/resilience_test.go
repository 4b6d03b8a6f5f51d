package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2,
		JitterFraction: 0,
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"wrapped transient", Transient(eris.New("boom"), 503), true},
		{"plain error", eris.New("bad input"), false},
		{"status hint", eris.New("feed: fetch page: status 503"), true},
		{"rate limited hint", eris.New("too many requests"), true},
		{"cancelled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsTransient(tt.err))
		})
	}
}

func TestDoValRetriesTransient(t *testing.T) {
	calls := 0
	got, err := DoVal(context.Background(), fastRetry(3), "test", func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, Transient(eris.New("flaky"), 502)
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDoValStopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), fastRetry(5), "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, eris.New("permanent")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoValExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), fastRetry(3), "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, Transient(eris.New("always down"), 503)
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, fastRetry(10), "test", func(ctx context.Context) error {
		calls++
		cancel()
		return Transient(eris.New("flaky"), 502)
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker(2, time.Hour)
	fail := func(ctx context.Context) error { return Transient(eris.New("down"), 503) }

	require.Error(t, b.Call(context.Background(), fail))
	require.Error(t, b.Call(context.Background(), fail))
	assert.True(t, b.Open())

	err := b.Call(context.Background(), fail)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreakerNonTransientDoesNotTrip(t *testing.T) {
	b := NewBreaker(1, time.Hour)
	err := b.Call(context.Background(), func(ctx context.Context) error {
		return eris.New("bad request")
	})
	require.Error(t, err)
	assert.False(t, b.Open())
}

func TestBreakerProbeAfterCooldown(t *testing.T) {
	b := NewBreaker(1, 10 * time.Millisecond)
	fail := func(ctx context.Context) error { return Transient(eris.New("down"), 503) }
	require.Error(t, b.Call(context.Background(), fail))
	require.True(t, b.Open())

	time.Sleep(15 * time.Millisecond)

	// Probe allowed; success closes the circuit.
	got, err := CallVal(context.Background(), b, func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.False(t, b.Open())
}
