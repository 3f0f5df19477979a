package retry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/formatkit/errors"
)

func fast(attempts int) Config {
	return Config{Attempts: attempts, Initial: time.Millisecond, Max: 4 * time.Millisecond, Multiplier: 2}
}

func TestDo(t *testing.T) {
	boom := stderrors.New("boom")

	tests := []struct {
		name          string
		failures      int
		err           error
		attempts      int
		expectedCalls int
		expectErr     bool
	}{
		{"first attempt succeeds", 0, boom, 3, 1, false},
		{"succeeds after failures", 2, boom, 3, 3, false},
		{"all attempts fail", 10, boom, 3, 3, true},
		{"zero attempts runs once", 10, boom, 0, 1, true},
		{"permanent error stops", 10, Permanent(boom), 5, 1, true},
		{"invalid error stops", 10, errors.WrapInvalid(boom, "c", "m", "a"), 5, 1, true},
		{"fatal error stops", 10, errors.WrapFatal(boom, "c", "m", "a"), 5, 1, true},
		{"transient error retries", 10, errors.WrapTransient(boom, "c", "m", "a"), 4, 4, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), fast(tt.attempts), func() error {
				calls++
				if calls <= tt.failures {
					return tt.err
				}
				return nil
			})
			assert.Equal(t, tt.expectedCalls, calls)
			if !tt.expectErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Config{Attempts: 10, Initial: time.Hour, Max: time.Hour}, func() error {
		calls++
		cancel()
		return stderrors.New("down")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_BackoffGrowsToMax(t *testing.T) {
	var stamps []time.Time
	cfg := Config{Attempts: 4, Initial: 10 * time.Millisecond, Max: 20 * time.Millisecond, Multiplier: 4}
	_ = Do(context.Background(), cfg, func() error {
		stamps = append(stamps, time.Now())
		return stderrors.New("down")
	})

	require.Len(t, stamps, 4)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 10*time.Millisecond)
	assert.GreaterOrEqual(t, stamps[3].Sub(stamps[2]), 20*time.Millisecond)
}

func TestDo_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative delay", Config{Initial: -time.Second}},
		{"negative multiplier", Config{Multiplier: -1}},
		{"max below initial", Config{Initial: time.Second, Max: time.Millisecond}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			err := Do(context.Background(), tt.cfg, func() error { called = true; return nil })
			require.Error(t, err)
			assert.False(t, called)
		})
	}
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), fast(3), func() (string, error) {
		calls++
		if calls < 2 {
			return "", stderrors.New("not yet")
		}
		return "ready", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ready", got)
	assert.Equal(t, 2, calls)
}

func TestPresets(t *testing.T) {
	for _, cfg := range []Config{DefaultConfig(), Startup()} {
		n, err := cfg.normalized()
		require.NoError(t, err)
		assert.Equal(t, cfg, n)
	}
	assert.Nil(t, Permanent(nil))
}
