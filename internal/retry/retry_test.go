package retry

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func fastCfg() Config {
	return Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastCfg(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", eris.New("api error: 429 rate limit")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentErrorNotRetried(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastCfg(), func(context.Context) (int, error) {
		calls++
		return 0, eris.New("invalid request")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_AttemptsExhausted(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastCfg(), func(context.Context) (int, error) {
		calls++
		return 0, eris.New("status 503")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, fastCfg(), func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, eris.New("connection reset")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestTransient(t *testing.T) {
	assert.True(t, Transient(eris.New("api overloaded, try later")))
	assert.True(t, Transient(eris.New("GET https://x: status 502")))
	assert.False(t, Transient(eris.New("401 unauthorized")))
	assert.False(t, Transient(nil))
	assert.False(t, Transient(eris.New("invalid json")))
}
