package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoVal_SucceedsFirstTry(t *testing.T) {
	calls := 0
	val, err := DoVal(context.Background(), RetryConfig{MaxRetries: 2, Delay: time.Millisecond},
		func(ctx context.Context) (int, error) {
			calls++
			return 42, nil
		})
	require.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.Equal(t, 1, calls)
}

func TestDoVal_RetriesTransient(t *testing.T) {
	calls := 0
	val, err := DoVal(context.Background(), RetryConfig{MaxRetries: 2, Delay: time.Millisecond},
		func(ctx context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", NewTransientError(eris.New("http 503"), 503)
			}
			return "ok", nil
		})
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 3, calls)
}

func TestDoVal_DoesNotRetryPermanent(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), RetryConfig{MaxRetries: 5, Delay: time.Millisecond},
		func(ctx context.Context) (int, error) {
			calls++
			return 0, eris.New("http 404")
		})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal_ExhaustsRetries(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), RetryConfig{MaxRetries: 2, Delay: time.Millisecond},
		func(ctx context.Context) (int, error) {
			calls++
			return 0, NewTransientError(eris.New("timeout"), 0)
		})
	require.Error(t, err)
	assert.Equal(t, 3, calls) // initial attempt + 2 retries
}

func TestDoVal_ContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := DoVal(ctx, RetryConfig{MaxRetries: 10, Delay: time.Millisecond},
		func(ctx context.Context) (int, error) {
			calls++
			cancel()
			return 0, NewTransientError(eris.New("flaky"), 500)
		})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_OnRetryCallback(t *testing.T) {
	var attempts []int
	cfg := RetryConfig{
		MaxRetries: 2,
		Delay:      time.Millisecond,
		OnRetry:    func(attempt int, err error) { attempts = append(attempts, attempt) },
	}
	_ = Do(context.Background(), cfg, func(ctx context.Context) error {
		return NewTransientError(eris.New("again"), 502)
	})
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 425, 429, 500, 502, 503, 504, 599} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404, 410} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}

func TestIsTransient_WrappedChain(t *testing.T) {
	inner := NewTransientError(eris.New("http 429"), 429)
	wrapped := eris.Wrap(inner, "fetch page")
	assert.True(t, IsTransient(wrapped))

	assert.False(t, IsTransient(eris.New("bad request")))
	assert.False(t, IsTransient(nil))
}

func TestIsTransient_StringHeuristics(t *testing.T) {
	assert.True(t, IsTransient(eris.New("read tcp: connection reset by peer")))
	assert.True(t, IsTransient(eris.New("dial: i/o timeout")))
}
