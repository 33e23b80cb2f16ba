package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "trade-journal/internal/errors"
)

var errUpstream = errors.New("502 bad gateway")

func fail(context.Context) (int, error)     { return 0, errUpstream }
func succeed(context.Context) (int, error)  { return 42, nil }
func notFound(context.Context) (int, error) { return 0, apperrors.ErrNotFound }

func TestCircuitOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("yahoo", CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		Cooldown:         time.Minute,
		IsFailure:        UpstreamFailure,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := Execute(ctx, cb, fail)
		assert.ErrorIs(t, err, errUpstream)
	}
	assert.Equal(t, CircuitOpen, cb.State())

	_, err := Execute(ctx, cb, succeed)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrServiceUnavailable))

	stats := cb.Stats()
	assert.Equal(t, int64(1), stats.TotalRejected)
	assert.Equal(t, int64(3), stats.TotalFailures)
}

func TestCircuitHalfOpenRecovers(t *testing.T) {
	cb := NewCircuitBreaker("kite", CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, Cooldown: time.Second})
	now := time.Now()
	cb.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = Execute(ctx, cb, fail)
	assert.Equal(t, CircuitOpen, cb.State())

	now = now.Add(2 * time.Second)
	v, err := Execute(ctx, cb, succeed)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCallerErrorsDoNotTrip(t *testing.T) {
	cb := NewCircuitBreaker("yahoo", DefaultCircuitBreakerConfig())
	for i := 0; i < 10; i++ {
		_, err := Execute(context.Background(), cb, notFound)
		assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	}
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(CircuitBreakerConfig{FailureThreshold: 1, Cooldown: time.Minute})
	assert.Same(t, r.Get("yahoo"), r.Get("yahoo"))
	r.Get("gemini")
	assert.True(t, r.Healthy())

	_, _ = Execute(context.Background(), r.Get("yahoo"), fail)
	assert.False(t, r.Healthy())

	stats := r.AllStats()
	require.Len(t, stats, 2)
	assert.Equal(t, "gemini", stats[0].Name)
	assert.Equal(t, CircuitOpen, stats[1].State)
}
