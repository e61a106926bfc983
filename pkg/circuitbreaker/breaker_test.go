package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpensAfterFailureThreshold(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 3, Timeout: time.Hour})
	ctx := context.Background()
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		err := cb.Execute(ctx, func() error { return boom })
		require.ErrorIs(t, err, boom)
	}

	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Available())

	err := cb.Execute(ctx, func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestRecoversThroughHalfOpen(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 1, SuccessThreshold: 1, Timeout: 10 * time.Millisecond})
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, func() error { return errors.New("boom") }))
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, cb.Available())

	require.NoError(t, cb.Execute(ctx, func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestClosedPassesThrough(t *testing.T) {
	cb := New("test", Config{})
	err := cb.Execute(context.Background(), func() error { return nil })
	assert.NoError(t, err)
	assert.True(t, cb.Available())
}
