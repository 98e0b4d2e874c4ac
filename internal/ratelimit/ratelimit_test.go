package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateThrottlesBurst(t *testing.T) {
	g := NewGate(0.001, 2, 5)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		release, err := g.Enter(ctx)
		require.NoError(t, err)
		release()
	}

	_, err := g.Enter(ctx)
	assert.ErrorIs(t, err, ErrThrottled)
}

func TestGateBoundsConcurrency(t *testing.T) {
	g := NewGate(1000, 10, 1)

	release, err := g.Enter(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Enter(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release2, err := g.Enter(context.Background())
	require.NoError(t, err)
	release2()
}

func TestGateDefaults(t *testing.T) {
	g := NewGate(1, 0, 0)
	assert.Equal(t, 1, g.MaxConcurrent())
}
