//go:build integration

package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nbtbook/internal/ratelimit"
	"nbtbook/pkg/testutil/containers"
)

func TestLimiterAgainstRealRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.NewRedisContainer(t)
	limiter := ratelimit.New(rc.Client, 5, ratelimit.WithWindow(time.Minute))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow(ctx, "10.0.0.1"), "request %d within limit", i+1)
	}
	assert.False(t, limiter.Allow(ctx, "10.0.0.1"))

	require.NoError(t, rc.FlushAll(ctx))
	assert.True(t, limiter.Allow(ctx, "10.0.0.1"), "flush resets the window")
}
