package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/flowcanvas/errors"
)

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusStopped, "stopped"},
		{StatusStarting, "starting"},
		{StatusRunning, "running"},
		{StatusStopping, "stopping"},
		{Status(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}

func TestBaseServiceLifecycle(t *testing.T) {
	svc := NewBaseService("test-service", WithHealthInterval(10*time.Millisecond))
	assert.Equal(t, StatusStopped, svc.Status())
	assert.Equal(t, "test-service", svc.Name())

	require.NoError(t, svc.Start(context.Background()))
	assert.Equal(t, StatusRunning, svc.Status())
	assert.True(t, svc.IsHealthy())

	// Starting twice is idempotent
	require.NoError(t, svc.Start(context.Background()))

	require.NoError(t, svc.Stop(time.Second))
	assert.Equal(t, StatusStopped, svc.Status())
	assert.False(t, svc.IsHealthy())

	// Stopping twice is idempotent
	require.NoError(t, svc.Stop(time.Second))
}

func TestBaseServiceHealthCheckFailure(t *testing.T) {
	svc := NewBaseService("failing-service",
		WithHealthInterval(5*time.Millisecond),
		WithHealthCheck(func() error {
			return errors.New("dependency down")
		}))

	require.NoError(t, svc.Start(context.Background()))
	defer func() { _ = svc.Stop(time.Second) }()

	assert.Eventually(t, func() bool {
		return !svc.IsHealthy()
	}, time.Second, 10*time.Millisecond)

	status := svc.Health()
	assert.True(t, status.IsUnhealthy())
	assert.Positive(t, svc.GetStatus().FailedHealthChecks)
}

func TestBaseServiceHealthChangeCallback(t *testing.T) {
	changes := make(chan bool, 4)
	svc := NewBaseService("watched-service",
		WithHealthInterval(5*time.Millisecond),
		OnHealthChange(func(healthy bool) { changes <- healthy }))

	require.NoError(t, svc.Start(context.Background()))
	defer func() { _ = svc.Stop(time.Second) }()

	select {
	case healthy := <-changes:
		assert.True(t, healthy)
	case <-time.After(time.Second):
		t.Fatal("expected a health change callback")
	}
}

func TestBaseServiceContextCancellation(t *testing.T) {
	svc := NewBaseService("ctx-service", WithHealthInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, svc.Start(ctx))
	assert.Equal(t, StatusRunning, svc.Status())

	cancel()

	assert.Eventually(t, func() bool {
		return svc.Status() == StatusStopped
	}, time.Second, 10*time.Millisecond)
}

func TestBaseServiceHealthStates(t *testing.T) {
	svc := NewBaseService("health-service", WithHealthInterval(0))

	assert.True(t, svc.Health().IsUnhealthy(), "stopped service is unhealthy")

	require.NoError(t, svc.Start(context.Background()))
	svc.healthy.Store(true)
	assert.True(t, svc.Health().IsHealthy())

	require.NoError(t, svc.Stop(time.Second))
}
