//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	endpoint, err := container.Endpoint(ctx, "redis")
	require.NoError(t, err)
	return endpoint
}

func TestRedisGetSet(t *testing.T) {
	url := startRedis(t)
	ctx := context.Background()

	c, err := NewRedis(ctx, url, WithNamespace("test"))
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "tracker_issue_status:1", "#1 (New)", time.Second))
	got, ok, err := c.Get(ctx, "tracker_issue_status:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "#1 (New)", got)

	require.Eventually(t, func() bool {
		_, ok, err := c.Get(ctx, "tracker_issue_status:1")
		return err == nil && !ok
	}, 5*time.Second, 100*time.Millisecond, "entry should expire")
}

func TestRedisClosed(t *testing.T) {
	url := startRedis(t)
	ctx := context.Background()

	c, err := NewRedis(ctx, url)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, _, err = c.Get(ctx, "k")
	assert.Error(t, err)
}

func TestNewRedisInvalidURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not a url")
	assert.Error(t, err)
}
