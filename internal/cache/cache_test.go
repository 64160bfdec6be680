package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type snapshot struct {
	Label  string `json:"label"`
	Points []int  `json:"points"`
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", snapshot{Label: "x"}, time.Minute))

	var got snapshot
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrMiss)
	assert.Empty(t, got.Label)
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "http://not-redis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid REDIS_URL")
}

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "6379/tcp", "")
	require.NoError(t, err)

	client, err := NewRedisClient(ctx, fmt.Sprintf("redis://%s/0", endpoint))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedis(t *testing.T) {
	client := setupRedis(t)
	c := NewRedis(client, "greencoach")
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		var got snapshot
		assert.ErrorIs(t, c.Get(ctx, "absent", &got), ErrMiss)
	})

	t.Run("round trip with prefix", func(t *testing.T) {
		want := snapshot{Label: "World Emissions", Points: []int{1, 2, 3}}
		require.NoError(t, c.Set(ctx, "co2:world", want, time.Minute))

		var got snapshot
		require.NoError(t, c.Get(ctx, "co2:world", &got))
		assert.Equal(t, want, got)

		exists, err := client.Exists(ctx, "greencoach:co2:world").Result()
		require.NoError(t, err)
		assert.EqualValues(t, 1, exists)
	})

	t.Run("ttl applied", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "short", snapshot{}, 30*time.Second))
		ttl, err := client.TTL(ctx, "greencoach:short").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, 30*time.Second)
	})

	t.Run("corrupt value", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, "greencoach:bad", "not json", time.Minute).Err())
		var got snapshot
		err := c.Get(ctx, "bad", &got)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrMiss)
	})
}
