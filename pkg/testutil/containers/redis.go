//go:build integration

package containers

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"docvault/internal/platform/config"
	"docvault/internal/platform/redis"
)

// RedisContainer is a throwaway Redis shared by the revocation cache and the
// share-link rate limiter suites. The client is built the way the server
// builds it, so pool and timeout settings are exercised too.
type RedisContainer struct {
	Container *tcredis.RedisContainer
	URL       string
	Client    *goredis.Client
}

func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "start redis container")

	url, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
	}
	require.NoError(t, err, "redis connection string")

	client, err := redis.New(ctx, config.RedisConfig{
		URL:         url,
		PoolSize:    4,
		DialTimeout: 5 * time.Second,
		ReadTimeout: 2 * time.Second,
	})
	if err != nil {
		_ = container.Terminate(ctx)
	}
	require.NoError(t, err, "connect to redis")
	require.NoError(t, client.Health(ctx))

	return &RedisContainer{Container: container, URL: url, Client: client.Client}
}

// FlushAll drops every key between tests.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushDB(ctx).Err()
}
