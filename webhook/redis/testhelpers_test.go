//go:build integration

package redis_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/marcelsud/mes-webhooks/webhook/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	testcontainersredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

/* Helpers for the Redis integration tests
 * Each test gets its own container; raw key checks go through a plain go-redis client
 */

// RedisContainer holds the Redis testcontainer and its address
type RedisContainer struct {
	Container *testcontainersredis.RedisContainer
	Addr      string
}

// SetupRedisContainer starts a Redis container and returns a cleanup func
func SetupRedisContainer(t *testing.T, ctx context.Context) (*RedisContainer, func()) {
	t.Helper()

	container, err := testcontainersredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start Redis container")

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err, "failed to get Redis connection string")

	rc := &RedisContainer{
		Container: container,
		Addr:      strings.TrimPrefix(uri, "redis://"),
	}
	return rc, func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
	}
}

// CreateTestRepository connects a repository to the test container
func CreateTestRepository(t *testing.T, addr string, opts ...redis.Option) *redis.Repository {
	t.Helper()

	repo, err := redis.NewRepository(addr, "", 0, opts...)
	require.NoError(t, err, "failed to create Redis repository")
	return repo
}

// GenerateID returns a delivery id unique to this run
func GenerateID(t *testing.T, index int) string {
	t.Helper()
	return fmt.Sprintf("test-delivery-%d-%d", index, time.Now().UnixNano())
}

// GetKeyTTL returns the remaining TTL of key in whole seconds, negative when none is set
func GetKeyTTL(t *testing.T, addr string, key string) int64 {
	t.Helper()

	var ttl time.Duration
	withClient(t, addr, func(ctx context.Context, c *goredis.Client) {
		var err error
		ttl, err = c.TTL(ctx, key).Result()
		require.NoError(t, err)
	})
	return int64(ttl.Seconds())
}

// KeyExists reports whether key is present
func KeyExists(t *testing.T, addr string, key string) bool {
	t.Helper()

	var n int64
	withClient(t, addr, func(ctx context.Context, c *goredis.Client) {
		var err error
		n, err = c.Exists(ctx, key).Result()
		require.NoError(t, err)
	})
	return n > 0
}

func withClient(t *testing.T, addr string, fn func(ctx context.Context, c *goredis.Client)) {
	t.Helper()

	c := goredis.NewClient(&goredis.Options{Addr: addr})
	defer c.Close()
	fn(context.Background(), c)
}
