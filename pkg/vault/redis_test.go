package vault

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis tests need a live server; set MEMVAULT_REDIS_ADDR to enable them.
func setupTestRedis(t *testing.T) (*RedisStore, func()) {
	t.Helper()

	addr := os.Getenv("MEMVAULT_REDIS_ADDR")
	if addr == "" {
		t.Skip("MEMVAULT_REDIS_ADDR not set, skipping Redis tests")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck
		t.Skipf("redis at %s unreachable: %v", addr, err)
	}

	prefix := "memvault-test:"
	store := NewRedisStore(client, prefix)

	cleanup := func() {
		ctx := context.Background()
		iter := client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val()) //nolint:errcheck
		}
		client.Close() //nolint:errcheck
	}
	return store, cleanup
}

func TestRedisStore(t *testing.T) {
	store, cleanup := setupTestRedis(t)
	defer cleanup()
	exerciseStore(t, store)
}
