package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/canvas/pkg/adapters/redis"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunThreadStoreContract(t, redis.NewFromClient(client))
}

func TestRedisMemory_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunMemoryStoreContract(t, redis.NewMemory(client, ""))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	threadID := "thread-ttl"

	require.NoError(t, store.Save(ctx, threadID, domain.NewState(threadID)))

	threads, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, threads, threadID)

	// Expire the key in miniredis.
	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, threadID)
	assert.ErrorIs(t, err, domain.ErrThreadNotFound)

	// The index is pruned against the wall clock, so wait past the TTL.
	time.Sleep(1200 * time.Millisecond)

	threads, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, threads)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()
	threadID := "my-thread"

	require.NoError(t, store.Save(ctx, threadID, domain.NewState(threadID)))

	assert.True(t, mr.Exists("custom:app:my-thread"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, list, threadID)
}

func TestRedisMemory_Keys(t *testing.T) {
	mr, client := newClient(t)
	mem := redis.NewMemory(client, "")

	ns := []string{domain.MemoriesNamespace, "assistant-1"}
	require.NoError(t, mem.Put(context.Background(), ns, domain.ReflectionKey, map[string]any{"content": []any{"likes teal"}}))
	assert.True(t, mr.Exists("canvas:memory:memories:assistant-1:reflection"))
}
