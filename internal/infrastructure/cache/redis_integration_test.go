//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/almacen-ledger/internal/infrastructure/cache"
)

func newRedisStore(t *testing.T) *cache.RedisIdempotencyStore {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "no se pudo iniciar el contenedor de Redis")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminar contenedor: %v", err)
		}
	})

	addr, err := container.PortEndpoint(ctx, "6379/tcp", "")
	require.NoError(t, err)

	store, err := cache.NewRedisIdempotencyStore(ctx, cache.RedisConfig{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisIdempotencyStore_ReserveRelease(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "act-1:/api/inventory/issues:k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(ctx, "act-1:/api/inventory/issues:k1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "la segunda reserva de la misma clave debe rechazarse")

	require.NoError(t, store.Release(ctx, "act-1:/api/inventory/issues:k1"))
	ok, err = store.Reserve(ctx, "act-1:/api/inventory/issues:k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisIdempotencyStore_Expira(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "k-ttl", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		ok, err := store.Reserve(ctx, "k-ttl", time.Second)
		return err == nil && ok
	}, 5*time.Second, 200*time.Millisecond)
}
