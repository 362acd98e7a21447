package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/almacen-ledger/internal/domain"
)

func TestNewRedisIdempotencyStore_SinServidor(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Puerto reservado sin servicio: el PING falla y se reporta como almacenamiento no disponible.
	_, err := NewRedisIdempotencyStore(ctx, RedisConfig{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestMapRedisError_ContextoSeConserva(t *testing.T) {
	assert.ErrorIs(t, mapRedisError("op", context.Canceled), context.Canceled)
	assert.NotErrorIs(t, mapRedisError("op", context.Canceled), domain.ErrStorageUnavailable)
}
