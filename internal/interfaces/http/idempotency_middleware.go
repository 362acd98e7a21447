package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/almacen-ledger/internal/application/dto"
	"github.com/jhoicas/almacen-ledger/pkg/logger"
)

// HeaderIdempotencyKey header opcional para reintentos seguros de POST.
const HeaderIdempotencyKey = "Idempotency-Key"

// idempotencyStore contrato mínimo del middleware. Lo implementa *cache.RedisIdempotencyStore.
type idempotencyStore interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Idempotency rechaza con 409 DUPLICATE_REQUEST un POST cuya Idempotency-Key ya se usó dentro del TTL.
// La clave se acota por actor. Si la petición termina con error (>= 400) la clave se libera para
// permitir el reintento.
//   - Sin header → pasa sin verificar.
//   - 503 → fallo de infraestructura al consultar el store.
func Idempotency(store idempotencyStore, ttl time.Duration, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(HeaderIdempotencyKey)
		if key == "" || c.Method() != fiber.MethodPost {
			return c.Next()
		}
		scoped := GetActorID(c) + ":" + c.Path() + ":" + key

		ok, err := store.Reserve(c.UserContext(), scoped, ttl)
		if err != nil {
			log.Error().Err(err).Str("key", key).Msg("no se pudo verificar la clave de idempotencia")
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "IDEMPOTENCY_CHECK_FAILED",
				Message: "no se pudo verificar la clave de idempotencia, intente más tarde",
			})
		}
		if !ok {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Code:    "DUPLICATE_REQUEST",
				Message: "la petición con esta Idempotency-Key ya fue procesada",
			})
		}

		err = c.Next()
		if err != nil || c.Response().StatusCode() >= fiber.StatusBadRequest {
			if relErr := store.Release(context.WithoutCancel(c.UserContext()), scoped); relErr != nil {
				log.Warn().Err(relErr).Str("key", key).Msg("no se pudo liberar la clave de idempotencia")
			}
		}
		return err
	}
}
