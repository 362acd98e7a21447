package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/almacen-ledger/internal/application/dto"
	"github.com/jhoicas/almacen-ledger/internal/domain"
	"github.com/jhoicas/almacen-ledger/pkg/logger"
)

// writeError traduce los errores de dominio a status + dto.ErrorResponse con los valores concretos.
// Solo los 5xx se registran en el log: el resto son respuestas esperadas.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	status, body := errorResponse(err)
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Msg("error atendiendo petición")
	}
	return c.Status(status).JSON(body)
}

func errorResponse(err error) (int, dto.ErrorResponse) {
	var (
		qtyErr      *domain.InvalidQuantityError
		stockErr    *domain.InsufficientStockError
		capErr      *domain.CapacityExceededError
		stateErr    *domain.InvalidStateError
		notFoundErr *domain.NotFoundError
		dupRefErr   *domain.DuplicateReferenceError
	)
	switch {
	case errors.As(err, &qtyErr):
		return fiber.StatusBadRequest, dto.ErrorResponse{
			Code:    "INVALID_QUANTITY",
			Message: qtyErr.Error(),
			Details: map[string]any{"quantity": qtyErr.Quantity},
		}
	case errors.Is(err, domain.ErrInvalidQuantity):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "INVALID_QUANTITY", Message: err.Error()}
	case errors.As(err, &stockErr):
		return fiber.StatusConflict, dto.ErrorResponse{
			Code:    "INSUFFICIENT_STOCK",
			Message: stockErr.Error(),
			Details: map[string]any{
				"product_id":  stockErr.ProductID,
				"location_id": stockErr.LocationID,
				"state":       stockErr.State,
				"available":   stockErr.Available,
				"requested":   stockErr.Requested,
			},
		}
	case errors.As(err, &capErr):
		return fiber.StatusUnprocessableEntity, dto.ErrorResponse{
			Code:    "CAPACITY_EXCEEDED",
			Message: capErr.Error(),
			Details: map[string]any{
				"location_id": capErr.LocationID,
				"capacity":    capErr.Capacity,
				"current":     capErr.Current,
				"requested":   capErr.Requested,
			},
		}
	case errors.As(err, &stateErr):
		return fiber.StatusUnprocessableEntity, dto.ErrorResponse{
			Code:    "INVALID_STATE",
			Message: stateErr.Error(),
			Details: map[string]any{"state": stateErr.State, "reason": stateErr.Reason},
		}
	case errors.Is(err, domain.ErrInvalidState):
		return fiber.StatusUnprocessableEntity, dto.ErrorResponse{Code: "INVALID_STATE", Message: err.Error()}
	case errors.Is(err, domain.ErrNoLocationsAvailable):
		return fiber.StatusUnprocessableEntity, dto.ErrorResponse{
			Code:    "NO_LOCATIONS_AVAILABLE",
			Message: "no hay ubicaciones activas: registre una ubicación antes de mover stock",
		}
	case errors.As(err, &notFoundErr):
		return fiber.StatusNotFound, dto.ErrorResponse{
			Code:    "NOT_FOUND",
			Message: notFoundErr.Error(),
			Details: map[string]any{"resource": notFoundErr.Resource, "id": notFoundErr.ID},
		}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()}
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"}
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"}
	case errors.As(err, &dupRefErr):
		return fiber.StatusConflict, dto.ErrorResponse{
			Code:    "DUPLICATE_REFERENCE",
			Message: dupRefErr.Error(),
			Details: map[string]any{"reference": dupRefErr.Reference, "movement_id": dupRefErr.MovementID},
		}
	case errors.Is(err, domain.ErrDuplicate):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "DUPLICATE", Message: "el recurso ya existe"}
	case errors.Is(err, domain.ErrConcurrentConflict):
		return fiber.StatusConflict, dto.ErrorResponse{
			Code:    "CONCURRENT_CONFLICT",
			Message: "otro movimiento modificó el stock al mismo tiempo, intente de nuevo",
		}
	case errors.Is(err, domain.ErrStorageUnavailable):
		return fiber.StatusServiceUnavailable, dto.ErrorResponse{
			Code:    "STORAGE_UNAVAILABLE",
			Message: "almacenamiento no disponible, intente más tarde",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, dto.ErrorResponse{Code: "TIMEOUT", Message: "la operación excedió el tiempo límite"}
	case errors.Is(err, context.Canceled):
		return fiber.StatusServiceUnavailable, dto.ErrorResponse{Code: "CANCELLED", Message: "petición cancelada"}
	default:
		return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"}
	}
}
