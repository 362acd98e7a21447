package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
// Los tipos estructurados de abajo envuelven estos valores: usar errors.Is para el tipo de error
// y errors.As para leer los datos concretos.
var (
	ErrNotFound             = errors.New("recurso no encontrado")
	ErrInvalidInput         = errors.New("entrada inválida")
	ErrDuplicate            = errors.New("recurso duplicado")
	ErrForbidden            = errors.New("acceso denegado")
	ErrInvalidQuantity      = errors.New("cantidad inválida")
	ErrInsufficientStock    = errors.New("stock insuficiente")
	ErrInvalidState         = errors.New("estado de stock inválido para la operación")
	ErrNoLocationsAvailable = errors.New("no hay ubicaciones disponibles")
	ErrConcurrentConflict   = errors.New("conflicto de concurrencia, reintente la operación")
	ErrStorageUnavailable   = errors.New("almacenamiento no disponible")
)

// InvalidQuantityError cantidad no positiva.
type InvalidQuantityError struct {
	Quantity int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("cantidad inválida: %d (debe ser mayor que cero)", e.Quantity)
}

func (e *InvalidQuantityError) Unwrap() error { return ErrInvalidQuantity }

// InsufficientStockError una salida supera el stock de la clave.
type InsufficientStockError struct {
	ProductID  string
	LocationID string
	State      string
	Available  int64
	Requested  int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para producto %s en ubicación %s (%s): disponible %d, solicitado %d",
		e.ProductID, e.LocationID, e.State, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// InvalidStateError violación de una regla de negocio sobre el estado del stock.
type InvalidStateError struct {
	State  string
	Reason string
	Detail string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("operación %q no permitida sobre stock %q: %s", e.Reason, e.State, e.Detail)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// CapacityExceededError entrada rechazada por capacidad (solo con política estricta).
type CapacityExceededError struct {
	LocationID string
	Capacity   int64
	Current    int64
	Requested  int64
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("capacidad de ubicación %s excedida: capacidad %d, ocupado %d, entrada %d",
		e.LocationID, e.Capacity, e.Current, e.Requested)
}

func (e *CapacityExceededError) Unwrap() error { return ErrInvalidState }

// NotFoundError referencia desconocida (producto, ubicación, actor, movimiento).
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s no encontrado: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound atajo para construir NotFoundError.
func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// DuplicateReferenceError la referencia ya identifica otro movimiento de la misma clave y
// dirección con distinto contenido. Solo un reintento idéntico devuelve el registro existente.
type DuplicateReferenceError struct {
	Reference  string
	MovementID string
	Detail     string
}

func (e *DuplicateReferenceError) Error() string {
	return fmt.Sprintf("referencia %q ya usada por el movimiento %s: %s", e.Reference, e.MovementID, e.Detail)
}

func (e *DuplicateReferenceError) Unwrap() error { return ErrDuplicate }
