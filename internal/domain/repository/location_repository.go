package repository

import (
	"context"

	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
)

// LocationRepository define el puerto de persistencia para ubicaciones.
type LocationRepository interface {
	Create(ctx context.Context, location *entity.Location) error
	GetByID(ctx context.Context, id string) (*entity.Location, error)
	GetByCode(ctx context.Context, code string) (*entity.Location, error)
	// ListActive devuelve las ubicaciones activas ordenadas por código ascendente.
	ListActive(ctx context.Context) ([]*entity.Location, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Location, error)
	// ListAvailable ubicaciones activas que admiten más stock: sin ocupar, sin tope (capacidad 0)
	// o con unidades por debajo de la capacidad. Ordenadas por código.
	ListAvailable(ctx context.Context) ([]*entity.Location, error)
	// Update corrige código, pasillo, estante, nivel y capacidad. Código repetido -> domain.ErrDuplicate.
	Update(ctx context.Context, location *entity.Location) error
	// LockForCapacity serializa dentro de la transacción las entradas que validan capacidad estricta.
	LockForCapacity(ctx context.Context, locationID string) error
	Deactivate(ctx context.Context, id string) error
	// RefreshOccupancy recalcula Occupied a partir del stock de la ubicación.
	RefreshOccupancy(ctx context.Context, locationID string) error
}
