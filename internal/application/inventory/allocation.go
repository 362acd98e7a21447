package inventory

import (
	"context"

	"github.com/jhoicas/almacen-ledger/internal/domain"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
	"github.com/jhoicas/almacen-ledger/internal/domain/repository"
)

// AllocationResolver elige la ubicación cuando el llamador no la indica.
// Política: sugerencia de ubicación del producto si está activa; si no, la primera ubicación
// activa por código ascendente; sin ubicaciones, ErrNoLocationsAvailable.
type AllocationResolver struct {
	locations repository.LocationRepository
}

// NewAllocationResolver construye el resolvedor.
func NewAllocationResolver(locations repository.LocationRepository) *AllocationResolver {
	return &AllocationResolver{locations: locations}
}

// DefaultLocation devuelve la primera ubicación activa por código ascendente.
func (a *AllocationResolver) DefaultLocation(ctx context.Context) (*entity.Location, error) {
	list, err := a.locations.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, domain.ErrNoLocationsAvailable
	}
	return list[0], nil
}

// Resolve devuelve la ubicación explícita (validada) o la de la política por defecto.
// forIn exige que la ubicación esté activa; una ubicación inactiva aún puede vaciarse.
func (a *AllocationResolver) Resolve(ctx context.Context, product *entity.Product, locationID string, forIn bool) (*entity.Location, error) {
	if locationID != "" {
		return a.byID(ctx, locationID, forIn)
	}
	if product != nil && product.DefaultLocationID != "" {
		loc, err := a.locations.GetByID(ctx, product.DefaultLocationID)
		if err != nil {
			return nil, err
		}
		if loc != nil && loc.Active {
			return loc, nil
		}
	}
	return a.DefaultLocation(ctx)
}

func (a *AllocationResolver) byID(ctx context.Context, id string, forIn bool) (*entity.Location, error) {
	loc, err := a.locations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, domain.NotFound("ubicación", id)
	}
	if forIn && !loc.Active {
		return nil, &domain.InvalidStateError{Reason: "entrada", Detail: "ubicación inactiva: " + loc.Code}
	}
	return loc, nil
}
