package repository

import (
	"context"

	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	GetBySKU(ctx context.Context, sku string) (*entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	List(ctx context.Context, onlyActive bool, limit, offset int) ([]*entity.Product, error)
	// SearchByName búsqueda parcial sin distinguir mayúsculas, ordenada por nombre.
	SearchByName(ctx context.Context, name string, onlyActive bool, limit, offset int) ([]*entity.Product, error)
	Deactivate(ctx context.Context, id string) error
}
