package repository

import (
	"context"

	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
)

// StockRepository define el puerto para consultar/actualizar el stock derivado por clave.
// Solo el ledger escribe (Upsert) y siempre dentro de una transacción.
type StockRepository interface {
	// Get devuelve la fila o una fila en cero si la clave nunca se tocó.
	Get(ctx context.Context, key entity.StockKey) (*entity.StockLevel, error)
	// GetForUpdate igual que Get pero bloquea la clave hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.StockLevel, error)
	Upsert(ctx context.Context, level *entity.StockLevel) error
	// LockProduct toma el bloqueo del producto para la transacción. Los movimientos lo toman
	// compartido; el reset lo toma exclusivo para que ninguna clave nueva aparezca mientras vacía.
	LockProduct(ctx context.Context, productID string, exclusive bool) error
	ListByProduct(ctx context.Context, productID string) ([]*entity.StockLevel, error)
	ListByLocation(ctx context.Context, locationID string) ([]*entity.StockLevel, error)
	ListAll(ctx context.Context) ([]*entity.StockLevel, error)
}
