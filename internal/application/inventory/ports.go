package inventory

import (
	"context"

	"github.com/jhoicas/almacen-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios atados a esa tx.
// Garantiza atomicidad para el motor de inventario: movimiento + stock + ocupación se confirman juntos
// o no se confirma nada. Un conflicto de concurrencia se devuelve como domain.ErrConcurrentConflict.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.MovementRepository,
		stockRepo repository.StockRepository,
		locationRepo repository.LocationRepository,
	) error) error
}

// Deps repositorios usados fuera de transacción (lecturas y validación de referencias).
type Deps struct {
	TxRunner  TxRunner
	Stock     repository.StockRepository
	Movements repository.MovementRepository
	Products  repository.ProductRepository
	Locations repository.LocationRepository
	Actors    repository.ActorRepository
}

// txRepos agrupa los repositorios de una transacción en curso.
type txRepos struct {
	movements repository.MovementRepository
	stock     repository.StockRepository
	locations repository.LocationRepository
}
