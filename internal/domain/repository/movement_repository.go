package repository

import (
	"context"

	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
)

// MovementRepository puerto del ledger append-only. No expone Update ni Delete.
type MovementRepository interface {
	// Create agrega el registro y asigna ID (si falta) y Seq.
	Create(ctx context.Context, movement *entity.MovementRecord) error
	GetByID(ctx context.Context, id string) (*entity.MovementRecord, error)
	// List devuelve hasta limit registros del filtro, del más reciente al más antiguo.
	List(ctx context.Context, filter entity.MovementFilter, limit int) ([]*entity.MovementRecord, error)
	// FindByReference busca un movimiento previo con la misma referencia para la clave y dirección.
	FindByReference(ctx context.Context, reference string, key entity.StockKey, dir entity.Direction) (*entity.MovementRecord, error)
	// SumByKey suma con signo todos los movimientos agrupados por clave.
	SumByKey(ctx context.Context) (map[entity.StockKey]int64, error)
}
