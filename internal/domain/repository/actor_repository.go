package repository

import (
	"context"

	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
)

// ActorRepository registro de actores que firman los movimientos.
type ActorRepository interface {
	Create(ctx context.Context, actor *entity.Actor) error
	GetByID(ctx context.Context, id string) (*entity.Actor, error)
}
