package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/almacen-ledger/internal/domain"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
	"github.com/jhoicas/almacen-ledger/internal/domain/repository"
)

var _ repository.ActorRepository = (*ActorRepo)(nil)

// ActorRepo implementación del puerto ActorRepository sobre PostgreSQL.
type ActorRepo struct {
	q Querier
}

// NewActorRepository construye el adaptador de persistencia para actores.
func NewActorRepository(q Querier) *ActorRepo {
	return &ActorRepo{q: q}
}

// Create persiste un actor.
func (r *ActorRepo) Create(ctx context.Context, a *entity.Actor) error {
	query := `INSERT INTO actors (id, name, role, active, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.q.Exec(ctx, query, a.ID, a.Name, a.Role, a.Active, a.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return mapError("insert actor", err)
	}
	return nil
}

// GetByID obtiene un actor por ID (nil si no existe).
func (r *ActorRepo) GetByID(ctx context.Context, id string) (*entity.Actor, error) {
	query := `SELECT id, name, role, active, created_at FROM actors WHERE id = $1`
	var a entity.Actor
	err := r.q.QueryRow(ctx, query, id).Scan(&a.ID, &a.Name, &a.Role, &a.Active, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get actor", err)
	}
	return &a, nil
}
