package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/almacen-ledger/internal/domain"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
	"github.com/jhoicas/almacen-ledger/internal/domain/repository"
)

var _ repository.LocationRepository = (*LocationRepo)(nil)

const locationColumns = `id, code, aisle, shelf, level, capacity, occupied, active, created_at, updated_at`

// LocationRepo implementación del puerto LocationRepository sobre PostgreSQL (usable con pool o tx).
type LocationRepo struct {
	q Querier
}

// NewLocationRepository construye el adaptador de persistencia para ubicaciones.
func NewLocationRepository(q Querier) *LocationRepo {
	return &LocationRepo{q: q}
}

// Create persiste una nueva ubicación. Código repetido -> domain.ErrDuplicate.
func (r *LocationRepo) Create(ctx context.Context, l *entity.Location) error {
	query := `
		INSERT INTO locations (` + locationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		l.ID, l.Code, l.Aisle, l.Shelf, l.Level, l.Capacity, l.Occupied, l.Active, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return mapError("insert location", err)
	}
	return nil
}

// GetByID obtiene una ubicación por ID (nil si no existe).
func (r *LocationRepo) GetByID(ctx context.Context, id string) (*entity.Location, error) {
	return r.getOne(ctx, "get location", `SELECT `+locationColumns+` FROM locations WHERE id = $1`, id)
}

// GetByCode obtiene una ubicación por código (nil si no existe).
func (r *LocationRepo) GetByCode(ctx context.Context, code string) (*entity.Location, error) {
	return r.getOne(ctx, "get location by code", `SELECT `+locationColumns+` FROM locations WHERE code = $1`, code)
}

// ListActive ubicaciones activas por código ascendente (orden de la política por defecto).
func (r *LocationRepo) ListActive(ctx context.Context) ([]*entity.Location, error) {
	return r.list(ctx, "list active locations",
		`SELECT `+locationColumns+` FROM locations WHERE active ORDER BY code`)
}

// List todas las ubicaciones por código.
func (r *LocationRepo) List(ctx context.Context, limit, offset int) ([]*entity.Location, error) {
	return r.list(ctx, "list locations",
		`SELECT `+locationColumns+` FROM locations ORDER BY code LIMIT $1 OFFSET $2`, limit, offset)
}

// ListAvailable ubicaciones activas sin ocupar, sin tope o con unidades por debajo de la capacidad.
func (r *LocationRepo) ListAvailable(ctx context.Context) ([]*entity.Location, error) {
	query := `
		SELECT ` + locationColumns + ` FROM locations l
		WHERE l.active AND (
			NOT l.occupied OR l.capacity = 0 OR
			l.capacity > (SELECT COALESCE(SUM(s.quantity), 0) FROM stock_levels s WHERE s.location_id = l.id)
		)
		ORDER BY l.code`
	return r.list(ctx, "list available locations", query)
}

// Update corrige los datos físicos de la ubicación. occupied y active no se tocan aquí.
func (r *LocationRepo) Update(ctx context.Context, l *entity.Location) error {
	query := `
		UPDATE locations SET code = $2, aisle = $3, shelf = $4, level = $5, capacity = $6, updated_at = $7
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, l.ID, l.Code, l.Aisle, l.Shelf, l.Level, l.Capacity, l.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return mapError("update location", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("ubicación", l.ID)
	}
	return nil
}

// LockForCapacity bloquea la fila de la ubicación hasta el fin de la tx (capacidad estricta).
func (r *LocationRepo) LockForCapacity(ctx context.Context, locationID string) error {
	var id string
	err := r.q.QueryRow(ctx, `SELECT id FROM locations WHERE id = $1 FOR UPDATE`, locationID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFound("ubicación", locationID)
	}
	return mapError("lock location", err)
}

// Deactivate marca la ubicación como inactiva; el stock que tenga aún puede sacarse.
func (r *LocationRepo) Deactivate(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `UPDATE locations SET active = FALSE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return mapError("deactivate location", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("ubicación", id)
	}
	return nil
}

// RefreshOccupancy recalcula occupied desde stock_levels (nunca se asigna a mano).
func (r *LocationRepo) RefreshOccupancy(ctx context.Context, locationID string) error {
	query := `
		UPDATE locations SET
			occupied = EXISTS (SELECT 1 FROM stock_levels WHERE location_id = $1 AND quantity > 0),
			updated_at = now()
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query, locationID)
	return mapError("refresh occupancy", err)
}

func (r *LocationRepo) getOne(ctx context.Context, op, query string, arg any) (*entity.Location, error) {
	l, err := scanLocation(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(op, err)
	}
	return l, nil
}

func (r *LocationRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.Location, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()
	var list []*entity.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, mapError("scan location", err)
		}
		list = append(list, l)
	}
	return list, mapError(op, rows.Err())
}

func scanLocation(row pgx.Row) (*entity.Location, error) {
	var l entity.Location
	err := row.Scan(&l.ID, &l.Code, &l.Aisle, &l.Shelf, &l.Level, &l.Capacity, &l.Occupied, &l.Active,
		&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
