package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/almacen-ledger/internal/domain"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
	"github.com/jhoicas/almacen-ledger/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

const stockColumns = `product_id, location_id, state, quantity, updated_at`

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// Get obtiene el stock de la clave; una clave sin fila vale 0.
func (r *StockRepo) Get(ctx context.Context, key entity.StockKey) (*entity.StockLevel, error) {
	query := `SELECT ` + stockColumns + `
		FROM stock_levels WHERE product_id = $1 AND location_id = $2 AND state = $3`
	l, err := scanStock(r.q.QueryRow(ctx, query, key.ProductID, key.LocationID, key.State))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.StockLevel{StockKey: key}, nil
		}
		return nil, mapError("get stock", err)
	}
	return l, nil
}

// GetForUpdate bloquea la fila de la clave (SELECT FOR UPDATE) hasta el fin de la transacción.
// Si la clave no existe se inserta primero en 0: sin fila no habría nada que bloquear y dos
// primeras entradas concurrentes se pisarían.
func (r *StockRepo) GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.StockLevel, error) {
	insert := `
		INSERT INTO stock_levels (product_id, location_id, state, quantity, updated_at)
		VALUES ($1, $2, $3, 0, now())
		ON CONFLICT (product_id, location_id, state) DO NOTHING`
	if _, err := r.q.Exec(ctx, insert, key.ProductID, key.LocationID, key.State); err != nil {
		return nil, mapError("ensure stock row", err)
	}
	query := `SELECT ` + stockColumns + `
		FROM stock_levels WHERE product_id = $1 AND location_id = $2 AND state = $3
		FOR UPDATE`
	l, err := scanStock(r.q.QueryRow(ctx, query, key.ProductID, key.LocationID, key.State))
	if err != nil {
		return nil, mapError("get stock for update", err)
	}
	return l, nil
}

// Upsert fija la cantidad de la clave.
func (r *StockRepo) Upsert(ctx context.Context, level *entity.StockLevel) error {
	query := `
		INSERT INTO stock_levels (product_id, location_id, state, quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id, location_id, state)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query, level.ProductID, level.LocationID, level.State, level.Quantity, level.UpdatedAt)
	return mapError("upsert stock", err)
}

// LockProduct bloquea la fila del producto: FOR KEY SHARE para movimientos (compatibles entre sí)
// y FOR UPDATE para el reset, que así excluye las entradas que crearían claves nuevas.
func (r *StockRepo) LockProduct(ctx context.Context, productID string, exclusive bool) error {
	mode := "FOR KEY SHARE"
	if exclusive {
		mode = "FOR UPDATE"
	}
	var id string
	err := r.q.QueryRow(ctx, `SELECT id FROM products WHERE id = $1 `+mode, productID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFound("producto", productID)
	}
	return mapError("lock product", err)
}

// ListByProduct filas del producto (incluye cantidades en 0).
func (r *StockRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.StockLevel, error) {
	return r.list(ctx, "list stock by product",
		`SELECT `+stockColumns+` FROM stock_levels WHERE product_id = $1 ORDER BY location_id, state`, productID)
}

// ListByLocation filas de la ubicación (todos los productos y estados).
func (r *StockRepo) ListByLocation(ctx context.Context, locationID string) ([]*entity.StockLevel, error) {
	return r.list(ctx, "list stock by location",
		`SELECT `+stockColumns+` FROM stock_levels WHERE location_id = $1 ORDER BY product_id, state`, locationID)
}

// ListAll todas las filas de stock.
func (r *StockRepo) ListAll(ctx context.Context) ([]*entity.StockLevel, error) {
	return r.list(ctx, "list stock",
		`SELECT `+stockColumns+` FROM stock_levels ORDER BY product_id, location_id, state`)
}

func (r *StockRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.StockLevel, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()
	var list []*entity.StockLevel
	for rows.Next() {
		l, err := scanStock(rows)
		if err != nil {
			return nil, mapError("scan stock", err)
		}
		list = append(list, l)
	}
	return list, mapError(op, rows.Err())
}

func scanStock(row pgx.Row) (*entity.StockLevel, error) {
	var l entity.StockLevel
	if err := row.Scan(&l.ProductID, &l.LocationID, &l.State, &l.Quantity, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}
