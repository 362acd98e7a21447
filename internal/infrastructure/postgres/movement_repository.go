package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
	"github.com/jhoicas/almacen-ledger/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementColumns = `seq, id, direction, product_id, location_id, state, quantity, quantity_before,
	quantity_after, reason, reason_detail, notes, reference, actor_id, occurred_at`

// MovementRepo ledger append-only sobre PostgreSQL (usable con pool o tx).
// UPDATE y DELETE están bloqueados además por el trigger movements_no_mutation.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Create persiste el registro y asigna Seq (orden de confirmación).
func (r *MovementRepo) Create(ctx context.Context, m *entity.MovementRecord) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `
		INSERT INTO movements (id, direction, product_id, location_id, state, quantity, quantity_before,
			quantity_after, reason, reason_detail, notes, reference, actor_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		m.ID, m.Direction, m.ProductID, m.LocationID, m.State, m.Quantity, m.QuantityBefore,
		m.QuantityAfter, m.Reason, m.ReasonDetail, m.Notes, m.Reference, m.ActorID, m.OccurredAt,
	).Scan(&m.Seq)
	return mapError("create movement", err)
}

// GetByID obtiene un movimiento por ID.
func (r *MovementRepo) GetByID(ctx context.Context, id string) (*entity.MovementRecord, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE id = $1`
	m, err := scanMovement(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get movement", err)
	}
	return m, nil
}

// List movimientos del filtro, del más reciente al más antiguo (seq DESC).
func (r *MovementRepo) List(ctx context.Context, f entity.MovementFilter, limit int) ([]*entity.MovementRecord, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE 1=1`
	args := []any{}
	pos := 1
	add := func(cond string, v any) {
		query += fmt.Sprintf(" AND "+cond, pos)
		args = append(args, v)
		pos++
	}
	if f.ProductID != "" {
		add("product_id = $%d", f.ProductID)
	}
	if f.LocationID != "" {
		add("location_id = $%d", f.LocationID)
	}
	if f.Reason != "" {
		add("reason = $%d", f.Reason)
	}
	if f.From != nil {
		add("occurred_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("occurred_at <= $%d", *f.To)
	}
	if f.BeforeSeq > 0 {
		add("seq < $%d", f.BeforeSeq)
	}
	query += fmt.Sprintf(" ORDER BY seq DESC LIMIT $%d", pos)
	args = append(args, limit)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list movements", err)
	}
	defer rows.Close()
	list := make([]*entity.MovementRecord, 0, limit)
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, mapError("scan movement", err)
		}
		list = append(list, m)
	}
	return list, mapError("list movements", rows.Err())
}

// FindByReference movimiento previo con la misma referencia, clave y dirección.
func (r *MovementRepo) FindByReference(ctx context.Context, reference string, key entity.StockKey, dir entity.Direction) (*entity.MovementRecord, error) {
	query := `SELECT ` + movementColumns + ` FROM movements
		WHERE reference = $1 AND product_id = $2 AND location_id = $3 AND state = $4 AND direction = $5
		ORDER BY seq LIMIT 1`
	m, err := scanMovement(r.q.QueryRow(ctx, query, reference, key.ProductID, key.LocationID, key.State, dir))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("find movement by reference", err)
	}
	return m, nil
}

// SumByKey suma con signo por clave, recalculada desde el ledger completo.
func (r *MovementRepo) SumByKey(ctx context.Context) (map[entity.StockKey]int64, error) {
	query := `
		SELECT product_id, location_id, state,
			SUM(CASE WHEN direction = 'IN' THEN quantity ELSE -quantity END)::BIGINT
		FROM movements
		GROUP BY product_id, location_id, state`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, mapError("sum movements", err)
	}
	defer rows.Close()
	sums := make(map[entity.StockKey]int64)
	for rows.Next() {
		var k entity.StockKey
		var total int64
		if err := rows.Scan(&k.ProductID, &k.LocationID, &k.State, &total); err != nil {
			return nil, mapError("scan movement sum", err)
		}
		sums[k] = total
	}
	return sums, mapError("sum movements", rows.Err())
}

func scanMovement(row pgx.Row) (*entity.MovementRecord, error) {
	var m entity.MovementRecord
	err := row.Scan(&m.Seq, &m.ID, &m.Direction, &m.ProductID, &m.LocationID, &m.State, &m.Quantity,
		&m.QuantityBefore, &m.QuantityAfter, &m.Reason, &m.ReasonDetail, &m.Notes, &m.Reference,
		&m.ActorID, &m.OccurredAt)
	if err != nil {
		return nil, err
	}
	m.OccurredAt = m.OccurredAt.UTC()
	return &m, nil
}
