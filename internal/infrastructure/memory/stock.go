package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
)

type stockRepo struct {
	s  *Store
	tx *txState
}

func (r *stockRepo) Get(_ context.Context, key entity.StockKey) (*entity.StockLevel, error) {
	if r.tx != nil {
		if l, ok := r.tx.writes[key]; ok {
			return &l, nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.readLocked(key), nil
}

// GetForUpdate en memoria no bloquea: registra la versión leída y el commit la valida.
func (r *stockRepo) GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.StockLevel, error) {
	return r.Get(ctx, key)
}

func (r *stockRepo) Upsert(_ context.Context, level *entity.StockLevel) error {
	if r.tx != nil {
		r.tx.writes[level.StockKey] = *level
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.stock[level.StockKey]
	if !ok {
		row = &stockRow{}
		r.s.stock[level.StockKey] = row
		r.s.productKeys[level.ProductID]++
	}
	if level.Quantity > row.level.Quantity {
		r.s.locationIn[level.LocationID]++
	}
	row.level = *level
	row.version++
	r.s.refreshOccupancyLocked(level.LocationID)
	return nil
}

// LockProduct compartido no registra nada: los movimientos de un mismo producto en claves
// distintas no compiten. Exclusivo registra la versión del conjunto de claves del producto y el
// commit falla si otra tx creó una clave nueva entretanto.
func (r *stockRepo) LockProduct(_ context.Context, productID string, exclusive bool) error {
	if r.tx == nil || !exclusive {
		return nil
	}
	if _, seen := r.tx.productLocks[productID]; seen {
		return nil
	}
	r.s.mu.RLock()
	r.tx.productLocks[productID] = r.s.productKeys[productID]
	r.s.mu.RUnlock()
	return nil
}

func (r *stockRepo) ListByProduct(_ context.Context, productID string) ([]*entity.StockLevel, error) {
	return r.list(func(k entity.StockKey) bool { return k.ProductID == productID }), nil
}

func (r *stockRepo) ListByLocation(_ context.Context, locationID string) ([]*entity.StockLevel, error) {
	return r.list(func(k entity.StockKey) bool { return k.LocationID == locationID }), nil
}

func (r *stockRepo) ListAll(_ context.Context) ([]*entity.StockLevel, error) {
	return r.list(func(entity.StockKey) bool { return true }), nil
}

// readLocked devuelve la fila confirmada (o cero) y, dentro de una tx, registra su versión.
func (r *stockRepo) readLocked(key entity.StockKey) *entity.StockLevel {
	row, ok := r.s.stock[key]
	if r.tx != nil {
		if _, seen := r.tx.reads[key]; !seen {
			var v uint64
			if ok {
				v = row.version
			}
			r.tx.reads[key] = v
		}
	}
	if !ok {
		return &entity.StockLevel{StockKey: key}
	}
	l := row.level
	return &l
}

func (r *stockRepo) list(match func(entity.StockKey) bool) []*entity.StockLevel {
	r.s.mu.RLock()
	keys := make(map[entity.StockKey]struct{})
	for k := range r.s.stock {
		if match(k) {
			keys[k] = struct{}{}
		}
	}
	out := make([]*entity.StockLevel, 0, len(keys))
	for k := range keys {
		if r.tx != nil {
			if l, ok := r.tx.writes[k]; ok {
				out = append(out, &l)
				continue
			}
		}
		out = append(out, r.readLocked(k))
	}
	r.s.mu.RUnlock()

	if r.tx != nil {
		for k, l := range r.tx.writes {
			if _, ok := keys[k]; !ok && match(k) {
				out = append(out, &l)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StockKey.Less(out[j].StockKey) })
	return out
}
