package memory

import (
	"context"

	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
)

type movementRepo struct {
	s  *Store
	tx *txState
}

// Create en una tx queda pendiente; el Seq se asigna al confirmar.
func (r *movementRepo) Create(_ context.Context, m *entity.MovementRecord) error {
	if m.ID == "" {
		m.ID = newID()
	}
	if r.tx != nil {
		r.tx.pending = append(r.tx.pending, m)
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.seq++
	m.Seq = r.s.seq
	cp := *m
	r.s.movements = append(r.s.movements, &cp)
	return nil
}

func (r *movementRepo) GetByID(_ context.Context, id string) (*entity.MovementRecord, error) {
	if r.tx != nil {
		for _, m := range r.tx.pending {
			if m.ID == id {
				cp := *m
				return &cp, nil
			}
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, m := range r.s.movements {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

// List recorre el ledger confirmado desde el final (más reciente primero).
func (r *movementRepo) List(_ context.Context, f entity.MovementFilter, limit int) ([]*entity.MovementRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.MovementRecord, 0)
	for i := len(r.s.movements) - 1; i >= 0; i-- {
		m := r.s.movements[i]
		if f.BeforeSeq > 0 && m.Seq >= f.BeforeSeq {
			continue
		}
		if !f.Matches(m) {
			continue
		}
		cp := *m
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *movementRepo) FindByReference(_ context.Context, reference string, key entity.StockKey, dir entity.Direction) (*entity.MovementRecord, error) {
	match := func(m *entity.MovementRecord) bool {
		return m.Reference == reference && m.Key() == key && m.Direction == dir
	}
	if r.tx != nil {
		for _, m := range r.tx.pending {
			if match(m) {
				cp := *m
				return &cp, nil
			}
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, m := range r.s.movements {
		if match(m) {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *movementRepo) SumByKey(_ context.Context) (map[entity.StockKey]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sums := make(map[entity.StockKey]int64)
	for _, m := range r.s.movements {
		sums[m.Key()] += m.Signed()
	}
	return sums, nil
}
