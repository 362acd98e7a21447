package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/almacen-ledger/internal/domain"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
)

type productRepo struct{ s *Store }

func (r *productRepo) Create(_ context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.products {
		if existing.SKU == p.SKU {
			return domain.ErrDuplicate
		}
	}
	if p.ID == "" {
		p.ID = newID()
	}
	if _, ok := r.s.products[p.ID]; ok {
		return domain.ErrDuplicate
	}
	cp := *p
	r.s.products[p.ID] = &cp
	return nil
}

func (r *productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if p, ok := r.s.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *productRepo) GetBySKU(_ context.Context, sku string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.products {
		if p.SKU == sku {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *productRepo) Update(_ context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.products[p.ID]
	if !ok {
		return domain.NotFound("producto", p.ID)
	}
	for id, other := range r.s.products {
		if id != p.ID && other.SKU == p.SKU {
			return domain.ErrDuplicate
		}
	}
	cp := *p
	cp.Active = current.Active
	cp.CreatedAt = current.CreatedAt
	r.s.products[p.ID] = &cp
	return nil
}

func (r *productRepo) List(_ context.Context, onlyActive bool, limit, offset int) ([]*entity.Product, error) {
	r.s.mu.RLock()
	list := make([]*entity.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		if onlyActive && !p.Active {
			continue
		}
		cp := *p
		list = append(list, &cp)
	}
	r.s.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].SKU < list[j].SKU })
	return page(list, limit, offset), nil
}

func (r *productRepo) SearchByName(_ context.Context, name string, onlyActive bool, limit, offset int) ([]*entity.Product, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	r.s.mu.RLock()
	list := make([]*entity.Product, 0)
	for _, p := range r.s.products {
		if onlyActive && !p.Active {
			continue
		}
		if !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		cp := *p
		list = append(list, &cp)
	}
	r.s.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].SKU < list[j].SKU
	})
	return page(list, limit, offset), nil
}

func (r *productRepo) Deactivate(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return domain.NotFound("producto", id)
	}
	p.Active = false
	p.UpdatedAt = time.Now().UTC()
	return nil
}

type locationRepo struct {
	s  *Store
	tx *txState
}

func (r *locationRepo) Create(_ context.Context, l *entity.Location) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.locations {
		if existing.Code == l.Code {
			return domain.ErrDuplicate
		}
	}
	if l.ID == "" {
		l.ID = newID()
	}
	cp := *l
	r.s.locations[l.ID] = &cp
	return nil
}

func (r *locationRepo) GetByID(_ context.Context, id string) (*entity.Location, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if l, ok := r.s.locations[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (r *locationRepo) GetByCode(_ context.Context, code string) (*entity.Location, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, l := range r.s.locations {
		if l.Code == code {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *locationRepo) ListActive(ctx context.Context) ([]*entity.Location, error) {
	all, err := r.List(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	active := make([]*entity.Location, 0, len(all))
	for _, l := range all {
		if l.Active {
			active = append(active, l)
		}
	}
	return active, nil
}

func (r *locationRepo) List(_ context.Context, limit, offset int) ([]*entity.Location, error) {
	r.s.mu.RLock()
	list := make([]*entity.Location, 0, len(r.s.locations))
	for _, l := range r.s.locations {
		cp := *l
		list = append(list, &cp)
	}
	r.s.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return page(list, limit, offset), nil
}

func (r *locationRepo) ListAvailable(ctx context.Context) ([]*entity.Location, error) {
	active, err := r.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	used := make(map[string]int64)
	for key, row := range r.s.stock {
		used[key.LocationID] += row.level.Quantity
	}
	out := make([]*entity.Location, 0, len(active))
	for _, l := range active {
		if !l.Occupied || l.Capacity == 0 || used[l.ID] < l.Capacity {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *locationRepo) Update(_ context.Context, l *entity.Location) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.locations[l.ID]
	if !ok {
		return domain.NotFound("ubicación", l.ID)
	}
	for id, other := range r.s.locations {
		if id != l.ID && other.Code == l.Code {
			return domain.ErrDuplicate
		}
	}
	current.Code = l.Code
	current.Aisle = l.Aisle
	current.Shelf = l.Shelf
	current.Level = l.Level
	current.Capacity = l.Capacity
	current.UpdatedAt = l.UpdatedAt
	return nil
}

// LockForCapacity registra la versión de entradas de la ubicación; dos tx que validan capacidad
// en la misma ubicación no pueden confirmar ambas.
func (r *locationRepo) LockForCapacity(_ context.Context, locationID string) error {
	if r.tx == nil {
		return nil
	}
	if _, seen := r.tx.locationLocks[locationID]; seen {
		return nil
	}
	r.s.mu.RLock()
	r.tx.locationLocks[locationID] = r.s.locationIn[locationID]
	r.s.mu.RUnlock()
	return nil
}

func (r *locationRepo) Deactivate(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.locations[id]
	if !ok {
		return domain.NotFound("ubicación", id)
	}
	l.Active = false
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// RefreshOccupancy dentro de una tx se difiere al commit, cuando el stock ya es visible.
func (r *locationRepo) RefreshOccupancy(_ context.Context, locationID string) error {
	if r.tx != nil {
		r.tx.occupancy[locationID] = struct{}{}
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.refreshOccupancyLocked(locationID)
	return nil
}

type actorRepo struct{ s *Store }

func (r *actorRepo) Create(_ context.Context, a *entity.Actor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a.ID == "" {
		a.ID = newID()
	}
	if _, ok := r.s.actors[a.ID]; ok {
		return domain.ErrDuplicate
	}
	cp := *a
	r.s.actors[a.ID] = &cp
	return nil
}

func (r *actorRepo) GetByID(_ context.Context, id string) (*entity.Actor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if a, ok := r.s.actors[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

// page aplica limit/offset; limit <= 0 devuelve todo desde offset.
func page[T any](list []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return list[:0]
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
