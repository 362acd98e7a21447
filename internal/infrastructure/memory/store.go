// Package memory implementa los puertos de persistencia en memoria con control de concurrencia
// optimista: cada transacción registra la versión de las filas de stock que lee y el commit
// falla con domain.ErrConcurrentConflict si alguna cambió mientras tanto.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jhoicas/almacen-ledger/internal/application/inventory"
	"github.com/jhoicas/almacen-ledger/internal/domain"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
	"github.com/jhoicas/almacen-ledger/internal/domain/repository"
)

var _ inventory.TxRunner = (*Store)(nil)

type stockRow struct {
	level   entity.StockLevel
	version uint64
}

// Store almacenamiento en memoria del ledger y del catálogo. Seguro para uso concurrente.
type Store struct {
	mu        sync.RWMutex
	products  map[string]*entity.Product
	locations map[string]*entity.Location
	actors    map[string]*entity.Actor
	stock     map[entity.StockKey]*stockRow
	movements []*entity.MovementRecord // orden de confirmación
	seq       int64

	// productKeys cambia cuando aparece una clave nueva del producto; locationIn cuando entra
	// stock a la ubicación. Solo los validan las tx que tomaron el bloqueo correspondiente.
	productKeys map[string]uint64
	locationIn  map[string]uint64
}

// New crea un store vacío.
func New() *Store {
	return &Store{
		products:  make(map[string]*entity.Product),
		locations: make(map[string]*entity.Location),
		actors:    make(map[string]*entity.Actor),
		stock:     make(map[entity.StockKey]*stockRow),

		productKeys: make(map[string]uint64),
		locationIn:  make(map[string]uint64),
	}
}

// Deps arma las dependencias del motor sobre este store.
func (s *Store) Deps() inventory.Deps {
	return inventory.Deps{
		TxRunner:  s,
		Stock:     s.StockRepository(),
		Movements: s.MovementRepository(),
		Products:  s.ProductRepository(),
		Locations: s.LocationRepository(),
		Actors:    s.ActorRepository(),
	}
}

// StockRepository repositorio de stock fuera de transacción.
func (s *Store) StockRepository() repository.StockRepository { return &stockRepo{s: s} }

// MovementRepository repositorio del ledger fuera de transacción.
func (s *Store) MovementRepository() repository.MovementRepository { return &movementRepo{s: s} }

// ProductRepository repositorio de productos.
func (s *Store) ProductRepository() repository.ProductRepository { return &productRepo{s: s} }

// LocationRepository repositorio de ubicaciones fuera de transacción.
func (s *Store) LocationRepository() repository.LocationRepository { return &locationRepo{s: s} }

// ActorRepository repositorio de actores.
func (s *Store) ActorRepository() repository.ActorRepository { return &actorRepo{s: s} }

// txState escrituras pendientes y versiones leídas de una transacción.
type txState struct {
	reads     map[entity.StockKey]uint64
	writes    map[entity.StockKey]entity.StockLevel
	pending   []*entity.MovementRecord
	occupancy map[string]struct{}

	productLocks  map[string]uint64
	locationLocks map[string]uint64
}

// Run ejecuta fn con repos atados a una transacción optimista. Solo se publica algo si fn
// termina sin error, el contexto sigue vivo y ninguna fila leída cambió.
func (s *Store) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	stockRepo repository.StockRepository,
	locationRepo repository.LocationRepository,
) error) error {
	tx := &txState{
		reads:     make(map[entity.StockKey]uint64),
		writes:    make(map[entity.StockKey]entity.StockLevel),
		occupancy: make(map[string]struct{}),

		productLocks:  make(map[string]uint64),
		locationLocks: make(map[string]uint64),
	}
	if err := fn(&movementRepo{s: s, tx: tx}, &stockRepo{s: s, tx: tx}, &locationRepo{s: s, tx: tx}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Store) commit(tx *txState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, version := range tx.reads {
		if s.versionLocked(key) != version {
			return domain.ErrConcurrentConflict
		}
	}
	for productID, version := range tx.productLocks {
		if s.productKeys[productID] != version {
			return domain.ErrConcurrentConflict
		}
	}
	for locationID, version := range tx.locationLocks {
		if s.locationIn[locationID] != version {
			return domain.ErrConcurrentConflict
		}
	}
	for key, level := range tx.writes {
		if _, read := tx.reads[key]; !read && s.versionLocked(key) != 0 {
			// escritura ciega sobre una fila que otro creó: se trata como conflicto
			return domain.ErrConcurrentConflict
		}
		if level.Quantity < 0 {
			return domain.ErrInvalidState
		}
	}

	for key, level := range tx.writes {
		row, ok := s.stock[key]
		if !ok {
			row = &stockRow{}
			s.stock[key] = row
			s.productKeys[key.ProductID]++
		}
		if level.Quantity > row.level.Quantity {
			s.locationIn[key.LocationID]++
		}
		row.level = level
		row.version++
	}
	for _, m := range tx.pending {
		s.seq++
		m.Seq = s.seq
		cp := *m
		s.movements = append(s.movements, &cp)
	}
	for locID := range tx.occupancy {
		s.refreshOccupancyLocked(locID)
	}
	return nil
}

func (s *Store) versionLocked(key entity.StockKey) uint64 {
	if row, ok := s.stock[key]; ok {
		return row.version
	}
	return 0
}

func (s *Store) refreshOccupancyLocked(locationID string) {
	loc, ok := s.locations[locationID]
	if !ok {
		return
	}
	occupied := false
	for key, row := range s.stock {
		if key.LocationID == locationID && row.level.Quantity > 0 {
			occupied = true
			break
		}
	}
	loc.Occupied = occupied
}

func newID() string { return uuid.New().String() }
