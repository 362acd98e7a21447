package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/almacen-ledger/internal/domain"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
	"github.com/jhoicas/almacen-ledger/internal/domain/repository"
	"github.com/jhoicas/almacen-ledger/internal/infrastructure/memory"
)

var testKey = entity.StockKey{ProductID: "p1", LocationID: "l1", State: entity.StateAvailable}

func seedLocation(t *testing.T, s *memory.Store) {
	t.Helper()
	require.NoError(t, s.LocationRepository().Create(context.Background(), &entity.Location{
		ID: "l1", Code: "A-01-1", Active: true,
	}))
}

// setQuantity confirma una fila de stock mediante una transacción normal.
func setQuantity(t *testing.T, s *memory.Store, qty int64) {
	t.Helper()
	err := s.Run(context.Background(), func(_ repository.MovementRepository, stock repository.StockRepository, locs repository.LocationRepository) error {
		l, err := stock.GetForUpdate(context.Background(), testKey)
		require.NoError(t, err)
		l.Quantity = qty
		require.NoError(t, stock.Upsert(context.Background(), l))
		return locs.RefreshOccupancy(context.Background(), testKey.LocationID)
	})
	require.NoError(t, err)
}

func TestStore_CommitPublicaStockYOcupacion(t *testing.T) {
	s := memory.New()
	seedLocation(t, s)

	setQuantity(t, s, 7)

	l, err := s.StockRepository().Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, int64(7), l.Quantity)

	loc, err := s.LocationRepository().GetByID(context.Background(), "l1")
	require.NoError(t, err)
	assert.True(t, loc.Occupied)

	setQuantity(t, s, 0)
	loc, _ = s.LocationRepository().GetByID(context.Background(), "l1")
	assert.False(t, loc.Occupied, "sin stock la ubicación queda libre")
}

func TestStore_LecturaObsoletaProvocaConflicto(t *testing.T) {
	s := memory.New()
	seedLocation(t, s)
	setQuantity(t, s, 10)

	ctx := context.Background()
	err := s.Run(ctx, func(_ repository.MovementRepository, stock repository.StockRepository, _ repository.LocationRepository) error {
		l, err := stock.GetForUpdate(ctx, testKey)
		require.NoError(t, err)

		// otra transacción confirma entre la lectura y el commit
		setQuantity(t, s, 3)

		l.Quantity -= 5
		return stock.Upsert(ctx, l)
	})
	require.ErrorIs(t, err, domain.ErrConcurrentConflict)

	l, _ := s.StockRepository().Get(ctx, testKey)
	assert.Equal(t, int64(3), l.Quantity, "la transacción en conflicto no debe escribir nada")
}

func TestStore_TxVeSusPropiasEscrituras(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	err := s.Run(ctx, func(movs repository.MovementRepository, stock repository.StockRepository, _ repository.LocationRepository) error {
		require.NoError(t, stock.Upsert(ctx, &entity.StockLevel{StockKey: testKey, Quantity: 4}))
		l, err := stock.Get(ctx, testKey)
		require.NoError(t, err)
		assert.Equal(t, int64(4), l.Quantity)

		list, err := stock.ListByProduct(ctx, testKey.ProductID)
		require.NoError(t, err)
		require.Len(t, list, 1)

		m := &entity.MovementRecord{Reference: "R-1", Direction: entity.DirectionIn,
			ProductID: testKey.ProductID, LocationID: testKey.LocationID, State: testKey.State, Quantity: 4}
		require.NoError(t, movs.Create(ctx, m))
		prev, err := movs.FindByReference(ctx, "R-1", testKey, entity.DirectionIn)
		require.NoError(t, err)
		assert.NotNil(t, prev)
		return nil
	})
	require.NoError(t, err)

	list, err := s.MovementRepository().List(ctx, entity.MovementFilter{}, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].Seq)
}

func TestStore_ContextoCanceladoNoEscribe(t *testing.T) {
	s := memory.New()
	ctx, cancel := context.WithCancel(context.Background())

	err := s.Run(ctx, func(_ repository.MovementRepository, stock repository.StockRepository, _ repository.LocationRepository) error {
		require.NoError(t, stock.Upsert(ctx, &entity.StockLevel{StockKey: testKey, Quantity: 9}))
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)

	l, _ := s.StockRepository().Get(context.Background(), testKey)
	assert.Zero(t, l.Quantity)
}

func TestStore_ListaMovimientosMasRecientePrimero(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	repo := s.MovementRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, &entity.MovementRecord{
			Direction: entity.DirectionIn, ProductID: "p1", LocationID: "l1", State: entity.StateAvailable,
			Quantity: int64(i + 1), Reason: entity.ReasonReceipt, OccurredAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	first, err := repo.List(ctx, entity.MovementFilter{ProductID: "p1"}, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, []int64{5, 4}, []int64{first[0].Seq, first[1].Seq})

	next, err := repo.List(ctx, entity.MovementFilter{ProductID: "p1", BeforeSeq: first[1].Seq}, 10)
	require.NoError(t, err)
	require.Len(t, next, 3)
	assert.Equal(t, int64(3), next[0].Seq)

	sums, err := repo.SumByKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(15), sums[testKey])
}

func TestStore_BloqueoExclusivoDeProductoVeClavesNuevas(t *testing.T) {
	s := memory.New()
	seedLocation(t, s)
	setQuantity(t, s, 5)
	ctx := context.Background()
	other := entity.StockKey{ProductID: "p1", LocationID: "l1", State: entity.StateQuarantine}

	err := s.Run(ctx, func(_ repository.MovementRepository, stock repository.StockRepository, _ repository.LocationRepository) error {
		require.NoError(t, stock.LockProduct(ctx, "p1", true))
		levels, err := stock.ListByProduct(ctx, "p1")
		require.NoError(t, err)
		require.Len(t, levels, 1)

		// aparece una clave del producto que el listado no vio
		require.NoError(t, s.StockRepository().Upsert(ctx, &entity.StockLevel{StockKey: other, Quantity: 2}))

		levels[0].Quantity = 0
		return stock.Upsert(ctx, levels[0])
	})
	require.ErrorIs(t, err, domain.ErrConcurrentConflict)

	l, _ := s.StockRepository().Get(ctx, testKey)
	assert.Equal(t, int64(5), l.Quantity)
}

func TestStore_BloqueoCompartidoNoChocaConClavesNuevas(t *testing.T) {
	s := memory.New()
	seedLocation(t, s)
	setQuantity(t, s, 5)
	ctx := context.Background()

	err := s.Run(ctx, func(_ repository.MovementRepository, stock repository.StockRepository, _ repository.LocationRepository) error {
		require.NoError(t, stock.LockProduct(ctx, "p1", false))
		l, err := stock.GetForUpdate(ctx, testKey)
		require.NoError(t, err)

		require.NoError(t, s.StockRepository().Upsert(ctx, &entity.StockLevel{
			StockKey: entity.StockKey{ProductID: "p1", LocationID: "l1", State: entity.StateDamaged}, Quantity: 1,
		}))

		l.Quantity--
		return stock.Upsert(ctx, l)
	})
	require.NoError(t, err)

	l, _ := s.StockRepository().Get(ctx, testKey)
	assert.Equal(t, int64(4), l.Quantity)
}

func TestStore_CapacidadEstrictaSerializaLaUbicacion(t *testing.T) {
	s := memory.New()
	seedLocation(t, s)
	ctx := context.Background()
	p2 := entity.StockKey{ProductID: "p2", LocationID: "l1", State: entity.StateAvailable}

	err := s.Run(ctx, func(_ repository.MovementRepository, stock repository.StockRepository, locs repository.LocationRepository) error {
		require.NoError(t, locs.LockForCapacity(ctx, "l1"))
		l, err := stock.GetForUpdate(ctx, testKey)
		require.NoError(t, err)

		// otro producto entra a la misma ubicación
		require.NoError(t, s.StockRepository().Upsert(ctx, &entity.StockLevel{StockKey: p2, Quantity: 3}))

		l.Quantity = 4
		return stock.Upsert(ctx, l)
	})
	require.ErrorIs(t, err, domain.ErrConcurrentConflict)
}

func TestStore_EntradasDeOtrosProductosNoChocanSinBloqueo(t *testing.T) {
	s := memory.New()
	seedLocation(t, s)
	ctx := context.Background()
	p2 := entity.StockKey{ProductID: "p2", LocationID: "l1", State: entity.StateAvailable}

	err := s.Run(ctx, func(_ repository.MovementRepository, stock repository.StockRepository, _ repository.LocationRepository) error {
		l, err := stock.GetForUpdate(ctx, testKey)
		require.NoError(t, err)
		// lectura consultiva fuera de la tx: no registra versiones de p2
		_, err = s.StockRepository().ListByLocation(ctx, "l1")
		require.NoError(t, err)

		require.NoError(t, s.StockRepository().Upsert(ctx, &entity.StockLevel{StockKey: p2, Quantity: 3}))

		l.Quantity = 4
		return stock.Upsert(ctx, l)
	})
	require.NoError(t, err)

	levels, err := s.StockRepository().ListByLocation(ctx, "l1")
	require.NoError(t, err)
	assert.Len(t, levels, 2)
}
