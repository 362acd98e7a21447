//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/almacen-ledger/internal/application/inventory"
	"github.com/jhoicas/almacen-ledger/internal/domain"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
	"github.com/jhoicas/almacen-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/almacen-ledger/pkg/config"
)

type pgFixture struct {
	pool    *pgxpool.Pool
	engine  *inventory.LedgerEngine
	product *entity.Product
	l1, l2  *entity.Location
	clerk   inventory.Caller
}

// newPGFixture levanta un PostgreSQL efímero, aplica el esquema y deja un producto, dos ubicaciones y un almacenero.
func newPGFixture(t *testing.T) *pgFixture {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "no se pudo iniciar el contenedor de PostgreSQL")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminar contenedor: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 10})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.EnsureSchema(ctx, pool))
	// Segunda aplicación: el esquema es idempotente.
	require.NoError(t, postgres.EnsureSchema(ctx, pool))

	now := time.Now().UTC()
	f := &pgFixture{
		pool: pool,
		l1:   &entity.Location{ID: uuid.NewString(), Code: "A-01-1", Aisle: "A", Shelf: "01", Level: "1", Active: true, CreatedAt: now, UpdatedAt: now},
		l2:   &entity.Location{ID: uuid.NewString(), Code: "B-02-1", Aisle: "B", Shelf: "02", Level: "1", Active: true, CreatedAt: now, UpdatedAt: now},
	}
	f.product = &entity.Product{
		ID: uuid.NewString(), SKU: "SKU-PG-1", Name: "Arandela", UnitMeasure: "unidad",
		Price: decimal.RequireFromString("250.50"), MinimumStock: 3, Active: true, CreatedAt: now, UpdatedAt: now,
	}
	actor := &entity.Actor{ID: uuid.NewString(), Name: "bodega", Role: entity.RoleAlmacenero, Active: true, CreatedAt: now}
	f.clerk = inventory.Caller{ActorID: actor.ID, Role: actor.Role}

	locations := postgres.NewLocationRepository(pool)
	require.NoError(t, locations.Create(ctx, f.l1))
	require.NoError(t, locations.Create(ctx, f.l2))
	require.NoError(t, postgres.NewProductRepository(pool).Create(ctx, f.product))
	require.NoError(t, postgres.NewActorRepository(pool).Create(ctx, actor))

	f.engine = inventory.NewLedgerEngine(inventory.Deps{
		TxRunner:  postgres.NewTxRunner(pool),
		Stock:     postgres.NewStockRepository(pool),
		Movements: postgres.NewMovementRepository(pool),
		Products:  postgres.NewProductRepository(pool),
		Locations: locations,
		Actors:    postgres.NewActorRepository(pool),
	}, inventory.Options{MaxAttempts: 5})
	return f
}

func TestPostgres_LedgerFlow(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	rec, err := f.engine.RecordReceipt(ctx, inventory.ReceiptInput{
		ProductID: f.product.ID, LocationID: f.l1.ID, Quantity: 10, Reference: "OC-1", Caller: f.clerk,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.QuantityBefore)
	assert.Equal(t, int64(10), rec.QuantityAfter)

	// Misma referencia: devuelve el registro original sin duplicar.
	again, err := f.engine.RecordReceipt(ctx, inventory.ReceiptInput{
		ProductID: f.product.ID, LocationID: f.l1.ID, Quantity: 10, Reference: "OC-1", Caller: f.clerk,
	})
	require.NoError(t, err)
	assert.Equal(t, rec.ID, again.ID)

	_, err = f.engine.RecordIssue(ctx, inventory.IssueInput{
		ProductID: f.product.ID, LocationID: f.l1.ID, Quantity: 11, Reason: entity.ReasonSale, Caller: f.clerk,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	out, in, err := f.engine.Transfer(ctx, inventory.TransferInput{
		ProductID: f.product.ID, Quantity: 4, FromLocationID: f.l1.ID, ToLocationID: f.l2.ID, Caller: f.clerk,
	})
	require.NoError(t, err)
	assert.Equal(t, out.Reference, in.Reference)
	assert.Less(t, out.Seq, in.Seq)

	q1, err := f.engine.GetQuantity(ctx, f.product.ID, f.l1.ID, nil)
	require.NoError(t, err)
	q2, err := f.engine.GetQuantity(ctx, f.product.ID, f.l2.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(6), q1)
	assert.Equal(t, int64(4), q2)

	loc, err := postgres.NewLocationRepository(f.pool).GetByID(ctx, f.l2.ID)
	require.NoError(t, err)
	assert.True(t, loc.Occupied)

	rep, err := f.engine.Verify(ctx)
	require.NoError(t, err)
	assert.True(t, rep.Healthy(), "discrepancias: %+v ocupación: %+v", rep.Discrepancies, rep.Occupancy)
}

func TestPostgres_MovementsAreAppendOnly(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	rec, err := f.engine.RecordReceipt(ctx, inventory.ReceiptInput{
		ProductID: f.product.ID, LocationID: f.l1.ID, Quantity: 2, Caller: f.clerk,
	})
	require.NoError(t, err)

	_, err = f.pool.Exec(ctx, "UPDATE movements SET quantity = 99 WHERE id = $1", rec.ID)
	assert.Error(t, err)
	_, err = f.pool.Exec(ctx, "DELETE FROM movements WHERE id = $1", rec.ID)
	assert.Error(t, err)
}

func TestPostgres_ConcurrentIssuesNeverOversell(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	_, err := f.engine.RecordReceipt(ctx, inventory.ReceiptInput{
		ProductID: f.product.ID, LocationID: f.l1.ID, Quantity: 10, Caller: f.clerk,
	})
	require.NoError(t, err)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		refused int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.RecordIssue(ctx, inventory.IssueInput{
				ProductID: f.product.ID, LocationID: f.l1.ID, Quantity: 3, Reason: entity.ReasonSale, Caller: f.clerk,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientStock):
				refused++
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, workers-3, refused)

	q, err := f.engine.GetQuantity(ctx, f.product.ID, f.l1.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), q)

	rep, err := f.engine.Verify(ctx)
	require.NoError(t, err)
	assert.True(t, rep.Healthy())
}

func TestPostgres_ReferenciaYCatalogo(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	_, err := f.engine.RecordReceipt(ctx, inventory.ReceiptInput{
		ProductID: f.product.ID, LocationID: f.l1.ID, Quantity: 10, Reference: "OC-9", Caller: f.clerk,
	})
	require.NoError(t, err)
	_, err = f.engine.RecordReceipt(ctx, inventory.ReceiptInput{
		ProductID: f.product.ID, LocationID: f.l1.ID, Quantity: 12, Reference: "OC-9", Caller: f.clerk,
	})
	var dup *domain.DuplicateReferenceError
	require.ErrorAs(t, err, &dup)

	products := postgres.NewProductRepository(f.pool)
	found, err := products.SearchByName(ctx, "arand", true, 10, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	none, err := products.SearchByName(ctx, "%", true, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, none, "el comodín se busca literal")

	locations := postgres.NewLocationRepository(f.pool)
	loc, err := locations.GetByID(ctx, f.l1.ID)
	require.NoError(t, err)
	loc.Capacity = 10
	require.NoError(t, locations.Update(ctx, loc))
	available, err := locations.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, f.l2.ID, available[0].ID)

	recs, err := f.engine.ResetProduct(ctx, inventory.ResetInput{
		ProductID: f.product.ID, LocationID: f.l2.ID, Quantity: 4, Caller: inventory.Caller{ActorID: f.clerk.ActorID, Role: entity.RoleAdministrador},
	})
	require.NoError(t, err)
	require.NotEmpty(t, recs)

	rep, err := f.engine.Verify(ctx)
	require.NoError(t, err)
	assert.True(t, rep.Healthy())
}
