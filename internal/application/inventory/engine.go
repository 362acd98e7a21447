package inventory

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/almacen-ledger/internal/domain"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/almacen-ledger/internal/domain/inventory"
	"github.com/jhoicas/almacen-ledger/internal/domain/repository"
	"github.com/jhoicas/almacen-ledger/pkg/logger"
)

// Options parámetros del motor.
type Options struct {
	MaxAttempts     int  // intentos ante conflicto de concurrencia (por defecto 3)
	StrictCapacity  bool // rechaza entradas que superan la capacidad de la ubicación
	HistoryPageSize int
	Now             func() time.Time
	Tracer          trace.Tracer
	Logger          *logger.Logger
}

// Caller identifica a quien invoca una operación de escritura.
// El rol es una etiqueta informada por el llamador; no hay sesión global.
type Caller struct {
	ActorID string
	Role    string
}

// LedgerEngine convierte movimientos de stock en registros inmutables y mantiene el agregado
// por (producto, ubicación, estado). Validación + append + actualización del agregado se ejecutan
// en una sola transacción; los conflictos se reintentan de forma acotada.
type LedgerEngine struct {
	deps       Deps
	opts       Options
	clock      *monotonicClock
	tracer     trace.Tracer
	log        *logger.Logger
	Aggregator *Aggregator
	Allocation *AllocationResolver
}

// NewLedgerEngine construye el motor.
func NewLedgerEngine(deps Deps, opts Options) *LedgerEngine {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.HistoryPageSize <= 0 {
		opts.HistoryPageSize = 100
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("almacen-ledger/inventory")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &LedgerEngine{
		deps:       deps,
		opts:       opts,
		clock:      &monotonicClock{now: opts.Now},
		tracer:     opts.Tracer,
		log:        opts.Logger.Component("ledger"),
		Aggregator: NewAggregator(deps.Stock, deps.Products, deps.Locations),
		Allocation: NewAllocationResolver(deps.Locations),
	}
}

// withRetry reintenta fn completo (validar + escribir) mientras el error sea ErrConcurrentConflict.
// Cualquier otro error es terminal. Un contexto cancelado corta antes del siguiente intento.
func (e *LedgerEngine) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= e.opts.MaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn()
		if !errors.Is(err, domain.ErrConcurrentConflict) {
			return err
		}
		e.log.Warn().
			Str("op", op).
			Int("attempt", attempt).
			Int("max_attempts", e.opts.MaxAttempts).
			Err(err).
			Msg("conflicto de concurrencia en el ledger")
	}
	return err
}

// runTx ejecuta fn en una transacción con reintentos.
func (e *LedgerEngine) runTx(ctx context.Context, op string, fn func(r txRepos) error) error {
	return e.withRetry(ctx, op, func() error {
		return e.deps.TxRunner.Run(ctx, func(
			movRepo repository.MovementRepository,
			stockRepo repository.StockRepository,
			locationRepo repository.LocationRepository,
		) error {
			return fn(txRepos{movements: movRepo, stock: stockRepo, locations: locationRepo})
		})
	})
}

// startSpan abre un span con los atributos comunes del movimiento.
func (e *LedgerEngine) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// checkCaller valida la etiqueta de rol y que el actor exista y esté activo.
func (e *LedgerEngine) checkCaller(ctx context.Context, c Caller, op domaininv.Operation) error {
	if err := domaininv.Authorize(c.Role, op); err != nil {
		return err
	}
	if c.ActorID == "" {
		return domain.ErrInvalidInput
	}
	actor, err := e.deps.Actors.GetByID(ctx, c.ActorID)
	if err != nil {
		return err
	}
	if actor == nil {
		return domain.NotFound("actor", c.ActorID)
	}
	if !actor.Active {
		return domain.ErrForbidden
	}
	return nil
}

// loadProduct obtiene el producto; forIn exige que esté activo (un producto inactivo solo puede vaciarse).
func (e *LedgerEngine) loadProduct(ctx context.Context, productID string, forIn bool) (*entity.Product, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	p, err := e.deps.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.NotFound("producto", productID)
	}
	if forIn && !p.Active {
		return nil, &domain.InvalidStateError{Reason: "entrada", Detail: "producto inactivo: " + p.SKU}
	}
	return p, nil
}

// monotonicClock entrega marcas de tiempo no decrecientes para esta instancia del motor.
type monotonicClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// Now devuelve max(último, ahora) truncado a microsegundos (precisión de timestamptz).
func (c *monotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC().Truncate(time.Microsecond)
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}
