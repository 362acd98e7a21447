package inventory

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/almacen-ledger/internal/domain"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/almacen-ledger/internal/domain/inventory"
	"github.com/jhoicas/almacen-ledger/internal/domain/repository"
)

// LocationQuantity cantidad de un producto en una ubicación (sumando estados).
type LocationQuantity struct {
	LocationID   string
	LocationCode string
	Quantity     int64
}

// StatusReport estado derivado de un producto junto con los valores que lo producen.
type StatusReport struct {
	ProductID    string
	Status       entity.StockStatus
	Total        int64
	MinimumStock int64
}

// Aggregator responde consultas de cantidad a partir de las filas de StockLevel.
// Nada se cachea: cada consulta lee el stock actual.
type Aggregator struct {
	stock     repository.StockRepository
	products  repository.ProductRepository
	locations repository.LocationRepository
}

// NewAggregator construye el agregador.
func NewAggregator(stock repository.StockRepository, products repository.ProductRepository, locations repository.LocationRepository) *Aggregator {
	return &Aggregator{stock: stock, products: products, locations: locations}
}

// QuantityAt cantidad exacta de la clave; una clave nunca tocada vale 0.
func (a *Aggregator) QuantityAt(ctx context.Context, key entity.StockKey) (int64, error) {
	key.State = key.State.OrDefault()
	level, err := a.stock.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	return level.Quantity, nil
}

// LocationQuantity suma todos los estados del producto en la ubicación.
func (a *Aggregator) LocationQuantity(ctx context.Context, productID, locationID string) (int64, error) {
	levels, err := a.stock.ListByProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, l := range levels {
		if l.LocationID == locationID {
			total += l.Quantity
		}
	}
	return total, nil
}

// TotalQuantity suma del producto en todas las ubicaciones y estados.
func (a *Aggregator) TotalQuantity(ctx context.Context, productID string) (int64, error) {
	levels, err := a.stock.ListByProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, l := range levels {
		total += l.Quantity
	}
	return total, nil
}

// BreakdownByLocation devuelve las ubicaciones con cantidad > 0, ordenadas por código ascendente.
func (a *Aggregator) BreakdownByLocation(ctx context.Context, productID string) ([]LocationQuantity, error) {
	levels, err := a.stock.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	byLocation := make(map[string]int64)
	for _, l := range levels {
		byLocation[l.LocationID] += l.Quantity
	}

	out := make([]LocationQuantity, 0, len(byLocation))
	for locID, qty := range byLocation {
		if qty <= 0 {
			continue
		}
		loc, err := a.locations.GetByID(ctx, locID)
		if err != nil {
			return nil, err
		}
		code := locID
		if loc != nil {
			code = loc.Code
		}
		out = append(out, LocationQuantity{LocationID: locID, LocationCode: code, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LocationCode != out[j].LocationCode {
			return out[i].LocationCode < out[j].LocationCode
		}
		return out[i].LocationID < out[j].LocationID
	})
	return out, nil
}

// DeriveStatus clasifica el total del producto frente a su stock mínimo.
func (a *Aggregator) DeriveStatus(ctx context.Context, productID string) (*StatusReport, error) {
	p, err := a.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.NotFound("producto", productID)
	}
	total, err := a.TotalQuantity(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &StatusReport{
		ProductID:    productID,
		Status:       domaininv.DeriveStatus(total, p.MinimumStock),
		Total:        total,
		MinimumStock: p.MinimumStock,
	}, nil
}

// GetQuantity cantidad del producto. Sin ubicación: total del producto. Sin estado: suma de estados.
func (e *LedgerEngine) GetQuantity(ctx context.Context, productID, locationID string, state *entity.StockState) (qty int64, err error) {
	ctx, span := e.startSpan(ctx, "ledger.GetQuantity",
		attribute.String("product_id", productID),
		attribute.String("location_id", locationID))
	defer func() { endSpan(span, err) }()

	if _, err := e.loadProduct(ctx, productID, false); err != nil {
		return 0, err
	}
	if state != nil && !state.Valid() {
		return 0, &domain.InvalidStateError{State: string(*state), Detail: "estado de stock desconocido"}
	}

	if locationID != "" {
		loc, err := e.deps.Locations.GetByID(ctx, locationID)
		if err != nil {
			return 0, err
		}
		if loc == nil {
			return 0, domain.NotFound("ubicación", locationID)
		}
		if state != nil {
			return e.Aggregator.QuantityAt(ctx, entity.StockKey{ProductID: productID, LocationID: locationID, State: *state})
		}
		return e.Aggregator.LocationQuantity(ctx, productID, locationID)
	}

	if state == nil {
		return e.Aggregator.TotalQuantity(ctx, productID)
	}
	levels, err := e.deps.Stock.ListByProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	for _, l := range levels {
		if l.State == *state {
			qty += l.Quantity
		}
	}
	return qty, nil
}

// GetStatus estado derivado (sin stock, stock bajo, en stock).
func (e *LedgerEngine) GetStatus(ctx context.Context, productID string) (rep *StatusReport, err error) {
	ctx, span := e.startSpan(ctx, "ledger.GetStatus", attribute.String("product_id", productID))
	defer func() { endSpan(span, err) }()
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	return e.Aggregator.DeriveStatus(ctx, productID)
}

// GetBreakdown desglose por ubicación del producto.
func (e *LedgerEngine) GetBreakdown(ctx context.Context, productID string) ([]LocationQuantity, error) {
	if _, err := e.loadProduct(ctx, productID, false); err != nil {
		return nil, err
	}
	return e.Aggregator.BreakdownByLocation(ctx, productID)
}
