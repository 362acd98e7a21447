package inventory

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/almacen-ledger/internal/domain/inventory"
)

const scanPageSize = 500

// Discrepancy clave cuyo StockLevel no coincide con la suma de sus movimientos o es negativo.
type Discrepancy struct {
	Key         entity.StockKey
	Stored      int64
	LedgerTotal int64
}

// OccupancyMismatch ubicación cuyo indicador Occupied no refleja su stock.
type OccupancyMismatch struct {
	LocationID string
	Code       string
	Occupied   bool
	HasStock   bool
}

// VerifyReport resultado del diagnóstico. Vacío en un sistema sano.
type VerifyReport struct {
	KeysChecked   int
	Discrepancies []Discrepancy
	Occupancy     []OccupancyMismatch
}

// Healthy indica que no hubo hallazgos.
func (r *VerifyReport) Healthy() bool {
	return len(r.Discrepancies) == 0 && len(r.Occupancy) == 0
}

// LowStockItem producto activo con total <= stock mínimo.
type LowStockItem struct {
	Product *entity.Product
	Total   int64
	Status  entity.StockStatus
}

// Verify recalcula la suma con signo de los movimientos por clave y la compara con el stock guardado.
func (e *LedgerEngine) Verify(ctx context.Context) (rep *VerifyReport, err error) {
	ctx, span := e.startSpan(ctx, "ledger.Verify")
	defer func() { endSpan(span, err) }()

	sums, err := e.deps.Movements.SumByKey(ctx)
	if err != nil {
		return nil, err
	}
	levels, err := e.deps.Stock.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	rep = &VerifyReport{}
	stored := make(map[entity.StockKey]int64, len(levels))
	withStock := make(map[string]bool)
	for _, l := range levels {
		stored[l.StockKey] = l.Quantity
		if l.Quantity > 0 {
			withStock[l.LocationID] = true
		}
	}
	keys := make(map[entity.StockKey]struct{}, len(stored)+len(sums))
	for k := range stored {
		keys[k] = struct{}{}
	}
	for k := range sums {
		keys[k] = struct{}{}
	}
	for k := range keys {
		rep.KeysChecked++
		s, l := stored[k], sums[k]
		if s != l || s < 0 {
			rep.Discrepancies = append(rep.Discrepancies, Discrepancy{Key: k, Stored: s, LedgerTotal: l})
		}
	}
	sort.Slice(rep.Discrepancies, func(i, j int) bool {
		return rep.Discrepancies[i].Key.Less(rep.Discrepancies[j].Key)
	})

	for offset := 0; ; offset += scanPageSize {
		locs, err := e.deps.Locations.List(ctx, scanPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, loc := range locs {
			if loc.Occupied != withStock[loc.ID] {
				rep.Occupancy = append(rep.Occupancy, OccupancyMismatch{
					LocationID: loc.ID,
					Code:       loc.Code,
					Occupied:   loc.Occupied,
					HasStock:   withStock[loc.ID],
				})
			}
		}
		if len(locs) < scanPageSize {
			break
		}
	}

	span.SetAttributes(
		attribute.Int("keys_checked", rep.KeysChecked),
		attribute.Int("discrepancies", len(rep.Discrepancies)))
	if !rep.Healthy() {
		e.log.Error().
			Int("discrepancies", len(rep.Discrepancies)).
			Int("occupancy_mismatches", len(rep.Occupancy)).
			Msg("el ledger no coincide con el stock guardado")
	}
	return rep, nil
}

// LowStock productos activos con total <= mínimo (incluye sin stock), de menor a mayor total.
func (e *LedgerEngine) LowStock(ctx context.Context) (items []LowStockItem, err error) {
	ctx, span := e.startSpan(ctx, "ledger.LowStock")
	defer func() { endSpan(span, err) }()

	levels, err := e.deps.Stock.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]int64)
	for _, l := range levels {
		totals[l.ProductID] += l.Quantity
	}

	items = make([]LowStockItem, 0)
	for offset := 0; ; offset += scanPageSize {
		products, err := e.deps.Products.List(ctx, true, scanPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, p := range products {
			total := totals[p.ID]
			if total > p.MinimumStock {
				continue
			}
			items = append(items, LowStockItem{
				Product: p,
				Total:   total,
				Status:  domaininv.DeriveStatus(total, p.MinimumStock),
			})
		}
		if len(products) < scanPageSize {
			break
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Total != items[j].Total {
			return items[i].Total < items[j].Total
		}
		return items[i].Product.SKU < items[j].Product.SKU
	})
	span.SetAttributes(attribute.Int("items", len(items)))
	return items, nil
}
