package inventory

import "github.com/jhoicas/almacen-ledger/internal/domain/entity"

// DeriveStatus clasifica el total de un producto frente a su stock mínimo.
// Es función pura: se recalcula en cada consulta.
func DeriveStatus(total, minimum int64) entity.StockStatus {
	switch {
	case total <= 0:
		return entity.StatusOutOfStock
	case total <= minimum:
		return entity.StatusLowStock
	default:
		return entity.StatusInStock
	}
}

// AdjustmentFor convierte una cantidad objetivo en el movimiento necesario.
// ok=false cuando no hay diferencia (no se registra nada).
func AdjustmentFor(current, target int64) (dir entity.Direction, qty int64, ok bool) {
	delta := target - current
	switch {
	case delta > 0:
		return entity.DirectionIn, delta, true
	case delta < 0:
		return entity.DirectionOut, -delta, true
	}
	return "", 0, false
}
