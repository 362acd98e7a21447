package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del catálogo de bodega.
// No se elimina físicamente mientras tenga movimientos: se desactiva (Active=false).
type Product struct {
	ID                string
	SKU               string // único
	Name              string
	Description       string
	Category          string
	UnitMeasure       string
	Price             decimal.Decimal // precio informado por el llamador; el motor no lo interpreta
	Supplier          string
	MinimumStock      int64  // umbral de stock bajo
	DefaultLocationID string // sugerencia de ubicación (puede estar vacía)
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
