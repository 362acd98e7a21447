package entity

import "time"

// StockState califica el stock de un producto en una ubicación.
type StockState string

const (
	StateAvailable  StockState = "available"  // disponible para venta
	StateQuarantine StockState = "quarantine" // cuarentena
	StateDamaged    StockState = "damaged"    // dañado
)

// Valid indica si el estado pertenece al vocabulario cerrado.
func (s StockState) Valid() bool {
	switch s {
	case StateAvailable, StateQuarantine, StateDamaged:
		return true
	}
	return false
}

// OrDefault devuelve StateAvailable cuando el estado no fue informado.
func (s StockState) OrDefault() StockState {
	if s == "" {
		return StateAvailable
	}
	return s
}

// ParseStockState convierte texto libre (incluye los nombres heredados en español).
func ParseStockState(s string) (StockState, bool) {
	switch s {
	case "", "available", "disponible", "Disponible":
		return StateAvailable, true
	case "quarantine", "cuarentena", "Cuarentena":
		return StateQuarantine, true
	case "damaged", "dañado", "Dañado":
		return StateDamaged, true
	}
	return "", false
}

// StockKey identifica una fila de stock: producto + ubicación + estado.
type StockKey struct {
	ProductID  string
	LocationID string
	State      StockState
}

// Less ordena claves de forma canónica (para bloquear filas siempre en el mismo orden).
func (k StockKey) Less(o StockKey) bool {
	if k.ProductID != o.ProductID {
		return k.ProductID < o.ProductID
	}
	if k.LocationID != o.LocationID {
		return k.LocationID < o.LocationID
	}
	return k.State < o.State
}

// StockLevel es el agregado derivado: la suma con signo de los movimientos de su clave.
// Una fila con cantidad 0 es válida (no equivale a ausencia de historia).
type StockLevel struct {
	StockKey
	Quantity  int64
	UpdatedAt time.Time
}
