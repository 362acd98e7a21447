package entity

import "time"

// Direction sentido del movimiento.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Valid indica si la dirección es IN u OUT.
func (d Direction) Valid() bool { return d == DirectionIn || d == DirectionOut }

// Sign devuelve +1 para IN y -1 para OUT.
func (d Direction) Sign() int64 {
	if d == DirectionOut {
		return -1
	}
	return 1
}

// Reason vocabulario cerrado de razones de movimiento.
type Reason string

const (
	ReasonReceipt          Reason = "receipt"
	ReasonSale             Reason = "sale"
	ReasonReturn           Reason = "return"
	ReasonShrinkageDamaged Reason = "shrinkage-damaged"
	ReasonShrinkageExpired Reason = "shrinkage-expired"
	ReasonShrinkageTheft   Reason = "shrinkage-theft"
	ReasonInternalUse      Reason = "internal-use"
	ReasonTransfer         Reason = "transfer"
	ReasonManualAdjustment Reason = "manual-adjustment"
	ReasonReset            Reason = "reset"
)

var legacyReasons = map[string]Reason{
	"recepcion":     ReasonReceipt,
	"compra":        ReasonReceipt,
	"venta":         ReasonSale,
	"devolucion":    ReasonReturn,
	"dañado":        ReasonShrinkageDamaged,
	"vencido":       ReasonShrinkageExpired,
	"robo":          ReasonShrinkageTheft,
	"uso interno":   ReasonInternalUse,
	"transferencia": ReasonTransfer,
	"ajuste manual": ReasonManualAdjustment,
}

// ParseReason acepta el valor canónico o el nombre heredado de la aplicación de escritorio.
func ParseReason(s string) (Reason, bool) {
	r := Reason(s)
	if r.Valid() {
		return r, true
	}
	if r, ok := legacyReasons[s]; ok {
		return r, true
	}
	return "", false
}

// Valid indica si la razón pertenece al vocabulario.
func (r Reason) Valid() bool {
	switch r {
	case ReasonReceipt, ReasonSale, ReasonReturn,
		ReasonShrinkageDamaged, ReasonShrinkageExpired, ReasonShrinkageTheft,
		ReasonInternalUse, ReasonTransfer, ReasonManualAdjustment, ReasonReset:
		return true
	}
	return false
}

// IsShrinkage indica pérdidas que no son venta (dañado, vencido, robo, uso interno).
func (r Reason) IsShrinkage() bool {
	switch r {
	case ReasonShrinkageDamaged, ReasonShrinkageExpired, ReasonShrinkageTheft, ReasonInternalUse:
		return true
	}
	return false
}

// AllowsDirection indica si la razón tiene sentido para la dirección dada.
func (r Reason) AllowsDirection(d Direction) bool {
	switch r {
	case ReasonReceipt, ReasonReturn:
		return d == DirectionIn
	case ReasonSale, ReasonShrinkageDamaged, ReasonShrinkageExpired, ReasonShrinkageTheft, ReasonInternalUse:
		return d == DirectionOut
	case ReasonTransfer, ReasonManualAdjustment, ReasonReset:
		return d.Valid()
	}
	return false
}

// MovementRecord registro inmutable del ledger. Nunca se edita ni se elimina:
// las correcciones son registros compensatorios nuevos.
type MovementRecord struct {
	ID             string
	Seq            int64 // orden de confirmación, asignado por el almacenamiento
	Direction      Direction
	ProductID      string
	LocationID     string
	State          StockState
	Quantity       int64 // siempre > 0; el signo lo da Direction
	QuantityBefore int64
	QuantityAfter  int64
	Reason         Reason
	ReasonDetail   string
	Notes          string
	Reference      string // pedido, factura o traslado que origina el movimiento
	ActorID        string
	OccurredAt     time.Time
}

// Key devuelve la clave de stock afectada por el movimiento.
func (m *MovementRecord) Key() StockKey {
	return StockKey{ProductID: m.ProductID, LocationID: m.LocationID, State: m.State}
}

// Signed devuelve la cantidad con signo.
func (m *MovementRecord) Signed() int64 { return m.Direction.Sign() * m.Quantity }

// MovementFilter criterios para el historial. Todos opcionales.
// BeforeSeq > 0 pagina hacia atrás (movimientos más antiguos que ese Seq).
type MovementFilter struct {
	ProductID  string
	LocationID string
	Reason     Reason
	From       *time.Time
	To         *time.Time
	BeforeSeq  int64
}

// Matches evalúa el filtro en memoria (sin BeforeSeq).
func (f MovementFilter) Matches(m *MovementRecord) bool {
	if f.ProductID != "" && m.ProductID != f.ProductID {
		return false
	}
	if f.LocationID != "" && m.LocationID != f.LocationID {
		return false
	}
	if f.Reason != "" && m.Reason != f.Reason {
		return false
	}
	if f.From != nil && m.OccurredAt.Before(*f.From) {
		return false
	}
	if f.To != nil && m.OccurredAt.After(*f.To) {
		return false
	}
	return true
}
