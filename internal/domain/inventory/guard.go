package inventory

import (
	"github.com/jhoicas/almacen-ledger/internal/domain"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
)

// Proposal movimiento propuesto junto con el stock leído (bajo bloqueo) de su clave.
type Proposal struct {
	Direction entity.Direction
	Reason    entity.Reason
	Key       entity.StockKey
	Quantity  int64
	Available int64 // cantidad actual de la clave
}

// damagedOutReasons razones que pueden vaciar stock dañado.
var damagedOutReasons = map[entity.Reason]bool{
	entity.ReasonShrinkageDamaged: true,
	entity.ReasonShrinkageExpired: true,
	entity.ReasonShrinkageTheft:   true,
	entity.ReasonInternalUse:      true,
	entity.ReasonTransfer:         true,
	entity.ReasonManualAdjustment: true,
	entity.ReasonReset:            true,
}

// Guard aplica las reglas de negocio a un movimiento antes de admitirlo en el ledger.
// Las reglas se evalúan en orden y gana el primer fallo:
//  1. cantidad > 0
//  2. vocabulario: dirección, razón compatible y estado válido
//  3. venta solo desde stock disponible
//  4. salida no mayor que el stock de la clave
//  5. stock dañado solo sale por merma, traslado o corrección
func Guard(p Proposal) error {
	if p.Quantity <= 0 {
		return &domain.InvalidQuantityError{Quantity: p.Quantity}
	}
	if !p.Direction.Valid() || !p.Reason.AllowsDirection(p.Direction) || !p.Key.State.Valid() {
		return &domain.InvalidStateError{
			State:  string(p.Key.State),
			Reason: string(p.Reason),
			Detail: "razón, dirección o estado fuera del vocabulario permitido (" + string(p.Direction) + ")",
		}
	}
	if p.Direction == entity.DirectionIn {
		return nil
	}
	if p.Reason == entity.ReasonSale && p.Key.State != entity.StateAvailable {
		return &domain.InvalidStateError{
			State:  string(p.Key.State),
			Reason: string(p.Reason),
			Detail: "solo se puede vender stock disponible; traslade primero a disponible",
		}
	}
	if p.Available < p.Quantity {
		return &domain.InsufficientStockError{
			ProductID:  p.Key.ProductID,
			LocationID: p.Key.LocationID,
			State:      string(p.Key.State),
			Available:  p.Available,
			Requested:  p.Quantity,
		}
	}
	if p.Key.State == entity.StateDamaged && !damagedOutReasons[p.Reason] {
		return &domain.InvalidStateError{
			State:  string(p.Key.State),
			Reason: string(p.Reason),
			Detail: "el stock dañado solo puede darse de baja por merma",
		}
	}
	return nil
}

// CheckCapacity valida la capacidad de la ubicación para una entrada.
// capacity 0 significa sin límite.
func CheckCapacity(locationID string, capacity, current, incoming int64) error {
	if capacity <= 0 || current+incoming <= capacity {
		return nil
	}
	return &domain.CapacityExceededError{
		LocationID: locationID,
		Capacity:   capacity,
		Current:    current,
		Requested:  incoming,
	}
}
