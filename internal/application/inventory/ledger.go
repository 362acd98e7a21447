package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/almacen-ledger/internal/domain"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/almacen-ledger/internal/domain/inventory"
)

// movementDraft movimiento aún no admitido en el ledger.
type movementDraft struct {
	Direction     entity.Direction
	Key           entity.StockKey
	Quantity      int64
	Reason        entity.Reason
	ReasonDetail  string
	Notes         string
	Reference     string
	ActorID       string
	Capacity      int64 // capacidad de la ubicación destino (solo entradas)
	replayChecked bool  // la referencia ya se resolvió antes (traslados)
}

// appendTx es el Append del ledger: bloquea la clave, aplica el Stock Guard sobre la cantidad
// leída bajo bloqueo, ajusta el StockLevel, persiste el registro inmutable y recalcula la
// ocupación de la ubicación. Debe ejecutarse dentro de la transacción del llamador, después de
// tomar el bloqueo del producto.
func (e *LedgerEngine) appendTx(ctx context.Context, r txRepos, d movementDraft) (*entity.MovementRecord, error) {
	level, err := r.stock.GetForUpdate(ctx, d.Key)
	if err != nil {
		return nil, err
	}

	if !d.replayChecked {
		prev, err := e.replayOf(ctx, r, d)
		if err != nil {
			return nil, err
		}
		if prev != nil {
			return prev, nil
		}
	}

	if err := domaininv.Guard(domaininv.Proposal{
		Direction: d.Direction,
		Reason:    d.Reason,
		Key:       d.Key,
		Quantity:  d.Quantity,
		Available: level.Quantity,
	}); err != nil {
		return nil, err
	}

	if d.Direction == entity.DirectionIn && d.Capacity > 0 {
		if err := e.checkCapacity(ctx, r, d); err != nil {
			return nil, err
		}
	}

	now := e.clock.Now()
	before := level.Quantity
	level.Quantity = before + d.Direction.Sign()*d.Quantity
	level.UpdatedAt = now
	if err := r.stock.Upsert(ctx, level); err != nil {
		return nil, err
	}

	rec := &entity.MovementRecord{
		Direction:      d.Direction,
		ProductID:      d.Key.ProductID,
		LocationID:     d.Key.LocationID,
		State:          d.Key.State,
		Quantity:       d.Quantity,
		QuantityBefore: before,
		QuantityAfter:  level.Quantity,
		Reason:         d.Reason,
		ReasonDetail:   d.ReasonDetail,
		Notes:          d.Notes,
		Reference:      d.Reference,
		ActorID:        d.ActorID,
		OccurredAt:     now,
	}
	if err := r.movements.Create(ctx, rec); err != nil {
		return nil, err
	}
	if err := r.locations.RefreshOccupancy(ctx, d.Key.LocationID); err != nil {
		return nil, err
	}
	return rec, nil
}

// replayOf busca un movimiento previo con la misma referencia, clave y dirección. Solo un
// reintento idéntico (razón, cantidad y detalle) devuelve el registro existente; cualquier otro
// contenido es una referencia duplicada y no pasa al Stock Guard ni al ledger.
func (e *LedgerEngine) replayOf(ctx context.Context, r txRepos, d movementDraft) (*entity.MovementRecord, error) {
	if d.Reference == "" {
		return nil, nil
	}
	prev, err := r.movements.FindByReference(ctx, d.Reference, d.Key, d.Direction)
	if err != nil || prev == nil {
		return nil, err
	}
	if prev.Reason != d.Reason || prev.Quantity != d.Quantity || prev.ReasonDetail != d.ReasonDetail {
		return nil, &domain.DuplicateReferenceError{
			Reference:  d.Reference,
			MovementID: prev.ID,
			Detail:     fmt.Sprintf("registrado como %s de %d unidades", prev.Reason, prev.Quantity),
		}
	}
	e.log.Info().
		Str("reference", d.Reference).
		Str("movement_id", prev.ID).
		Msg("movimiento ya registrado con la misma referencia")
	return prev, nil
}

// checkCapacity suma el stock de la ubicación (todas las claves) y aplica la política configurada.
func (e *LedgerEngine) checkCapacity(ctx context.Context, r txRepos, d movementDraft) error {
	// Consultiva: lectura fuera de la tx, sin registrar lecturas sobre claves de otros productos.
	stock := e.deps.Stock
	if e.opts.StrictCapacity {
		if err := r.locations.LockForCapacity(ctx, d.Key.LocationID); err != nil {
			return err
		}
		stock = r.stock
	}
	levels, err := stock.ListByLocation(ctx, d.Key.LocationID)
	if err != nil {
		return err
	}
	var current int64
	for _, l := range levels {
		current += l.Quantity
	}
	err = domaininv.CheckCapacity(d.Key.LocationID, d.Capacity, current, d.Quantity)
	if err == nil {
		return nil
	}
	if e.opts.StrictCapacity {
		return err
	}
	e.log.Warn().
		Str("location_id", d.Key.LocationID).
		Int64("capacity", d.Capacity).
		Int64("current", current).
		Int64("incoming", d.Quantity).
		Msg("capacidad de ubicación superada (política consultiva)")
	return nil
}
