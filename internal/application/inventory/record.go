package inventory

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/almacen-ledger/internal/domain"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/almacen-ledger/internal/domain/inventory"
)

// ReceiptInput entrada de mercadería (recepción o devolución).
// LocationID vacío = ubicación por defecto; State vacío = disponible; Reason vacío = receipt.
type ReceiptInput struct {
	ProductID    string
	LocationID   string
	State        entity.StockState
	Quantity     int64
	Reason       entity.Reason
	ReasonDetail string
	Notes        string
	Reference    string
	Caller       Caller
}

// IssueInput salida de mercadería (venta, merma, uso interno...).
type IssueInput struct {
	ProductID    string
	LocationID   string
	State        entity.StockState
	Quantity     int64
	Reason       entity.Reason
	ReasonDetail string
	Notes        string
	Reference    string
	Caller       Caller
}

// AdjustmentInput fija el stock de una clave en TargetQuantity.
type AdjustmentInput struct {
	ProductID      string
	LocationID     string
	State          entity.StockState
	TargetQuantity int64
	ReasonDetail   string
	Notes          string
	Caller         Caller
}

// ResetInput deja todo el stock del producto en Quantity, en una sola ubicación disponible.
type ResetInput struct {
	ProductID  string
	LocationID string
	Quantity   int64
	Notes      string
	Caller     Caller
}

// RecordReceipt registra una entrada y devuelve el registro con la cantidad posterior.
func (e *LedgerEngine) RecordReceipt(ctx context.Context, in ReceiptInput) (rec *entity.MovementRecord, err error) {
	ctx, span := e.startSpan(ctx, "ledger.RecordReceipt",
		attribute.String("product_id", in.ProductID),
		attribute.Int64("quantity", in.Quantity))
	defer func() { endSpan(span, err) }()

	reason := in.Reason
	if reason == "" {
		reason = entity.ReasonReceipt
	}
	if reason != entity.ReasonReceipt && reason != entity.ReasonReturn {
		return nil, &domain.InvalidStateError{Reason: string(reason), Detail: "una entrada solo admite recepción o devolución"}
	}
	if in.Quantity <= 0 {
		return nil, &domain.InvalidQuantityError{Quantity: in.Quantity}
	}
	if err := e.checkCaller(ctx, in.Caller, domaininv.OpRecordMovement); err != nil {
		return nil, err
	}
	product, err := e.loadProduct(ctx, in.ProductID, true)
	if err != nil {
		return nil, err
	}
	loc, err := e.Allocation.Resolve(ctx, product, in.LocationID, true)
	if err != nil {
		return nil, err
	}

	draft := movementDraft{
		Direction:    entity.DirectionIn,
		Key:          entity.StockKey{ProductID: product.ID, LocationID: loc.ID, State: in.State.OrDefault()},
		Quantity:     in.Quantity,
		Reason:       reason,
		ReasonDetail: in.ReasonDetail,
		Notes:        in.Notes,
		Reference:    in.Reference,
		ActorID:      in.Caller.ActorID,
		Capacity:     loc.Capacity,
	}
	err = e.runTx(ctx, "receipt", func(r txRepos) error {
		if txErr := r.stock.LockProduct(ctx, product.ID, false); txErr != nil {
			return txErr
		}
		var txErr error
		rec, txErr = e.appendTx(ctx, r, draft)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("movement_id", rec.ID), attribute.Int64("quantity_after", rec.QuantityAfter))
	return rec, nil
}

// RecordIssue registra una salida. Reason es obligatorio y debe ser de salida.
func (e *LedgerEngine) RecordIssue(ctx context.Context, in IssueInput) (rec *entity.MovementRecord, err error) {
	ctx, span := e.startSpan(ctx, "ledger.RecordIssue",
		attribute.String("product_id", in.ProductID),
		attribute.String("reason", string(in.Reason)),
		attribute.Int64("quantity", in.Quantity))
	defer func() { endSpan(span, err) }()

	if in.Quantity <= 0 {
		return nil, &domain.InvalidQuantityError{Quantity: in.Quantity}
	}
	if !in.Reason.AllowsDirection(entity.DirectionOut) || in.Reason == entity.ReasonReset {
		return nil, &domain.InvalidStateError{State: string(in.State.OrDefault()), Reason: string(in.Reason), Detail: "razón no válida para una salida"}
	}
	if err := e.checkCaller(ctx, in.Caller, domaininv.OpRecordMovement); err != nil {
		return nil, err
	}
	product, err := e.loadProduct(ctx, in.ProductID, false)
	if err != nil {
		return nil, err
	}
	loc, err := e.Allocation.Resolve(ctx, product, in.LocationID, false)
	if err != nil {
		return nil, err
	}

	draft := movementDraft{
		Direction:    entity.DirectionOut,
		Key:          entity.StockKey{ProductID: product.ID, LocationID: loc.ID, State: in.State.OrDefault()},
		Quantity:     in.Quantity,
		Reason:       in.Reason,
		ReasonDetail: in.ReasonDetail,
		Notes:        in.Notes,
		Reference:    in.Reference,
		ActorID:      in.Caller.ActorID,
	}
	err = e.runTx(ctx, "issue", func(r txRepos) error {
		if txErr := r.stock.LockProduct(ctx, product.ID, false); txErr != nil {
			return txErr
		}
		var txErr error
		rec, txErr = e.appendTx(ctx, r, draft)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("movement_id", rec.ID), attribute.Int64("quantity_after", rec.QuantityAfter))
	return rec, nil
}

// RecordManualAdjustment calcula delta = objetivo - actual dentro de la transacción y registra
// un único IN u OUT con razón manual-adjustment. Devuelve nil sin error cuando delta == 0.
func (e *LedgerEngine) RecordManualAdjustment(ctx context.Context, in AdjustmentInput) (rec *entity.MovementRecord, err error) {
	ctx, span := e.startSpan(ctx, "ledger.RecordManualAdjustment",
		attribute.String("product_id", in.ProductID),
		attribute.Int64("target_quantity", in.TargetQuantity))
	defer func() { endSpan(span, err) }()

	if in.TargetQuantity < 0 {
		return nil, &domain.InvalidQuantityError{Quantity: in.TargetQuantity}
	}
	if err := e.checkCaller(ctx, in.Caller, domaininv.OpRecordMovement); err != nil {
		return nil, err
	}
	product, err := e.loadProduct(ctx, in.ProductID, false)
	if err != nil {
		return nil, err
	}
	loc, err := e.Allocation.Resolve(ctx, product, in.LocationID, false)
	if err != nil {
		return nil, err
	}
	key := entity.StockKey{ProductID: product.ID, LocationID: loc.ID, State: in.State.OrDefault()}

	err = e.runTx(ctx, "manual_adjustment", func(r txRepos) error {
		rec = nil
		if txErr := r.stock.LockProduct(ctx, product.ID, false); txErr != nil {
			return txErr
		}
		level, txErr := r.stock.GetForUpdate(ctx, key)
		if txErr != nil {
			return txErr
		}
		dir, qty, ok := domaininv.AdjustmentFor(level.Quantity, in.TargetQuantity)
		if !ok {
			return nil
		}
		if dir == entity.DirectionIn && !product.Active {
			return &domain.InvalidStateError{Reason: string(entity.ReasonManualAdjustment), Detail: "producto inactivo: " + product.SKU}
		}
		rec, txErr = e.appendTx(ctx, r, movementDraft{
			Direction:    dir,
			Key:          key,
			Quantity:     qty,
			Reason:       entity.ReasonManualAdjustment,
			ReasonDetail: in.ReasonDetail,
			Notes:        in.Notes,
			ActorID:      in.Caller.ActorID,
			Capacity:     loc.Capacity,
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool("noop", rec == nil))
	return rec, nil
}

// ResetProduct corrige el inventario de un producto: vacía cada clave con stock mediante
// salidas reset y, si Quantity > 0, registra una entrada reset en la ubicación resuelta.
// Todo en una transacción; el historial previo se conserva.
func (e *LedgerEngine) ResetProduct(ctx context.Context, in ResetInput) (recs []*entity.MovementRecord, err error) {
	ctx, span := e.startSpan(ctx, "ledger.ResetProduct",
		attribute.String("product_id", in.ProductID),
		attribute.Int64("quantity", in.Quantity))
	defer func() { endSpan(span, err) }()

	if in.Quantity < 0 {
		return nil, &domain.InvalidQuantityError{Quantity: in.Quantity}
	}
	if err := e.checkCaller(ctx, in.Caller, domaininv.OpReset); err != nil {
		return nil, err
	}
	product, err := e.loadProduct(ctx, in.ProductID, in.Quantity > 0)
	if err != nil {
		return nil, err
	}
	var target *entity.Location
	if in.Quantity > 0 {
		if target, err = e.Allocation.Resolve(ctx, product, in.LocationID, true); err != nil {
			return nil, err
		}
	}

	err = e.runTx(ctx, "reset", func(r txRepos) error {
		recs = nil
		// Exclusivo: ninguna entrada concurrente crea una clave nueva entre el listado y el commit.
		if txErr := r.stock.LockProduct(ctx, product.ID, true); txErr != nil {
			return txErr
		}
		levels, txErr := r.stock.ListByProduct(ctx, product.ID)
		if txErr != nil {
			return txErr
		}
		sort.Slice(levels, func(i, j int) bool { return levels[i].StockKey.Less(levels[j].StockKey) })
		for _, l := range levels {
			locked, txErr := r.stock.GetForUpdate(ctx, l.StockKey)
			if txErr != nil {
				return txErr
			}
			if locked.Quantity <= 0 {
				continue
			}
			rec, txErr := e.appendTx(ctx, r, movementDraft{
				Direction:    entity.DirectionOut,
				Key:          locked.StockKey,
				Quantity:     locked.Quantity,
				Reason:       entity.ReasonReset,
				ReasonDetail: "reset manual de inventario",
				Notes:        in.Notes,
				ActorID:      in.Caller.ActorID,
			})
			if txErr != nil {
				return txErr
			}
			recs = append(recs, rec)
		}
		if target == nil {
			return nil
		}
		rec, txErr := e.appendTx(ctx, r, movementDraft{
			Direction:    entity.DirectionIn,
			Key:          entity.StockKey{ProductID: product.ID, LocationID: target.ID, State: entity.StateAvailable},
			Quantity:     in.Quantity,
			Reason:       entity.ReasonReset,
			ReasonDetail: "reset manual de inventario",
			Notes:        in.Notes,
			ActorID:      in.Caller.ActorID,
			Capacity:     target.Capacity,
		})
		if txErr != nil {
			return txErr
		}
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info().
		Str("product_id", product.ID).
		Str("actor_id", in.Caller.ActorID).
		Int("movements", len(recs)).
		Int64("quantity", in.Quantity).
		Msg("inventario de producto reseteado")
	return recs, nil
}
