package inventory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/almacen-ledger/internal/domain"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/almacen-ledger/internal/domain/inventory"
)

// TransferInput traslado entre ubicaciones o entre estados de una misma ubicación
// (ej. liberar cuarentena: misma ubicación, FromState=quarantine, ToState=available).
type TransferInput struct {
	ProductID      string
	Quantity       int64
	FromLocationID string
	ToLocationID   string
	FromState      entity.StockState
	ToState        entity.StockState
	Reference      string // vacío = se genera TRF-<uuid>
	Notes          string
	Caller         Caller
}

// Transfer registra la salida del origen y la entrada al destino en la misma transacción:
// ambos registros se confirman juntos o ninguno, así el stock nunca queda "en tránsito".
func (e *LedgerEngine) Transfer(ctx context.Context, in TransferInput) (out, inRec *entity.MovementRecord, err error) {
	ctx, span := e.startSpan(ctx, "ledger.Transfer",
		attribute.String("product_id", in.ProductID),
		attribute.String("from_location_id", in.FromLocationID),
		attribute.String("to_location_id", in.ToLocationID),
		attribute.Int64("quantity", in.Quantity))
	defer func() { endSpan(span, err) }()

	if in.Quantity <= 0 {
		return nil, nil, &domain.InvalidQuantityError{Quantity: in.Quantity}
	}
	if in.FromLocationID == "" || in.ToLocationID == "" {
		return nil, nil, domain.ErrInvalidInput
	}
	from := entity.StockKey{ProductID: in.ProductID, LocationID: in.FromLocationID, State: in.FromState.OrDefault()}
	to := entity.StockKey{ProductID: in.ProductID, LocationID: in.ToLocationID, State: in.ToState.OrDefault()}
	if from == to {
		return nil, nil, &domain.InvalidStateError{
			State:  string(from.State),
			Reason: string(entity.ReasonTransfer),
			Detail: "origen y destino son la misma ubicación y estado",
		}
	}
	if err := e.checkCaller(ctx, in.Caller, domaininv.OpRecordMovement); err != nil {
		return nil, nil, err
	}
	product, err := e.loadProduct(ctx, in.ProductID, false)
	if err != nil {
		return nil, nil, err
	}
	src, err := e.Allocation.Resolve(ctx, product, in.FromLocationID, false)
	if err != nil {
		return nil, nil, err
	}
	dest, err := e.Allocation.Resolve(ctx, product, in.ToLocationID, true)
	if err != nil {
		return nil, nil, err
	}

	reference := in.Reference
	if reference == "" {
		reference = "TRF-" + uuid.NewString()
	}

	err = e.runTx(ctx, "transfer", func(r txRepos) error {
		if txErr := r.stock.LockProduct(ctx, in.ProductID, false); txErr != nil {
			return txErr
		}
		// Bloqueo en orden canónico para que dos traslados cruzados no se bloqueen mutuamente.
		keys := []entity.StockKey{from, to}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
		for _, k := range keys {
			if _, txErr := r.stock.GetForUpdate(ctx, k); txErr != nil {
				return txErr
			}
		}

		outDraft := movementDraft{
			Direction:     entity.DirectionOut,
			Key:           from,
			Quantity:      in.Quantity,
			Reason:        entity.ReasonTransfer,
			ReasonDetail:  "traslado hacia " + dest.Code,
			Notes:         in.Notes,
			Reference:     reference,
			ActorID:       in.Caller.ActorID,
			replayChecked: true,
		}
		inDraft := movementDraft{
			Direction:     entity.DirectionIn,
			Key:           to,
			Quantity:      in.Quantity,
			Reason:        entity.ReasonTransfer,
			ReasonDetail:  "traslado desde " + src.Code,
			Notes:         in.Notes,
			Reference:     reference,
			ActorID:       in.Caller.ActorID,
			Capacity:      dest.Capacity,
			replayChecked: true,
		}

		// Las dos patas se reconocen juntas: un reintento idéntico devuelve ambas, y una sola
		// pata previa con la referencia significa que pertenece a otra operación.
		prevOut, txErr := e.replayOf(ctx, r, outDraft)
		if txErr != nil {
			return txErr
		}
		prevIn, txErr := e.replayOf(ctx, r, inDraft)
		if txErr != nil {
			return txErr
		}
		switch {
		case prevOut != nil && prevIn != nil:
			out, inRec = prevOut, prevIn
			return nil
		case prevOut != nil || prevIn != nil:
			prev := prevOut
			if prev == nil {
				prev = prevIn
			}
			return &domain.DuplicateReferenceError{
				Reference:  reference,
				MovementID: prev.ID,
				Detail:     "la referencia ya pertenece a otro movimiento",
			}
		}

		out, txErr = e.appendTx(ctx, r, outDraft)
		if txErr != nil {
			return txErr
		}
		inRec, txErr = e.appendTx(ctx, r, inDraft)
		return txErr
	})
	if err != nil {
		return nil, nil, err
	}
	span.SetAttributes(attribute.String("reference", reference))
	return out, inRec, nil
}
