package inventory

import (
	"context"
	"iter"

	"github.com/jhoicas/almacen-ledger/internal/domain"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
)

// GetHistory devuelve los movimientos del filtro del más reciente al más antiguo.
// La secuencia es perezosa: lee páginas de HistoryPageSize a medida que se consume y se
// detiene cuando el consumidor corta la iteración o el contexto se cancela.
func (e *LedgerEngine) GetHistory(ctx context.Context, filter entity.MovementFilter) iter.Seq2[*entity.MovementRecord, error] {
	return func(yield func(*entity.MovementRecord, error) bool) {
		if filter.Reason != "" && !filter.Reason.Valid() {
			yield(nil, &domain.InvalidStateError{Reason: string(filter.Reason), Detail: "razón desconocida"})
			return
		}
		if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
			yield(nil, domain.ErrInvalidInput)
			return
		}

		page := filter
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			batch, err := e.deps.Movements.List(ctx, page, e.opts.HistoryPageSize)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, m := range batch {
				if !yield(m, nil) {
					return
				}
			}
			if len(batch) < e.opts.HistoryPageSize {
				return
			}
			page.BeforeSeq = batch[len(batch)-1].Seq
		}
	}
}

// CollectHistory consume GetHistory hasta limit registros (limit <= 0 = sin límite).
func (e *LedgerEngine) CollectHistory(ctx context.Context, filter entity.MovementFilter, limit int) ([]*entity.MovementRecord, error) {
	out := make([]*entity.MovementRecord, 0)
	for m, err := range e.GetHistory(ctx, filter) {
		if err != nil {
			return nil, err
		}
		out = append(out, m)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
