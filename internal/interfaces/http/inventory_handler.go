package http

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/almacen-ledger/internal/application/dto"
	"github.com/jhoicas/almacen-ledger/internal/application/inventory"
	"github.com/jhoicas/almacen-ledger/internal/domain"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
	"github.com/jhoicas/almacen-ledger/pkg/logger"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// InventoryHandler maneja las peticiones HTTP del ledger de inventario (protegido).
type InventoryHandler struct {
	engine *inventory.LedgerEngine
	log    *logger.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(engine *inventory.LedgerEngine, log *logger.Logger) *InventoryHandler {
	return &InventoryHandler{engine: engine, log: log}
}

// RecordReceipt godoc
// @Summary      Registrar entrada (recepción o devolución)
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReceiptRequest  true  "product_id, quantity; location_id vacío = ubicación por defecto"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/inventory/receipts [post]
func (h *InventoryHandler) RecordReceipt(c *fiber.Ctx) error {
	var in dto.ReceiptRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	state, err := parseState(in.State)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var reason entity.Reason
	if in.Reason != "" {
		if reason, err = parseReason(in.Reason); err != nil {
			return writeError(c, h.log, err)
		}
	}
	rec, err := h.engine.RecordReceipt(c.UserContext(), inventory.ReceiptInput{
		ProductID:    in.ProductID,
		LocationID:   in.LocationID,
		State:        state,
		Quantity:     in.Quantity,
		Reason:       reason,
		ReasonDetail: in.ReasonDetail,
		Notes:        in.Notes,
		Reference:    in.Reference,
		Caller:       callerFrom(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(rec))
}

// RecordIssue godoc
// @Summary      Registrar salida (venta, merma, uso interno)
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.IssueRequest  true  "product_id, quantity, reason"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/inventory/issues [post]
func (h *InventoryHandler) RecordIssue(c *fiber.Ctx) error {
	var in dto.IssueRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	state, err := parseState(in.State)
	if err != nil {
		return writeError(c, h.log, err)
	}
	reason, err := parseReason(in.Reason)
	if err != nil {
		return writeError(c, h.log, err)
	}
	rec, err := h.engine.RecordIssue(c.UserContext(), inventory.IssueInput{
		ProductID:    in.ProductID,
		LocationID:   in.LocationID,
		State:        state,
		Quantity:     in.Quantity,
		Reason:       reason,
		ReasonDetail: in.ReasonDetail,
		Notes:        in.Notes,
		Reference:    in.Reference,
		Caller:       callerFrom(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(rec))
}

// RecordAdjustment godoc
// @Summary      Ajuste manual a una cantidad objetivo
// @Description  Emite un único IN u OUT por la diferencia. Sin diferencia no registra nada (no_op=true, 200).
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustmentRequest  true  "product_id, target_quantity"
// @Success      200   {object}  dto.AdjustmentResponse
// @Success      201   {object}  dto.AdjustmentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments [post]
func (h *InventoryHandler) RecordAdjustment(c *fiber.Ctx) error {
	var in dto.AdjustmentRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	state, err := parseState(in.State)
	if err != nil {
		return writeError(c, h.log, err)
	}
	rec, err := h.engine.RecordManualAdjustment(c.UserContext(), inventory.AdjustmentInput{
		ProductID:      in.ProductID,
		LocationID:     in.LocationID,
		State:          state,
		TargetQuantity: in.TargetQuantity,
		ReasonDetail:   in.ReasonDetail,
		Notes:          in.Notes,
		Caller:         callerFrom(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	if rec == nil {
		return c.Status(fiber.StatusOK).JSON(dto.AdjustmentResponse{NoOp: true})
	}
	out := toMovementResponse(rec)
	return c.Status(fiber.StatusCreated).JSON(dto.AdjustmentResponse{Movement: &out})
}

// Transfer godoc
// @Summary      Traslado entre ubicaciones o estados
// @Description  OUT en origen + IN en destino en una sola transacción.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "product_id, quantity, from_location_id, to_location_id"
// @Success      201   {object}  dto.TransferResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers [post]
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	fromState, err := parseState(in.FromState)
	if err != nil {
		return writeError(c, h.log, err)
	}
	toState, err := parseState(in.ToState)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out, inRec, err := h.engine.Transfer(c.UserContext(), inventory.TransferInput{
		ProductID:      in.ProductID,
		Quantity:       in.Quantity,
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		FromState:      fromState,
		ToState:        toState,
		Reference:      in.Reference,
		Notes:          in.Notes,
		Caller:         callerFrom(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TransferResponse{
		Out: toMovementResponse(out),
		In:  toMovementResponse(inRec),
	})
}

// Reset godoc
// @Summary      Reiniciar el stock de un producto (solo administrador)
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ResetRequest  true  "product_id, quantity final"
// @Success      201   {object}  dto.ResetResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/inventory/resets [post]
func (h *InventoryHandler) Reset(c *fiber.Ctx) error {
	var in dto.ResetRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	recs, err := h.engine.ResetProduct(c.UserContext(), inventory.ResetInput{
		ProductID:  in.ProductID,
		LocationID: in.LocationID,
		Quantity:   in.Quantity,
		Notes:      in.Notes,
		Caller:     callerFrom(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	items := make([]dto.MovementResponse, 0, len(recs))
	for _, r := range recs {
		items = append(items, toMovementResponse(r))
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ResetResponse{Movements: items})
}

// GetQuantity godoc
// @Summary      Cantidad en stock
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id           path   string  true   "Product ID"
// @Param        location_id  query  string  false  "Ubicación (vacío = todas)"
// @Param        state        query  string  false  "Estado (vacío = todos)"
// @Success      200  {object}  dto.QuantityResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/products/{id}/quantity [get]
func (h *InventoryHandler) GetQuantity(c *fiber.Ctx) error {
	productID := c.Params("id")
	locationID := c.Query("location_id")
	var state *entity.StockState
	if raw := c.Query("state"); raw != "" {
		s, err := parseState(raw)
		if err != nil {
			return writeError(c, h.log, err)
		}
		state = &s
	}
	qty, err := h.engine.GetQuantity(c.UserContext(), productID, locationID, state)
	if err != nil {
		return writeError(c, h.log, err)
	}
	resp := dto.QuantityResponse{ProductID: productID, LocationID: locationID, Quantity: qty}
	if state != nil {
		resp.State = string(*state)
	}
	return c.JSON(resp)
}

// GetStatus godoc
// @Summary      Estado derivado del producto (out_of_stock, low_stock, in_stock)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "Product ID"
// @Success      200  {object}  dto.StatusResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/products/{id}/status [get]
func (h *InventoryHandler) GetStatus(c *fiber.Ctx) error {
	rep, err := h.engine.GetStatus(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.StatusResponse{
		ProductID:    rep.ProductID,
		Status:       string(rep.Status),
		Total:        rep.Total,
		MinimumStock: rep.MinimumStock,
	})
}

// GetBreakdown godoc
// @Summary      Desglose del stock por ubicación
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "Product ID"
// @Success      200  {object}  dto.BreakdownResponse
// @Router       /api/inventory/products/{id}/breakdown [get]
func (h *InventoryHandler) GetBreakdown(c *fiber.Ctx) error {
	productID := c.Params("id")
	list, err := h.engine.GetBreakdown(c.UserContext(), productID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	items := make([]dto.BreakdownItem, 0, len(list))
	for _, lq := range list {
		items = append(items, dto.BreakdownItem{LocationID: lq.LocationID, LocationCode: lq.LocationCode, Quantity: lq.Quantity})
	}
	return c.JSON(dto.BreakdownResponse{ProductID: productID, Items: items})
}

// ListMovements godoc
// @Summary      Historial de movimientos (más reciente primero)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id   query  string  false  "Producto"
// @Param        location_id  query  string  false  "Ubicación"
// @Param        reason       query  string  false  "Razón"
// @Param        from         query  string  false  "Desde (RFC3339 o YYYY-MM-DD)"
// @Param        to           query  string  false  "Hasta (RFC3339 o YYYY-MM-DD, día inclusive)"
// @Param        limit        query  int     false  "Máximo de registros (defecto 50, máx 500)"
// @Param        before_seq   query  int     false  "Cursor: registros anteriores a este seq"
// @Success      200  {object}  dto.HistoryResponse
// @Router       /api/inventory/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	filter := entity.MovementFilter{
		ProductID:  c.Query("product_id"),
		LocationID: c.Query("location_id"),
	}
	if raw := c.Query("reason"); raw != "" {
		r, err := parseReason(raw)
		if err != nil {
			return writeError(c, h.log, err)
		}
		filter.Reason = r
	}
	var err error
	if filter.From, err = parseTimeQuery(c.Query("from"), false); err != nil {
		return writeError(c, h.log, err)
	}
	if filter.To, err = parseTimeQuery(c.Query("to"), true); err != nil {
		return writeError(c, h.log, err)
	}
	if raw := c.Query("before_seq"); raw != "" {
		seq, convErr := strconv.ParseInt(raw, 10, 64)
		if convErr != nil || seq < 0 {
			return writeError(c, h.log, domain.ErrInvalidInput)
		}
		filter.BeforeSeq = seq
	}
	limit := c.QueryInt("limit", defaultHistoryLimit)
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	// Se pide uno extra para saber si queda otra página.
	recs, err := h.engine.CollectHistory(c.UserContext(), filter, limit+1)
	if err != nil {
		return writeError(c, h.log, err)
	}
	resp := dto.HistoryResponse{Items: make([]dto.MovementResponse, 0, len(recs))}
	if len(recs) > limit {
		recs = recs[:limit]
		resp.NextBeforeSeq = recs[limit-1].Seq
	}
	for _, r := range recs {
		resp.Items = append(resp.Items, toMovementResponse(r))
	}
	return c.JSON(resp)
}

// LowStock godoc
// @Summary      Productos con stock bajo o agotado
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.LowStockItemResponse
// @Router       /api/inventory/low-stock [get]
func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	items, err := h.engine.LowStock(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]dto.LowStockItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, dto.LowStockItemResponse{
			ProductID:    it.Product.ID,
			SKU:          it.Product.SKU,
			Name:         it.Product.Name,
			Total:        it.Total,
			MinimumStock: it.Product.MinimumStock,
			Status:       string(it.Status),
		})
	}
	return c.JSON(out)
}

// Verify godoc
// @Summary      Diagnóstico: stock guardado vs. suma del ledger
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.VerifyResponse
// @Router       /api/inventory/verify [get]
func (h *InventoryHandler) Verify(c *fiber.Ctx) error {
	rep, err := h.engine.Verify(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := dto.VerifyResponse{
		Healthy:           rep.Healthy(),
		KeysChecked:       rep.KeysChecked,
		Discrepancies:     make([]dto.DiscrepancyResponse, 0, len(rep.Discrepancies)),
		OccupancyMismatch: make([]string, 0, len(rep.Occupancy)),
	}
	for _, d := range rep.Discrepancies {
		out.Discrepancies = append(out.Discrepancies, dto.DiscrepancyResponse{
			ProductID:   d.Key.ProductID,
			LocationID:  d.Key.LocationID,
			State:       string(d.Key.State),
			Stored:      d.Stored,
			LedgerTotal: d.LedgerTotal,
		})
	}
	for _, o := range rep.Occupancy {
		out.OccupancyMismatch = append(out.OccupancyMismatch, o.Code)
	}
	return c.JSON(out)
}

func parseState(raw string) (entity.StockState, error) {
	s, ok := entity.ParseStockState(raw)
	if !ok {
		return "", &domain.InvalidStateError{State: raw, Detail: "estado de stock desconocido"}
	}
	return s, nil
}

func parseReason(raw string) (entity.Reason, error) {
	r, ok := entity.ParseReason(raw)
	if !ok {
		return "", &domain.InvalidStateError{Reason: raw, Detail: "razón de movimiento desconocida"}
	}
	return r, nil
}

// parseTimeQuery acepta RFC3339 o fecha sola. Con endOfDay una fecha sola cubre el día completo.
func parseTimeQuery(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, domain.ErrInvalidInput
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Microsecond)
	}
	return &t, nil
}

func toMovementResponse(m *entity.MovementRecord) dto.MovementResponse {
	return dto.MovementResponse{
		ID:             m.ID,
		Seq:            m.Seq,
		Direction:      string(m.Direction),
		ProductID:      m.ProductID,
		LocationID:     m.LocationID,
		State:          string(m.State),
		Quantity:       m.Quantity,
		QuantityBefore: m.QuantityBefore,
		QuantityAfter:  m.QuantityAfter,
		Reason:         string(m.Reason),
		ReasonDetail:   m.ReasonDetail,
		Notes:          m.Notes,
		Reference:      m.Reference,
		ActorID:        m.ActorID,
		OccurredAt:     m.OccurredAt,
	}
}
