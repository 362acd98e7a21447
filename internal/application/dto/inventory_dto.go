package dto

import "time"

// ReceiptRequest body para POST /api/inventory/receipts.
// Quantity se valida en el motor (InvalidQuantity), no aquí.
type ReceiptRequest struct {
	ProductID    string `json:"product_id" validate:"required"`
	LocationID   string `json:"location_id,omitempty"`
	State        string `json:"state,omitempty"`
	Quantity     int64  `json:"quantity"`
	Reason       string `json:"reason,omitempty"` // receipt (defecto) | return
	ReasonDetail string `json:"reason_detail,omitempty" validate:"max=500"`
	Notes        string `json:"notes,omitempty" validate:"max=1000"`
	Reference    string `json:"reference,omitempty" validate:"max=100"`
}

// IssueRequest body para POST /api/inventory/issues.
type IssueRequest struct {
	ProductID    string `json:"product_id" validate:"required"`
	LocationID   string `json:"location_id,omitempty"`
	State        string `json:"state,omitempty"`
	Quantity     int64  `json:"quantity"`
	Reason       string `json:"reason" validate:"required"`
	ReasonDetail string `json:"reason_detail,omitempty" validate:"max=500"`
	Notes        string `json:"notes,omitempty" validate:"max=1000"`
	Reference    string `json:"reference,omitempty" validate:"max=100"`
}

// AdjustmentRequest body para POST /api/inventory/adjustments.
type AdjustmentRequest struct {
	ProductID      string `json:"product_id" validate:"required"`
	LocationID     string `json:"location_id,omitempty"`
	State          string `json:"state,omitempty"`
	TargetQuantity int64  `json:"target_quantity"`
	ReasonDetail   string `json:"reason_detail,omitempty" validate:"max=500"`
	Notes          string `json:"notes,omitempty" validate:"max=1000"`
}

// TransferRequest body para POST /api/inventory/transfers.
type TransferRequest struct {
	ProductID      string `json:"product_id" validate:"required"`
	Quantity       int64  `json:"quantity"`
	FromLocationID string `json:"from_location_id" validate:"required"`
	ToLocationID   string `json:"to_location_id" validate:"required"`
	FromState      string `json:"from_state,omitempty"`
	ToState        string `json:"to_state,omitempty"`
	Reference      string `json:"reference,omitempty" validate:"max=100"`
	Notes          string `json:"notes,omitempty" validate:"max=1000"`
}

// ResetRequest body para POST /api/inventory/resets (solo administrador).
type ResetRequest struct {
	ProductID  string `json:"product_id" validate:"required"`
	LocationID string `json:"location_id,omitempty"`
	Quantity   int64  `json:"quantity"`
	Notes      string `json:"notes,omitempty" validate:"max=1000"`
}

// MovementResponse registro del ledger.
type MovementResponse struct {
	ID             string    `json:"id"`
	Seq            int64     `json:"seq"`
	Direction      string    `json:"direction"`
	ProductID      string    `json:"product_id"`
	LocationID     string    `json:"location_id"`
	State          string    `json:"state"`
	Quantity       int64     `json:"quantity"`
	QuantityBefore int64     `json:"quantity_before"`
	QuantityAfter  int64     `json:"quantity_after"`
	Reason         string    `json:"reason"`
	ReasonDetail   string    `json:"reason_detail,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	Reference      string    `json:"reference,omitempty"`
	ActorID        string    `json:"actor_id"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// AdjustmentResponse Movement es nil cuando el stock ya era el objetivo.
type AdjustmentResponse struct {
	Movement *MovementResponse `json:"movement"`
	NoOp     bool              `json:"no_op"`
}

// TransferResponse los dos registros del traslado.
type TransferResponse struct {
	Out MovementResponse `json:"out"`
	In  MovementResponse `json:"in"`
}

// ResetResponse registros compensatorios del reset.
type ResetResponse struct {
	Movements []MovementResponse `json:"movements"`
}

// QuantityResponse cantidad consultada.
type QuantityResponse struct {
	ProductID  string `json:"product_id"`
	LocationID string `json:"location_id,omitempty"`
	State      string `json:"state,omitempty"`
	Quantity   int64  `json:"quantity"`
}

// StatusResponse estado derivado del producto.
type StatusResponse struct {
	ProductID    string `json:"product_id"`
	Status       string `json:"status"`
	Total        int64  `json:"total"`
	MinimumStock int64  `json:"minimum_stock"`
}

// BreakdownItem cantidad por ubicación.
type BreakdownItem struct {
	LocationID   string `json:"location_id"`
	LocationCode string `json:"location_code"`
	Quantity     int64  `json:"quantity"`
}

// BreakdownResponse desglose por ubicación, por código ascendente.
type BreakdownResponse struct {
	ProductID string          `json:"product_id"`
	Items     []BreakdownItem `json:"items"`
}

// HistoryResponse página de historial. NextBeforeSeq > 0 indica que hay más registros.
type HistoryResponse struct {
	Items         []MovementResponse `json:"items"`
	NextBeforeSeq int64              `json:"next_before_seq,omitempty"`
}

// LowStockItemResponse producto con total <= mínimo.
type LowStockItemResponse struct {
	ProductID    string `json:"product_id"`
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Total        int64  `json:"total"`
	MinimumStock int64  `json:"minimum_stock"`
	Status       string `json:"status"`
}

// DiscrepancyResponse clave donde stock y ledger no cuadran.
type DiscrepancyResponse struct {
	ProductID   string `json:"product_id"`
	LocationID  string `json:"location_id"`
	State       string `json:"state"`
	Stored      int64  `json:"stored"`
	LedgerTotal int64  `json:"ledger_total"`
}

// VerifyResponse resultado del diagnóstico del ledger.
type VerifyResponse struct {
	Healthy           bool                  `json:"healthy"`
	KeysChecked       int                   `json:"keys_checked"`
	Discrepancies     []DiscrepancyResponse `json:"discrepancies"`
	OccupancyMismatch []string              `json:"occupancy_mismatch"`
}
