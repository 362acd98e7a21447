package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/almacen-ledger/internal/application/dto"
	"github.com/jhoicas/almacen-ledger/internal/application/inventory"
	"github.com/jhoicas/almacen-ledger/internal/application/usecase"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
	"github.com/jhoicas/almacen-ledger/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/almacen-ledger/internal/interfaces/http"
)

type testServer struct {
	app   *fiber.App
	clerk string
	admin string
	view  string
}

const (
	prodID = "prod-1"
	locA   = "loc-a"
	locB   = "loc-b"
)

// fakeIdempotency implementación en proceso del store de claves.
type fakeIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (f *fakeIdempotency) Reserve(_ context.Context, key string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeIdempotency) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
	return nil
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.LocationRepository().Create(ctx, &entity.Location{ID: locA, Code: "A-01-1", Active: true}))
	require.NoError(t, store.LocationRepository().Create(ctx, &entity.Location{ID: locB, Code: "B-02-1", Active: true}))
	require.NoError(t, store.ProductRepository().Create(ctx, &entity.Product{
		ID: prodID, SKU: "SKU-001", Name: "Tornillo", MinimumStock: 5, Active: true,
	}))
	for id, role := range map[string]string{
		"act-alm": entity.RoleAlmacenero,
		"act-adm": entity.RoleAdministrador,
		"act-con": entity.RoleConsultor,
	} {
		require.NoError(t, store.ActorRepository().Create(ctx, &entity.Actor{ID: id, Name: id, Role: role, Active: true}))
	}

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Engine:         inventory.NewLedgerEngine(store.Deps(), inventory.Options{}),
		ProductUC:      usecase.NewProductUseCase(store.ProductRepository(), store.LocationRepository()),
		LocationUC:     usecase.NewLocationUseCase(store.LocationRepository()),
		JWTSecret:      testJWTSecret,
		Idempotency:    &fakeIdempotency{keys: make(map[string]bool)},
		IdempotencyTTL: time.Minute,
	})
	return &testServer{
		app:   app,
		clerk: bearer(t, "act-alm", entity.RoleAlmacenero),
		admin: bearer(t, "act-adm", entity.RoleAdministrador),
		view:  bearer(t, "act-con", entity.RoleConsultor),
	}
}

func (s *testServer) do(t *testing.T, method, path, auth string, body any, headers ...string) (*http.Response, []byte) {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", auth)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func (s *testServer) quantity(t *testing.T, query string) int64 {
	t.Helper()
	resp, body := s.do(t, http.MethodGet, "/api/inventory/products/"+prodID+"/quantity"+query, s.view, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out dto.QuantityResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out.Quantity
}

func decodeError(t *testing.T, body []byte) dto.ErrorResponse {
	t.Helper()
	var out dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestInventoryHTTP_RecepcionYSalidaInsuficiente(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodPost, "/api/inventory/receipts", s.clerk,
		dto.ReceiptRequest{ProductID: prodID, LocationID: locA, Quantity: 10})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var mov dto.MovementResponse
	require.NoError(t, json.Unmarshal(body, &mov))
	assert.Equal(t, "IN", mov.Direction)
	assert.Equal(t, "receipt", mov.Reason)
	assert.Equal(t, int64(10), mov.QuantityAfter)
	assert.Equal(t, "act-alm", mov.ActorID)

	resp, body = s.do(t, http.MethodPost, "/api/inventory/issues", s.clerk,
		dto.IssueRequest{ProductID: prodID, LocationID: locA, Quantity: 15, Reason: "sale"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	e := decodeError(t, body)
	assert.Equal(t, "INSUFFICIENT_STOCK", e.Code)
	assert.EqualValues(t, 10, e.Details["available"])
	assert.EqualValues(t, 15, e.Details["requested"])

	assert.Equal(t, int64(10), s.quantity(t, "?location_id="+locA))

	resp, body = s.do(t, http.MethodGet, "/api/inventory/products/"+prodID+"/status", s.view, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st dto.StatusResponse
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, "in_stock", st.Status)
}

func TestInventoryHTTP_Errores(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/inventory/receipts", s.clerk,
		dto.ReceiptRequest{ProductID: prodID, LocationID: locA, State: "cuarentena", Quantity: 3})

	tests := []struct {
		name   string
		path   string
		auth   string
		body   any
		status int
		code   string
	}{
		{"cantidad cero", "/api/inventory/receipts", s.clerk,
			dto.ReceiptRequest{ProductID: prodID, Quantity: 0}, http.StatusBadRequest, "INVALID_QUANTITY"},
		{"producto desconocido", "/api/inventory/receipts", s.clerk,
			dto.ReceiptRequest{ProductID: "nope", Quantity: 1}, http.StatusNotFound, "NOT_FOUND"},
		{"estado desconocido", "/api/inventory/receipts", s.clerk,
			dto.ReceiptRequest{ProductID: prodID, State: "vencido", Quantity: 1}, http.StatusUnprocessableEntity, "INVALID_STATE"},
		{"venta desde cuarentena", "/api/inventory/issues", s.clerk,
			dto.IssueRequest{ProductID: prodID, LocationID: locA, State: "quarantine", Quantity: 1, Reason: "sale"},
			http.StatusUnprocessableEntity, "INVALID_STATE"},
		{"razón desconocida", "/api/inventory/issues", s.clerk,
			dto.IssueRequest{ProductID: prodID, Quantity: 1, Reason: "regalo"}, http.StatusUnprocessableEntity, "INVALID_STATE"},
		{"sin product_id", "/api/inventory/receipts", s.clerk,
			dto.ReceiptRequest{Quantity: 1}, http.StatusBadRequest, "VALIDATION"},
		{"consultor no registra", "/api/inventory/receipts", s.view,
			dto.ReceiptRequest{ProductID: prodID, Quantity: 1}, http.StatusForbidden, "FORBIDDEN"},
		{"almacenero no resetea", "/api/inventory/resets", s.clerk,
			dto.ResetRequest{ProductID: prodID}, http.StatusForbidden, "FORBIDDEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := s.do(t, http.MethodPost, tt.path, tt.auth, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
			assert.Equal(t, tt.code, decodeError(t, body).Code)
		})
	}
	assert.Equal(t, int64(3), s.quantity(t, ""), "ningún rechazo modifica el stock")
}

func TestInventoryHTTP_TrasladoYDesglose(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/inventory/receipts", s.clerk, dto.ReceiptRequest{ProductID: prodID, LocationID: locA, Quantity: 10})

	resp, body := s.do(t, http.MethodPost, "/api/inventory/transfers", s.clerk, dto.TransferRequest{
		ProductID: prodID, Quantity: 4, FromLocationID: locA, ToLocationID: locB,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var tr dto.TransferResponse
	require.NoError(t, json.Unmarshal(body, &tr))
	assert.Equal(t, "OUT", tr.Out.Direction)
	assert.Equal(t, "IN", tr.In.Direction)
	assert.Equal(t, "transfer", tr.In.Reason)
	assert.Equal(t, tr.Out.Reference, tr.In.Reference)

	assert.Equal(t, int64(6), s.quantity(t, "?location_id="+locA))
	assert.Equal(t, int64(4), s.quantity(t, "?location_id="+locB))

	resp, body = s.do(t, http.MethodGet, "/api/inventory/products/"+prodID+"/breakdown", s.view, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bd dto.BreakdownResponse
	require.NoError(t, json.Unmarshal(body, &bd))
	require.Len(t, bd.Items, 2)
	assert.Equal(t, "A-01-1", bd.Items[0].LocationCode)
	assert.Equal(t, "B-02-1", bd.Items[1].LocationCode)
}

func TestInventoryHTTP_AjusteSinCambio(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/inventory/receipts", s.clerk, dto.ReceiptRequest{ProductID: prodID, LocationID: locA, Quantity: 7})

	resp, body := s.do(t, http.MethodPost, "/api/inventory/adjustments", s.clerk,
		dto.AdjustmentRequest{ProductID: prodID, LocationID: locA, TargetQuantity: 7})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var adj dto.AdjustmentResponse
	require.NoError(t, json.Unmarshal(body, &adj))
	assert.True(t, adj.NoOp)
	assert.Nil(t, adj.Movement)

	resp, body = s.do(t, http.MethodPost, "/api/inventory/adjustments", s.clerk,
		dto.AdjustmentRequest{ProductID: prodID, LocationID: locA, TargetQuantity: 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &adj))
	require.NotNil(t, adj.Movement)
	assert.Equal(t, "OUT", adj.Movement.Direction)
	assert.Equal(t, int64(5), adj.Movement.Quantity)
	assert.Equal(t, "manual-adjustment", adj.Movement.Reason)
}

func TestInventoryHTTP_HistorialPaginado(t *testing.T) {
	s := newTestServer(t)
	for _, q := range []int64{1, 2, 3} {
		resp, body := s.do(t, http.MethodPost, "/api/inventory/receipts", s.clerk,
			dto.ReceiptRequest{ProductID: prodID, LocationID: locA, Quantity: q})
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	}

	resp, body := s.do(t, http.MethodGet, "/api/inventory/movements?product_id="+prodID+"&limit=2", s.view, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var page1 dto.HistoryResponse
	require.NoError(t, json.Unmarshal(body, &page1))
	require.Len(t, page1.Items, 2)
	assert.Equal(t, int64(3), page1.Items[0].Quantity, "más reciente primero")
	assert.Equal(t, int64(2), page1.Items[1].Quantity)
	require.NotZero(t, page1.NextBeforeSeq)

	resp, body = s.do(t, http.MethodGet, "/api/inventory/movements?product_id="+prodID+"&limit=2&before_seq="+
		strconv.FormatInt(page1.NextBeforeSeq, 10), s.view, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var page2 dto.HistoryResponse
	require.NoError(t, json.Unmarshal(body, &page2))
	require.Len(t, page2.Items, 1)
	assert.Equal(t, int64(1), page2.Items[0].Quantity)
	assert.Zero(t, page2.NextBeforeSeq)

	resp, _ = s.do(t, http.MethodGet, "/api/inventory/movements?from=ayer", s.view, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInventoryHTTP_IdempotencyKey(t *testing.T) {
	s := newTestServer(t)
	req := dto.ReceiptRequest{ProductID: prodID, LocationID: locA, Quantity: 5}

	resp, _ := s.do(t, http.MethodPost, "/api/inventory/receipts", s.clerk, req, apphttp.HeaderIdempotencyKey, "rec-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, body := s.do(t, http.MethodPost, "/api/inventory/receipts", s.clerk, req, apphttp.HeaderIdempotencyKey, "rec-1")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE_REQUEST", decodeError(t, body).Code)
	assert.Equal(t, int64(5), s.quantity(t, ""))

	// Una petición fallida libera la clave.
	bad := dto.IssueRequest{ProductID: prodID, LocationID: locA, Quantity: 50, Reason: "sale"}
	resp, _ = s.do(t, http.MethodPost, "/api/inventory/issues", s.clerk, bad, apphttp.HeaderIdempotencyKey, "iss-1")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	bad.Quantity = 2
	resp, body = s.do(t, http.MethodPost, "/api/inventory/issues", s.clerk, bad, apphttp.HeaderIdempotencyKey, "iss-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Equal(t, int64(3), s.quantity(t, ""))
}

func TestInventoryHTTP_ResetYDiagnostico(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/inventory/receipts", s.clerk, dto.ReceiptRequest{ProductID: prodID, LocationID: locA, Quantity: 4})
	s.do(t, http.MethodPost, "/api/inventory/receipts", s.clerk, dto.ReceiptRequest{ProductID: prodID, LocationID: locB, Quantity: 6})

	resp, body := s.do(t, http.MethodPost, "/api/inventory/resets", s.admin,
		dto.ResetRequest{ProductID: prodID, LocationID: locB, Quantity: 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var rs dto.ResetResponse
	require.NoError(t, json.Unmarshal(body, &rs))
	require.Len(t, rs.Movements, 3)
	for _, m := range rs.Movements {
		assert.Equal(t, "reset", m.Reason)
	}
	assert.Equal(t, int64(2), s.quantity(t, ""))
	assert.Equal(t, int64(2), s.quantity(t, "?location_id="+locB))

	resp, body = s.do(t, http.MethodGet, "/api/inventory/low-stock", s.view, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var low []dto.LowStockItemResponse
	require.NoError(t, json.Unmarshal(body, &low))
	require.Len(t, low, 1)
	assert.Equal(t, "low_stock", low[0].Status)

	resp, _ = s.do(t, http.MethodGet, "/api/inventory/verify", s.clerk, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, body = s.do(t, http.MethodGet, "/api/inventory/verify", s.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var vr dto.VerifyResponse
	require.NoError(t, json.Unmarshal(body, &vr))
	assert.True(t, vr.Healthy)
	assert.Empty(t, vr.Discrepancies)
}

func TestCatalogHTTP(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodPost, "/api/locations", s.admin, dto.CreateLocationRequest{Aisle: "c", Shelf: "03", Level: "1", Capacity: 20})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var loc dto.LocationResponse
	require.NoError(t, json.Unmarshal(body, &loc))
	assert.Equal(t, "C-03-1", loc.Code)

	resp, _ = s.do(t, http.MethodPost, "/api/locations", s.clerk, dto.CreateLocationRequest{Code: "Z-1"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = s.do(t, http.MethodPost, "/api/products", s.admin, dto.CreateProductRequest{SKU: "SKU-002", Name: "Tuerca", DefaultLocationID: loc.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var p dto.ProductResponse
	require.NoError(t, json.Unmarshal(body, &p))

	resp, body = s.do(t, http.MethodPost, "/api/products", s.admin, dto.CreateProductRequest{SKU: "SKU-002", Name: "Otra"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE", decodeError(t, body).Code)

	// Sin ubicación explícita la entrada va a la ubicación por defecto del producto.
	resp, body = s.do(t, http.MethodPost, "/api/inventory/receipts", s.clerk, dto.ReceiptRequest{ProductID: p.ID, Quantity: 3})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var mov dto.MovementResponse
	require.NoError(t, json.Unmarshal(body, &mov))
	assert.Equal(t, loc.ID, mov.LocationID)

	resp, body = s.do(t, http.MethodGet, "/api/locations/"+loc.ID, s.view, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &loc))
	assert.True(t, loc.Occupied, "la ocupación se deriva del stock")

	resp, _ = s.do(t, http.MethodDelete, "/api/products/"+p.ID, s.admin, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, body = s.do(t, http.MethodGet, "/api/products?limit=10", s.view, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list dto.ProductListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list.Items, 1, "solo activos por defecto")

	resp, _ = s.do(t, http.MethodGet, "/api/products/no-existe", s.view, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInventoryHTTP_ReferenciaRepetidaConOtraCantidad(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodPost, "/api/inventory/receipts", s.clerk,
		dto.ReceiptRequest{ProductID: prodID, LocationID: locA, Quantity: 100})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	sale := dto.IssueRequest{ProductID: prodID, LocationID: locA, Quantity: 20, Reason: "sale", Reference: "FAC-1"}
	resp, body = s.do(t, http.MethodPost, "/api/inventory/issues", s.clerk, sale)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var first dto.MovementResponse
	require.NoError(t, json.Unmarshal(body, &first))

	sale.Quantity = 50
	resp, body = s.do(t, http.MethodPost, "/api/inventory/issues", s.clerk, sale)
	require.Equal(t, http.StatusConflict, resp.StatusCode, string(body))
	e := decodeError(t, body)
	assert.Equal(t, "DUPLICATE_REFERENCE", e.Code)
	assert.Equal(t, "FAC-1", e.Details["reference"])
	assert.Equal(t, first.ID, e.Details["movement_id"])

	assert.Equal(t, int64(80), s.quantity(t, "?location_id="+locA))
}

func TestCatalogHTTP_ActualizarUbicacionYFiltros(t *testing.T) {
	s := newTestServer(t)

	capacity := int64(5)
	resp, body := s.do(t, http.MethodPut, "/api/locations/"+locA, s.admin, dto.UpdateLocationRequest{Capacity: &capacity})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var loc dto.LocationResponse
	require.NoError(t, json.Unmarshal(body, &loc))
	assert.Equal(t, int64(5), loc.Capacity)

	resp, _ = s.do(t, http.MethodPut, "/api/locations/"+locA, s.clerk, dto.UpdateLocationRequest{Capacity: &capacity})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPut, "/api/locations/no-existe", s.admin, dto.UpdateLocationRequest{Capacity: &capacity})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	code := "B-02-1"
	resp, body = s.do(t, http.MethodPut, "/api/locations/"+locA, s.admin, dto.UpdateLocationRequest{Code: &code})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE", decodeError(t, body).Code)

	// A queda llena: deja de figurar entre las disponibles.
	resp, body = s.do(t, http.MethodPost, "/api/inventory/receipts", s.clerk,
		dto.ReceiptRequest{ProductID: prodID, LocationID: locA, Quantity: 5})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = s.do(t, http.MethodGet, "/api/locations?available=true", s.view, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var locs dto.LocationListResponse
	require.NoError(t, json.Unmarshal(body, &locs))
	require.Len(t, locs.Items, 1)
	assert.Equal(t, locB, locs.Items[0].ID)

	resp, body = s.do(t, http.MethodGet, "/api/locations", s.view, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &locs))
	assert.Len(t, locs.Items, 2)

	resp, body = s.do(t, http.MethodPost, "/api/products", s.admin, dto.CreateProductRequest{SKU: "SKU-002", Name: "Tuerca"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var products dto.ProductListResponse
	resp, body = s.do(t, http.MethodGet, "/api/products?sku=SKU-002", s.view, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &products))
	require.Len(t, products.Items, 1)
	assert.Equal(t, "Tuerca", products.Items[0].Name)

	resp, body = s.do(t, http.MethodGet, "/api/products?q=tornI", s.view, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &products))
	require.Len(t, products.Items, 1)
	assert.Equal(t, prodID, products.Items[0].ID)

	resp, body = s.do(t, http.MethodGet, "/api/products?sku=NO-EXISTE", s.view, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &products))
	assert.Empty(t, products.Items)
}
