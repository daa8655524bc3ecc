package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"MesaQR/internal/bus"
	"MesaQR/internal/database"
	"MesaQR/internal/menu"
	"MesaQR/internal/orders"
	"MesaQR/internal/qrcodes"
	"MesaQR/internal/tables"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDBSeq int64

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	dsn := fmt.Sprintf("file:http_test_%d?mode=memory&cache=shared&_fk=1", atomic.AddInt64(&testDBSeq, 1))
	db, err := sqlx.Open("sqlite3", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.MustExec(database.DB_SCHEMA)
	t.Cleanup(func() { _ = db.Close() })

	b := bus.New()
	tablesSvc := tables.NewService(db)
	menuSvc := menu.NewService(db)
	qrSvc := qrcodes.NewService(db, tablesSvc, "http://localhost/qr")
	return &Handler{
		Orders: orders.NewService(db, tablesSvc, menuSvc, qrSvc, b),
		Tables: tablesSvc,
		Menu:   menuSvc,
		Qr:     qrSvc,
		Bus:    b,
	}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	h := newTestHandler(t)
	router := h.Router()

	rec := doJSON(t, router, http.MethodPost, "/tables", map[string]interface{}{"number": 1, "capacity": 4})
	require.Equal(t, http.StatusCreated, rec.Code)
	var table tableResponse
	decode(t, rec, &table)

	rec = doJSON(t, router, http.MethodPost, "/products", map[string]interface{}{
		"name": "Pizza Margherita", "price": "8.50", "preparationTime": 15,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var product productResponse
	decode(t, rec, &product)

	rec = doJSON(t, router, http.MethodPost, "/orders", map[string]interface{}{
		"tableId": table.ID,
		"source":  "waiter",
		"items":   []map[string]interface{}{{"productId": product.ID, "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var order orderResponse
	decode(t, rec, &order)
	assert.Equal(t, "pending", order.Status)
	assert.Equal(t, "17.00", order.Subtotal)
	assert.Equal(t, "1.70", order.Tax)
	assert.Equal(t, "18.70", order.Total)

	rec = doJSON(t, router, http.MethodGet, "/orders/active", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var active []orderResponse
	decode(t, rec, &active)
	require.Len(t, active, 1)

	rec = doJSON(t, router, http.MethodGet, "/orders/number/"+order.OrderNumber, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The table went busy on admission.
	rec = doJSON(t, router, http.MethodGet, "/tables/"+table.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &table)
	assert.Equal(t, "occupied", table.Status)

	for _, step := range []string{"confirm", "preparing", "ready", "delivered"} {
		rec = doJSON(t, router, http.MethodPost, "/orders/id/"+order.ID+"/"+step, nil)
		require.Equal(t, http.StatusOK, rec.Code, "step %s", step)
	}

	decode(t, rec, &order)
	assert.Equal(t, "delivered", order.Status)
	assert.NotNil(t, order.CompletedAt)

	rec = doJSON(t, router, http.MethodGet, "/tables/"+table.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &table)
	assert.Equal(t, "available", table.Status)
}

func TestErrorStatusMapping(t *testing.T) {
	h := newTestHandler(t)
	router := h.Router()

	// Unknown order.
	rec := doJSON(t, router, http.MethodGet, "/orders/id/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Illegal transition.
	rec = doJSON(t, router, http.MethodPost, "/tables", map[string]interface{}{"number": 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	var table tableResponse
	decode(t, rec, &table)

	rec = doJSON(t, router, http.MethodPost, "/products", map[string]interface{}{"name": "Pizza", "price": "8.50"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var product productResponse
	decode(t, rec, &product)

	rec = doJSON(t, router, http.MethodPost, "/orders", map[string]interface{}{
		"tableId": table.ID,
		"source":  "waiter",
		"items":   []map[string]interface{}{{"productId": product.ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var order orderResponse
	decode(t, rec, &order)

	rec = doJSON(t, router, http.MethodPost, "/orders/id/"+order.ID+"/delivered", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Unavailable product.
	rec = doJSON(t, router, http.MethodPatch, "/products/"+product.ID+"/availability", map[string]interface{}{"isAvailable": false})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, router, http.MethodPost, "/orders", map[string]interface{}{
		"tableId": table.ID,
		"source":  "waiter",
		"items":   []map[string]interface{}{{"productId": product.ID, "quantity": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown qr token.
	rec = doJSON(t, router, http.MethodGet, "/qr/"+uuid.NewString()+"/validate", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQrFlowOverHTTP(t *testing.T) {
	h := newTestHandler(t)
	router := h.Router()

	rec := doJSON(t, router, http.MethodPost, "/tables", map[string]interface{}{"number": 7})
	require.Equal(t, http.StatusCreated, rec.Code)
	var table tableResponse
	decode(t, rec, &table)

	rec = doJSON(t, router, http.MethodPost, "/products", map[string]interface{}{"name": "Coca-Cola", "price": "2.50"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var product productResponse
	decode(t, rec, &product)

	rec = doJSON(t, router, http.MethodPost, "/tables/"+table.ID+"/qr", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var qr qrResponse
	decode(t, rec, &qr)
	assert.Equal(t, "http://localhost/qr/"+qr.Code, qr.URL)

	rec = doJSON(t, router, http.MethodGet, "/qr/"+qr.Code+"/validate", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/orders/qr", map[string]interface{}{
		"qrCode":       qr.Code,
		"customerName": "Ana",
		"items":        []map[string]interface{}{{"productId": product.ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var order orderResponse
	decode(t, rec, &order)
	assert.Equal(t, "qr-client", order.Source)
	assert.Equal(t, table.ID, order.Table.ID)

	// Deactivated codes stop admitting orders.
	rec = doJSON(t, router, http.MethodDelete, "/tables/"+table.ID+"/qr", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, router, http.MethodPost, "/orders/qr", map[string]interface{}{
		"qrCode": qr.Code,
		"items":  []map[string]interface{}{{"productId": product.ID, "quantity": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatisticsOverHTTP(t *testing.T) {
	h := newTestHandler(t)
	router := h.Router()

	rec := doJSON(t, router, http.MethodGet, "/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats orders.Statistics
	decode(t, rec, &stats)
	assert.Equal(t, 0, stats.TotalOrders)
	assert.Equal(t, "0.00", stats.AverageOrderValue)

	rec = doJSON(t, router, http.MethodGet, "/statistics/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/statistics?startDate=bogus&endDate=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
