package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailpro/backend/internal/domain"
	"retailpro/backend/internal/metrics"
	"retailpro/backend/internal/service"
	"retailpro/backend/internal/store/memory"
)

var (
	admin   = domain.Actor{ID: "U1", Name: "Asha", Role: domain.RoleAdmin}
	cashier = domain.Actor{ID: "U3", Name: "Meena", Role: domain.RoleCashier}
	clerk   = domain.Actor{ID: "U2", Name: "Ravi", Role: domain.RoleStockClerk}
)

type testAPI struct {
	handler http.Handler
	auth    *AuthManager
}

// newTestAPI builds the full stack over the seeded in-memory store so
// handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	repo := memory.NewSeeded()
	svc := service.New(repo, service.Options{})
	auth := NewAuthManager(testSecret)
	api := New(svc, auth, Options{AllowedOrigin: "http://127.0.0.1:3000", Metrics: metrics.New("retailpro-test")})
	return &testAPI{handler: api.Handler(), auth: auth}
}

func (ta *testAPI) do(t *testing.T, actor *domain.Actor, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		token, err := ta.auth.Sign(*actor, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ta.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, nil, http.MethodGet, "/healthz", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["ok"])
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestCheckoutEndToEnd(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, &cashier, http.MethodPost, "/api/transactions", map[string]any{
		"items":         []map[string]any{{"productId": "P001", "quantity": 2}, {"productId": "P006", "quantity": 1}},
		"paymentMethod": "UPI",
		"discount":      5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Transaction domain.Transaction `json:"transaction"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	tx := created.Transaction
	assert.Regexp(t, `^INV-\d{4}-0001$`, tx.InvoiceNo)
	assert.Equal(t, domain.PaymentUPI, tx.PaymentMethod)
	assert.Equal(t, "U3", tx.CashierID)
	// 2×28 @5% + 1×20 @12% = 76 + 2.8 + 2.4 - 5
	assert.Equal(t, "76.2", tx.Total.String())
	require.Len(t, tx.Items, 2)

	rec = api.do(t, &clerk, http.MethodGet, "/api/products/P001", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	product := decodeBody(t, rec)["product"].(map[string]any)
	assert.Equal(t, float64(448), product["stock"])

	rec = api.do(t, &cashier, http.MethodGet, "/api/transactions/"+tx.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(t, &cashier, http.MethodGet, "/api/transactions/"+tx.InvoiceNo, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, &admin, http.MethodGet, "/api/activity-logs?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decodeBody(t, rec)["logs"].([]any)
	require.Len(t, logs, 1)
	assert.Equal(t, "Sold 2x Tata Salt (1kg), 1x Lays Classic Salted (52g)", logs[0].(map[string]any)["action"])
}

func TestCheckoutErrorMapping(t *testing.T) {
	api := newTestAPI(t)

	cases := []struct {
		name   string
		body   any
		status int
		check  func(t *testing.T, body map[string]any)
	}{
		{
			name:   "empty cart",
			body:   map[string]any{"items": []any{}, "paymentMethod": "Cash"},
			status: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "no items in cart", body["error"])
			},
		},
		{
			name:   "unknown field",
			body:   `{"items":[{"productId":"P001","quantity":1}],"tip":5}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "trailing JSON value",
			body:   `{"items":[{"productId":"P001","quantity":1}]}{"x":1}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "quantity above cap",
			body:   `{"items":[{"productId":"P001","quantity":9223372036854775807}]}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown product",
			body:   map[string]any{"items": []map[string]any{{"productId": "P999", "quantity": 1}}},
			status: http.StatusNotFound,
		},
		{
			name:   "insufficient stock",
			body:   map[string]any{"items": []map[string]any{{"productId": "P016", "quantity": 6}}},
			status: http.StatusConflict,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "P016", body["productId"])
				assert.Equal(t, float64(5), body["available"])
				assert.Equal(t, "insufficient stock for Amul Taza Milk 500ml. Available: 5", body["error"])
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := api.do(t, &cashier, http.MethodPost, "/api/transactions", tc.body)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			if tc.check != nil {
				tc.check(t, decodeBody(t, rec))
			}
		})
	}
}

func TestRoleEnforcement(t *testing.T) {
	api := newTestAPI(t)

	cases := []struct {
		actor  *domain.Actor
		method string
		path   string
		body   any
		status int
	}{
		{nil, http.MethodGet, "/api/products", nil, http.StatusUnauthorized},
		{&cashier, http.MethodGet, "/api/products", nil, http.StatusOK},
		{&cashier, http.MethodPost, "/api/products", map[string]any{"name": "X"}, http.StatusForbidden},
		{&clerk, http.MethodPost, "/api/transactions", map[string]any{"items": []any{}}, http.StatusForbidden},
		{&cashier, http.MethodGet, "/api/dashboard/stats", nil, http.StatusForbidden},
		{&clerk, http.MethodGet, "/api/activity-logs", nil, http.StatusForbidden},
		{&admin, http.MethodGet, "/api/dashboard/stats", nil, http.StatusOK},
		{&admin, http.MethodGet, "/api/reports", nil, http.StatusOK},
	}

	for _, tc := range cases {
		rec := api.do(t, tc.actor, tc.method, tc.path, tc.body)
		assert.Equal(t, tc.status, rec.Code, "%s %s: %s", tc.method, tc.path, rec.Body.String())
	}
}

func TestProductLifecycle(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, &clerk, http.MethodPost, "/api/products", map[string]any{
		"name":         "Toor Dal (1kg)",
		"sellingPrice": 160,
		"costPrice":    120,
		"stock":        30,
		"minStock":     10,
		"expiryDate":   "2030-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	product := decodeBody(t, rec)["product"].(map[string]any)
	id := product["id"].(string)
	assert.Equal(t, "Groceries", product["category"])
	assert.Equal(t, float64(5), product["gstRate"])

	rec = api.do(t, &clerk, http.MethodPut, "/api/products/"+id, map[string]any{"sellingPrice": 100})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["requireConfirmation"])

	rec = api.do(t, &clerk, http.MethodPut, "/api/products/"+id, map[string]any{"sellingPrice": 100, "confirmLoss": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, &clerk, http.MethodPut, "/api/products/"+id, map[string]any{"stock": 500})
	require.Equal(t, http.StatusBadRequest, rec.Code, "stock is not editable through update")

	rec = api.do(t, &clerk, http.MethodPost, "/api/products/"+id+"/restock", map[string]any{"quantity": 20})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(50), decodeBody(t, rec)["product"].(map[string]any)["stock"])

	rec = api.do(t, &clerk, http.MethodPost, "/api/products/"+id+"/restock", map[string]any{"quantity": 0})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, &admin, http.MethodPost, "/api/products/"+id+"/stock-adjustments", map[string]any{"delta": -51})
	require.Equal(t, http.StatusConflict, rec.Code)
	rec = api.do(t, &admin, http.MethodPost, "/api/products/"+id+"/stock-adjustments", map[string]any{"delta": -5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(45), decodeBody(t, rec)["product"].(map[string]any)["stock"])

	rec = api.do(t, &clerk, http.MethodGet, "/api/products/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTransactionsLimitReturnsNewestFirst(t *testing.T) {
	api := newTestAPI(t)
	for i := 0; i < 3; i++ {
		rec := api.do(t, &cashier, http.MethodPost, "/api/transactions", map[string]any{
			"items": []map[string]any{{"productId": "P007", "quantity": 1}},
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := api.do(t, &admin, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decodeBody(t, rec)["transactions"].([]any)
	require.Len(t, all, 3)

	rec = api.do(t, &admin, http.MethodGet, "/api/transactions?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	recent := decodeBody(t, rec)["transactions"].([]any)
	require.Len(t, recent, 1)
	assert.Equal(t, all[2].(map[string]any)["id"], recent[0].(map[string]any)["id"])
}

func TestMetricsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, &cashier, http.MethodGet, "/api/products", nil)

	rec := api.do(t, nil, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total`)
}
