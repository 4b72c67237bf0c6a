package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, nil, http.MethodGet, "/healthz", nil)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Referrer-Policy"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec := httptest.NewRecorder()

	api.handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))
}

func TestCORSPreflightForAllowedOrigin(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/transactions", nil)
	req.Header.Set("Origin", "http://127.0.0.1:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()

	api.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://127.0.0.1:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestJSONBodyTooLargeRejected(t *testing.T) {
	api := newTestAPI(t)
	veryLong := strings.Repeat("a", maxBodyBytes+1024)
	body := fmt.Sprintf(`{"items":[{"productId":"%s","quantity":1}]}`, veryLong)

	rec := api.do(t, &cashier, http.MethodPost, "/api/transactions", body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestTrailingJSONLeavesStockUntouched(t *testing.T) {
	api := newTestAPI(t)
	stock := func() any {
		rec := api.do(t, &clerk, http.MethodGet, "/api/products/P001", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		return decodeBody(t, rec)["product"].(map[string]any)["stock"]
	}
	before := stock()

	for _, body := range []string{
		`{"items":[{"productId":"P001","quantity":1}]}{"x":1}`,
		`{"items":[{"productId":"P001","quantity":1}]} trailing`,
	} {
		rec := api.do(t, &cashier, http.MethodPost, "/api/transactions", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	rec := api.do(t, &cashier, http.MethodPost, "/api/transactions", "{\"items\":[{\"productId\":\"P001\",\"quantity\":1}]}\n")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, before.(float64)-1, stock())
}

func TestUnknownRouteReturnsJSON(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, &cashier, http.MethodGet, "/api/nowhere", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"route not found"}`, rec.Body.String())
}

func TestRepeatedBadTokensAreThrottled(t *testing.T) {
	api := newTestAPI(t)

	status := 0
	for i := 0; i < 25; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.Header.Set("Authorization", "Bearer forged")
		rec := httptest.NewRecorder()
		api.handler.ServeHTTP(rec, req)
		status = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestAttemptLimiterWindow(t *testing.T) {
	l := newAttemptLimiter(2, 50*time.Millisecond)
	l.Fail("a")
	assert.False(t, l.Blocked("a"))
	l.Fail("a")
	assert.True(t, l.Blocked("a"))
	assert.False(t, l.Blocked("b"))

	time.Sleep(80 * time.Millisecond)
	assert.False(t, l.Blocked("a"))
}
