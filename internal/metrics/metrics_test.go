package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCheckout(t *testing.T) {
	m := New("retailpro-test")
	m.ObserveCheckout("success", 20*time.Millisecond)
	m.ObserveCheckout("success", 10*time.Millisecond)
	m.ObserveCheckout("insufficient_stock", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.checkouts.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkouts.WithLabelValues("insufficient_stock")))
}

func TestStockMovedIgnoresNonPositive(t *testing.T) {
	m := New("retailpro-test")
	m.StockMoved("in", 5)
	m.StockMoved("in", 0)
	m.StockMoved("out", 3)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.stockUnits.WithLabelValues("in")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.stockUnits.WithLabelValues("out")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCheckout("success", time.Millisecond)
		m.CheckoutRetried()
		m.StockMoved("in", 1)
		m.ActivityDropped()
	})
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New("retailpro-test")

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/products/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/P001", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `http_requests_total{method="GET",path="/api/products/:id",service="retailpro-test",status="204"} 1`), body)
}
