package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so several instances can live in one test binary.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry         *prometheus.Registry
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	checkouts        *prometheus.CounterVec
	checkoutDuration prometheus.Histogram
	checkoutRetries  prometheus.Counter
	stockUnits       *prometheus.CounterVec
	activityDropped  prometheus.Counter
}

func New(service string) *Metrics {
	constLabels := prometheus.Labels{"service": service}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: constLabels,
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "Duration of HTTP requests in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"method", "path", "status"}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pos_checkouts_total",
			Help:        "Checkout attempts by outcome",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		checkoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "pos_checkout_duration_seconds",
			Help:        "Time spent committing a sale, retries included",
			Buckets:     []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			ConstLabels: constLabels,
		}),
		checkoutRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "pos_checkout_retries_total",
			Help:        "Checkout commits retried after a concurrency conflict",
			ConstLabels: constLabels,
		}),
		stockUnits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pos_stock_units_total",
			Help:        "Stock units moved, by direction",
			ConstLabels: constLabels,
		}, []string{"direction"}),
		activityDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "pos_activity_log_failures_total",
			Help:        "Activity log entries that could not be written or published",
			ConstLabels: constLabels,
		}),
	}
	m.registry.MustRegister(
		m.requests, m.requestDuration, m.checkouts, m.checkoutDuration,
		m.checkoutRetries, m.stockUnits, m.activityDropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCheckout records one finished checkout. outcome is "success" or
// the error class that stopped it.
func (m *Metrics) ObserveCheckout(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(outcome).Inc()
	m.checkoutDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) CheckoutRetried() {
	if m == nil {
		return
	}
	m.checkoutRetries.Inc()
}

func (m *Metrics) StockMoved(direction string, units int) {
	if m == nil || units <= 0 {
		return
	}
	m.stockUnits.WithLabelValues(direction).Add(float64(units))
}

func (m *Metrics) ActivityDropped() {
	if m == nil {
		return
	}
	m.activityDropped.Inc()
}

// Middleware records request count and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.requests.WithLabelValues(c.Request.Method, path, status).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
