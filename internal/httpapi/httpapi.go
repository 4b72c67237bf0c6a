package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"retailpro/backend/internal/domain"
	"retailpro/backend/internal/logger"
	"retailpro/backend/internal/metrics"
	"retailpro/backend/internal/service"
	"retailpro/backend/internal/store"
)

var allRoles = []string{domain.RoleAdmin, domain.RoleCashier, domain.RoleStockClerk}

type Options struct {
	AllowedOrigin string
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
}

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	logger        *zap.Logger
	metrics       *metrics.Metrics
	authLimiter   *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, opts Options) *API {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: opts.AllowedOrigin,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		authLimiter:   newAttemptLimiter(20, time.Minute),
	}
}

func (a *API) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(
		requestID(),
		recovery(a.logger),
		requestLogger(a.logger),
		a.metrics.Middleware(),
		securityHeaders(),
		a.cors(),
		bodyLimit(maxBodyBytes),
	)
	r.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, errors.New("route not found"))
	})
	r.NoMethod(func(c *gin.Context) {
		writeError(c, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	})

	r.GET("/healthz", a.handleHealth)
	r.GET("/metrics", gin.WrapH(a.metrics.Handler()))

	api := r.Group("/api")

	products := api.Group("/products")
	products.GET("", a.requireAuth(allRoles...), a.handleListProducts)
	products.GET("/:id", a.requireAuth(allRoles...), a.handleGetProduct)
	products.POST("", a.requireAuth(domain.RoleAdmin, domain.RoleStockClerk), a.handleCreateProduct)
	products.PUT("/:id", a.requireAuth(domain.RoleAdmin, domain.RoleStockClerk), a.handleUpdateProduct)
	products.POST("/:id/restock", a.requireAuth(domain.RoleAdmin, domain.RoleStockClerk), a.handleRestock)
	products.POST("/:id/stock-adjustments", a.requireAuth(domain.RoleAdmin, domain.RoleStockClerk), a.handleAdjustStock)

	transactions := api.Group("/transactions")
	transactions.POST("", a.requireAuth(domain.RoleAdmin, domain.RoleCashier), a.handleCheckout)
	transactions.GET("", a.requireAuth(allRoles...), a.handleListTransactions)
	transactions.GET("/:id", a.requireAuth(allRoles...), a.handleGetTransaction)

	api.GET("/activity-logs", a.requireAuth(domain.RoleAdmin), a.handleActivityLogs)
	api.GET("/dashboard/stats", a.requireAuth(domain.RoleAdmin), a.handleDashboard)
	api.GET("/reports", a.requireAuth(domain.RoleAdmin), a.handleReport)

	return r
}

func (a *API) cors() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if a.allowedOrigin == "" || a.allowedOrigin == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = strings.Split(a.allowedOrigin, ",")
		for i := range cfg.AllowOrigins {
			cfg.AllowOrigins[i] = strings.TrimSpace(cfg.AllowOrigins[i])
		}
	}
	return cors.New(cfg)
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleListProducts(c *gin.Context) {
	products, err := a.service.ListProducts(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (a *API) handleGetProduct(c *gin.Context) {
	product, err := a.service.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func (a *API) handleCreateProduct(c *gin.Context) {
	var req domain.ProductCreateRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.CreateProduct(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

func (a *API) handleUpdateProduct(c *gin.Context) {
	var req domain.ProductUpdateRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.UpdateProduct(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func (a *API) handleRestock(c *gin.Context) {
	var req domain.RestockRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.RestockProduct(c.Request.Context(), c.Param("id"), req.Quantity)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func (a *API) handleAdjustStock(c *gin.Context) {
	var req domain.StockAdjustmentRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.AdjustStock(c.Request.Context(), c.Param("id"), req.Delta)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func (a *API) handleCheckout(c *gin.Context) {
	var req domain.CheckoutRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	tx, err := a.service.Checkout(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

// handleListTransactions returns the whole ledger oldest first, or the
// newest ?limit=N when a limit is given.
func (a *API) handleListTransactions(c *gin.Context) {
	var (
		txs []domain.Transaction
		err error
	)
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		txs, err = a.service.RecentTransactions(c.Request.Context(), parsePositiveLimit(raw, 50, 500))
	} else {
		txs, err = a.service.ListTransactions(c.Request.Context())
	}
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

// handleGetTransaction accepts either a transaction id or an invoice number.
func (a *API) handleGetTransaction(c *gin.Context) {
	id := c.Param("id")
	var (
		tx  domain.Transaction
		err error
	)
	if strings.HasPrefix(strings.ToUpper(id), "INV-") {
		tx, err = a.service.GetTransactionByInvoice(c.Request.Context(), id)
	} else {
		tx, err = a.service.GetTransaction(c.Request.Context(), id)
	}
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

func (a *API) handleActivityLogs(c *gin.Context) {
	limit := parsePositiveLimit(c.Query("limit"), 100, 1000)
	logs, err := a.service.ListActivity(c.Request.Context(), limit)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

func (a *API) handleDashboard(c *gin.Context) {
	stats, err := a.service.DashboardStats(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (a *API) handleReport(c *gin.Context) {
	report, err := a.service.Report(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// fail maps a service error onto its status code and response body.
func (a *API) fail(c *gin.Context, err error) {
	var stockErr *store.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":     err.Error(),
			"productId": stockErr.ProductID,
			"available": stockErr.Available,
		})
	case errors.Is(err, store.ErrMarginWarning):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":               err.Error(),
			"requireConfirmation": true,
		})
	case errors.Is(err, store.ErrEmptyCart), errors.Is(err, store.ErrValidation):
		writeError(c, http.StatusBadRequest, err)
	case errors.Is(err, store.ErrNotFound):
		writeError(c, http.StatusNotFound, err)
	case errors.Is(err, store.ErrConcurrencyConflict):
		writeError(c, http.StatusConflict, err)
	case errors.Is(err, service.ErrForbidden):
		writeError(c, http.StatusForbidden, err)
	default:
		writeError(c, http.StatusInternalServerError, err)
	}
}

func decodeJSON(c *gin.Context, dest any) error {
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.New("request body too large")
		}
		return err
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeError(c *gin.Context, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		logger.FromContext(c.Request.Context(), nil).Error("internal error", zap.Int("status", status), zap.Error(err))
		msg = "internal server error"
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": msg})
}

func abortWithError(c *gin.Context, status int, err error) {
	writeError(c, status, err)
	c.Abort()
}
