package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"retailpro/backend/internal/logger"
	"retailpro/backend/internal/service"
)

const (
	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 1 << 20
)

// attemptLimiter counts failed attempts per key inside a sliding window.
type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) prune(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	history := l.entries[key]
	kept := history[:0]
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(l.entries, key)
		return nil
	}
	l.entries[key] = kept
	return kept
}

// Blocked reports whether key has used up its failures for the window.
func (l *attemptLimiter) Blocked(key string) bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(key, time.Now())) >= l.max
}

func (l *attemptLimiter) Fail(key string) {
	if l == nil {
		return
	}
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = append(l.prune(key, now), now)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// requestLogger attaches a request-scoped zap logger to the request context
// and logs one line per request once it completes.
func requestLogger(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqLogger := base.With(
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), reqLogger))

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}
		switch {
		case status >= 500:
			reqLogger.Error("http request", fields...)
		case status >= 400:
			reqLogger.Warn("http request", fields...)
		default:
			reqLogger.Info("http request", fields...)
		}
	}
}

func recovery(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				base.Error("panic recovered",
					zap.String("request_id", c.GetString("request_id")),
					zap.Any("panic", rec),
					zap.Stack("stack"))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		h.Set("Cache-Control", "no-store")
		c.Next()
	}
}

func bodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// requireAuth resolves the bearer token into an actor and rejects roles
// outside the allowed set. Clients that keep presenting bad tokens are
// throttled.
func (a *API) requireAuth(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if a.authLimiter.Blocked(key) {
			abortWithError(c, http.StatusTooManyRequests, errors.New("too many failed authentication attempts"))
			return
		}

		authorization := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			a.authLimiter.Fail(key)
			abortWithError(c, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		actor, err := a.auth.ParseToken(strings.TrimSpace(authorization[len("Bearer "):]))
		if err != nil {
			a.authLimiter.Fail(key)
			abortWithError(c, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			abortWithError(c, http.StatusForbidden, service.ErrForbidden)
			return
		}

		ctx := service.WithActor(c.Request.Context(), actor)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx, a.logger).With(zap.String("actor_id", actor.ID)))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}
