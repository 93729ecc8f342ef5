package transporthttp

import (
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"example.com/golocalevents/internal/metrics"
)

const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "request_id"
	APIKeyHeader    = "X-API-Key"
)

// RequestID reuses the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// AccessLog writes one line per request; level follows the status class.
func AccessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", GetRequestID(c)),
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.Int("body_size", c.Writer.Size()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case status >= 500:
			log.Error("server error", fields...)
		case status >= 400:
			log.Warn("client error", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}

// Instrument records request counts and latency by route template.
func Instrument(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// Recover turns panics into a 500 problem.
func Recover(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic recovered", zap.String("request_id", GetRequestID(c)), zap.Any("panic", recovered))
		WriteProblem(c, http.StatusInternalServerError, "internal error", "unexpected error", nil)
	})
}

// BodyLimit limits request bodies to maxBytes.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// RequireJSON ensures Content-Type is application/json for POST endpoints.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost {
			mt, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
			if err != nil || !strings.EqualFold(mt, "application/json") {
				WriteProblem(c, http.StatusUnsupportedMediaType, "unsupported media type", "expected application/json", nil)
				return
			}
		}
		c.Next()
	}
}

// APIKeyAuth allows an optional list of API keys; if the list is empty, auth is bypassed.
func APIKeyAuth(allowed map[string]struct{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(allowed) == 0 {
			c.Next()
			return
		}
		if _, ok := allowed[c.GetHeader(APIKeyHeader)]; !ok {
			WriteProblem(c, http.StatusUnauthorized, "unauthorized", "invalid or missing API key", nil)
			return
		}
		c.Next()
	}
}

// RateLimitPerMinute is a single token bucket shared by every route it
// wraps. limitPerMin <= 0 disables it.
func RateLimitPerMinute(limitPerMin int, clock func() time.Time) gin.HandlerFunc {
	if limitPerMin <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	b := &bucket{
		tokens:       float64(limitPerMin),
		capacity:     float64(limitPerMin),
		refillPerSec: float64(limitPerMin) / 60.0,
		last:         clock(),
	}
	return func(c *gin.Context) {
		if !b.take(clock()) {
			c.Header("Retry-After", "3")
			WriteProblem(c, http.StatusTooManyRequests, "rate limit exceeded", "try again later", nil)
			return
		}
		c.Next()
	}
}

type bucket struct {
	mu           sync.Mutex
	tokens       float64
	capacity     float64
	refillPerSec float64
	last         time.Time
}

func (b *bucket) take(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * b.refillPerSec
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
	}
	b.last = now
	if b.tokens < 1.0 {
		return false
	}
	b.tokens--
	return true
}
