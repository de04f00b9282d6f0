package app

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/ctxutil"
	domerrors "github.com/nnrg-cse/nnrg-assistant-go/internal/errors"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/logger"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/metrics"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/ratelimit"
)

const requestIDHeader = "X-Request-ID"

// requestIDMiddleware propagates the caller's request id, or a new one,
// into the request context and the response headers.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = c.GetHeader("X-Correlation-ID")
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestID(c.Request.Context(), requestID))
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

// securityHeadersMiddleware adds security headers to responses.
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Header("X-Permitted-Cross-Domain-Policies", "none")
		c.Next()
	}
}

// loggingMiddleware logs HTTP requests with status-based log levels:
// 5xx=Error, 4xx=Warn, 404=Debug, 3xx/2xx=Debug.
func loggingMiddleware(log *logger.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(route, strconv.Itoa(status))

		entry := log.WithFields(map[string]any{
			"http_method": c.Request.Method,
			"http_path":   c.Request.URL.Path,
			"http_status": status,
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   c.ClientIP(),
		})
		if requestID, ok := ctxutil.GetRequestID(c.Request.Context()); ok {
			entry = entry.WithRequestID(requestID)
		}

		switch {
		case status >= 500:
			entry.Error("HTTP request failed")
		case status == http.StatusNotFound:
			entry.Debug("HTTP request not found")
		case status >= 400:
			entry.Warn("HTTP request rejected")
		default:
			entry.Debug("HTTP request completed")
		}
	}
}

// rateLimitMiddleware limits requests per client IP.
func rateLimitMiddleware(limiter *ratelimit.KeyedLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter != nil && !limiter.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			abortWithError(c, domerrors.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

// bodyLimitMiddleware caps request bodies at n bytes.
func bodyLimitMiddleware(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
