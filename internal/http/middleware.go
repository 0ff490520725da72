package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"cobranza-bot/internal/metrics"
	"cobranza-bot/internal/service"
)

const requestIDKey = "request_id"

// requestIDMiddleware respeta un X-Request-ID entrante o genera uno nuevo.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader("X-Request-ID"))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Next()
	}
}

// ipRateLimitMiddleware limita requests por IP. Los preflight no cuentan.
func ipRateLimitMiddleware(limiter service.RateLimiter, logger *zap.Logger, exemptPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || c.Request.Method == http.MethodOptions || hasAnyPrefix(c.Request.URL.Path, exemptPrefixes) {
			c.Next()
			return
		}
		ip := c.ClientIP()
		if !limiter.Allow(ip) {
			metrics.SecurityEvents.WithLabelValues("rate_limited").Inc()
			logger.Warn("rate_limited", zap.String("scope", "ip"), zap.String("client_ip", ip))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"detail":     "Rate limit exceeded",
				"request_id": requestID(c),
			})
			return
		}
		c.Next()
	}
}

// requestValidationMiddleware rechaza clientes sin User-Agent y escrituras que no
// sean JSON o multipart. Los webhooks quedan afuera: Twilio manda form-urlencoded.
func requestValidationMiddleware(exemptPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hasAnyPrefix(c.Request.URL.Path, exemptPrefixes) || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		if len(c.GetHeader("User-Agent")) < 5 {
			metrics.SecurityEvents.WithLabelValues("invalid_headers").Inc()
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"detail":     "Invalid security headers",
				"request_id": requestID(c),
			})
			return
		}

		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			ct := c.GetHeader("Content-Type")
			if c.Request.ContentLength != 0 &&
				!strings.Contains(ct, "application/json") && !strings.Contains(ct, "multipart/form-data") {
				metrics.SecurityEvents.WithLabelValues("invalid_headers").Inc()
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
					"detail":     "Invalid security headers",
					"request_id": requestID(c),
				})
				return
			}
		}
		c.Next()
	}
}

// zapLoggerMiddleware loguea cada request y alimenta las métricas HTTP.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(latency.Seconds())

		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", requestID(c)),
		)
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
