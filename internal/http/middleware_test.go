package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cobranza-bot/internal/service"
)

func setupPlatformRouter(limiter service.RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(
		requestIDMiddleware(),
		securityHeadersMiddleware(),
		ipRateLimitMiddleware(limiter, zap.NewNop()),
		requestValidationMiddleware("/webhook"),
	)
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/items", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/webhook/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRequestIDMiddleware(t *testing.T) {
	r := setupPlatformRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("User-Agent", "console/1.0")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected generated request id")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" || rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing security headers: %v", rec.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("User-Agent", "console/1.0")
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("expected incoming request id to be kept, got %q", got)
	}
}

func TestIPRateLimitMiddleware(t *testing.T) {
	r := setupPlatformRouter(service.NewRateLimiter(time.Minute, 2))

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("User-Agent", "console/1.0")
		last = httptest.NewRecorder()
		r.ServeHTTP(last, req)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", last.Code)
	}
	if !strings.Contains(last.Body.String(), `"request_id"`) {
		t.Fatalf("expected request_id in body, got %s", last.Body.String())
	}
}

func TestRequestValidationMiddleware(t *testing.T) {
	r := setupPlatformRouter(nil)

	cases := []struct {
		name        string
		path        string
		userAgent   string
		contentType string
		want        int
	}{
		{"json ok", "/items", "console/1.0", "application/json", http.StatusOK},
		{"multipart ok", "/items", "console/1.0", "multipart/form-data; boundary=x", http.StatusOK},
		{"short user agent", "/items", "ab", "application/json", http.StatusBadRequest},
		{"form rejected", "/items", "console/1.0", "application/x-www-form-urlencoded", http.StatusBadRequest},
		{"webhook exempt", "/webhook/", "", "application/x-www-form-urlencoded", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader("a=b"))
			req.Header.Set("User-Agent", tc.userAgent)
			req.Header.Set("Content-Type", tc.contentType)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}
