// internal/middleware/middleware_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"camera-service/internal/utils"
)

func newEngine(t *testing.T) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	r := gin.New()
	r.Use(RecoveryMiddleware(logger))
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(utils.NewServiceLogger(logger, "http-server")))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(utils.RequestIDKey)) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r, logs
}

func TestRequestID(t *testing.T) {
	r, logs := newEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	id := w.Header().Get(RequestIDHeader)
	if id == "" || w.Body.String() != id {
		t.Fatalf("generated id %q, body %q", id, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("caller id replaced by %q", got)
	}

	entries := logs.FilterMessage("API request").All()
	if len(entries) != 2 {
		t.Fatalf("got %d request logs, want 2", len(entries))
	}
	if got := entries[1].ContextMap()["request_id"]; got != "abc-123" {
		t.Errorf("logged request_id = %v", got)
	}
}

func TestRecovery(t *testing.T) {
	r, logs := newEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
	if logs.FilterMessage("Panic recovered").Len() != 1 {
		t.Error("panic not logged")
	}
}
