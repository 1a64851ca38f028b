// internal/handler/health_handler.go
package handler

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"camera-service/internal/config"
	"camera-service/internal/model"
	"camera-service/internal/service"
	"camera-service/internal/utils"
)

// DatabaseChecker is the part of database.DB the health checks use
type DatabaseChecker interface {
	HealthCheck(ctx context.Context) error
	GetStats() sql.DBStats
}

// BrokerChecker reports the state of the MQTT connection
type BrokerChecker interface {
	IsConnected() bool
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db            DatabaseChecker
	broker        BrokerChecker
	cameraService *service.CameraService
	config        *config.Config
	started       time.Time
	logger        *utils.ServiceLogger
}

// NewHealthHandler creates a new health handler. db may be nil when the
// catalog is kept in memory.
func NewHealthHandler(db DatabaseChecker, cameraService *service.CameraService, config *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:            db,
		cameraService: cameraService,
		config:        config,
		started:       time.Now(),
		logger:        utils.NewServiceLogger(logger, "health-handler"),
	}
}

// SetBroker adds the MQTT connection to the health report
func (h *HealthHandler) SetBroker(b BrokerChecker) {
	h.broker = b
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(router gin.IRoutes) {
	router.GET("/health", h.HealthCheck)
	router.GET("/health/ready", h.ReadinessCheck)
	router.GET("/health/live", h.LivenessCheck)
}

// HealthCheck performs general health check
// @Summary Health check
// @Description Overall service health: camera link state, blob cache, database and MQTT broker
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "Service is healthy"
// @Failure 503 {object} HealthResponse "Service is unhealthy"
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	health := &HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   h.config.App.Name,
		Version:   h.config.App.Version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Checks:    make(map[string]CheckResult),
	}

	health.Checks["camera"] = h.checkCamera(c.Request.Context())

	cache := h.checkCache()
	health.Checks["cache"] = cache
	if cache.Status != "healthy" {
		health.Status = "unhealthy"
	}

	if h.db != nil {
		db := h.checkDatabase(c.Request.Context())
		health.Checks["database"] = db
		if db.Status != "healthy" {
			health.Status = "unhealthy"
		}
	}

	// A lost broker degrades event fan-out only.
	if h.broker != nil {
		if h.broker.IsConnected() {
			health.Checks["mqtt"] = CheckResult{Status: "healthy", Message: "Broker connected"}
		} else {
			health.Checks["mqtt"] = CheckResult{Status: "degraded", Message: "Broker not connected"}
			if health.Status == "healthy" {
				health.Status = "degraded"
			}
		}
	}

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, health)
}

// checkCamera reports the last known link state without opening the link.
// A camera in error is reported but does not make the service unhealthy:
// it may simply be switched off.
func (h *HealthHandler) checkCamera(ctx context.Context) CheckResult {
	info := h.cameraService.Status(ctx)
	result := CheckResult{
		Status: "healthy",
		Data: map[string]any{
			"model":       info.Model,
			"transport":   info.Transport,
			"device":      info.Device,
			"state":       info.Status,
			"image_count": info.ImageCount,
			"busy":        h.cameraService.Busy(),
		},
	}
	if info.Status == model.CameraStatusError {
		result.Status = "degraded"
		if info.LastError != nil {
			result.Message = *info.LastError
		}
	}
	return result
}

func (h *HealthHandler) checkCache() CheckResult {
	dir := h.config.Camera.CacheDir
	fi, err := os.Stat(dir)
	if err != nil {
		return CheckResult{Status: "unhealthy", Message: err.Error()}
	}
	if !fi.IsDir() {
		return CheckResult{Status: "unhealthy", Message: fmt.Sprintf("%s is not a directory", dir)}
	}
	return CheckResult{Status: "healthy", Message: "Cache directory OK", Data: map[string]any{"dir": dir}}
}

func (h *HealthHandler) checkDatabase(ctx context.Context) CheckResult {
	startTime := time.Now()
	if err := h.db.HealthCheck(ctx); err != nil {
		h.logger.Error("Database health check failed", zap.Error(err))
		return CheckResult{Status: "unhealthy", Message: err.Error()}
	}
	stats := h.db.GetStats()
	return CheckResult{
		Status:  "healthy",
		Message: "Database connection OK",
		Data: map[string]any{
			"response_time_ms": time.Since(startTime).Milliseconds(),
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
			"wait_count":       stats.WaitCount,
		},
	}
}

// ReadinessCheck for Kubernetes readiness probe
// @Summary Readiness check
// @Description Check if service is ready to accept traffic
// @Tags Health
// @Produce json
// @Success 200 {object} object{status=string,timestamp=string} "Service is ready"
// @Failure 503 {object} object{status=string,reason=string} "Service is not ready"
// @Router /health/ready [get]
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if h.db != nil {
		if err := h.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": "database not available",
			})
			return
		}
	}
	if cache := h.checkCache(); cache.Status != "healthy" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "cache not available: " + cache.Message,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now(),
	})
}

// LivenessCheck for Kubernetes liveness probe
// @Summary Liveness check
// @Description Check if service is alive
// @Tags Health
// @Produce json
// @Success 200 {object} object{status=string,timestamp=string} "Service is alive"
// @Router /health/live [get]
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckResult represents individual check result
type CheckResult struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}
