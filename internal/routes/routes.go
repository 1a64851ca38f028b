// internal/routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"camera-service/internal/config"
	"camera-service/internal/handler"
	"camera-service/internal/middleware"
	"camera-service/internal/utils"
)

// Handlers are the HTTP handlers mounted by the router
type Handlers struct {
	Health    *handler.HealthHandler
	Camera    *handler.CameraHandler
	Image     *handler.ImageHandler
	Transfer  *handler.TransferHandler
	Discovery *handler.DiscoveryHandler
	WebSocket *handler.WebSocketHandler
}

// Router holds all dependencies for routing
type Router struct {
	config   *config.Config
	logger   *zap.Logger
	handlers Handlers
}

// NewRouter creates a new router instance
func NewRouter(config *config.Config, logger *zap.Logger, handlers Handlers) *Router {
	return &Router{
		config:   config,
		logger:   logger,
		handlers: handlers,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	switch {
	case r.config.Server.Mode != "":
		gin.SetMode(r.config.Server.Mode)
	case r.config.IsProduction():
		gin.SetMode(gin.ReleaseMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Security))

	r.logger.Debug("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	h := r.handlers

	h.Health.RegisterRoutes(router)

	apiV1 := router.Group("/api/v1")
	h.Camera.RegisterRoutes(apiV1)
	h.Image.RegisterRoutes(apiV1)
	h.Transfer.RegisterRoutes(apiV1)
	h.Discovery.RegisterRoutes(apiV1)

	if h.WebSocket != nil {
		router.GET("/ws", h.WebSocket.HandleConnection)
		apiV1.GET("/ws/stats", func(c *gin.Context) {
			utils.SuccessResponse(c, http.StatusOK, "Connection statistics retrieved", h.WebSocket.GetConnectionStats())
		})
	}

	r.addDocumentationRoutes(router)

	r.logger.Info("All routes configured successfully")
}

// addDocumentationRoutes sets up documentation routes
func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}
