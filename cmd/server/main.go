// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "camera-service/docs"
	"camera-service/internal/config"
	"camera-service/internal/database"
	"camera-service/internal/discovery"
	serialscan "camera-service/internal/discovery/serial"
	"camera-service/internal/discovery/usb"
	"camera-service/internal/driver"
	"camera-service/internal/handler"
	"camera-service/internal/notify"
	"camera-service/internal/protocol"
	"camera-service/internal/repository"
	"camera-service/internal/routes"
	"camera-service/internal/service"
	"camera-service/internal/storage"
	"camera-service/internal/utils"
)

const (
	cleanupInterval = time.Hour
	staleClientIdle = 2 * time.Minute
)

// Application represents the main application
type Application struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	database *database.DB

	imageRepo    repository.ImageRepository
	transferRepo repository.TransferRepository

	registry      *driver.Registry
	scanners      *discovery.ScannerManager
	eventBus      *handler.EventBus
	publisher     *notify.Publisher
	cameraService *service.CameraService
	wsHandler     *handler.WebSocketHandler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// @title Camera Service API
// @version 1.0.0
// @description Serves the pictures of a serial-attached digital still camera over HTTP

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8085
// @BasePath /api/v1
func main() {
	app, err := NewApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "camera-service")
	serviceLogger.LogServiceStart(cfg.App.Version,
		zap.String("environment", cfg.App.Environment),
		zap.String("model", cfg.Camera.Model),
		zap.String("transport", cfg.Camera.Transport),
		zap.String("device", cfg.Camera.Device),
	)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	if err := app.initializeDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app.initializeRepositories()

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initializeServer()

	return app, nil
}

// initializeDatabase connects to PostgreSQL and runs migrations when the
// database is enabled
func (app *Application) initializeDatabase() error {
	if !app.config.Database.Enabled {
		app.logger.Info("Database disabled, keeping catalog and transfers in memory")
		return nil
	}

	db, err := database.NewConnection(&app.config.Database, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	app.database = db

	migrator := database.NewMigrator(db, app.logger, &app.config.Database)
	if err := migrator.Up(); err != nil {
		db.Close()
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	app.logger.Info("Database initialized successfully")
	return nil
}

// initializeRepositories creates repository instances
func (app *Application) initializeRepositories() {
	if app.database != nil {
		app.imageRepo = repository.NewImageRepository(app.database, app.logger)
		app.transferRepo = repository.NewTransferRepository(app.database, app.logger)
	} else {
		app.imageRepo = repository.NewMemoryImageRepository()
		app.transferRepo = repository.NewMemoryTransferRepository()
	}
	app.logger.Debug("Repositories initialized", zap.Bool("persistent", app.database != nil))
}

// initializeServices creates the camera service and its collaborators
func (app *Application) initializeServices() error {
	app.registry = driver.NewRegistry(app.logger)
	driver.RegisterDefaultProfiles(app.registry)

	profile, err := app.registry.Lookup(app.config.Camera.Model)
	if err != nil {
		return err
	}
	if _, err := profile.LinkSpeed(app.config.Camera.BaudRate); err != nil {
		return fmt.Errorf("invalid camera.baud_rate: %w", err)
	}

	opener, err := protocol.NewOpener(&app.config.Camera, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create link opener: %w", err)
	}

	cache, err := storage.NewCache(app.config.Camera.CacheDir, app.logger)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}

	app.scanners = discovery.NewScannerManager(app.logger)
	app.scanners.RegisterScanner(serialscan.NewScanner(app.logger, nil))
	app.scanners.RegisterScanner(usb.NewScanner(app.logger))

	app.eventBus = handler.NewEventBus(app.logger)

	if app.config.MQTT.Enabled {
		app.publisher = notify.NewPublisher(&app.config.MQTT, app.logger)
	}

	app.cameraService = service.NewCameraService(
		&app.config.Camera,
		profile,
		opener,
		app.imageRepo,
		app.transferRepo,
		cache,
		app.eventBus,
		app.logger,
	)

	app.logger.Info("Services initialized successfully",
		zap.String("model", profile.Model),
		zap.String("vendor", profile.Vendor),
	)
	return nil
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() {
	healthHandler := handler.NewHealthHandler(app.databaseChecker(), app.cameraService, app.config, app.logger)
	if app.publisher != nil {
		healthHandler.SetBroker(app.publisher)
	}

	app.wsHandler = handler.NewWebSocketHandler(
		app.cameraService,
		app.eventBus,
		app.config.Security.AllowedOrigins,
		app.logger,
	)

	router := routes.NewRouter(app.config, app.logger, routes.Handlers{
		Health:    healthHandler,
		Camera:    handler.NewCameraHandler(app.cameraService, app.logger),
		Image:     handler.NewImageHandler(app.cameraService, app.logger),
		Transfer:  handler.NewTransferHandler(app.cameraService, app.logger),
		Discovery: handler.NewDiscoveryHandler(app.scanners, app.registry, app.logger),
		WebSocket: app.wsHandler,
	}).SetupRouter()

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
		zap.Bool("tls_enabled", app.config.Server.TLS.Enabled),
	)
}

// databaseChecker keeps a nil *database.DB out of the interface
func (app *Application) databaseChecker() handler.DatabaseChecker {
	if app.database == nil {
		return nil
	}
	return app.database
}

// startBackgroundServices starts the event fan-out and periodic jobs
func (app *Application) startBackgroundServices(ctx context.Context) {
	app.goBackground(app.eventBus.Start)
	app.goBackground(func() { app.wsHandler.Start(ctx) })

	if app.publisher != nil {
		if err := app.publisher.Connect(); err != nil {
			app.logger.Warn("MQTT broker unavailable, will keep retrying", zap.Error(err))
		}
		events := app.eventBus.Subscribe(handler.AllEvents)
		app.goBackground(func() { app.publisher.Run(ctx, events) })
	}

	if app.config.Camera.RefreshInterval > 0 {
		app.goBackground(func() { app.startCatalogRefresh(ctx) })
	}

	app.goBackground(func() { app.startCleanupService(ctx) })

	app.logger.Info("Background services started")
}

func (app *Application) goBackground(fn func()) {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		fn()
	}()
}

// startCatalogRefresh rereads the catalog periodically. A tick is skipped
// while another camera session is running.
func (app *Application) startCatalogRefresh(ctx context.Context) {
	interval := app.config.Camera.RefreshInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	app.logger.Info("Catalog refresh started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if app.cameraService.Busy() {
			app.logger.Debug("Camera busy, skipping catalog refresh")
			continue
		}

		refreshCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		images, err := app.cameraService.Refresh(refreshCtx)
		cancel()
		if err != nil {
			app.logger.Warn("Periodic catalog refresh failed", zap.Error(err))
			continue
		}
		app.logger.Debug("Periodic catalog refresh completed", zap.Int("images", len(images)))
	}
}

// startCleanupService removes old transfer records and idle websocket
// clients
func (app *Application) startCleanupService(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if ttl := app.config.Camera.TransferTTL; ttl > 0 {
			cleanupCtx, cancel := context.WithTimeout(ctx, time.Minute)
			deleted, err := app.cameraService.CleanupTransfers(cleanupCtx, ttl)
			cancel()
			if err != nil {
				app.logger.Error("Failed to cleanup old transfers", zap.Error(err))
			} else if deleted > 0 {
				app.logger.Info("Cleaned up old transfers", zap.Int64("deleted", deleted))
			}
		}

		if closed := app.wsHandler.CleanupStale(staleClientIdle); closed > 0 {
			app.logger.Info("Closed stale WebSocket clients", zap.Int("closed", closed))
		}
	}
}

// Start serves HTTP until a shutdown signal arrives
func (app *Application) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("Starting HTTP server", zap.String("address", app.server.Addr))

		var err error
		if app.config.Server.TLS.Enabled {
			err = app.server.ListenAndServeTLS(
				app.config.Server.TLS.CertFile,
				app.config.Server.TLS.KeyFile,
			)
		} else {
			err = app.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	app.startBackgroundServices(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		app.shutdown("shutdown signal received")
		return nil
	case err := <-errCh:
		app.shutdown("http server failed")
		return err
	}
}

// shutdown performs graceful shutdown
func (app *Application) shutdown(reason string) {
	utils.NewServiceLogger(app.logger, "camera-service").LogServiceStop(reason)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	app.cancel()
	app.wsHandler.Stop()
	app.eventBus.Stop()
	app.wg.Wait()

	if app.publisher != nil {
		app.publisher.Close()
	}

	if app.database != nil {
		if err := app.database.Close(); err != nil {
			app.logger.Error("Database close error", zap.Error(err))
		} else {
			app.logger.Info("Database connection closed")
		}
	}

	app.logger.Info("Application shutdown completed")
	_ = app.logger.Sync()
}
