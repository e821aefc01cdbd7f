// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	_ "printer-service/docs"
	"printer-service/internal/config"
	"printer-service/internal/database"
	"printer-service/internal/discovery"
	"printer-service/internal/discovery/mdns"
	"printer-service/internal/discovery/serial"
	"printer-service/internal/discovery/tcp"
	"printer-service/internal/discovery/usb"
	"printer-service/internal/driver/epson"
	"printer-service/internal/middleware"
	"printer-service/internal/printer"
	"printer-service/internal/receipt"
	"printer-service/internal/repository"
	"printer-service/internal/routes"
	"printer-service/internal/service"
	"printer-service/internal/utils"
)

// Application represents the main application
type Application struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	router   *routes.Router
	database *database.DB

	// Services
	eventBus         *service.EventBus
	printerService   *service.PrinterService
	discoveryService *service.DiscoveryService

	// Repositories
	jobRepo repository.JobRepository

	limiter   *middleware.RateLimiter
	announcer *mdns.Announcer

	ctx    context.Context
	cancel context.CancelFunc
}

// @title Printer Service API
// @version 1.0.0
// @description Print agent for Japanese ESC/POS receipt printers

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8085
// @BasePath /api/v1
func main() {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Printf("Failed to load .env: %v\n", err)
	}

	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
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

	serviceLogger := utils.NewServiceLogger(logger, "printer-service")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	app := &Application{
		config: cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := app.initializeDatabase(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app.initializeRepositories()
	app.initializeServices()
	app.initializeServer()

	return app, nil
}

// initializeDatabase opens the journal database and runs migrations when
// the journal is enabled
func (app *Application) initializeDatabase() error {
	if !app.config.Database.Enabled {
		app.logger.Info("Journal database disabled, keeping print jobs in memory")
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
		app.jobRepo = repository.NewJobRepository(app.database, app.logger)
	} else {
		app.jobRepo = repository.NewMemoryJobRepository(app.config.Database.MemoryCapacity)
	}
	app.logger.Info("Repositories initialized successfully")
}

// initializeServices wires the transport, printer client, event bus and
// discovery
func (app *Application) initializeServices() {
	pc := app.config.Printer

	transport := epson.NewTransport(pc.Settings, app.logger,
		epson.WithReconnect(pc.ReconnectAttempts, pc.ReconnectDelay),
	)
	client := printer.NewClient(transport, pc.Settings, app.logger,
		printer.WithFormatter(receipt.NewFormatter(receipt.WithRegisterID(pc.RegisterID))),
	)

	app.eventBus = service.NewEventBus(app.logger)
	app.printerService = service.NewPrinterService(client, app.jobRepo, app.eventBus, pc, app.logger)

	app.discoveryService = service.NewDiscoveryService(
		app.newScannerManager(),
		app.printerService,
		app.config.Discovery.ScanTimeout,
		app.logger,
	)

	if app.config.Security.RateLimitEnabled {
		app.limiter = middleware.NewRateLimiter(app.config.Security.RateLimitRequests, app.config.Security.RateLimitBurst)
	}

	app.logger.Info("Services initialized successfully")
}

// newScannerManager registers the printer scanners the configuration enables
func (app *Application) newScannerManager() *discovery.ScannerManager {
	dc := app.config.Discovery
	manager := discovery.NewScannerManager(app.logger)

	if len(dc.CIDRs) > 0 {
		manager.RegisterScanner(tcp.NewScanner(app.logger, tcp.Config{
			NetworkRanges:  dc.CIDRs,
			Ports:          dc.Ports,
			DialTimeout:    dc.DialTimeout,
			MaxConcurrency: dc.MaxConcurrency,
		}))
	}
	if dc.MDNSEnabled {
		manager.RegisterScanner(mdns.NewScanner(app.logger, dc.MDNSService, dc.MDNSTimeout))
	}
	manager.RegisterScanner(usb.NewScanner(app.logger))
	manager.RegisterScanner(serial.NewScanner(app.logger))

	return manager
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() {
	app.router = routes.NewRouter(
		app.config,
		app.logger,
		app.database,
		app.printerService,
		app.discoveryService,
		app.eventBus,
		app.limiter,
	)

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      app.router.SetupRouter(),
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
		zap.Bool("tls_enabled", app.config.Server.TLS.Enabled),
	)
}

// startBackgroundServices starts the event bus, printer bootstrap and
// housekeeping loops
func (app *Application) startBackgroundServices() {
	go app.eventBus.Start(app.ctx)

	go func() {
		ctx, cancel := context.WithTimeout(app.ctx, app.config.Printer.Settings.Timeout)
		defer cancel()
		app.printerService.Bootstrap(ctx)
	}()

	if app.limiter != nil {
		go app.limiter.RunCleanup(app.ctx)
	}

	go app.startCleanupService()

	if app.config.Discovery.Announce {
		app.announce()
	}

	app.logger.Info("Background services started")
}

// announce advertises the agent over mDNS
func (app *Application) announce() {
	port, err := strconv.Atoi(app.config.Server.Port)
	if err != nil {
		app.logger.Warn("Cannot announce agent, server port is not numeric", zap.String("port", app.config.Server.Port))
		return
	}
	host, _ := os.Hostname()
	announcer, err := mdns.Announce(
		fmt.Sprintf("%s-%s", app.config.App.Name, host),
		app.config.Discovery.AnnounceService,
		port,
		[]string{"version=" + app.config.App.Version, "path=/api/v1"},
		app.logger,
	)
	if err != nil {
		app.logger.Warn("mDNS announcement failed", zap.Error(err))
		return
	}
	app.announcer = announcer
}

// startCleanupService prunes journal entries older than the retention
func (app *Application) startCleanupService() {
	retention := app.config.Database.Retention
	if retention <= 0 {
		return
	}

	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	app.logger.Info("Cleanup service started", zap.Duration("retention", retention))

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(app.ctx, 5*time.Minute)
			deleted, err := app.printerService.PruneJobs(ctx, retention)
			cancel()
			if err != nil {
				app.logger.Error("Failed to cleanup old print jobs", zap.Error(err))
			} else if deleted > 0 {
				app.logger.Info("Cleaned up old print jobs", zap.Int64("deleted", deleted))
			}
		}
	}
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "printer-service")
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
	defer cancel()

	app.announcer.Shutdown()
	app.router.Close()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	app.printerService.Shutdown(ctx)
	app.cancel()

	if app.database != nil {
		if err := app.database.Close(); err != nil {
			app.logger.Error("Database close error", zap.Error(err))
		} else {
			app.logger.Info("Database connection closed")
		}
	}

	app.logger.Info("Application shutdown completed")

	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}

// Start runs the HTTP server and blocks until shutdown
func (app *Application) Start() error {
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

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
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.startBackgroundServices()
	app.waitForShutdown()

	return nil
}
