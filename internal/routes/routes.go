// internal/routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"printer-service/internal/config"
	"printer-service/internal/database"
	"printer-service/internal/handler"
	"printer-service/internal/middleware"
	"printer-service/internal/service"
	"printer-service/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config           *config.Config
	logger           *zap.Logger
	db               *database.DB
	printerService   *service.PrinterService
	discoveryService *service.DiscoveryService
	eventBus         *service.EventBus
	limiter          *middleware.RateLimiter
	wsHandler        *handler.WebSocketHandler
}

// NewRouter creates a new router instance. db may be nil when the job
// journal is kept in memory.
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	db *database.DB,
	printerService *service.PrinterService,
	discoveryService *service.DiscoveryService,
	eventBus *service.EventBus,
	limiter *middleware.RateLimiter,
) *Router {
	return &Router{
		config:           config,
		logger:           logger,
		db:               db,
		printerService:   printerService,
		discoveryService: discoveryService,
		eventBus:         eventBus,
		limiter:          limiter,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// Close disconnects WebSocket clients
func (r *Router) Close() {
	if r.wsHandler != nil {
		r.wsHandler.Close()
	}
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Security))

	if r.limiter != nil {
		router.Use(middleware.RateLimitMiddleware(&r.config.Security, r.limiter, serviceLogger))
	}

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(r.db, r.printerService, r.config, r.logger)
	printerHandler := handler.NewPrinterHandler(r.printerService, r.logger)
	discoveryHandler := handler.NewDiscoveryHandler(r.discoveryService, r.logger)
	r.wsHandler = handler.NewWebSocketHandler(r.printerService, r.eventBus, r.config.Security.AllowedOrigins, r.logger)

	r.addHealthRoutes(router, healthHandler)

	apiV1 := router.Group("/api/v1")
	r.addPrinterRoutes(apiV1, printerHandler)
	r.addDiscoveryRoutes(apiV1, discoveryHandler)

	r.addWebSocketRoutes(router, r.wsHandler)
	r.addDocumentationRoutes(router)

	r.logger.Info("All routes configured successfully")
}

// addHealthRoutes sets up health check routes
func (r *Router) addHealthRoutes(router *gin.Engine, handler *handler.HealthHandler) {
	health := router.Group("")
	{
		health.GET("/health", handler.HealthCheck)
		health.GET("/health/db", handler.DatabaseHealthCheck)
		health.GET("/ready", handler.ReadinessCheck)
		health.GET("/live", handler.LivenessCheck)
	}
}

// addPrinterRoutes sets up printer control, print and journal routes
func (r *Router) addPrinterRoutes(api *gin.RouterGroup, handler *handler.PrinterHandler) {
	printer := api.Group("/printer")
	{
		printer.POST("/connect", handler.Connect)
		printer.POST("/disconnect", handler.Disconnect)
		printer.GET("/status", handler.GetStatus)
		printer.GET("/settings", handler.GetSettings)
		printer.PUT("/settings", handler.UpdateSettings)
		printer.POST("/monitor/start", handler.StartMonitor)
		printer.POST("/monitor/stop", handler.StopMonitor)
		printer.POST("/print", handler.Print)

		jobs := printer.Group("/jobs")
		{
			jobs.GET("", handler.ListJobs)
			jobs.GET("/stats", handler.GetJobStats)
			jobs.GET("/:job_id", handler.GetJob)
		}
	}
}

// addDiscoveryRoutes sets up printer discovery routes
func (r *Router) addDiscoveryRoutes(api *gin.RouterGroup, handler *handler.DiscoveryHandler) {
	discovery := api.Group("/discovery")
	{
		discovery.GET("/printers", handler.ScanPrinters)
		discovery.POST("/printers/use", handler.UsePrinter)
	}
}

// addWebSocketRoutes sets up WebSocket routes
func (r *Router) addWebSocketRoutes(router *gin.Engine, handler *handler.WebSocketHandler) {
	ws := router.Group("/ws")
	{
		ws.GET("/events", handler.HandleEventConnection)
		ws.GET("/stats", handler.GetConnectionStats)
	}
}

// addDocumentationRoutes sets up documentation routes
func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}
