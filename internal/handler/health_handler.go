// internal/handler/health_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printer-service/internal/config"
	"printer-service/internal/database"
	"printer-service/internal/service"
	"printer-service/internal/utils"
)

// HealthHandler handles health check requests. db is nil when the job
// journal is kept in memory.
type HealthHandler struct {
	db        *database.DB
	printer   *service.PrinterService
	config    *config.Config
	startedAt time.Time
	logger    *utils.ServiceLogger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.DB, printerService *service.PrinterService, config *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:        db,
		printer:   printerService,
		config:    config,
		startedAt: time.Now(),
		logger:    utils.NewServiceLogger(logger, "health-handler"),
	}
}

// HealthCheck performs general health check
// @Summary Health check
// @Description Overall agent health: printer connection state and journal reachability
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "Agent is healthy or degraded"
// @Failure 503 {object} HealthResponse "Journal database unreachable"
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	health := &HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   h.config.App.Name,
		Version:   h.config.App.Version,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Checks:    make(map[string]CheckResult),
	}

	snap := h.printer.Snapshot()
	printerCheck := CheckResult{
		Status:  "healthy",
		Message: "Printer connected",
		Data: map[string]interface{}{
			"state":    snap.State,
			"endpoint": snap.Endpoint,
		},
	}
	if !snap.Connected {
		printerCheck.Status = "unavailable"
		printerCheck.Message = "Printer not connected"
		health.Status = "degraded"
	} else if snap.Status != nil && snap.Status.Error != "" {
		printerCheck.Status = "degraded"
		printerCheck.Message = snap.Status.Error
		health.Status = "degraded"
	}
	health.Checks["printer"] = printerCheck

	switch {
	case h.db == nil:
		health.Checks["journal"] = CheckResult{Status: "healthy", Message: "In-memory journal"}
	case h.db.HealthCheck() != nil:
		health.Status = "unhealthy"
		health.Checks["journal"] = CheckResult{Status: "unhealthy", Message: "Journal database unreachable"}
	default:
		stats := h.db.GetStats()
		health.Checks["journal"] = CheckResult{
			Status:  "healthy",
			Message: "Database connection OK",
			Data: map[string]interface{}{
				"open_connections": stats.OpenConnections,
				"in_use":           stats.InUse,
				"idle":             stats.Idle,
			},
		}
	}

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, health)
}

// DatabaseHealthCheck checks journal database connectivity
// @Summary Journal database health check
// @Tags Health
// @Produce json
// @Success 200 {object} utils.APIResponse "Database is healthy"
// @Failure 503 {object} utils.APIResponse "Database is unhealthy or disabled"
// @Router /health/db [get]
func (h *HealthHandler) DatabaseHealthCheck(c *gin.Context) {
	if h.db == nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Journal database disabled", nil)
		return
	}

	startTime := time.Now()
	if err := h.db.HealthCheck(); err != nil {
		h.logger.Error("Database health check failed", zap.Error(err))
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Database unhealthy", err)
		return
	}

	stats := h.db.GetStats()
	utils.SuccessResponse(c, http.StatusOK, "Database is healthy", gin.H{
		"status":           "healthy",
		"response_time_ms": time.Since(startTime).Milliseconds(),
		"stats": gin.H{
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
			"wait_count":       stats.WaitCount,
			"wait_duration":    stats.WaitDuration,
		},
	})
}

// ReadinessCheck reports whether the agent can accept print requests
// @Summary Readiness check
// @Tags Health
// @Produce json
// @Success 200 {object} object{status=string,timestamp=string} "Agent is ready"
// @Failure 503 {object} object{status=string,reason=string} "Agent is not ready"
// @Router /ready [get]
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if h.db != nil {
		if err := h.db.HealthCheck(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": "database not available",
			})
			return
		}
	}
	if !h.printer.Snapshot().Connected {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "printer not connected",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now(),
	})
}

// LivenessCheck reports that the process responds
// @Summary Liveness check
// @Tags Health
// @Produce json
// @Success 200 {object} object{status=string,timestamp=string} "Agent is alive"
// @Router /live [get]
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
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
