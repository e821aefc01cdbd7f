// internal/handler/discovery_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printer-service/internal/printer"
	"printer-service/internal/service"
	"printer-service/internal/utils"
)

// DiscoveryHandler handles printer discovery requests
type DiscoveryHandler struct {
	discoveryService *service.DiscoveryService
	logger           *utils.ServiceLogger
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(discoveryService *service.DiscoveryService, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		discoveryService: discoveryService,
		logger:           utils.NewServiceLogger(logger, "discovery-handler"),
	}
}

// ScanPrinters scans for receipt printers
// @Summary Scan for printers
// @Description Run the printer scanners; cached=true returns the previous result without scanning
// @Tags Discovery
// @Produce json
// @Param type query string false "Scanner type, all when empty" Enums(tcp, mdns, usb, serial)
// @Param cached query bool false "Return the last result"
// @Success 200 {object} utils.APIResponse{data=service.DiscoveryResult} "Printer scan completed"
// @Failure 404 {object} utils.APIResponse "No cached result"
// @Failure 500 {object} utils.APIResponse "Scan failed"
// @Router /discovery/printers [get]
func (h *DiscoveryHandler) ScanPrinters(c *gin.Context) {
	if c.Query("cached") == "true" {
		last := h.discoveryService.Last()
		if last == nil {
			utils.ErrorResponse(c, http.StatusNotFound, "No discovery result yet", nil)
			return
		}
		utils.SuccessResponse(c, http.StatusOK, "Cached printer scan", last)
		return
	}

	result, err := h.discoveryService.Scan(c.Request.Context(), c.Query("type"))
	if err != nil {
		h.logger.Error("Failed to scan printers", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to scan printers", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Printer scan completed", result)
}

// UsePrinterRequest selects a discovered printer by key
type UsePrinterRequest struct {
	Key string `json:"key" binding:"required"`
}

// UsePrinter points the printer settings at a discovered printer
// @Summary Use discovered printer
// @Tags Discovery
// @Accept json
// @Produce json
// @Param request body UsePrinterRequest true "Discovered printer key"
// @Success 200 {object} utils.APIResponse{data=model.PrinterSettings} "Printer settings updated"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 404 {object} utils.APIResponse "Printer not in discovery results"
// @Router /discovery/printers/use [post]
func (h *DiscoveryHandler) UsePrinter(c *gin.Context) {
	var req UsePrinterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.CodedErrorResponse(c, http.StatusBadRequest, printer.CodeErrorParameter, "Invalid request body", err)
		return
	}

	settings, err := h.discoveryService.Use(req.Key)
	if err != nil {
		if code := printer.CodeOf(err); code != printer.CodeUnknown {
			utils.CodedErrorResponse(c, statusForCode(code), code, "Failed to apply printer settings", err)
			return
		}
		utils.ErrorResponse(c, http.StatusNotFound, "Printer not in discovery results", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Printer settings updated", settings)
}
