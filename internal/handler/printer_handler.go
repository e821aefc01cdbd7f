// internal/handler/printer_handler.go
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printer-service/internal/model"
	"printer-service/internal/printer"
	"printer-service/internal/repository"
	"printer-service/internal/service"
	"printer-service/internal/utils"
)

// PrinterHandler handles printer connection, settings and print requests
type PrinterHandler struct {
	printerService *service.PrinterService
	logger         *utils.ServiceLogger
}

// NewPrinterHandler creates a new printer handler
func NewPrinterHandler(printerService *service.PrinterService, logger *zap.Logger) *PrinterHandler {
	return &PrinterHandler{
		printerService: printerService,
		logger:         utils.NewServiceLogger(logger, "printer-handler"),
	}
}

// ConnectRequest overrides the configured endpoint for one connect call
type ConnectRequest struct {
	Address string `json:"address"`
	Port    int    `json:"port" binding:"omitempty,min=1,max=65535"`
}

// Connect opens the printer connection
// @Summary Connect printer
// @Description Open the connection to the configured printer, optionally overriding address and port
// @Tags Printer
// @Accept json
// @Produce json
// @Param request body ConnectRequest false "Endpoint override"
// @Success 200 {object} utils.APIResponse{data=service.PrinterSnapshot} "Printer connected"
// @Failure 400 {object} utils.APIResponse "Invalid settings"
// @Failure 502 {object} utils.APIResponse "Connection failed"
// @Router /printer/connect [post]
func (h *PrinterHandler) Connect(c *gin.Context) {
	var req ConnectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.CodedErrorResponse(c, http.StatusBadRequest, printer.CodeErrorParameter, "Invalid request body", err)
			return
		}
	}

	if err := h.printerService.Connect(c.Request.Context(), req.Address, req.Port); err != nil {
		h.logger.Error("Failed to connect printer", zap.Error(err))
		h.printerError(c, "Failed to connect printer", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Printer connected", h.printerService.Snapshot())
}

// Disconnect closes the printer connection
// @Summary Disconnect printer
// @Tags Printer
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.PrinterSnapshot} "Printer disconnected"
// @Router /printer/disconnect [post]
func (h *PrinterHandler) Disconnect(c *gin.Context) {
	h.printerService.Disconnect(c.Request.Context())
	utils.SuccessResponse(c, http.StatusOK, "Printer disconnected", h.printerService.Snapshot())
}

// GetStatus reports connection state and the last decoded status
// @Summary Printer status
// @Tags Printer
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.PrinterSnapshot} "Printer status retrieved"
// @Router /printer/status [get]
func (h *PrinterHandler) GetStatus(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Printer status retrieved", h.printerService.Snapshot())
}

// GetSettings returns the current printer settings
// @Summary Printer settings
// @Tags Printer
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.PrinterSettings} "Printer settings retrieved"
// @Router /printer/settings [get]
func (h *PrinterHandler) GetSettings(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Printer settings retrieved", h.printerService.Settings())
}

// UpdateSettings merges a partial update into the printer settings
// @Summary Update printer settings
// @Description Fields left out of the body keep their current value
// @Tags Printer
// @Accept json
// @Produce json
// @Param request body model.SettingsPatch true "Settings patch"
// @Success 200 {object} utils.APIResponse{data=model.PrinterSettings} "Printer settings updated"
// @Failure 400 {object} utils.APIResponse "Invalid settings"
// @Router /printer/settings [put]
func (h *PrinterHandler) UpdateSettings(c *gin.Context) {
	var patch model.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		utils.CodedErrorResponse(c, http.StatusBadRequest, printer.CodeErrorParameter, "Invalid request body", err)
		return
	}

	settings, err := h.printerService.UpdateSettings(patch)
	if err != nil {
		h.printerError(c, "Failed to update printer settings", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Printer settings updated", settings)
}

// StartMonitor starts status polling
// @Summary Start status monitor
// @Tags Printer
// @Produce json
// @Success 200 {object} utils.APIResponse "Status monitor started"
// @Failure 409 {object} utils.APIResponse "Printer not connected"
// @Router /printer/monitor/start [post]
func (h *PrinterHandler) StartMonitor(c *gin.Context) {
	if err := h.printerService.StartMonitor(); err != nil {
		h.printerError(c, "Failed to start status monitor", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Status monitor started", nil)
}

// StopMonitor stops status polling
// @Summary Stop status monitor
// @Tags Printer
// @Produce json
// @Success 200 {object} utils.APIResponse "Status monitor stopped"
// @Failure 409 {object} utils.APIResponse "Printer not connected"
// @Router /printer/monitor/stop [post]
func (h *PrinterHandler) StopMonitor(c *gin.Context) {
	if err := h.printerService.StopMonitor(); err != nil {
		h.printerError(c, "Failed to stop status monitor", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Status monitor stopped", nil)
}

// Print prints a receipt. Print failures are reported in the body with
// status 200; only malformed requests are rejected.
// @Summary Print receipt
// @Tags Printer
// @Accept json
// @Produce json
// @Param request body service.PrintRequest true "Receipt and print options"
// @Success 200 {object} utils.APIResponse{data=model.PrintResult} "Print result"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Router /printer/print [post]
func (h *PrinterHandler) Print(c *gin.Context) {
	var req service.PrintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.CodedErrorResponse(c, http.StatusBadRequest, printer.CodeErrorParameter, "Invalid request body", err)
		return
	}
	if req.Receipt == nil {
		utils.CodedErrorResponse(c, http.StatusBadRequest, printer.CodeErrorParameter, "Receipt is required", nil)
		return
	}
	if req.Options.Copies < 0 {
		utils.CodedErrorResponse(c, http.StatusBadRequest, printer.CodeErrorParameter, "Copies must not be negative", nil)
		return
	}

	result := h.printerService.Print(c.Request.Context(), req)

	response := utils.APIResponse{
		Success:   result.Success,
		Message:   "Receipt printed",
		Data:      result,
		Timestamp: time.Now(),
		RequestID: utils.GetRequestID(c),
	}
	if result.Error != nil {
		response.Message = "Print failed"
		response.Error = &utils.APIError{Code: result.Error.Code, Message: result.Error.Message}
	}
	c.JSON(http.StatusOK, response)
}

// ListJobs returns journaled print jobs, newest first
// @Summary List print jobs
// @Tags Jobs
// @Produce json
// @Param status query string false "Job status" Enums(SUCCESS, FAILED, TIMEOUT, CANCELED)
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} utils.APIResponse{data=object{count=int,jobs=[]model.JobRecord}} "Print jobs retrieved"
// @Failure 400 {object} utils.APIResponse "Invalid query"
// @Router /printer/jobs [get]
func (h *PrinterHandler) ListJobs(c *gin.Context) {
	filter, err := parseJobFilter(c)
	if err != nil {
		utils.CodedErrorResponse(c, http.StatusBadRequest, printer.CodeErrorParameter, "Invalid query", err)
		return
	}

	jobs, err := h.printerService.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list print jobs", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list print jobs", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Print jobs retrieved", gin.H{
		"count": len(jobs),
		"jobs":  jobs,
	})
}

// GetJob returns one journaled print job
// @Summary Get print job
// @Tags Jobs
// @Produce json
// @Param job_id path string true "Job ID"
// @Success 200 {object} utils.APIResponse{data=model.JobRecord} "Print job retrieved"
// @Failure 404 {object} utils.APIResponse "Job not found"
// @Router /printer/jobs/{job_id} [get]
func (h *PrinterHandler) GetJob(c *gin.Context) {
	job, err := h.printerService.GetJob(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Print job not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get print job", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Print job retrieved", job)
}

// GetJobStats summarizes print jobs over a window
// @Summary Print job statistics
// @Tags Jobs
// @Produce json
// @Param since query string false "Window length" default(24h)
// @Success 200 {object} utils.APIResponse{data=repository.JobStats} "Print job statistics retrieved"
// @Failure 400 {object} utils.APIResponse "Invalid query"
// @Router /printer/jobs/stats [get]
func (h *PrinterHandler) GetJobStats(c *gin.Context) {
	window, err := time.ParseDuration(c.DefaultQuery("since", "24h"))
	if err != nil || window <= 0 {
		utils.CodedErrorResponse(c, http.StatusBadRequest, printer.CodeErrorParameter, "Invalid since window", err)
		return
	}

	stats, err := h.printerService.JobStats(c.Request.Context(), time.Now().Add(-window))
	if err != nil {
		h.logger.Error("Failed to get print job stats", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get print job stats", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Print job statistics retrieved", stats)
}

func (h *PrinterHandler) printerError(c *gin.Context, message string, err error) {
	code := printer.CodeOf(err)
	utils.CodedErrorResponse(c, statusForCode(code), code, message, err)
}

// statusForCode maps printer error codes onto HTTP statuses
func statusForCode(code string) int {
	switch code {
	case printer.CodeInvalidSettings, printer.CodeErrorParameter, printer.CodeDeviceTypeInvalid:
		return http.StatusBadRequest
	case printer.CodeNotConnected, printer.CodeNotInitialized, printer.CodeDeviceInUse, printer.CodeDeviceBusy:
		return http.StatusConflict
	case printer.CodeConnectTimeout:
		return http.StatusGatewayTimeout
	case printer.CodeDeviceNotFound, printer.CodeDeviceOpenError, printer.CodeSSLConnectFail, printer.CodeDisconnect:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseJobFilter(c *gin.Context) (*repository.JobFilter, error) {
	filter := &repository.JobFilter{}
	if status := c.Query("status"); status != "" {
		s := model.JobStatus(status)
		filter.Status = &s
	}
	if device := c.Query("device_id"); device != "" {
		filter.DeviceID = &device
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		filter.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, errors.New("offset must be a non-negative integer")
		}
		filter.Offset = n
	}
	return filter, nil
}
