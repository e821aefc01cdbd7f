// internal/service/printer_service.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"printer-service/internal/config"
	"printer-service/internal/model"
	"printer-service/internal/printer"
	"printer-service/internal/repository"
	"printer-service/internal/utils"
	"printer-service/pkg/driver"
)

// journalTimeout bounds a journal write after the print call returned
const journalTimeout = 3 * time.Second

// PrintRequest is one print call from the API
type PrintRequest struct {
	Receipt *model.ReceiptData `json:"receipt"`
	Options model.PrintOptions `json:"options"`
}

// PrinterSnapshot is the state reported by the status endpoint
type PrinterSnapshot struct {
	State     model.ConnectionState `json:"state"`
	Connected bool                  `json:"connected"`
	Endpoint  string                `json:"endpoint"`
	DeviceID  string                `json:"device_id"`
	Status    *model.PrinterStatus  `json:"status,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}

// PrinterService wires the printer client to the journal and the event bus
type PrinterService struct {
	client *printer.Client
	jobs   repository.JobRepository
	bus    *EventBus
	config config.PrinterConfig
	logger *utils.ServiceLogger
}

// NewPrinterService registers itself as the client's observer
func NewPrinterService(
	client *printer.Client,
	jobs repository.JobRepository,
	bus *EventBus,
	cfg config.PrinterConfig,
	logger *zap.Logger,
) *PrinterService {
	s := &PrinterService{
		client: client,
		jobs:   jobs,
		bus:    bus,
		config: cfg,
		logger: utils.NewServiceLogger(logger, "printer-service"),
	}
	client.SetObserver(s.observer())
	return s
}

// Bootstrap connects and starts monitoring when configured to
func (s *PrinterService) Bootstrap(ctx context.Context) {
	if !s.config.AutoConnect {
		return
	}
	if err := s.Connect(ctx, "", 0); err != nil {
		s.logger.Warn("Auto connect failed", zap.Error(err))
		return
	}
	if s.config.AutoMonitor {
		if err := s.client.StartMonitor(); err != nil {
			s.logger.Warn("Failed to start status monitor", zap.Error(err))
		}
	}
}

// Shutdown stops monitoring and closes the connection
func (s *PrinterService) Shutdown(ctx context.Context) {
	if s.client.IsConnected() {
		_ = s.client.StopMonitor()
	}
	s.client.Disconnect(ctx)
}

// Connect opens the printer connection. Empty address or zero port keep
// the configured values.
func (s *PrinterService) Connect(ctx context.Context, address string, port int) error {
	return s.client.Connect(ctx, address, port)
}

// Disconnect closes the printer connection
func (s *PrinterService) Disconnect(ctx context.Context) {
	s.client.Disconnect(ctx)
}

// Snapshot reports the connection state and, while connected, the last
// decoded printer status
func (s *PrinterService) Snapshot() PrinterSnapshot {
	settings := s.client.Settings()
	snap := PrinterSnapshot{
		State:     s.client.ConnectionStatus(),
		Connected: s.client.IsConnected(),
		Endpoint:  settings.Endpoint(),
		DeviceID:  settings.DeviceID,
		Timestamp: time.Now(),
	}
	if snap.Connected {
		st := s.client.LastStatus()
		snap.Status = &st
	}
	return snap
}

func (s *PrinterService) Settings() model.PrinterSettings {
	return s.client.Settings()
}

// UpdateSettings applies patch and announces the new settings
func (s *PrinterService) UpdateSettings(patch model.SettingsPatch) (model.PrinterSettings, error) {
	next, err := s.client.UpdateSettings(patch)
	if err != nil {
		return next, err
	}
	s.publish(model.EventSettingsUpdate, model.JSONObject{
		"endpoint": next.Endpoint(),
		"density":  next.Density,
		"cut_type": next.CutType,
	})
	return next, nil
}

func (s *PrinterService) StartMonitor() error { return s.client.StartMonitor() }

func (s *PrinterService) StopMonitor() error { return s.client.StopMonitor() }

// Print prints a receipt and journals the result. It returns the print
// result unchanged; journal failures are only logged.
func (s *PrinterService) Print(ctx context.Context, req PrintRequest) model.PrintResult {
	started := time.Now()
	result := s.client.PrintReceipt(ctx, req.Receipt, req.Options)
	duration := time.Since(started)

	s.journal(ctx, req, result, duration)

	data := model.JSONObject{
		"job_id":      result.JobID,
		"success":     result.Success,
		"duration_ms": duration.Milliseconds(),
	}
	if result.Error != nil {
		data["code"] = result.Error.Code
	}
	s.publish(model.EventJobCompleted, data)
	return result
}

// ListJobs returns journal entries newest first
func (s *PrinterService) ListJobs(ctx context.Context, filter *repository.JobFilter) ([]*model.JobRecord, error) {
	return s.jobs.List(ctx, filter)
}

// GetJob returns one journal entry
func (s *PrinterService) GetJob(ctx context.Context, jobID string) (*model.JobRecord, error) {
	return s.jobs.GetByJobID(ctx, jobID)
}

// JobStats summarizes jobs since the given time
func (s *PrinterService) JobStats(ctx context.Context, since time.Time) (*repository.JobStats, error) {
	return s.jobs.GetStats(ctx, since)
}

// PruneJobs removes journal entries older than retention
func (s *PrinterService) PruneJobs(ctx context.Context, retention time.Duration) (int64, error) {
	return s.jobs.DeleteOlderThan(ctx, time.Now().Add(-retention))
}

func (s *PrinterService) journal(ctx context.Context, req PrintRequest, result model.PrintResult, duration time.Duration) {
	if s.jobs == nil || result.JobID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()

	record := NewJobRecord(s.client.Settings().DeviceID, req, result, duration)
	if err := s.jobs.Create(ctx, record); err != nil {
		utils.LogError(s.logger.Logger, "Failed to journal print job", err, zap.String("job_id", result.JobID))
	}
}

// NewJobRecord converts a print result into its journal form
func NewJobRecord(deviceID string, req PrintRequest, result model.PrintResult, duration time.Duration) *model.JobRecord {
	copies := req.Options.Copies
	if copies < 1 {
		copies = 1
	}
	record := &model.JobRecord{
		JobID:      result.JobID,
		DeviceID:   deviceID,
		Copies:     copies,
		Status:     model.StatusOf(result),
		DurationMs: int(duration.Milliseconds()),
		Result: model.JSONObject{
			"success":   result.Success,
			"timestamp": result.Timestamp,
		},
		CreatedAt: time.Now(),
	}
	if req.Receipt != nil {
		record.ReceiptNumber = req.Receipt.Transaction.ReceiptNumber
	}
	if result.Error != nil {
		code, msg := result.Error.Code, result.Error.Message
		record.ErrorCode = &code
		record.ErrorMessage = &msg
		record.Result["error"] = result.Error
	}
	return record
}

func (s *PrinterService) publish(eventType model.EventType, data model.JSONObject) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(model.NewPrinterEvent(eventType, s.client.Settings().DeviceID, data))
}

func (s *PrinterService) emit(eventType model.EventType) func() {
	return func() { s.publish(eventType, nil) }
}

// observer maps client callbacks onto bus events
func (s *PrinterService) observer() printer.Observer {
	return printer.Observer{
		OnConnect:    s.emit(model.EventConnected),
		OnDisconnect: s.emit(model.EventDisconnected),
		OnReceive: func(resp driver.Response) {
			s.publish(model.EventReceive, model.JSONObject{
				"job_id":  resp.JobID,
				"success": resp.Success,
				"code":    resp.Code,
				"status":  resp.Status,
			})
		},
		OnStatusChange: func(status model.PrinterStatus) {
			s.publish(model.EventStatusChange, model.JSONObject{
				"online":         status.Online,
				"cover_open":     status.CoverOpen,
				"paper_end":      status.PaperEnd,
				"paper_near_end": status.PaperNearEnd,
				"drawer_open":    status.DrawerOpen,
				"error":          status.Error,
				"raw":            status.Raw,
			})
		},
		OnError: func(err *printer.Error) {
			s.publish(model.EventError, model.JSONObject{
				"code":    err.Code,
				"message": err.Message,
			})
		},
		OnOnline:       s.emit(model.EventOnline),
		OnOffline:      s.emit(model.EventOffline),
		OnPowerOff:     s.emit(model.EventPowerOff),
		OnCoverOK:      s.emit(model.EventCoverOK),
		OnCoverOpen:    s.emit(model.EventCoverOpen),
		OnPaperOK:      s.emit(model.EventPaperOK),
		OnPaperNearEnd: s.emit(model.EventPaperNearEnd),
		OnPaperEnd:     s.emit(model.EventPaperEnd),
		OnDrawerClosed: s.emit(model.EventDrawerClosed),
		OnDrawerOpen:   s.emit(model.EventDrawerOpen),
	}
}
