package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"printer-service/internal/config"
	"printer-service/internal/model"
	"printer-service/internal/printer"
	"printer-service/internal/printer/printertest"
	"printer-service/internal/repository"
	"printer-service/pkg/driver"
)

type harness struct {
	transport *printertest.Transport
	service   *PrinterService
	jobs      repository.JobRepository
	bus       *EventBus
	events    <-chan model.PrinterEvent
}

func newHarness(t *testing.T, cfg config.PrinterConfig) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)

	settings := model.DefaultSettings()
	settings.Address = "192.168.0.50"
	settings.Timeout = 500 * time.Millisecond
	cfg.Settings = settings

	transport := printertest.NewTransport()
	client := printer.NewClient(transport, settings, logger)
	jobs := repository.NewMemoryJobRepository(10)
	bus := NewEventBus(logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go bus.Start(ctx)

	events, unsubscribe := bus.Subscribe()
	t.Cleanup(unsubscribe)

	return &harness{
		transport: transport,
		service:   NewPrinterService(client, jobs, bus, cfg, logger),
		jobs:      jobs,
		bus:       bus,
		events:    events,
	}
}

func (h *harness) waitEvent(t *testing.T, want model.EventType) model.PrinterEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-h.events:
			if ev.EventType == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("event %s not published", want)
		}
	}
}

func sampleReceipt() *model.ReceiptData {
	return &model.ReceiptData{
		Store:       model.StoreInfo{Name: "テスト店"},
		Transaction: model.TransactionInfo{ReceiptNumber: "000123", IssuedAt: time.Now()},
		Items: []model.LineItem{{
			Name: "コーヒー", Quantity: 1,
			UnitPrice: decimal.NewFromInt(300), Total: decimal.NewFromInt(300),
		}},
		Summary: model.Summary{Subtotal: decimal.NewFromInt(300), Total: decimal.NewFromInt(300)},
	}
}

func TestBootstrapAutoConnect(t *testing.T) {
	h := newHarness(t, config.PrinterConfig{AutoConnect: true, AutoMonitor: true})

	h.service.Bootstrap(context.Background())

	snap := h.service.Snapshot()
	if !snap.Connected || snap.State != model.StateConnected {
		t.Fatalf("not connected after bootstrap: %+v", snap)
	}
	if snap.Status == nil {
		t.Error("connected snapshot should carry a status")
	}
	h.waitEvent(t, model.EventConnected)
}

func TestBootstrapWithoutAutoConnect(t *testing.T) {
	h := newHarness(t, config.PrinterConfig{})
	h.service.Bootstrap(context.Background())

	if h.transport.Connects() != 0 {
		t.Error("bootstrap must not connect when auto connect is off")
	}
	snap := h.service.Snapshot()
	if snap.Connected || snap.Status != nil {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestPrintJournalsAndPublishes(t *testing.T) {
	h := newHarness(t, config.PrinterConfig{})
	ctx := context.Background()
	if err := h.service.Connect(ctx, "", 0); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	result := h.service.Print(ctx, PrintRequest{Receipt: sampleReceipt(), Options: model.PrintOptions{Copies: 2}})
	if !result.Success {
		t.Fatalf("print failed: %+v", result.Error)
	}

	rec, err := h.service.GetJob(ctx, result.JobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if rec.Status != model.JobStatusSuccess || rec.ReceiptNumber != "000123" || rec.Copies != 2 {
		t.Errorf("unexpected record: %+v", rec)
	}

	ev := h.waitEvent(t, model.EventJobCompleted)
	if ev.Data["job_id"] != result.JobID || ev.Data["success"] != true {
		t.Errorf("unexpected event data: %v", ev.Data)
	}
}

func TestPrintNotConnectedIsNotJournaled(t *testing.T) {
	h := newHarness(t, config.PrinterConfig{})

	result := h.service.Print(context.Background(), PrintRequest{Receipt: sampleReceipt()})
	if result.Success || result.Error == nil || result.Error.Code != printer.CodeNotConnected {
		t.Fatalf("unexpected result: %+v", result)
	}

	list, _ := h.service.ListJobs(context.Background(), nil)
	if len(list) != 0 {
		t.Errorf("rejected call without job id should not be journaled: %d", len(list))
	}
}

func TestPrintDeviceErrorJournaled(t *testing.T) {
	h := newHarness(t, config.PrinterConfig{})
	h.transport.Respond = func(jobID string) driver.Response {
		return driver.Response{JobID: jobID, Code: driver.CodeCoverOpen, Status: driver.StatusCoverOpen}
	}
	ctx := context.Background()
	if err := h.service.Connect(ctx, "", 0); err != nil {
		t.Fatal(err)
	}

	result := h.service.Print(ctx, PrintRequest{Receipt: sampleReceipt()})
	if result.Success || result.Error.Code != driver.CodeCoverOpen {
		t.Fatalf("unexpected result: %+v", result)
	}

	rec, err := h.jobs.GetByJobID(ctx, result.JobID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != model.JobStatusFailed || rec.ErrorCode == nil || *rec.ErrorCode != driver.CodeCoverOpen {
		t.Errorf("unexpected record: %+v", rec)
	}

	stats, _ := h.service.JobStats(ctx, time.Now().Add(-time.Minute))
	if stats.ByErrorCode[driver.CodeCoverOpen] != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestConnectFailurePublishesError(t *testing.T) {
	h := newHarness(t, config.PrinterConfig{})
	h.transport.ConnectErr = errors.New("connection refused")

	err := h.service.Connect(context.Background(), "", 0)
	if printer.CodeOf(err) != printer.CodeDeviceNotFound {
		t.Fatalf("code = %s", printer.CodeOf(err))
	}
	ev := h.waitEvent(t, model.EventError)
	if ev.Data["code"] != printer.CodeDeviceNotFound || ev.Severity != "ERROR" {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestDeviceEventsReachBus(t *testing.T) {
	h := newHarness(t, config.PrinterConfig{})
	if err := h.service.Connect(context.Background(), "", 0); err != nil {
		t.Fatal(err)
	}

	events := h.transport.Events()
	events.OnCoverOpen()
	events.OnStatusChange(driver.StatusCoverOpen)

	h.waitEvent(t, model.EventCoverOpen)
	ev := h.waitEvent(t, model.EventStatusChange)
	if ev.Data["cover_open"] != true {
		t.Errorf("status data = %v", ev.Data)
	}

	h.transport.Drop()
	h.waitEvent(t, model.EventDisconnected)
	if h.service.Snapshot().Connected {
		t.Error("snapshot should report disconnected after link loss")
	}
}

func TestUpdateSettingsPublishes(t *testing.T) {
	h := newHarness(t, config.PrinterConfig{})
	density := 3
	next, err := h.service.UpdateSettings(model.SettingsPatch{Density: &density})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if next.Density != 3 || h.service.Settings().Density != 3 {
		t.Errorf("density not applied: %+v", next)
	}
	h.waitEvent(t, model.EventSettingsUpdate)

	bad := 42
	if _, err := h.service.UpdateSettings(model.SettingsPatch{Density: &bad}); printer.CodeOf(err) != printer.CodeInvalidSettings {
		t.Errorf("expected INVALID_SETTINGS, got %v", err)
	}
}

func TestShutdownDisconnects(t *testing.T) {
	h := newHarness(t, config.PrinterConfig{})
	ctx := context.Background()
	if err := h.service.Connect(ctx, "", 0); err != nil {
		t.Fatal(err)
	}
	h.service.Shutdown(ctx)
	if h.service.Snapshot().State != model.StateDisconnected {
		t.Error("shutdown should disconnect")
	}
	h.waitEvent(t, model.EventDisconnected)
}
