package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"

	"printer-service/internal/config"
	"printer-service/internal/model"
	"printer-service/internal/printer"
	"printer-service/internal/printer/printertest"
	"printer-service/internal/repository"
	"printer-service/internal/service"
	"printer-service/internal/utils"
)

const receiptBody = `{
  "receipt": {
    "store": {"name": "テスト店"},
    "transaction": {"receipt_number": "000042", "issued_at": "2026-10-18T10:00:00+09:00"},
    "items": [{"name": "水", "quantity": 1, "unit_price": 100, "total": 100}],
    "summary": {"subtotal": 100, "total": 100}
  },
  "options": {"copies": 1}
}`

type testEnv struct {
	engine    *gin.Engine
	printer   *service.PrinterService
	bus       *service.EventBus
	transport *printertest.Transport
}

func newTestEnv(t *testing.T, address string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)

	settings := model.DefaultSettings()
	settings.Address = address
	settings.Timeout = time.Second

	transport := printertest.NewTransport()
	client := printer.NewClient(transport, settings, logger)
	bus := service.NewEventBus(logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go bus.Start(ctx)

	printerService := service.NewPrinterService(client, repository.NewMemoryJobRepository(10), bus,
		config.PrinterConfig{Settings: settings}, logger)

	cfg := &config.Config{App: config.AppConfig{Name: "printer-service", Version: "test"}}
	printerHandler := NewPrinterHandler(printerService, logger)
	healthHandler := NewHealthHandler(nil, printerService, cfg, logger)
	wsHandler := NewWebSocketHandler(printerService, bus, nil, logger)
	t.Cleanup(wsHandler.Close)

	engine := gin.New()
	engine.GET("/health", healthHandler.HealthCheck)
	engine.GET("/health/db", healthHandler.DatabaseHealthCheck)
	engine.GET("/ready", healthHandler.ReadinessCheck)
	api := engine.Group("/api/v1/printer")
	api.POST("/connect", printerHandler.Connect)
	api.POST("/disconnect", printerHandler.Disconnect)
	api.GET("/status", printerHandler.GetStatus)
	api.GET("/settings", printerHandler.GetSettings)
	api.PUT("/settings", printerHandler.UpdateSettings)
	api.POST("/monitor/start", printerHandler.StartMonitor)
	api.POST("/print", printerHandler.Print)
	api.GET("/jobs", printerHandler.ListJobs)
	api.GET("/jobs/stats", printerHandler.GetJobStats)
	api.GET("/jobs/:job_id", printerHandler.GetJob)
	engine.GET("/ws/events", wsHandler.HandleEventConnection)

	return &testEnv{engine: engine, printer: printerService, bus: bus, transport: transport}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, utils.APIResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	var resp utils.APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestPrintNotConnectedReturns200(t *testing.T) {
	env := newTestEnv(t, "192.168.0.10")

	w, resp := env.do(t, http.MethodPost, "/api/v1/printer/print", receiptBody)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if resp.Success || resp.Error == nil || resp.Error.Code != printer.CodeNotConnected {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestPrintRejectsMalformedBody(t *testing.T) {
	env := newTestEnv(t, "192.168.0.10")

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"receipt":`},
		{"missing receipt", `{"options": {"copies": 1}}`},
		{"negative copies", `{"receipt": {}, "options": {"copies": -1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := env.do(t, http.MethodPost, "/api/v1/printer/print", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			if resp.Error == nil || resp.Error.Code != printer.CodeErrorParameter {
				t.Errorf("unexpected body: %s", w.Body.String())
			}
		})
	}
}

func TestConnectPrintAndJournal(t *testing.T) {
	env := newTestEnv(t, "192.168.0.10")

	if w, _ := env.do(t, http.MethodPost, "/api/v1/printer/connect", ""); w.Code != http.StatusOK {
		t.Fatalf("connect status = %d: %s", w.Code, w.Body.String())
	}

	w, resp := env.do(t, http.MethodPost, "/api/v1/printer/print", receiptBody)
	if w.Code != http.StatusOK || !resp.Success {
		t.Fatalf("print failed: %s", w.Body.String())
	}
	data := resp.Data.(map[string]interface{})
	jobID, _ := data["job_id"].(string)
	if jobID == "" {
		t.Fatalf("job_id missing: %v", data)
	}

	w, resp = env.do(t, http.MethodGet, "/api/v1/printer/jobs?status=SUCCESS", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	if count := resp.Data.(map[string]interface{})["count"]; count != float64(1) {
		t.Errorf("count = %v", count)
	}

	if w, _ := env.do(t, http.MethodGet, "/api/v1/printer/jobs/"+jobID, ""); w.Code != http.StatusOK {
		t.Errorf("get job status = %d", w.Code)
	}
	if w, _ := env.do(t, http.MethodGet, "/api/v1/printer/jobs/unknown", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown job status = %d", w.Code)
	}
	if w, _ := env.do(t, http.MethodGet, "/api/v1/printer/jobs/stats?since=1h", ""); w.Code != http.StatusOK {
		t.Errorf("stats status = %d", w.Code)
	}
	if w, _ := env.do(t, http.MethodGet, "/api/v1/printer/jobs?limit=abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", w.Code)
	}
}

func TestConnectWithoutAddress(t *testing.T) {
	env := newTestEnv(t, "")

	w, resp := env.do(t, http.MethodPost, "/api/v1/printer/connect", "")
	if w.Code != http.StatusBadRequest || resp.Error == nil || resp.Error.Code != printer.CodeInvalidSettings {
		t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
	}

	w, _ = env.do(t, http.MethodPost, "/api/v1/printer/connect", `{"address": "10.0.0.5", "port": 9100}`)
	if w.Code != http.StatusOK {
		t.Fatalf("connect with override status = %d: %s", w.Code, w.Body.String())
	}
	if env.printer.Settings().Address != "10.0.0.5" {
		t.Errorf("address override not kept: %+v", env.printer.Settings())
	}
}

func TestUpdateSettings(t *testing.T) {
	env := newTestEnv(t, "192.168.0.10")

	w, resp := env.do(t, http.MethodPut, "/api/v1/printer/settings", `{"density": 2, "cut_type": "partial"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	data := resp.Data.(map[string]interface{})
	if data["density"] != float64(2) || data["cut_type"] != "partial" {
		t.Errorf("unexpected settings: %v", data)
	}

	w, resp = env.do(t, http.MethodPut, "/api/v1/printer/settings", `{"density": 9}`)
	if w.Code != http.StatusBadRequest || resp.Error.Code != printer.CodeInvalidSettings {
		t.Errorf("invalid density accepted: %d %s", w.Code, w.Body.String())
	}
}

func TestMonitorRequiresConnection(t *testing.T) {
	env := newTestEnv(t, "192.168.0.10")

	w, resp := env.do(t, http.MethodPost, "/api/v1/printer/monitor/start", "")
	if w.Code != http.StatusConflict || resp.Error.Code != printer.CodeNotConnected {
		t.Errorf("unexpected response %d: %s", w.Code, w.Body.String())
	}
}

func TestHealthReportsPrinterState(t *testing.T) {
	env := newTestEnv(t, "192.168.0.10")

	decode := func(w *httptest.ResponseRecorder) HealthResponse {
		var h HealthResponse
		if err := json.Unmarshal(w.Body.Bytes(), &h); err != nil {
			t.Fatal(err)
		}
		return h
	}

	w, _ := env.do(t, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	h := decode(w)
	if h.Status != "degraded" || h.Checks["printer"].Status != "unavailable" || h.Checks["journal"].Status != "healthy" {
		t.Errorf("unexpected health: %+v", h)
	}
	if w, _ := env.do(t, http.MethodGet, "/ready", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("ready while disconnected = %d", w.Code)
	}
	if w, _ := env.do(t, http.MethodGet, "/health/db", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("db health without database = %d", w.Code)
	}

	env.do(t, http.MethodPost, "/api/v1/printer/connect", "")
	w, _ = env.do(t, http.MethodGet, "/health", "")
	if h := decode(w); h.Status != "healthy" {
		t.Errorf("connected health = %+v", h)
	}
	if w, _ := env.do(t, http.MethodGet, "/ready", ""); w.Code != http.StatusOK {
		t.Errorf("ready while connected = %d", w.Code)
	}
}

func TestStatusForCode(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{printer.CodeInvalidSettings, http.StatusBadRequest},
		{printer.CodeNotConnected, http.StatusConflict},
		{printer.CodeConnectTimeout, http.StatusGatewayTimeout},
		{printer.CodeDeviceNotFound, http.StatusBadGateway},
		{printer.CodeSystemError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusForCode(tt.code); got != tt.want {
			t.Errorf("statusForCode(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) WebSocketMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WebSocketMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestEventStream(t *testing.T) {
	env := newTestEnv(t, "192.168.0.10")
	server := httptest.NewServer(env.engine)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/events?types=settings_update"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if msg := readMessage(t, conn); msg.Type != "printer_status" {
		t.Fatalf("first message = %s", msg.Type)
	}

	if err := conn.WriteJSON(WebSocketMessage{Type: "ping", RequestID: "r1"}); err != nil {
		t.Fatal(err)
	}
	if msg := readMessage(t, conn); msg.Type != "pong" || msg.RequestID != "r1" {
		t.Fatalf("unexpected reply: %+v", msg)
	}

	// filtered out by the types query
	env.bus.Publish(model.NewPrinterEvent(model.EventPaperEnd, "local_printer", nil))

	density := 1
	if _, err := env.printer.UpdateSettings(model.SettingsPatch{Density: &density}); err != nil {
		t.Fatal(err)
	}

	msg := readMessage(t, conn)
	if msg.Type != "printer_event" {
		t.Fatalf("message type = %s", msg.Type)
	}
	event := msg.Data.(map[string]interface{})
	if event["event_type"] != string(model.EventSettingsUpdate) {
		t.Errorf("event = %v", event)
	}
}

func TestClientTopics(t *testing.T) {
	c := &Client{Send: make(chan []byte, 1)}
	if !c.Wants(model.EventPaperEnd) {
		t.Error("empty filter should pass every event")
	}
	c.Subscribe(model.EventCoverOpen)
	c.Subscribe(model.EventCoverOpen)
	if len(c.Topics()) != 1 || c.Wants(model.EventPaperEnd) || !c.Wants(model.EventCoverOpen) {
		t.Errorf("topics = %v", c.Topics())
	}
	c.Unsubscribe(model.EventCoverOpen)
	if len(c.Topics()) != 0 {
		t.Errorf("topics after unsubscribe = %v", c.Topics())
	}

	if !c.enqueue([]byte("a")) || c.enqueue([]byte("b")) {
		t.Error("enqueue should fill the buffer then drop")
	}
	c.close()
	c.close()
	if c.enqueue([]byte("c")) {
		t.Error("enqueue after close should fail")
	}
}
