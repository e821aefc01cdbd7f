package epson

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"printer-service/internal/model"
	"printer-service/internal/protocol"
	"printer-service/pkg/driver"
)

// fakeLink is an in-memory protocol.DeviceProtocol.
type fakeLink struct {
	mu      sync.Mutex
	open    bool
	writes  [][]byte
	written chan []byte
	reads   chan []byte
	closed  chan struct{}
	openErr error
}

func newFakeLink() *fakeLink {
	return &fakeLink{
		written: make(chan []byte, 64),
		reads:   make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

func (l *fakeLink) Open(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.openErr != nil {
		return l.openErr
	}
	l.open = true
	return nil
}

func (l *fakeLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.open {
		l.open = false
		close(l.closed)
	}
	return nil
}

func (l *fakeLink) IsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open
}

func (l *fakeLink) Write(ctx context.Context, data []byte) error {
	if !l.IsOpen() {
		return protocol.ErrNotOpen
	}
	cp := append([]byte(nil), data...)
	l.mu.Lock()
	l.writes = append(l.writes, cp)
	l.mu.Unlock()
	select {
	case l.written <- cp:
	default:
	}
	return nil
}

func (l *fakeLink) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	select {
	case data := <-l.reads:
		return data, nil
	case <-l.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *fakeLink) GetProtocolType() model.ConnectionType { return model.ConnectionTypeTCP }

// breakRead makes the next Read fail as if the peer hung up.
func (l *fakeLink) breakRead() { l.Close() }

// linkFactory hands out scripted links in order.
type linkFactory struct {
	mu    sync.Mutex
	links []*fakeLink
	made  int
}

func (f *linkFactory) create(settings model.PrinterSettings, logger *zap.Logger) (protocol.DeviceProtocol, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.made >= len(f.links) {
		l := newFakeLink()
		l.openErr = errors.New("connection refused")
		return l, nil
	}
	l := f.links[f.made]
	f.made++
	return l, nil
}

// recorder captures callbacks in delivery order.
type recorder struct {
	driver.NopEventHandler
	events    chan string
	responses chan driver.Response
}

func newRecorder() *recorder {
	return &recorder{events: make(chan string, 64), responses: make(chan driver.Response, 16)}
}

func (r *recorder) OnReceive(resp driver.Response) { r.responses <- resp }
func (r *recorder) OnStatusChange(uint32) { r.events <- "status" }
func (r *recorder) OnOnline() { r.events <- "online" }
func (r *recorder) OnOffline() { r.events <- "offline" }
func (r *recorder) OnPowerOff() { r.events <- "poweroff" }
func (r *recorder) OnCoverOK() { r.events <- "cover_ok" }
func (r *recorder) OnCoverOpen() { r.events <- "cover_open" }
func (r *recorder) OnPaperOK() { r.events <- "paper_ok" }
func (r *recorder) OnPaperNearEnd() { r.events <- "paper_near_end" }
func (r *recorder) OnPaperEnd() { r.events <- "paper_end" }
func (r *recorder) OnDrawerClosed() { r.events <- "drawer_closed" }
func (r *recorder) OnDrawerOpen() { r.events <- "drawer_open" }
func (r *recorder) OnReconnecting() { r.events <- "reconnecting" }
func (r *recorder) OnReconnect() { r.events <- "reconnect" }
func (r *recorder) OnDisconnect() { r.events <- "disconnect" }

func (r *recorder) next(t *testing.T) string {
	t.Helper()
	select {
	case e := <-r.events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return ""
	}
}

func (r *recorder) response(t *testing.T) driver.Response {
	t.Helper()
	select {
	case resp := <-r.responses:
		return resp
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for response")
		return driver.Response{}
	}
}

func waitWrite(t *testing.T, l *fakeLink) []byte {
	t.Helper()
	select {
	case w := <-l.written:
		return w
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for write")
		return nil
	}
}

func connectedDevice(t *testing.T, links ...*fakeLink) (*Transport, *Device, *recorder) {
	t.Helper()
	factory := &linkFactory{links: links}
	settings := model.DefaultSettings()
	settings.Address = "192.0.2.10"
	tr := NewTransport(settings, zaptest.NewLogger(t),
		WithProtocolFactory(factory.create),
		WithReconnect(2, 10*time.Millisecond),
	)

	rec := newRecorder()
	if err := tr.Connect(context.Background(), "", 0, rec); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { tr.Disconnect() })

	dev, err := tr.CreateDevice(context.Background(), "local_printer", driver.DeviceTypePrinter,
		driver.DeviceOptions{MonitorInterval: time.Hour})
	if err != nil {
		t.Fatalf("create device: %v", err)
	}
	dev.SetEventHandler(rec)
	waitWrite(t, links[0]) // init sequence
	return tr, dev.(*Device), rec
}

func TestCreateDeviceSendsInitSequence(t *testing.T) {
	link := newFakeLink()
	connectedDevice(t, link)

	link.mu.Lock()
	init := link.writes[0]
	link.mu.Unlock()

	if !bytes.HasPrefix(init, ESC_POS_COMMANDS.INITIALIZE) {
		t.Errorf("init does not start with ESC @: % x", init)
	}
	if !bytes.HasSuffix(init, []byte{0x1D, 0x61, 0xFF}) {
		t.Errorf("init does not enable status back: % x", init)
	}
	if !bytes.Contains(init, ESC_POS_COMMANDS.SELECT_KANJI_MODE) {
		t.Errorf("init does not select kanji mode: % x", init)
	}
}

func TestCreateDeviceLogsOperation(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	link := newFakeLink()
	settings := model.DefaultSettings()
	settings.Address = "192.0.2.10"
	tr := NewTransport(settings, zap.New(core),
		WithProtocolFactory((&linkFactory{links: []*fakeLink{link}}).create))
	if err := tr.Connect(context.Background(), "", 0, nil); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { tr.Disconnect() })

	if _, err := tr.CreateDevice(context.Background(), "local_printer", driver.DeviceTypePrinter,
		driver.DeviceOptions{MonitorInterval: time.Hour}); err != nil {
		t.Fatalf("create device: %v", err)
	}

	entries := logs.FilterMessage("Device operation completed").All()
	if len(entries) != 1 {
		t.Fatalf("got %d operation entries: %v", len(entries), logs.All())
	}
	fields := entries[0].ContextMap()
	if fields["operation_type"] != "create_device" || fields["operation_id"] != "local_printer" {
		t.Errorf("unexpected fields: %v", fields)
	}
}

func TestCreateDeviceErrors(t *testing.T) {
	link := newFakeLink()
	tr, _, _ := connectedDevice(t, link)

	_, err := tr.CreateDevice(context.Background(), "local_printer", driver.DeviceTypePrinter, driver.DeviceOptions{})
	if !errors.Is(err, driver.ErrDeviceInUse) {
		t.Errorf("duplicate id: got %v", err)
	}

	_, err = tr.CreateDevice(context.Background(), "drawer", driver.DeviceType("display"), driver.DeviceOptions{})
	if !errors.Is(err, driver.ErrDeviceTypeInvalid) {
		t.Errorf("bad type: got %v", err)
	}

	idle := NewTransport(model.DefaultSettings(), zaptest.NewLogger(t))
	_, err = idle.CreateDevice(context.Background(), "p", driver.DeviceTypePrinter, driver.DeviceOptions{})
	if !errors.Is(err, driver.ErrNotConnected) {
		t.Errorf("not connected: got %v", err)
	}
}

func TestSendResolvesOnProcessID(t *testing.T) {
	link := newFakeLink()
	_, dev, rec := connectedDevice(t, link)

	if err := dev.Send(context.Background(), "job-1", []byte("hello")); err != nil {
		t.Fatalf("send: %v", err)
	}
	sent := waitWrite(t, link)
	if !bytes.HasPrefix(sent, []byte("hello")) {
		t.Fatalf("payload not first: % x", sent)
	}
	token := sent[len(sent)-4:]

	reply := append([]byte{0x37, 0x22}, token...)
	link.reads <- append(reply, 0x00)

	resp := rec.response(t)
	if resp.JobID != "job-1" || !resp.Success || resp.Code != driver.CodeSuccess {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestSendFailsOnErrorStatus(t *testing.T) {
	link := newFakeLink()
	_, dev, rec := connectedDevice(t, link)

	if err := dev.Send(context.Background(), "job-2", []byte("x")); err != nil {
		t.Fatalf("send: %v", err)
	}
	waitWrite(t, link)

	// cover open, offline
	link.reads <- []byte{0x10 | 0x20 | 0x08, 0x00, 0x00, 0x00}

	resp := rec.response(t)
	if resp.JobID != "job-2" || resp.Success || resp.Code != driver.CodeCoverOpen {
		t.Errorf("unexpected response %+v", resp)
	}

	// with the cover still open the next job is rejected straight away
	if err := dev.Send(context.Background(), "job-3", []byte("x")); err != nil {
		t.Fatalf("send: %v", err)
	}
	resp = rec.response(t)
	if resp.JobID != "job-3" || resp.Code != driver.CodeCoverOpen {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestParseFramesHandlesSplitsAndNoise(t *testing.T) {
	link := newFakeLink()
	_, dev, rec := connectedDevice(t, link)

	if err := dev.Send(context.Background(), "job-4", []byte("x")); err != nil {
		t.Fatalf("send: %v", err)
	}
	sent := waitWrite(t, link)
	token := sent[len(sent)-4:]

	link.reads <- []byte{0xFF, 0x10, 0x00}
	link.reads <- []byte{0x00, 0x00, 0x37, 0x22, token[0]}
	link.reads <- []byte{token[1], token[2], token[3], 0x00}

	resp := rec.response(t)
	if resp.JobID != "job-4" || !resp.Success {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestDecodeASB(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
		want  uint32
	}{
		{"idle", []byte{0x10, 0x00, 0x00, 0x00}, 0},
		{"cover open", []byte{0x30, 0x00, 0x00, 0x00}, driver.StatusCoverOpen},
		{"offline drawer", []byte{0x1C, 0x00, 0x00, 0x00}, driver.StatusOffline | driver.StatusDrawerKick},
		{"autocutter", []byte{0x10, 0x08, 0x00, 0x00}, driver.StatusAutocutterErr},
		{"near end", []byte{0x10, 0x00, 0x03, 0x00}, driver.StatusReceiptNearEnd},
		{"paper end", []byte{0x10, 0x00, 0x0F, 0x00}, driver.StatusReceiptNearEnd | driver.StatusReceiptEnd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeASB(tt.frame); got != tt.want {
				t.Errorf("decodeASB(% x) = %#x, want %#x", tt.frame, got, tt.want)
			}
		})
	}
}

func TestMonitorRaisesEdgeEvents(t *testing.T) {
	link := newFakeLink()
	_, dev, rec := connectedDevice(t, link)

	if err := dev.StartMonitor(); err != nil {
		t.Fatalf("start monitor: %v", err)
	}
	waitWrite(t, link) // first poll

	link.reads <- []byte{0x10, 0x00, 0x00, 0x00}
	if got := rec.next(t); got != "status" {
		t.Fatalf("first frame: got %s", got)
	}

	link.reads <- []byte{0x10 | 0x20 | 0x08, 0x00, 0x00, 0x00}
	want := []string{"status", "offline", "cover_open"}
	for _, w := range want {
		if got := rec.next(t); got != w {
			t.Fatalf("got %s, want %s", got, w)
		}
	}

	link.reads <- []byte{0x10, 0x00, 0x0C, 0x00}
	want = []string{"status", "online", "cover_ok", "paper_end"}
	for _, w := range want {
		if got := rec.next(t); got != w {
			t.Fatalf("got %s, want %s", got, w)
		}
	}

	if err := dev.StopMonitor(); err != nil {
		t.Fatalf("stop monitor: %v", err)
	}
	link.reads <- []byte{0x10, 0x00, 0x00, 0x00}
	select {
	case e := <-rec.events:
		t.Errorf("event %s after StopMonitor", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMonitorReportsPowerOff(t *testing.T) {
	link := newFakeLink()
	factory := &linkFactory{links: []*fakeLink{link}}
	settings := model.DefaultSettings()
	settings.Address = "192.0.2.10"
	tr := NewTransport(settings, zaptest.NewLogger(t), WithProtocolFactory(factory.create))
	rec := newRecorder()
	if err := tr.Connect(context.Background(), "", 0, rec); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer tr.Disconnect()

	dev, err := tr.CreateDevice(context.Background(), "p", driver.DeviceTypePrinter,
		driver.DeviceOptions{MonitorInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("create device: %v", err)
	}
	dev.SetEventHandler(rec)
	if err := dev.StartMonitor(); err != nil {
		t.Fatalf("start monitor: %v", err)
	}

	if got := rec.next(t); got != "status" {
		t.Fatalf("got %s, want status", got)
	}
	if got := rec.next(t); got != "poweroff" {
		t.Fatalf("got %s, want poweroff", got)
	}
}

func TestReconnectAfterReadFailure(t *testing.T) {
	first, second := newFakeLink(), newFakeLink()
	tr, _, rec := connectedDevice(t, first, second)

	first.breakRead()
	if got := rec.next(t); got != "reconnecting" {
		t.Fatalf("got %s, want reconnecting", got)
	}
	if got := rec.next(t); got != "reconnect" {
		t.Fatalf("got %s, want reconnect", got)
	}

	init := waitWrite(t, second)
	if !bytes.HasPrefix(init, ESC_POS_COMMANDS.INITIALIZE) {
		t.Errorf("printer not reinitialized: % x", init)
	}
	if err := tr.write(context.Background(), []byte{0x0A}); err != nil {
		t.Errorf("write after reconnect: %v", err)
	}
}

func TestReconnectGivesUp(t *testing.T) {
	link := newFakeLink()
	_, dev, rec := connectedDevice(t, link)

	if err := dev.Send(context.Background(), "job-5", []byte("x")); err != nil {
		t.Fatalf("send: %v", err)
	}
	waitWrite(t, link)

	link.breakRead()
	if got := rec.next(t); got != "reconnecting" {
		t.Fatalf("got %s, want reconnecting", got)
	}
	resp := rec.response(t)
	if resp.JobID != "job-5" || resp.Code != driver.CodeDeviceOffline {
		t.Errorf("unexpected response %+v", resp)
	}
	if got := rec.next(t); got != "disconnect" {
		t.Fatalf("got %s, want disconnect", got)
	}
}

func TestConnectAfterLinkLost(t *testing.T) {
	first := newFakeLink()
	tr, dev, rec := connectedDevice(t, first)
	if err := dev.StartMonitor(); err != nil {
		t.Fatalf("start monitor: %v", err)
	}
	waitWrite(t, first) // status back armed

	first.breakRead()
	for {
		if got := rec.next(t); got == "disconnect" {
			break
		}
	}

	fresh := newFakeLink()
	tr.mutex.Lock()
	tr.factory = (&linkFactory{links: []*fakeLink{fresh}}).create
	tr.mutex.Unlock()

	if err := tr.Connect(context.Background(), "", 0, rec); err != nil {
		t.Fatalf("connect after link loss: %v", err)
	}
	if _, err := tr.CreateDevice(context.Background(), "local_printer", driver.DeviceTypePrinter,
		driver.DeviceOptions{MonitorInterval: time.Hour}); err != nil {
		t.Fatalf("create device after link loss: %v", err)
	}
	init := waitWrite(t, fresh)
	if !bytes.HasPrefix(init, ESC_POS_COMMANDS.INITIALIZE) {
		t.Errorf("printer not initialized on the new link: % x", init)
	}
	dev.mutex.Lock()
	running := dev.monitorCancel != nil
	dev.mutex.Unlock()
	if running {
		t.Error("monitor of the lost handle still running")
	}
}

func TestConnectTwice(t *testing.T) {
	link := newFakeLink()
	tr, _, _ := connectedDevice(t, link)
	err := tr.Connect(context.Background(), "", 0, nil)
	if !errors.Is(err, driver.ErrAlreadyConnected) {
		t.Errorf("got %v", err)
	}
}
