// internal/driver/epson/transport.go
package epson

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"printer-service/internal/model"
	"printer-service/internal/protocol"
	"printer-service/internal/utils"
	"printer-service/pkg/driver"
)

const (
	defaultReconnectAttempts = 3
	defaultReconnectDelay    = 2 * time.Second
	eventQueueSize           = 64
	readChunk                = 256
)

// Transport implements driver.Transport for Epson TM printers speaking
// ESC/POS over a protocol link. All handler callbacks run on one goroutine.
type Transport struct {
	factory           protocol.Factory
	reconnectAttempts int
	reconnectDelay    time.Duration
	baseLogger        *zap.Logger
	logger            *utils.DeviceLogger

	mutex    sync.RWMutex
	settings model.PrinterSettings
	link     protocol.DeviceProtocol
	handler  driver.TransportHandler
	devices  map[string]*Device
	cancel   context.CancelFunc
	done     chan struct{}
	events   chan func()
	wg       sync.WaitGroup

	writeMu sync.Mutex
}

// TransportOption configures a Transport
type TransportOption func(*Transport)

// WithProtocolFactory replaces the link factory, mainly for tests.
func WithProtocolFactory(factory protocol.Factory) TransportOption {
	return func(t *Transport) { t.factory = factory }
}

// WithReconnect sets the transparent reconnection policy.
func WithReconnect(attempts int, delay time.Duration) TransportOption {
	return func(t *Transport) {
		t.reconnectAttempts = attempts
		t.reconnectDelay = delay
	}
}

// NewTransport creates an ESC/POS transport for the given settings
func NewTransport(settings model.PrinterSettings, logger *zap.Logger, opts ...TransportOption) *Transport {
	settings = settings.Normalize()
	t := &Transport{
		factory:           protocol.CreateProtocol,
		reconnectAttempts: defaultReconnectAttempts,
		reconnectDelay:    defaultReconnectDelay,
		baseLogger:        logger,
		settings:          settings,
		devices:           make(map[string]*Device),
	}
	t.logger = utils.NewDeviceLogger(logger, settings.DeviceID, string(settings.Interface), "EPSON")
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var (
	_ driver.Transport    = (*Transport)(nil)
	_ driver.Configurable = (*Transport)(nil)
)

// Configure replaces the settings used by the next Connect.
func (t *Transport) Configure(settings model.PrinterSettings) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.settings = settings.Normalize()
	t.logger = utils.NewDeviceLogger(t.baseLogger, t.settings.DeviceID, string(t.settings.Interface), "EPSON")
}

// Connect opens the link and starts the reader and event goroutines.
func (t *Transport) Connect(ctx context.Context, address string, port int, handler driver.TransportHandler) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.link != nil {
		return driver.ErrAlreadyConnected
	}
	if t.done != nil {
		// link was lost and never explicitly disconnected
		t.cancel()
		close(t.done)
		t.done = nil
	}

	settings := t.settings
	if address != "" {
		settings.Address = address
	}
	if port > 0 {
		settings.Port = port
	}

	link, err := t.factory(settings, t.logger.Logger)
	if err != nil {
		return fmt.Errorf("failed to create %s link: %w", settings.Interface, err)
	}
	if err := link.Open(ctx); err != nil {
		t.logger.LogConnection("connect", false, err)
		if errors.Is(err, protocol.ErrTLSHandshake) {
			return fmt.Errorf("%w: %v", driver.ErrSSLConnect, err)
		}
		return fmt.Errorf("failed to open %s: %w", settings.Endpoint(), err)
	}

	if handler == nil {
		handler = nopTransportHandler{}
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	t.settings = settings
	t.link = link
	t.handler = handler
	t.cancel = cancel
	t.done = make(chan struct{})
	t.events = make(chan func(), eventQueueSize)

	go t.eventLoop(t.events, t.done)
	t.wg.Add(1)
	go t.readLoop(loopCtx)

	t.logger.LogConnection("connect", true, nil)
	return nil
}

// Disconnect stops the goroutines and closes the link. Events still queued
// are dropped.
func (t *Transport) Disconnect() error {
	t.mutex.Lock()
	if t.done == nil {
		t.mutex.Unlock()
		return nil
	}
	link := t.link
	t.cancel()
	close(t.done)
	t.done = nil
	t.link = nil
	devices := t.devices
	t.devices = make(map[string]*Device)
	t.mutex.Unlock()

	for _, d := range devices {
		d.stopMonitor()
	}

	var err error
	if link != nil {
		err = link.Close()
	}
	t.wg.Wait()

	if err != nil {
		t.logger.LogConnection("disconnect", false, err)
		return fmt.Errorf("failed to close link: %w", err)
	}
	t.logger.LogConnection("disconnect", true, nil)
	return nil
}

// CreateDevice initializes the printer and returns a handle bound to it.
func (t *Transport) CreateDevice(ctx context.Context, deviceID string, deviceType driver.DeviceType, opts driver.DeviceOptions) (driver.Device, error) {
	if deviceType != driver.DeviceTypePrinter {
		return nil, fmt.Errorf("%w: %s", driver.ErrDeviceTypeInvalid, deviceType)
	}
	if opts.MonitorInterval <= 0 {
		opts.MonitorInterval = t.currentSettings().MonitorInterval
	}
	start := time.Now()

	t.mutex.Lock()
	if t.link == nil {
		t.mutex.Unlock()
		return nil, driver.ErrNotConnected
	}
	if _, exists := t.devices[deviceID]; exists {
		t.mutex.Unlock()
		return nil, fmt.Errorf("%w: %s", driver.ErrDeviceInUse, deviceID)
	}
	device := newDevice(deviceID, t, opts, t.logger.Logger)
	t.devices[deviceID] = device
	t.mutex.Unlock()

	if err := t.write(ctx, device.initSequence()); err != nil {
		t.mutex.Lock()
		delete(t.devices, deviceID)
		t.mutex.Unlock()
		t.logger.LogOperation("create_device", deviceID, time.Since(start), false, err)
		return nil, fmt.Errorf("%w: %v", driver.ErrDeviceOpen, err)
	}

	t.logger.LogOperation("create_device", deviceID, time.Since(start), true, nil)
	return device, nil
}

// DeleteDevice releases a handle. Pending jobs on it are not resolved.
func (t *Transport) DeleteDevice(ctx context.Context, device driver.Device) error {
	if device == nil {
		return driver.ErrDeviceNotFound
	}

	t.mutex.Lock()
	d, ok := t.devices[device.ID()]
	if ok {
		delete(t.devices, device.ID())
	}
	connected := t.link != nil
	t.mutex.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", driver.ErrDeviceNotFound, device.ID())
	}
	d.stopMonitor()

	if connected {
		if err := t.write(ctx, ESC_POS_COMMANDS.DISABLE_ASB); err != nil {
			return fmt.Errorf("failed to disable status back: %w", err)
		}
	}
	return nil
}

func (t *Transport) currentSettings() model.PrinterSettings {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.settings
}

// write sends bytes on the current link. Writes never interleave.
func (t *Transport) write(ctx context.Context, data []byte) error {
	t.mutex.RLock()
	link := t.link
	t.mutex.RUnlock()
	if link == nil {
		return driver.ErrNotConnected
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return link.Write(ctx, data)
}

// enqueue schedules fn on the event goroutine. It drops fn after Disconnect.
func (t *Transport) enqueue(fn func()) {
	t.mutex.RLock()
	events, done := t.events, t.done
	t.mutex.RUnlock()
	if events == nil || done == nil {
		return
	}
	select {
	case events <- fn:
	case <-done:
	}
}

func (t *Transport) eventLoop(events <-chan func(), done <-chan struct{}) {
	for {
		select {
		case fn := <-events:
			fn()
		case <-done:
			return
		}
	}
}

func (t *Transport) readLoop(ctx context.Context) {
	defer t.wg.Done()

	var buf []byte
	for {
		t.mutex.RLock()
		link := t.link
		t.mutex.RUnlock()
		if link == nil {
			return
		}

		data, err := link.Read(ctx, readChunk)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.logger.Warn("Printer link read failed", zap.Error(err))
			if !t.reconnect(ctx, link) {
				return
			}
			buf = buf[:0]
			continue
		}
		if len(data) == 0 {
			continue
		}

		buf = append(buf, data...)
		buf = t.parseFrames(buf)
	}
}

// parseFrames consumes every complete frame at the head of buf and returns
// the unconsumed tail.
func (t *Transport) parseFrames(buf []byte) []byte {
	for len(buf) > 0 {
		switch {
		case buf[0] == processIDHeader0:
			if len(buf) < processIDLen {
				return buf
			}
			if buf[1] != processIDHeader1 || buf[processIDLen-1] != 0x00 {
				buf = buf[1:]
				continue
			}
			t.dispatchProcessID(string(buf[2:6]))
			buf = buf[processIDLen:]

		case buf[0]&asbHeaderMask == asbHeaderValue:
			if len(buf) < asbFrameLen {
				return buf
			}
			t.dispatchStatus(decodeASB(buf[:asbFrameLen]))
			buf = buf[asbFrameLen:]

		default:
			buf = buf[1:]
		}
	}
	return buf
}

func (t *Transport) snapshotDevices() []*Device {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	devices := make([]*Device, 0, len(t.devices))
	for _, d := range t.devices {
		devices = append(devices, d)
	}
	return devices
}

func (t *Transport) dispatchProcessID(token string) {
	for _, d := range t.snapshotDevices() {
		if d.handleProcessID(token) {
			return
		}
	}
	t.logger.Debug("Unmatched process id response", zap.String("token", token))
}

func (t *Transport) dispatchStatus(bits uint32) {
	for _, d := range t.snapshotDevices() {
		d.handleStatus(bits)
	}
}

// reconnect replaces a failed link. It reports whether reading can resume.
func (t *Transport) reconnect(ctx context.Context, failed protocol.DeviceProtocol) bool {
	t.mutex.RLock()
	handler := t.handler
	settings := t.settings
	t.mutex.RUnlock()

	t.enqueue(handler.OnReconnecting)
	failed.Close()

	for attempt := 1; attempt <= t.reconnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(t.reconnectDelay):
		}

		link, err := t.factory(settings, t.logger.Logger)
		if err == nil {
			err = link.Open(ctx)
		}
		if err != nil {
			t.logger.Warn("Reconnect attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}

		t.mutex.Lock()
		if ctx.Err() != nil {
			t.mutex.Unlock()
			link.Close()
			return false
		}
		t.link = link
		t.mutex.Unlock()

		for _, d := range t.snapshotDevices() {
			if err := t.write(ctx, d.initSequence()); err != nil {
				t.logger.Warn("Failed to reinitialize printer", zap.Error(err))
			}
		}

		t.logger.Info("Printer link reconnected", zap.Int("attempt", attempt))
		t.enqueue(handler.OnReconnect)
		return true
	}

	t.logger.Error("Printer link lost", zap.Int("attempts", t.reconnectAttempts))

	// handles die with the link so the next Connect can create them again
	t.mutex.Lock()
	if t.link == failed {
		t.link = nil
	}
	devices := t.devices
	t.devices = make(map[string]*Device)
	t.mutex.Unlock()

	for _, d := range devices {
		d.failPending(driver.CodeDeviceOffline)
		d.stopMonitor()
	}
	t.enqueue(handler.OnDisconnect)
	return false
}

// decodeASB maps a 4-byte automatic status back frame onto the status
// bitmask.
func decodeASB(frame []byte) uint32 {
	var bits uint32
	bits |= uint32(frame[0] & 0x6C)
	bits |= uint32(frame[1]&0x6C) << 8
	if frame[2]&0x03 != 0 {
		bits |= driver.StatusReceiptNearEnd
	}
	if frame[2]&0x0C != 0 {
		bits |= driver.StatusReceiptEnd
	}
	return bits
}

type nopTransportHandler struct{}

func (nopTransportHandler) OnReconnecting() {}
func (nopTransportHandler) OnReconnect() {}
func (nopTransportHandler) OnDisconnect() {}
