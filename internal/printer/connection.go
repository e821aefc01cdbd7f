// internal/printer/connection.go
package printer

import (
	"context"
	"errors"
	"net"
	"sync"

	"go.uber.org/zap"

	"printer-service/internal/model"
	"printer-service/internal/utils"
	"printer-service/pkg/driver"
)

// ConnectionManager owns the connection state machine and forwards device
// events to the observer. Connect and Disconnect are serialized.
type ConnectionManager struct {
	transport driver.Transport
	logger    *utils.DeviceLogger
	onReceive func(driver.Response)

	opMu sync.Mutex

	mutex      sync.RWMutex
	state      model.ConnectionState
	device     driver.Device
	settings   model.PrinterSettings
	observer   Observer
	lastStatus model.PrinterStatus
	generation uint64
}

// NewConnectionManager creates a manager in the disconnected state.
// onReceive sees every device response before the observer does.
func NewConnectionManager(transport driver.Transport, settings model.PrinterSettings, logger *zap.Logger, onReceive func(driver.Response)) *ConnectionManager {
	settings = settings.Normalize()
	return &ConnectionManager{
		transport: transport,
		logger:    utils.NewDeviceLogger(logger, settings.DeviceID, string(driver.DeviceTypePrinter), "EPSON"),
		onReceive: onReceive,
		state:     model.StateDisconnected,
		settings:  settings,
	}
}

// Connect merges address and port into the settings, opens the transport
// and creates the device handle. Empty address or zero port keep the
// configured values. It is a no-op when connected and fails with
// DEVICE_BUSY while the transport is reconnecting.
func (m *ConnectionManager) Connect(ctx context.Context, address string, port int) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mutex.RLock()
	held, state := m.device != nil, m.state
	m.mutex.RUnlock()
	if held {
		if state == model.StateConnecting {
			return NewError(CodeDeviceBusy, errors.New("link is reconnecting"))
		}
		return nil
	}

	m.mutex.Lock()
	settings := m.settings
	if address != "" {
		settings.Address = address
	}
	if port > 0 {
		settings.Port = port
	}
	if settings.Interface == model.ConnectionTypeTCP && settings.Address == "" {
		m.mutex.Unlock()
		return NewError(CodeInvalidSettings, errors.New("printer address is empty"))
	}
	if err := settings.Validate(); err != nil {
		m.mutex.Unlock()
		return NewError(CodeInvalidSettings, err)
	}
	m.settings = settings
	m.generation++
	gen := m.generation
	m.mutex.Unlock()

	m.setState(model.StateConnecting)
	m.logger.Info("Connecting to printer", zap.String("endpoint", settings.Endpoint()))

	if c, ok := m.transport.(driver.Configurable); ok {
		c.Configure(settings)
	}

	events := &linkEvents{m: m, gen: gen}
	if err := m.transport.Connect(ctx, settings.Address, settings.Port, events); err != nil {
		return m.fail(classifyConnectError(err, CodeDeviceNotFound))
	}

	device, err := m.transport.CreateDevice(ctx, settings.DeviceID, driver.DeviceTypePrinter, driver.DeviceOptions{
		Crypto:          settings.SSL,
		Density:         settings.Density,
		MonitorInterval: settings.MonitorInterval,
	})
	if err != nil {
		if derr := m.transport.Disconnect(); derr != nil {
			m.logger.Warn("Transport teardown after failed device creation", zap.Error(derr))
		}
		return m.fail(classifyConnectError(err, CodeDeviceOpenError))
	}
	device.SetEventHandler(events)

	m.mutex.Lock()
	m.device = device
	m.state = model.StateConnected
	observer := m.observer
	m.mutex.Unlock()

	m.logger.LogConnection("connect", true, nil)
	call(observer.OnConnect)
	return nil
}

func (m *ConnectionManager) fail(err *Error) error {
	m.mutex.Lock()
	m.state = model.StateError
	m.device = nil
	observer := m.observer
	m.mutex.Unlock()

	m.logger.LogConnection("connect", false, err)
	if observer.OnError != nil {
		observer.OnError(err)
	}
	return err
}

// Disconnect tears the connection down. Teardown errors are logged, the
// state always ends up disconnected.
func (m *ConnectionManager) Disconnect(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mutex.Lock()
	m.generation++
	device := m.device
	m.device = nil
	wasDisconnected := m.state == model.StateDisconnected
	m.mutex.Unlock()

	if device != nil {
		if err := device.StopMonitor(); err != nil {
			m.logger.Warn("Failed to stop status monitor", zap.Error(err))
		}
		if err := m.transport.DeleteDevice(ctx, device); err != nil {
			m.logger.Warn("Failed to delete device", zap.Error(err))
		}
	}
	if err := m.transport.Disconnect(); err != nil {
		m.logger.Warn("Failed to disconnect transport", zap.Error(err))
	}

	m.mutex.Lock()
	m.state = model.StateDisconnected
	observer := m.observer
	m.mutex.Unlock()

	if wasDisconnected {
		return
	}
	m.logger.LogConnection("disconnect", true, nil)
	call(observer.OnDisconnect)
}

// IsConnected reports whether a device handle is held in the connected state.
func (m *ConnectionManager) IsConnected() bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.state == model.StateConnected && m.device != nil
}

// State returns the current connection state.
func (m *ConnectionManager) State() model.ConnectionState {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.state
}

// Device returns the current handle or nil.
func (m *ConnectionManager) Device() driver.Device {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.device
}

// Settings returns the current settings record.
func (m *ConnectionManager) Settings() model.PrinterSettings {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.settings
}

// ReplaceSettings swaps in a new record. A live connection keeps running
// with the link it has; the record applies from the next Connect.
func (m *ConnectionManager) ReplaceSettings(settings model.PrinterSettings) {
	m.mutex.Lock()
	m.settings = settings
	m.mutex.Unlock()
}

// LastStatus returns the most recent decoded status.
func (m *ConnectionManager) LastStatus() model.PrinterStatus {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.lastStatus
}

// SetObserver replaces the observer.
func (m *ConnectionManager) SetObserver(o Observer) {
	m.mutex.Lock()
	m.observer = o
	m.mutex.Unlock()
}

// StartMonitor starts status monitoring on the device handle.
func (m *ConnectionManager) StartMonitor() error {
	device := m.Device()
	if device == nil {
		return NewError(CodeNotConnected, nil)
	}
	if err := device.StartMonitor(); err != nil {
		return NewError(CodeSystemError, err)
	}
	return nil
}

// StopMonitor stops status monitoring.
func (m *ConnectionManager) StopMonitor() error {
	device := m.Device()
	if device == nil {
		return NewError(CodeNotConnected, nil)
	}
	if err := device.StopMonitor(); err != nil {
		return NewError(CodeSystemError, err)
	}
	return nil
}

func (m *ConnectionManager) setState(state model.ConnectionState) {
	m.mutex.Lock()
	prev := m.state
	m.state = state
	m.mutex.Unlock()
	if prev != state {
		m.logger.Debug("Connection state changed",
			zap.String("from", string(prev)),
			zap.String("to", string(state)),
		)
	}
}

// current returns the observer when gen is still the live connection.
func (m *ConnectionManager) current(gen uint64) (Observer, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.observer, gen == m.generation
}

func classifyConnectError(err error, fallback string) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}

	var netErr net.Error
	switch {
	case errors.Is(err, driver.ErrSSLConnect):
		return NewError(CodeSSLConnectFail, err)
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return NewError(CodeConnectTimeout, err)
	case errors.Is(err, driver.ErrDeviceInUse), errors.Is(err, driver.ErrAlreadyConnected):
		return NewError(CodeDeviceInUse, err)
	case errors.Is(err, driver.ErrDeviceTypeInvalid):
		return NewError(CodeDeviceTypeInvalid, err)
	case errors.Is(err, driver.ErrDeviceBusy):
		return NewError(CodeDeviceBusy, err)
	case errors.Is(err, driver.ErrDeviceNotFound):
		return NewError(CodeDeviceNotFound, err)
	case errors.Is(err, driver.ErrDeviceOpen):
		return NewError(CodeDeviceOpenError, err)
	case errors.Is(err, driver.ErrNotConnected):
		return NewError(CodeDisconnect, err)
	default:
		return NewError(fallback, err)
	}
}

// linkEvents adapts transport and device callbacks for one connection
// generation. Callbacks from an older generation are ignored.
type linkEvents struct {
	m   *ConnectionManager
	gen uint64
}

var (
	_ driver.TransportHandler = (*linkEvents)(nil)
	_ driver.EventHandler     = (*linkEvents)(nil)
)

func (e *linkEvents) transition(from, to model.ConnectionState) bool {
	m := e.m
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if e.gen != m.generation || m.state != from {
		return false
	}
	m.state = to
	return true
}

func (e *linkEvents) OnReconnecting() {
	if e.transition(model.StateConnected, model.StateConnecting) {
		e.m.logger.Warn("Printer link lost, reconnecting")
	}
}

func (e *linkEvents) OnReconnect() {
	if e.transition(model.StateConnecting, model.StateConnected) {
		e.m.logger.Info("Printer link restored")
	}
}

func (e *linkEvents) OnDisconnect() {
	m := e.m
	m.mutex.Lock()
	if e.gen != m.generation || m.state == model.StateDisconnected {
		m.mutex.Unlock()
		return
	}
	m.state = model.StateDisconnected
	m.device = nil
	observer := m.observer
	m.mutex.Unlock()

	m.logger.LogConnection("disconnect_event", true, nil)
	call(observer.OnDisconnect)
}

func (e *linkEvents) OnReceive(resp driver.Response) {
	if e.m.onReceive != nil {
		e.m.onReceive(resp)
	}
	if o, ok := e.m.current(e.gen); ok && o.OnReceive != nil {
		o.OnReceive(resp)
	}
}

func (e *linkEvents) OnStatusChange(bits uint32) {
	status := DecodeStatus(bits)
	m := e.m
	m.mutex.Lock()
	live := e.gen == m.generation
	if live {
		m.lastStatus = status
	}
	observer := m.observer
	m.mutex.Unlock()

	if live && observer.OnStatusChange != nil {
		observer.OnStatusChange(status)
	}
}

func (e *linkEvents) forward(pick func(Observer) func()) {
	if o, ok := e.m.current(e.gen); ok {
		call(pick(o))
	}
}

func (e *linkEvents) OnOnline() { e.forward(func(o Observer) func() { return o.OnOnline }) }
func (e *linkEvents) OnOffline() { e.forward(func(o Observer) func() { return o.OnOffline }) }
func (e *linkEvents) OnPowerOff() { e.forward(func(o Observer) func() { return o.OnPowerOff }) }
func (e *linkEvents) OnCoverOK() { e.forward(func(o Observer) func() { return o.OnCoverOK }) }
func (e *linkEvents) OnCoverOpen() { e.forward(func(o Observer) func() { return o.OnCoverOpen }) }
func (e *linkEvents) OnPaperOK() { e.forward(func(o Observer) func() { return o.OnPaperOK }) }
func (e *linkEvents) OnPaperNearEnd() { e.forward(func(o Observer) func() { return o.OnPaperNearEnd }) }
func (e *linkEvents) OnPaperEnd() { e.forward(func(o Observer) func() { return o.OnPaperEnd }) }
func (e *linkEvents) OnDrawerClosed() { e.forward(func(o Observer) func() { return o.OnDrawerClosed }) }
func (e *linkEvents) OnDrawerOpen() { e.forward(func(o Observer) func() { return o.OnDrawerOpen }) }
