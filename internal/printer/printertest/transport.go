// Package printertest provides an in-memory transport for exercising
// printer clients without hardware.
package printertest

import (
	"context"
	"sync"

	"printer-service/pkg/driver"
)

// Transport is a driver.Transport whose device answers every job with
// Respond. Connect fails with ConnectErr when set.
type Transport struct {
	mu         sync.Mutex
	ConnectErr error
	Respond    func(jobID string) driver.Response
	handler    driver.TransportHandler
	device     *Device
	connects   int
}

// NewTransport returns a transport whose jobs all succeed
func NewTransport() *Transport {
	return &Transport{
		Respond: func(jobID string) driver.Response {
			return driver.Response{JobID: jobID, Success: true, Code: driver.CodeSuccess, Status: driver.StatusPrintSuccess}
		},
	}
}

func (t *Transport) Connect(_ context.Context, _ string, _ int, h driver.TransportHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connects++
	if t.ConnectErr != nil {
		return t.ConnectErr
	}
	t.handler = h
	return nil
}

func (t *Transport) Disconnect() error {
	t.mu.Lock()
	t.handler = nil
	t.mu.Unlock()
	return nil
}

func (t *Transport) CreateDevice(_ context.Context, id string, _ driver.DeviceType, _ driver.DeviceOptions) (driver.Device, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.device = &Device{id: id, transport: t, handler: driver.NopEventHandler{}}
	return t.device, nil
}

func (t *Transport) DeleteDevice(context.Context, driver.Device) error {
	t.mu.Lock()
	t.device = nil
	t.mu.Unlock()
	return nil
}

// Connects returns how many times Connect was called
func (t *Transport) Connects() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connects
}

// Events returns the event handler of the current device, or nil
func (t *Transport) Events() driver.EventHandler {
	t.mu.Lock()
	d := t.device
	t.mu.Unlock()
	if d == nil {
		return nil
	}
	return d.events()
}

// Drop simulates a lost link that could not be restored
func (t *Transport) Drop() {
	t.mu.Lock()
	h := t.handler
	t.mu.Unlock()
	if h != nil {
		h.OnDisconnect()
	}
}

// Device is the handle created by Transport
type Device struct {
	mu        sync.Mutex
	id        string
	transport *Transport
	handler   driver.EventHandler
	monitor   bool
	sent      [][]byte
}

func (d *Device) ID() string { return d.id }

func (d *Device) Send(_ context.Context, jobID string, payload []byte) error {
	d.mu.Lock()
	d.sent = append(d.sent, payload)
	h := d.handler
	d.mu.Unlock()

	d.transport.mu.Lock()
	respond := d.transport.Respond
	d.transport.mu.Unlock()

	if respond != nil {
		resp := respond(jobID)
		go h.OnReceive(resp)
	}
	return nil
}

func (d *Device) StartMonitor() error {
	d.mu.Lock()
	d.monitor = true
	d.mu.Unlock()
	return nil
}

func (d *Device) StopMonitor() error {
	d.mu.Lock()
	d.monitor = false
	d.mu.Unlock()
	return nil
}

func (d *Device) SetEventHandler(h driver.EventHandler) {
	if h == nil {
		h = driver.NopEventHandler{}
	}
	d.mu.Lock()
	d.handler = h
	d.mu.Unlock()
}

func (d *Device) events() driver.EventHandler {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handler
}
