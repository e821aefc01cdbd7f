// pkg/driver/interfaces.go
package driver

import (
	"context"

	"printer-service/internal/model"
)

// Transport is the device transport capability a printer client is built on.
// Implementations deliver every callback from a single goroutine.
type Transport interface {
	// Connection lifecycle
	Connect(ctx context.Context, address string, port int, handler TransportHandler) error
	Disconnect() error

	// Logical device handles
	CreateDevice(ctx context.Context, deviceID string, deviceType DeviceType, opts DeviceOptions) (Device, error)
	DeleteDevice(ctx context.Context, device Device) error
}

// Device is a logical printer handle obtained from a Transport.
type Device interface {
	ID() string

	// Send transmits a fully encoded job. The outcome arrives later through
	// EventHandler.OnReceive with the same job id.
	Send(ctx context.Context, jobID string, payload []byte) error

	// Status monitoring
	StartMonitor() error
	StopMonitor() error

	SetEventHandler(handler EventHandler)
}

// TransportHandler receives link level events.
type TransportHandler interface {
	OnReconnecting()
	OnReconnect()
	OnDisconnect()
}

// EventHandler receives device level events.
type EventHandler interface {
	OnReceive(resp Response)
	OnStatusChange(status uint32)

	OnOnline()
	OnOffline()
	OnPowerOff()
	OnCoverOK()
	OnCoverOpen()
	OnPaperOK()
	OnPaperNearEnd()
	OnPaperEnd()
	OnDrawerClosed()
	OnDrawerOpen()
}

// Builder accumulates print commands for one job and encodes them for the
// device.
type Builder interface {
	AddTextLang(lang string)
	AddDensity(step int)
	AddText(text string)
	AddTextAlign(align Align)
	AddTextStyle(emphasis bool)
	AddTextSize(width, height int)
	AddFeedLine(lines int)
	AddCut(cut model.CutType)
	AddPulse()
	AddSound()

	Encode() ([]byte, error)
}
