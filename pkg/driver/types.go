// pkg/driver/types.go
package driver

import "time"

// DeviceType identifies the kind of logical device to create
type DeviceType string

const (
	DeviceTypePrinter DeviceType = "printer"
)

// Align is the horizontal text alignment
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// DeviceOptions are passed to CreateDevice
type DeviceOptions struct {
	// Crypto requests an encrypted channel to the device.
	Crypto bool
	// Buffer enables the transport side send buffer.
	Buffer bool
	// Density is the print density step, 0 for the printer default.
	Density int
	// MonitorInterval is the status polling period used by StartMonitor.
	MonitorInterval time.Duration
}

// Response is the asynchronous outcome of a Send call
type Response struct {
	JobID   string `json:"job_id"`
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Status  uint32 `json:"status"`
}

// Codes carried in Response.Code
const (
	CodeSuccess        = "SUCCESS"
	CodeCoverOpen      = "EPTR_COVER_OPEN"
	CodeReceiptEnd     = "EPTR_REC_EMPTY"
	CodeMechanical     = "EPTR_MECHANICAL"
	CodeAutocutter     = "EPTR_CUTTER"
	CodeUnrecoverable  = "EPTR_UNRECOVERABLE"
	CodeAutoRecover    = "EPTR_AUTOMATICAL"
	CodeDeviceOffline  = "DEVICE_OFFLINE"
	CodeDeviceNoResp   = "DEVICE_NO_RESPONSE"
	CodeTransportError = "PRINT_FAILED"
)

// Bits of the automatic status back bitmask. Byte n of the 4-byte status
// frame maps to bits 8n..8n+7.
const (
	StatusNoResponse     uint32 = 0x00000001
	StatusPrintSuccess   uint32 = 0x00000002
	StatusDrawerKick     uint32 = 0x00000004
	StatusOffline        uint32 = 0x00000008
	StatusCoverOpen      uint32 = 0x00000020
	StatusPaperFeed      uint32 = 0x00000040
	StatusWaitOnline     uint32 = 0x00000100
	StatusPanelSwitch    uint32 = 0x00000200
	StatusMechanicalErr  uint32 = 0x00000400
	StatusAutocutterErr  uint32 = 0x00000800
	StatusUnrecoverErr   uint32 = 0x00002000
	StatusAutorecoverErr uint32 = 0x00004000
	StatusReceiptNearEnd uint32 = 0x00020000
	StatusReceiptEnd     uint32 = 0x00080000
	StatusBuzzer         uint32 = 0x01000000
)

// NopEventHandler implements EventHandler with no-op methods.
type NopEventHandler struct{}

func (NopEventHandler) OnReceive(Response) {}
func (NopEventHandler) OnStatusChange(uint32) {}
func (NopEventHandler) OnOnline() {}
func (NopEventHandler) OnOffline() {}
func (NopEventHandler) OnPowerOff() {}
func (NopEventHandler) OnCoverOK() {}
func (NopEventHandler) OnCoverOpen() {}
func (NopEventHandler) OnPaperOK() {}
func (NopEventHandler) OnPaperNearEnd() {}
func (NopEventHandler) OnPaperEnd() {}
func (NopEventHandler) OnDrawerClosed() {}
func (NopEventHandler) OnDrawerOpen() {}
