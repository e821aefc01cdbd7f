// pkg/driver/errors.go
package driver

import (
	"errors"

	"printer-service/internal/model"
)

// Errors returned by Transport and Device implementations. Callers map them
// onto their own error codes with errors.Is.
var (
	ErrNotConnected      = errors.New("transport not connected")
	ErrAlreadyConnected  = errors.New("transport already connected")
	ErrDeviceNotFound    = errors.New("device not found")
	ErrDeviceInUse       = errors.New("device id already in use")
	ErrDeviceTypeInvalid = errors.New("device type not supported")
	ErrDeviceBusy        = errors.New("device busy")
	ErrDeviceOpen        = errors.New("device open failed")
	ErrSSLConnect        = errors.New("ssl connect failed")
)

// Configurable is implemented by transports that need the full settings
// record, not just the address and port passed to Connect.
type Configurable interface {
	Configure(settings model.PrinterSettings)
}
