// internal/printer/errors.go
package printer

import (
	"errors"
	"fmt"

	"printer-service/internal/model"
	"printer-service/pkg/devicetypes"
)

// Error codes
const (
	// connection
	CodeInvalidSettings   = "INVALID_SETTINGS"
	CodeDeviceNotFound    = "DEVICE_NOT_FOUND"
	CodeDeviceBusy        = "DEVICE_BUSY"
	CodeDeviceInUse       = "DEVICE_IN_USE"
	CodeDeviceTypeInvalid = "DEVICE_TYPE_INVALID"
	CodeDeviceOpenError   = "DEVICE_OPEN_ERROR"
	CodeConnectTimeout    = "CONNECT_TIMEOUT"
	CodeSSLConnectFail    = "SSL_CONNECT_FAIL"
	CodeDisconnect        = "DISCONNECT"
	CodeErrorParameter    = "ERROR_PARAMETER"
	CodeSystemError       = "SYSTEM_ERROR"

	// printing
	CodeNotInitialized = "NOT_INITIALIZED"
	CodeNotConnected   = "NOT_CONNECTED"
	CodeTimeout        = "TIMEOUT"
	CodePrintFailed    = "PRINT_FAILED"
	CodeCanceled       = "CANCELED"
	CodeUnknown        = "UNKNOWN"
)

// Error is a coded printer error.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an Error with the standard message for code.
func NewError(code string, cause error) *Error {
	return &Error{Code: code, Message: devicetypes.MessageFor(code), Err: cause}
}

// CodeOf extracts the code from err, or UNKNOWN.
func CodeOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeUnknown
}

// Info converts the error to its PrintResult form.
func (e *Error) Info() *model.ErrorInfo {
	return &model.ErrorInfo{Code: e.Code, Message: e.Message}
}
