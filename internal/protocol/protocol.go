// internal/protocol/protocol.go
package protocol

import (
	"context"
	"errors"

	"printer-service/internal/model"
)

// ErrNotOpen is returned by Read and Write on a closed link
var ErrNotOpen = errors.New("link not open")

// DeviceProtocol is a byte link to a printer
type DeviceProtocol interface {
	// Connection lifecycle
	Open(ctx context.Context) error
	Close() error
	IsOpen() bool

	// Data communication. Read blocks until data arrives, the link is closed
	// or ctx is done; it may return an empty slice on a link level timeout.
	Write(ctx context.Context, data []byte) error
	Read(ctx context.Context, maxBytes int) ([]byte, error)

	// Protocol information
	GetProtocolType() model.ConnectionType
}
