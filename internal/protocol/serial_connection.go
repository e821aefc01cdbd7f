// internal/protocol/serial_connection.go
package protocol

import (
	"context"
	"fmt"
	"sync"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"printer-service/internal/model"
)

// SerialConnection implements DeviceProtocol for RS-232 printers
type SerialConnection struct {
	config *SerialConfig
	port   serial.Port
	logger *zap.Logger
	mutex  sync.RWMutex
}

// NewSerialConnection creates a new serial connection
func NewSerialConnection(config *SerialConfig, logger *zap.Logger) DeviceProtocol {
	return &SerialConnection{
		config: config,
		logger: logger.With(
			zap.String("protocol", "serial"),
			zap.String("port", config.Port),
		),
	}
}

// Open opens the serial port
func (sc *SerialConnection) Open(ctx context.Context) error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if sc.port != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	mode := &serial.Mode{
		BaudRate: sc.config.BaudRate,
		DataBits: sc.config.DataBits,
		StopBits: stopBits(sc.config.StopBits),
	}
	switch sc.config.Parity {
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	default:
		mode.Parity = serial.NoParity
	}

	port, err := serial.Open(sc.config.Port, mode)
	if err != nil {
		sc.logger.Warn("Failed to open serial port", zap.Error(err))
		return fmt.Errorf("failed to open serial port: %w", err)
	}
	if sc.config.ReadTimeout > 0 {
		if err := port.SetReadTimeout(sc.config.ReadTimeout); err != nil {
			port.Close()
			return fmt.Errorf("failed to set read timeout: %w", err)
		}
	}

	sc.port = port
	sc.logger.Info("Serial port opened", zap.Int("baud_rate", sc.config.BaudRate))
	return nil
}

func stopBits(n int) serial.StopBits {
	if n == 2 {
		return serial.TwoStopBits
	}
	return serial.OneStopBit
}

// Close closes the serial port
func (sc *SerialConnection) Close() error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if sc.port == nil {
		return nil
	}
	err := sc.port.Close()
	sc.port = nil
	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	sc.logger.Info("Serial port closed")
	return nil
}

// IsOpen returns whether the port is open
func (sc *SerialConnection) IsOpen() bool {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.port != nil
}

func (sc *SerialConnection) current() serial.Port {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.port
}

// Write writes data to the serial port
func (sc *SerialConnection) Write(ctx context.Context, data []byte) error {
	port := sc.current()
	if port == nil {
		return ErrNotOpen
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	n, err := port.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write to serial port: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data))
	}
	sc.logger.Debug("Serial write completed", zap.Int("bytes", n))
	return nil
}

// Read reads from the serial port. A read timeout yields an empty slice.
func (sc *SerialConnection) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	port := sc.current()
	if port == nil {
		return nil, ErrNotOpen
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buffer := make([]byte, maxBytes)
	n, err := port.Read(buffer)
	if err != nil {
		return nil, fmt.Errorf("failed to read from serial port: %w", err)
	}
	return buffer[:n], nil
}

// GetProtocolType returns the protocol type
func (sc *SerialConnection) GetProtocolType() model.ConnectionType {
	return model.ConnectionTypeSerial
}
