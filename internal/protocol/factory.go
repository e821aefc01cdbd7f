// internal/protocol/factory.go
package protocol

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"printer-service/internal/model"
)

// Factory builds a link for a settings record
type Factory func(settings model.PrinterSettings, logger *zap.Logger) (DeviceProtocol, error)

// CreateProtocol creates a protocol for the settings' interface
func CreateProtocol(settings model.PrinterSettings, logger *zap.Logger) (DeviceProtocol, error) {
	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	switch settings.Interface {
	case model.ConnectionTypeSerial:
		return createSerialProtocol(settings, logger), nil
	case model.ConnectionTypeUSB:
		return createUSBProtocol(settings, logger), nil
	case model.ConnectionTypeTCP:
		return createTCPProtocol(settings, logger), nil
	default:
		return nil, fmt.Errorf("unsupported protocol type: %s", settings.Interface)
	}
}

func createSerialProtocol(settings model.PrinterSettings, logger *zap.Logger) DeviceProtocol {
	port := settings.SerialPort
	if port == "" {
		port = settings.Address
	}
	serialConfig := &SerialConfig{
		Port:        port,
		BaudRate:    settings.BaudRate,
		DataBits:    8,
		StopBits:    1,
		Parity:      "none",
		ReadTimeout: settings.MonitorInterval,
	}

	logger.Debug("Creating serial protocol",
		zap.String("port", serialConfig.Port),
		zap.Int("baud_rate", serialConfig.BaudRate),
	)
	return NewSerialConnection(serialConfig, logger)
}

func createUSBProtocol(settings model.PrinterSettings, logger *zap.Logger) DeviceProtocol {
	usbConfig := &USBConfig{
		VendorID:    settings.VendorID,
		ProductID:   settings.ProductID,
		OutEndpoint: 1,
		InEndpoint:  2,
		Timeout:     settings.Timeout,
	}

	logger.Debug("Creating USB protocol",
		zap.String("vendor_id", usbConfig.VendorID),
		zap.String("product_id", usbConfig.ProductID),
	)
	return NewUSBConnection(usbConfig, logger)
}

func createTCPProtocol(settings model.PrinterSettings, logger *zap.Logger) DeviceProtocol {
	tcpConfig := &TCPConfig{
		Host:           settings.Address,
		Port:           settings.Port,
		SSL:            settings.SSL,
		KeepAlive:      true,
		ConnectTimeout: 10 * time.Second,
		WriteTimeout:   settings.Timeout,
	}

	logger.Debug("Creating TCP protocol",
		zap.String("host", tcpConfig.Host),
		zap.Int("port", tcpConfig.Port),
		zap.Bool("ssl", tcpConfig.SSL),
	)
	return NewTCPConnection(tcpConfig, logger)
}

var validBaudRates = []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}

// ValidateSettings checks the link level fields of a settings record
func ValidateSettings(settings model.PrinterSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	switch settings.Interface {
	case model.ConnectionTypeSerial:
		for _, rate := range validBaudRates {
			if settings.BaudRate == rate {
				return nil
			}
		}
		return fmt.Errorf("invalid baud rate: %d", settings.BaudRate)
	case model.ConnectionTypeUSB:
		if _, err := ParseHexID(settings.VendorID); err != nil {
			return fmt.Errorf("invalid vendor ID: %w", err)
		}
		if _, err := ParseHexID(settings.ProductID); err != nil {
			return fmt.Errorf("invalid product ID: %w", err)
		}
	}
	return nil
}
