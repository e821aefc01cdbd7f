// internal/discovery/serial/scanner.go
package serial

import (
	"context"
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"printer-service/internal/discovery"
	"printer-service/internal/model"
)

// epsonVendorID is reported by Epson USB-serial bridges
const epsonVendorID = "04B8"

// Scanner lists serial ports. Ports cannot be probed without claiming
// them, so confidence stays low unless the port is an Epson bridge.
type Scanner struct {
	logger *zap.Logger
	list   func() ([]*enumerator.PortDetails, error)
}

// NewScanner creates a new serial scanner
func NewScanner(logger *zap.Logger) *Scanner {
	return &Scanner{
		logger: logger.With(zap.String("scanner", "serial")),
		list:   enumerator.GetDetailedPortsList,
	}
}

// GetScannerType returns scanner type
func (s *Scanner) GetScannerType() string {
	return "serial"
}

// IsAvailable reports true; every supported platform has serial ports
func (s *Scanner) IsAvailable() bool {
	return true
}

// Scan lists ports
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.DiscoveredPrinter, error) {
	ports, err := s.list()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	found := make([]*discovery.DiscoveredPrinter, 0, len(ports))
	for _, port := range ports {
		found = append(found, fromPort(port))
	}
	s.logger.Info("Serial scan completed", zap.Int("ports_found", len(found)))
	return found, nil
}

func fromPort(port *enumerator.PortDetails) *discovery.DiscoveredPrinter {
	p := &discovery.DiscoveredPrinter{
		ConnectionType: model.ConnectionTypeSerial,
		SerialPort:     port.Name,
		Source:         "serial",
		Confidence:     0.2,
	}
	if port.IsUSB {
		p.Model = port.Product
		if strings.EqualFold(port.VID, epsonVendorID) {
			p.Name = "EPSON"
			p.Confidence = 0.7
		}
	}
	return p
}
