// internal/discovery/usb/scanner.go
package usb

import (
	"context"
	"fmt"
	"runtime"

	"github.com/google/gousb"
	"go.uber.org/zap"

	"printer-service/internal/discovery"
	"printer-service/internal/model"
)

// Scanner lists USB receipt printers from their descriptors. No device is
// opened, so a printer held by another process is still reported.
type Scanner struct {
	logger *zap.Logger
}

// NewScanner creates a new USB scanner
func NewScanner(logger *zap.Logger) *Scanner {
	return &Scanner{logger: logger.With(zap.String("scanner", "usb"))}
}

// GetScannerType returns scanner type identifier
func (s *Scanner) GetScannerType() string {
	return "usb"
}

// IsAvailable reports whether libusb enumeration is supported here
func (s *Scanner) IsAvailable() bool {
	switch runtime.GOOS {
	case "linux", "darwin", "windows":
		return true
	default:
		return false
	}
}

// Scan enumerates the bus
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.DiscoveredPrinter, error) {
	usbCtx := gousb.NewContext()
	defer func() {
		if err := usbCtx.Close(); err != nil {
			s.logger.Warn("Failed to close USB context", zap.Error(err))
		}
	}()

	var found []*discovery.DiscoveredPrinter
	devices, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if ctx.Err() != nil {
			return false
		}
		if p := Identify(desc); p != nil {
			found = append(found, p)
		}
		return false
	})
	for _, d := range devices {
		d.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.logger.Info("USB scan completed", zap.Int("printers_found", len(found)))
	return found, nil
}

// Identify classifies a device descriptor. Known vendors match by id;
// other devices match when an interface declares the printer class.
func Identify(desc *gousb.DeviceDesc) *discovery.DiscoveredPrinter {
	if desc == nil {
		return nil
	}
	p := &discovery.DiscoveredPrinter{
		ConnectionType: model.ConnectionTypeUSB,
		VendorID:       fmt.Sprintf("%04x", uint16(desc.Vendor)),
		ProductID:      fmt.Sprintf("%04x", uint16(desc.Product)),
		Source:         "usb",
	}

	if v, ok := knownVendors[desc.Vendor]; ok {
		p.Name = v.name
		if m, ok := v.products[desc.Product]; ok {
			p.Model = m
			p.Confidence = 0.95
		} else {
			p.Model = fmt.Sprintf("Unknown-%04X", uint16(desc.Product))
			p.Confidence = 0.6
		}
		return p
	}

	if hasPrinterInterface(desc) {
		p.Confidence = 0.4
		return p
	}
	return nil
}

func hasPrinterInterface(desc *gousb.DeviceDesc) bool {
	if desc.Class == gousb.ClassPrinter {
		return true
	}
	for _, cfg := range desc.Configs {
		for _, intf := range cfg.Interfaces {
			for _, alt := range intf.AltSettings {
				if alt.Class == gousb.ClassPrinter {
					return true
				}
			}
		}
	}
	return false
}
