// internal/discovery/scanner.go
package discovery

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"printer-service/internal/model"
)

// PrinterScanner finds receipt printers over one kind of link
type PrinterScanner interface {
	Scan(ctx context.Context) ([]*DiscoveredPrinter, error)
	GetScannerType() string
	IsAvailable() bool
}

// DiscoveredPrinter is a printer candidate a scanner reported
type DiscoveredPrinter struct {
	ConnectionType model.ConnectionType `json:"connection_type"`
	Address        string               `json:"address,omitempty"`
	Port           int                  `json:"port,omitempty"`
	SerialPort     string               `json:"serial_port,omitempty"`
	VendorID       string               `json:"vendor_id,omitempty"`
	ProductID      string               `json:"product_id,omitempty"`
	Name           string               `json:"name,omitempty"`
	Model          string               `json:"model,omitempty"`
	Source         string               `json:"source"`
	Confidence     float64              `json:"confidence"` // 0.0-1.0
}

// Key identifies the endpoint regardless of which scanner found it
func (p *DiscoveredPrinter) Key() string {
	switch p.ConnectionType {
	case model.ConnectionTypeSerial:
		return "serial:" + p.SerialPort
	case model.ConnectionTypeUSB:
		return fmt.Sprintf("usb:%s:%s", p.VendorID, p.ProductID)
	default:
		return fmt.Sprintf("tcp:%s:%d", p.Address, p.Port)
	}
}

// Settings returns a settings patch that points the client at the printer
func (p *DiscoveredPrinter) Settings() model.SettingsPatch {
	iface := p.ConnectionType
	patch := model.SettingsPatch{Interface: &iface}
	switch p.ConnectionType {
	case model.ConnectionTypeSerial:
		patch.SerialPort = &p.SerialPort
	case model.ConnectionTypeUSB:
		patch.VendorID = &p.VendorID
		patch.ProductID = &p.ProductID
	default:
		patch.Address = &p.Address
		patch.Port = &p.Port
	}
	return patch
}

// ScannerManager runs every registered scanner and merges their results
type ScannerManager struct {
	mutex    sync.RWMutex
	scanners map[string]PrinterScanner
	logger   *zap.Logger
}

// NewScannerManager creates a new scanner manager
func NewScannerManager(logger *zap.Logger) *ScannerManager {
	return &ScannerManager{
		scanners: make(map[string]PrinterScanner),
		logger:   logger.With(zap.String("component", "discovery")),
	}
}

// RegisterScanner registers a printer scanner
func (sm *ScannerManager) RegisterScanner(scanner PrinterScanner) {
	scannerType := scanner.GetScannerType()
	sm.mutex.Lock()
	sm.scanners[scannerType] = scanner
	sm.mutex.Unlock()
	sm.logger.Info("Scanner registered", zap.String("type", scannerType))
}

// ScanAll runs the available scanners in parallel. A failing scanner is
// logged and skipped. Duplicates keep the highest confidence entry.
func (sm *ScannerManager) ScanAll(ctx context.Context) ([]*DiscoveredPrinter, error) {
	sm.mutex.RLock()
	scanners := make([]PrinterScanner, 0, len(sm.scanners))
	for _, s := range sm.scanners {
		scanners = append(scanners, s)
	}
	sm.mutex.RUnlock()

	var (
		mu    sync.Mutex
		found []*DiscoveredPrinter
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, scanner := range scanners {
		scannerType := scanner.GetScannerType()
		if !scanner.IsAvailable() {
			sm.logger.Debug("Scanner not available, skipping", zap.String("type", scannerType))
			continue
		}
		g.Go(func() error {
			printers, err := scanner.Scan(gctx)
			if err != nil {
				sm.logger.Error("Scanner failed", zap.String("type", scannerType), zap.Error(err))
				return nil
			}
			sm.logger.Info("Scanner completed",
				zap.String("type", scannerType),
				zap.Int("printers_found", len(printers)),
			)
			mu.Lock()
			found = append(found, printers...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("discovery canceled: %w", err)
	}

	return Merge(found), nil
}

// ScanByType runs a single scanner
func (sm *ScannerManager) ScanByType(ctx context.Context, scannerType string) ([]*DiscoveredPrinter, error) {
	sm.mutex.RLock()
	scanner, exists := sm.scanners[scannerType]
	sm.mutex.RUnlock()
	if !exists {
		return nil, fmt.Errorf("scanner type not found: %s", scannerType)
	}
	if !scanner.IsAvailable() {
		return nil, fmt.Errorf("scanner not available: %s", scannerType)
	}

	printers, err := scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return Merge(printers), nil
}

// GetAvailableScanners returns the available scanner types, sorted
func (sm *ScannerManager) GetAvailableScanners() []string {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	var available []string
	for scannerType, scanner := range sm.scanners {
		if scanner.IsAvailable() {
			available = append(available, scannerType)
		}
	}
	sort.Strings(available)
	return available
}

// Merge removes duplicate endpoints, keeping the most confident entry and
// filling its empty name or model from the others. The result is sorted
// by confidence then key.
func Merge(printers []*DiscoveredPrinter) []*DiscoveredPrinter {
	byKey := make(map[string]*DiscoveredPrinter, len(printers))
	for _, p := range printers {
		if p == nil {
			continue
		}
		key := p.Key()
		existing, ok := byKey[key]
		if !ok {
			copied := *p
			byKey[key] = &copied
			continue
		}
		best, other := existing, p
		if p.Confidence > existing.Confidence {
			copied := *p
			best, other = &copied, existing
		}
		if best.Name == "" {
			best.Name = other.Name
		}
		if best.Model == "" {
			best.Model = other.Model
		}
		byKey[key] = best
	}

	merged := make([]*DiscoveredPrinter, 0, len(byKey))
	for _, p := range byKey {
		merged = append(merged, p)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Confidence != merged[j].Confidence {
			return merged[i].Confidence > merged[j].Confidence
		}
		return merged[i].Key() < merged[j].Key()
	})
	return merged
}
