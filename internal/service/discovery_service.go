// internal/service/discovery_service.go
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"printer-service/internal/discovery"
	"printer-service/internal/model"
	"printer-service/internal/utils"
)

// DiscoveryResult is the outcome of the most recent scan
type DiscoveryResult struct {
	Printers  []*discovery.DiscoveredPrinter `json:"printers"`
	Scanners  []string                       `json:"scanners"`
	ScannedAt time.Time                      `json:"scanned_at"`
	Duration  time.Duration                  `json:"duration"`
}

// DiscoveryService runs printer scans and applies a chosen result to the
// printer settings
type DiscoveryService struct {
	scanners *discovery.ScannerManager
	printer  *PrinterService
	timeout  time.Duration
	logger   *utils.ServiceLogger

	scanMu sync.Mutex

	mutex sync.RWMutex
	last  *DiscoveryResult
}

// NewDiscoveryService creates a discovery service
func NewDiscoveryService(scanners *discovery.ScannerManager, printerService *PrinterService, timeout time.Duration, logger *zap.Logger) *DiscoveryService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DiscoveryService{
		scanners: scanners,
		printer:  printerService,
		timeout:  timeout,
		logger:   utils.NewServiceLogger(logger, "discovery-service"),
	}
}

// Scan runs every scanner, or only scannerType when set. Concurrent calls
// wait for the running scan.
func (s *DiscoveryService) Scan(ctx context.Context, scannerType string) (*DiscoveryResult, error) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	var (
		printers []*discovery.DiscoveredPrinter
		err      error
		used     []string
	)
	if scannerType == "" {
		used = s.scanners.GetAvailableScanners()
		printers, err = s.scanners.ScanAll(ctx)
	} else {
		used = []string{scannerType}
		printers, err = s.scanners.ScanByType(ctx, scannerType)
	}
	if err != nil {
		s.logger.Error("Printer discovery failed", zap.String("scanner", scannerType), zap.Error(err))
		return nil, err
	}

	result := &DiscoveryResult{
		Printers:  printers,
		Scanners:  used,
		ScannedAt: started,
		Duration:  time.Since(started),
	}
	s.mutex.Lock()
	s.last = result
	s.mutex.Unlock()

	s.logger.Info("Printer discovery completed",
		zap.Strings("scanners", used),
		zap.Int("printers_found", len(printers)),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// Last returns the cached result of the previous scan, or nil
func (s *DiscoveryService) Last() *DiscoveryResult {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.last
}

// Use points the printer settings at a printer from the last scan
func (s *DiscoveryService) Use(key string) (model.PrinterSettings, error) {
	last := s.Last()
	if last == nil {
		return model.PrinterSettings{}, fmt.Errorf("no discovery results, scan first")
	}
	for _, p := range last.Printers {
		if p.Key() == key {
			return s.printer.UpdateSettings(p.Settings())
		}
	}
	return model.PrinterSettings{}, fmt.Errorf("printer %q not in discovery results", key)
}
