// internal/discovery/mdns/scanner.go
package mdns

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"printer-service/internal/discovery"
	"printer-service/internal/model"
)

// DefaultService is the Bonjour service raw-port printers advertise
const DefaultService = "_pdl-datastream._tcp"

// Scanner browses mDNS for network printers
type Scanner struct {
	logger  *zap.Logger
	service string
	timeout time.Duration
}

// NewScanner creates an mDNS scanner for service. Each scan listens for
// timeout.
func NewScanner(logger *zap.Logger, service string, timeout time.Duration) *Scanner {
	if service == "" {
		service = DefaultService
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Scanner{
		logger:  logger.With(zap.String("scanner", "mdns")),
		service: service,
		timeout: timeout,
	}
}

func (s *Scanner) GetScannerType() string { return "mdns" }

func (s *Scanner) IsAvailable() bool { return true }

// Scan collects announcements until the browse window closes
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.DiscoveredPrinter, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mdns resolver: %w", err)
	}

	browseCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 16)
	results := make(chan []*discovery.DiscoveredPrinter, 1)
	go func() {
		var found []*discovery.DiscoveredPrinter
		defer func() { results <- found }()
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				if p := FromEntry(entry); p != nil {
					s.logger.Debug("Printer announced",
						zap.String("instance", entry.Instance),
						zap.String("address", p.Address),
						zap.Int("port", p.Port),
					)
					found = append(found, p)
				}
			case <-browseCtx.Done():
				return
			}
		}
	}()

	if err := resolver.Browse(browseCtx, s.service, "local.", entries); err != nil {
		cancel()
		return nil, fmt.Errorf("mdns browse failed: %w", err)
	}
	found := <-results

	s.logger.Info("mDNS browse completed",
		zap.String("service", s.service),
		zap.Int("printers_found", len(found)),
	)
	return found, nil
}

// FromEntry converts an announcement. Entries without an IPv4 address are
// skipped.
func FromEntry(entry *zeroconf.ServiceEntry) *discovery.DiscoveredPrinter {
	if entry == nil || len(entry.AddrIPv4) == 0 {
		return nil
	}
	port := entry.Port
	if port == 0 {
		port = model.DefaultPort
	}
	return &discovery.DiscoveredPrinter{
		ConnectionType: model.ConnectionTypeTCP,
		Address:        entry.AddrIPv4[0].String(),
		Port:           port,
		Name:           entry.Instance,
		Model:          ModelFromTXT(entry.Text),
		Source:         "mdns",
		Confidence:     0.8,
	}
}

// ModelFromTXT reads the printer model from Bonjour TXT records
func ModelFromTXT(records []string) string {
	values := make(map[string]string, len(records))
	for _, r := range records {
		key, value, ok := strings.Cut(r, "=")
		if !ok {
			continue
		}
		values[strings.ToLower(key)] = value
	}
	if v := values["usb_mdl"]; v != "" {
		return v
	}
	if v := strings.Trim(values["product"], "()"); v != "" {
		return v
	}
	return values["ty"]
}
