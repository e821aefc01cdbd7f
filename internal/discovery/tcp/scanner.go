// internal/discovery/tcp/scanner.go
package tcp

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"printer-service/internal/discovery"
	"printer-service/internal/model"
)

// maxHostsPerRange bounds a single CIDR sweep (a /22)
const maxHostsPerRange = 1024

// realtimeStatusRequest is DLE EOT 1, answered with one printer status byte
var realtimeStatusRequest = []byte{0x10, 0x04, 0x01}

// Config for the TCP sweep
type Config struct {
	NetworkRanges  []string
	Ports          []int
	DialTimeout    time.Duration
	MaxConcurrency int
}

// Scanner sweeps network ranges for raw printing ports
type Scanner struct {
	logger *zap.Logger
	config Config
	dialer func(ctx context.Context, network, address string) (net.Conn, error)
}

// NewScanner creates a new TCP scanner
func NewScanner(logger *zap.Logger, config Config) *Scanner {
	if len(config.Ports) == 0 {
		config.Ports = []int{model.DefaultPort}
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = 300 * time.Millisecond
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 64
	}

	d := &net.Dialer{Timeout: config.DialTimeout}
	return &Scanner{
		logger: logger.With(zap.String("scanner", "tcp")),
		config: config,
		dialer: d.DialContext,
	}
}

// GetScannerType returns scanner type
func (s *Scanner) GetScannerType() string {
	return "tcp"
}

// IsAvailable reports whether any range is configured
func (s *Scanner) IsAvailable() bool {
	return len(s.config.NetworkRanges) > 0
}

// Scan dials every host and port in the configured ranges
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.DiscoveredPrinter, error) {
	var hosts []netip.Addr
	for _, cidr := range s.config.NetworkRanges {
		addrs, err := ExpandCIDR(cidr)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, addrs...)
	}

	s.logger.Info("Starting TCP printer sweep",
		zap.Strings("ranges", s.config.NetworkRanges),
		zap.Ints("ports", s.config.Ports),
		zap.Int("hosts", len(hosts)),
	)
	started := time.Now()

	var (
		mu    sync.Mutex
		found []*discovery.DiscoveredPrinter
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.MaxConcurrency)

	for _, host := range hosts {
		for _, port := range s.config.Ports {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if p := s.probe(gctx, host.String(), port); p != nil {
					mu.Lock()
					found = append(found, p)
					mu.Unlock()
				}
				return nil
			})
		}
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("tcp sweep interrupted: %w", err)
	}

	s.logger.Info("TCP sweep completed",
		zap.Int("printers_found", len(found)),
		zap.Duration("duration", time.Since(started)),
	)
	return found, nil
}

// probe connects and asks for the real-time status. An open port without
// a status reply is still reported, with lower confidence.
func (s *Scanner) probe(ctx context.Context, host string, port int) *discovery.DiscoveredPrinter {
	address := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := s.dialer(ctx, "tcp", address)
	if err != nil {
		return nil
	}
	defer conn.Close()

	printer := &discovery.DiscoveredPrinter{
		ConnectionType: model.ConnectionTypeTCP,
		Address:        host,
		Port:           port,
		Source:         "tcp",
		Confidence:     0.5,
	}

	_ = conn.SetDeadline(time.Now().Add(s.config.DialTimeout))
	if _, err := conn.Write(realtimeStatusRequest); err != nil {
		return printer
	}
	reply := make([]byte, 1)
	if n, err := conn.Read(reply); err == nil && n == 1 && IsStatusByte(reply[0]) {
		printer.Confidence = 0.9
	}

	s.logger.Debug("Printer port open",
		zap.String("address", address),
		zap.Float64("confidence", printer.Confidence),
	)
	return printer
}

// IsStatusByte checks the fixed bits of a real-time status reply
func IsStatusByte(b byte) bool {
	return b&0x93 == 0x12
}

// ExpandCIDR lists the host addresses of an IPv4 range. Network and
// broadcast addresses are skipped for ranges larger than /31.
func ExpandCIDR(cidr string) ([]netip.Addr, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return nil, fmt.Errorf("invalid network range %q: %w", cidr, err)
	}
	if !prefix.Addr().Is4() {
		return nil, fmt.Errorf("only IPv4 ranges are supported: %s", cidr)
	}
	prefix = prefix.Masked()

	hostBits := 32 - prefix.Bits()
	total := 1 << hostBits
	if total > maxHostsPerRange {
		return nil, fmt.Errorf("network range %s too large (max %d hosts)", cidr, maxHostsPerRange)
	}

	addrs := make([]netip.Addr, 0, total)
	addr := prefix.Addr()
	for i := 0; i < total; i++ {
		addrs = append(addrs, addr)
		addr = addr.Next()
	}
	if hostBits >= 2 {
		addrs = addrs[1 : len(addrs)-1]
	}
	return addrs, nil
}
