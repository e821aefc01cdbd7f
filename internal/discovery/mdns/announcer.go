// internal/discovery/mdns/announcer.go
package mdns

import (
	"fmt"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"
)

// Announcer advertises the print agent so POS terminals can find it
type Announcer struct {
	server *zeroconf.Server
	logger *zap.Logger
}

// Announce registers instance under service on every interface
func Announce(instance, service string, port int, txt []string, logger *zap.Logger) (*Announcer, error) {
	server, err := zeroconf.Register(instance, service, "local.", port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mdns service: %w", err)
	}
	logger.Info("mDNS service announced",
		zap.String("instance", instance),
		zap.String("service", service),
		zap.Int("port", port),
	)
	return &Announcer{server: server, logger: logger}, nil
}

// Shutdown withdraws the announcement
func (a *Announcer) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	a.logger.Info("mDNS announcement stopped")
}
