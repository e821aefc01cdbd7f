// internal/protocol/tcp_connection.go
package protocol

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"printer-service/internal/model"
)

// ErrTLSHandshake marks a failed TLS negotiation
var ErrTLSHandshake = errors.New("tls handshake failed")

// TCPConnection implements DeviceProtocol over raw TCP (port 9100)
type TCPConnection struct {
	config *TCPConfig
	conn   net.Conn
	logger *zap.Logger
	mutex  sync.RWMutex
}

// NewTCPConnection creates a new TCP connection
func NewTCPConnection(config *TCPConfig, logger *zap.Logger) DeviceProtocol {
	return &TCPConnection{
		config: config,
		logger: logger.With(
			zap.String("protocol", "tcp"),
			zap.String("host", config.Host),
			zap.Int("port", config.Port),
		),
	}
}

// Open dials the printer
func (tc *TCPConnection) Open(ctx context.Context) error {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if tc.conn != nil {
		return nil
	}

	dialer := &net.Dialer{
		Timeout:   tc.config.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
	address := net.JoinHostPort(tc.config.Host, strconv.Itoa(tc.config.Port))

	var conn net.Conn
	var err error
	if tc.config.SSL {
		tlsDialer := &tls.Dialer{
			NetDialer: dialer,
			Config:    &tls.Config{ServerName: tc.config.Host},
		}
		conn, err = tlsDialer.DialContext(ctx, "tcp", address)
		if err != nil {
			var recErr tls.RecordHeaderError
			var certErr *tls.CertificateVerificationError
			if errors.As(err, &recErr) || errors.As(err, &certErr) {
				err = fmt.Errorf("%w: %v", ErrTLSHandshake, err)
			}
		}
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", address)
	}
	if err != nil {
		tc.logger.Warn("Failed to open TCP connection", zap.Error(err))
		return fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok && tc.config.KeepAlive {
		tcpConn.SetKeepAlive(true)
		tcpConn.SetKeepAlivePeriod(30 * time.Second)
	}

	tc.conn = conn
	tc.logger.Info("TCP connection opened")
	return nil
}

// Close closes the TCP connection and unblocks pending reads
func (tc *TCPConnection) Close() error {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if tc.conn == nil {
		return nil
	}
	err := tc.conn.Close()
	tc.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close TCP connection: %w", err)
	}
	tc.logger.Info("TCP connection closed")
	return nil
}

// IsOpen returns whether the connection is open
func (tc *TCPConnection) IsOpen() bool {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return tc.conn != nil
}

func (tc *TCPConnection) current() net.Conn {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return tc.conn
}

// Write writes data to the printer
func (tc *TCPConnection) Write(ctx context.Context, data []byte) error {
	conn := tc.current()
	if conn == nil {
		return ErrNotOpen
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline := time.Time{}
	if tc.config.WriteTimeout > 0 {
		deadline = time.Now().Add(tc.config.WriteTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	conn.SetWriteDeadline(deadline)

	n, err := conn.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write to TCP connection: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data))
	}
	tc.logger.Debug("TCP write completed", zap.Int("bytes", n))
	return nil
}

// Read reads whatever the printer sends next
func (tc *TCPConnection) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	conn := tc.current()
	if conn == nil {
		return nil, ErrNotOpen
	}

	conn.SetReadDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	buffer := make([]byte, maxBytes)
	n, err := conn.Read(buffer)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to read from TCP connection: %w", err)
	}
	return buffer[:n], nil
}

// GetProtocolType returns the protocol type
func (tc *TCPConnection) GetProtocolType() model.ConnectionType {
	return model.ConnectionTypeTCP
}
