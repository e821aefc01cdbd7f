// internal/protocol/usb_connection.go
package protocol

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/gousb"
	"go.uber.org/zap"

	"printer-service/internal/model"
)

// USBConnection implements DeviceProtocol over a USB bulk interface
type USBConnection struct {
	config   *USBConfig
	usbCtx   *gousb.Context
	device   *gousb.Device
	release  func()
	outEndpt *gousb.OutEndpoint
	inEndpt  *gousb.InEndpoint
	logger   *zap.Logger
	mutex    sync.RWMutex
}

// NewUSBConnection creates a new USB connection
func NewUSBConnection(config *USBConfig, logger *zap.Logger) DeviceProtocol {
	return &USBConnection{
		config: config,
		logger: logger.With(
			zap.String("protocol", "usb"),
			zap.String("vendor_id", config.VendorID),
			zap.String("product_id", config.ProductID),
		),
	}
}

// Open finds the device and claims its default interface
func (uc *USBConnection) Open(ctx context.Context) error {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	if uc.device != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	vendorID, err := ParseHexID(uc.config.VendorID)
	if err != nil {
		return fmt.Errorf("invalid vendor ID: %w", err)
	}
	productID, err := ParseHexID(uc.config.ProductID)
	if err != nil {
		return fmt.Errorf("invalid product ID: %w", err)
	}

	usbCtx := gousb.NewContext()
	device, err := usbCtx.OpenDeviceWithVIDPID(vendorID, productID)
	if err != nil {
		usbCtx.Close()
		return fmt.Errorf("failed to open USB device: %w", err)
	}
	if device == nil {
		usbCtx.Close()
		return fmt.Errorf("USB device not found (VID: %s, PID: %s)", vendorID, productID)
	}
	device.SetAutoDetach(true)

	intf, done, err := device.DefaultInterface()
	if err != nil {
		device.Close()
		usbCtx.Close()
		return fmt.Errorf("failed to claim interface: %w", err)
	}

	outEndpt, err := intf.OutEndpoint(uc.config.OutEndpoint)
	if err != nil {
		done()
		device.Close()
		usbCtx.Close()
		return fmt.Errorf("failed to get out endpoint: %w", err)
	}

	// printers without a status channel have no IN endpoint
	inEndpt, err := intf.InEndpoint(uc.config.InEndpoint)
	if err != nil {
		uc.logger.Warn("No in endpoint found", zap.Error(err))
		inEndpt = nil
	}

	uc.usbCtx = usbCtx
	uc.device = device
	uc.release = done
	uc.outEndpt = outEndpt
	uc.inEndpt = inEndpt

	uc.logger.Info("USB connection opened")
	return nil
}

// Close releases the interface and the device
func (uc *USBConnection) Close() error {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	if uc.device == nil {
		return nil
	}
	if uc.release != nil {
		uc.release()
		uc.release = nil
	}
	err := uc.device.Close()
	uc.usbCtx.Close()

	uc.device = nil
	uc.usbCtx = nil
	uc.outEndpt = nil
	uc.inEndpt = nil
	if err != nil {
		return fmt.Errorf("failed to close USB device: %w", err)
	}
	uc.logger.Info("USB connection closed")
	return nil
}

// IsOpen returns whether the connection is open
func (uc *USBConnection) IsOpen() bool {
	uc.mutex.RLock()
	defer uc.mutex.RUnlock()
	return uc.device != nil
}

// Write sends data over the bulk OUT endpoint
func (uc *USBConnection) Write(ctx context.Context, data []byte) error {
	uc.mutex.RLock()
	out := uc.outEndpt
	uc.mutex.RUnlock()
	if out == nil {
		return ErrNotOpen
	}

	if uc.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.config.Timeout)
		defer cancel()
	}

	n, err := out.WriteContext(ctx, data)
	if err != nil {
		return fmt.Errorf("failed to write to USB device: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data))
	}
	uc.logger.Debug("USB write completed", zap.Int("bytes", n))
	return nil
}

// Read reads from the bulk IN endpoint
func (uc *USBConnection) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	uc.mutex.RLock()
	open, in := uc.device != nil, uc.inEndpt
	uc.mutex.RUnlock()
	if !open {
		return nil, ErrNotOpen
	}
	if in == nil {
		// no status channel; park until the caller gives up
		<-ctx.Done()
		return nil, ctx.Err()
	}

	buffer := make([]byte, maxBytes)
	n, err := in.ReadContext(ctx, buffer)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to read from USB device: %w", err)
	}
	return buffer[:n], nil
}

// GetProtocolType returns the protocol type
func (uc *USBConnection) GetProtocolType() model.ConnectionType {
	return model.ConnectionTypeUSB
}

// ParseHexID parses a vendor or product id written as 0x04b8 or 04b8
func ParseHexID(hexStr string) (gousb.ID, error) {
	hexStr = strings.TrimPrefix(strings.ToLower(hexStr), "0x")
	id, err := strconv.ParseUint(hexStr, 16, 16)
	if err != nil {
		return 0, err
	}
	return gousb.ID(id), nil
}
