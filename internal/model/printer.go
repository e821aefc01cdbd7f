// internal/model/printer.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ConnectionType represents how the printer is attached
type ConnectionType string

const (
	ConnectionTypeTCP    ConnectionType = "TCP"
	ConnectionTypeSerial ConnectionType = "SERIAL"
	ConnectionTypeUSB    ConnectionType = "USB"
)

// CutType selects how the paper is cut after printing
type CutType string

const (
	CutFull    CutType = "full"
	CutPartial CutType = "partial"
)

// ConnectionState is the printer connection lifecycle state
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateError        ConnectionState = "error"
)

// Paper geometry. Only 80 mm roll paper is supported.
const (
	PaperWidth80   = 80
	Columns80mm    = 48
	DefaultPort    = 9100
	DefaultTimeout = 60 * time.Second
)

// PrinterSettings is an immutable snapshot of printer configuration.
// Updates replace the whole record.
type PrinterSettings struct {
	Address         string         `json:"address" mapstructure:"address"`
	Port            int            `json:"port" mapstructure:"port"`
	DeviceID        string         `json:"device_id" mapstructure:"device_id"`
	Interface       ConnectionType `json:"interface" mapstructure:"interface"`
	PaperWidth      int            `json:"paper_width" mapstructure:"paper_width"`
	Density         int            `json:"density" mapstructure:"density"`
	CutType         CutType        `json:"cut_type" mapstructure:"cut_type"`
	DrawerKick      bool           `json:"drawer_kick" mapstructure:"drawer_kick"`
	Buzzer          bool           `json:"buzzer" mapstructure:"buzzer"`
	Timeout         time.Duration  `json:"timeout" mapstructure:"timeout"`
	MonitorInterval time.Duration  `json:"monitor_interval" mapstructure:"monitor_interval"`
	SSL             bool           `json:"ssl" mapstructure:"ssl"`
	SerialPort      string         `json:"serial_port,omitempty" mapstructure:"serial_port"`
	BaudRate        int            `json:"baud_rate,omitempty" mapstructure:"baud_rate"`
	VendorID        string         `json:"vendor_id,omitempty" mapstructure:"vendor_id"`
	ProductID       string         `json:"product_id,omitempty" mapstructure:"product_id"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() PrinterSettings {
	return PrinterSettings{
		Port:            DefaultPort,
		DeviceID:        "local_printer",
		Interface:       ConnectionTypeTCP,
		PaperWidth:      PaperWidth80,
		Density:         0,
		CutType:         CutFull,
		Timeout:         DefaultTimeout,
		MonitorInterval: 3 * time.Second,
		BaudRate:        38400,
	}
}

// Normalize fills zero values with defaults and pins the paper width.
func (s PrinterSettings) Normalize() PrinterSettings {
	d := DefaultSettings()
	if s.Port == 0 {
		s.Port = d.Port
	}
	if s.DeviceID == "" {
		s.DeviceID = d.DeviceID
	}
	if s.Interface == "" {
		s.Interface = d.Interface
	}
	if s.CutType == "" {
		s.CutType = d.CutType
	}
	if s.Timeout <= 0 {
		s.Timeout = d.Timeout
	}
	if s.MonitorInterval <= 0 {
		s.MonitorInterval = d.MonitorInterval
	}
	if s.BaudRate == 0 {
		s.BaudRate = d.BaudRate
	}
	s.PaperWidth = PaperWidth80
	return s
}

// Validate checks the fields a connection attempt depends on.
func (s PrinterSettings) Validate() error {
	switch s.Interface {
	case ConnectionTypeTCP:
		if s.Address == "" {
			return fmt.Errorf("address is required")
		}
		if s.Port <= 0 || s.Port > 65535 {
			return fmt.Errorf("invalid port: %d", s.Port)
		}
	case ConnectionTypeSerial:
		if s.SerialPort == "" && s.Address == "" {
			return fmt.Errorf("serial port is required")
		}
	case ConnectionTypeUSB:
		if s.VendorID == "" || s.ProductID == "" {
			return fmt.Errorf("vendor and product id are required")
		}
	default:
		return fmt.Errorf("unsupported interface: %s", s.Interface)
	}
	if s.CutType != CutFull && s.CutType != CutPartial {
		return fmt.Errorf("invalid cut type: %s", s.CutType)
	}
	if s.Density < -6 || s.Density > 6 {
		return fmt.Errorf("density out of range: %d", s.Density)
	}
	return nil
}

// Endpoint is the address used for logging and transport connects.
func (s PrinterSettings) Endpoint() string {
	switch s.Interface {
	case ConnectionTypeSerial:
		if s.SerialPort != "" {
			return s.SerialPort
		}
		return s.Address
	case ConnectionTypeUSB:
		return s.VendorID + ":" + s.ProductID
	default:
		return fmt.Sprintf("%s:%d", s.Address, s.Port)
	}
}

// SettingsPatch carries a partial settings update. Nil fields are kept.
type SettingsPatch struct {
	Address         *string         `json:"address,omitempty"`
	Port            *int            `json:"port,omitempty"`
	DeviceID        *string         `json:"device_id,omitempty"`
	Interface       *ConnectionType `json:"interface,omitempty"`
	Density         *int            `json:"density,omitempty"`
	CutType         *CutType        `json:"cut_type,omitempty"`
	DrawerKick      *bool           `json:"drawer_kick,omitempty"`
	Buzzer          *bool           `json:"buzzer,omitempty"`
	TimeoutMs       *int            `json:"timeout_ms,omitempty"`
	MonitorInterval *int            `json:"monitor_interval_ms,omitempty"`
	SSL             *bool           `json:"ssl,omitempty"`
	SerialPort      *string         `json:"serial_port,omitempty"`
	BaudRate        *int            `json:"baud_rate,omitempty"`
	VendorID        *string         `json:"vendor_id,omitempty"`
	ProductID       *string         `json:"product_id,omitempty"`
}

// Apply returns a new settings record with the patch merged in.
func (p SettingsPatch) Apply(s PrinterSettings) PrinterSettings {
	if p.Address != nil {
		s.Address = *p.Address
	}
	if p.Port != nil {
		s.Port = *p.Port
	}
	if p.DeviceID != nil {
		s.DeviceID = *p.DeviceID
	}
	if p.Interface != nil {
		s.Interface = *p.Interface
	}
	if p.Density != nil {
		s.Density = *p.Density
	}
	if p.CutType != nil {
		s.CutType = *p.CutType
	}
	if p.DrawerKick != nil {
		s.DrawerKick = *p.DrawerKick
	}
	if p.Buzzer != nil {
		s.Buzzer = *p.Buzzer
	}
	if p.TimeoutMs != nil {
		s.Timeout = time.Duration(*p.TimeoutMs) * time.Millisecond
	}
	if p.MonitorInterval != nil {
		s.MonitorInterval = time.Duration(*p.MonitorInterval) * time.Millisecond
	}
	if p.SSL != nil {
		s.SSL = *p.SSL
	}
	if p.SerialPort != nil {
		s.SerialPort = *p.SerialPort
	}
	if p.BaudRate != nil {
		s.BaudRate = *p.BaudRate
	}
	if p.VendorID != nil {
		s.VendorID = *p.VendorID
	}
	if p.ProductID != nil {
		s.ProductID = *p.ProductID
	}
	return s.Normalize()
}

// PrinterStatus is the decoded form of a status bitmask.
type PrinterStatus struct {
	Online       bool   `json:"online"`
	CoverOpen    bool   `json:"cover_open"`
	PaperEnd     bool   `json:"paper_end"`
	PaperNearEnd bool   `json:"paper_near_end"`
	DrawerOpen   bool   `json:"drawer_open"`
	Error        string `json:"error,omitempty"`
	Raw          uint32 `json:"raw"`
}

// PrintOptions controls a single PrintReceipt call. Nil pointers fall back
// to the printer settings.
type PrintOptions struct {
	Copies           int   `json:"copies"`
	CutAfterEachCopy bool  `json:"cut_after_each_copy"`
	OpenDrawer       *bool `json:"open_drawer,omitempty"`
	Buzzer           *bool `json:"buzzer,omitempty"`
}

// Resolve returns options with defaults taken from settings.
func (o PrintOptions) Resolve(s PrinterSettings) (copies int, cutEach, drawer, buzzer bool) {
	copies = o.Copies
	if copies < 1 {
		copies = 1
	}
	drawer = s.DrawerKick
	if o.OpenDrawer != nil {
		drawer = *o.OpenDrawer
	}
	buzzer = s.Buzzer
	if o.Buzzer != nil {
		buzzer = *o.Buzzer
	}
	return copies, o.CutAfterEachCopy, drawer, buzzer
}

// JSONObject type for PostgreSQL JSONB objects
type JSONObject map[string]interface{}

func (j *JSONObject) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

func (j JSONObject) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}
