package discovery

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"printer-service/internal/model"
)

type stubScanner struct {
	kind      string
	available bool
	printers  []*DiscoveredPrinter
	err       error
}

func (s *stubScanner) Scan(context.Context) ([]*DiscoveredPrinter, error) { return s.printers, s.err }
func (s *stubScanner) GetScannerType() string { return s.kind }
func (s *stubScanner) IsAvailable() bool { return s.available }

func tcpPrinter(addr string, conf float64, name, mdl string) *DiscoveredPrinter {
	return &DiscoveredPrinter{
		ConnectionType: model.ConnectionTypeTCP,
		Address:        addr,
		Port:           9100,
		Name:           name,
		Model:          mdl,
		Confidence:     conf,
	}
}

func TestMergeKeepsBestAndFillsNames(t *testing.T) {
	merged := Merge([]*DiscoveredPrinter{
		tcpPrinter("192.168.0.20", 0.9, "", ""),
		tcpPrinter("192.168.0.20", 0.8, "Front", "TM-m30"),
		tcpPrinter("192.168.0.30", 0.5, "", ""),
		nil,
	})

	if len(merged) != 2 {
		t.Fatalf("got %d printers", len(merged))
	}
	best := merged[0]
	if best.Address != "192.168.0.20" || best.Confidence != 0.9 {
		t.Errorf("unexpected order: %+v", best)
	}
	if best.Name != "Front" || best.Model != "TM-m30" {
		t.Errorf("names not filled: %+v", best)
	}
}

func TestScanAllSkipsFailedAndUnavailable(t *testing.T) {
	sm := NewScannerManager(zaptest.NewLogger(t))
	sm.RegisterScanner(&stubScanner{kind: "tcp", available: true, printers: []*DiscoveredPrinter{tcpPrinter("10.0.0.2", 0.5, "", "")}})
	sm.RegisterScanner(&stubScanner{kind: "mdns", available: true, printers: []*DiscoveredPrinter{tcpPrinter("10.0.0.2", 0.8, "Bar", "")}})
	sm.RegisterScanner(&stubScanner{kind: "usb", available: true, err: errors.New("libusb missing")})
	sm.RegisterScanner(&stubScanner{kind: "serial", available: false, printers: []*DiscoveredPrinter{{ConnectionType: model.ConnectionTypeSerial, SerialPort: "COM1"}}})

	found, err := sm.ScanAll(context.Background())
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	if len(found) != 1 || found[0].Name != "Bar" || found[0].Confidence != 0.8 {
		t.Errorf("unexpected result: %+v", found)
	}

	if got := sm.GetAvailableScanners(); len(got) != 3 || got[0] != "mdns" {
		t.Errorf("available = %v", got)
	}
	if _, err := sm.ScanByType(context.Background(), "serial"); err == nil {
		t.Error("unavailable scanner should fail")
	}
	if _, err := sm.ScanByType(context.Background(), "bluetooth"); err == nil {
		t.Error("unknown scanner should fail")
	}
}

func TestSettingsPatch(t *testing.T) {
	p := &DiscoveredPrinter{ConnectionType: model.ConnectionTypeUSB, VendorID: "04b8", ProductID: "0202"}
	s := p.Settings().Apply(model.DefaultSettings())
	if s.Interface != model.ConnectionTypeUSB || s.VendorID != "04b8" || s.ProductID != "0202" {
		t.Errorf("unexpected settings: %+v", s)
	}
}
