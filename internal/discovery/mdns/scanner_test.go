package mdns

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"

	"printer-service/internal/model"
)

func TestModelFromTXT(t *testing.T) {
	tests := []struct {
		name    string
		records []string
		want    string
	}{
		{"usb model wins", []string{"ty=EPSON TM-m30", "usb_MDL=TM-m30III"}, "TM-m30III"},
		{"product parens", []string{"product=(TM-T88VII)"}, "TM-T88VII"},
		{"ty fallback", []string{"ty=EPSON TM-T20III", "note=front"}, "EPSON TM-T20III"},
		{"nothing", []string{"txtvers=1", "garbage"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ModelFromTXT(tt.records); got != tt.want {
				t.Errorf("ModelFromTXT() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromEntry(t *testing.T) {
	entry := zeroconf.NewServiceEntry("TM-m30 Front", DefaultService, "local.")
	entry.AddrIPv4 = []net.IP{net.ParseIP("192.168.10.21")}
	entry.Text = []string{"ty=EPSON TM-m30"}

	p := FromEntry(entry)
	if p == nil {
		t.Fatal("expected printer")
	}
	if p.Address != "192.168.10.21" || p.Port != model.DefaultPort || p.Name != "TM-m30 Front" {
		t.Errorf("unexpected printer: %+v", p)
	}
	if p.ConnectionType != model.ConnectionTypeTCP || p.Source != "mdns" {
		t.Errorf("unexpected origin: %+v", p)
	}

	entry.AddrIPv4 = nil
	if FromEntry(entry) != nil {
		t.Error("entry without IPv4 should be skipped")
	}
}
