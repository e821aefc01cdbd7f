// internal/discovery/usb/models.go
package usb

import "github.com/google/gousb"

// vendor describes an ESC/POS capable printer maker
type vendor struct {
	name     string
	products map[gousb.ID]string
}

// knownVendors only lists makers whose receipt printers accept the
// Epson command set
var knownVendors = map[gousb.ID]vendor{
	0x04B8: {
		name: "EPSON",
		products: map[gousb.ID]string{
			0x0202: "TM-T88IV",
			0x0203: "TM-T88V",
			0x0214: "TM-T88VI",
			0x0215: "TM-T20III",
			0x0216: "TM-T82III",
			0x0217: "TM-m30",
			0x0E28: "TM-T88VII",
			0x0E2A: "TM-m30III",
		},
	},
	0x1CBE: {name: "CITIZEN", products: map[gousb.ID]string{
		0x0001: "CT-S310II",
		0x0002: "CT-S4000",
	}},
	0x1504: {name: "BIXOLON", products: map[gousb.ID]string{
		0x0006: "SRP-330II",
		0x0007: "SRP-350III",
	}},
}
