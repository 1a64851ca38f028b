// internal/discovery/usb/database.go
package usb

import (
	"fmt"
	"strconv"
)

// Bridge is a USB chip that carries a camera's serial line
type Bridge struct {
	VendorID  uint16
	ProductID uint16
	Vendor    string
	Chip      string
	// Transport is the camera.transport value that drives the chip:
	// "serial" for kernel tty drivers, "ch347" for the HID UART.
	Transport string
}

// Name is the label shown in discovery results
func (b *Bridge) Name() string {
	return b.Vendor + " " + b.Chip
}

type usbID struct {
	vendor, product uint16
}

// BridgeDatabase maps VID:PID pairs to known bridge chips
type BridgeDatabase struct {
	bridges map[usbID]*Bridge
}

// NewBridgeDatabase creates the database of known bridges
func NewBridgeDatabase() *BridgeDatabase {
	db := &BridgeDatabase{bridges: make(map[usbID]*Bridge)}
	db.initializeDatabase()
	return db
}

func (db *BridgeDatabase) initializeDatabase() {
	for _, b := range []*Bridge{
		{VendorID: 0x0403, ProductID: 0x6001, Vendor: "FTDI", Chip: "FT232R", Transport: "serial"},
		{VendorID: 0x0403, ProductID: 0x6015, Vendor: "FTDI", Chip: "FT231X", Transport: "serial"},
		{VendorID: 0x067b, ProductID: 0x2303, Vendor: "Prolific", Chip: "PL2303", Transport: "serial"},
		{VendorID: 0x10c4, ProductID: 0xea60, Vendor: "Silicon Labs", Chip: "CP210x", Transport: "serial"},
		{VendorID: 0x1a86, ProductID: 0x7523, Vendor: "WCH", Chip: "CH340", Transport: "serial"},
		{VendorID: 0x1a86, ProductID: 0x55d4, Vendor: "WCH", Chip: "CH9102", Transport: "serial"},
		{VendorID: 0x1a86, ProductID: 0x55dc, Vendor: "WCH", Chip: "CH347", Transport: "ch347"},
	} {
		db.bridges[usbID{b.VendorID, b.ProductID}] = b
	}
}

// Lookup returns the bridge with the given ids
func (db *BridgeDatabase) Lookup(vendorID, productID uint16) (*Bridge, bool) {
	b, ok := db.bridges[usbID{vendorID, productID}]
	return b, ok
}

// LookupHex is Lookup for the hex strings operating systems report
func (db *BridgeDatabase) LookupHex(vendorID, productID string) (*Bridge, bool) {
	vid, err := ParseID(vendorID)
	if err != nil {
		return nil, false
	}
	pid, err := ParseID(productID)
	if err != nil {
		return nil, false
	}
	return db.Lookup(vid, pid)
}

// ForTransport returns the bridges driven by transport
func (db *BridgeDatabase) ForTransport(transport string) []*Bridge {
	var out []*Bridge
	for _, b := range db.bridges {
		if b.Transport == transport {
			out = append(out, b)
		}
	}
	return out
}

// ParseID parses a four digit hex USB id, with or without 0x
func ParseID(s string) (uint16, error) {
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid usb id %q: %w", s, err)
	}
	return uint16(v), nil
}

// FormatID formats a USB id the way the serial enumerator reports it
func FormatID(id uint16) string {
	return fmt.Sprintf("%04X", id)
}
