// internal/discovery/usb/scanner.go

//go:build cgo

package usb

import (
	"context"
	"fmt"

	"github.com/sstallion/go-hid"
	"go.uber.org/zap"

	"camera-service/internal/discovery"
)

// Scanner finds HID UART bridges, which have no tty device
type Scanner struct {
	logger *zap.Logger
	db     *BridgeDatabase
}

// NewScanner creates a HID bridge scanner
func NewScanner(logger *zap.Logger) *Scanner {
	return &Scanner{
		logger: logger.With(zap.String("scanner", "ch347")),
		db:     NewBridgeDatabase(),
	}
}

// GetScannerType returns scanner type
func (s *Scanner) GetScannerType() string {
	return "ch347"
}

// IsAvailable reports whether HID enumeration is compiled in
func (s *Scanner) IsAvailable() bool {
	return true
}

// Scan lists the HID interfaces of every known HID bridge
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.Port, error) {
	var ports []*discovery.Port
	for _, b := range s.db.ForTransport("ch347") {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := hid.Enumerate(b.VendorID, b.ProductID, func(info *hid.DeviceInfo) error {
			ports = append(ports, &discovery.Port{
				Transport:    "ch347",
				Device:       info.Path,
				Description:  fmt.Sprintf("%s interface %d", info.ProductStr, info.InterfaceNbr),
				IsUSB:        true,
				VendorID:     FormatID(info.VendorID),
				ProductID:    FormatID(info.ProductID),
				SerialNumber: info.SerialNbr,
				Bridge:       b.Name(),
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("enumerate %s: %w", b.Name(), err)
		}
	}

	s.logger.Debug("HID scan completed", zap.Int("ports_found", len(ports)))
	return ports, nil
}
