// internal/discovery/serial/scanner.go
package serial

import (
	"context"
	"fmt"

	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"camera-service/internal/discovery"
	"camera-service/internal/discovery/usb"
)

// ListFunc lists the serial ports of the host
type ListFunc func() ([]*enumerator.PortDetails, error)

// Scanner lists tty ports and labels known USB bridges
type Scanner struct {
	logger *zap.Logger
	list   ListFunc
	db     *usb.BridgeDatabase
	// USBOnly drops ports that are not on a USB bus
	USBOnly bool
}

// NewScanner creates a serial scanner. A nil list uses the OS enumerator.
func NewScanner(logger *zap.Logger, list ListFunc) *Scanner {
	if list == nil {
		list = enumerator.GetDetailedPortsList
	}
	return &Scanner{
		logger: logger.With(zap.String("scanner", "serial")),
		list:   list,
		db:     usb.NewBridgeDatabase(),
	}
}

// GetScannerType returns scanner type
func (s *Scanner) GetScannerType() string {
	return "serial"
}

// IsAvailable checks if serial scanning is available
func (s *Scanner) IsAvailable() bool {
	return true
}

// Scan lists the ports
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.Port, error) {
	details, err := s.list()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ports := make([]*discovery.Port, 0, len(details))
	for _, d := range details {
		if s.USBOnly && !d.IsUSB {
			continue
		}
		port := &discovery.Port{
			Transport:    "serial",
			Device:       d.Name,
			Description:  d.Product,
			IsUSB:        d.IsUSB,
			VendorID:     d.VID,
			ProductID:    d.PID,
			SerialNumber: d.SerialNumber,
		}
		if d.IsUSB {
			if b, ok := s.db.LookupHex(d.VID, d.PID); ok {
				port.Bridge = b.Name()
			}
		}
		ports = append(ports, port)
	}

	s.logger.Debug("Serial scan completed", zap.Int("ports_found", len(ports)))
	return ports, nil
}
