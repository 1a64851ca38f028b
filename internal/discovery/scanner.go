// internal/discovery/scanner.go
package discovery

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// PortScanner finds local ports a camera could be attached to
type PortScanner interface {
	Scan(ctx context.Context) ([]*Port, error)
	GetScannerType() string
	IsAvailable() bool
}

// Port is a candidate camera link
type Port struct {
	Transport    string `json:"transport"`
	Device       string `json:"device"`
	Description  string `json:"description,omitempty"`
	IsUSB        bool   `json:"is_usb"`
	VendorID     string `json:"vendor_id,omitempty"`
	ProductID    string `json:"product_id,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Bridge       string `json:"bridge,omitempty"`
}

// ScannerManager runs every registered scanner
type ScannerManager struct {
	mu       sync.RWMutex
	scanners map[string]PortScanner
	logger   *zap.Logger
}

// NewScannerManager creates a new scanner manager
func NewScannerManager(logger *zap.Logger) *ScannerManager {
	return &ScannerManager{
		scanners: make(map[string]PortScanner),
		logger:   logger,
	}
}

// RegisterScanner registers a port scanner, replacing one of the same type
func (sm *ScannerManager) RegisterScanner(scanner PortScanner) {
	scannerType := scanner.GetScannerType()
	sm.mu.Lock()
	sm.scanners[scannerType] = scanner
	sm.mu.Unlock()
	sm.logger.Info("Scanner registered",
		zap.String("type", scannerType),
		zap.Bool("available", scanner.IsAvailable()),
	)
}

// ScanAll runs every available scanner. A failing scanner is logged and
// skipped. Ports are ordered by transport, then device.
func (sm *ScannerManager) ScanAll(ctx context.Context) ([]*Port, error) {
	var all []*Port

	for _, scannerType := range sm.types() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scanner := sm.get(scannerType)
		if !scanner.IsAvailable() {
			sm.logger.Debug("Scanner not available, skipping", zap.String("type", scannerType))
			continue
		}

		ports, err := scanner.Scan(ctx)
		if err != nil {
			sm.logger.Error("Scanner failed", zap.String("type", scannerType), zap.Error(err))
			continue
		}

		all = append(all, ports...)
		sm.logger.Debug("Scanner completed",
			zap.String("type", scannerType),
			zap.Int("ports_found", len(ports)),
		)
	}

	sortPorts(all)
	return all, nil
}

// ScanByType runs one scanner
func (sm *ScannerManager) ScanByType(ctx context.Context, scannerType string) ([]*Port, error) {
	scanner := sm.get(scannerType)
	if scanner == nil {
		return nil, fmt.Errorf("scanner type not found: %s", scannerType)
	}
	if !scanner.IsAvailable() {
		return nil, fmt.Errorf("scanner not available: %s", scannerType)
	}

	ports, err := scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}
	sortPorts(ports)
	return ports, nil
}

// GetAvailableScanners returns the available scanner types, sorted
func (sm *ScannerManager) GetAvailableScanners() []string {
	var available []string
	for _, scannerType := range sm.types() {
		if sm.get(scannerType).IsAvailable() {
			available = append(available, scannerType)
		}
	}
	return available
}

func (sm *ScannerManager) get(scannerType string) PortScanner {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.scanners[scannerType]
}

func (sm *ScannerManager) types() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	types := make([]string, 0, len(sm.scanners))
	for t := range sm.scanners {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func sortPorts(ports []*Port) {
	sort.Slice(ports, func(i, j int) bool {
		if ports[i].Transport != ports[j].Transport {
			return ports[i].Transport < ports[j].Transport
		}
		return ports[i].Device < ports[j].Device
	})
}
