// internal/discovery/serial/scanner_test.go
package serial

import (
	"context"
	"errors"
	"testing"

	"go.bug.st/serial/enumerator"
	"go.uber.org/zap/zaptest"

	"camera-service/internal/discovery"
)

func fakePorts() ([]*enumerator.PortDetails, error) {
	return []*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001", SerialNumber: "A50285BI", Product: "FT232R USB UART"},
		{Name: "/dev/ttyUSB1", IsUSB: true, VID: "dead", PID: "beef"},
	}, nil
}

func TestScanLabelsBridges(t *testing.T) {
	s := NewScanner(zaptest.NewLogger(t), fakePorts)
	ports, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(ports) != 3 {
		t.Fatalf("got %d ports, want 3", len(ports))
	}

	byDevice := map[string]*discovery.Port{}
	for _, p := range ports {
		byDevice[p.Device] = p
	}
	if got := byDevice["/dev/ttyUSB0"].Bridge; got != "FTDI FT232R" {
		t.Errorf("ttyUSB0 bridge = %q", got)
	}
	if got := byDevice["/dev/ttyUSB0"].SerialNumber; got != "A50285BI" {
		t.Errorf("ttyUSB0 serial = %q", got)
	}
	if got := byDevice["/dev/ttyUSB1"].Bridge; got != "" {
		t.Errorf("unknown chip labelled %q", got)
	}
	if byDevice["/dev/ttyS0"].IsUSB {
		t.Error("ttyS0 reported as USB")
	}
}

func TestScanUSBOnly(t *testing.T) {
	s := NewScanner(zaptest.NewLogger(t), fakePorts)
	s.USBOnly = true
	ports, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	for _, p := range ports {
		if !p.IsUSB {
			t.Errorf("%s is not USB", p.Device)
		}
	}
	if len(ports) != 2 {
		t.Errorf("got %d ports, want 2", len(ports))
	}
}

func TestManagerSkipsFailingScanner(t *testing.T) {
	logger := zaptest.NewLogger(t)
	broken := NewScanner(logger, func() ([]*enumerator.PortDetails, error) {
		return nil, errors.New("no sysfs")
	})

	m := discovery.NewScannerManager(logger)
	m.RegisterScanner(broken)
	ports, err := m.ScanAll(context.Background())
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	if len(ports) != 0 {
		t.Errorf("got %d ports from a failing scanner", len(ports))
	}
	if _, err := m.ScanByType(context.Background(), "serial"); err == nil {
		t.Error("ScanByType hid the scanner error")
	}
	if _, err := m.ScanByType(context.Background(), "tcp"); err == nil {
		t.Error("ScanByType accepted an unknown type")
	}
}

func TestManagerSortsPorts(t *testing.T) {
	m := discovery.NewScannerManager(zaptest.NewLogger(t))
	m.RegisterScanner(NewScanner(zaptest.NewLogger(t), func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{{Name: "/dev/ttyUSB1"}, {Name: "/dev/ttyACM0"}}, nil
	}))
	ports, err := m.ScanAll(context.Background())
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	if len(ports) != 2 || ports[0].Device != "/dev/ttyACM0" {
		t.Errorf("ports not sorted: %+v", ports)
	}
	if got := m.GetAvailableScanners(); len(got) != 1 || got[0] != "serial" {
		t.Errorf("available = %v", got)
	}
}
