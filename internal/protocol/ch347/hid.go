// internal/protocol/ch347/hid.go

//go:build cgo

package ch347

import (
	"errors"
	"fmt"
	"time"

	"github.com/sstallion/go-hid"
	"go.uber.org/zap"

	"camera-service/internal/eph"
)

// hidDevice adapts go-hid to Device.
type hidDevice struct {
	*hid.Device
}

func (d hidDevice) ReadTimeout(p []byte, timeout time.Duration) (int, error) {
	if timeout < 0 {
		return d.Device.Read(p)
	}
	for {
		n, err := d.Device.ReadWithTimeout(p, timeout)
		switch {
		case errors.Is(err, hid.ErrTimeout):
			return 0, nil
		case err != nil && err.Error() == "Interrupted system call":
			continue
		}
		return n, err
	}
}

// Opener opens a CH347 UART. The device string is a hidraw path; when it
// is empty the first matching USB device is used.
type Opener struct {
	config Config
	logger *zap.Logger
}

// NewOpener creates a CH347 opener
func NewOpener(config Config, logger *zap.Logger) *Opener {
	return &Opener{config: config, logger: logger.With(zap.String("protocol", "ch347"))}
}

// Open implements eph.Opener.
func (o *Opener) Open(device string) (eph.Transport, error) {
	path := device
	if path == "" {
		var err error
		if path, err = o.find(); err != nil {
			return nil, err
		}
	}
	dev, err := hid.OpenPath(path)
	if err != nil {
		o.logger.Error("Failed to open CH347", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("open ch347 %s: %w", path, err)
	}
	u := NewUART(hidDevice{dev})
	if err := u.SetBaudRate(eph.DefaultSpeed); err != nil {
		u.Close()
		return nil, err
	}
	o.logger.Info("CH347 UART opened", zap.String("path", path))
	return u, nil
}

// OpenControl implements eph.ControlOpener.
func (o *Opener) OpenControl(device string, t eph.Transport) (eph.ControlChannel, error) {
	u, ok := t.(*UART)
	if !ok {
		return nil, fmt.Errorf("transport %T is not a ch347 uart", t)
	}
	return u.Control(), nil
}

func (o *Opener) find() (string, error) {
	var path string
	err := hid.Enumerate(o.config.VendorID, o.config.ProductID, func(info *hid.DeviceInfo) error {
		if path == "" && info.InterfaceNbr == o.config.Interface {
			path = info.Path
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("enumerate ch347: %w", err)
	}
	if path == "" {
		return "", fmt.Errorf("no ch347 %04x:%04x interface %d found",
			o.config.VendorID, o.config.ProductID, o.config.Interface)
	}
	return path, nil
}
