// internal/protocol/ch347/uart.go

// Package ch347 drives the UART of a CH347 USB converter in HID mode. Each
// HID report carries a little-endian 16-bit length followed by up to 510
// data bytes; line settings go out as a feature report.
package ch347

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	reportLen  = 512
	maxPayload = reportLen - 2

	// NoTimeout makes Read block until a report arrives.
	NoTimeout time.Duration = -1
)

// Line settings as the chip encodes them.
const (
	dataBits8  = 3
	parityNone = 0
	stopOne    = 0
)

// Device is the HID interface the UART needs. ReadTimeout returns (0, nil)
// when nothing arrives in time.
type Device interface {
	Write(p []byte) (int, error)
	ReadTimeout(p []byte, timeout time.Duration) (int, error)
	SendFeatureReport(p []byte) (int, error)
	Close() error
}

// UART is an eph.Transport over a CH347 HID interface.
type UART struct {
	mu      sync.Mutex
	dev     Device
	timeout time.Duration
	pending []byte
	report  []byte
}

// NewUART wraps the first HID interface of a CH347.
func NewUART(dev Device) *UART {
	return &UART{dev: dev, timeout: NoTimeout, report: make([]byte, reportLen)}
}

func (u *UART) SetReadTimeout(t time.Duration) error {
	u.mu.Lock()
	u.timeout = t
	u.mu.Unlock()
	return nil
}

// Read returns buffered bytes first. Otherwise it waits for one report and
// keeps whatever does not fit in p for the next call.
func (u *UART) Read(p []byte) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if len(u.pending) == 0 {
		n, err := u.dev.ReadTimeout(u.report, u.timeout)
		if err != nil {
			return 0, fmt.Errorf("ch347 read: %w", err)
		}
		if n == 0 {
			return 0, nil
		}
		if n < 2 {
			return 0, fmt.Errorf("ch347 read: short report of %d bytes", n)
		}
		size := int(binary.LittleEndian.Uint16(u.report))
		if size > n-2 {
			return 0, fmt.Errorf("ch347 read: report claims %d bytes, carries %d", size, n-2)
		}
		u.pending = append(u.pending[:0], u.report[2:2+size]...)
	}

	n := copy(p, u.pending)
	u.pending = u.pending[n:]
	return n, nil
}

// Write splits p into reports of at most 510 bytes.
func (u *UART) Write(p []byte) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	var buf [reportLen]byte
	written := 0
	for written < len(p) {
		n := min(len(p)-written, maxPayload)
		binary.LittleEndian.PutUint16(buf[:2], uint16(n))
		copy(buf[2:], p[written:written+n])
		if _, err := u.dev.Write(buf[:2+n]); err != nil {
			return written, fmt.Errorf("ch347 write: %w", err)
		}
		written += n
	}
	return written, nil
}

func (u *UART) Close() error {
	return u.dev.Close()
}

// SetBaudRate reprograms the line at 8N1.
func (u *UART) SetBaudRate(baud int) error {
	if baud <= 0 || baud > 0xffffff {
		return fmt.Errorf("ch347: baud rate %d out of range", baud)
	}
	report := []byte{
		0xcb, 0x08, 0x00,
		byte(baud), byte(baud >> 8), byte(baud >> 16),
		0x00,
		stopOne, parityNone, dataBits8,
		0x00, // timeout
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, err := u.dev.SendFeatureReport(report); err != nil {
		return fmt.Errorf("ch347 set baud rate: %w", err)
	}
	return nil
}

// Control returns the side-band view of the UART. Closing it leaves the
// device open.
func (u *UART) Control() *Control {
	return &Control{uart: u}
}

// Control is the eph.ControlChannel of a UART.
type Control struct {
	uart *UART
}

func (c *Control) SetBaudRate(baud int) error { return c.uart.SetBaudRate(baud) }

// SetBufferSize is a no-op; the chip has a fixed FIFO.
func (c *Control) SetBufferSize(int) error { return nil }

func (c *Control) SetMode(int) error { return nil }

func (c *Control) Close() error { return nil }

// ErrUnsupported is returned when the binary was built without cgo.
var ErrUnsupported = errors.New("ch347: HID support requires cgo")
