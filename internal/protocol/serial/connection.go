// internal/protocol/serial/connection.go
package serial

import (
	"fmt"
	"strings"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"camera-service/internal/eph"
)

// Config represents serial line settings other than speed
type Config struct {
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
	// CtlSuffix, when set, names a control file next to the device
	// (device path + suffix) that takes textual line commands.
	CtlSuffix string `json:"ctl_suffix"`
}

// Opener opens local serial ports with go.bug.st/serial. The port itself
// is the eph.Transport: its Read returns zero bytes when the read timeout
// expires.
type Opener struct {
	config Config
	logger *zap.Logger
	open   func(name string, mode *serial.Mode) (serial.Port, error)
}

// NewOpener creates a serial opener
func NewOpener(config Config, logger *zap.Logger) *Opener {
	return &Opener{
		config: config,
		logger: logger.With(zap.String("protocol", "serial")),
		open:   serial.Open,
	}
}

// Mode returns the line mode for baud.
func (o *Opener) Mode(baud int) *serial.Mode {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: o.config.DataBits,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	}
	if mode.DataBits == 0 {
		mode.DataBits = 8
	}
	if o.config.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	switch strings.ToLower(o.config.Parity) {
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	case "mark":
		mode.Parity = serial.MarkParity
	case "space":
		mode.Parity = serial.SpaceParity
	}
	return mode
}

// Open implements eph.Opener. The port starts at the camera's reset speed.
func (o *Opener) Open(device string) (eph.Transport, error) {
	port, err := o.open(device, o.Mode(eph.DefaultSpeed))
	if err != nil {
		o.logger.Error("Failed to open serial port", zap.String("port", device), zap.Error(err))
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		o.logger.Warn("Failed to reset input buffer", zap.String("port", device), zap.Error(err))
	}

	o.logger.Info("Serial port opened", zap.String("port", device), zap.Int("baud_rate", eph.DefaultSpeed))
	return port, nil
}

// OpenControl implements eph.ControlOpener. With a control file configured
// it is used; otherwise the line is reprogrammed through the open port.
func (o *Opener) OpenControl(device string, t eph.Transport) (eph.ControlChannel, error) {
	if o.config.CtlSuffix != "" {
		return OpenCtlFile(device + o.config.CtlSuffix)
	}
	port, ok := t.(serial.Port)
	if !ok {
		return nil, fmt.Errorf("transport %T is not a serial port", t)
	}
	return &ModeControl{port: port, opener: o}, nil
}

// ModeControl changes the line speed of an open port with SetMode.
type ModeControl struct {
	port   serial.Port
	opener *Opener
}

func (m *ModeControl) SetBaudRate(baud int) error {
	if err := m.port.SetMode(m.opener.Mode(baud)); err != nil {
		return fmt.Errorf("set baud rate %d: %w", baud, err)
	}
	m.opener.logger.Debug("Serial speed changed", zap.Int("baud_rate", baud))
	return nil
}

// SetBufferSize is a no-op: the OS sizes tty queues itself.
func (m *ModeControl) SetBufferSize(int) error { return nil }

// SetMode discards stale input; there is no FIFO switch on a tty.
func (m *ModeControl) SetMode(int) error {
	return m.port.ResetInputBuffer()
}

// Close leaves the port to the transport.
func (m *ModeControl) Close() error { return nil }
