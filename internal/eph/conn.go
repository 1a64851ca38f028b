// internal/eph/conn.go
package eph

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrorFunc receives every error the engine raises, including transient
// ones that a retry later absorbs.
type ErrorFunc func(code Code, msg string)

// ProgressFunc receives the cumulative byte count of a transfer.
type ProgressFunc func(n int64)

// StoreFunc receives chunks of a streamed GetVar. A non-nil error aborts
// the transfer.
type StoreFunc func(chunk []byte) error

// Connection is one link to a device. It carries a single command at a time
// and is not safe for concurrent use.
type Connection struct {
	opener Opener
	port   Transport
	ctl    ControlChannel

	device  string
	speed   int
	timeout time.Duration

	logger     *zap.Logger
	debug      bool
	onError    ErrorFunc
	onProgress ProgressFunc
	onStore    StoreFunc

	delays     WriteDelays
	sleep      func(time.Duration)
	retries    int
	retryDelay time.Duration
	maxBuffer  int

	powerOffReg  int
	powerOffArg  []byte
	powerOffWait bool
}

// Option configures a Connection.
type Option func(*Connection)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Connection) { c.logger = logger }
}

// WithDebug enables packet dumps at debug level.
func WithDebug(debug bool) Option {
	return func(c *Connection) { c.debug = debug }
}

func WithErrorFunc(fn ErrorFunc) Option {
	return func(c *Connection) { c.onError = fn }
}

func WithProgressFunc(fn ProgressFunc) Option {
	return func(c *Connection) { c.onProgress = fn }
}

func WithStoreFunc(fn StoreFunc) Option {
	return func(c *Connection) { c.onStore = fn }
}

func WithWriteDelays(d WriteDelays) Option {
	return func(c *Connection) { c.delays = d }
}

// WithSleep replaces time.Sleep for every deliberate pause.
func WithSleep(fn func(time.Duration)) Option {
	return func(c *Connection) { c.sleep = fn }
}

// WithRetries sets the attempt ceiling shared by all operations.
func WithRetries(n int) Option {
	return func(c *Connection) {
		if n > 0 {
			c.retries = n
		}
	}
}

// WithInitRetryDelay sets the pause between handshake attempts.
func WithInitRetryDelay(d time.Duration) Option {
	return func(c *Connection) { c.retryDelay = d }
}

// WithMaxBuffer bounds the receive buffer of a buffered GetVar.
func WithMaxBuffer(n int) Option {
	return func(c *Connection) {
		if n >= BlockSize {
			c.maxBuffer = n
		}
	}
}

// WithPowerOff sets the action Close(true) sends. Without wait the link is
// released as soon as the device acknowledges the command.
func WithPowerOff(reg int, arg []byte, wait bool) Option {
	return func(c *Connection) {
		c.powerOffReg = reg
		c.powerOffArg = append([]byte(nil), arg...)
		c.powerOffWait = wait
	}
}

// New returns a closed Connection that opens its transport through opener.
func New(opener Opener, opts ...Option) *Connection {
	c := &Connection{
		opener:     opener,
		logger:     zap.NewNop(),
		delays:     DefaultWriteDelays(),
		sleep:      time.Sleep,
		retries:    MaxRetries,
		retryDelay: InitRetryDelay,
		maxBuffer:  DefaultMaxBuffer,

		powerOffReg:  ActionPowerOff,
		powerOffArg:  []byte{0},
		powerOffWait: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetProgressFunc replaces the progress callback between commands.
func (c *Connection) SetProgressFunc(fn ProgressFunc) { c.onProgress = fn }

// SetStoreFunc replaces the store callback between commands.
func (c *Connection) SetStoreFunc(fn StoreFunc) { c.onStore = fn }

func (c *Connection) IsOpen() bool   { return c.port != nil }
func (c *Connection) Device() string { return c.device }
func (c *Connection) Speed() int     { return c.speed }

// Open brings the link up: it resets the device, waits for its signature,
// negotiates baud and switches the local side to match. A zero baud selects
// MaxSpeed. On failure the transport is closed again.
func (c *Connection) Open(device string, baud int) error {
	const op = "open"
	if c.port != nil {
		return c.fail(CodeInvalidArguments, op, nil, "connection to %s already open", c.device)
	}
	if baud == 0 {
		baud = MaxSpeed
	}
	code, ok := SpeedCode(baud)
	if !ok {
		return c.fail(CodeBadSpeed, op, nil, "speed %d invalid", baud)
	}
	c.timeout = dataTimeout(baud)
	c.logger.Debug("Opening link",
		zap.String("device", device),
		zap.Int("speed", baud),
		zap.Duration("data_timeout", c.timeout),
	)

	port, err := c.opener.Open(device)
	if err != nil {
		return c.fail(CodeIO, op, err, "open %s", device)
	}
	c.port = port
	c.device = device
	c.openControl(device)

	if err := c.handshake(); err != nil {
		c.release()
		return err
	}
	if err := c.setSpeed("setspeed", code); err != nil {
		c.release()
		return err
	}
	if c.ctl != nil {
		if err := c.ctl.SetBaudRate(baud); err != nil {
			e := c.fail(CodeIO, op, err, "switch local speed to %d", baud)
			c.release()
			return e
		}
	}
	c.sleep(SpeedChangeDelay)
	c.speed = baud

	c.logger.Info("Link open", zap.String("device", device), zap.Int("speed", baud))
	return nil
}

// openControl pushes conservative line settings through the side-band
// channel. None of its failures are fatal.
func (c *Connection) openControl(device string) {
	co, ok := c.opener.(ControlOpener)
	if !ok {
		return
	}
	ctl, err := co.OpenControl(device, c.port)
	if err != nil {
		c.logger.Warn("No control channel", zap.String("device", device), zap.Error(err))
		return
	}
	c.ctl = ctl
	if err := ctl.SetBaudRate(DefaultSpeed); err != nil {
		c.logger.Warn("Control: set baud failed", zap.Error(err))
	}
	if err := ctl.SetMode(initMode); err != nil {
		c.logger.Warn("Control: set mode failed", zap.Error(err))
	}
	if err := ctl.SetBufferSize(initBufferHint); err != nil {
		c.logger.Warn("Control: set buffer size failed", zap.Error(err))
	}
}

func (c *Connection) handshake() error {
	const op = "handshake"
	return c.attempt(op, CodeHandshakeFailed, func(try int) (outcome, error) {
		if try > 0 {
			c.sleep(c.retryDelay)
		}
		if err := c.flush(op); err != nil {
			return fatal, err
		}
		if err := c.putByte(op, Init); err != nil {
			return fatal, err
		}
		return c.waitSignature(op)
	})
}

// flush requires that nothing is pending on the line.
func (c *Connection) flush(op string) error {
	var b [1]byte
	if err := c.port.SetReadTimeout(0); err != nil {
		return c.fail(CodeIO, op, err, "set read timeout")
	}
	n, err := c.port.Read(b[:])
	if err != nil {
		return c.fail(CodeIO, op, err, "flush input")
	}
	if n != 0 {
		return c.fail(CodeUnexpectedByte, op, nil, "flush input read 0x%02x, expected nothing", b[0])
	}
	return nil
}

func (c *Connection) waitSignature(op string) (outcome, error) {
	for skipped := 0; ; skipped++ {
		b, err := c.readControl(op, InitTimeout)
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				return retry, err
			}
			return fatal, err
		}
		switch {
		case b == Signature:
			return success, nil
		case b == 0 && skipped < skipFillers:
			continue
		}
		return retry, c.fail(CodeUnexpectedByte, op, nil, "got 0x%02x waiting for signature", byte(b))
	}
}

// Close ends the session. With powerOff the device is told to switch off,
// otherwise its link speed is reset. The handles are released even when
// the device does not answer.
func (c *Connection) Close(powerOff bool) error {
	if c.port == nil {
		return nil
	}
	var errs []error
	if powerOff {
		if err := c.action("poweroff", c.powerOffReg, c.powerOffArg, c.powerOffWait); err != nil {
			errs = append(errs, fmt.Errorf("power off: %w", err))
		}
	} else if err := c.setSpeed("resetspeed", 0); err != nil {
		errs = append(errs, fmt.Errorf("reset speed: %w", err))
	}
	if err := c.release(); err != nil {
		errs = append(errs, err)
	}
	c.logger.Info("Link closed", zap.String("device", c.device), zap.Bool("power_off", powerOff))
	return errors.Join(errs...)
}

func (c *Connection) release() error {
	var errs []error
	if c.ctl != nil {
		if err := c.ctl.Close(); err != nil {
			errs = append(errs, c.fail(CodeIO, "close", err, "control channel"))
		}
		c.ctl = nil
	}
	if c.port != nil {
		if err := c.port.Close(); err != nil {
			errs = append(errs, c.fail(CodeIO, "close", err, "transport"))
		}
		c.port = nil
	}
	c.speed = 0
	return errors.Join(errs...)
}

func (c *Connection) ready(op string) error {
	if c.port == nil {
		return c.fail(CodeInvalidArguments, op, nil, "connection not open")
	}
	return nil
}

// fail builds an engine error and reports it.
func (c *Connection) fail(code Code, op string, cause error, format string, args ...any) *Error {
	e := &Error{Code: code, Op: op, Msg: fmt.Sprintf(format, args...), Err: cause}
	c.logger.Debug("Protocol error",
		zap.Int("code", int(code)),
		zap.String("op", op),
		zap.String("message", e.Msg),
		zap.Error(cause),
	)
	if c.onError != nil {
		c.onError(code, e.Error())
	}
	return e
}

func (c *Connection) progress(n int64) {
	if c.onProgress != nil {
		c.onProgress(n)
	}
}

// pause sleeps d rounded up to a whole millisecond, plus one.
func (c *Connection) pause(d time.Duration) {
	if d <= 0 {
		return
	}
	ms := (d + time.Millisecond - 1) / time.Millisecond
	c.sleep((ms + 1) * time.Millisecond)
}
