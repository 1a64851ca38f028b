// internal/eph/transport.go
package eph

import "time"

// Transport is the duplex byte channel to the device. Read returns (0, nil)
// when the read timeout expires without data. go.bug.st/serial ports
// satisfy it as-is.
type Transport interface {
	SetReadTimeout(t time.Duration) error
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// ControlChannel is the side-band interface used to change the local line
// settings while the transport stays open.
type ControlChannel interface {
	SetBaudRate(baud int) error
	SetBufferSize(n int) error
	SetMode(flag int) error
	Close() error
}

// Opener opens the transport for a device path.
type Opener interface {
	Open(device string) (Transport, error)
}

// ControlOpener is implemented by openers whose transports have a
// side-band control channel.
type ControlOpener interface {
	OpenControl(device string, t Transport) (ControlChannel, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(device string) (Transport, error)

func (f OpenerFunc) Open(device string) (Transport, error) { return f(device) }
