// internal/protocol/connection.go
package protocol

import (
	"errors"
	"time"
)

// ErrNoControl is returned by OpenControl when the transport has no
// side-band channel.
var ErrNoControl = errors.New("transport has no control channel")

// TCPConfig represents a serial port exported over TCP (ser2net, RFC 2217
// servers in raw mode, terminal servers).
type TCPConfig struct {
	ConnectTimeout time.Duration `json:"connect_timeout"`
	KeepAlive      bool          `json:"keep_alive"`
	WriteTimeout   time.Duration `json:"write_timeout"`
}
