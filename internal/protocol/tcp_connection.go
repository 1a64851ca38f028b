// internal/protocol/tcp_connection.go
package protocol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"camera-service/internal/eph"
)

const (
	tcpKeepAlivePeriod = 30 * time.Second
	tcpDefaultWrite    = 5 * time.Second
	// a zero read timeout still has to poll the socket once
	tcpPollInterval = time.Millisecond
)

// TCPOpener dials a remote serial port. The device path is host:port.
type TCPOpener struct {
	config *TCPConfig
	logger *zap.Logger
}

// NewTCPOpener creates a TCP opener
func NewTCPOpener(config *TCPConfig, logger *zap.Logger) *TCPOpener {
	return &TCPOpener{
		config: config,
		logger: logger.With(zap.String("protocol", "tcp")),
	}
}

// Open implements eph.Opener.
func (o *TCPOpener) Open(device string) (eph.Transport, error) {
	return o.OpenContext(context.Background(), device)
}

// OpenContext dials address, honouring ctx and the connect timeout.
func (o *TCPOpener) OpenContext(ctx context.Context, address string) (eph.Transport, error) {
	dialer := &net.Dialer{Timeout: o.config.ConnectTimeout}
	if o.config.KeepAlive {
		dialer.KeepAlive = tcpKeepAlivePeriod
	}

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		o.logger.Error("Failed to open TCP connection", zap.String("address", address), zap.Error(err))
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		// Packets go out in three timed segments; do not let Nagle merge them.
		tcp.SetNoDelay(true)
	}

	o.logger.Info("TCP connection opened", zap.String("address", address))
	writeTimeout := o.config.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = tcpDefaultWrite
	}
	return &TCPTransport{conn: conn, writeTimeout: writeTimeout}, nil
}

// TCPTransport adapts a net.Conn to eph.Transport. Read deadlines emulate
// the serial read timeout, and an expired deadline reads as zero bytes.
type TCPTransport struct {
	mu           sync.Mutex
	conn         net.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewTCPTransport wraps an established connection.
func NewTCPTransport(conn net.Conn) *TCPTransport {
	return &TCPTransport{conn: conn, writeTimeout: tcpDefaultWrite}
}

// SetReadTimeout sets the timeout of later reads. A negative value blocks.
func (t *TCPTransport) SetReadTimeout(d time.Duration) error {
	t.mu.Lock()
	t.readTimeout = d
	t.mu.Unlock()
	return nil
}

func (t *TCPTransport) Read(p []byte) (int, error) {
	t.mu.Lock()
	d := t.readTimeout
	t.mu.Unlock()

	var deadline time.Time
	if d >= 0 {
		deadline = time.Now().Add(max(d, tcpPollInterval))
	}
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return 0, fmt.Errorf("set read deadline: %w", err)
	}

	n, err := t.conn.Read(p)
	if err != nil && n == 0 && errors.Is(err, os.ErrDeadlineExceeded) {
		return 0, nil
	}
	if err != nil && n > 0 {
		// hand over what arrived; the error resurfaces on the next read
		return n, nil
	}
	return n, err
}

func (t *TCPTransport) Write(p []byte) (int, error) {
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return 0, fmt.Errorf("set write deadline: %w", err)
	}
	return t.conn.Write(p)
}

func (t *TCPTransport) Close() error {
	return t.conn.Close()
}
