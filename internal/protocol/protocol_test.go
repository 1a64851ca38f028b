// internal/protocol/protocol_test.go
package protocol

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"camera-service/internal/config"
	"camera-service/internal/eph"
	"camera-service/internal/eph/simulator"
)

func TestTCPTransportTimeoutReadsZero(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	opener := NewTCPOpener(&TCPConfig{ConnectTimeout: time.Second}, zaptest.NewLogger(t))
	tr, err := opener.Open(ln.Addr().String())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer tr.Close()
	peer := <-accepted
	defer peer.Close()

	_ = tr.SetReadTimeout(20 * time.Millisecond)
	buf := make([]byte, 8)
	n, err := tr.Read(buf)
	if n != 0 || err != nil {
		t.Fatalf("idle read = %d, %v; want 0, nil", n, err)
	}

	if _, err := tr.Write([]byte{byte(eph.Init)}); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, 1)
	if _, err := peer.Read(got); err != nil || got[0] != byte(eph.Init) {
		t.Fatalf("peer read %v, %v", got, err)
	}

	peer.Write([]byte{byte(eph.Signature)})
	_ = tr.SetReadTimeout(time.Second)
	n, err = tr.Read(buf)
	if err != nil || n != 1 || buf[0] != byte(eph.Signature) {
		t.Errorf("read = %d %v %v", n, buf[:n], err)
	}

	// a zero timeout polls without blocking
	_ = tr.SetReadTimeout(0)
	start := time.Now()
	if n, _ := tr.Read(buf); n != 0 {
		t.Errorf("poll read %d bytes", n)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("zero timeout blocked")
	}
}

func TestTCPOpenFails(t *testing.T) {
	ln, _ := net.Listen("tcp", "127.0.0.1:0")
	addr := ln.Addr().String()
	ln.Close()
	opener := NewTCPOpener(&TCPConfig{ConnectTimeout: 200 * time.Millisecond}, zaptest.NewLogger(t))
	if _, err := opener.Open(addr); err == nil {
		t.Error("Open of closed port succeeded")
	}
}

type stubTransport struct {
	bytes.Buffer
	closed bool
}

func (s *stubTransport) SetReadTimeout(time.Duration) error { return nil }
func (s *stubTransport) Read(p []byte) (int, error) {
	if s.Len() == 0 {
		return 0, nil
	}
	return s.Buffer.Read(p)
}
func (s *stubTransport) Close() error { s.closed = true; return nil }

func TestMeteredOpenerCounts(t *testing.T) {
	stub := &stubTransport{}
	m := NewMeteredOpener(KindSerial, eph.OpenerFunc(func(string) (eph.Transport, error) { return stub, nil }))

	tr, err := m.Open("/dev/ttyS0")
	if err != nil {
		t.Fatal(err)
	}
	tr.Write([]byte{1, 2, 3})
	buf := make([]byte, 8)
	tr.Read(buf)
	tr.Read(buf)
	tr.Close()

	s := m.Stats()
	if s.Device != "/dev/ttyS0" || s.Opens != 1 || s.IsConnected {
		t.Errorf("stats = %+v", s)
	}
	if s.BytesWritten != 3 || s.BytesRead != 3 || s.Reads != 2 || s.ReadTimeouts != 1 {
		t.Errorf("counters = %+v", s)
	}
	if _, err := m.OpenControl("/dev/ttyS0", tr); !errors.Is(err, ErrNoControl) {
		t.Errorf("OpenControl err = %v", err)
	}
}

func TestMeteredOpenerUnwrapsForControl(t *testing.T) {
	cam := simulator.New()
	m := NewMeteredOpener(KindSimulator, cam)
	c := eph.New(m, eph.WithLogger(zaptest.NewLogger(t)), eph.WithSleep(func(time.Duration) {}), eph.WithWriteDelays(eph.WriteDelays{}))
	if err := c.Open("sim", 57600); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if cam.Baud() != 57600 {
		t.Errorf("local baud = %d, control channel not reached", cam.Baud())
	}
	c.Close(false)
	if s := m.Stats(); s.BytesWritten == 0 || s.BytesRead == 0 || s.IsConnected {
		t.Errorf("stats = %+v", s)
	}
}

func TestNewOpener(t *testing.T) {
	tests := []struct {
		transport string
		wantErr   bool
	}{
		{"serial", false},
		{"tcp", false},
		{"ch347", false},
		{"simulator", false},
		{"irda", true},
	}
	for _, tt := range tests {
		cfg := &config.CameraConfig{Transport: tt.transport, Device: "x", BaudRate: 115200}
		cfg.Simulator.Images = 2
		m, err := NewOpener(cfg, zaptest.NewLogger(t))
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v", tt.transport, err)
			continue
		}
		if err == nil && m.Stats().Transport != Kind(tt.transport) {
			t.Errorf("%s: kind %s", tt.transport, m.Stats().Transport)
		}
	}

	tcpCfg := &config.CameraConfig{Transport: "tcp", Device: "bridge:4001"}
	tcpCfg.TCP.WriteTimeout = 3 * time.Second
	tcpCfg.TCP.ConnectTimeout = time.Second
	m, err := NewOpener(tcpCfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	if o, ok := m.Inner().(*TCPOpener); !ok || o.config.WriteTimeout != 3*time.Second || o.config.ConnectTimeout != time.Second {
		t.Errorf("tcp opener config not passed through: %+v", m.Inner())
	}

	cfg := &config.CameraConfig{Transport: "simulator"}
	cfg.Simulator.Images = 4
	m, _ = NewOpener(cfg, zaptest.NewLogger(t))
	if cam, ok := m.Inner().(*simulator.Camera); !ok || cam.ImageCount() != 4 {
		t.Error("simulator not seeded")
	}
}
