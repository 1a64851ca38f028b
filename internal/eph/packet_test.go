// internal/eph/packet_test.go
package eph

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// loopback hands written bytes back to the reader.
type loopback struct {
	buf      bytes.Buffer
	writes   int
	timeouts []time.Duration
	maxRead  int
	closed   bool
}

func (l *loopback) SetReadTimeout(t time.Duration) error {
	l.timeouts = append(l.timeouts, t)
	return nil
}

func (l *loopback) Read(p []byte) (int, error) {
	if l.buf.Len() == 0 {
		return 0, nil
	}
	if l.maxRead > 0 && len(p) > l.maxRead {
		p = p[:l.maxRead]
	}
	return l.buf.Read(p)
}

func (l *loopback) Write(p []byte) (int, error) {
	l.writes++
	return l.buf.Write(p)
}

func (l *loopback) Close() error {
	l.closed = true
	return nil
}

func newLoopbackConn(t *testing.T, opts ...Option) (*Connection, *loopback) {
	t.Helper()
	lb := &loopback{}
	base := []Option{
		WithLogger(zaptest.NewLogger(t)),
		WithWriteDelays(WriteDelays{}),
		WithSleep(func(time.Duration) {}),
	}
	c := New(OpenerFunc(func(string) (Transport, error) { return lb, nil }), append(base, opts...)...)
	c.port = lb
	c.timeout = dataTimeout(MaxSpeed)
	return c, lb
}

func TestPacketRoundTrip(t *testing.T) {
	c, lb := newLoopbackConn(t)
	dst := make([]byte, BlockSize)

	for n := 0; n <= MaxPacketPayload; n++ {
		payload := make([]byte, n)
		for i := range payload {
			payload[i] = byte(i*7 + n)
		}
		typ := PacketData
		if n%2 == 1 {
			typ = PacketLast
		}
		seq := byte(n)

		if err := c.writePacket("test", typ, seq, payload); err != nil {
			t.Fatalf("len %d: writePacket: %v", n, err)
		}
		wire := lb.buf.Bytes()
		if got := int(binary.LittleEndian.Uint16(wire[2:4])); got != n {
			t.Fatalf("len %d: length field %d", n, got)
		}
		if got, want := binary.LittleEndian.Uint16(wire[4+n:]), Checksum(payload); got != want {
			t.Fatalf("len %d: checksum field 0x%04x, want 0x%04x", n, got, want)
		}

		f, err := c.readPacket("test", dst, DataTimeout)
		if err != nil {
			t.Fatalf("len %d: readPacket: %v", n, err)
		}
		pkt, ok := f.(DataPacket)
		if !ok {
			t.Fatalf("len %d: got %T, want DataPacket", n, f)
		}
		if pkt.Type != typ || pkt.Seq != seq || !bytes.Equal(pkt.Payload, payload) {
			t.Fatalf("len %d: got type 0x%02x seq %d, payload mismatch", n, pkt.Type, pkt.Seq)
		}
	}
}

func TestWritePacketTooLong(t *testing.T) {
	for _, n := range []int{MaxPacketPayload + 1, BlockSize, 5000} {
		var codes []Code
		c, lb := newLoopbackConn(t, WithErrorFunc(func(code Code, _ string) { codes = append(codes, code) }))
		err := c.writePacket("test", PacketData, 0, make([]byte, n))
		if !errors.Is(err, ErrPayloadTooLong) {
			t.Errorf("len %d: err = %v, want PayloadTooLong", n, err)
		}
		if lb.writes != 0 {
			t.Errorf("len %d: %d transport writes, want none", n, lb.writes)
		}
		if len(codes) != 1 || codes[0] != CodePayloadTooLong {
			t.Errorf("len %d: reported codes %v", n, codes)
		}
	}
}

func TestChecksum(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    uint16
	}{
		{"empty", nil, 0},
		{"single", []byte{0x42}, 0x42},
		{"carry", []byte{0xff, 0xff}, 0x01fe},
		{"wraps", bytes.Repeat([]byte{0xff}, 258), uint16(258 * 0xff % 65536)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.payload); got != tt.want {
				t.Errorf("Checksum = 0x%04x, want 0x%04x", got, tt.want)
			}
		})
	}
}

func TestWritePacketSegmentsAndDelays(t *testing.T) {
	var slept []time.Duration
	c, lb := newLoopbackConn(t,
		WithWriteDelays(DefaultWriteDelays()),
		WithSleep(func(d time.Duration) { slept = append(slept, d) }),
	)
	if err := c.writePacket("test", PacketCommand, seqCommand, []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if lb.writes != 3 {
		t.Errorf("writes = %d, want 3 segments", lb.writes)
	}
	want := []time.Duration{3 * time.Millisecond, 3 * time.Millisecond, 3 * time.Millisecond}
	if len(slept) != len(want) {
		t.Fatalf("slept %v, want %v", slept, want)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("pause %d = %v, want %v", i, slept[i], want[i])
		}
	}
}

func TestReadPacket(t *testing.T) {
	tests := []struct {
		name    string
		wire    []byte
		dst     int
		maxRead int
		want    Frame
		err     error
	}{
		{
			name: "ack control byte",
			wire: []byte{byte(ACK)},
			dst:  BlockSize,
			want: ACK,
		},
		{
			name: "nak control byte",
			wire: []byte{byte(NAK), 0x99},
			dst:  BlockSize,
			want: NAK,
		},
		{
			name:    "packet arriving byte by byte",
			wire:    AppendPacket(nil, PacketLast, 0, []byte{1, 2, 3, 4}),
			dst:     4,
			maxRead: 1,
			want:    DataPacket{Type: PacketLast, Seq: 0, Payload: []byte{1, 2, 3, 4}},
		},
		{
			name: "silence",
			dst:  BlockSize,
			err:  ErrTimeout,
		},
		{
			name: "bad checksum",
			wire: []byte{byte(PacketData), 0, 2, 0, 1, 2, 0, 0},
			dst:  BlockSize,
			err:  ErrChecksumMismatch,
		},
		{
			name: "payload bigger than buffer",
			wire: AppendPacket(nil, PacketData, 0, make([]byte, 10)),
			dst:  4,
			err:  ErrPayloadTooLong,
		},
		{
			name: "short header",
			wire: []byte{byte(PacketData), 0},
			dst:  BlockSize,
			err:  ErrIO,
		},
		{
			name: "header then silence",
			wire: []byte{byte(PacketData)},
			dst:  BlockSize,
			err:  ErrTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, lb := newLoopbackConn(t)
			lb.maxRead = tt.maxRead
			lb.buf.Write(tt.wire)

			f, err := c.readPacket("test", make([]byte, tt.dst), DataTimeout)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("err = %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			switch want := tt.want.(type) {
			case ControlByte:
				if f != want {
					t.Errorf("frame = %v, want %v", f, want)
				}
			case DataPacket:
				got, ok := f.(DataPacket)
				if !ok || got.Type != want.Type || got.Seq != want.Seq || !bytes.Equal(got.Payload, want.Payload) {
					t.Errorf("frame = %+v, want %+v", f, want)
				}
			}
		})
	}
}

func TestDebugDumpsPackets(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	c, _ := newLoopbackConn(t, WithLogger(zap.New(core)), WithDebug(true))
	if err := c.writePacket("test", PacketData, 1, []byte("abc")); err != nil {
		t.Fatal(err)
	}
	if _, err := c.readPacket("test", make([]byte, BlockSize), DataTimeout); err != nil {
		t.Fatal(err)
	}
	if n := logs.FilterMessage("> packet").Len(); n != 1 {
		t.Errorf("write dumps = %d, want 1", n)
	}
	if n := logs.FilterMessage("< packet").Len(); n != 1 {
		t.Errorf("read dumps = %d, want 1", n)
	}
}

func TestGrow(t *testing.T) {
	tests := []struct {
		len, cap int
		want     int
	}{
		{0, 0, 2048},
		{0, 2048, 2048},
		{10, 2048, 4096},
		{100, 100, 4096},
		{4096, 4096, 8192},
		{5000, 6144, 12288},
	}
	for _, tt := range tests {
		b, ok := grow(make([]byte, tt.len, tt.cap), DefaultMaxBuffer)
		if !ok {
			t.Fatalf("grow(%d/%d) refused", tt.len, tt.cap)
		}
		if cap(b) != tt.want || len(b) != tt.len {
			t.Errorf("grow(%d/%d) = %d/%d, want cap %d", tt.len, tt.cap, len(b), cap(b), tt.want)
		}
	}
	if _, ok := grow(make([]byte, 4096), 4096); ok {
		t.Error("grow past limit succeeded")
	}
}
