// internal/eph/packet.go
package eph

import (
	"encoding/binary"
	"time"

	"go.uber.org/zap"
)

// Frame is what one read from the link yields: a ControlByte or a
// DataPacket.
type Frame interface {
	frame()
}

// DataPacket is a framed data or last packet received from the device.
type DataPacket struct {
	Type    PacketType
	Seq     byte
	Payload []byte
}

func (ControlByte) frame() {}
func (DataPacket) frame()  {}

// Checksum is the 16-bit additive sum of the payload bytes.
func Checksum(payload []byte) uint16 {
	var sum uint16
	for _, b := range payload {
		sum += uint16(b)
	}
	return sum
}

// AppendPacket appends the wire form of a packet to dst.
func AppendPacket(dst []byte, typ PacketType, seq byte, payload []byte) []byte {
	dst = append(dst, byte(typ), seq)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(payload)))
	dst = append(dst, payload...)
	return binary.LittleEndian.AppendUint16(dst, Checksum(payload))
}

// writePacket frames payload and writes it in three segments, pausing
// before each.
func (c *Connection) writePacket(op string, typ PacketType, seq byte, payload []byte) error {
	if len(payload) > MaxPacketPayload {
		return c.fail(CodePayloadTooLong, op, nil, "%d bytes in one packet", len(payload))
	}
	buf := AppendPacket(make([]byte, 0, len(payload)+6), typ, seq, payload)
	if c.debug {
		c.logger.Debug("> packet", zap.String("op", op), zap.Binary("bytes", buf))
	}

	segments := [...]struct {
		data  []byte
		delay time.Duration
	}{
		{buf[:1], c.delays.Type},
		{buf[1:4], c.delays.Header},
		{buf[4:], c.delays.Tail},
	}
	for i, s := range segments {
		c.pause(s.delay)
		n, err := c.port.Write(s.data)
		if err != nil || n != len(s.data) {
			return c.fail(CodeIO, op, err, "packet segment %d: wrote %d of %d bytes", i, n, len(s.data))
		}
	}
	return nil
}

func (c *Connection) writeCommand(op string, seq byte, payload []byte) error {
	return c.writePacket(op, PacketCommand, seq, payload)
}

// putByte writes a lone control byte.
func (c *Connection) putByte(op string, b ControlByte) error {
	c.pause(c.delays.Byte)
	if c.debug {
		c.logger.Debug("> control", zap.String("op", op), zap.Uint8("byte", byte(b)))
	}
	n, err := c.port.Write([]byte{byte(b)})
	if err != nil || n != 1 {
		return c.fail(CodeIO, op, err, "write control byte 0x%02x", byte(b))
	}
	return nil
}

// readPacket reads one frame. A leading byte that is not a data packet type
// comes back as a ControlByte. The payload of a DataPacket aliases dst,
// whose length bounds the accepted payload.
func (c *Connection) readPacket(op string, dst []byte, timeout time.Duration) (Frame, error) {
	var lead [1]byte
	if err := c.readFull(op, lead[:], timeout); err != nil {
		return nil, err
	}
	typ := PacketType(lead[0])
	if typ != PacketData && typ != PacketLast {
		if c.debug {
			c.logger.Debug("< control", zap.String("op", op), zap.Uint8("byte", lead[0]))
		}
		return ControlByte(lead[0]), nil
	}

	var hdr [3]byte
	if err := c.readFull(op, hdr[:], DataTimeout); err != nil {
		return nil, err
	}
	seq := hdr[0]
	length := int(binary.LittleEndian.Uint16(hdr[1:]))
	if length > len(dst) {
		return nil, c.fail(CodePayloadTooLong, op, nil, "length in packet header %d bigger than buffer size %d", length, len(dst))
	}
	payload := dst[:length]
	if err := c.readFull(op, payload, c.timeout); err != nil {
		return nil, err
	}

	var trailer [2]byte
	if err := c.readFull(op, trailer[:], DataTimeout); err != nil {
		return nil, err
	}
	got, want := Checksum(payload), binary.LittleEndian.Uint16(trailer[:])
	if got != want {
		return nil, c.fail(CodeChecksumMismatch, op, nil, "checksum received 0x%04x counted 0x%04x", want, got)
	}
	if c.debug {
		c.logger.Debug("< packet",
			zap.String("op", op),
			zap.Uint8("type", byte(typ)),
			zap.Uint8("seq", seq),
			zap.Int("length", length),
		)
	}
	return DataPacket{Type: typ, Seq: seq, Payload: payload}, nil
}

// readControl reads a single byte as a control signal.
func (c *Connection) readControl(op string, timeout time.Duration) (ControlByte, error) {
	var b [1]byte
	if err := c.readFull(op, b[:], timeout); err != nil {
		return 0, err
	}
	return ControlByte(b[0]), nil
}

// readFull fills p, giving each transport read the full timeout. Silence
// before the first byte is a Timeout; silence after a partial read is a
// hard I/O error.
func (c *Connection) readFull(op string, p []byte, timeout time.Duration) error {
	if len(p) == 0 {
		return nil
	}
	if err := c.port.SetReadTimeout(timeout); err != nil {
		return c.fail(CodeIO, op, err, "set read timeout")
	}
	for got := 0; got < len(p); {
		n, err := c.port.Read(p[got:])
		if err != nil {
			return c.fail(CodeIO, op, err, "read after %d of %d bytes", got, len(p))
		}
		if n == 0 {
			if got == 0 {
				return c.fail(CodeTimeout, op, nil, "read timeout (%v)", timeout)
			}
			return c.fail(CodeIO, op, nil, "short read: %d of %d bytes", got, len(p))
		}
		got += n
	}
	return nil
}
