// internal/eph/commands.go
package eph

import (
	"encoding/binary"
	"errors"
	"time"

	"go.uber.org/zap"
)

// SetInt stores a 32-bit value in a register.
func (c *Connection) SetInt(reg int, v uint32) error {
	const op = "setint"
	if err := c.ready(op); err != nil {
		return err
	}
	timeout := AckTimeout
	if reg == RegFrame {
		timeout = BigAckTimeout
	}
	return c.transact(op, PacketCommand, seqCommand, intPayload(opSetInt, reg, v), timeout)
}

// setSpeed sends the speed register through the initial-command sequence,
// which the device accepts before the link is fully up.
func (c *Connection) setSpeed(op string, code uint32) error {
	return c.transact(op, PacketCommand, seqInitCommand, intPayload(opSetInt, RegSpeed, code), AckTimeout)
}

func intPayload(opc opcode, reg int, v uint32) []byte {
	return binary.LittleEndian.AppendUint32([]byte{byte(opc), byte(reg)}, v)
}

// GetInt reads a 32-bit register.
func (c *Connection) GetInt(reg int) (uint32, error) {
	const op = "getint"
	if err := c.ready(op); err != nil {
		return 0, err
	}
	cmd := []byte{byte(opGetInt), byte(reg)}
	var (
		buf    [4]byte
		val    uint32
		resend = true
	)
	err := c.attempt(op, CodeExcessiveRetries, func(int) (outcome, error) {
		if resend {
			if err := c.writeCommand(op, seqCommand, cmd); err != nil {
				return fatal, err
			}
			resend = false
		}
		f, err := c.readPacket(op, buf[:], BigDataTimeout)
		switch {
		case errors.Is(err, ErrTimeout):
			resend = true
			return retry, err
		case errors.Is(err, ErrChecksumMismatch):
			if err := c.putByte(op, NAK); err != nil {
				return fatal, err
			}
			return retry, err
		case err != nil:
			return fatal, err
		}

		switch f := f.(type) {
		case ControlByte:
			// The command arrived but its answer did not; listen again.
			if f == NAK || f == DC1 {
				return retry, nil
			}
			return fatal, c.fail(CodeUnexpectedByte, op, nil, "got 0x%02x waiting for register %d", byte(f), reg)
		case DataPacket:
			if f.Type != PacketLast || f.Seq != 0 || len(f.Payload) != 4 {
				return fatal, c.fail(CodeBadFraming, op, nil, "register %d: packet type 0x%02x seq %d length %d",
					reg, byte(f.Type), f.Seq, len(f.Payload))
			}
			val = binary.LittleEndian.Uint32(f.Payload)
			if err := c.putByte(op, ACK); err != nil {
				return fatal, err
			}
			return success, nil
		}
		return fatal, c.fail(CodeBadFraming, op, nil, "unknown frame")
	})
	if err != nil {
		return 0, err
	}
	return val, nil
}

// Action triggers a device action and waits until the device reports it
// complete.
func (c *Connection) Action(reg int, arg []byte) error {
	return c.action("action", reg, arg, true)
}

func (c *Connection) action(op string, reg int, arg []byte, wait bool) error {
	if err := c.ready(op); err != nil {
		return err
	}
	if len(arg) > MaxPacketPayload-2 {
		return c.fail(CodePayloadTooLong, op, nil, "action argument of %d bytes", len(arg))
	}
	payload := append([]byte{byte(opAction), byte(reg)}, arg...)
	return c.attempt(op, CodeExcessiveRetries, func(int) (outcome, error) {
		if err := c.writeCommand(op, seqCommand, payload); err != nil {
			return fatal, err
		}
		if out, err := c.awaitAck(op, AckTimeout, ACK); out != success || !wait {
			return out, err
		}
		return c.awaitAck(op, CompletionTimeout, Completion)
	})
}

// SetVar writes a variable-length value. The first packet carries the
// command and as much data as fits; the rest follows in numbered data
// packets, the final one marked last.
func (c *Connection) SetVar(reg int, data []byte) error {
	const op = "setvar"
	if err := c.ready(op); err != nil {
		return err
	}
	n := min(len(data), MaxPacketPayload-2)
	first := append([]byte{byte(opSetVar), byte(reg)}, data[:n]...)
	if err := c.transact(op, PacketCommand, seqCommand, first, AckTimeout); err != nil {
		return err
	}
	sent := int64(n)
	c.progress(sent)

	var s session
	for rest := data[n:]; len(rest) > 0; {
		chunk := rest[:min(len(rest), MaxPacketPayload)]
		rest = rest[len(chunk):]
		typ := PacketData
		if len(rest) == 0 {
			typ = PacketLast
		}
		if err := c.transact(op, typ, s.expect, chunk, AckTimeout); err != nil {
			return err
		}
		s.accept(len(chunk))
		c.progress(sent + s.bytes)
	}
	return nil
}

// GetVar reads a variable-length value, appending it to dst. The buffer
// grows as data arrives.
func (c *Connection) GetVar(reg int, dst []byte) ([]byte, error) {
	const op = "getvar"
	if err := c.ready(op); err != nil {
		return dst, err
	}
	buf := dst
	next := func() ([]byte, error) {
		var ok bool
		if buf, ok = grow(buf, c.maxBuffer); !ok {
			return nil, c.fail(CodeOutOfMemory, op, nil, "buffer of %d bytes would exceed %d", cap(buf)*2, c.maxBuffer)
		}
		return buf[len(buf):cap(buf)], nil
	}
	keep := func(p []byte) error {
		buf = buf[:len(buf)+len(p)]
		return nil
	}
	if _, err := c.receive(op, reg, next, keep); err != nil {
		return dst, err
	}
	return buf, nil
}

// StreamVar reads a variable-length value through the store callback and
// returns the number of bytes delivered.
func (c *Connection) StreamVar(reg int) (int64, error) {
	const op = "streamvar"
	if err := c.ready(op); err != nil {
		return 0, err
	}
	if c.onStore == nil {
		return 0, c.fail(CodeInvalidArguments, op, nil, "no buffer and no store callback")
	}
	scratch := make([]byte, BlockSize)
	next := func() ([]byte, error) { return scratch, nil }
	store := func(p []byte) error {
		if err := c.onStore(p); err != nil {
			return c.fail(CodeIO, op, err, "store callback")
		}
		return nil
	}
	return c.receive(op, reg, next, store)
}

// receive runs the GETVAR exchange. next supplies the space for each packet
// and deliver takes every packet seen for the first time.
func (c *Connection) receive(op string, reg int, next func() ([]byte, error), deliver func([]byte) error) (int64, error) {
	cmd := []byte{byte(opGetVar), byte(reg)}
	if err := c.writeCommand(op, seqCommand, cmd); err != nil {
		return 0, err
	}

	var s session
	for last := false; !last; {
		err := c.attempt(op, CodeExcessiveRetries, func(int) (outcome, error) {
			dst, err := next()
			if err != nil {
				return fatal, err
			}
			f, err := c.readPacket(op, dst, c.readTimeout(reg, &s))
			if err != nil {
				if !retryable(err) {
					return fatal, err
				}
				if err := c.putByte(op, NAK); err != nil {
					return fatal, err
				}
				return retry, err
			}

			switch f := f.(type) {
			case ControlByte:
				if s.packets == 0 && (f == NAK || f == DC1) {
					if err := c.putByte(op, NAK); err != nil {
						return fatal, err
					}
					if err := c.writeCommand(op, seqCommand, cmd); err != nil {
						return fatal, err
					}
					return retry, nil
				}
				return fatal, c.fail(CodeUnexpectedByte, op, nil, "got 0x%02x waiting for packet %d", byte(f), s.expect)
			case DataPacket:
				switch s.classify(f.Seq) {
				case seqNew:
					if err := deliver(f.Payload); err != nil {
						return fatal, err
					}
					s.accept(len(f.Payload))
					c.progress(s.bytes)
				case seqDuplicate:
					c.logger.Debug("Duplicate packet", zap.String("op", op), zap.Uint8("seq", f.Seq))
				default:
					return fatal, c.fail(CodeBadFraming, op, nil, "sequence %d, expected %d", f.Seq, s.expect)
				}
				if err := c.putByte(op, ACK); err != nil {
					return fatal, err
				}
				last = f.Type == PacketLast
				return success, nil
			}
			return fatal, c.fail(CodeBadFraming, op, nil, "unknown frame")
		})
		if err != nil {
			return s.bytes, err
		}
	}
	return s.bytes, nil
}

// readTimeout bounds the wait for a packet's leading byte. It is long for
// the first packet of an image or thumbnail, which the device has to
// prepare before sending.
func (c *Connection) readTimeout(reg int, s *session) time.Duration {
	if s.packets == 0 && (reg == RegImage || reg == RegThumbnail) {
		return BigDataTimeout
	}
	return DataTimeout
}
