// internal/eph/constants.go
package eph

import "time"

// ControlByte is a single protocol byte read outside of packet framing.
type ControlByte byte

const (
	Init       ControlByte = 0x00
	Completion ControlByte = 0x05
	ACK        ControlByte = 0x06
	DC1        ControlByte = 0x11
	NAK        ControlByte = 0x15
	Signature  ControlByte = 0x15
	EOT        ControlByte = 0xff
)

// PacketType is the leading byte of a framed packet.
type PacketType byte

const (
	PacketCommand PacketType = 0x1b
	PacketData    PacketType = 0x02
	PacketLast    PacketType = 0x03
)

// Sequence bytes carried by command packets.
const (
	seqInitCommand byte = 0x53
	seqCommand     byte = 0x43
)

type opcode byte

const (
	opSetInt opcode = iota
	opGetInt
	opAction
	opSetVar
	opGetVar
)

// Registers the engine itself knows about.
const (
	RegFrame     = 4
	RegImage     = 14
	RegThumbnail = 15
	RegSpeed     = 17

	// ActionPowerOff is the default power-off action register.
	ActionPowerOff = 4
)

// Read timeouts.
const (
	InitTimeout       = 3 * time.Second
	DataTimeout       = 200 * time.Millisecond
	BigDataTimeout    = 1500 * time.Millisecond
	AckTimeout        = 400 * time.Millisecond
	BigAckTimeout     = 800 * time.Millisecond
	CompletionTimeout = 15 * time.Second
)

const (
	SpeedChangeDelay = 100 * time.Millisecond
	InitRetryDelay   = 3 * time.Second

	MaxRetries   = 5
	DefaultSpeed = 19200
	MaxSpeed     = 115200

	// BlockSize is the largest payload accepted on read and the growth
	// granularity of receive buffers.
	BlockSize = 2048
	// MaxPacketPayload is the largest payload writePacket will frame.
	MaxPacketPayload = BlockSize - 6

	// DefaultMaxBuffer bounds a buffered GetVar.
	DefaultMaxBuffer = 64 << 20

	skipFillers    = 200
	initMode       = 1
	initBufferHint = 65536
)

// WriteDelays are the pauses taken before each write segment. Slow serial
// hardware drops bytes without them.
type WriteDelays struct {
	Type   time.Duration // before the packet type byte
	Header time.Duration // before seq and length
	Tail   time.Duration // before payload and checksum
	Byte   time.Duration // before a lone control byte
}

// DefaultWriteDelays returns the delays used against real devices.
func DefaultWriteDelays() WriteDelays {
	return WriteDelays{
		Type:   1250 * time.Microsecond,
		Header: 1250 * time.Microsecond,
		Tail:   1500 * time.Microsecond,
		Byte:   2000 * time.Microsecond,
	}
}

// SpeedCode returns the device's encoding of a baud rate. A rate of zero
// selects MaxSpeed.
func SpeedCode(baud int) (uint32, bool) {
	switch baud {
	case 9600:
		return 1, true
	case 19200:
		return 2, true
	case 38400:
		return 3, true
	case 57600:
		return 4, true
	case 0, 115200:
		return 5, true
	}
	return 0, false
}

// dataTimeout leaves room for a full block at ten bit times per byte.
func dataTimeout(baud int) time.Duration {
	return DataTimeout + time.Duration((2048000000/int64(baud))*10)*time.Microsecond
}
