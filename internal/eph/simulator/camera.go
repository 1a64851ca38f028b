// internal/eph/simulator/camera.go

// Package simulator emulates a PhotoPC-class camera on the far side of an
// in-memory link. Reads never block: an empty output queue reads as a
// timeout.
package simulator

import (
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"time"

	"camera-service/internal/eph"
)

// Registers served by the simulated camera.
const (
	RegProbe      = 1
	RegFrame      = eph.RegFrame
	RegImageCount = 10
	RegImageSize  = 12
	RegImage      = eph.RegImage
	RegThumbnail  = eph.RegThumbnail
	RegSpeed      = eph.RegSpeed
	RegMetadata   = 47

	ActionSnapshot = 2
	ActionPowerOff = 4

	// MetadataTimeOffset is where the creation time sits in the metadata blob.
	MetadataTimeOffset = 20
	metadataSize       = 32

	probeValue = 0x0100
)

// ErrClosed is returned by I/O on a closed simulated link.
var ErrClosed = errors.New("simulator: link closed")

// Action is one action command the camera executed.
type Action struct {
	Reg int
	Arg []byte
}

// Image is one picture stored in the camera.
type Image struct {
	Data      []byte
	Thumbnail []byte
	Created   time.Time // zero means unknown
}

// Stats counts what crossed the link.
type Stats struct {
	Inits       int
	Commands    int
	HostPackets int // every packet the host wrote, commands included
	DataPackets int // data and last packets sent by the camera
	Resent      int
	NAKs        int // NAKs received from the host
	ACKs        int
	DroppedACKs int
	Opens       int
	Closes      int
}

type outgoing struct {
	chunks [][]byte
	index  int
}

// Camera is a simulated device. It implements eph.Opener, eph.ControlOpener
// and eph.Transport.
type Camera struct {
	mu sync.Mutex

	in  []byte
	out []byte

	registers map[int]uint32
	vars      map[int][]byte
	images    []Image
	frame     int
	pending   *outgoing

	recvReg int
	recvSeq byte
	recvAny bool

	chunkSize   int
	mute        bool
	fillers     int
	nakCommands int
	dropCommand int
	dropACK     map[byte]int
	corrupt     map[byte]int

	open       bool
	poweredOff bool
	powerOffAt int
	actions    []Action
	baud       int
	speedCode  uint32
	timeouts   []time.Duration
	stats      Stats
	now        func() time.Time
}

// New returns a powered-on camera holding images.
func New(images ...Image) *Camera {
	return &Camera{
		registers:  make(map[int]uint32),
		vars:       make(map[int][]byte),
		images:     append([]Image(nil), images...),
		frame:      1,
		chunkSize:  eph.MaxPacketPayload,
		powerOffAt: ActionPowerOff,
		dropACK:    make(map[byte]int),
		corrupt:    make(map[byte]int),
		now:        time.Now,
	}
}

// Open implements eph.Opener. Reopening wakes a powered-off camera.
func (c *Camera) Open(device string) (eph.Transport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
	c.poweredOff = false
	c.in = c.in[:0]
	c.pending = nil
	c.stats.Opens++
	return c, nil
}

// OpenControl implements eph.ControlOpener.
func (c *Camera) OpenControl(device string, t eph.Transport) (eph.ControlChannel, error) {
	return &control{cam: c}, nil
}

func (c *Camera) SetReadTimeout(t time.Duration) error {
	c.mu.Lock()
	c.timeouts = append(c.timeouts, t)
	c.mu.Unlock()
	return nil
}

func (c *Camera) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return 0, ErrClosed
	}
	if len(c.out) == 0 {
		return 0, nil
	}
	n := copy(p, c.out)
	c.out = c.out[n:]
	return n, nil
}

func (c *Camera) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return 0, ErrClosed
	}
	c.in = append(c.in, p...)
	c.process()
	return len(p), nil
}

func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return io.ErrClosedPipe
	}
	c.open = false
	c.out = nil
	c.stats.Closes++
	return nil
}

// process consumes every complete unit in the input buffer.
func (c *Camera) process() {
	for len(c.in) > 0 {
		switch lead := c.in[0]; lead {
		case byte(eph.Init):
			c.in = c.in[1:]
			c.stats.Inits++
			if !c.mute {
				for i := 0; i < c.fillers; i++ {
					c.out = append(c.out, 0)
				}
				c.out = append(c.out, byte(eph.Signature))
			}
		case byte(eph.ACK):
			c.in = c.in[1:]
			c.onACK()
		case byte(eph.NAK):
			c.in = c.in[1:]
			c.onNAK()
		case byte(eph.PacketCommand), byte(eph.PacketData), byte(eph.PacketLast):
			if len(c.in) < 4 {
				return
			}
			n := int(binary.LittleEndian.Uint16(c.in[2:4]))
			if len(c.in) < 6+n {
				return
			}
			typ, seq := eph.PacketType(lead), c.in[1]
			payload := append([]byte(nil), c.in[4:4+n]...)
			ok := binary.LittleEndian.Uint16(c.in[4+n:6+n]) == eph.Checksum(payload)
			c.in = c.in[6+n:]
			c.onPacket(typ, seq, payload, ok)
		default:
			c.in = c.in[1:]
		}
	}
}

func (c *Camera) onPacket(typ eph.PacketType, seq byte, payload []byte, ok bool) {
	c.stats.HostPackets++
	if !ok {
		c.reply(eph.NAK)
		return
	}
	if typ != eph.PacketCommand {
		c.onContinuation(seq, payload)
		return
	}
	c.stats.Commands++
	if c.dropCommand > 0 {
		c.dropCommand--
		return
	}
	if c.nakCommands > 0 {
		c.nakCommands--
		c.reply(eph.NAK)
		return
	}
	if len(payload) < 2 {
		c.reply(eph.NAK)
		return
	}
	reg := int(payload[1])
	switch payload[0] {
	case 0: // set int
		if len(payload) != 6 {
			c.reply(eph.NAK)
			return
		}
		c.setInt(reg, binary.LittleEndian.Uint32(payload[2:]))
		c.reply(eph.ACK)
	case 1: // get int
		v := binary.LittleEndian.AppendUint32(nil, c.getInt(reg))
		c.send([][]byte{v})
	case 2: // action
		c.reply(eph.ACK)
		c.action(reg, payload[2:])
		c.reply(eph.Completion)
	case 3: // set var
		c.vars[reg] = append([]byte(nil), payload[2:]...)
		c.recvReg, c.recvSeq, c.recvAny = reg, 0, false
		c.reply(eph.ACK)
	case 4: // get var
		c.send(c.split(c.getVar(reg)))
	default:
		c.reply(eph.NAK)
	}
}

// onContinuation handles the data packets that follow a set-var command.
func (c *Camera) onContinuation(seq byte, payload []byte) {
	switch {
	case seq == c.recvSeq:
		c.vars[c.recvReg] = append(c.vars[c.recvReg], payload...)
		c.recvSeq++
		c.recvAny = true
	case c.recvAny && seq == c.recvSeq-1:
	default:
		c.reply(eph.NAK)
		return
	}
	c.reply(eph.ACK)
}

func (c *Camera) onACK() {
	c.stats.ACKs++
	if c.pending == nil {
		return
	}
	seq := byte(c.pending.index)
	if c.dropACK[seq] > 0 {
		// The ACK is lost on the line: the camera times out and resends.
		c.dropACK[seq]--
		c.stats.DroppedACKs++
		c.resend()
		return
	}
	c.pending.index++
	if c.pending.index == len(c.pending.chunks) {
		c.pending = nil
		return
	}
	c.transmit()
}

func (c *Camera) onNAK() {
	c.stats.NAKs++
	if c.pending != nil {
		c.resend()
	}
}

func (c *Camera) send(chunks [][]byte) {
	c.pending = &outgoing{chunks: chunks}
	c.transmit()
}

func (c *Camera) resend() {
	c.stats.Resent++
	c.transmit()
}

func (c *Camera) transmit() {
	p := c.pending
	typ := eph.PacketData
	if p.index == len(p.chunks)-1 {
		typ = eph.PacketLast
	}
	seq := byte(p.index)
	frame := eph.AppendPacket(nil, typ, seq, p.chunks[p.index])
	if c.corrupt[seq] > 0 {
		c.corrupt[seq]--
		frame[len(frame)-1] ^= 0xff
	}
	c.out = append(c.out, frame...)
	c.stats.DataPackets++
}

func (c *Camera) reply(b eph.ControlByte) {
	c.out = append(c.out, byte(b))
}

func (c *Camera) split(data []byte) [][]byte {
	if len(data) == 0 {
		return [][]byte{{}}
	}
	var chunks [][]byte
	for len(data) > 0 {
		n := min(len(data), c.chunkSize)
		chunks = append(chunks, data[:n])
		data = data[n:]
	}
	return chunks
}

func (c *Camera) setInt(reg int, v uint32) {
	switch reg {
	case RegFrame:
		c.frame = int(v)
	case RegSpeed:
		c.speedCode = v
	}
	c.registers[reg] = v
}

func (c *Camera) getInt(reg int) uint32 {
	switch reg {
	case RegProbe:
		return probeValue
	case RegImageCount:
		return uint32(len(c.images))
	case RegImageSize:
		if img, ok := c.selected(); ok {
			return uint32(len(img.Data))
		}
		return 0
	case RegFrame:
		return uint32(c.frame)
	}
	return c.registers[reg]
}

func (c *Camera) getVar(reg int) []byte {
	switch reg {
	case RegImage:
		if img, ok := c.selected(); ok {
			return img.Data
		}
		return nil
	case RegThumbnail:
		if img, ok := c.selected(); ok {
			return img.Thumbnail
		}
		return nil
	case RegMetadata:
		if img, ok := c.selected(); ok {
			return metadata(img.Created)
		}
		return metadata(time.Time{})
	}
	return c.vars[reg]
}

func (c *Camera) action(reg int, arg []byte) {
	c.actions = append(c.actions, Action{Reg: reg, Arg: append([]byte(nil), arg...)})
	switch reg {
	case c.powerOffAt:
		c.poweredOff = true
	case ActionSnapshot:
		n := len(c.images) + 1
		c.images = append(c.images, SampleImage(n, c.now()))
	}
}

func (c *Camera) selected() (Image, bool) {
	if c.frame < 1 || c.frame > len(c.images) {
		return Image{}, false
	}
	return c.images[c.frame-1], true
}

func metadata(created time.Time) []byte {
	blob := make([]byte, metadataSize)
	ts := uint32(0xffffffff)
	if !created.IsZero() {
		ts = uint32(created.Unix())
	}
	binary.LittleEndian.PutUint32(blob[MetadataTimeOffset:], ts)
	return blob
}

type control struct {
	cam *Camera
}

func (ctl *control) SetBaudRate(baud int) error {
	ctl.cam.mu.Lock()
	ctl.cam.baud = baud
	ctl.cam.mu.Unlock()
	return nil
}

func (ctl *control) SetBufferSize(int) error { return nil }
func (ctl *control) SetMode(int) error       { return nil }
func (ctl *control) Close() error            { return nil }
