// internal/eph/simulator/faults.go
package simulator

import "time"

// SetMute stops the camera from answering the init byte.
func (c *Camera) SetMute(mute bool) {
	c.mu.Lock()
	c.mute = mute
	c.mu.Unlock()
}

// SetFillers makes the camera send n zero bytes ahead of its signature.
func (c *Camera) SetFillers(n int) {
	c.mu.Lock()
	c.fillers = n
	c.mu.Unlock()
}

// SetChunkSize sets the payload size of the data packets the camera sends.
func (c *Camera) SetChunkSize(n int) {
	c.mu.Lock()
	if n > 0 {
		c.chunkSize = n
	}
	c.mu.Unlock()
}

// SetClock replaces the clock used to stamp snapshots.
func (c *Camera) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// DropACK loses the host's next ACK for data packet seq, so the camera
// sends that packet again.
func (c *Camera) DropACK(seq byte) {
	c.mu.Lock()
	c.dropACK[seq]++
	c.mu.Unlock()
}

// Corrupt spoils the checksum of the next transmission of data packet seq.
func (c *Camera) Corrupt(seq byte) {
	c.mu.Lock()
	c.corrupt[seq]++
	c.mu.Unlock()
}

// NAKCommands answers the next n commands with NAK.
func (c *Camera) NAKCommands(n int) {
	c.mu.Lock()
	c.nakCommands += n
	c.mu.Unlock()
}

// IgnoreCommands drops the next n commands without answering.
func (c *Camera) IgnoreCommands(n int) {
	c.mu.Lock()
	c.dropCommand += n
	c.mu.Unlock()
}

// Inject queues raw bytes for the host to read.
func (c *Camera) Inject(b ...byte) {
	c.mu.Lock()
	c.out = append(c.out, b...)
	c.mu.Unlock()
}

// AddImage stores another picture and returns its slot.
func (c *Camera) AddImage(img Image) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images = append(c.images, img)
	return len(c.images)
}

// SetVar preloads a variable-length register.
func (c *Camera) SetVar(reg int, data []byte) {
	c.mu.Lock()
	c.vars[reg] = append([]byte(nil), data...)
	c.mu.Unlock()
}

// Var returns a copy of a variable-length register.
func (c *Camera) Var(reg int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.vars[reg]...)
}

// Register returns an integer register as last written by the host.
func (c *Camera) Register(reg int) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registers[reg]
}

func (c *Camera) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// ResetStats clears the counters.
func (c *Camera) ResetStats() {
	c.mu.Lock()
	c.stats = Stats{}
	c.mu.Unlock()
}

func (c *Camera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *Camera) PoweredOff() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.poweredOff
}

// Baud is the local line speed last pushed through the control channel.
func (c *Camera) Baud() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baud
}

// SpeedCode is the value last written to the speed register.
func (c *Camera) SpeedCode() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speedCode
}

// Timeouts lists every read timeout the host set, in order.
func (c *Camera) Timeouts() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.timeouts...)
}

func (c *Camera) ImageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.images)
}

// SetPowerOffAction moves the power-off action to another register.
func (c *Camera) SetPowerOffAction(reg int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.powerOffAt = reg
}

// Actions returns every action command executed so far.
func (c *Camera) Actions() []Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Action(nil), c.actions...)
}
