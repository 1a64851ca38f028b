// internal/eph/retry.go
package eph

import (
	"errors"
	"time"

	"go.uber.org/zap"
)

type outcome int

const (
	success outcome = iota
	retry
	fatal
)

func (o outcome) String() string {
	switch o {
	case success:
		return "success"
	case retry:
		return "retry"
	}
	return "fatal"
}

// attempt runs step until it succeeds, fails fatally or uses up the retry
// budget. Running out of attempts raises an error with the exhausted code.
func (c *Connection) attempt(op string, exhausted Code, step func(try int) (outcome, error)) error {
	var last error
	for try := 0; try < c.retries; try++ {
		out, err := step(try)
		switch out {
		case success:
			return nil
		case fatal:
			return err
		}
		last = err
		c.logger.Debug("Retrying", zap.String("op", op), zap.Int("attempt", try+1), zap.Error(err))
	}
	return c.fail(exhausted, op, last, "%d attempts", c.retries)
}

// awaitAck classifies the device's answer to a packet we sent.
func (c *Connection) awaitAck(op string, timeout time.Duration, want ControlByte) (outcome, error) {
	b, err := c.readControl(op, timeout)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			return retry, err
		}
		return fatal, err
	}
	switch b {
	case want:
		return success, nil
	case NAK, DC1:
		return retry, nil
	}
	return fatal, c.fail(CodeUnexpectedByte, op, nil, "got 0x%02x waiting for 0x%02x", byte(b), byte(want))
}

// transact sends one packet and waits for its ACK, resending on NAK or
// timeout.
func (c *Connection) transact(op string, typ PacketType, seq byte, payload []byte, timeout time.Duration) error {
	return c.attempt(op, CodeExcessiveRetries, func(int) (outcome, error) {
		if err := c.writePacket(op, typ, seq, payload); err != nil {
			return fatal, err
		}
		return c.awaitAck(op, timeout, ACK)
	})
}
