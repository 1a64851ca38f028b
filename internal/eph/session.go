// internal/eph/session.go
package eph

// session tracks one chunked transfer.
type session struct {
	expect  byte // next sequence number
	packets int
	bytes   int64
}

type seqClass int

const (
	seqNew seqClass = iota
	seqDuplicate
	seqInvalid
)

// classify compares a received sequence number with the expected one. A
// repeat of the last accepted packet means the device missed our ACK.
func (s *session) classify(seq byte) seqClass {
	switch {
	case seq == s.expect:
		return seqNew
	case s.packets > 0 && seq == s.expect-1:
		return seqDuplicate
	}
	return seqInvalid
}

func (s *session) accept(n int) {
	s.expect++
	s.packets++
	s.bytes += int64(n)
}

// grow makes room for one more block, doubling capacity rounded up to the
// block size.
func grow(b []byte, limit int) ([]byte, bool) {
	if cap(b)-len(b) >= BlockSize {
		return b, true
	}
	size := cap(b)
	for size-len(b) < BlockSize {
		size = ((size*2-1)/BlockSize + 1) * BlockSize
	}
	if size > limit {
		return b, false
	}
	nb := make([]byte, len(b), size)
	copy(nb, b)
	return nb, true
}
