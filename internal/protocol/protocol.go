// internal/protocol/protocol.go
package protocol

import (
	"sync"
	"time"

	"camera-service/internal/eph"
)

// Kind names a link transport.
type Kind string

const (
	KindSerial    Kind = "serial"
	KindTCP       Kind = "tcp"
	KindCH347     Kind = "ch347"
	KindSimulator Kind = "simulator"
)

// LinkStats provides link-level statistics
type LinkStats struct {
	Transport      Kind          `json:"transport"`
	Device         string        `json:"device"`
	BytesWritten   int64         `json:"bytes_written"`
	BytesRead      int64         `json:"bytes_read"`
	Writes         int64         `json:"writes"`
	Reads          int64         `json:"reads"`
	ReadTimeouts   int64         `json:"read_timeouts"`
	ErrorCount     int64         `json:"error_count"`
	Opens          int64         `json:"opens"`
	LastActivity   time.Time     `json:"last_activity"`
	AverageLatency time.Duration `json:"average_latency"`
	IsConnected    bool          `json:"is_connected"`
}

// MeteredOpener wraps an opener and counts the traffic of every transport
// it opens.
type MeteredOpener struct {
	inner eph.Opener
	mu    sync.Mutex
	stats LinkStats
}

// NewMeteredOpener wraps inner.
func NewMeteredOpener(kind Kind, inner eph.Opener) *MeteredOpener {
	return &MeteredOpener{inner: inner, stats: LinkStats{Transport: kind}}
}

// Open implements eph.Opener.
func (m *MeteredOpener) Open(device string) (eph.Transport, error) {
	t, err := m.inner.Open(device)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.stats.ErrorCount++
		return nil, err
	}
	m.stats.Device = device
	m.stats.Opens++
	m.stats.IsConnected = true
	m.stats.LastActivity = time.Now()
	return &meteredTransport{inner: t, owner: m}, nil
}

// OpenControl implements eph.ControlOpener when the wrapped opener does.
func (m *MeteredOpener) OpenControl(device string, t eph.Transport) (eph.ControlChannel, error) {
	co, ok := m.inner.(eph.ControlOpener)
	if !ok {
		return nil, ErrNoControl
	}
	if mt, ok := t.(*meteredTransport); ok {
		t = mt.inner
	}
	return co.OpenControl(device, t)
}

// Stats returns a snapshot of the counters.
func (m *MeteredOpener) Stats() LinkStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *MeteredOpener) record(fn func(s *LinkStats)) {
	m.mu.Lock()
	fn(&m.stats)
	m.mu.Unlock()
}

type meteredTransport struct {
	inner eph.Transport
	owner *MeteredOpener
}

func (t *meteredTransport) SetReadTimeout(d time.Duration) error {
	return t.inner.SetReadTimeout(d)
}

func (t *meteredTransport) Read(p []byte) (int, error) {
	start := time.Now()
	n, err := t.inner.Read(p)
	elapsed := time.Since(start)
	t.owner.record(func(s *LinkStats) {
		s.Reads++
		switch {
		case err != nil:
			s.ErrorCount++
		case n == 0:
			s.ReadTimeouts++
		default:
			s.BytesRead += int64(n)
			s.LastActivity = time.Now()
			s.AverageLatency = average(s.AverageLatency, elapsed)
		}
	})
	return n, err
}

func (t *meteredTransport) Write(p []byte) (int, error) {
	start := time.Now()
	n, err := t.inner.Write(p)
	elapsed := time.Since(start)
	t.owner.record(func(s *LinkStats) {
		s.Writes++
		s.BytesWritten += int64(n)
		if err != nil {
			s.ErrorCount++
			return
		}
		s.LastActivity = time.Now()
		s.AverageLatency = average(s.AverageLatency, elapsed)
	})
	return n, err
}

func (t *meteredTransport) Close() error {
	err := t.inner.Close()
	t.owner.record(func(s *LinkStats) {
		s.IsConnected = false
		if err != nil {
			s.ErrorCount++
		}
	})
	return err
}

// average keeps a running average latency
func average(cur, next time.Duration) time.Duration {
	if cur == 0 {
		return next
	}
	return (cur + next) / 2
}
