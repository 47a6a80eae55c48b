package playback

import (
	"sync"
	"time"

	"github.com/user/vidloop/pkg/ports"
)

// Mailbox hands the latest decoded frame from the decode goroutine to consumers.
//
// It holds two frame slots. The decoder fills the in-flight slot without the
// lock; Publish flips which slot is published. Consumers only ever touch the
// published slot, and only under the lock, so a flip never exposes a frame
// that is still being written and never copies pixels.
type Mailbox struct {
	mu        sync.Mutex
	slots     [2]ports.RawFrame
	published int
	seq       uint64
	pos       time.Duration
	at        time.Time
	err       error
}

// InFlight returns the slot the decoder may write into.
// Only the publishing goroutine may call it.
func (m *Mailbox) InFlight() *ports.RawFrame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &m.slots[1-m.published]
}

// Publish makes the in-flight slot the published one and recycles the other.
// pos and at are the frame's presentation time and publish instant.
func (m *Mailbox) Publish(pos time.Duration, at time.Time) {
	m.mu.Lock()
	m.published = 1 - m.published
	m.seq++
	m.pos = pos
	m.at = at
	m.slots[1-m.published].Reset()
	m.mu.Unlock()
}

// SetError stores a terminal playback error. The published frame is left as is.
func (m *Mailbox) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Loan returns and clears a pending error if there is one. Otherwise it calls fn
// with the published frame while holding the lock and returns fn's result.
// fn is not called before the first publish.
func (m *Mailbox) Loan(fn func(*ports.RawFrame) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.err; err != nil {
		m.err = nil
		return err
	}
	if m.seq == 0 {
		return nil
	}
	return fn(&m.slots[m.published])
}

// Sequence returns how many frames have been published, with the position
// and publish instant of the latest one.
func (m *Mailbox) Sequence() (seq uint64, pos time.Duration, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq, m.pos, m.at
}

// Reset forgets the published frame and any pending error. Buffers are kept.
func (m *Mailbox) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq = 0
	m.pos = 0
	m.at = time.Time{}
	m.err = nil
	m.slots[0].Reset()
	m.slots[1].Reset()
}
