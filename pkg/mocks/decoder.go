package mocks

import (
	"sync"

	"github.com/user/vidloop/pkg/ports"
)

// ElementaryDecoder is a mock implementation of ports.ElementaryDecoder.
// Every sample decodes to one Width x Height frame filled with the low byte of its PTS.
type ElementaryDecoder struct {
	Width  int
	Height int

	SendFunc func(data []byte, pts int64) error

	mu      sync.Mutex
	queue   []int64
	samples [][]byte
	resets  int
	closed  bool
}

func (m *ElementaryDecoder) Send(data []byte, pts int64) error {
	if m.SendFunc != nil {
		if err := m.SendFunc(data, pts); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, append([]byte(nil), data...))
	m.queue = append(m.queue, pts)
	return nil
}

func (m *ElementaryDecoder) Receive(dst *ports.RawFrame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return ports.ErrNeedMoreInput
	}
	pts := m.queue[0]
	m.queue = m.queue[1:]
	FillFrame(dst, m.Width, m.Height, pts)
	return nil
}

func (m *ElementaryDecoder) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = nil
	m.resets++
	return nil
}

func (m *ElementaryDecoder) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Samples returns copies of every sample sent.
func (m *ElementaryDecoder) Samples() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.samples...)
}

// Resets returns how many times Reset was called.
func (m *ElementaryDecoder) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// IsClosed reports whether Close was called.
func (m *ElementaryDecoder) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ ports.ElementaryDecoder = (*ElementaryDecoder)(nil)
