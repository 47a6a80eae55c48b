package mocks

import (
	"image"
	"sync"

	"github.com/user/vidloop/pkg/ports"
)

// SnapshotSink is a mock implementation of ports.SnapshotSink.
type SnapshotSink struct {
	mu sync.RWMutex

	enabled bool

	SaveSnapshotFunc func(index int, img image.Image) error

	Snapshots map[int]image.Image
	Info      []byte
}

// NewSnapshotSink creates a new mock SnapshotSink.
func NewSnapshotSink(enabled bool) *SnapshotSink {
	return &SnapshotSink{
		enabled:   enabled,
		Snapshots: make(map[int]image.Image),
	}
}

func (m *SnapshotSink) Enabled() bool {
	return m.enabled
}

func (m *SnapshotSink) SaveSnapshot(index int, img image.Image) error {
	if m.SaveSnapshotFunc != nil {
		return m.SaveSnapshotFunc(index, img)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Snapshots[index] = img
	return nil
}

func (m *SnapshotSink) SaveInfo(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Info = data
	return nil
}

// Count returns how many snapshots were saved.
func (m *SnapshotSink) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Snapshots)
}

var _ ports.SnapshotSink = (*SnapshotSink)(nil)
