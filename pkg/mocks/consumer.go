package mocks

import (
	"context"
	"sync"

	"github.com/user/vidloop/pkg/ports"
)

// FrameSource is a mock implementation of ports.FrameSource.
// LoanFrame hands out Frame when set; a queued error is returned once instead.
type FrameSource struct {
	Width, Height int
	SizeErr       error
	StreamInfo    *ports.StreamInfo

	mu    sync.Mutex
	frame *ports.RawFrame
	err   error
	loans int
}

// SetFrame replaces the frame handed out by LoanFrame. Nil means nothing published yet.
func (m *FrameSource) SetFrame(f *ports.RawFrame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frame = f
}

// SetError queues an error for the next LoanFrame.
func (m *FrameSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *FrameSource) LoanFrame(fn func(*ports.RawFrame) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loans++
	if err := m.err; err != nil {
		m.err = nil
		return err
	}
	if m.frame == nil {
		return nil
	}
	return fn(m.frame)
}

func (m *FrameSource) Size() (int, int, error) {
	if m.SizeErr != nil {
		return 0, 0, m.SizeErr
	}
	return m.Width, m.Height, nil
}

// Info is only useful to consumers when StreamInfo is set.
func (m *FrameSource) Info() (ports.StreamInfo, error) {
	if m.StreamInfo == nil {
		return ports.StreamInfo{}, m.SizeErr
	}
	return *m.StreamInfo, nil
}

// Loans returns how many times LoanFrame was called.
func (m *FrameSource) Loans() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loans
}

// Consumer is a mock implementation of ports.Consumer.
// Without RunFunc it blocks until ctx is done.
type Consumer struct {
	RunFunc func(ctx context.Context, src ports.FrameSource) error

	mu   sync.Mutex
	runs int
}

func (m *Consumer) Run(ctx context.Context, src ports.FrameSource) error {
	m.mu.Lock()
	m.runs++
	m.mu.Unlock()
	if m.RunFunc != nil {
		return m.RunFunc(ctx, src)
	}
	<-ctx.Done()
	return nil
}

// Runs returns how many times Run was called.
func (m *Consumer) Runs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs
}

var (
	_ ports.FrameSource = (*FrameSource)(nil)
	_ ports.Consumer    = (*Consumer)(nil)
)
