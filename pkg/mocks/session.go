package mocks

import (
	"context"
	"sync"

	"github.com/user/vidloop/pkg/ports"
)

// ScriptedPacket is one packet returned by a mock Session.
type ScriptedPacket struct {
	Stream int
	PTS    int64
	// Frames are the timestamps of the frames the decoder outputs once this packet is sent.
	Frames []int64
}

// VideoPackets returns one packet on stream 0 per timestamp, each decoding to one frame.
func VideoPackets(pts ...int64) []ScriptedPacket {
	packets := make([]ScriptedPacket, len(pts))
	for i, ts := range pts {
		packets[i] = ScriptedPacket{Stream: 0, PTS: ts, Frames: []int64{ts}}
	}
	return packets
}

// Session is a mock implementation of ports.Session that replays a script.
// Decoded frames are YUV 4:2:0 with every byte set to the low byte of the PTS.
type Session struct {
	StreamInfo ports.StreamInfo
	Packets    []ScriptedPacket

	ReadPacketFunc   func() (ports.Packet, error)
	SendPacketFunc   func(pkt ports.Packet) error
	ReceiveFrameFunc func(dst *ports.RawFrame) error
	RewindFunc       func() error
	FlushFunc        func() error
	CloseFunc        func() error

	mu       sync.Mutex
	pos      int
	queue    []int64
	inRead   int
	overlap  bool
	reads    int
	sends    []int64
	releases int
	rewinds  int
	flushes  int
	closes   int
}

// Packet is the packet type handed out by Session.
type Packet struct {
	Stream int
	Pts    int64
	Frames []int64

	session *Session
}

func (p *Packet) StreamIndex() int { return p.Stream }
func (p *Packet) PTS() int64       { return p.Pts }

func (p *Packet) Release() {
	if p.session == nil {
		return
	}
	p.session.mu.Lock()
	p.session.releases++
	p.session.mu.Unlock()
}

func (m *Session) Info() ports.StreamInfo {
	return m.StreamInfo
}

func (m *Session) ReadPacket() (ports.Packet, error) {
	m.mu.Lock()
	m.reads++
	m.inRead++
	if m.inRead > 1 {
		m.overlap = true
	}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.inRead--
		m.mu.Unlock()
	}()

	if m.ReadPacketFunc != nil {
		return m.ReadPacketFunc()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos >= len(m.Packets) {
		return nil, ports.ErrEndOfStream
	}
	sp := m.Packets[m.pos]
	m.pos++
	return &Packet{Stream: sp.Stream, Pts: sp.PTS, Frames: sp.Frames, session: m}, nil
}

// NewPacket returns a packet bound to this session, for use in ReadPacketFunc.
func (m *Session) NewPacket(stream int, pts int64, frames ...int64) *Packet {
	return &Packet{Stream: stream, Pts: pts, Frames: frames, session: m}
}

func (m *Session) SendPacket(pkt ports.Packet) error {
	m.mu.Lock()
	m.sends = append(m.sends, pkt.PTS())
	m.mu.Unlock()

	if m.SendPacketFunc != nil {
		return m.SendPacketFunc(pkt)
	}
	if p, ok := pkt.(*Packet); ok {
		m.mu.Lock()
		m.queue = append(m.queue, p.Frames...)
		m.mu.Unlock()
	}
	return nil
}

func (m *Session) ReceiveFrame(dst *ports.RawFrame) error {
	if m.ReceiveFrameFunc != nil {
		return m.ReceiveFrameFunc(dst)
	}

	m.mu.Lock()
	if len(m.queue) == 0 {
		m.mu.Unlock()
		return ports.ErrNeedMoreInput
	}
	pts := m.queue[0]
	m.queue = m.queue[1:]
	m.mu.Unlock()

	FillFrame(dst, m.StreamInfo.Width, m.StreamInfo.Height, pts)
	return nil
}

func (m *Session) Rewind() error {
	m.mu.Lock()
	m.rewinds++
	m.pos = 0
	m.mu.Unlock()
	if m.RewindFunc != nil {
		return m.RewindFunc()
	}
	return nil
}

func (m *Session) Flush() error {
	m.mu.Lock()
	m.flushes++
	m.queue = nil
	m.mu.Unlock()
	if m.FlushFunc != nil {
		return m.FlushFunc()
	}
	return nil
}

func (m *Session) Close() error {
	m.mu.Lock()
	m.closes++
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Reads returns how many times ReadPacket was called.
func (m *Session) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Sent returns the PTS of every packet passed to SendPacket.
func (m *Session) Sent() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.sends...)
}

// Releases returns how many packets were released.
func (m *Session) Releases() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releases
}

func (m *Session) Rewinds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rewinds
}

func (m *Session) Flushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushes
}

func (m *Session) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// Overlapped reports whether ReadPacket was ever entered by two goroutines at once.
func (m *Session) Overlapped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overlap
}

// FillFrame lays out dst as a width x height YUV 4:2:0 frame with every byte set to byte(pts).
func FillFrame(dst *ports.RawFrame, width, height int, pts int64) {
	buf := dst.Alloc(ports.PixelFormatYUV420P, width, height)
	for i := range buf {
		buf[i] = byte(pts)
	}
	dst.PTS = pts
}

// Opener is a mock implementation of ports.Opener.
// By default every Open returns a fresh Session built by NewSession.
type Opener struct {
	OpenFunc   func(ctx context.Context, path string) (ports.Session, error)
	NewSession func() *Session
	Err        error

	mu       sync.Mutex
	paths    []string
	sessions []*Session
}

func (m *Opener) Open(ctx context.Context, path string) (ports.Session, error) {
	m.mu.Lock()
	m.paths = append(m.paths, path)
	m.mu.Unlock()

	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, path)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	var s *Session
	if m.NewSession != nil {
		s = m.NewSession()
	} else {
		s = &Session{}
	}
	m.mu.Lock()
	m.sessions = append(m.sessions, s)
	m.mu.Unlock()
	return s, nil
}

// Attempts returns how many times Open was called.
func (m *Opener) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.paths)
}

// Sessions returns the sessions handed out so far.
func (m *Opener) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Session(nil), m.sessions...)
}

// Opened returns how many sessions were handed out.
func (m *Opener) Opened() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Closed returns the total number of Close calls across handed-out sessions.
func (m *Opener) Closed() int {
	total := 0
	for _, s := range m.Sessions() {
		total += s.Closes()
	}
	return total
}

// Ensure the mocks implement their interfaces
var (
	_ ports.Session = (*Session)(nil)
	_ ports.Opener  = (*Opener)(nil)
	_ ports.Packet  = (*Packet)(nil)
)
