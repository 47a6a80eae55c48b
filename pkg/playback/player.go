// Package playback runs the decode and pace loop for one video source and
// hands the most recent frame to renderers.
//
// A Player owns one decoder session. Start spawns a goroutine that reads
// packets, decodes them, sleeps until each frame is due and publishes it into
// a Mailbox. Renderers call LoanFrame from their own goroutine at their own
// cadence. At end of stream the source is rewound and playback loops.
package playback

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/user/vidloop/pkg/metrics"
	"github.com/user/vidloop/pkg/ports"
)

// State is the lifecycle state of a Player.
type State int

const (
	StateUnloaded State = iota
	StateLoaded
	StateRunning
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options configures a Player. Zero values select defaults.
type Options struct {
	Logger  ports.Logger
	Metrics *metrics.Metrics
	Clock   Clock
}

// Stats is a point-in-time view of playback progress.
type Stats struct {
	SessionID       string
	FramesPublished uint64
	Loops           uint64
	LastPosition    time.Duration
	LastPublishedAt time.Time
}

// Player plays one source in a loop.
type Player struct {
	opener  ports.Opener
	path    string
	logger  ports.Logger
	metrics *metrics.Metrics
	clock   Clock

	// mu serializes lifecycle calls. The decode goroutine never takes it.
	mu        sync.Mutex
	state     State
	sess      ports.Session
	info      ports.StreamInfo
	sessionID string
	cancel    context.CancelFunc
	done      chan struct{}
	closed    bool
	// resume is set when a reload interrupted playback and failed to load.
	// The next successful reload starts playback again.
	resume bool

	failed  atomic.Bool
	loops   atomic.Uint64
	mailbox Mailbox
}

// New creates a Player for the file at path. Nothing is opened until Load or Start.
func New(opener ports.Opener, path string, opts Options) *Player {
	p := &Player{
		opener:  opener,
		path:    path,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		clock:   opts.Clock,
	}
	if p.logger == nil {
		p.logger = discardLogger{}
	}
	if p.clock == nil {
		p.clock = SystemClock()
	}
	return p
}

// Path returns the source path.
func (p *Player) Path() string {
	return p.path
}

// Load opens the source. A session that is already loaded is released first.
// On failure the player is left unloaded and the error has KindLoad.
func (p *Player) Load(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkIdle(); err != nil {
		return err
	}
	return p.load(ctx)
}

// Start loads the source if needed and starts the decode goroutine.
func (p *Player) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkIdle(); err != nil {
		return err
	}
	return p.start(ctx)
}

// Stop asks the decode goroutine to exit and waits for it.
// It does nothing when the player is not running. After a failure, Stop also
// releases the session so the next Start loads the source again.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resume = false
	p.stop()
}

// Reload releases the current session and opens the source again,
// resuming playback if it was running.
//
// If the source cannot be loaded while playback was running, the published
// frame is dropped and the load error is handed to the next LoanFrame. A later
// successful Reload resumes playback.
func (p *Player) Reload(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	wasRunning := p.resume || (p.state == StateRunning && !p.failed.Load())
	p.stop()
	if err := p.load(ctx); err != nil {
		p.resume = wasRunning
		if wasRunning {
			p.mailbox.Reset()
			p.mailbox.SetError(err)
		}
		return err
	}
	p.resume = false
	p.logger.Info("Reloaded %s", p.path)
	if wasRunning {
		return p.start(ctx)
	}
	return nil
}

// Unload stops playback and releases the session. The player can be loaded again.
func (p *Player) Unload() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resume = false
	p.stop()
	return p.release()
}

// Close unloads the player for good.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.resume = false
	p.stop()
	err := p.release()
	p.closed = true
	return err
}

// State returns the current lifecycle state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateRunning && p.failed.Load() {
		return StateFailed
	}
	return p.state
}

// Size returns the video dimensions. It fails with ErrNotLoaded without a session.
func (p *Player) Size() (width, height int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess == nil {
		return 0, 0, ErrNotLoaded
	}
	return p.info.Width, p.info.Height, nil
}

// Info returns the selected video stream of the loaded session.
func (p *Player) Info() (ports.StreamInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess == nil {
		return ports.StreamInfo{}, ErrNotLoaded
	}
	return p.info, nil
}

// LoanFrame calls fn with the latest frame while the frame lock is held.
// If the loop failed, its error is returned instead, exactly once.
// fn is not called before the first frame is published.
// fn must be quick and must not keep references to the frame.
func (p *Player) LoanFrame(fn func(*ports.RawFrame) error) error {
	return p.mailbox.Loan(fn)
}

// Done returns a channel closed when the current decode goroutine exits.
// When the player is not running the channel is already closed.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateRunning {
		return closedChan
	}
	return p.done
}

// Stats returns playback counters.
func (p *Player) Stats() Stats {
	p.mu.Lock()
	id := p.sessionID
	p.mu.Unlock()

	seq, pos, at := p.mailbox.Sequence()
	return Stats{
		SessionID:       id,
		FramesPublished: seq,
		Loops:           p.loops.Load(),
		LastPosition:    pos,
		LastPublishedAt: at,
	}
}

var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

func (p *Player) checkIdle() error {
	if p.closed {
		return ErrClosed
	}
	if p.state == StateRunning {
		if p.failed.Load() {
			return ErrFailed
		}
		return ErrAlreadyRunning
	}
	return nil
}

func (p *Player) load(ctx context.Context) error {
	if err := p.release(); err != nil {
		p.logger.Warn("Failed to release previous session: %v", err)
	}

	sess, err := p.opener.Open(ctx, p.path)
	if err != nil {
		p.metrics.Loaded(false)
		p.logger.Error("Failed to load %s: %v", p.path, err)
		return &Error{Kind: KindLoad, Err: err}
	}
	p.metrics.Loaded(true)

	p.sess = sess
	p.info = sess.Info()
	p.sessionID = uuid.NewString()
	p.state = StateLoaded
	p.failed.Store(false)
	p.loops.Store(0)
	p.mailbox.Reset()

	p.logger.Info("Loaded %s: %s %dx%d, time base %s (session %s)",
		p.path, p.info.Codec, p.info.Width, p.info.Height, p.info.TimeBase, p.sessionID)
	return nil
}

func (p *Player) start(ctx context.Context) error {
	if p.sess == nil {
		if err := p.load(ctx); err != nil {
			return err
		}
	}

	l := &loop{
		sess:    p.sess,
		info:    p.info,
		mailbox: &p.mailbox,
		clock:   p.clock,
		metrics: p.metrics,
		logger:  p.logger,
		loops:   &p.loops,
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.cancel = cancel
	p.done = done
	p.resume = false
	p.failed.Store(false)
	p.state = StateRunning
	p.metrics.SetRunning(true)

	go p.run(loopCtx, l, done)

	p.logger.Info("Playback started")
	return nil
}

func (p *Player) stop() {
	if p.state != StateRunning {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.metrics.SetRunning(false)

	if p.failed.Load() {
		if err := p.release(); err != nil {
			p.logger.Warn("Failed to release session: %v", err)
		}
		p.logger.Info("Playback stopped after failure, session released")
		return
	}
	p.state = StateStopped
	p.logger.Info("Playback stopped")
}

func (p *Player) release() error {
	if p.sess == nil {
		p.state = StateUnloaded
		return nil
	}
	err := p.sess.Close()
	p.sess = nil
	p.info = ports.StreamInfo{}
	p.state = StateUnloaded
	p.logger.Debug("Session %s released", p.sessionID)
	return err
}

// run is the body of the decode goroutine.
func (p *Player) run(ctx context.Context, l *loop, done chan struct{}) {
	defer close(done)

	err := l.run(ctx)
	if err == nil {
		if ferr := l.sess.Flush(); ferr != nil {
			p.logger.Warn("Failed to flush decoder: %v", ferr)
		}
		return
	}

	p.failed.Store(true)
	p.metrics.Failed(KindOf(err).String())
	p.metrics.SetRunning(false)
	p.logger.Error("Playback failed: %v", err)
	p.mailbox.SetError(err)
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...interface{}) {}
func (discardLogger) Info(string, ...interface{})  {}
func (discardLogger) Warn(string, ...interface{})  {}
func (discardLogger) Error(string, ...interface{}) {}

func (d discardLogger) WithComponent(string) ports.Logger { return d }
