// Package h264decoder decodes H.264 Annex B samples with a long-running ffmpeg process.
//
// Samples are streamed to ffmpeg's stdin and decoded pictures are read back from
// its stdout as raw yuv420p frames of a fixed size. ffmpeg emits pictures in
// presentation order, so each picture takes the smallest timestamp still pending.
package h264decoder

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/user/vidloop/pkg/ports"
)

var (
	// ErrNotInitialized is returned when the decoder is used after Close.
	ErrNotInitialized = errors.New("h264decoder: decoder closed")

	// ErrDecodeFailed is returned when the ffmpeg process exits or misbehaves.
	ErrDecodeFailed = errors.New("h264decoder: decode failed")

	// ErrDecodeTimeout is returned when ffmpeg holds more samples than its latency allows.
	ErrDecodeTimeout = errors.New("h264decoder: timed out waiting for a picture")

	// ErrFFmpegNotFound is returned when no ffmpeg binary can be located.
	ErrFFmpegNotFound = errors.New("h264decoder: ffmpeg not found in PATH")

	// ErrInvalidSize is returned for a non-positive output size.
	ErrInvalidSize = errors.New("h264decoder: invalid picture size")
)

// Options configures a Decoder.
type Options struct {
	// FFmpegPath overrides the ffmpeg lookup.
	FFmpegPath string
	// Width and Height are the output picture size; ffmpeg scales to it.
	Width  int
	Height int
	// Threads is passed to ffmpeg's decoder. Defaults to 1.
	Threads int
	// Latency is how many samples may be in flight before Receive blocks. Defaults to 16.
	Latency int
	// Timeout bounds a blocking Receive. Defaults to 5s.
	Timeout time.Duration
	Logger  ports.Logger
}

// Decoder implements ports.ElementaryDecoder for H.264.
type Decoder struct {
	opts      Options
	frameSize int

	mu      sync.Mutex
	proc    *process
	pending []int64
	sent    int
	emitted int
	closed  bool
}

// New creates a decoder. The ffmpeg process starts on the first Send.
func New(opts Options) (*Decoder, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, opts.Width, opts.Height)
	}
	if opts.Threads <= 0 {
		opts.Threads = 1
	}
	if opts.Latency <= 0 {
		opts.Latency = 16
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if _, err := FindFFmpeg(opts.FFmpegPath); err != nil {
		return nil, err
	}

	var f ports.RawFrame
	return &Decoder{
		opts:      opts,
		frameSize: len(f.Alloc(ports.PixelFormatYUV420P, opts.Width, opts.Height)),
	}, nil
}

// Send writes one Annex B sample to ffmpeg.
func (d *Decoder) Send(data []byte, pts int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrNotInitialized
	}
	if d.proc == nil {
		p, err := startProcess(d.opts, d.frameSize)
		if err != nil {
			return err
		}
		d.proc = p
	}
	if err := d.proc.write(data); err != nil {
		return err
	}
	d.pushPTS(pts)
	d.sent++
	return nil
}

// Receive copies the next decoded picture into dst.
func (d *Decoder) Receive(dst *ports.RawFrame) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrNotInitialized
	}
	if d.proc == nil {
		return ports.ErrNeedMoreInput
	}

	var timeout <-chan time.Time
	for {
		// Checked before pop: once done is closed every picture has been queued.
		exited := d.proc.exited()
		if pic, ok := d.proc.pop(); ok {
			copy(dst.Alloc(ports.PixelFormatYUV420P, d.opts.Width, d.opts.Height), pic)
			dst.PTS = d.popPTS()
			d.emitted++
			return nil
		}
		if err := d.proc.failure(); err != nil {
			return err
		}
		if exited {
			return fmt.Errorf("%w: ffmpeg exited with %d samples in flight", ErrDecodeFailed, d.sent-d.emitted)
		}
		if d.sent-d.emitted <= d.opts.Latency {
			return ports.ErrNeedMoreInput
		}

		if timeout == nil {
			timeout = time.After(d.opts.Timeout)
		}
		select {
		case <-d.proc.ready:
		case <-d.proc.done:
		case <-timeout:
			return fmt.Errorf("%w: %d samples in flight", ErrDecodeTimeout, d.sent-d.emitted)
		}
	}
}

// Reset stops ffmpeg and drops everything it was holding.
func (d *Decoder) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reset()
}

// Close stops ffmpeg. The decoder cannot be used afterwards.
func (d *Decoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.reset()
}

func (d *Decoder) reset() error {
	var err error
	if d.proc != nil {
		err = d.proc.stop()
		d.proc = nil
	}
	d.pending = d.pending[:0]
	d.sent, d.emitted = 0, 0
	return err
}

// pushPTS keeps pending timestamps sorted.
func (d *Decoder) pushPTS(pts int64) {
	i := sort.Search(len(d.pending), func(i int) bool { return d.pending[i] > pts })
	d.pending = append(d.pending, 0)
	copy(d.pending[i+1:], d.pending[i:])
	d.pending[i] = pts
}

func (d *Decoder) popPTS() int64 {
	if len(d.pending) == 0 {
		return 0
	}
	pts := d.pending[0]
	d.pending = d.pending[1:]
	return pts
}

var _ ports.ElementaryDecoder = (*Decoder)(nil)
