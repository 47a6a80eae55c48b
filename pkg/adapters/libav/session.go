// Package libav opens media files with the FFmpeg libraries through go-astiav.
//
// Every native handle a session acquires is registered on an astikit.Closer as
// soon as it exists, so a failed Open releases exactly what it acquired and a
// successful session releases everything on Close.
package libav

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"

	"github.com/user/vidloop/pkg/ports"
)

// Options configures the libav backend.
type Options struct {
	Logger ports.Logger
	// Threads is the decoder thread count. Zero lets FFmpeg decide.
	Threads int
	// DecoderOptions are passed to avcodec_open2, e.g. {"skip_loop_filter": "all"}.
	DecoderOptions map[string]string
	// LibraryLogLevel is the FFmpeg log level. Defaults to errors only.
	LibraryLogLevel astiav.LogLevel
}

// Opener opens files through libavformat and libavcodec.
type Opener struct {
	opts   Options
	logger ports.Logger
}

// New creates an Opener and sets the FFmpeg library log level.
func New(opts Options) *Opener {
	if opts.LibraryLogLevel == 0 {
		opts.LibraryLogLevel = astiav.LogLevelError
	}
	astiav.SetLogLevel(opts.LibraryLogLevel)
	return &Opener{opts: opts, logger: opts.Logger}
}

// Open opens path, selects its first video stream and opens a decoder for it.
func (o *Opener) Open(ctx context.Context, path string) (_ ports.Session, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := astikit.NewCloser()
	defer func() {
		if err != nil {
			if cerr := c.Close(); cerr != nil && o.logger != nil {
				o.logger.Warn("Failed to release session: %v", cerr)
			}
		}
	}()

	s := &session{closer: c, threads: o.opts.Threads, decoderOptions: o.opts.DecoderOptions}

	if s.input = astiav.AllocFormatContext(); s.input == nil {
		return nil, fmt.Errorf("%w for format context", ports.ErrAlloc)
	}
	c.Add(s.input.Free)

	if err := s.input.OpenInput(path, nil, nil); err != nil {
		return nil, fmt.Errorf("could not open file: %s: %w", path, err)
	}
	c.Add(s.input.CloseInput)

	if err := s.input.FindStreamInfo(nil); err != nil {
		return nil, fmt.Errorf("could not get stream info: %w", err)
	}

	for _, st := range s.input.Streams() {
		if st.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			s.stream = st
			break
		}
	}
	if s.stream == nil {
		return nil, ports.ErrVideoStreamNotFound
	}

	params := s.stream.CodecParameters()
	if s.codec = astiav.FindDecoder(params.CodecID()); s.codec == nil {
		return nil, fmt.Errorf("%w: %s", ports.ErrUnsupportedCodec, params.CodecID())
	}

	if err := s.openDecoder(); err != nil {
		return nil, err
	}
	c.Add(s.freeDecoder)

	if s.packet = astiav.AllocPacket(); s.packet == nil {
		return nil, fmt.Errorf("%w for packet", ports.ErrAlloc)
	}
	c.Add(s.packet.Free)
	s.pkt = &packet{p: s.packet}

	if s.frame = astiav.AllocFrame(); s.frame == nil {
		return nil, fmt.Errorf("%w for frame", ports.ErrAlloc)
	}
	c.Add(s.frame.Free)
	c.Add(s.scaler.close)

	tb := s.stream.TimeBase()
	s.info = ports.StreamInfo{
		Index:    s.stream.Index(),
		Width:    params.Width(),
		Height:   params.Height(),
		TimeBase: ports.Rational{Num: tb.Num(), Den: tb.Den()},
		Codec:    s.codec.Name(),
		Backend:  "libav",
	}
	if o.logger != nil {
		o.logger.Debug("Opened %s with %s decoder", path, s.codec.Name())
	}
	return s, nil
}

// session is one open file. It is used by a single goroutine.
type session struct {
	closer         *astikit.Closer
	closed         bool
	threads        int
	decoderOptions map[string]string

	input   *astiav.FormatContext
	stream  *astiav.Stream
	codec   *astiav.Codec
	decoder *astiav.CodecContext
	packet  *astiav.Packet
	pkt     *packet
	frame   *astiav.Frame
	scaler  scaler
	info    ports.StreamInfo
	lastPTS int64
}

func (s *session) openDecoder() error {
	cc := astiav.AllocCodecContext(s.codec)
	if cc == nil {
		return fmt.Errorf("%w for codec context", ports.ErrAlloc)
	}
	if err := s.stream.CodecParameters().ToCodecContext(cc); err != nil {
		cc.Free()
		return fmt.Errorf("failed to copy codec params to codec context: %w", err)
	}
	if s.threads > 0 {
		cc.SetThreadCount(s.threads)
	}

	var dict *astiav.Dictionary
	if len(s.decoderOptions) > 0 {
		dict = astiav.NewDictionary()
		defer dict.Free()
		for k, v := range s.decoderOptions {
			if err := dict.Set(k, v, 0); err != nil {
				cc.Free()
				return fmt.Errorf("decoder option %s: %w", k, err)
			}
		}
	}

	if err := cc.Open(s.codec, dict); err != nil {
		cc.Free()
		return fmt.Errorf("%w through avcodec_open2: %v", ports.ErrCodecOpen, err)
	}
	s.decoder = cc
	return nil
}

func (s *session) freeDecoder() {
	if s.decoder != nil {
		s.decoder.Free()
		s.decoder = nil
	}
}

func (s *session) Info() ports.StreamInfo {
	return s.info
}

func (s *session) ReadPacket() (ports.Packet, error) {
	if err := s.input.ReadFrame(s.packet); err != nil {
		if errors.Is(err, astiav.ErrEof) || errors.Is(err, io.EOF) {
			return nil, ports.ErrEndOfStream
		}
		return nil, err
	}
	return s.pkt, nil
}

func (s *session) SendPacket(pkt ports.Packet) error {
	p, ok := pkt.(*packet)
	if !ok || p != s.pkt {
		return fmt.Errorf("libav: packet %T does not belong to this session", pkt)
	}
	return s.decoder.SendPacket(p.p)
}

func (s *session) ReceiveFrame(dst *ports.RawFrame) error {
	if err := s.decoder.ReceiveFrame(s.frame); err != nil {
		if errors.Is(err, astiav.ErrEagain) {
			return ports.ErrNeedMoreInput
		}
		if errors.Is(err, astiav.ErrEof) {
			return ports.ErrEndOfStream
		}
		return err
	}
	defer s.frame.Unref()

	src := s.frame
	if src.PixelFormat() != astiav.PixelFormatYuv420P {
		scaled, err := s.scaler.toYUV420P(src)
		if err != nil {
			return err
		}
		src = scaled
	}

	buf := dst.Alloc(ports.PixelFormatYUV420P, src.Width(), src.Height())
	n, err := src.ImageBufferSize(1)
	if err != nil {
		return fmt.Errorf("image buffer size: %w", err)
	}
	if n != len(buf) {
		return fmt.Errorf("libav: unexpected yuv420p buffer size %d for %dx%d", n, src.Width(), src.Height())
	}
	if _, err := src.ImageCopyToBuffer(buf, 1); err != nil {
		return fmt.Errorf("copy frame: %w", err)
	}

	pts := s.frame.Pts()
	if pts == astiav.NoPtsValue {
		pts = s.lastPTS
	}
	s.lastPTS = pts
	dst.PTS = pts
	return nil
}

// Rewind seeks the video stream back to its first keyframe.
func (s *session) Rewind() error {
	flags := astiav.NewSeekFlags(astiav.SeekFlagBackward)
	if err := s.input.SeekFrame(s.info.Index, 0, flags); err != nil {
		return fmt.Errorf("seek to start: %w", err)
	}
	s.lastPTS = 0
	return nil
}

// Flush drops buffered reference frames by reopening the decoder.
func (s *session) Flush() error {
	s.freeDecoder()
	return s.openDecoder()
}

func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.closer.Close()
}

type packet struct {
	p *astiav.Packet
}

func (p *packet) StreamIndex() int { return p.p.StreamIndex() }
func (p *packet) PTS() int64       { return p.p.Pts() }
func (p *packet) Release()         { p.p.Unref() }

var _ ports.Opener = (*Opener)(nil)
