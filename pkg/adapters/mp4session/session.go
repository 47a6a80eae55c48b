// Package mp4session builds decoder sessions from the pure-Go MP4 demuxer and
// an elementary stream decoder chosen per codec.
package mp4session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/asticode/go-astikit"

	"github.com/user/vidloop/pkg/adapters/mp4demux"
	"github.com/user/vidloop/pkg/ports"
)

// DecoderFactory creates the decoder for a video track.
type DecoderFactory func(track mp4demux.Track) (ports.ElementaryDecoder, error)

// Opener opens MP4 files read through a FileSystem.
type Opener struct {
	fs         ports.FileSystem
	newDecoder DecoderFactory
	logger     ports.Logger
}

// New creates an Opener.
func New(fs ports.FileSystem, newDecoder DecoderFactory, logger ports.Logger) *Opener {
	return &Opener{fs: fs, newDecoder: newDecoder, logger: logger}
}

// Open reads and indexes path, then creates a decoder for its first video track.
func (o *Opener) Open(ctx context.Context, path string) (ports.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := o.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}

	demux, err := mp4demux.Parse(data)
	if err != nil {
		return nil, err
	}

	track := demux.Video()
	if !track.Codec.Decodable() {
		return nil, fmt.Errorf("%w: %s", ports.ErrUnsupportedCodec, track.Codec)
	}

	dec, err := o.newDecoder(track)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrCodecOpen, err)
	}

	c := astikit.NewCloser()
	c.Add(func() {
		if err := dec.Close(); err != nil && o.logger != nil {
			o.logger.Warn("Failed to close decoder: %v", err)
		}
	})

	if o.logger != nil {
		o.logger.Debug("Indexed %s: %d samples in %d tracks", path, demux.Len(), len(demux.Tracks()))
	}

	return &session{
		closer: c,
		demux:  demux,
		dec:    dec,
		info: ports.StreamInfo{
			Index:    track.Index,
			Width:    track.Width,
			Height:   track.Height,
			TimeBase: ports.Rational{Num: 1, Den: int(track.Timescale)},
			Codec:    string(track.Codec),
			Backend:  "mp4",
		},
	}, nil
}

type session struct {
	closer *astikit.Closer
	closed bool
	demux  *mp4demux.Demuxer
	dec    ports.ElementaryDecoder
	info   ports.StreamInfo
	pkt    packet
}

func (s *session) Info() ports.StreamInfo {
	return s.info
}

func (s *session) ReadPacket() (ports.Packet, error) {
	sample, err := s.demux.Next()
	if errors.Is(err, io.EOF) {
		return nil, ports.ErrEndOfStream
	}
	if err != nil {
		return nil, err
	}
	s.pkt = packet{owner: s, sample: sample}
	return &s.pkt, nil
}

func (s *session) SendPacket(pkt ports.Packet) error {
	p, ok := pkt.(*packet)
	if !ok || p.owner != s {
		return fmt.Errorf("mp4session: packet %T does not belong to this session", pkt)
	}
	return s.dec.Send(p.sample.Data, p.sample.PTS)
}

func (s *session) ReceiveFrame(dst *ports.RawFrame) error {
	return s.dec.Receive(dst)
}

func (s *session) Rewind() error {
	s.demux.Rewind()
	return nil
}

func (s *session) Flush() error {
	return s.dec.Reset()
}

func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.closer.Close()
}

type packet struct {
	owner  *session
	sample mp4demux.Sample
}

func (p *packet) StreamIndex() int { return p.sample.TrackIndex }
func (p *packet) PTS() int64       { return p.sample.PTS }
func (p *packet) Release()         { p.sample.Data = nil }

var _ ports.Opener = (*Opener)(nil)
