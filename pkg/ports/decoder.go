package ports

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"
)

var (
	// ErrEndOfStream is returned by Session.ReadPacket when the source is exhausted,
	// and by Session.ReceiveFrame when the decoder has been fully drained.
	ErrEndOfStream = errors.New("end of stream")

	// ErrNeedMoreInput is returned by Session.ReceiveFrame when the decoder
	// needs another packet before it can output a frame.
	ErrNeedMoreInput = errors.New("decoder needs more input")

	// ErrVideoStreamNotFound is returned when the source has no video stream.
	ErrVideoStreamNotFound = errors.New("video stream not found")

	// ErrUnsupportedCodec is returned when no decoder exists for the video stream.
	ErrUnsupportedCodec = errors.New("unsupported codec")

	// ErrCodecOpen is returned when the decoder could not be opened.
	ErrCodecOpen = errors.New("failed to open codec")

	// ErrAlloc is returned when a decoding resource could not be allocated.
	ErrAlloc = errors.New("could not allocate memory")
)

// Rational is a time base expressed as Num/Den seconds per tick.
type Rational struct {
	Num int
	Den int
}

// Duration converts a timestamp in this time base to a time.Duration.
// Products that would overflow int64 are computed with math/big, and results
// beyond the range of time.Duration saturate.
func (r Rational) Duration(ts int64) time.Duration {
	if r.Den == 0 {
		return 0
	}
	num, den := int64(r.Num), int64(r.Den)
	if num != 0 && (ts > math.MaxInt64/abs(num) || ts < -math.MaxInt64/abs(num)) {
		return bigDuration(ts, num, den)
	}
	ticks := ts * num
	q := ticks / den
	if q > math.MaxInt64/int64(time.Second) || q < -math.MaxInt64/int64(time.Second) {
		return bigDuration(ts, num, den)
	}
	rem := ticks % den
	return time.Duration(q)*time.Second + time.Duration(rem*int64(time.Second)/den)
}

func bigDuration(ts, num, den int64) time.Duration {
	ns := new(big.Int).Mul(big.NewInt(ts), big.NewInt(num))
	ns.Mul(ns, big.NewInt(int64(time.Second)))
	ns.Quo(ns, big.NewInt(den))
	if ns.IsInt64() {
		return time.Duration(ns.Int64())
	}
	if ns.Sign() > 0 {
		return math.MaxInt64
	}
	return math.MinInt64
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// StreamInfo describes the selected video stream of an open session.
type StreamInfo struct {
	Index    int
	Width    int
	Height   int
	TimeBase Rational
	Codec    string
	Backend  string
}

// Packet is one demuxed compressed unit. It is only valid until Release.
type Packet interface {
	StreamIndex() int
	PTS() int64
	// Release returns the packet's storage to the session.
	Release()
}

// Session is one open media source with its demuxer and decoder.
// A Session is owned by a single goroutine and is not safe for concurrent use.
type Session interface {
	// Info returns the selected video stream. It is fixed for the session's lifetime.
	Info() StreamInfo

	// ReadPacket reads the next compressed unit, from any stream.
	// Returns ErrEndOfStream when the source is exhausted.
	ReadPacket() (Packet, error)

	// SendPacket submits a packet of the video stream to the decoder.
	SendPacket(pkt Packet) error

	// ReceiveFrame decodes the next frame into dst, reusing dst's buffers.
	// Returns ErrNeedMoreInput when another packet is needed.
	ReceiveFrame(dst *RawFrame) error

	// Rewind seeks the source back to its beginning.
	Rewind() error

	// Flush drops any decoder state carried across a rewind.
	Flush() error

	// Close releases every resource held by the session.
	Close() error
}

// Opener acquires decoder sessions.
type Opener interface {
	// Open opens path and selects its video stream.
	// On failure nothing acquired during the attempt stays allocated.
	Open(ctx context.Context, path string) (Session, error)
}

// ElementaryDecoder decodes the samples of one compressed video track.
// It is the codec half of a Session whose container is parsed separately.
type ElementaryDecoder interface {
	// Send submits one sample in the decoder's bitstream format.
	Send(data []byte, pts int64) error

	// Receive writes the next decoded picture into dst.
	// Returns ErrNeedMoreInput when no picture is ready yet.
	Receive(dst *RawFrame) error

	// Reset discards buffered pictures and reference state.
	Reset() error

	Close() error
}
