package ports

import "context"

// PixelFormat identifies the plane layout of a RawFrame.
type PixelFormat int

const (
	// PixelFormatNone marks a frame that holds no picture yet.
	PixelFormatNone PixelFormat = iota
	// PixelFormatYUV420P is planar Y, U, V with 2x2 chroma subsampling.
	PixelFormatYUV420P
)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatYUV420P:
		return "yuv420p"
	default:
		return "none"
	}
}

// Plane is one pixel plane and its row stride in bytes.
type Plane struct {
	Data   []byte
	Stride int
}

// RawFrame is one decoded picture. Its buffers are reused across frames,
// so a frame handed out on loan must not be retained after the loan ends.
type RawFrame struct {
	PTS    int64
	Width  int
	Height int
	Format PixelFormat
	Planes []Plane

	buf []byte
}

// Alloc lays out planes for a width x height picture of the given format,
// reusing the existing backing buffer when it is large enough.
// The returned slice is the contiguous buffer holding every plane, in order.
func (f *RawFrame) Alloc(format PixelFormat, width, height int) []byte {
	cw, ch := (width+1)/2, (height+1)/2
	size := width*height + 2*cw*ch
	if cap(f.buf) < size {
		f.buf = make([]byte, size)
	}
	f.buf = f.buf[:size]

	f.Format = format
	f.Width = width
	f.Height = height

	y := width * height
	c := cw * ch
	f.Planes = append(f.Planes[:0],
		Plane{Data: f.buf[:y], Stride: width},
		Plane{Data: f.buf[y : y+c], Stride: cw},
		Plane{Data: f.buf[y+c : y+2*c], Stride: cw},
	)
	return f.buf
}

// Reset clears the frame's metadata but keeps its buffers for reuse.
func (f *RawFrame) Reset() {
	f.PTS = 0
}

// FrameSource is the read side of a player, as seen by a renderer.
type FrameSource interface {
	// LoanFrame calls fn with the latest published frame while holding the frame lock.
	// A pending playback error is returned instead, once.
	LoanFrame(fn func(*RawFrame) error) error

	// Size returns the video dimensions fixed at load time.
	Size() (width, height int, err error)
}

// Consumer presents frames from a FrameSource at its own cadence.
type Consumer interface {
	// Run blocks until ctx is done, the consumer is closed by the user,
	// or the source reports an error.
	Run(ctx context.Context, src FrameSource) error
}
