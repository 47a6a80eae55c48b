package libav

import (
	"fmt"

	"github.com/asticode/go-astiav"
)

// scaler converts decoded frames of any pixel format to yuv420p at the same size.
// The context and destination frame are recreated when the source geometry changes.
type scaler struct {
	ctx    *astiav.SoftwareScaleContext
	dst    *astiav.Frame
	width  int
	height int
	format astiav.PixelFormat
}

func (s *scaler) ensure(src *astiav.Frame) error {
	w, h, pf := src.Width(), src.Height(), src.PixelFormat()
	if s.ctx != nil && s.width == w && s.height == h && s.format == pf {
		return nil
	}
	s.close()

	ctx, err := astiav.CreateSoftwareScaleContext(w, h, pf, w, h, astiav.PixelFormatYuv420P,
		astiav.NewSoftwareScaleContextFlags())
	if err != nil {
		return fmt.Errorf("create scale context from %s: %w", pf, err)
	}

	dst := astiav.AllocFrame()
	if dst == nil {
		ctx.Free()
		return fmt.Errorf("could not allocate scale frame")
	}
	dst.SetWidth(w)
	dst.SetHeight(h)
	dst.SetPixelFormat(astiav.PixelFormatYuv420P)
	if err := dst.AllocBuffer(1); err != nil {
		dst.Free()
		ctx.Free()
		return fmt.Errorf("alloc scale buffer: %w", err)
	}

	s.ctx, s.dst = ctx, dst
	s.width, s.height, s.format = w, h, pf
	return nil
}

func (s *scaler) toYUV420P(src *astiav.Frame) (*astiav.Frame, error) {
	if err := s.ensure(src); err != nil {
		return nil, err
	}
	if err := s.ctx.ScaleFrame(src, s.dst); err != nil {
		return nil, fmt.Errorf("scale frame: %w", err)
	}
	return s.dst, nil
}

func (s *scaler) close() {
	if s.dst != nil {
		s.dst.Free()
		s.dst = nil
	}
	if s.ctx != nil {
		s.ctx.Free()
		s.ctx = nil
	}
}
