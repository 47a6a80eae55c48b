package mocks

import (
	"image"
	"sync"

	"github.com/user/vidloop/pkg/ports"
)

// Renderer is a mock implementation of ports.Renderer.
// Without overrides it returns blank images of the requested size and records annotations.
type Renderer struct {
	FrameImageFunc  func(f *ports.RawFrame) (image.Image, error)
	ResizeImageFunc func(img image.Image, width, height int) image.Image
	AnnotateFunc    func(img image.Image, text string, style ports.TextStyle) image.Image
	EncodeImageFunc func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error)

	mu        sync.Mutex
	frames    []int64
	annotated []string
}

func (m *Renderer) FrameImage(f *ports.RawFrame) (image.Image, error) {
	m.mu.Lock()
	m.frames = append(m.frames, f.PTS)
	m.mu.Unlock()
	if m.FrameImageFunc != nil {
		return m.FrameImageFunc(f)
	}
	return image.NewGray(image.Rect(0, 0, f.Width, f.Height)), nil
}

func (m *Renderer) ResizeImage(img image.Image, width, height int) image.Image {
	if m.ResizeImageFunc != nil {
		return m.ResizeImageFunc(img, width, height)
	}
	return image.NewRGBA(image.Rect(0, 0, width, height))
}

func (m *Renderer) Annotate(img image.Image, text string, style ports.TextStyle) image.Image {
	m.mu.Lock()
	m.annotated = append(m.annotated, text)
	m.mu.Unlock()
	if m.AnnotateFunc != nil {
		return m.AnnotateFunc(img, text, style)
	}
	return img
}

func (m *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	if m.EncodeImageFunc != nil {
		return m.EncodeImageFunc(img, format, quality)
	}
	return []byte{}, nil
}

// Frames returns the PTS of every frame converted with FrameImage.
func (m *Renderer) Frames() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.frames...)
}

// Annotations returns every label passed to Annotate.
func (m *Renderer) Annotations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.annotated...)
}

var _ ports.Renderer = (*Renderer)(nil)
