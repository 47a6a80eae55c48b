package ports

import (
	"image"
	"image/color"
)

// Renderer turns loaned frames into still images.
type Renderer interface {
	// FrameImage copies the frame's planes into an image that outlives the loan.
	// It is called while the frame lock is held, so it only copies.
	FrameImage(f *RawFrame) (image.Image, error)

	// ResizeImage resizes an image to the specified dimensions.
	ResizeImage(img image.Image, width, height int) image.Image

	// Annotate draws a text label on a copy of img.
	Annotate(img image.Image, text string, style TextStyle) image.Image

	// EncodeImage encodes an image to the specified format.
	EncodeImage(img image.Image, format ImageFormat, quality int) ([]byte, error)
}

// TextStyle defines text rendering properties.
type TextStyle struct {
	FontSize   float64
	FontPath   string
	Color      color.Color
	Background color.Color
	Align      TextAlign
}

// TextAlign specifies text alignment.
type TextAlign int

const (
	AlignLeft TextAlign = iota
	AlignCenter
	AlignRight
)

// ImageFormat specifies image encoding format.
type ImageFormat int

const (
	FormatJPEG ImageFormat = iota
	FormatPNG
)

// Extension returns the file extension for the format, without the dot.
func (f ImageFormat) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return "png"
}
