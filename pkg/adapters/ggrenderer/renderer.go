// Package ggrenderer provides a renderer implementation using the gg library.
package ggrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/user/vidloop/pkg/ports"
)

// Renderer implements ports.Renderer using the gg library.
type Renderer struct{}

// New creates a new Renderer.
func New() *Renderer {
	return &Renderer{}
}

// FrameImage copies a yuv420p frame into an image.YCbCr.
func (r *Renderer) FrameImage(f *ports.RawFrame) (image.Image, error) {
	if f.Format != ports.PixelFormatYUV420P || len(f.Planes) != 3 {
		return nil, fmt.Errorf("unsupported pixel format: %s", f.Format)
	}

	img := image.NewYCbCr(image.Rect(0, 0, f.Width, f.Height), image.YCbCrSubsampleRatio420)
	copyPlane(img.Y, img.YStride, f.Planes[0], f.Height)
	chromaRows := (f.Height + 1) / 2
	copyPlane(img.Cb, img.CStride, f.Planes[1], chromaRows)
	copyPlane(img.Cr, img.CStride, f.Planes[2], chromaRows)
	return img, nil
}

func copyPlane(dst []byte, dstStride int, src ports.Plane, rows int) {
	n := src.Stride
	if dstStride < n {
		n = dstStride
	}
	for y := 0; y < rows; y++ {
		copy(dst[y*dstStride:y*dstStride+n], src.Data[y*src.Stride:])
	}
}

// Annotate draws text in a band along the bottom edge of a copy of img.
func (r *Renderer) Annotate(img image.Image, text string, style ports.TextStyle) image.Image {
	dc := gg.NewContextForImage(img)
	if style.FontPath != "" {
		// A missing font keeps gg's built-in face.
		_ = dc.LoadFontFace(style.FontPath, style.FontSize)
	}

	w, h := float64(dc.Width()), float64(dc.Height())
	_, textH := dc.MeasureString(text)
	pad := textH / 2
	band := textH + 2*pad

	if style.Background != nil {
		dc.SetColor(style.Background)
		dc.DrawRectangle(0, h-band, w, band)
		dc.Fill()
	}

	x, ax := pad, 0.0
	switch style.Align {
	case ports.AlignCenter:
		x, ax = w/2, 0.5
	case ports.AlignRight:
		x, ax = w-pad, 1.0
	}

	col := style.Color
	if col == nil {
		col = color.White
	}
	dc.SetColor(col)
	dc.DrawStringAnchored(text, x, h-band/2, ax, 0.5)
	return dc.Image()
}

// EncodeImage encodes an image to the specified format.
func (r *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case ports.FormatJPEG:
		opts := &jpeg.Options{Quality: quality}
		if err := jpeg.Encode(&buf, img, opts); err != nil {
			return nil, fmt.Errorf("encode JPEG: %w", err)
		}
	case ports.FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode PNG: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %d", format)
	}

	return buf.Bytes(), nil
}

// ResizeImage resizes an image to the specified dimensions.
func (r *Renderer) ResizeImage(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// Ensure Renderer implements ports.Renderer
var _ ports.Renderer = (*Renderer)(nil)
