// Package av1decoder provides an AV1 video decoder using libaom.
package av1decoder

/*
#cgo pkg-config: aom
#include <aom/aom_decoder.h>
#include <aom/aomdx.h>
#include <stdlib.h>
#include <string.h>

static aom_codec_iface_t* get_av1_decoder_interface() {
    return aom_codec_av1_dx();
}

static aom_codec_err_t init_decoder(aom_codec_ctx_t *ctx, aom_codec_iface_t *iface) {
    return aom_codec_dec_init(ctx, iface, NULL, 0);
}

static unsigned char* get_plane(aom_image_t *img, int plane) {
    return img->planes[plane];
}

static int get_stride(aom_image_t *img, int plane) {
    return img->stride[plane];
}

static unsigned int get_width(aom_image_t *img) {
    return img->d_w;
}

static unsigned int get_height(aom_image_t *img) {
    return img->d_h;
}

static int is_i420(aom_image_t *img) {
    return img->fmt == AOM_IMG_FMT_I420;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/user/vidloop/pkg/ports"
)

var (
	// ErrNotInitialized is returned when the decoder is used after Close.
	ErrNotInitialized = errors.New("av1decoder: decoder not initialized")

	// ErrUnsupportedFormat is returned for pictures that are not 8-bit 4:2:0.
	ErrUnsupportedFormat = errors.New("av1decoder: unsupported picture format")
)

type picture struct {
	pts    int64
	width  int
	height int
	data   []byte
}

// Decoder implements ports.ElementaryDecoder for AV1 using libaom.
type Decoder struct {
	codec  *C.aom_codec_ctx_t
	queue  []picture
	closed bool
}

// New creates and initializes an AV1 decoder.
func New() (*Decoder, error) {
	d := &Decoder{}
	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Decoder) init() error {
	d.codec = (*C.aom_codec_ctx_t)(C.malloc(C.sizeof_aom_codec_ctx_t))
	if d.codec == nil {
		return fmt.Errorf("failed to allocate decoder context")
	}
	C.memset(unsafe.Pointer(d.codec), 0, C.sizeof_aom_codec_ctx_t)

	iface := C.get_av1_decoder_interface()
	if res := C.init_decoder(d.codec, iface); res != C.AOM_CODEC_OK {
		C.free(unsafe.Pointer(d.codec))
		d.codec = nil
		return fmt.Errorf("failed to initialize decoder: %d", res)
	}
	return nil
}

func (d *Decoder) destroy() {
	if d.codec != nil {
		C.aom_codec_destroy(d.codec)
		C.free(unsafe.Pointer(d.codec))
		d.codec = nil
	}
}

// Send decodes one temporal unit and queues every picture it shows.
func (d *Decoder) Send(data []byte, pts int64) error {
	if d.codec == nil {
		return ErrNotInitialized
	}
	if len(data) == 0 {
		return fmt.Errorf("empty frame data")
	}

	res := C.aom_codec_decode(
		d.codec,
		(*C.uint8_t)(unsafe.Pointer(&data[0])),
		C.size_t(len(data)),
		nil,
	)
	if res != C.AOM_CODEC_OK {
		return fmt.Errorf("decode failed: %d", res)
	}

	var iter C.aom_codec_iter_t
	for img := C.aom_codec_get_frame(d.codec, &iter); img != nil; img = C.aom_codec_get_frame(d.codec, &iter) {
		pic, err := copyPicture(img)
		if err != nil {
			return err
		}
		pic.pts = pts
		d.queue = append(d.queue, pic)
	}
	return nil
}

// Receive writes the oldest queued picture into dst.
func (d *Decoder) Receive(dst *ports.RawFrame) error {
	if d.codec == nil {
		return ErrNotInitialized
	}
	if len(d.queue) == 0 {
		return ports.ErrNeedMoreInput
	}
	pic := d.queue[0]
	d.queue = d.queue[1:]

	copy(dst.Alloc(ports.PixelFormatYUV420P, pic.width, pic.height), pic.data)
	dst.PTS = pic.pts
	return nil
}

// Reset drops queued pictures and reinitializes libaom.
func (d *Decoder) Reset() error {
	if d.closed {
		return ErrNotInitialized
	}
	d.queue = nil
	d.destroy()
	return d.init()
}

// Close releases decoder resources.
func (d *Decoder) Close() error {
	d.closed = true
	d.queue = nil
	d.destroy()
	return nil
}

// copyPicture packs the visible area of an I420 image into a contiguous buffer.
func copyPicture(img *C.aom_image_t) (picture, error) {
	if C.is_i420(img) == 0 {
		return picture{}, ErrUnsupportedFormat
	}

	width := int(C.get_width(img))
	height := int(C.get_height(img))
	var f ports.RawFrame
	buf := f.Alloc(ports.PixelFormatYUV420P, width, height)

	for i, plane := range f.Planes {
		rows := height
		if i > 0 {
			rows = (height + 1) / 2
		}
		src := C.get_plane(img, C.int(i))
		stride := int(C.get_stride(img, C.int(i)))
		for y := 0; y < rows; y++ {
			row := unsafe.Slice((*byte)(unsafe.Add(unsafe.Pointer(src), y*stride)), plane.Stride)
			copy(plane.Data[y*plane.Stride:], row)
		}
	}
	return picture{width: width, height: height, data: buf}, nil
}

var _ ports.ElementaryDecoder = (*Decoder)(nil)
