// Package smartsession selects the decoding backend for a source and returns
// a ports.Opener that uses it.
package smartsession

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/user/vidloop/pkg/adapters/av1decoder"
	"github.com/user/vidloop/pkg/adapters/codecdetect"
	"github.com/user/vidloop/pkg/adapters/h264decoder"
	"github.com/user/vidloop/pkg/adapters/libav"
	"github.com/user/vidloop/pkg/adapters/mp4demux"
	"github.com/user/vidloop/pkg/adapters/mp4session"
	"github.com/user/vidloop/pkg/adapters/osfilesystem"
	"github.com/user/vidloop/pkg/ports"
)

// Backend names a decoding backend.
type Backend string

const (
	// BackendLibav decodes through the FFmpeg libraries.
	BackendLibav Backend = "libav"
	// BackendMP4 demuxes MP4 in Go and decodes H.264 with ffmpeg or AV1 with libaom.
	BackendMP4 Backend = "mp4"
	// BackendAuto uses BackendMP4 for MP4 files it can decode and BackendLibav otherwise.
	BackendAuto Backend = "auto"
)

// ErrUnknownBackend is returned for a backend name that is not recognised.
var ErrUnknownBackend = errors.New("smartsession: unknown backend")

// ParseBackend validates a backend name.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(s)); b {
	case BackendLibav, BackendMP4, BackendAuto:
		return b, nil
	case "":
		return BackendAuto, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
	}
}

// Options configures the selected backends.
type Options struct {
	Backend Backend
	// FFmpegPath is an optional custom path to the ffmpeg binary.
	FFmpegPath string
	// Threads is the decoder thread count for both backends.
	Threads    int
	FileSystem ports.FileSystem
	Logger     ports.Logger
}

// Opener dispatches Open to a backend.
type Opener struct {
	opts  Options
	libav ports.Opener
	mp4   ports.Opener
}

// New creates an Opener for the configured backend.
func New(opts Options) (*Opener, error) {
	backend, err := ParseBackend(string(opts.Backend))
	if err != nil {
		return nil, err
	}
	opts.Backend = backend

	o := &Opener{opts: opts}
	if backend != BackendMP4 {
		o.libav = libav.New(libav.Options{Logger: component(opts.Logger, "libav"), Threads: opts.Threads})
	}
	if backend != BackendLibav {
		if opts.FileSystem == nil {
			return nil, fmt.Errorf("smartsession: %s backend needs a file system", backend)
		}
		o.mp4 = mp4session.New(opts.FileSystem, o.newDecoder, component(opts.Logger, "mp4session"))
		if opts.Logger != nil && !h264decoder.IsAvailable(opts.FFmpegPath) {
			opts.Logger.Debug("ffmpeg not found, H.264 files will not use the mp4 backend")
		}
	}
	return o, nil
}

func component(l ports.Logger, name string) ports.Logger {
	if l == nil {
		return nil
	}
	return l.WithComponent(name)
}

// Open opens path with the selected backend.
//
// The auto flow:
//   - .mp4/.m4v with an H.264 track and ffmpeg available, or an AV1 track: mp4 backend
//   - anything else, or an mp4 attempt that fails before decoding: libav backend
//
// Files the FileSystem refuses to read whole (osfilesystem.ErrFileTooLarge)
// take the libav path as well.
func (o *Opener) Open(ctx context.Context, path string) (ports.Session, error) {
	switch o.opts.Backend {
	case BackendLibav:
		return o.libav.Open(ctx, path)
	case BackendMP4:
		return o.mp4.Open(ctx, path)
	}

	if !isMP4(path) {
		return o.libav.Open(ctx, path)
	}
	sess, err := o.mp4.Open(ctx, path)
	if err == nil {
		return sess, nil
	}
	if errors.Is(err, ports.ErrVideoStreamNotFound) || errors.Is(err, context.Canceled) {
		return nil, err
	}
	if o.opts.Logger != nil {
		if errors.Is(err, osfilesystem.ErrFileTooLarge) {
			o.opts.Logger.Info("%s is too large to demux in memory, using libav", path)
		} else {
			o.opts.Logger.Debug("Falling back to libav for %s: %v", path, err)
		}
	}
	return o.libav.Open(ctx, path)
}

func (o *Opener) newDecoder(track mp4demux.Track) (ports.ElementaryDecoder, error) {
	switch track.Codec {
	case codecdetect.CodecH264:
		return h264decoder.New(h264decoder.Options{
			FFmpegPath: o.opts.FFmpegPath,
			Width:      track.Width,
			Height:     track.Height,
			Threads:    o.opts.Threads,
			Logger:     component(o.opts.Logger, "h264decoder"),
		})
	case codecdetect.CodecAV1:
		return av1decoder.New()
	default:
		return nil, fmt.Errorf("%w: %s", ports.ErrUnsupportedCodec, track.Codec)
	}
}

func isMP4(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".m4v":
		return true
	}
	return false
}

var _ ports.Opener = (*Opener)(nil)
