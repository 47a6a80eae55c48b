// Package sdlview presents playing video in an SDL2 window.
//
// Each tick the view loans the latest frame from its source and uploads its
// planes into a streaming IYUV texture while the loan is held, then draws the
// texture letterboxed into the window. Every SDL call runs on the main thread.
package sdlview

import (
	"context"
	"fmt"
	"time"

	"github.com/asticode/go-astikit"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/user/vidloop/pkg/ports"
	"github.com/user/vidloop/pkg/thread"
)

// DefaultTickRate is the presentation rate in ticks per second.
const DefaultTickRate = 60

// Options configures a View.
type Options struct {
	Title    string
	TickRate int
	Logger   ports.Logger
}

// View is a ports.Consumer that shows frames in a window.
type View struct {
	title  string
	tick   time.Duration
	logger ports.Logger
}

// New creates a View. Nothing is opened until Run.
func New(opts Options) *View {
	if opts.TickRate <= 0 {
		opts.TickRate = DefaultTickRate
	}
	if opts.Title == "" {
		opts.Title = "vidloop"
	}
	return &View{
		title:  opts.Title,
		tick:   time.Second / time.Duration(opts.TickRate),
		logger: opts.Logger,
	}
}

// Run opens a window sized to the video and presents frames until ctx is
// done, the window is closed, Escape is pressed, or the source fails.
// Closing the window is not an error.
func (v *View) Run(ctx context.Context, src ports.FrameSource) error {
	width, height, err := src.Size()
	if err != nil {
		return err
	}

	var win *window
	if err := thread.CallErr(func() (err error) {
		win, err = openWindow(v.title, width, height)
		return err
	}); err != nil {
		return err
	}
	defer thread.Call(func() {
		if err := win.close(); err != nil && v.logger != nil {
			v.logger.Warn("Failed to close window: %v", err)
		}
	})
	if v.logger != nil {
		v.logger.Info("Window opened: %dx%d", width, height)
	}

	ticker := time.NewTicker(v.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		var quit bool
		var loanErr error
		if err := thread.CallErr(func() error {
			if quit = win.pollQuit(); quit {
				return nil
			}
			if loanErr = src.LoanFrame(win.upload); loanErr != nil {
				return nil
			}
			return win.present()
		}); err != nil {
			return err
		}
		if loanErr != nil {
			return loanErr
		}
		if quit {
			if v.logger != nil {
				v.logger.Info("Window closed")
			}
			return nil
		}
	}
}

type window struct {
	closer *astikit.Closer
	win    *sdl.Window
	ren    *sdl.Renderer
	tex    *sdl.Texture
	width  int32
	height int32

	// uploaded reports whether tex holds a frame.
	uploaded bool
}

func openWindow(title string, width, height int) (_ *window, err error) {
	c := astikit.NewCloser()
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("sdl: %w", err)
	}
	c.Add(sdl.Quit)

	w := &window{closer: c}
	if w.win, err = sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(width), int32(height), sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE); err != nil {
		return nil, fmt.Errorf("window: %w", err)
	}
	c.Add(func() { w.win.Destroy() })

	if w.ren, err = sdl.CreateRenderer(w.win, -1, sdl.RENDERER_ACCELERATED); err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	c.Add(func() { w.ren.Destroy() })
	c.Add(w.destroyTexture)

	if err := w.ensureTexture(int32(width), int32(height)); err != nil {
		return nil, err
	}
	return w, nil
}

// ensureTexture recreates the texture when the video size changes, which
// happens when the source is reloaded with different content.
func (w *window) ensureTexture(width, height int32) error {
	if w.tex != nil && w.width == width && w.height == height {
		return nil
	}
	w.destroyTexture()
	tex, err := w.ren.CreateTexture(uint32(sdl.PIXELFORMAT_IYUV), sdl.TEXTUREACCESS_STREAMING, width, height)
	if err != nil {
		return fmt.Errorf("failed to create texture: %w", err)
	}
	w.tex, w.width, w.height = tex, width, height
	w.uploaded = false
	return nil
}

func (w *window) destroyTexture() {
	if w.tex != nil {
		w.tex.Destroy()
		w.tex = nil
	}
}

// upload runs under the frame loan.
func (w *window) upload(f *ports.RawFrame) error {
	if f.Format != ports.PixelFormatYUV420P || len(f.Planes) != 3 {
		return fmt.Errorf("sdlview: unsupported frame format %s", f.Format)
	}
	if err := w.ensureTexture(int32(f.Width), int32(f.Height)); err != nil {
		return err
	}
	y, u, v := f.Planes[0], f.Planes[1], f.Planes[2]
	if err := w.tex.UpdateYUV(nil, y.Data, y.Stride, u.Data, u.Stride, v.Data, v.Stride); err != nil {
		return fmt.Errorf("failed to update texture: %w", err)
	}
	w.uploaded = true
	return nil
}

// present draws the last uploaded frame. It does nothing until a frame arrives.
func (w *window) present() error {
	if !w.uploaded {
		return nil
	}
	if err := w.ren.Clear(); err != nil {
		return err
	}
	sw, sh := w.win.GetSize()
	dst := letterbox(w.width, w.height, sw, sh)
	if err := w.ren.Copy(w.tex, nil, &dst); err != nil {
		return err
	}
	w.ren.Present()
	return nil
}

// pollQuit drains pending events and reports whether the user asked to quit.
func (w *window) pollQuit() bool {
	quit := false
	for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
		switch ev := e.(type) {
		case *sdl.QuitEvent:
			quit = true
		case *sdl.KeyboardEvent:
			if ev.Type == sdl.KEYDOWN && ev.Keysym.Sym == sdl.K_ESCAPE {
				quit = true
			}
		}
	}
	return quit
}

func (w *window) close() error {
	return w.closer.Close()
}

// letterbox fits a videoW x videoH picture into the screen, centred,
// keeping its aspect ratio.
func letterbox(videoW, videoH, screenW, screenH int32) sdl.Rect {
	if videoW <= 0 || videoH <= 0 {
		return sdl.Rect{W: screenW, H: screenH}
	}
	scale := float64(screenW) / float64(videoW)
	if s := float64(screenH) / float64(videoH); s < scale {
		scale = s
	}
	w := int32(float64(videoW) * scale)
	h := int32(float64(videoH) * scale)
	return sdl.Rect{
		X: (screenW - w) / 2,
		Y: (screenH - h) / 2,
		W: w,
		H: h,
	}
}

var _ ports.Consumer = (*View)(nil)
