// Package snapshot periodically captures the playing frame as a still image.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/user/vidloop/pkg/ports"
)

// Options configures a Consumer.
type Options struct {
	// Interval between captures. Defaults to one second.
	Interval time.Duration
	// Count stops the consumer after that many snapshots. Zero runs until cancelled.
	Count int
	// Width scales snapshots to this width, keeping the aspect ratio. Zero keeps the video size.
	Width int
	// Overlay draws the frame position in a band along the bottom.
	Overlay bool
	// FontPath selects a TrueType font for the overlay.
	FontPath string
	Logger   ports.Logger
}

// Consumer is a ports.Consumer that writes snapshots to a sink.
type Consumer struct {
	renderer ports.Renderer
	sink     ports.SnapshotSink
	opts     Options
	logger   ports.Logger
}

// New creates a snapshot Consumer.
func New(renderer ports.Renderer, sink ports.SnapshotSink, opts Options) *Consumer {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	return &Consumer{renderer: renderer, sink: sink, opts: opts, logger: logger}
}

// infoSource is implemented by sources that can describe their stream.
type infoSource interface {
	Info() (ports.StreamInfo, error)
}

type sourceInfo struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Codec    string `json:"codec,omitempty"`
	Backend  string `json:"backend,omitempty"`
	TimeBase string `json:"timeBase,omitempty"`
}

// Run captures snapshots until ctx is done, Count is reached, or src reports an error.
func (c *Consumer) Run(ctx context.Context, src ports.FrameSource) error {
	width, height, err := src.Size()
	if err != nil {
		return err
	}

	var timeBase ports.Rational
	if is, ok := src.(infoSource); ok {
		if info, err := is.Info(); err == nil {
			timeBase = info.TimeBase
			c.saveInfo(info)
		}
	}

	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	taken := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		ok, err := c.capture(src, taken, width, height, timeBase)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		taken++
		if c.opts.Count > 0 && taken >= c.opts.Count {
			c.logger.Info("Saved %d snapshots", taken)
			return nil
		}
	}
}

// capture copies the current frame under the loan and renders it after the loan ends.
// It reports false when no frame has been published yet.
func (c *Consumer) capture(src ports.FrameSource, index, width, height int, tb ports.Rational) (bool, error) {
	if !c.sink.Enabled() {
		return true, nil
	}

	var img image.Image
	var pts int64
	err := src.LoanFrame(func(f *ports.RawFrame) error {
		var err error
		img, err = c.renderer.FrameImage(f)
		pts = f.PTS
		return err
	})
	if err != nil {
		return false, err
	}
	if img == nil {
		return false, nil
	}

	if c.opts.Width > 0 && c.opts.Width != width {
		h := height * c.opts.Width / width
		if h < 1 {
			h = 1
		}
		img = c.renderer.ResizeImage(img, c.opts.Width, h)
	}
	if c.opts.Overlay {
		img = c.renderer.Annotate(img, label(index, pts, tb), ports.TextStyle{
			FontSize:   14,
			FontPath:   c.opts.FontPath,
			Color:      color.White,
			Background: color.RGBA{A: 160},
			Align:      ports.AlignLeft,
		})
	}

	if err := c.sink.SaveSnapshot(index, img); err != nil {
		return false, fmt.Errorf("save snapshot %d: %w", index, err)
	}
	c.logger.Debug("Saved snapshot %d at %s", index, tb.Duration(pts))
	return true, nil
}

func (c *Consumer) saveInfo(info ports.StreamInfo) {
	if !c.sink.Enabled() {
		return
	}
	data, err := json.MarshalIndent(sourceInfo{
		Width:    info.Width,
		Height:   info.Height,
		Codec:    info.Codec,
		Backend:  info.Backend,
		TimeBase: info.TimeBase.String(),
	}, "", "  ")
	if err != nil {
		return
	}
	if err := c.sink.SaveInfo(data); err != nil {
		c.logger.Warn("Failed to save source info: %v", err)
	}
}

// label formats "#index mm:ss.mmm".
func label(index int, pts int64, tb ports.Rational) string {
	d := tb.Duration(pts)
	if d < 0 {
		d = 0
	}
	m := int(d / time.Minute)
	s := int(d % time.Minute / time.Second)
	ms := int(d % time.Second / time.Millisecond)
	return fmt.Sprintf("#%d %02d:%02d.%03d", index, m, s, ms)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func (n nopLogger) WithComponent(string) ports.Logger { return n }

var _ ports.Consumer = (*Consumer)(nil)
