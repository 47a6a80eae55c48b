package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/user/vidloop/pkg/adapters/filesink"
	"github.com/user/vidloop/pkg/adapters/ggrenderer"
	"github.com/user/vidloop/pkg/adapters/logger"
	"github.com/user/vidloop/pkg/adapters/osfilesystem"
	"github.com/user/vidloop/pkg/adapters/sdlview"
	"github.com/user/vidloop/pkg/adapters/smartsession"
	"github.com/user/vidloop/pkg/config"
	"github.com/user/vidloop/pkg/metrics"
	"github.com/user/vidloop/pkg/orchestrator"
	"github.com/user/vidloop/pkg/playback"
	"github.com/user/vidloop/pkg/ports"
	"github.com/user/vidloop/pkg/snapshot"
	"github.com/user/vidloop/pkg/summarizer"
)

var errNoFile = errors.New("a video file is required")

// app holds what every command needs once flags and config are resolved.
type app struct {
	cfg     config.Config
	log     ports.Logger
	fs      ports.FileSystem
	opener  ports.Opener
	metrics *metrics.Metrics
	server  *metrics.Server
}

// setup resolves configuration, logging, metrics and the decoder backend.
func setup(c *cli.Context) (*app, error) {
	if c.Args().Len() != 1 {
		return nil, errNoFile
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: newLogger(cfg, c.Bool("quiet")), fs: osfilesystem.New()}

	if cfg.MetricsAddr != "" {
		reg := metrics.NewRegistry()
		a.metrics = metrics.New(reg)
		if a.server, err = metrics.Listen(cfg.MetricsAddr, reg); err != nil {
			return nil, fmt.Errorf("metrics server: %w", err)
		}
		a.log.Info("Serving metrics on %s", a.server.Addr())
	}

	backend, _ := smartsession.ParseBackend(cfg.Backend)
	a.opener, err = smartsession.New(smartsession.Options{
		Backend:    backend,
		FFmpegPath: cfg.FFmpegPath,
		Threads:    cfg.Threads,
		FileSystem: osfilesystem.NewWithLimit(cfg.MaxDemuxBytes),
		Logger:     a.log,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	if a.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		a.log.Warn("Failed to stop metrics server: %v", err)
	}
}

// loadConfig applies, in order, the defaults, the config file, and flags that were set.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.LoadFromFile(path); err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
	}

	if c.IsSet("backend") {
		cfg.Backend = c.String("backend")
	}
	if c.IsSet("ffmpeg-path") {
		cfg.FFmpegPath = c.String("ffmpeg-path")
	}
	if c.IsSet("threads") {
		cfg.Threads = c.Int("threads")
	}
	if c.IsSet("max-demux-bytes") {
		cfg.MaxDemuxBytes = c.Int64("max-demux-bytes")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = c.String("log-format")
	}
	if c.IsSet("metrics-addr") {
		cfg.MetricsAddr = c.String("metrics-addr")
	}
	if c.IsSet("watch") {
		cfg.Watch = c.Bool("watch")
	}
	if c.IsSet("debounce") {
		cfg.Debounce = c.Duration("debounce")
	}
	if c.IsSet("tick-rate") {
		cfg.TickRate = c.Int("tick-rate")
	}
	if c.IsSet("out") {
		cfg.Snapshot.Dir = c.String("out")
	}
	if c.IsSet("interval") {
		cfg.Snapshot.Interval = c.Duration("interval")
	}
	if c.IsSet("count") {
		cfg.Snapshot.Count = c.Int("count")
	}
	if c.IsSet("width") {
		cfg.Snapshot.Width = c.Int("width")
	}
	if c.IsSet("format") {
		cfg.Snapshot.Format = c.String("format")
	}
	if c.IsSet("no-overlay") {
		cfg.Snapshot.Overlay = !c.Bool("no-overlay")
	}
	if c.IsSet("font") {
		cfg.Snapshot.FontPath = c.String("font")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.Config, quiet bool) ports.Logger {
	if quiet {
		return logger.NewNoop()
	}
	level := ports.ParseLogLevel(cfg.LogLevel)
	if cfg.LogFormat == "json" {
		return logger.NewJSON(level)
	}
	return logger.NewConsole(level)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func (a *app) newPlayer(path string) *playback.Player {
	return playback.New(a.opener, path, playback.Options{
		Logger:  a.log.WithComponent("playback"),
		Metrics: a.metrics,
	})
}

func (a *app) run(c *cli.Context, consumer ports.Consumer, snapshots *summarizer.SnapshotInfo) error {
	ctx, cancel := signalContext(c.Context, a.log)
	defer cancel()

	player := a.newPlayer(c.Args().First())
	defer func() {
		if err := player.Close(); err != nil {
			a.log.Warn("Failed to release session: %v", err)
		}
	}()

	orch := orchestrator.New(player, consumer, a.log.WithComponent("orchestrator"))
	result, err := orch.Run(ctx, orchestrator.Config{
		Watch:    a.cfg.Watch,
		Debounce: a.cfg.Debounce,
	})
	if path := c.String("summary"); path != "" {
		if werr := a.writeSummary(path, player.Path(), result, snapshots, err); werr != nil {
			a.log.Warn("Failed to write summary: %v", werr)
		}
	}
	if err != nil {
		return err
	}
	a.log.Info("Played for %s", result.Duration.Round(time.Millisecond))
	return nil
}

func (a *app) writeSummary(path, source string, result orchestrator.RunResult, snapshots *summarizer.SnapshotInfo, runErr error) error {
	b := summarizer.NewBuilder().
		WithSource(summarizer.SourceInfo{
			Path:     source,
			Backend:  result.Info.Backend,
			Codec:    result.Info.Codec,
			Width:    result.Info.Width,
			Height:   result.Info.Height,
			TimeBase: result.Info.TimeBase.String(),
		}).
		WithPlayback(summarizer.PlaybackInfo{
			SessionID:       result.Stats.SessionID,
			FramesPublished: result.Stats.FramesPublished,
			Loops:           result.Stats.Loops,
			Reloads:         result.Reloads,
			Duration:        result.Duration,
			LastPosition:    result.Stats.LastPosition,
		}).
		WithError(runErr)
	if snapshots != nil {
		b.WithSnapshots(*snapshots)
	}

	w := summarizer.NewWriter(summarizer.NewMarkdownFormatter(), a.fs)
	if err := w.Write(path, b.Build()); err != nil {
		return err
	}
	a.log.Info("Summary written to %s", path)
	return nil
}

func runPlay(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.close()

	view := sdlview.New(sdlview.Options{
		Title:    c.Args().First(),
		TickRate: a.cfg.TickRate,
		Logger:   a.log.WithComponent("sdlview"),
	})
	return a.run(c, view, nil)
}

func runSnapshot(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.close()

	s := a.cfg.Snapshot
	format, _ := config.ParseImageFormat(s.Format)
	if err := a.fs.MkdirAll(s.Dir); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	renderer := ggrenderer.New()
	sink := filesink.New(s.Dir, a.fs, renderer, format, s.Quality)
	consumer := snapshot.New(renderer, sink, snapshot.Options{
		Interval: s.Interval,
		Count:    s.Count,
		Width:    s.Width,
		Overlay:  s.Overlay,
		FontPath: s.FontPath,
		Logger:   a.log.WithComponent("snapshot"),
	})
	if err := a.run(c, consumer, &summarizer.SnapshotInfo{
		Dir:      s.Dir,
		Format:   format.Extension(),
		Interval: s.Interval,
		Count:    s.Count,
	}); err != nil {
		return err
	}
	a.log.Info("Snapshots saved to %s", s.Dir)
	return nil
}

// probeInfo is the JSON printed by the probe command.
type probeInfo struct {
	Path     string `json:"path"`
	Backend  string `json:"backend"`
	Codec    string `json:"codec"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Stream   int    `json:"stream"`
	TimeBase string `json:"timeBase"`
}

func runProbe(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.close()

	player := a.newPlayer(c.Args().First())
	defer player.Close()

	if err := player.Load(c.Context); err != nil {
		return err
	}
	info, err := player.Info()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(probeInfo{
		Path:     player.Path(),
		Backend:  info.Backend,
		Codec:    info.Codec,
		Width:    info.Width,
		Height:   info.Height,
		Stream:   info.Index,
		TimeBase: info.TimeBase.String(),
	})
}
