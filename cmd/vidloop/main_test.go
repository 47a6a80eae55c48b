package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/user/vidloop/pkg/adapters/logger"
	"github.com/user/vidloop/pkg/config"
)

// parseConfig runs cmd with args and returns the configuration its action would see.
func parseConfig(t *testing.T, cmd *cli.Command, args ...string) (config.Config, error) {
	t.Helper()
	var cfg config.Config
	var cfgErr error
	cmd.Action = func(c *cli.Context) error {
		cfg, cfgErr = loadConfig(c)
		return nil
	}
	app := &cli.App{
		Name:     "vidloop",
		Flags:    globalFlags(),
		Commands: []*cli.Command{cmd},
	}
	if err := app.Run(append([]string{"vidloop"}, args...)); err != nil {
		t.Fatalf("app.Run failed: %v", err)
	}
	return cfg, cfgErr
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := parseConfig(t, playCommand(), "play", "clip.mp4")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	want := config.Defaults()
	if cfg.Backend != want.Backend || cfg.TickRate != want.TickRate || cfg.Watch {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
	if cfg.MaxDemuxBytes != config.DefaultMaxDemuxBytes {
		t.Errorf("MaxDemuxBytes = %d, want %d", cfg.MaxDemuxBytes, config.DefaultMaxDemuxBytes)
	}
}

func TestLoadConfig_MaxDemuxBytesFlag(t *testing.T) {
	cfg, err := parseConfig(t, probeCommand(), "--max-demux-bytes", "1048576", "probe", "clip.mp4")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.MaxDemuxBytes != 1<<20 {
		t.Errorf("MaxDemuxBytes = %d, want %d", cfg.MaxDemuxBytes, 1<<20)
	}
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vidloop.yaml")
	if err := os.WriteFile(path, []byte("backend: mp4\ntick_rate: 30\nlog_level: warn\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := parseConfig(t, playCommand(),
		"--config", path, "--backend", "libav", "play", "--watch", "--debounce", "1s", "clip.mp4")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.Backend != "libav" {
		t.Errorf("Backend = %q, flag should win over file", cfg.Backend)
	}
	if cfg.TickRate != 30 {
		t.Errorf("TickRate = %d, file value should be kept", cfg.TickRate)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if !cfg.Watch || cfg.Debounce != time.Second {
		t.Errorf("watch settings = %v, %v", cfg.Watch, cfg.Debounce)
	}
}

func TestLoadConfig_SnapshotFlags(t *testing.T) {
	cfg, err := parseConfig(t, snapshotCommand(),
		"snapshot", "--out", "shots", "--interval", "250ms", "--count", "3", "--format", "jpeg", "--no-overlay", "clip.mp4")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	s := cfg.Snapshot
	if s.Dir != "shots" || s.Interval != 250*time.Millisecond || s.Count != 3 || s.Format != "jpeg" {
		t.Errorf("snapshot = %+v", s)
	}
	if s.Overlay {
		t.Error("--no-overlay should disable the overlay")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := parseConfig(t, playCommand(), "--backend", "gstreamer", "play", "clip.mp4")
	if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("err = %v, want invalid configuration", err)
	}
}

func TestApp_RequiresFile(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}
	err := app.Run([]string{"vidloop", "probe"})
	if !errors.Is(err, errNoFile) {
		t.Errorf("err = %v, want errNoFile", err)
	}
}

func TestApp_Version(t *testing.T) {
	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf
	if err := app.Run([]string{"vidloop", "version"}); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(buf.String(), version) {
		t.Errorf("output = %q, want version %q", buf.String(), version)
	}
}

func TestNewLogger(t *testing.T) {
	cfg := config.Defaults()

	if _, ok := newLogger(cfg, true).(*logger.NoopLogger); !ok {
		t.Error("--quiet should select the no-op logger")
	}
	if _, ok := newLogger(cfg, false).(*logger.ConsoleLogger); !ok {
		t.Error("console format should select the console logger")
	}
	cfg.LogFormat = "json"
	if _, ok := newLogger(cfg, false).(*logger.JSONLogger); !ok {
		t.Error("json format should select the JSON logger")
	}
}
