// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/vidloop/pkg/adapters/smartsession"
	"github.com/user/vidloop/pkg/ports"
)

// Config represents the full configuration for vidloop.
type Config struct {
	// Decoding
	Backend    string `yaml:"backend"`
	FFmpegPath string `yaml:"ffmpeg_path"`
	Threads    int    `yaml:"threads"`

	// MaxDemuxBytes caps the size of files the mp4 backend reads into memory.
	// Larger files are decoded with libav when the backend is auto.
	MaxDemuxBytes int64 `yaml:"max_demux_bytes"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Serving
	MetricsAddr string `yaml:"metrics_addr"`

	// Playback
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
	TickRate int           `yaml:"tick_rate"`

	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// SnapshotConfig represents the headless snapshot settings.
type SnapshotConfig struct {
	Dir      string        `yaml:"dir"`
	Interval time.Duration `yaml:"interval"`
	Count    int           `yaml:"count"`
	Width    int           `yaml:"width"`
	Overlay  bool          `yaml:"overlay"`
	FontPath string        `yaml:"font_path"`
	Format   string        `yaml:"format"`
	Quality  int           `yaml:"quality"`
}

// DefaultMaxDemuxBytes is the default MaxDemuxBytes, 512 MiB.
const DefaultMaxDemuxBytes = 512 << 20

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Backend:       "auto",
		MaxDemuxBytes: DefaultMaxDemuxBytes,
		LogLevel:      "info",
		LogFormat:     "console",
		Debounce:      300 * time.Millisecond,
		TickRate:      60,
		Snapshot: SnapshotConfig{
			Dir:      "./snapshots",
			Interval: time.Second,
			Count:    10,
			Width:    320,
			Overlay:  true,
			Format:   "png",
			Quality:  85,
		},
	}
}

// LoadFromFile loads configuration from a YAML file.
// Keys missing from the file keep their default values.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for values the program cannot use.
func (c Config) Validate() error {
	var errs []error
	if _, err := smartsession.ParseBackend(c.Backend); err != nil {
		errs = append(errs, err)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error", "quiet":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if c.Threads < 0 {
		errs = append(errs, fmt.Errorf("threads must not be negative: %d", c.Threads))
	}
	if c.MaxDemuxBytes <= 0 {
		errs = append(errs, fmt.Errorf("max demux bytes must be positive: %d", c.MaxDemuxBytes))
	}
	if c.TickRate <= 0 || c.TickRate > 1000 {
		errs = append(errs, fmt.Errorf("tick rate must be between 1 and 1000: %d", c.TickRate))
	}
	if c.Debounce < 0 {
		errs = append(errs, fmt.Errorf("debounce must not be negative: %v", c.Debounce))
	}
	if err := c.Snapshot.validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s SnapshotConfig) validate() error {
	if s.Interval <= 0 {
		return fmt.Errorf("snapshot interval must be positive: %v", s.Interval)
	}
	if s.Count < 0 {
		return fmt.Errorf("snapshot count must not be negative: %d", s.Count)
	}
	if s.Width < 0 {
		return fmt.Errorf("snapshot width must not be negative: %d", s.Width)
	}
	if _, err := ParseImageFormat(s.Format); err != nil {
		return err
	}
	if s.Quality < 1 || s.Quality > 100 {
		return fmt.Errorf("snapshot quality must be between 1 and 100: %d", s.Quality)
	}
	return nil
}

// ParseImageFormat parses a snapshot format name.
func ParseImageFormat(s string) (ports.ImageFormat, error) {
	switch s {
	case "png":
		return ports.FormatPNG, nil
	case "jpeg", "jpg":
		return ports.FormatJPEG, nil
	default:
		return ports.FormatPNG, fmt.Errorf("unknown snapshot format %q", s)
	}
}
