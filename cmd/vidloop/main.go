// Package main provides the CLI entry point for vidloop.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/vidloop/pkg/thread"
)

var version = "dev"

func main() {
	code := 0
	// SDL needs the main OS thread, so the whole program runs inside thread.Run.
	thread.Run(func() {
		if err := newApp().Run(os.Args); err != nil {
			fmt.Fprintln(os.Stderr, l10n.F("Error: %v", err))
			code = 1
		}
	})
	os.Exit(code)
}

func newApp() *cli.App {
	return &cli.App{
		Name:        "vidloop",
		Usage:       l10n.T("Play a video file in a loop"),
		Description: l10n.T("vidloop decodes the video stream of a file and plays it in a loop, paced to its timestamps."),
		Version:     version,
		Flags:       globalFlags(),
		Commands: []*cli.Command{
			playCommand(),
			snapshotCommand(),
			probeCommand(),
			versionCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Usage:    l10n.T("YAML configuration file"),
			Category: l10n.T("Configuration"),
		},
		&cli.StringFlag{
			Name:     "backend",
			Aliases:  []string{"b"},
			Usage:    l10n.T("Decoder backend (libav, mp4, auto)"),
			EnvVars:  []string{"VIDLOOP_BACKEND"},
			Category: l10n.T("Decoding"),
		},
		&cli.StringFlag{
			Name:     "ffmpeg-path",
			Usage:    l10n.T("Path to the ffmpeg binary used by the mp4 backend"),
			EnvVars:  []string{"FFMPEG_PATH"},
			Category: l10n.T("Decoding"),
		},
		&cli.IntFlag{
			Name:     "threads",
			Usage:    l10n.T("Decoder threads (0 = automatic)"),
			Category: l10n.T("Decoding"),
		},
		&cli.Int64Flag{
			Name:     "max-demux-bytes",
			Usage:    l10n.T("Largest file the mp4 backend reads into memory"),
			Category: l10n.T("Decoding"),
		},
		&cli.StringFlag{
			Name:     "log-level",
			Aliases:  []string{"l"},
			Usage:    l10n.T("Log level (debug, info, warn, error)"),
			EnvVars:  []string{"VIDLOOP_LOG_LEVEL"},
			Category: l10n.T("Logging"),
		},
		&cli.StringFlag{
			Name:     "log-format",
			Usage:    l10n.T("Log format (console, json)"),
			Category: l10n.T("Logging"),
		},
		&cli.BoolFlag{
			Name:     "quiet",
			Aliases:  []string{"q"},
			Usage:    l10n.T("Suppress all log output"),
			Category: l10n.T("Logging"),
		},
		&cli.StringFlag{
			Name:     "metrics-addr",
			Usage:    l10n.T("Serve Prometheus metrics on this address (e.g. :9090)"),
			Category: l10n.T("Monitoring"),
		},
	}
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:     "watch",
			Aliases:  []string{"w"},
			Usage:    l10n.T("Reload the file when it changes"),
			Category: l10n.T("Playback"),
		},
		&cli.DurationFlag{
			Name:     "debounce",
			Usage:    l10n.T("Quiet period before a change triggers a reload"),
			Value:    300 * time.Millisecond,
			Category: l10n.T("Playback"),
		},
		&cli.StringFlag{
			Name:     "summary",
			Usage:    l10n.T("Write a Markdown summary of the run to this file"),
			Category: l10n.T("Output"),
		},
	}
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:        "play",
		Usage:       l10n.T("Play a video file in a window"),
		Description: l10n.T("Open the file and show it in a window sized to the video. Close the window or press Escape to quit."),
		ArgsUsage:   "<file>",
		Flags: append(runFlags(),
			&cli.IntFlag{
				Name:     "tick-rate",
				Usage:    l10n.T("Window refresh rate in ticks per second"),
				Value:    60,
				Category: l10n.T("Playback"),
			},
		),
		Action: runPlay,
	}
}

func snapshotCommand() *cli.Command {
	return &cli.Command{
		Name:        "snapshot",
		Usage:       l10n.T("Save still images of a playing video"),
		Description: l10n.T("Play the file without a window and save the current frame at a fixed interval."),
		ArgsUsage:   "<file>",
		Flags: append(runFlags(),
			&cli.StringFlag{
				Name:     "out",
				Aliases:  []string{"o"},
				Usage:    l10n.T("Output directory for snapshots"),
				Category: l10n.T("Output"),
			},
			&cli.DurationFlag{
				Name:     "interval",
				Usage:    l10n.T("Time between snapshots"),
				Category: l10n.T("Output"),
			},
			&cli.IntFlag{
				Name:     "count",
				Aliases:  []string{"n"},
				Usage:    l10n.T("Number of snapshots (0 = until interrupted)"),
				Category: l10n.T("Output"),
			},
			&cli.IntFlag{
				Name:     "width",
				Usage:    l10n.T("Snapshot width in pixels (0 = video width)"),
				Category: l10n.T("Output"),
			},
			&cli.StringFlag{
				Name:     "format",
				Usage:    l10n.T("Image format (png, jpeg)"),
				Category: l10n.T("Output"),
			},
			&cli.BoolFlag{
				Name:     "no-overlay",
				Usage:    l10n.T("Do not draw the frame position on snapshots"),
				Category: l10n.T("Output"),
			},
			&cli.StringFlag{
				Name:     "font",
				Usage:    l10n.T("TrueType font for the overlay"),
				Category: l10n.T("Output"),
			},
		),
		Action: runSnapshot,
	}
}

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     l10n.T("Describe the video stream of a file"),
		ArgsUsage: "<file>",
		Action:    runProbe,
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: l10n.T("Show version information"),
		Action: func(c *cli.Context) error {
			fmt.Fprintln(c.App.Writer, l10n.F("vidloop version %s", version))
			return nil
		},
	}
}
