// Package orchestrator runs one playback session: a player, the consumer
// that presents its frames, and an optional watcher that reloads the source
// when it changes on disk.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/user/vidloop/pkg/playback"
	"github.com/user/vidloop/pkg/ports"
	"github.com/user/vidloop/pkg/watch"
)

// Config contains the orchestrator settings.
type Config struct {
	// Watch reloads the source when the file changes.
	Watch bool
	// Debounce is the quiet period before a change triggers a reload.
	Debounce time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{Debounce: watch.DefaultDebounce}
}

// Player is the part of *playback.Player the orchestrator drives.
type Player interface {
	ports.FrameSource
	Path() string
	Info() (ports.StreamInfo, error)
	Start(ctx context.Context) error
	Stop()
	Reload(ctx context.Context) error
	Stats() playback.Stats
}

// Orchestrator wires a player to a consumer for the length of one run.
type Orchestrator struct {
	player   Player
	consumer ports.Consumer
	logger   ports.Logger
}

// New creates a new Orchestrator.
func New(player Player, consumer ports.Consumer, logger ports.Logger) *Orchestrator {
	return &Orchestrator{
		player:   player,
		consumer: consumer,
		logger:   logger,
	}
}

// RunResult summarizes a finished run.
type RunResult struct {
	// Info is the stream as loaded when playback started.
	Info     ports.StreamInfo
	Stats    playback.Stats
	Duration time.Duration
	Reloads  int
}

// Run starts playback and blocks until the consumer returns or ctx is done.
// The player is stopped before Run returns. A playback failure surfaced
// through the consumer is returned as the error.
func (o *Orchestrator) Run(ctx context.Context, config Config) (RunResult, error) {
	started := time.Now()

	if err := o.player.Start(ctx); err != nil {
		return RunResult{}, fmt.Errorf("start playback: %w", err)
	}
	defer o.player.Stop()
	info, _ := o.player.Info()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		reloads int
	)
	if config.Watch {
		w := watch.New(o.player.Path(), config.Debounce, func(ctx context.Context) error {
			o.logger.Info("Source changed, reloading %s", o.player.Path())
			if err := o.player.Reload(ctx); err != nil {
				return err
			}
			mu.Lock()
			reloads++
			mu.Unlock()
			return nil
		}, o.logger.WithComponent("watch"))

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(runCtx); err != nil {
				o.logger.Warn("Watching disabled: %v", err)
			}
		}()
	}

	err := o.consumer.Run(runCtx, o.player)
	cancel()
	wg.Wait()

	o.player.Stop()
	stats := o.player.Stats()
	o.logger.Info("Published %d frames over %d loops", stats.FramesPublished, stats.Loops)

	mu.Lock()
	result := RunResult{
		Info:     info,
		Stats:    stats,
		Duration: time.Since(started),
		Reloads:  reloads,
	}
	mu.Unlock()

	if err != nil {
		o.logger.Error("Playback ended with error: %v", err)
		return result, err
	}
	return result, nil
}

var _ Player = (*playback.Player)(nil)
