package sentinel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/yourusername/chronos-console/internal/metrics"
)

// Writer receives sentinel values.
type Writer interface {
	SetText(text string)
}

// ProbeConfig configures a Probe.
type ProbeConfig struct {
	Path         string // playlist file to watch
	Mode         string // "watch" or "poll"
	PollInterval time.Duration
	ReadyMarker  string
	IdleMarker   string
}

// Probe is the sentinel writer. It writes the ready marker when the
// playlist appears and the idle marker when it goes away, and only on those
// transitions.
type Probe struct {
	cfg    ProbeConfig
	out    Writer
	logger zerolog.Logger

	present bool
}

// NewProbe creates a probe writing to out
func NewProbe(cfg ProbeConfig, out Writer, logger zerolog.Logger) *Probe {
	if cfg.ReadyMarker == "" {
		cfg.ReadyMarker = ReadyMarker
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &Probe{
		cfg:    cfg,
		out:    out,
		logger: logger.With().Str("component", "stream-probe").Logger(),
	}
}

// Run checks once and then watches until ctx is done.
func (p *Probe) Run(ctx context.Context) error {
	p.logger.Info().
		Str("mode", p.cfg.Mode).
		Str("path", p.cfg.Path).
		Msg("Starting stream probe")

	p.Check()

	if p.cfg.Mode == "poll" {
		return p.runPollMode(ctx)
	}
	return p.runWatchMode(ctx)
}

// Check stats the playlist and writes the sentinel if its presence changed.
// It reports whether a write happened.
func (p *Probe) Check() bool {
	_, err := os.Stat(p.cfg.Path)
	present := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		metrics.ErrorsTotal.WithLabelValues("probe").Inc()
		p.logger.Warn().Err(err).Msg("Failed to stat playlist")
	}

	if present == p.present {
		return false
	}
	p.present = present

	if present {
		p.logger.Info().Str("path", p.cfg.Path).Msg("Playlist available")
		p.out.SetText(p.cfg.ReadyMarker)
	} else {
		p.logger.Info().Str("path", p.cfg.Path).Msg("Playlist removed")
		p.out.SetText(p.cfg.IdleMarker)
	}
	return true
}

// runPollMode checks the playlist on a fixed interval
func (p *Probe) runPollMode(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Check()
		}
	}
}

// runWatchMode checks the playlist whenever its directory changes
func (p *Probe) runWatchMode(ctx context.Context) error {
	dir := filepath.Dir(p.cfg.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create stream directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	// Events between the initial check and Add would otherwise be lost.
	p.Check()

	name := filepath.Base(p.cfg.Path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			p.logger.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("Stream directory event")
			p.Check()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			metrics.ErrorsTotal.WithLabelValues("probe").Inc()
			p.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}
