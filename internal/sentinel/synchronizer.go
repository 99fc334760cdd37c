// Package sentinel keeps the media view in step with the controller: the
// probe writes a readiness marker when a new stream playlist exists, and the
// synchronizer reloads the media view and starts playback when it reads that
// marker.
package sentinel

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yourusername/chronos-console/internal/anchor"
	"github.com/yourusername/chronos-console/internal/metrics"
)

const (
	// ReadyMarker signals that a new media segment exists
	ReadyMarker = "a"

	// IdleMarker is the neutral sentinel value
	IdleMarker = ""
)

// Options configure a Synchronizer.
type Options struct {
	ReadyMarker string
	PlayerID    string
}

// Synchronizer reloads the video view on every mutation that leaves the
// sentinel at the ready marker. It does not remember whether the sentinel
// was already ready: the writer must move the sentinel away from the marker
// after each signal, otherwise unrelated mutations reload again.
type Synchronizer struct {
	sentinel anchor.TextElement
	frame    anchor.Frame
	ready    string
	playerID string
	logger   zerolog.Logger

	cancel func()
}

// NewSynchronizer resolves the sentinel, the video view and the stop control
// in doc. The stop control gets a handler that pauses the player.
func NewSynchronizer(doc *anchor.Document, opts Options, logger zerolog.Logger) (*Synchronizer, error) {
	if opts.ReadyMarker == "" {
		opts.ReadyMarker = ReadyMarker
	}
	if opts.PlayerID == "" {
		opts.PlayerID = anchor.PlayerID
	}

	text, err := anchor.Lookup[anchor.TextElement](doc, anchor.StreamerText)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("anchor").Inc()
		return nil, fmt.Errorf("reload synchronizer: %w", err)
	}
	frame, err := anchor.Lookup[anchor.Frame](doc, anchor.VideoStreamer)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("anchor").Inc()
		return nil, fmt.Errorf("reload synchronizer: %w", err)
	}
	stop, err := anchor.Lookup[*anchor.Control](doc, anchor.StopButton)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("anchor").Inc()
		return nil, fmt.Errorf("reload synchronizer: %w", err)
	}

	s := &Synchronizer{
		sentinel: text,
		frame:    frame,
		ready:    opts.ReadyMarker,
		playerID: opts.PlayerID,
		logger:   logger.With().Str("component", "reload-synchronizer").Logger(),
	}
	stop.OnActivate(s.Stop)
	return s, nil
}

// Bind starts observing the sentinel. Notifications are handled on the
// event loop through schedule, after the write that caused them.
func (s *Synchronizer) Bind(schedule anchor.Scheduler) {
	if schedule == nil {
		schedule = anchor.Immediate
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = s.sentinel.Observe(func() {
		schedule(func() {
			if _, err := s.HandleMutation(); err != nil {
				s.logger.Error().Err(err).Msg("Failed to handle sentinel mutation")
			}
		})
	})
}

// Unbind stops observing the sentinel.
func (s *Synchronizer) Unbind() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// HandleMutation reads the sentinel and, if it holds the ready marker,
// reloads the video view with playback scheduled for when the reload
// completes. It reports whether a reload was requested.
func (s *Synchronizer) HandleMutation() (bool, error) {
	value := s.sentinel.Text()
	metrics.SentinelMutationsTotal.WithLabelValues(s.classify(value)).Inc()

	if value != s.ready {
		return false, nil
	}

	s.frame.SetOnLoad(func() {
		if err := s.play(); err != nil {
			metrics.ErrorsTotal.WithLabelValues("anchor").Inc()
			s.logger.Error().Err(err).Msg("Failed to start playback after reload")
		}
	})
	if err := s.frame.Reload(); err != nil {
		metrics.ErrorsTotal.WithLabelValues("navigation").Inc()
		return false, fmt.Errorf("reload video view: %w", err)
	}

	metrics.MediaReloadsTotal.WithLabelValues("requested").Inc()
	s.logger.Info().Msg("New stream ready, reloading video view")
	return true, nil
}

// Stop pauses the player. Navigation and the sentinel are left alone.
func (s *Synchronizer) Stop() error {
	player, err := anchor.Child[anchor.Player](s.frame, s.playerID)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("anchor").Inc()
		return fmt.Errorf("pause player: %w", err)
	}
	if err := player.Pause(); err != nil {
		return fmt.Errorf("pause player: %w", err)
	}
	metrics.PlayerActionsTotal.WithLabelValues("pause").Inc()
	s.logger.Info().Msg("Player paused")
	return nil
}

func (s *Synchronizer) play() error {
	player, err := anchor.Child[anchor.Player](s.frame, s.playerID)
	if err != nil {
		return fmt.Errorf("start player: %w", err)
	}
	if err := player.Play(); err != nil {
		return fmt.Errorf("start player: %w", err)
	}
	metrics.PlayerActionsTotal.WithLabelValues("play").Inc()
	s.logger.Info().Msg("Player started")
	return nil
}

func (s *Synchronizer) classify(value string) string {
	switch value {
	case s.ready:
		return "ready"
	case IdleMarker:
		return "idle"
	default:
		return "other"
	}
}
