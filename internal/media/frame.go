package media

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/yourusername/chronos-console/internal/anchor"
	"github.com/yourusername/chronos-console/internal/metrics"
)

// ErrNoSource is returned by Reload when no stream location is configured
var ErrNoSource = errors.New("no stream source configured")

// FrameConfig configures a Frame
type FrameConfig struct {
	Source        string   // playlist file path or http(s) URL
	PlayerID      string   // anchor ID of the player in each loaded document
	PlayerCommand []string // optional external player
}

// Frame is the video view. Each Reload fetches the playlist off the event
// loop and, once done, replaces the child document with a fresh player and
// fires the load listener as a separate scheduled event.
type Frame struct {
	cfg      FrameConfig
	fetcher  *Fetcher
	schedule anchor.Scheduler
	logger   zerolog.Logger

	onLoad   func()
	doc      *anchor.Document
	player   *Player
	loads    int
	inFlight int
	loadedAt time.Time
}

// NewFrame creates a frame that has not loaded anything yet
func NewFrame(cfg FrameConfig, fetcher *Fetcher, schedule anchor.Scheduler, logger zerolog.Logger) *Frame {
	if cfg.PlayerID == "" {
		cfg.PlayerID = anchor.PlayerID
	}
	return &Frame{
		cfg:      cfg,
		fetcher:  fetcher,
		schedule: schedule,
		logger:   logger.With().Str("component", "video-frame").Logger(),
	}
}

// SetOnLoad replaces the load listener
func (f *Frame) SetOnLoad(fn func()) {
	f.onLoad = fn
}

// Element finds id in the current child document
func (f *Frame) Element(id string) (any, bool) {
	if f.doc == nil {
		return nil, false
	}
	return f.doc.Element(id)
}

// Reload starts a navigation. It returns before the navigation completes.
func (f *Frame) Reload() error {
	if f.cfg.Source == "" {
		return ErrNoSource
	}

	f.inFlight++
	metrics.MediaReloadsTotal.WithLabelValues("started").Inc()
	location := f.cfg.Source

	go func() {
		playlist, err := f.fetcher.Fetch(context.Background(), location)
		src := Source{Location: location, Playlist: playlist, Err: err}
		f.schedule(func() { f.complete(src) })
	}()
	return nil
}

// complete swaps in the new document and notifies the load listener
func (f *Frame) complete(src Source) {
	f.inFlight--

	if f.player != nil {
		if err := f.player.Pause(); err != nil {
			f.logger.Warn().Err(err).Msg("Failed to pause replaced player")
		}
	}

	f.player = NewPlayer(src, f.cfg.PlayerCommand, f.logger)
	f.doc = anchor.NewDocument()
	f.doc.Register(f.cfg.PlayerID, f.player)
	f.loads++
	f.loadedAt = time.Now()

	if src.Err != nil {
		f.logger.Warn().Err(src.Err).Str("source", src.Location).Msg("Video view loaded without media")
	} else {
		f.logger.Info().
			Str("source", src.Location).
			Int("segments", len(src.Playlist.Segments)).
			Msg("Video view loaded")
	}
	metrics.MediaReloadsTotal.WithLabelValues("loaded").Inc()

	if f.onLoad != nil {
		f.onLoad()
	}
}

// Player returns the player of the current document, nil before the first
// load completes
func (f *Frame) Player() *Player {
	return f.player
}

// Loads returns the number of completed navigations
func (f *Frame) Loads() int {
	return f.loads
}

// Loading reports whether a navigation is in flight
func (f *Frame) Loading() bool {
	return f.inFlight > 0
}

// LoadedAt returns when the last navigation completed
func (f *Frame) LoadedAt() time.Time {
	return f.loadedAt
}
