// Package follow keeps the console view pinned to its newest output while the
// reader is at the bottom, and leaves the reading position alone otherwise.
package follow

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/yourusername/chronos-console/internal/anchor"
	"github.com/yourusername/chronos-console/internal/metrics"
)

const (
	// DefaultMargin approximates the distance between the bottom scroll
	// offset and the total scroll height, i.e. the visible height.
	DefaultMargin = 200

	// DefaultTolerance is the relative band around the expected bottom offset.
	DefaultTolerance = 0.01

	// Recorded offset before the reader has scrolled at all.
	initialTop = 1000
)

// Snapshot is captured once per reload of the view.
type Snapshot struct {
	Top               float64
	Left              float64
	MaxScroll         float64
	PreviousMaxScroll float64
}

// Decision is the outcome of one reload cycle.
type Decision struct {
	Snapshot Snapshot
	Anchored bool

	// Scroll target written back to the view.
	TargetLeft float64
	TargetTop  float64
}

// Anchored reports whether top lies within the relative tolerance band
// around previousMaxScroll-margin.
func Anchored(top, previousMaxScroll, margin, tolerance float64) bool {
	return math.Abs(top-(previousMaxScroll-margin)) <= tolerance*math.Abs(top)
}

// State carries the follow-mode variables across reloads.
type State struct {
	Margin    float64
	Tolerance float64

	top               float64
	left              float64
	previousMaxScroll float64
}

// NewState creates a state with the given margin and tolerance. Zero values
// select the defaults.
func NewState(margin, tolerance float64) *State {
	if margin == 0 {
		margin = DefaultMargin
	}
	if tolerance == 0 {
		tolerance = DefaultTolerance
	}
	return &State{
		Margin:    margin,
		Tolerance: tolerance,
		top:       initialTop,
	}
}

// Record stores the latest scroll offset reached by the reader.
func (s *State) Record(left, top float64) {
	s.left = left
	s.top = top
}

// PreviousMaxScroll returns the scroll height of the last reload.
func (s *State) PreviousMaxScroll() float64 {
	return s.previousMaxScroll
}

// Next decides the scroll target for a reload whose scroll height is
// maxScroll and advances the state.
func (s *State) Next(maxScroll float64) Decision {
	snap := Snapshot{
		Top:               s.top,
		Left:              s.left,
		MaxScroll:         maxScroll,
		PreviousMaxScroll: s.previousMaxScroll,
	}

	d := Decision{
		Snapshot: snap,
		Anchored: Anchored(snap.Top, snap.PreviousMaxScroll, s.Margin, s.Tolerance),
	}
	d.TargetLeft = snap.Left
	if d.Anchored {
		d.TargetTop = maxScroll
	} else {
		d.TargetTop = snap.Top
	}

	s.previousMaxScroll = maxScroll
	return d
}

// Controller applies State to the console view on every load.
type Controller struct {
	view   anchor.ScrollView
	state  *State
	logger zerolog.Logger

	last Decision
}

// New binds a controller to the console-out anchor of doc.
func New(doc *anchor.Document, state *State, logger zerolog.Logger) (*Controller, error) {
	view, err := anchor.Lookup[anchor.ScrollView](doc, anchor.ConsoleOut)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("anchor").Inc()
		return nil, fmt.Errorf("follow controller: %w", err)
	}
	if state == nil {
		state = NewState(0, 0)
	}

	c := &Controller{
		view:   view,
		state:  state,
		logger: logger.With().Str("component", "follow").Logger(),
	}
	view.SetOnLoad(func() { c.HandleLoad() })
	return c, nil
}

// State returns the controller's follow state.
func (c *Controller) State() *State {
	return c.state
}

// Last returns the decision of the most recent load.
func (c *Controller) Last() Decision {
	return c.last
}

// HandleLoad runs one follow cycle. The scroll offset is read before the
// view is written.
func (c *Controller) HandleLoad() Decision {
	maxScroll := c.view.ScrollHeight()
	c.view.OnScroll(c.state.Record)

	d := c.state.Next(maxScroll)
	c.view.ScrollTo(d.TargetLeft, d.TargetTop)

	label := "preserved"
	if d.Anchored {
		label = "anchored"
	}
	metrics.FollowDecisionsTotal.WithLabelValues(label).Inc()

	c.logger.Debug().
		Float64("top", d.Snapshot.Top).
		Float64("max_scroll", d.Snapshot.MaxScroll).
		Float64("previous_max_scroll", d.Snapshot.PreviousMaxScroll).
		Bool("anchored", d.Anchored).
		Msg("Console reloaded")

	c.last = d
	return d
}
