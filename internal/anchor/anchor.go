// Package anchor is the document of named elements the dashboard components
// bind to. A component resolves its anchors when it is constructed; an absent
// anchor is a hard error, never a silent no-op.
package anchor

import (
	"errors"
	"fmt"
)

// Anchor IDs shared by the dashboard components.
const (
	ConsoleOut    = "console-out"
	RefreshButton = "button-refresh"
	CommandInput  = "command-line-input"
	SendButton    = "button-3"
	StartButton   = "button-2"
	StopButton    = "button-4"
	ClearButton   = "button-5"
	StreamerText  = "streamer-text"
	VideoStreamer = "video-streamer"
	PlayerID      = "player"

	AddAgentButton = "button-1"
)

var (
	// ErrMissingAnchor is returned when a required element is not registered
	ErrMissingAnchor = errors.New("missing anchor")

	// ErrWrongCapability is returned when an element exists but cannot serve
	// the requested role
	ErrWrongCapability = errors.New("anchor lacks required capability")
)

// Scheduler posts fn onto the event loop. Every handler that touches
// component state runs through it.
type Scheduler func(fn func())

// Immediate runs fn on the caller's goroutine.
func Immediate(fn func()) { fn() }

// ScrollView is a navigable view whose inner document is replaced on every
// reload. Scroll listeners belong to the current inner document and are
// discarded with it.
type ScrollView interface {
	ScrollHeight() float64
	ScrollTo(left, top float64)
	OnScroll(fn func(left, top float64))
	SetOnLoad(fn func())
}

// Frame is an embedded navigable view containing child elements.
type Frame interface {
	Reload() error
	SetOnLoad(fn func())
	Element(id string) (any, bool)
}

// Player is the media playback element inside a Frame.
type Player interface {
	Play() error
	Pause() error
}

// TextElement exposes text content and notifies observers on any mutation.
type TextElement interface {
	Text() string
	Observe(fn func()) (cancel func())
}

// Field is a single-line text input that reports key presses.
type Field interface {
	Value() string
	SetValue(v string)
	OnKeyPress(fn func(key string) error)
}

// Document maps anchor IDs to elements.
type Document struct {
	elements map[string]any
}

// NewDocument creates an empty document
func NewDocument() *Document {
	return &Document{elements: make(map[string]any)}
}

// Register binds an element to an anchor ID, replacing any previous element.
func (d *Document) Register(id string, element any) {
	d.elements[id] = element
}

// Remove unbinds an anchor ID.
func (d *Document) Remove(id string) {
	delete(d.elements, id)
}

// Element returns the raw element registered under id.
func (d *Document) Element(id string) (any, bool) {
	el, ok := d.elements[id]
	return el, ok
}

// Lookup resolves id in d and asserts it to T.
func Lookup[T any](d *Document, id string) (T, error) {
	return resolve[T](d, id)
}

// Child resolves id among the current children of f.
func Child[T any](f Frame, id string) (T, error) {
	return resolve[T](f, id)
}

type container interface {
	Element(id string) (any, bool)
}

func resolve[T any](c container, id string) (T, error) {
	var zero T
	el, ok := c.Element(id)
	if !ok || el == nil {
		return zero, fmt.Errorf("%w: %s", ErrMissingAnchor, id)
	}
	typed, ok := el.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T", ErrWrongCapability, id, el)
	}
	return typed, nil
}
