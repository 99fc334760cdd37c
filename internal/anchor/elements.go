package anchor

import (
	"errors"
	"sync"
)

// Control is a clickable control. Activating it runs every registered
// handler in registration order; handler errors are joined.
type Control struct {
	id       string
	handlers []func() error
}

// NewControl creates a control with no handlers
func NewControl(id string) *Control {
	return &Control{id: id}
}

// ID returns the anchor ID the control was created for.
func (c *Control) ID() string {
	return c.id
}

// OnActivate appends a handler.
func (c *Control) OnActivate(fn func() error) {
	c.handlers = append(c.handlers, fn)
}

// Activate runs all handlers. A failing handler does not stop the others.
func (c *Control) Activate() error {
	var errs []error
	for _, fn := range c.handlers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Text is a mutation-observable text element. Every write notifies
// observers, including writes that leave the text unchanged.
type Text struct {
	mu        sync.Mutex
	text      string
	observers map[int]func()
	next      int
}

// NewText creates a text element with initial content
func NewText(initial string) *Text {
	return &Text{
		text:      initial,
		observers: make(map[int]func()),
	}
}

// Text returns the current content.
func (t *Text) Text() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.text
}

// SetText replaces the content and notifies observers.
func (t *Text) SetText(text string) {
	t.mu.Lock()
	t.text = text
	t.mu.Unlock()
	t.notify()
}

// Touch reports an attribute mutation without changing the content.
func (t *Text) Touch() {
	t.notify()
}

// Observe registers fn for mutation notifications. The returned function
// removes the registration.
func (t *Text) Observe(fn func()) (cancel func()) {
	t.mu.Lock()
	id := t.next
	t.next++
	t.observers[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.observers, id)
		t.mu.Unlock()
	}
}

func (t *Text) notify() {
	t.mu.Lock()
	observers := make([]func(), 0, len(t.observers))
	for _, fn := range t.observers {
		observers = append(observers, fn)
	}
	t.mu.Unlock()

	for _, fn := range observers {
		fn()
	}
}
