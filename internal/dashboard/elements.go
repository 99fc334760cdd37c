package dashboard

import (
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// consoleView is the console-out element. Offsets are measured in lines.
// Every Reload replaces the inner document: the offset goes back to the
// top and the scroll listeners of the old document are dropped.
type consoleView struct {
	vp        viewport.Model
	lines     int
	left      float64
	onLoad    func()
	listeners []func(left, top float64)
}

func newConsoleView() *consoleView {
	vp := viewport.New(0, 0)
	vp.YPosition = 0
	return &consoleView{vp: vp}
}

func (v *consoleView) ScrollHeight() float64 {
	return float64(v.lines)
}

func (v *consoleView) ScrollTo(left, top float64) {
	v.move(func() {
		v.left = left
		v.vp.SetXOffset(int(math.Round(left)))
		v.vp.SetYOffset(int(math.Round(top)))
	})
}

func (v *consoleView) OnScroll(fn func(left, top float64)) {
	v.listeners = append(v.listeners, fn)
}

func (v *consoleView) SetOnLoad(fn func()) {
	v.onLoad = fn
}

// Reload swaps in content as a new document and fires the load listener.
func (v *consoleView) Reload(content string) {
	v.listeners = nil
	v.lines = 0
	if content != "" {
		v.lines = strings.Count(content, "\n") + 1
	}
	v.vp.SetContent(content)
	v.vp.SetYOffset(0)
	if v.onLoad != nil {
		v.onLoad()
	}
}

func (v *consoleView) setSize(width, height int) {
	v.vp.Width = width
	v.vp.Height = height
	// Re-clamp the offset for the new height
	v.move(func() { v.vp.SetYOffset(v.vp.YOffset) })
}

func (v *consoleView) offset() int {
	return v.vp.YOffset
}

// atBottom reports whether the last line is in view
func (v *consoleView) atBottom() bool {
	return v.vp.YOffset >= v.lines-v.vp.Height
}

// scrollBy moves the view by delta lines as the reader does.
func (v *consoleView) scrollBy(delta int) {
	v.move(func() { v.vp.SetYOffset(v.vp.YOffset + delta) })
}

func (v *consoleView) scrollToTop() {
	v.move(func() { v.vp.SetYOffset(0) })
}

func (v *consoleView) scrollToBottom() {
	v.move(func() { v.vp.SetYOffset(v.lines) })
}

// move runs fn and notifies the scroll listeners if the position changed.
func (v *consoleView) move(fn func()) {
	beforeTop, beforeLeft := v.vp.YOffset, v.left
	fn()
	if v.vp.YOffset == beforeTop && v.left == beforeLeft {
		return
	}
	top := float64(v.vp.YOffset)
	for _, l := range v.listeners {
		l(v.left, top)
	}
}

func (v *consoleView) View() string {
	return v.vp.View()
}

// commandField is the command-line-input element.
type commandField struct {
	input    textinput.Model
	handlers []func(key string) error
}

func newCommandField() *commandField {
	ti := textinput.New()
	ti.Placeholder = "Insert commands to be sent here"
	ti.Prompt = "› "
	ti.CharLimit = 256
	ti.Focus()
	return &commandField{input: ti}
}

func (f *commandField) Value() string {
	return f.input.Value()
}

func (f *commandField) SetValue(v string) {
	f.input.SetValue(v)
}

func (f *commandField) OnKeyPress(fn func(key string) error) {
	f.handlers = append(f.handlers, fn)
}

// press delivers a key to the listeners and then to the input itself.
// Every listener runs; the errors are joined.
func (f *commandField) press(msg tea.KeyMsg) (tea.Cmd, []error) {
	var errs []error
	for _, fn := range f.handlers {
		if err := fn(msg.String()); err != nil {
			errs = append(errs, err)
		}
	}
	if msg.Type == tea.KeyEnter {
		return nil, errs
	}
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return cmd, errs
}

func (f *commandField) focus() {
	f.input.Focus()
}

func (f *commandField) blur() {
	f.input.Blur()
}

func (f *commandField) setWidth(w int) {
	f.input.Width = w
}

func (f *commandField) View() string {
	return f.input.View()
}
