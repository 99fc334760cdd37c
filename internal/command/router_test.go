package command

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/yourusername/chronos-console/internal/anchor"
)

type fakeField struct {
	value    string
	handlers []func(key string) error
}

func (f *fakeField) Value() string     { return f.value }
func (f *fakeField) SetValue(v string) { f.value = v }
func (f *fakeField) OnKeyPress(fn func(key string) error) {
	f.handlers = append(f.handlers, fn)
}

func (f *fakeField) press(key string) error {
	for _, fn := range f.handlers {
		if err := fn(key); err != nil {
			return err
		}
	}
	return nil
}

type routerFixture struct {
	field     *fakeField
	router    *Router
	activated []string
	forwarded []string
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	f := &routerFixture{field: &fakeField{}}
	doc := anchor.NewDocument()
	doc.Register(anchor.CommandInput, f.field)

	for _, id := range []string{anchor.StartButton, anchor.StopButton, anchor.ClearButton, anchor.SendButton} {
		id := id
		control := anchor.NewControl(id)
		control.OnActivate(func() error {
			f.activated = append(f.activated, id)
			if id == anchor.SendButton {
				// The send control reads the input, as its real handler does.
				f.forwarded = append(f.forwarded, f.field.Value())
			}
			return nil
		})
		doc.Register(id, control)
	}

	r, err := NewRouter(doc, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	f.router = r
	return f
}

func TestRoute(t *testing.T) {
	tests := []struct {
		raw  string
		want Kind
	}{
		{raw: "start", want: KindStart},
		{raw: "stop", want: KindStop},
		{raw: "clear", want: KindClear},
		{raw: "  start", want: KindForward},
		{raw: "start ", want: KindForward},
		{raw: "Start", want: KindForward},
		{raw: "status agent1", want: KindForward},
		{raw: "create group1 4", want: KindForward},
		{raw: "", want: KindForward},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := Route(tt.raw)
			if got.Kind != tt.want {
				t.Errorf("Route(%q).Kind = %v, want %v", tt.raw, got.Kind, tt.want)
			}
			if got.Text != tt.raw {
				t.Errorf("Route(%q).Text = %q, want the raw text", tt.raw, got.Text)
			}
		})
	}
}

func TestRouterDispatchesExactlyOneControl(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		forward string
	}{
		{input: "start", want: anchor.StartButton},
		{input: "stop", want: anchor.StopButton},
		{input: "clear", want: anchor.ClearButton},
		{input: "  start", want: anchor.SendButton, forward: "  start"},
		{input: "status agent1", want: anchor.SendButton, forward: "status agent1"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			f := newRouterFixture(t)
			f.field.value = tt.input

			if err := f.field.press(SubmitKey); err != nil {
				t.Fatalf("press(enter) error = %v", err)
			}

			if len(f.activated) != 1 || f.activated[0] != tt.want {
				t.Fatalf("activated = %v, want [%s]", f.activated, tt.want)
			}
			if tt.forward != "" {
				if len(f.forwarded) != 1 || f.forwarded[0] != tt.forward {
					t.Errorf("forwarded = %q, want %q", f.forwarded, tt.forward)
				}
			}
			if f.field.value != "" {
				t.Errorf("input not cleared after submit: %q", f.field.value)
			}
		})
	}
}

func TestRouterIgnoresOtherKeys(t *testing.T) {
	f := newRouterFixture(t)
	f.field.value = "start"

	for _, key := range []string{"a", "tab", "ctrl+c", "Enter"} {
		if err := f.field.press(key); err != nil {
			t.Fatalf("press(%q) error = %v", key, err)
		}
	}
	if len(f.activated) != 0 {
		t.Errorf("activated = %v, want none", f.activated)
	}
	if f.field.value != "start" {
		t.Errorf("input changed to %q", f.field.value)
	}
}

func TestRouterReportsControlError(t *testing.T) {
	field := &fakeField{value: "start"}
	doc := anchor.NewDocument()
	doc.Register(anchor.CommandInput, field)
	for _, id := range []string{anchor.StartButton, anchor.StopButton, anchor.ClearButton, anchor.SendButton} {
		doc.Register(id, anchor.NewControl(id))
	}
	boom := errors.New("boom")
	start, _ := anchor.Lookup[*anchor.Control](doc, anchor.StartButton)
	start.OnActivate(func() error { return boom })

	r, err := NewRouter(doc, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}

	cmd, err := r.Submit()
	if !errors.Is(err, boom) {
		t.Errorf("Submit() error = %v, want boom", err)
	}
	if cmd.Kind != KindStart {
		t.Errorf("Submit().Kind = %v, want start", cmd.Kind)
	}
}

func TestNewRouterMissingAnchors(t *testing.T) {
	ids := []string{anchor.CommandInput, anchor.StartButton, anchor.StopButton, anchor.ClearButton, anchor.SendButton}

	for _, missing := range ids {
		t.Run(missing, func(t *testing.T) {
			doc := anchor.NewDocument()
			doc.Register(anchor.CommandInput, &fakeField{})
			for _, id := range ids[1:] {
				doc.Register(id, anchor.NewControl(id))
			}
			doc.Remove(missing)

			if _, err := NewRouter(doc, zerolog.Nop()); !errors.Is(err, anchor.ErrMissingAnchor) {
				t.Errorf("NewRouter() error = %v, want ErrMissingAnchor", err)
			}
		})
	}
}
