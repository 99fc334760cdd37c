// Package command routes command-line submissions to the dashboard controls.
package command

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yourusername/chronos-console/internal/anchor"
	"github.com/yourusername/chronos-console/internal/metrics"
)

// SubmitKey is the key that submits the command line
const SubmitKey = "enter"

// Kind identifies the dispatched action
type Kind string

const (
	KindStart   Kind = "start"
	KindStop    Kind = "stop"
	KindClear   Kind = "clear"
	KindForward Kind = "forward"
)

// Command is the routed form of one submission.
type Command struct {
	Kind Kind
	Text string // raw input, verbatim
}

// Route maps raw input to a command. Comparison is exact: no trimming and
// no case folding, so " start" is forwarded as text.
func Route(raw string) Command {
	switch raw {
	case "start":
		return Command{Kind: KindStart, Text: raw}
	case "stop":
		return Command{Kind: KindStop, Text: raw}
	case "clear":
		return Command{Kind: KindClear, Text: raw}
	default:
		return Command{Kind: KindForward, Text: raw}
	}
}

// Router dispatches submissions from the command input to exactly one
// control each.
type Router struct {
	input    anchor.Field
	controls map[Kind]*anchor.Control
	logger   zerolog.Logger
}

// NewRouter resolves the command input and the four controls in doc and
// subscribes to the input's key presses.
func NewRouter(doc *anchor.Document, logger zerolog.Logger) (*Router, error) {
	input, err := anchor.Lookup[anchor.Field](doc, anchor.CommandInput)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("anchor").Inc()
		return nil, fmt.Errorf("command router: %w", err)
	}

	ids := map[Kind]string{
		KindStart:   anchor.StartButton,
		KindStop:    anchor.StopButton,
		KindClear:   anchor.ClearButton,
		KindForward: anchor.SendButton,
	}
	controls := make(map[Kind]*anchor.Control, len(ids))
	for kind, id := range ids {
		control, err := anchor.Lookup[*anchor.Control](doc, id)
		if err != nil {
			metrics.ErrorsTotal.WithLabelValues("anchor").Inc()
			return nil, fmt.Errorf("command router: %w", err)
		}
		controls[kind] = control
	}

	r := &Router{
		input:    input,
		controls: controls,
		logger:   logger.With().Str("component", "command-router").Logger(),
	}
	input.OnKeyPress(r.HandleKey)
	return r, nil
}

// HandleKey submits the input when key is the submit key and ignores every
// other key.
func (r *Router) HandleKey(key string) error {
	if key != SubmitKey {
		return nil
	}
	_, err := r.Submit()
	return err
}

// Submit routes the current input value and activates the matching control.
// The input is cleared once the control has run.
func (r *Router) Submit() (Command, error) {
	cmd := Route(r.input.Value())
	metrics.CommandsTotal.WithLabelValues(string(cmd.Kind)).Inc()

	r.logger.Info().
		Str("action", string(cmd.Kind)).
		Str("text", cmd.Text).
		Msg("Command submitted")

	err := r.controls[cmd.Kind].Activate()
	r.input.SetValue("")
	if err != nil {
		return cmd, fmt.Errorf("%s: %w", cmd.Kind, err)
	}
	return cmd, nil
}
