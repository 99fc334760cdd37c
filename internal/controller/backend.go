// Package controller supervises the Chronos controller behind the console's
// start, stop and send controls.
package controller

import (
	"context"
	"errors"

	"github.com/yourusername/chronos-console/internal/protocol"
)

var (
	// ErrNotRunning is returned when an operation needs a running controller
	ErrNotRunning = errors.New("controller is not running")

	// ErrAlreadyRunning is returned by Start on a running backend
	ErrAlreadyRunning = errors.New("controller is already running")
)

// OutputHandler is called for each message produced by a backend. It may be
// called from any goroutine.
type OutputHandler func(msg protocol.OutboundMessage)

// Backend runs a controller and carries commands to it
type Backend interface {
	Start(ctx context.Context) error
	// Stop begins shutdown and returns without waiting for the controller
	// to exit. Exit is reported through a result message.
	Stop(ctx context.Context) error
	Send(ctx context.Context, req Request) error
	Running() bool
	SetOutputHandler(h OutputHandler)
}
