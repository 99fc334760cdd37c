package controller

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/yourusername/chronos-console/internal/anchor"
	"github.com/yourusername/chronos-console/internal/console"
	"github.com/yourusername/chronos-console/internal/metrics"
	"github.com/yourusername/chronos-console/internal/protocol"
)

// Console messages
const (
	StartingBanner   = "-----### CHRONOS IS STARTING ###-----"
	TerminatedBanner = "-----### CHRONOS HAS TERMINATED ###-----"

	AlreadyRunningMessage = "Chronos is already running!"
	NothingToStopMessage  = "Nothing to stop, please start Chronos!"
	NoCommandMessage      = "You have not inserted any commands!"
	CommandSentMessage    = "Your command has been sent!"
	NotRunningMessage     = "Chronos is not running, the command was not sent!"

	// A controller prints this line when it wants to be shut down
	stopLine = "stop chronos"
)

// SupervisorConfig locates the stream files the supervisor resets
type SupervisorConfig struct {
	StreamDir    string
	PlaylistPath string
}

// Supervisor owns the controller lifecycle and reports to the console.
// Its methods run on the event loop.
type Supervisor struct {
	backend Backend
	buffer  *console.Buffer
	cfg     SupervisorConfig
	logger  zerolog.Logger
}

// NewSupervisor creates a supervisor. Backend output is posted through
// schedule before it touches the console.
func NewSupervisor(backend Backend, buffer *console.Buffer, cfg SupervisorConfig, schedule anchor.Scheduler, logger zerolog.Logger) *Supervisor {
	s := &Supervisor{
		backend: backend,
		buffer:  buffer,
		cfg:     cfg,
		logger:  logger.With().Str("component", "supervisor").Logger(),
	}
	backend.SetOutputHandler(func(msg protocol.OutboundMessage) {
		schedule(func() { s.HandleOutput(msg) })
	})
	return s
}

// Running reports whether the controller is running
func (s *Supervisor) Running() bool {
	return s.backend.Running()
}

// Start resets the stream directory and starts the controller
func (s *Supervisor) Start(ctx context.Context) error {
	if s.backend.Running() {
		s.system(AlreadyRunningMessage)
		return nil
	}

	if err := s.resetStreamDir(); err != nil {
		metrics.ErrorsTotal.WithLabelValues("controller").Inc()
		return fmt.Errorf("failed to reset stream directory: %w", err)
	}

	s.system(StartingBanner)
	if err := s.backend.Start(ctx); err != nil {
		metrics.ErrorsTotal.WithLabelValues("controller").Inc()
		s.buffer.Append(console.Stderr, err.Error())
		return fmt.Errorf("failed to start controller: %w", err)
	}

	metrics.ControllerRunning.Set(1)
	s.logger.Info().Msg("Controller started")
	return nil
}

// Stop asks the controller to stop streaming and shuts it down
func (s *Supervisor) Stop(ctx context.Context) error {
	if !s.backend.Running() {
		s.system(NothingToStopMessage)
		return nil
	}
	return s.terminate(ctx)
}

func (s *Supervisor) terminate(ctx context.Context) error {
	if err := s.backend.Send(ctx, StopStream); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to send stop stream")
	}
	if err := s.backend.Stop(ctx); err != nil && !errors.Is(err, ErrNotRunning) {
		metrics.ErrorsTotal.WithLabelValues("controller").Inc()
		return fmt.Errorf("failed to stop controller: %w", err)
	}

	metrics.ControllerRunning.Set(0)
	s.system(TerminatedBanner)
	s.logger.Info().Msg("Controller stopped")
	return nil
}

// Send validates text and forwards it to the controller
func (s *Supervisor) Send(ctx context.Context, text string) error {
	req, err := ParseRequest(text)
	switch {
	case errors.Is(err, ErrEmptyCommand):
		s.system(NoCommandMessage)
		return nil
	case errors.Is(err, ErrInvalidCommand):
		s.system(fmt.Sprintf("'%s' is not a valid command!", text))
		return nil
	case err != nil:
		return err
	}

	if req != nil {
		if err := s.backend.Send(ctx, *req); err != nil {
			if errors.Is(err, ErrNotRunning) {
				s.system(NotRunningMessage)
				return nil
			}
			metrics.ErrorsTotal.WithLabelValues("controller").Inc()
			return fmt.Errorf("failed to send %s: %w", req.Command, err)
		}
		s.logger.Info().
			Str("command", req.Command).
			Str("agent_group", req.AgentGroup).
			Str("id", req.ID).
			Msg("Command forwarded")
	}

	s.system(CommandSentMessage)
	return nil
}

// Refresh resets the session: the stream is told to stop and the playlist
// is removed so the stream probe goes idle.
func (s *Supervisor) Refresh(ctx context.Context) error {
	if s.backend.Running() {
		if err := s.backend.Send(ctx, StopStream); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to send stop stream")
		}
	}
	if s.cfg.PlaylistPath == "" {
		return nil
	}
	if err := os.Remove(s.cfg.PlaylistPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		metrics.ErrorsTotal.WithLabelValues("controller").Inc()
		return fmt.Errorf("failed to remove playlist: %w", err)
	}
	s.logger.Info().Str("playlist", s.cfg.PlaylistPath).Msg("Session refreshed")
	return nil
}

// Clear empties the console
func (s *Supervisor) Clear() error {
	s.buffer.Clear()
	return nil
}

// HandleOutput applies one controller message to the console
func (s *Supervisor) HandleOutput(msg protocol.OutboundMessage) {
	switch msg.Type {
	case protocol.TypeStdout:
		if msg.Data == stopLine {
			if err := s.terminate(context.Background()); err != nil {
				s.logger.Error().Err(err).Msg("Failed to stop controller on request")
			}
			return
		}
		metrics.ControllerLinesTotal.WithLabelValues(string(console.Stdout)).Inc()
		s.buffer.Append(console.Stdout, msg.Data)

	case protocol.TypeStderr:
		metrics.ControllerLinesTotal.WithLabelValues(string(console.Stderr)).Inc()
		s.buffer.Append(console.Stderr, msg.Data)

	case protocol.TypeStatus:
		switch msg.Data {
		case protocol.StateRunning:
			metrics.ControllerRunning.Set(1)
		case protocol.StateStopped:
			metrics.ControllerRunning.Set(0)
		default:
			s.logger.Warn().Str("state", msg.Data).Msg("Unknown controller state")
		}

	case protocol.TypeResult:
		metrics.ControllerRunning.Set(0)
		if msg.ExitCode != nil && *msg.ExitCode != 0 {
			s.system(fmt.Sprintf("Chronos exited with code %d", *msg.ExitCode))
		}
		s.logger.Info().Interface("exit_code", msg.ExitCode).Msg("Controller exited")

	case protocol.TypeError:
		metrics.ErrorsTotal.WithLabelValues("controller").Inc()
		s.buffer.Append(console.Stderr, msg.Error)
	}
}

func (s *Supervisor) system(text string) {
	metrics.ControllerLinesTotal.WithLabelValues(string(console.System)).Inc()
	s.buffer.Append(console.System, text)
}

// resetStreamDir empties the stream directory, keeping the directory itself
// so a watch on it survives.
func (s *Supervisor) resetStreamDir() error {
	if s.cfg.StreamDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.cfg.StreamDir, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(s.cfg.StreamDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(s.cfg.StreamDir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}
