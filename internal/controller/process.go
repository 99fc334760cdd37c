package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/yourusername/chronos-console/internal/protocol"
)

// DefaultStopGrace is how long a stopping controller gets before it is killed
const DefaultStopGrace = 5 * time.Second

// ProcessBackend runs the controller as a local subprocess. Forwarded
// requests are written to its stdin as JSON lines.
type ProcessBackend struct {
	command []string
	grace   time.Duration
	logger  zerolog.Logger

	mu      sync.Mutex
	handler OutputHandler
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	cancel  context.CancelFunc
	done    chan struct{}
	started time.Time

	writeMu sync.Mutex
}

// NewProcessBackend creates a backend for command (program and arguments)
func NewProcessBackend(command []string, grace time.Duration, logger zerolog.Logger) *ProcessBackend {
	if grace <= 0 {
		grace = DefaultStopGrace
	}
	return &ProcessBackend{
		command: command,
		grace:   grace,
		logger:  logger.With().Str("component", "process-backend").Logger(),
	}
}

// SetOutputHandler sets the receiver of stdout, stderr and result messages
func (b *ProcessBackend) SetOutputHandler(h OutputHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
}

// Running reports whether the subprocess has been started and not yet exited
func (b *ProcessBackend) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cmd != nil
}

// Done is closed when the current subprocess exits. It returns nil when
// nothing is running.
func (b *ProcessBackend) Done() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cmd == nil {
		return nil
	}
	return b.done
}

// Start launches the controller and streams its output
func (b *ProcessBackend) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cmd != nil {
		return ErrAlreadyRunning
	}
	if len(b.command) == 0 {
		return errors.New("no controller command configured")
	}

	b.logger.Info().Strs("command", b.command).Msg("Starting controller")

	cmdCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(cmdCtx, b.command[0], b.command[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("failed to get stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start command: %w", err)
	}

	done := make(chan struct{})
	b.cmd = cmd
	b.stdin = stdin
	b.cancel = cancel
	b.done = done
	b.started = time.Now()

	go b.wait(cmd, stdout, stderr, cancel, done)
	return nil
}

// wait streams output until the pipes close, then reaps the process
func (b *ProcessBackend) wait(cmd *exec.Cmd, stdout, stderr io.Reader, cancel context.CancelFunc, done chan struct{}) {
	b.emit(protocol.NewStatusMessage(protocol.StateRunning))

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		b.streamOutput(stdout, protocol.TypeStdout)
	}()

	go func() {
		defer wg.Done()
		b.streamOutput(stderr, protocol.TypeStderr)
	}()

	wg.Wait()

	err := cmd.Wait()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
			b.logger.Error().Err(err).Msg("Controller wait failed")
		}
	}
	cancel()

	b.mu.Lock()
	started := b.started
	b.cmd = nil
	b.stdin = nil
	b.cancel = nil
	b.mu.Unlock()
	close(done)

	b.logger.Info().
		Int("exit_code", exitCode).
		Dur("duration", time.Since(started)).
		Msg("Controller finished")

	b.emit(protocol.NewStatusMessage(protocol.StateStopped))
	b.emit(protocol.NewResultMessage(exitCode))
}

// streamOutput reads from a pipe and sends each line to the handler
func (b *ProcessBackend) streamOutput(r io.Reader, msgType protocol.MessageType) {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for long lines
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if msgType == protocol.TypeStdout {
			b.emit(protocol.NewStdoutMessage(line))
		} else {
			b.emit(protocol.NewStderrMessage(line))
		}
	}

	if err := scanner.Err(); err != nil {
		b.logger.Warn().Err(err).Str("stream", string(msgType)).Msg("Scanner error")
	}
}

func (b *ProcessBackend) emit(msg protocol.OutboundMessage) {
	b.mu.Lock()
	h := b.handler
	b.mu.Unlock()
	if h != nil {
		h(msg)
	}
}

// Send writes req to the controller's stdin as one JSON line
func (b *ProcessBackend) Send(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	stdin := b.stdin
	b.mu.Unlock()
	if stdin == nil {
		return ErrNotRunning
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if _, err := stdin.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write request: %w", err)
	}

	b.logger.Debug().Str("command", req.Command).Msg("Request sent to controller")
	return nil
}

// Stop closes the controller's stdin and kills it if it has not exited
// within the grace period. It does not wait for the exit.
func (b *ProcessBackend) Stop(ctx context.Context) error {
	b.mu.Lock()
	if b.cmd == nil {
		b.mu.Unlock()
		return ErrNotRunning
	}
	stdin, cancel, done := b.stdin, b.cancel, b.done
	b.mu.Unlock()

	b.logger.Info().Dur("grace", b.grace).Msg("Stopping controller")

	b.writeMu.Lock()
	if err := stdin.Close(); err != nil {
		b.logger.Debug().Err(err).Msg("Failed to close controller stdin")
	}
	b.writeMu.Unlock()

	go func() {
		timer := time.NewTimer(b.grace)
		defer timer.Stop()

		select {
		case <-done:
		case <-timer.C:
			b.logger.Warn().Msg("Controller did not exit within grace period, killing")
			cancel()
		case <-ctx.Done():
			cancel()
		}
	}()
	return nil
}
