package media

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// ErrNoMedia is returned by Play when the frame's playlist did not load
var ErrNoMedia = errors.New("no playable media")

// State is the playback state of a Player
type State string

const (
	StateIdle    State = "idle"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

// Source is what a frame navigation produced
type Source struct {
	Location string
	Playlist *Playlist
	Err      error
}

// Player is the media element inside a loaded frame. When a command is
// configured it is launched on Play and killed on Pause; "{url}" in its
// arguments is replaced by the source location.
type Player struct {
	source  Source
	command []string
	logger  zerolog.Logger

	mu    sync.Mutex
	state State
	cmd   *exec.Cmd
}

// NewPlayer creates an idle player for src
func NewPlayer(src Source, command []string, logger zerolog.Logger) *Player {
	return &Player{
		source:  src,
		command: command,
		state:   StateIdle,
		logger:  logger.With().Str("component", "player").Logger(),
	}
}

// Source returns the media the player was created for
func (p *Player) Source() Source {
	return p.source
}

// State returns the playback state
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Play starts playback. Playing an already playing player is a no-op.
func (p *Player) Play() error {
	if p.source.Err != nil {
		return fmt.Errorf("%w: %v", ErrNoMedia, p.source.Err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StatePlaying {
		return nil
	}

	if len(p.command) > 0 {
		args := make([]string, len(p.command))
		for i, arg := range p.command {
			args[i] = strings.ReplaceAll(arg, "{url}", p.source.Location)
		}
		cmd := exec.Command(args[0], args[1:]...)
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("failed to start player command: %w", err)
		}
		p.cmd = cmd
		go p.reap(cmd)
		p.logger.Info().Strs("command", args).Msg("Player command started")
	}

	p.state = StatePlaying
	return nil
}

// Pause stops playback, killing the player command if one is running
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		if err := p.cmd.Process.Kill(); err != nil {
			p.logger.Debug().Err(err).Msg("Player command already exited")
		}
		p.cmd = nil
	}
	if p.state == StatePlaying {
		p.state = StatePaused
	}
	return nil
}

// reap waits for cmd and marks the player idle if it ended on its own
func (p *Player) reap(cmd *exec.Cmd) {
	err := cmd.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != cmd {
		return
	}
	p.cmd = nil
	if p.state == StatePlaying {
		p.state = StateIdle
	}
	p.logger.Info().Err(err).Msg("Player command exited")
}
