// Package dashboard is the terminal console: it owns the event loop, hosts
// every anchored element and wires the follow, reload and command components
// to them.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/yourusername/chronos-console/internal/anchor"
	"github.com/yourusername/chronos-console/internal/command"
	"github.com/yourusername/chronos-console/internal/config"
	"github.com/yourusername/chronos-console/internal/console"
	"github.com/yourusername/chronos-console/internal/controller"
	"github.com/yourusername/chronos-console/internal/follow"
	"github.com/yourusername/chronos-console/internal/media"
	"github.com/yourusername/chronos-console/internal/metrics"
	"github.com/yourusername/chronos-console/internal/sentinel"
)

// Messages
type taskMsg struct {
	fn func()
}

type refreshTickMsg time.Time

type loadFrameMsg struct{}

type statsTickMsg time.Time

// focusArea is the field receiving typed keys
type focusArea int

const (
	focusCommand focusArea = iota
	focusCount
	focusGroup
	focusAreas
)

// Model is the dashboard's bubbletea model
type Model struct {
	ctx    context.Context
	cfg    *config.Config
	theme  theme
	help   help.Model
	logger zerolog.Logger

	doc      *anchor.Document
	console  *consoleView
	input    *commandField
	agents   *agentPanel
	sentinel *anchor.Text
	frame    *media.Frame
	buffer   *console.Buffer
	rendered uint64

	controls map[string]*anchor.Control

	follow     *follow.Controller
	sync       *sentinel.Synchronizer
	router     *command.Router
	supervisor *controller.Supervisor

	width    int
	height   int
	focus    focusArea
	elapsed  int
	lastErr  error
	quitting bool
}

// New builds the document and binds every component to it. schedule must
// post work onto the program's event loop.
func New(ctx context.Context, cfg *config.Config, backend controller.Backend, schedule anchor.Scheduler, logger zerolog.Logger) (*Model, error) {
	m := &Model{
		ctx:      ctx,
		cfg:      cfg,
		theme:    newTheme(),
		help:     help.New(),
		logger:   logger.With().Str("component", "dashboard").Logger(),
		doc:      anchor.NewDocument(),
		console:  newConsoleView(),
		input:    newCommandField(),
		agents:   newAgentPanel(),
		sentinel: anchor.NewText(sentinel.IdleMarker),
		buffer:   console.New(cfg.ConsoleLimit),
		controls: make(map[string]*anchor.Control),
	}

	m.frame = media.NewFrame(media.FrameConfig{
		Source:        cfg.StreamSource(),
		PlayerID:      anchor.PlayerID,
		PlayerCommand: cfg.PlayerCommand,
	}, media.NewFetcher(logger), schedule, logger)

	m.doc.Register(anchor.ConsoleOut, m.console)
	m.doc.Register(anchor.CommandInput, m.input)
	m.doc.Register(anchor.StreamerText, m.sentinel)
	m.doc.Register(anchor.VideoStreamer, m.frame)
	for _, id := range []string{
		anchor.RefreshButton,
		anchor.SendButton,
		anchor.StartButton,
		anchor.StopButton,
		anchor.ClearButton,
		anchor.AddAgentButton,
	} {
		c := anchor.NewControl(id)
		m.controls[c.ID()] = c
		m.doc.Register(c.ID(), c)
	}

	m.supervisor = controller.NewSupervisor(backend, m.buffer, controller.SupervisorConfig{
		StreamDir:    cfg.StreamDir,
		PlaylistPath: cfg.PlaylistPath(),
	}, schedule, logger)

	m.controls[anchor.StartButton].OnActivate(func() error { return m.supervisor.Start(m.ctx) })
	m.controls[anchor.StopButton].OnActivate(func() error { return m.supervisor.Stop(m.ctx) })
	m.controls[anchor.ClearButton].OnActivate(m.supervisor.Clear)
	m.controls[anchor.SendButton].OnActivate(func() error { return m.supervisor.Send(m.ctx, m.input.Value()) })
	m.controls[anchor.RefreshButton].OnActivate(func() error { return m.supervisor.Refresh(m.ctx) })
	m.controls[anchor.AddAgentButton].OnActivate(m.agents.add)

	var err error
	m.follow, err = follow.New(m.doc, follow.NewState(cfg.FollowMargin, cfg.FollowTolerance), logger)
	if err != nil {
		return nil, err
	}

	m.sync, err = sentinel.NewSynchronizer(m.doc, sentinel.Options{
		ReadyMarker: cfg.ReadyMarker,
		PlayerID:    anchor.PlayerID,
	}, logger)
	if err != nil {
		return nil, err
	}
	m.sync.Bind(schedule)

	m.router, err = command.NewRouter(m.doc, logger)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Sentinel is the streamer-text element the stream probe writes to
func (m *Model) Sentinel() *anchor.Text {
	return m.sentinel
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return loadFrameMsg{} },
		m.refreshTick(),
		statsTick(),
		textinput.Blink,
	)
}

// statsTick drives the elapsed session counter, one step per second
func statsTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return statsTickMsg(t)
	})
}

func (m *Model) refreshTick() tea.Cmd {
	interval := m.cfg.ConsoleRefresh
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalculateLayout()

	case taskMsg:
		msg.fn()

	case loadFrameMsg:
		m.report(m.frame.Reload())

	case refreshTickMsg:
		m.renderConsole()
		cmds = append(cmds, m.refreshTick())

	case statsTickMsg:
		m.elapsed++
		cmds = append(cmds, statsTick())

	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.console.scrollBy(-3)
		case tea.MouseButtonWheelDown:
			m.console.scrollBy(3)
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			if !m.quitting {
				m.quitting = true
				// The session is reset on the way out, like a page unload.
				m.report(m.controls[anchor.RefreshButton].Activate())
			}
			return m, tea.Quit
		case key.Matches(msg, keys.Refresh):
			m.report(m.controls[anchor.RefreshButton].Activate())
		case key.Matches(msg, keys.NextField):
			m.setFocus((m.focus + 1) % focusAreas)
		case key.Matches(msg, keys.PrevField):
			m.setFocus((m.focus + focusAreas - 1) % focusAreas)
		case key.Matches(msg, keys.Up):
			m.console.scrollBy(-1)
		case key.Matches(msg, keys.Down):
			m.console.scrollBy(1)
		case key.Matches(msg, keys.PageUp):
			m.console.scrollBy(-m.pageSize())
		case key.Matches(msg, keys.PageDown):
			m.console.scrollBy(m.pageSize())
		case key.Matches(msg, keys.Top):
			m.console.scrollToTop()
		case key.Matches(msg, keys.Bottom):
			m.console.scrollToBottom()
		default:
			cmds = append(cmds, m.handleFieldKey(msg))
		}
	}

	return m, tea.Batch(cmds...)
}

// handleFieldKey delivers a key to the focused field
func (m *Model) handleFieldKey(msg tea.KeyMsg) tea.Cmd {
	switch m.focus {
	case focusCount:
		if key.Matches(msg, keys.Submit) {
			m.report(m.controls[anchor.AddAgentButton].Activate())
			return nil
		}
		var cmd tea.Cmd
		m.agents.count, cmd = m.agents.count.Update(msg)
		return cmd

	case focusGroup:
		switch {
		case key.Matches(msg, keys.Submit):
			m.report(m.controls[anchor.AddAgentButton].Activate())
		case key.Matches(msg, keys.Left):
			m.agents.cycleGroup(-1)
		case key.Matches(msg, keys.Right):
			m.agents.cycleGroup(1)
		}
		return nil

	default:
		cmd, errs := m.input.press(msg)
		m.report(errors.Join(errs...))
		// Submitted output shows up without waiting for the next tick
		if msg.Type == tea.KeyEnter {
			m.renderConsole()
		}
		return cmd
	}
}

func (m *Model) setFocus(f focusArea) {
	m.focus = f
	m.input.blur()
	m.agents.count.Blur()
	switch f {
	case focusCommand:
		m.input.focus()
	case focusCount:
		m.agents.count.Focus()
	}
}

// renderConsole reloads the console view when the buffer changed since the
// last load.
func (m *Model) renderConsole() {
	if m.buffer.Version() == m.rendered {
		return
	}
	m.rendered = m.buffer.Version()
	m.console.Reload(m.buffer.Render(m.formatLine))
}

func (m *Model) formatLine(l console.Line) string {
	switch l.Stream {
	case console.Stderr:
		return m.theme.danger.Render(l.Text)
	case console.System:
		return m.theme.info.Render(l.Text)
	default:
		return m.theme.text.Render(l.Text)
	}
}

// report logs err and echoes it on the console
func (m *Model) report(err error) {
	if err == nil {
		return
	}
	m.lastErr = err
	metrics.ErrorsTotal.WithLabelValues("dashboard").Inc()
	m.logger.Error().Err(err).Msg("Handler failed")
	m.buffer.Append(console.System, "error: "+err.Error())
}

func (m *Model) pageSize() int {
	if h := m.console.vp.Height; h > 1 {
		return h - 1
	}
	return 1
}

func (m *Model) recalculateLayout() {
	// header, media and input panels are 3 rows each, help is 1, and the
	// console panel adds 2 rows of border
	consoleHeight := m.height - 12
	if consoleHeight < 3 {
		consoleHeight = 3
	}
	consoleWidth := m.width - agentPanelWidth - 4
	if consoleWidth < 10 {
		consoleWidth = 10
	}

	pinned := m.console.atBottom()
	m.console.setSize(consoleWidth, consoleHeight)
	m.agents.setHeight(consoleHeight)
	m.input.setWidth(m.width - 8)
	m.help.Width = m.width

	if m.cfg.FollowMargin == 0 {
		m.follow.State().Margin = float64(consoleHeight)
	}
	// A reader at the bottom stays there across a resize
	if pinned {
		m.console.scrollToBottom()
	}
}

func (m *Model) View() string {
	if m.width == 0 {
		return "Starting Chronos console..."
	}

	panel := m.theme.panel.Width(m.width - 2)
	consolePanel := m.theme.panel.Width(m.width - agentPanelWidth - 2)
	agentsPanel := m.theme.panel.Width(agentPanelWidth - 2)
	return lipgloss.JoinVertical(lipgloss.Left,
		panel.Render(m.renderHeader()),
		lipgloss.JoinHorizontal(lipgloss.Top,
			consolePanel.Render(m.console.View()),
			agentsPanel.Render(m.agents.view(m.theme, m.focus, m.elapsed)),
		),
		panel.Render(m.renderMedia()),
		panel.Render(m.input.View()),
		m.theme.help.Render(m.help.View(keys)),
	)
}

func (m *Model) renderHeader() string {
	parts := []string{m.theme.title.Render("Chronos Console")}

	if m.supervisor.Running() {
		parts = append(parts, m.theme.ok.Render("controller running"))
	} else {
		parts = append(parts, m.theme.muted.Render("controller stopped"))
	}

	if m.sentinel.Text() == m.cfg.ReadyMarker {
		parts = append(parts, m.theme.ok.Render("stream ready"))
	} else {
		parts = append(parts, m.theme.muted.Render("stream idle"))
	}

	d := m.follow.Last()
	if d.Anchored {
		parts = append(parts, m.theme.info.Render("following"))
	} else if d.Snapshot.MaxScroll > 0 {
		parts = append(parts, m.theme.warn.Render("scrolled back"))
	}

	parts = append(parts, m.theme.muted.Render(fmt.Sprintf("lines=%d", m.buffer.Len())))
	return strings.Join(parts, "  |  ")
}

func (m *Model) renderMedia() string {
	parts := []string{m.theme.subtitle.Render("Stream")}

	if m.frame.Loading() {
		parts = append(parts, m.theme.warn.Render("loading"))
	}

	p := m.frame.Player()
	if p == nil {
		parts = append(parts, m.theme.muted.Render("not loaded"))
		return strings.Join(parts, "  |  ")
	}

	src := p.Source()
	parts = append(parts, m.theme.text.Render(src.Location))
	parts = append(parts, m.theme.muted.Render("loaded "+m.frame.LoadedAt().Format("15:04:05")))
	if src.Err != nil {
		parts = append(parts, m.theme.danger.Render("unavailable"))
	} else {
		pl := src.Playlist
		parts = append(parts, m.theme.muted.Render(fmt.Sprintf("seq=%d segments=%d target=%s",
			pl.MediaSequence, len(pl.Segments), pl.TargetDuration)))
	}

	switch p.State() {
	case media.StatePlaying:
		parts = append(parts, m.theme.highlight.Render(" playing "))
	case media.StatePaused:
		parts = append(parts, m.theme.warn.Render("paused"))
	default:
		parts = append(parts, m.theme.muted.Render("idle"))
	}
	return strings.Join(parts, "  |  ")
}
