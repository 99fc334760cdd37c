package dashboard

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/yourusername/chronos-console/internal/anchor"
	"github.com/yourusername/chronos-console/internal/config"
	"github.com/yourusername/chronos-console/internal/controller"
	"github.com/yourusername/chronos-console/internal/metrics"
	"github.com/yourusername/chronos-console/internal/sentinel"
)

// programScheduler posts fn to the program as a message. It blocks until
// the program accepts it, so it must not be called from inside Update.
func programScheduler(p *tea.Program) anchor.Scheduler {
	return func(fn func()) {
		p.Send(taskMsg{fn: fn})
	}
}

// NewBackend picks the controller backend the configuration describes
func NewBackend(cfg *config.Config, logger zerolog.Logger) controller.Backend {
	if cfg.ControllerURL != "" {
		return controller.NewRemoteBackend(cfg.ControllerURL, logger)
	}
	return controller.NewProcessBackend(cfg.ControllerCommand, cfg.StopGrace, logger)
}

// Run starts the dashboard and the stream probe and blocks until the user
// quits or ctx is done.
func Run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The program is created before the model so the scheduler can reach
	// it; the model is installed through a forwarding wrapper.
	holder := &modelHolder{}
	p := tea.NewProgram(holder, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	model, err := New(ctx, cfg, NewBackend(cfg, logger), programScheduler(p), logger)
	if err != nil {
		return err
	}
	holder.model = model

	probe := sentinel.NewProbe(sentinel.ProbeConfig{
		Path:         cfg.PlaylistPath(),
		Mode:         cfg.Mode,
		PollInterval: cfg.PollInterval,
		ReadyMarker:  cfg.ReadyMarker,
		IdleMarker:   sentinel.IdleMarker,
	}, model.Sentinel(), logger)

	probeErrCh := make(chan error, 1)
	go func() {
		probeErrCh <- probe.Run(ctx)
	}()

	_, runErr := p.Run()
	cancel()
	probeErr := <-probeErrCh

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	if probeErr != nil && !errors.Is(probeErr, context.Canceled) {
		metrics.ErrorsTotal.WithLabelValues("probe").Inc()
		return probeErr
	}
	return nil
}

// modelHolder lets the program exist before the model it runs
type modelHolder struct {
	model *Model
}

func (h *modelHolder) Init() tea.Cmd {
	return h.model.Init()
}

func (h *modelHolder) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	_, cmd := h.model.Update(msg)
	return h, cmd
}

func (h *modelHolder) View() string {
	return h.model.View()
}
