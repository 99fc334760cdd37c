package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FollowDecisionsTotal tracks follow-mode decisions per console reload
	FollowDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chronos_console_follow_decisions_total",
			Help: "Total number of console reloads by follow decision",
		},
		[]string{"decision"}, // anchored, preserved
	)

	// SentinelMutationsTotal tracks sentinel change notifications handled
	SentinelMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chronos_console_sentinel_mutations_total",
			Help: "Total number of sentinel mutations observed",
		},
		[]string{"value"}, // ready, idle, other
	)

	// MediaReloadsTotal tracks media view navigations
	MediaReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chronos_console_media_reloads_total",
			Help: "Total number of media view reloads",
		},
		[]string{"status"}, // requested, started, loaded
	)

	// PlayerActionsTotal tracks play/pause calls on the player element
	PlayerActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chronos_console_player_actions_total",
			Help: "Total number of player actions",
		},
		[]string{"action"}, // play, pause
	)

	// CommandsTotal tracks routed command-line submissions
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chronos_console_commands_total",
			Help: "Total number of submitted commands by dispatched action",
		},
		[]string{"action"}, // start, stop, clear, forward
	)

	// ControllerLinesTotal tracks controller output lines
	ControllerLinesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chronos_console_controller_lines_total",
			Help: "Total number of controller output lines received",
		},
		[]string{"stream"}, // stdout, stderr, system
	)

	// ControllerRunning tracks whether the controller is running
	ControllerRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chronos_console_controller_running",
			Help: "Controller state (1 = running, 0 = stopped)",
		},
	)

	// AgentsTotal tracks the agents added from the agent panel
	AgentsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chronos_console_agents",
			Help: "Number of agents in the roster",
		},
	)

	// PlaylistFetchDuration tracks playlist navigation duration
	PlaylistFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chronos_console_playlist_fetch_duration_seconds",
			Help:    "Duration of playlist fetches performed by the media view",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"scheme"}, // file, http
	)

	// ErrorsTotal tracks errors by type
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chronos_console_errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"type"}, // anchor, navigation, controller, transport, probe, dashboard
	)

	// HealthStatus tracks overall health
	HealthStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chronos_console_healthy",
			Help: "Health status of the console (1 = healthy, 0 = unhealthy)",
		},
	)
)

func init() {
	// Initialize health as healthy
	HealthStatus.Set(1)
}
