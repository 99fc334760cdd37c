package dashboard

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/yourusername/chronos-console/internal/anchor"
	"github.com/yourusername/chronos-console/internal/config"
	"github.com/yourusername/chronos-console/internal/console"
	"github.com/yourusername/chronos-console/internal/controller"
	"github.com/yourusername/chronos-console/internal/media"
)

type fakeBackend struct {
	running bool
	sent    []controller.Request
}

func (f *fakeBackend) Start(ctx context.Context) error { f.running = true; return nil }

func (f *fakeBackend) Stop(ctx context.Context) error {
	if !f.running {
		return controller.ErrNotRunning
	}
	f.running = false
	return nil
}

func (f *fakeBackend) Send(ctx context.Context, req controller.Request) error {
	if !f.running {
		return controller.ErrNotRunning
	}
	f.sent = append(f.sent, req)
	return nil
}

func (f *fakeBackend) Running() bool                               { return f.running }
func (f *fakeBackend) SetOutputHandler(h controller.OutputHandler) {}

// testLoop stands in for the program: scheduled work waits until the test
// feeds it back through Update.
type testLoop struct {
	tasks chan func()
}

func (l *testLoop) schedule(fn func()) { l.tasks <- fn }

func (l *testLoop) runOne(t *testing.T, m *Model) {
	t.Helper()
	select {
	case fn := <-l.tasks:
		m.Update(taskMsg{fn: fn})
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for scheduled work")
	}
}

type modelFixture struct {
	m       *Model
	loop    *testLoop
	backend *fakeBackend
	cfg     *config.Config
}

func newModelFixture(t *testing.T) *modelFixture {
	t.Helper()
	cfg := config.Default()
	cfg.StreamDir = t.TempDir()
	cfg.ControllerCommand = []string{"true"}

	f := &modelFixture{
		loop:    &testLoop{tasks: make(chan func(), 16)},
		backend: &fakeBackend{},
		cfg:     cfg,
	}
	m, err := New(context.Background(), cfg, f.backend, f.loop.schedule, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.m = m

	// 22 rows leave a 10 line console
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 22})
	return f
}

func (f *modelFixture) appendLines(from, to int) {
	for i := from; i < to; i++ {
		f.m.buffer.Append(console.Stdout, fmt.Sprintf("line-%d", i))
	}
	f.m.Update(refreshTickMsg(time.Now()))
}

func (f *modelFixture) submit(t *testing.T, text string) {
	t.Helper()
	f.m.input.SetValue(text)
	f.m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if v := f.m.input.Value(); v != "" {
		t.Fatalf("input not cleared after submit: %q", v)
	}
}

func (f *modelFixture) writePlaylist(t *testing.T) {
	t.Helper()
	body := "#EXTM3U\n#EXT-X-TARGETDURATION:2\n#EXTINF:2,\nlive0.ts\n"
	if err := os.WriteFile(f.cfg.PlaylistPath(), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

// loadFrame completes the first navigation of the video view
func (f *modelFixture) loadFrame(t *testing.T) {
	t.Helper()
	f.m.Update(loadFrameMsg{})
	f.loop.runOne(t, f.m)
}

func (f *modelFixture) lastLine() string {
	lines := f.m.buffer.Lines()
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1].Text
}

func TestModelRegistersEveryAnchor(t *testing.T) {
	f := newModelFixture(t)
	for _, id := range []string{
		anchor.ConsoleOut, anchor.RefreshButton, anchor.CommandInput, anchor.SendButton,
		anchor.StartButton, anchor.StopButton, anchor.ClearButton, anchor.StreamerText,
		anchor.VideoStreamer, anchor.AddAgentButton,
	} {
		if _, ok := f.m.doc.Element(id); !ok {
			t.Errorf("anchor %s not registered", id)
		}
	}
	if got := f.m.follow.State().Margin; got != 10 {
		t.Errorf("follow margin = %v, want the console height 10", got)
	}
}

func TestModelFollowsNewOutput(t *testing.T) {
	f := newModelFixture(t)

	f.appendLines(0, 30)
	if got := f.m.console.offset(); got != 20 {
		t.Fatalf("offset after first load = %d, want 20", got)
	}

	f.appendLines(30, 35)
	if got := f.m.console.offset(); got != 25 {
		t.Errorf("offset after append = %d, want 25 (pinned to bottom)", got)
	}
	if !f.m.follow.Last().Anchored {
		t.Error("decision should be anchored")
	}
}

func TestModelPreservesReadingPosition(t *testing.T) {
	f := newModelFixture(t)
	f.appendLines(0, 30)

	for i := 0; i < 5; i++ {
		f.m.Update(tea.KeyMsg{Type: tea.KeyUp})
	}
	if got := f.m.console.offset(); got != 15 {
		t.Fatalf("offset after scrolling up = %d, want 15", got)
	}

	f.appendLines(30, 35)
	if got := f.m.console.offset(); got != 15 {
		t.Errorf("offset after append = %d, want 15 (position kept)", got)
	}

	f.m.Update(tea.KeyMsg{Type: tea.KeyEnd})
	f.appendLines(35, 40)
	if got := f.m.console.offset(); got != 30 {
		t.Errorf("offset after returning to bottom = %d, want 30", got)
	}
}

func TestModelMouseWheelScrolls(t *testing.T) {
	f := newModelFixture(t)
	f.appendLines(0, 30)

	f.m.Update(tea.MouseMsg{Button: tea.MouseButtonWheelUp, Action: tea.MouseActionPress})
	if got := f.m.console.offset(); got != 17 {
		t.Errorf("offset after wheel up = %d, want 17", got)
	}
	f.m.Update(tea.MouseMsg{Button: tea.MouseButtonWheelDown, Action: tea.MouseActionPress})
	if got := f.m.console.offset(); got != 20 {
		t.Errorf("offset after wheel down = %d, want 20", got)
	}
}

func TestModelCommandLine(t *testing.T) {
	f := newModelFixture(t)
	f.loadFrame(t)

	f.submit(t, "start")
	if !f.backend.running {
		t.Fatal("start did not start the controller")
	}
	if f.lastLine() != controller.StartingBanner {
		t.Errorf("last line = %q, want starting banner", f.lastLine())
	}

	f.submit(t, "create group1 7")
	if len(f.backend.sent) != 1 || f.backend.sent[0].AgentGroup != "group1" || f.backend.sent[0].ID != "7" {
		t.Errorf("sent = %+v", f.backend.sent)
	}
	if f.lastLine() != controller.CommandSentMessage {
		t.Errorf("last line = %q", f.lastLine())
	}

	f.submit(t, "dance")
	if f.lastLine() != "'dance' is not a valid command!" {
		t.Errorf("last line = %q", f.lastLine())
	}

	f.submit(t, "clear")
	if f.m.buffer.Len() != 0 {
		t.Errorf("buffer has %d lines after clear", f.m.buffer.Len())
	}

	f.submit(t, "stop")
	if f.backend.running {
		t.Error("stop did not stop the controller")
	}
	if f.lastLine() != controller.TerminatedBanner {
		t.Errorf("last line = %q, want terminated banner", f.lastLine())
	}
}

func TestModelTypingReachesInput(t *testing.T) {
	f := newModelFixture(t)
	f.m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("cle")})
	f.m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("ar")})
	if got := f.m.input.Value(); got != "clear" {
		t.Errorf("input = %q, want clear", got)
	}
}

func TestModelStreamReadyPlaysAndStopPauses(t *testing.T) {
	f := newModelFixture(t)
	f.writePlaylist(t)

	f.loadFrame(t)
	first := f.m.frame.Player()
	if first == nil {
		t.Fatal("no player after initial load")
	}

	f.m.Sentinel().SetText(f.cfg.ReadyMarker)
	f.loop.runOne(t, f.m) // mutation
	f.loop.runOne(t, f.m) // reload completion

	p := f.m.frame.Player()
	if p == first {
		t.Fatal("video view was not reloaded")
	}
	if p.State() != media.StatePlaying {
		t.Fatalf("player state = %v, want playing", p.State())
	}
	if loaded := f.m.frame.LoadedAt().Format("15:04:05"); !strings.Contains(f.m.View(), loaded) {
		t.Errorf("view missing %q", loaded)
	}

	f.submit(t, "stop")
	if p.State() != media.StatePaused {
		t.Errorf("player state = %v, want paused", p.State())
	}
	if f.m.frame.Player() != p || f.m.frame.Loads() != 2 {
		t.Error("stop should not navigate the video view")
	}
	if f.lastLine() != controller.NothingToStopMessage {
		t.Errorf("last line = %q", f.lastLine())
	}
}

func TestModelStopBeforeLoadReportsError(t *testing.T) {
	f := newModelFixture(t)

	f.submit(t, "stop")
	if f.m.lastErr == nil {
		t.Fatal("expected an error for a missing player")
	}
	if !strings.Contains(f.m.lastErr.Error(), anchor.PlayerID) {
		t.Errorf("lastErr = %v, want it to name the player", f.m.lastErr)
	}
}

func TestModelQuitRefreshesSession(t *testing.T) {
	f := newModelFixture(t)
	f.writePlaylist(t)
	f.backend.running = true

	_, cmd := f.m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c should quit")
	}
	if _, err := os.Stat(f.cfg.PlaylistPath()); !os.IsNotExist(err) {
		t.Error("playlist should be removed on quit")
	}
	if len(f.backend.sent) != 1 || f.backend.sent[0] != controller.StopStream {
		t.Errorf("sent = %+v, want [stop stream]", f.backend.sent)
	}
}

func TestModelView(t *testing.T) {
	f := newModelFixture(t)
	f.appendLines(0, 3)

	view := f.m.View()
	for _, want := range []string{
		"Chronos Console", "controller stopped", "stream idle", "line-2", "not loaded",
		"Agent ID", "Current elapsed time of session: 0",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModelResizeKeepsFollowing(t *testing.T) {
	f := newModelFixture(t)
	f.appendLines(0, 30)

	// 17 rows leave a 5 line console
	f.m.Update(tea.WindowSizeMsg{Width: 80, Height: 17})
	if got := f.m.console.offset(); got != 25 {
		t.Fatalf("offset after shrinking = %d, want 25", got)
	}

	f.appendLines(30, 35)
	if got := f.m.console.offset(); got != 30 {
		t.Errorf("offset after append = %d, want 30 (still following)", got)
	}
	if !f.m.follow.Last().Anchored {
		t.Error("decision after resize should be anchored")
	}
}

func TestModelResizeKeepsReadingPosition(t *testing.T) {
	f := newModelFixture(t)
	f.appendLines(0, 30)
	for i := 0; i < 5; i++ {
		f.m.Update(tea.KeyMsg{Type: tea.KeyUp})
	}

	f.m.Update(tea.WindowSizeMsg{Width: 80, Height: 17})
	if got := f.m.console.offset(); got != 15 {
		t.Errorf("offset after shrinking = %d, want 15", got)
	}
}

func TestModelAddAgents(t *testing.T) {
	f := newModelFixture(t)

	f.m.Update(tea.KeyMsg{Type: tea.KeyTab})
	f.m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")})
	f.m.Update(tea.KeyMsg{Type: tea.KeyTab})
	f.m.Update(tea.KeyMsg{Type: tea.KeyRight})
	f.m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	all := f.m.agents.roster.Agents()
	if len(all) != 2 || all[0].ID != 1 || all[1].ID != 2 || all[1].Group != "Agent Group 1" {
		t.Fatalf("roster = %+v", all)
	}
	if f.m.agents.count.Value() != "" || f.m.agents.group != -1 {
		t.Error("agent fields should be cleared after adding")
	}
	if f.m.agents.warning {
		t.Error("warning shown after a complete add")
	}
	if f.m.input.Value() != "" || f.m.buffer.Len() != 0 {
		t.Error("agent keys leaked into the command line")
	}

	// group still empty
	f.m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	f.m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("3")})
	f.m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if !f.m.agents.warning {
		t.Error("missing group should show the warning")
	}
	if f.m.agents.roster.Len() != 2 || f.m.lastErr != nil {
		t.Errorf("roster len = %d, lastErr = %v", f.m.agents.roster.Len(), f.m.lastErr)
	}
	if !strings.Contains(f.m.View(), MissingFieldsMessage) {
		t.Error("view should show the missing fields warning")
	}

	f.m.Update(tea.KeyMsg{Type: tea.KeyTab})
	f.m.Update(tea.KeyMsg{Type: tea.KeyTab})
	f.m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("start")})
	if f.m.input.Value() != "start" {
		t.Errorf("input = %q, focus should be back on the command line", f.m.input.Value())
	}
}

func TestModelElapsedSession(t *testing.T) {
	f := newModelFixture(t)
	for i := 0; i < 3; i++ {
		_, cmd := f.m.Update(statsTickMsg(time.Now()))
		if cmd == nil {
			t.Fatal("stats tick should schedule the next tick")
		}
	}
	if !strings.Contains(f.m.View(), "Current elapsed time of session: 3") {
		t.Error("view should show 3 elapsed seconds")
	}
}
