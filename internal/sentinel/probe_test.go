package sentinel

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordingWriter struct {
	mu     sync.Mutex
	values []string
}

func (w *recordingWriter) SetText(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.values = append(w.values, text)
}

func (w *recordingWriter) snapshot() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.values...)
}

func TestProbeCheckWritesOnTransitions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live.m3u8")
	out := &recordingWriter{}
	p := NewProbe(ProbeConfig{Path: path, Mode: "poll"}, out, zerolog.Nop())

	if p.Check() {
		t.Fatal("Check() wrote while the playlist is absent from the start")
	}

	if err := os.WriteFile(path, []byte("#EXTM3U\n"), 0644); err != nil {
		t.Fatalf("failed to write playlist: %v", err)
	}
	if !p.Check() {
		t.Fatal("Check() did not write when the playlist appeared")
	}
	if p.Check() {
		t.Fatal("Check() wrote again without a transition")
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("failed to remove playlist: %v", err)
	}
	if !p.Check() {
		t.Fatal("Check() did not write when the playlist went away")
	}

	got := out.snapshot()
	want := []string{ReadyMarker, IdleMarker}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("writes = %q, want %q", got, want)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestProbeModes(t *testing.T) {
	for _, mode := range []string{"poll", "watch"} {
		t.Run(mode, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "live.m3u8")
			out := &recordingWriter{}
			p := NewProbe(ProbeConfig{
				Path:         path,
				Mode:         mode,
				PollInterval: 20 * time.Millisecond,
			}, out, zerolog.Nop())

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			done := make(chan error, 1)
			go func() { done <- p.Run(ctx) }()

			// Give the watcher time to register the directory.
			time.Sleep(50 * time.Millisecond)

			if err := os.WriteFile(path, []byte("#EXTM3U\n"), 0644); err != nil {
				t.Fatalf("failed to write playlist: %v", err)
			}
			waitFor(t, 2*time.Second, func() bool {
				v := out.snapshot()
				return len(v) == 1 && v[0] == ReadyMarker
			})

			if err := os.Remove(path); err != nil {
				t.Fatalf("failed to remove playlist: %v", err)
			}
			waitFor(t, 2*time.Second, func() bool {
				v := out.snapshot()
				return len(v) == 2 && v[1] == IdleMarker
			})

			cancel()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("probe did not stop after cancel")
			}
		})
	}
}
