package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/yctrl/internal/config"
	"github.com/1broseidon/yctrl/internal/ipc"
)

type nopHider struct{}

func (nopHider) HideFrontmost(context.Context) error { return nil }

type recordingLauncher struct {
	mu    sync.Mutex
	argvs [][]string
}

func (l *recordingLauncher) Launch(argv []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.argvs = append(l.argvs, argv)
	return nil
}

func testSettings(dir string) *config.Settings {
	return &config.Settings{
		Socket: filepath.Join(dir, "c.sock"),
		Manager: config.ManagerSettings{
			// Nothing listens here: every yabai call fails fast.
			Socket:  filepath.Join(dir, "yabai.sock"),
			Timeout: 200 * time.Millisecond,
		},
		ConnTimeout: 2 * time.Second,
		Log:         config.LogSettings{Level: "debug"},
		Seed:        filepath.Join(dir, "config.yaml"),
		WatchSeed:   true,
	}
}

func startDaemon(t *testing.T, settings *config.Settings) *ipc.Client {
	t.Helper()
	d, err := New(settings, Options{Logger: testLogger(), Hider: nopHider{}, Launcher: &recordingLauncher{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Run did not return after cancel")
		}
		if _, err := os.Stat(settings.Socket); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("control socket left behind: %v", err)
		}
	})

	client := ipc.NewClient(settings.Socket).WithTimeout(time.Second)
	waitFor(t, "daemon to accept requests", func() bool {
		_, err := client.Status(context.Background())
		return err == nil
	})
	return client
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func writeSeed(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestDaemon_AppliesSeedAndServesConfig(t *testing.T) {
	dir := t.TempDir()
	settings := testSettings(dir)
	writeSeed(t, settings.Seed, `
auto_close_empty_spaces: false
scratchpads:
  - tag: term
    kind: app
    target: Terminal
    command: open -na Terminal
`)
	client := startDaemon(t, settings)
	ctx := context.Background()

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.AutoCloseEmptySpaces {
		t.Error("seed value auto_close_empty_spaces=false not applied")
	}
	if len(status.Scratchpads) != 1 || status.Scratchpads[0].Tag != "term" {
		t.Fatalf("scratchpads = %+v", status.Scratchpads)
	}

	if err := client.SetConfig(ctx, config.KeyScratchpadLaunchTimeout, "3"); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	v, err := client.GetConfig(ctx, config.KeyScratchpadLaunchTimeout)
	if err != nil || v != "3" {
		t.Fatalf("GetConfig = %q, %v", v, err)
	}

	var rerr *ipc.RemoteError
	if err := client.Toggle(ctx, "nope"); !errors.As(err, &rerr) {
		t.Fatalf("Toggle unknown tag error = %v, want *ipc.RemoteError", err)
	}
	if err := client.Event(ctx, "banana"); !errors.As(err, &rerr) {
		t.Fatalf("Event banana error = %v, want *ipc.RemoteError", err)
	}
}

func TestDaemon_ReloadsSeedOnChange(t *testing.T) {
	dir := t.TempDir()
	settings := testSettings(dir)
	client := startDaemon(t, settings)
	ctx := context.Background()

	writeSeed(t, settings.Seed, "scratchpad_grid: \"4:4:2:2:1:2\"\n")

	waitFor(t, "seed reload", func() bool {
		v, err := client.GetConfig(ctx, config.KeyScratchpadGrid)
		return err == nil && v == "4:4:2:2:1:2"
	})
}

func TestDaemon_InvalidSeedKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	settings := testSettings(dir)
	settings.WatchSeed = false
	writeSeed(t, settings.Seed, "scratchpad_grid: \"1:1:0:0:2:2\"\n")

	client := startDaemon(t, settings)
	v, err := client.GetConfig(context.Background(), config.KeyScratchpadGrid)
	if err != nil || v != config.DefaultScratchpadGrid {
		t.Fatalf("grid = %q, %v; want default", v, err)
	}
}

func TestDaemon_BindFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	settings := testSettings(dir)
	settings.Socket = filepath.Join(dir, "missing", "c.sock")

	d, err := New(settings, Options{Logger: testLogger(), Hider: nopHider{}, Launcher: &recordingLauncher{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Run(context.Background()); err == nil {
		t.Fatal("expected bind error")
	}
}
