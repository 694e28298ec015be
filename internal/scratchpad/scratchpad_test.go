package scratchpad

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/yctrl/internal/config"
	"github.com/1broseidon/yctrl/internal/wire"
	"github.com/1broseidon/yctrl/internal/yabai"
)

type fakeManager struct {
	mu sync.Mutex

	focused    yabai.Window
	focusedErr error
	windows    []yabai.Window
	ruleErrs   map[string]error

	minimized []uint32
	focusSel  []string
	rules     [][]string
}

func (f *fakeManager) FocusedWindow(context.Context) (yabai.Window, error) {
	return f.focused, f.focusedErr
}

func (f *fakeManager) Windows(context.Context, yabai.Scope) ([]yabai.Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]yabai.Window(nil), f.windows...), nil
}

func (f *fakeManager) MinimizeWindow(_ context.Context, id uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.minimized = append(f.minimized, id)
	return nil
}

func (f *fakeManager) FocusWindow(_ context.Context, sel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.focusSel = append(f.focusSel, sel)
	return nil
}

func (f *fakeManager) AddRule(_ context.Context, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, args)
	return f.ruleErrs[args[0]]
}

type fakeLauncher struct {
	mu       sync.Mutex
	launched [][]string
	err      error
	onLaunch func()
}

func (l *fakeLauncher) Launch(argv []string) error {
	l.mu.Lock()
	l.launched = append(l.launched, argv)
	l.mu.Unlock()
	if l.onLaunch != nil {
		l.onLaunch()
	}
	return l.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func termStore(t *testing.T) *config.Store {
	t.Helper()
	store := config.NewStore(config.Default(), nil)
	payload := `[{tag:'term',kind:'app',target:'Terminal',command:['open','-na','Terminal'],timeout:1}]`
	if err := store.Set(context.Background(), config.KeyScratchpads, []string{payload}); err != nil {
		t.Fatalf("Set scratchpads: %v", err)
	}
	return store
}

func newToggler(t *testing.T, mgr *fakeManager, launcher *fakeLauncher) *Toggler {
	t.Helper()
	tg := NewToggler(mgr, termStore(t), launcher, Options{PollInterval: 5 * time.Millisecond, Logger: discardLogger()})
	t.Cleanup(tg.Close)
	return tg
}

func TestToggle_HidesFocusedScratchpad(t *testing.T) {
	mgr := &fakeManager{focused: yabai.Window{ID: 42, App: "Terminal", Title: "zsh"}}
	launcher := &fakeLauncher{}
	tg := newToggler(t, mgr, launcher)

	if err := tg.Toggle(context.Background(), "term"); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !reflect.DeepEqual(mgr.minimized, []uint32{42}) {
		t.Fatalf("minimized = %v, want [42]", mgr.minimized)
	}
	if len(launcher.launched) != 0 {
		t.Fatalf("launched = %v, want nothing", launcher.launched)
	}
}

func TestToggle_LaunchesWhenNotShowing(t *testing.T) {
	mgr := &fakeManager{focused: yabai.Window{ID: 7, App: "Finder", Title: "Downloads"}}
	launcher := &fakeLauncher{}
	launcher.onLaunch = func() {
		mgr.mu.Lock()
		mgr.windows = []yabai.Window{{ID: 7, App: "Finder"}, {ID: 99, App: "Terminal"}}
		mgr.mu.Unlock()
	}
	tg := newToggler(t, mgr, launcher)

	if err := tg.Toggle(context.Background(), "term"); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if len(mgr.minimized) != 0 {
		t.Fatalf("minimized = %v, want nothing", mgr.minimized)
	}
	if want := [][]string{{"open", "-na", "Terminal"}}; !reflect.DeepEqual(launcher.launched, want) {
		t.Fatalf("launched = %q, want %q", launcher.launched, want)
	}

	tg.Wait()
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if !reflect.DeepEqual(mgr.focusSel, []string{"99"}) {
		t.Fatalf("focused = %v, want [99]", mgr.focusSel)
	}
}

func TestToggle_WaitGivesUpAfterTimeout(t *testing.T) {
	mgr := &fakeManager{focused: yabai.Window{App: "Finder"}}
	tg := newToggler(t, mgr, &fakeLauncher{})

	start := time.Now()
	if err := tg.Toggle(context.Background(), "term"); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("Toggle blocked for %v", elapsed)
	}

	tg.Wait()
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Fatalf("wait returned after %v, before the 1s timeout", elapsed)
	}
	if len(mgr.focusSel) != 0 {
		t.Fatalf("focused = %v, want nothing", mgr.focusSel)
	}
}

func TestToggle_NoFocusedWindowLaunches(t *testing.T) {
	mgr := &fakeManager{focusedErr: &wire.ManagerError{Message: "could not retrieve window details."}}
	launcher := &fakeLauncher{}
	tg := newToggler(t, mgr, launcher)

	if err := tg.Toggle(context.Background(), "term"); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if len(launcher.launched) != 1 {
		t.Fatalf("launched = %v, want one launch", launcher.launched)
	}
}

func TestToggle_TransportErrorIsReturned(t *testing.T) {
	mgr := &fakeManager{focusedErr: errors.New("failed to connect to yabai")}
	launcher := &fakeLauncher{}
	tg := newToggler(t, mgr, launcher)

	if err := tg.Toggle(context.Background(), "term"); err == nil {
		t.Fatal("expected error")
	}
	if len(launcher.launched) != 0 {
		t.Fatalf("launched = %v, want nothing", launcher.launched)
	}
}

func TestToggle_UnknownTag(t *testing.T) {
	mgr := &fakeManager{}
	tg := newToggler(t, mgr, &fakeLauncher{})

	err := tg.Toggle(context.Background(), "banana")
	var serr *config.UnknownScratchpadError
	if !errors.As(err, &serr) {
		t.Fatalf("error = %v, want *config.UnknownScratchpadError", err)
	}
}

func TestToggle_LaunchError(t *testing.T) {
	mgr := &fakeManager{focused: yabai.Window{App: "Finder"}}
	tg := newToggler(t, mgr, &fakeLauncher{err: errors.New("no such file")})

	if err := tg.Toggle(context.Background(), "term"); err == nil {
		t.Fatal("expected launch error")
	}
	tg.Wait()
	if len(mgr.focusSel) != 0 {
		t.Fatal("waited for a window after a failed launch")
	}
}

func TestRegisterRules_FailureDoesNotStopOthers(t *testing.T) {
	mgr := &fakeManager{ruleErrs: map[string]error{
		"app=^B$": &wire.ManagerError{Message: "invalid rule"},
	}}
	pads := []config.Scratchpad{
		{Tag: "a", Kind: config.KindApp, Target: "A"},
		{Tag: "b", Kind: config.KindApp, Target: "B"},
		{Tag: "c", Kind: config.KindTitle, Target: "C"},
	}

	RegisterRules(context.Background(), mgr, "6:4:1:1:2:4", pads, discardLogger())

	want := [][]string{
		{"app=^A$", "grid=6:4:1:1:2:4", "manage=off"},
		{"app=^B$", "grid=6:4:1:1:2:4", "manage=off"},
		{"title=^C$", "grid=6:4:1:1:2:4", "manage=off"},
	}
	if !reflect.DeepEqual(mgr.rules, want) {
		t.Fatalf("rules = %q, want %q", mgr.rules, want)
	}
}

func TestRegistrar_RunsOnScratchpadReplacement(t *testing.T) {
	mgr := &fakeManager{}
	store := config.NewStore(config.Default(), Registrar(mgr, discardLogger()))

	payload := `[{tag:'term',kind:'app',target:'Terminal',command:'open -na Terminal'}]`
	if err := store.Set(context.Background(), config.KeyScratchpads, []string{payload}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	want := [][]string{{"app=^Terminal$", "grid=6:4:1:1:2:4", "manage=off"}}
	if !reflect.DeepEqual(mgr.rules, want) {
		t.Fatalf("rules = %q, want %q", mgr.rules, want)
	}
}
