// Package engine reacts to yabai events: it corrects stolen focus, reaps
// empty spaces, refocuses after a window goes away and hides scratchpads
// that gain focus.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/1broseidon/yctrl/internal/config"
	"github.com/1broseidon/yctrl/internal/event"
	"github.com/1broseidon/yctrl/internal/platform"
	"github.com/1broseidon/yctrl/internal/yabai"
)

// ErrNoWindows is returned when a newly focused space has no visible window
// to hand focus to.
var ErrNoWindows = errors.New("no visible windows in space")

// NotSupportedError is returned for event categories the engine does not act
// on.
type NotSupportedError struct {
	Token string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("event %s is not supported", e.Token)
}

// Manager is the part of the yabai client the engine drives.
type Manager interface {
	Windows(ctx context.Context, scope yabai.Scope) ([]yabai.Window, error)
	SpaceByID(ctx context.Context, id uint32) (yabai.Space, bool, error)
	FocusedWindow(ctx context.Context) (yabai.Window, error)
	LastWindow(ctx context.Context) (yabai.Window, error)
	FocusWindow(ctx context.Context, sel string) error
	DestroySpace(ctx context.Context, index uint32) error
}

// Config is the runtime configuration the engine reads on every event.
type Config interface {
	AutoCloseEmptySpaces() bool
	Scratchpads() []config.Scratchpad
}

type Options struct {
	// SettleDelay is waited before inspecting the space that was just left,
	// so yabai has finished its own bookkeeping.
	SettleDelay time.Duration
	Logger      *slog.Logger
}

// Engine handles one event at a time per caller; it holds no state of its
// own and is safe for concurrent use.
type Engine struct {
	mgr    Manager
	cfg    Config
	hider  platform.Hider
	delay  time.Duration
	logger *slog.Logger
}

func New(mgr Manager, cfg Config, hider platform.Hider, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		mgr:    mgr,
		cfg:    cfg,
		hider:  hider,
		delay:  opts.SettleDelay,
		logger: logger,
	}
}

// Handle runs the workflow for ev.
func (e *Engine) Handle(ctx context.Context, ev event.Event) error {
	switch ev := ev.(type) {
	case event.SpaceChanged:
		return e.spaceChanged(ctx, ev)
	case event.WindowEvent:
		return e.window(ctx, ev)
	case event.DisplayEvent, event.ApplicationEvent, event.MissionControlEvent:
		return &NotSupportedError{Token: ev.Token()}
	}
	return fmt.Errorf("unhandled event type %T", ev)
}

func (e *Engine) window(ctx context.Context, ev event.WindowEvent) error {
	switch ev.Kind {
	case event.WindowDestroyed, event.WindowMinimized:
		return e.focusLast(ctx)
	case event.WindowFocused:
		return e.hideFocusedScratchpad(ctx)
	case event.WindowCreated, event.WindowMoved, event.WindowResized,
		event.WindowDeminimized, event.WindowTitleChanged:
		return nil
	}
	return fmt.Errorf("unhandled window event %q", ev.Token())
}

func (e *Engine) spaceChanged(ctx context.Context, ev event.SpaceChanged) error {
	if err := e.correctFocus(ctx, ev.SpaceID); err != nil {
		return err
	}
	if !e.cfg.AutoCloseEmptySpaces() {
		return nil
	}
	return e.reapSpace(ctx, ev.RecentSpaceID)
}

// correctFocus moves focus back into the space that was just entered when
// it is still held by a window elsewhere.
func (e *Engine) correctFocus(ctx context.Context, spaceID uint32) error {
	scope := yabai.ScopeCurrent
	space, ok, err := e.mgr.SpaceByID(ctx, spaceID)
	if err != nil {
		return err
	}
	if ok {
		scope = yabai.SpaceScope(space.Index)
	}

	all, err := e.mgr.Windows(ctx, scope)
	if err != nil {
		return err
	}
	windows := yabai.Visible(all)
	if len(windows) == 0 {
		return fmt.Errorf("%w: space %d", ErrNoWindows, spaceID)
	}
	for _, w := range windows {
		if w.HasFocus {
			return nil
		}
	}

	e.logger.Debug("focus is held outside the current space", "space_id", spaceID)
	if err := e.mgr.FocusWindow(ctx, "mouse"); err == nil {
		return nil
	}

	first := windows[0]
	if err := e.mgr.FocusWindow(ctx, formatID(first.ID)); err != nil {
		e.logger.Error("failed to move focus into space",
			"space_id", spaceID, "window_id", first.ID, "title", first.Title, "error", err)
	}
	return nil
}

// reapSpace destroys the space just left when nothing visible remains on it.
func (e *Engine) reapSpace(ctx context.Context, recentID uint32) error {
	if err := sleep(ctx, e.delay); err != nil {
		return err
	}

	space, ok, err := e.mgr.SpaceByID(ctx, recentID)
	if err != nil {
		return err
	}
	if !ok {
		e.logger.Debug("recent space no longer exists", "space_id", recentID)
		return nil
	}
	if space.IsVisible || space.HasFocus || space.IsNativeFullscreen {
		return nil
	}

	windows, err := e.mgr.Windows(ctx, yabai.SpaceScope(space.Index))
	if err != nil {
		return err
	}
	if len(yabai.Visible(windows)) > 0 {
		return nil
	}

	e.logger.Info("destroying empty space", "space_index", space.Index, "space_id", space.ID)
	if err := e.mgr.DestroySpace(ctx, space.Index); err != nil {
		e.logger.Warn("failed to destroy empty space", "space_index", space.Index, "error", err)
	}
	return nil
}

func (e *Engine) focusLast(ctx context.Context) error {
	last, err := e.mgr.LastWindow(ctx)
	if err != nil {
		return err
	}
	return e.mgr.FocusWindow(ctx, formatID(last.ID))
}

func (e *Engine) hideFocusedScratchpad(ctx context.Context) error {
	focused, err := e.mgr.FocusedWindow(ctx)
	if err != nil {
		return err
	}
	for _, sp := range e.cfg.Scratchpads() {
		if !sp.Matches(focused.App, focused.Title) {
			continue
		}
		e.logger.Debug("hiding focused scratchpad", "tag", sp.Tag, "window_id", focused.ID)
		if err := e.hider.HideFrontmost(ctx); err != nil {
			e.logger.Warn("failed to hide scratchpad", "tag", sp.Tag, "error", err)
		}
		return nil
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func formatID(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}
