// Package scratchpad shows and hides scratchpad windows on demand and keeps
// their yabai placement rules registered.
package scratchpad

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/1broseidon/yctrl/internal/config"
	"github.com/1broseidon/yctrl/internal/platform"
	"github.com/1broseidon/yctrl/internal/wire"
	"github.com/1broseidon/yctrl/internal/yabai"
)

const DefaultPollInterval = 100 * time.Millisecond

// Manager is the part of the yabai client the toggler drives.
type Manager interface {
	FocusedWindow(ctx context.Context) (yabai.Window, error)
	Windows(ctx context.Context, scope yabai.Scope) ([]yabai.Window, error)
	MinimizeWindow(ctx context.Context, id uint32) error
	FocusWindow(ctx context.Context, sel string) error
}

// Registry resolves scratchpads by tag.
type Registry interface {
	ScratchpadByTag(tag string) (config.Scratchpad, error)
	ScratchpadLaunchTimeout() uint8
}

type Options struct {
	// PollInterval is how often a launched scratchpad's window is looked for.
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Toggler implements the scratchpad toggle command.
type Toggler struct {
	mgr      Manager
	reg      Registry
	launcher platform.Launcher
	poll     time.Duration
	logger   *slog.Logger

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewToggler(mgr Manager, reg Registry, launcher platform.Launcher, opts Options) *Toggler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	base, cancel := context.WithCancel(context.Background())
	return &Toggler{
		mgr:      mgr,
		reg:      reg,
		launcher: launcher,
		poll:     poll,
		logger:   logger,
		base:     base,
		cancel:   cancel,
	}
}

// Toggle hides the scratchpad tagged tag when its window has focus, and
// launches its command otherwise. It never waits for the launched process.
func (t *Toggler) Toggle(ctx context.Context, tag string) error {
	sp, err := t.reg.ScratchpadByTag(tag)
	if err != nil {
		return err
	}

	focused, err := t.mgr.FocusedWindow(ctx)
	switch {
	case err == nil:
		if sp.Matches(focused.App, focused.Title) {
			t.logger.Info("hiding scratchpad", "tag", tag, "window_id", focused.ID)
			return t.mgr.MinimizeWindow(ctx, focused.ID)
		}
	case isManagerError(err):
		// Nothing has focus, so the scratchpad is not showing.
		t.logger.Debug("no focused window", "tag", tag, "error", err)
	default:
		return err
	}

	t.logger.Info("launching scratchpad", "tag", tag, "args", []string(sp.Command))
	if err := t.launcher.Launch(sp.Command); err != nil {
		return err
	}

	timeout := sp.LaunchTimeout(t.reg.ScratchpadLaunchTimeout())
	if timeout > 0 {
		t.wg.Add(1)
		go t.focusWhenReady(sp, timeout)
	}
	return nil
}

// focusWhenReady polls for the launched scratchpad's window and focuses it.
func (t *Toggler) focusWhenReady(sp config.Scratchpad, timeout time.Duration) {
	defer t.wg.Done()

	ctx, cancel := context.WithTimeout(t.base, timeout)
	defer cancel()

	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()

	for {
		windows, err := t.mgr.Windows(ctx, yabai.ScopeAll)
		if err == nil {
			for _, w := range windows {
				if !sp.Matches(w.App, w.Title) {
					continue
				}
				if !w.HasFocus {
					if err := t.mgr.FocusWindow(ctx, strconv.FormatUint(uint64(w.ID), 10)); err != nil {
						t.logger.Warn("failed to focus scratchpad", "tag", sp.Tag, "window_id", w.ID, "error", err)
					}
				}
				return
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				t.logger.Warn("scratchpad window did not appear", "tag", sp.Tag, "timeout", timeout)
			}
			return
		case <-ticker.C:
		}
	}
}

// Wait blocks until every pending launch wait has finished.
func (t *Toggler) Wait() {
	t.wg.Wait()
}

// Close abandons pending launch waits and waits for them to return.
func (t *Toggler) Close() {
	t.cancel()
	t.wg.Wait()
}

func isManagerError(err error) bool {
	var merr *wire.ManagerError
	return errors.As(err, &merr)
}

// RuleManager registers yabai rules.
type RuleManager interface {
	AddRule(ctx context.Context, args ...string) error
}

// RegisterRules adds one placement rule per scratchpad. A failure is logged
// and the remaining scratchpads are still registered.
func RegisterRules(ctx context.Context, mgr RuleManager, grid string, pads []config.Scratchpad, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, sp := range pads {
		if err := mgr.AddRule(ctx, sp.RuleArgs(grid)...); err != nil {
			logger.Warn("failed to register scratchpad rule", "tag", sp.Tag, "error", err)
			continue
		}
		logger.Debug("registered scratchpad rule", "tag", sp.Tag, "grid", grid)
	}
}

// Registrar adapts RegisterRules to the store's replacement hook.
func Registrar(mgr RuleManager, logger *slog.Logger) config.RuleRegistrar {
	return func(ctx context.Context, grid string, pads []config.Scratchpad) {
		RegisterRules(ctx, mgr, grid, pads, logger)
	}
}
