// Package nav implements yctrl's window and space commands: yabai commands
// whose next/prev selectors wrap around instead of failing at either end.
package nav

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/1broseidon/yctrl/internal/yabai"
)

// Manager is the part of the yabai client navigation needs.
type Manager interface {
	Execute(ctx context.Context, args ...string) error
	FocusedSpace(ctx context.Context) (yabai.Space, error)
	Windows(ctx context.Context, scope yabai.Scope) ([]yabai.Window, error)
}

// ResizeStep is how far --inc grows or shrinks a window, in points.
const ResizeStep = 150

// commands that get yctrl's own handling; everything else is forwarded.
var handled = []string{"focus", "swap", "move", "warp", "space", "inc", "make"}

// Normalize turns CLI arguments such as "window focus next" or
// "window 12 swap prev" into yabai form by prefixing the command with "--".
// It reports whether the result should go to yabai untouched.
func Normalize(args []string) ([]string, bool) {
	out := append([]string(nil), args...)
	if len(out) < 2 {
		return out, true
	}
	switch out[0] {
	case "config", "scratchpad":
		return out, false
	}

	pos := 1
	if _, err := strconv.ParseUint(out[1], 10, 32); err == nil {
		pos = 2
	}
	if pos >= len(out) {
		return out, true
	}

	cmd := strings.TrimPrefix(out[pos], "--")
	out[pos] = "--" + cmd
	if pos == 2 || (out[0] != "window" && out[0] != "space") {
		return out, true
	}
	return out, !slices.Contains(handled, cmd)
}

type Navigator struct {
	mgr    Manager
	logger *slog.Logger
}

func New(mgr Manager, logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Navigator{mgr: mgr, logger: logger}
}

// Run executes normalized window or space arguments.
func (n *Navigator) Run(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return n.mgr.Execute(ctx, args...)
	}
	sel := args[len(args)-1]

	switch args[0] {
	case "window":
		switch args[1] {
		case "--space":
			return n.WindowToSpace(ctx, sel)
		case "--inc":
			return n.Resize(ctx, sel)
		case "--make":
			if args[2] == "master" {
				return n.Master(ctx)
			}
		}
		return n.Window(ctx, args[1], sel)
	case "space":
		return n.Space(ctx, args[1], sel)
	}
	return n.mgr.Execute(ctx, args...)
}

func isCycle(sel string) bool {
	return sel == "next" || sel == "prev"
}

// Window runs "window <cmd> <sel>". For next/prev, when yabai has no
// neighbor in that direction it wraps to the opposite end of the space.
func (n *Navigator) Window(ctx context.Context, cmd, sel string) error {
	err := n.mgr.Execute(ctx, "window", cmd, sel)
	if err == nil || !isCycle(sel) {
		return err
	}
	n.logger.Debug("window selector failed, wrapping", "command", cmd, "selector", sel, "error", err)

	space, err := n.mgr.FocusedSpace(ctx)
	if err != nil {
		return err
	}

	if cmd == "--focus" && space.FirstWindow == space.LastWindow {
		windows, err := n.mgr.Windows(ctx, yabai.ScopeCurrent)
		if err != nil {
			return err
		}
		if len(windows) == 0 {
			n.logger.Debug("space has no windows, moving to neighbor space", "selector", sel)
			return n.Space(ctx, cmd, sel)
		}
		if current, ok := focusedID(windows); ok {
			if id, ok := neighbor(space.Windows, current, sel); ok {
				return n.mgr.Execute(ctx, "window", cmd, formatID(id))
			}
		}
	}

	end := space.FirstWindow
	if sel == "prev" {
		end = space.LastWindow
	}
	if err := n.mgr.Execute(ctx, "window", cmd, formatID(end)); err == nil {
		return nil
	}
	return n.mgr.Execute(ctx, "window", cmd, "first")
}

// Space runs "space <cmd> <sel>", wrapping next/prev to the first or last
// space.
func (n *Navigator) Space(ctx context.Context, cmd, sel string) error {
	err := n.mgr.Execute(ctx, "space", cmd, sel)
	if err == nil || !isCycle(sel) {
		return err
	}
	return n.mgr.Execute(ctx, "space", cmd, wrapSelector(sel))
}

// WindowToSpace sends the focused window to a space and follows it there.
func (n *Navigator) WindowToSpace(ctx context.Context, sel string) error {
	target := sel
	err := n.mgr.Execute(ctx, "window", "--space", sel)
	if err != nil && isCycle(sel) {
		target = wrapSelector(sel)
		err = n.mgr.Execute(ctx, "window", "--space", target)
	}
	if err != nil {
		return fmt.Errorf("failed to move window to space %s: %w", sel, err)
	}
	return n.Space(ctx, "--focus", target)
}

// Resize grows the focused window towards dir ("left" or "right"), using
// the opposite edge when the first one cannot move.
func (n *Navigator) Resize(ctx context.Context, dir string) error {
	delta := fmt.Sprintf("+%d:0", ResizeStep)
	if dir == "left" {
		delta = fmt.Sprintf("-%d:0", ResizeStep)
	}
	if err := n.mgr.Execute(ctx, "window", "--resize", "left:"+delta); err == nil {
		return nil
	}
	return n.mgr.Execute(ctx, "window", "--resize", "right:"+delta)
}

// Master swaps the focused window with the first window of the space, or
// with the last one when it already is the first.
func (n *Navigator) Master(ctx context.Context) error {
	if err := n.mgr.Execute(ctx, "window", "--warp", "first"); err == nil {
		return nil
	}
	return n.mgr.Execute(ctx, "window", "--warp", "last")
}

func wrapSelector(sel string) string {
	if sel == "next" {
		return "first"
	}
	return "last"
}

func focusedID(windows []yabai.Window) (uint32, bool) {
	for _, w := range windows {
		if w.HasFocus {
			return w.ID, true
		}
	}
	return 0, false
}

// neighbor returns the window after (next) or before (prev) current in ids,
// wrapping at both ends.
func neighbor(ids []uint32, current uint32, sel string) (uint32, bool) {
	i := slices.Index(ids, current)
	if i < 0 {
		return 0, false
	}
	n := len(ids)
	if sel == "next" {
		return ids[(i+1)%n], true
	}
	return ids[(i-1+n)%n], true
}

func formatID(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}
