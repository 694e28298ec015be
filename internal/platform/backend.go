// Package platform runs the operating system side effects yctrl needs: hiding
// the frontmost application and launching scratchpad commands.
package platform

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"syscall"
)

// Hider hides the frontmost application.
type Hider interface {
	HideFrontmost(ctx context.Context) error
}

// Launcher starts a command without waiting for it to exit.
type Launcher interface {
	Launch(argv []string) error
}

// HideFrontmostScript is the AppleScript that hides the frontmost process.
const HideFrontmostScript = `tell application "System Events" to set visible of (item 1 of (processes whose frontmost is true)) to false`

// AppleScriptHider hides the frontmost application through osascript.
type AppleScriptHider struct {
	// Program defaults to "osascript".
	Program string
}

func (h AppleScriptHider) HideFrontmost(ctx context.Context) error {
	program := h.Program
	if program == "" {
		program = "osascript"
	}
	out, err := exec.CommandContext(ctx, program, "-e", HideFrontmostScript).CombinedOutput()
	if err != nil {
		if len(out) > 0 {
			return fmt.Errorf("failed to hide frontmost application: %w: %s", err, out)
		}
		return fmt.Errorf("failed to hide frontmost application: %w", err)
	}
	return nil
}

// ProcessLauncher starts commands in their own session so they outlive the
// daemon's connection handling and never hold its terminal.
type ProcessLauncher struct {
	Logger *slog.Logger
}

func (l ProcessLauncher) Launch(argv []string) error {
	if len(argv) == 0 || argv[0] == "" {
		return fmt.Errorf("empty command")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch %q: %w", argv[0], err)
	}

	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Warn("launched command exited with error", "args", argv, "error", err)
		}
	}()
	return nil
}
