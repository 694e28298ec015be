package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/1broseidon/yctrl/internal/nav"
	"github.com/1broseidon/yctrl/internal/yabai"
)

var windowCmd = &cobra.Command{
	Use:   "window [id] <command> [selector]",
	Short: "Run a yabai window command with wrap-around next/prev",
	Long: `Run a yabai window command. The leading "--" of the command is optional.

focus, swap, move and warp with next/prev wrap to the other end of the space;
"space <sel>" moves the window and follows it; "inc left|right" grows the
window; "make master" swaps it with the first window. Other commands go to
yabai unchanged.`,
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNav(cmd.Context(), append([]string{"window"}, args...))
	},
}

var spaceCmd = &cobra.Command{
	Use:                "space [id] <command> [selector]",
	Short:              "Run a yabai space command with wrap-around next/prev",
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNav(cmd.Context(), append([]string{"space"}, args...))
	},
}

func runNav(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	normalized, redirect := nav.Normalize(args)
	if redirect {
		return sendToManager(ctx, os.Stdout, normalized)
	}

	settings, err := loadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	client, err := newManagerClient(settings)
	if err != nil {
		return err
	}
	logger, err := newLogger(settings.Log.Level)
	if err != nil {
		return err
	}
	return nav.New(client, logger).Run(ctx, normalized)
}

// runPassthrough sends args to yabai, first normalizing the command token
// ("query spaces" becomes "query --spaces").
func runPassthrough(args []string) error {
	normalized, _ := nav.Normalize(args)
	return sendToManager(context.Background(), os.Stdout, normalized)
}

func sendToManager(ctx context.Context, out io.Writer, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	client, err := newManagerClient(settings)
	if err != nil {
		return err
	}
	return forward(ctx, client, out, args)
}

// requester is the part of the yabai client forwarding uses.
type requester interface {
	Request(ctx context.Context, args ...string) (string, error)
}

func forward(ctx context.Context, client requester, out io.Writer, args []string) error {
	resp, err := client.Request(ctx, args...)
	if err != nil {
		return err
	}
	if resp = strings.TrimRight(resp, "\n"); resp != "" {
		fmt.Fprintln(out, resp)
	}
	return nil
}

var _ requester = (*yabai.Client)(nil)
