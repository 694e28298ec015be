package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/yctrl/internal/config"
	"github.com/1broseidon/yctrl/internal/ipc"
)

var configCmd = &cobra.Command{
	Use:   "config <key> [value...]",
	Short: "Read or set a runtime config key",
	Long: `Read or set a runtime config key.

yctrl keys (yctrl_auto_close_empty_spaces, yctrl_scratchpad_launch_timeout,
yctrl_scratchpad_space, yctrl_scratchpad_grid, yctrl_scratchpads) are handled
by the daemon. Any other key is passed to "yabai -m config".`,
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		if !isDaemonKey(args[0]) {
			return runPassthrough(append([]string{"config"}, args...))
		}
		client, err := newDaemonClient()
		if err != nil {
			return err
		}
		return runConfig(cmd.Context(), client, cmd.OutOrStdout(), args)
	},
}

var scratchpadCmd = &cobra.Command{
	Use:   "scratchpad <tag>",
	Short: "Toggle a scratchpad",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newDaemonClient()
		if err != nil {
			return err
		}
		return client.Toggle(cmd.Context(), args[0])
	},
}

var eventCmd = &cobra.Command{
	Use:   "event <name> [args...]",
	Short: "Deliver a yabai event to the daemon",
	Long: `Deliver a yabai event to the daemon. This is what yabai signals run:

  yctrl event window_focused $YABAI_WINDOW_ID
  yctrl event space_changed $YABAI_SPACE_ID $YABAI_RECENT_SPACE_ID`,
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		client, err := newDaemonClient()
		if err != nil {
			return err
		}
		return client.Event(cmd.Context(), args[0], args[1:]...)
	},
}

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the daemon's runtime configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newDaemonClient()
		if err != nil {
			return err
		}
		cfg, err := client.Status(cmd.Context())
		if err != nil {
			return err
		}
		asJSON := statusJSON || !term.IsTerminal(int(os.Stdout.Fd()))
		return writeStatus(cmd.OutOrStdout(), cfg, asJSON)
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print JSON even when stdout is a terminal")
}

func newDaemonClient() (*ipc.Client, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return ipc.NewClient(settings.Socket).WithTimeout(ipc.ClientTimeout(settings.ConnTimeout)), nil
}

func isDaemonKey(key string) bool {
	return strings.Contains(key, "yctrl")
}

// configClient is the part of ipc.Client the config command uses.
type configClient interface {
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key string, values ...string) error
}

func runConfig(ctx context.Context, client configClient, out io.Writer, args []string) error {
	if len(args) == 1 {
		value, err := client.GetConfig(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, value)
		return nil
	}
	return client.SetConfig(ctx, args[0], args[1:]...)
}

func writeStatus(w io.Writer, cfg *config.RuntimeConfig, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
