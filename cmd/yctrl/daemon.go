package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/1broseidon/yctrl/internal/daemon"
)

var daemonLogLevel string

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the yctrl daemon in the foreground",
	Long: `Run the yctrl daemon in the foreground.

Point yabai signals at it, for example:

  yabai -m signal --add event=space_changed \
    action='yctrl event space_changed $YABAI_SPACE_ID $YABAI_RECENT_SPACE_ID'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd.Context())
	},
}

func init() {
	daemonCmd.Flags().StringVar(&daemonLogLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}

func runDaemon(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	settings, err := loadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	level := settings.Log.Level
	if daemonLogLevel != "" {
		level = daemonLogLevel
	}
	logger, err := newLogger(level)
	if err != nil {
		return err
	}

	d, err := daemon.New(settings, daemon.Options{Logger: logger})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return d.Run(ctx)
}
