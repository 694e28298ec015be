// Command yctrl is a companion daemon and CLI for the yabai window manager.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/1broseidon/yctrl/internal/config"
	"github.com/1broseidon/yctrl/internal/yabai"
)

// Version is set by ldflags during build.
var Version = "dev"

var settingsFile string

var rootCmd = &cobra.Command{
	Use:   "yctrl",
	Short: "Automation daemon and CLI for the yabai window manager",
	Long: `yctrl listens for yabai signals and reacts to them: it corrects focus
after space switches, destroys spaces left empty and hides scratchpads that
gain focus. Without a subcommand it runs the daemon in the foreground.

Arguments that are not a yctrl command are sent to yabai unchanged, so
"yctrl query --spaces" works like "yabai -m query --spaces".`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "yctrl %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsFile, "settings", "", "settings file (default: ~/.config/yctrl/settings.yaml)")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(scratchpadCmd)
	rootCmd.AddCommand(eventCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(windowCmd)
	rootCmd.AddCommand(spaceCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	args := os.Args[1:]
	var err error
	if isPassthrough(args) {
		err = runPassthrough(args)
	} else {
		err = rootCmd.Execute()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// isPassthrough reports whether args name no yctrl command and should go to
// yabai verbatim.
func isPassthrough(args []string) bool {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return false
	}
	switch args[0] {
	case "help", "completion", "__complete", "__completeNoDesc":
		return false
	}
	for _, c := range rootCmd.Commands() {
		if c.Name() == args[0] || c.HasAlias(args[0]) {
			return false
		}
	}
	return true
}

func loadSettings() (*config.Settings, error) {
	return config.LoadSettings(settingsFile)
}

// newLogger builds the stderr logger, colored when stderr is a terminal.
func newLogger(level string) (*slog.Logger, error) {
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
		NoColor:    !term.IsTerminal(int(os.Stderr.Fd())),
	})), nil
}

func newManagerClient(settings *config.Settings) (*yabai.Client, error) {
	path, err := settings.ManagerSocketPath()
	if err != nil {
		return nil, err
	}
	client := yabai.NewClient(path)
	client.Timeout = settings.Manager.Timeout
	client.MaxRetries = settings.Manager.MaxRetries
	return client, nil
}
