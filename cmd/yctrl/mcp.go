package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/1broseidon/yctrl/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol server",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server (stdio transport)",
	Long: `Start the MCP server on stdio. It forwards tool calls to a running
yctrl daemon. Designed to be invoked by MCP clients, for example:

  claude mcp add yctrl -- yctrl mcp serve`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		// stdout carries the protocol; logs go to stderr only.
		logger, err := newLogger(settings.Log.Level)
		if err != nil {
			return err
		}
		client, err := newDaemonClient()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := mcp.NewServer(client, logger.With("component", "mcp")).Run(ctx); err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
}
