// Package mcp exposes the daemon's control requests as MCP tools over stdio.
package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/yctrl/internal/config"
)

const (
	ServerName    = "yctrl"
	ServerVersion = "0.1.0"
)

// DaemonClient is the control socket client the tools forward to.
type DaemonClient interface {
	Event(ctx context.Context, name string, args ...string) error
	SetConfig(ctx context.Context, key string, values ...string) error
	GetConfig(ctx context.Context, key string) (string, error)
	Toggle(ctx context.Context, tag string) error
	Status(ctx context.Context) (*config.RuntimeConfig, error)
}

// Server is the MCP server for a running yctrl daemon.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    DaemonClient
	logger    *slog.Logger
}

// NewServer creates an MCP server whose tools talk to daemon.
func NewServer(daemon DaemonClient, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		daemon: daemon,
		logger: logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "toggle_scratchpad",
		Description: "Toggle a scratchpad window by tag. Hides it when it has focus, otherwise launches its command and focuses the new window once it appears.",
	}, s.handleToggleScratchpad)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_config",
		Description: "Set a yctrl runtime config key: yctrl_auto_close_empty_spaces (true/false), yctrl_scratchpad_launch_timeout (seconds, 0-255), yctrl_scratchpad_space (0-255), yctrl_scratchpad_grid (rows:cols:x:y:w:h) or yctrl_scratchpads (JSON list of {tag, kind, target, command}).",
	}, s.handleSetConfig)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_config",
		Description: "Read one yctrl runtime config key, or the whole runtime configuration when key is omitted.",
	}, s.handleGetConfig)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "send_event",
		Description: "Deliver a yabai event notification to the daemon, as a yabai signal would (e.g. space_changed with the new and previous space ids).",
	}, s.handleSendEvent)
}
