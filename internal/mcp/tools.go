package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/yctrl/internal/event"
)

func (s *Server) handleToggleScratchpad(ctx context.Context, _ *mcpsdk.CallToolRequest, args ToggleScratchpadInput) (*mcpsdk.CallToolResult, ToggleScratchpadOutput, error) {
	tag := strings.TrimSpace(args.Tag)
	if tag == "" {
		return nil, ToggleScratchpadOutput{}, fmt.Errorf("tag is required")
	}
	if err := s.daemon.Toggle(ctx, tag); err != nil {
		s.logger.Warn("toggle_scratchpad failed", "tag", tag, "error", err)
		return nil, ToggleScratchpadOutput{}, fmt.Errorf("failed to toggle scratchpad %q: %w", tag, err)
	}
	s.logger.Debug("toggle_scratchpad", "tag", tag)
	return nil, ToggleScratchpadOutput{Tag: tag}, nil
}

func (s *Server) handleSetConfig(ctx context.Context, _ *mcpsdk.CallToolRequest, args SetConfigInput) (*mcpsdk.CallToolResult, SetConfigOutput, error) {
	key := strings.TrimSpace(args.Key)
	if key == "" {
		return nil, SetConfigOutput{}, fmt.Errorf("key is required")
	}
	// The control socket splits requests on whitespace; the daemon joins the
	// scratchpad list back together.
	values := strings.Fields(args.Value)
	if len(values) == 0 {
		return nil, SetConfigOutput{}, fmt.Errorf("value is required")
	}
	if err := s.daemon.SetConfig(ctx, key, values...); err != nil {
		return nil, SetConfigOutput{}, fmt.Errorf("failed to set %s: %w", key, err)
	}

	value, err := s.daemon.GetConfig(ctx, key)
	if err != nil {
		return nil, SetConfigOutput{}, fmt.Errorf("set %s but failed to read it back: %w", key, err)
	}
	return nil, SetConfigOutput{Key: key, Value: value}, nil
}

func (s *Server) handleGetConfig(ctx context.Context, _ *mcpsdk.CallToolRequest, args GetConfigInput) (*mcpsdk.CallToolResult, GetConfigOutput, error) {
	key := strings.TrimSpace(args.Key)
	if key == "" {
		cfg, err := s.daemon.Status(ctx)
		if err != nil {
			return nil, GetConfigOutput{}, fmt.Errorf("failed to read config: %w", err)
		}
		return nil, GetConfigOutput{Config: cfg}, nil
	}

	value, err := s.daemon.GetConfig(ctx, key)
	if err != nil {
		return nil, GetConfigOutput{}, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return nil, GetConfigOutput{Key: key, Value: value}, nil
}

func (s *Server) handleSendEvent(ctx context.Context, _ *mcpsdk.CallToolRequest, args SendEventInput) (*mcpsdk.CallToolResult, SendEventOutput, error) {
	// Decode locally first so a typo is reported without a round trip.
	ev, err := event.Parse(args.Name, args.Args)
	if err != nil {
		return nil, SendEventOutput{}, err
	}
	if err := s.daemon.Event(ctx, args.Name, args.Args...); err != nil {
		return nil, SendEventOutput{}, fmt.Errorf("failed to deliver %s: %w", args.Name, err)
	}
	return nil, SendEventOutput{Event: event.Describe(ev)}, nil
}
