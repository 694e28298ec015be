package yabai

import (
	"context"
	"strconv"
)

// Scope selects the space a window query is limited to.
type Scope string

const (
	// ScopeCurrent limits a query to the focused space.
	ScopeCurrent Scope = ""
	// ScopeAll queries windows on every space.
	ScopeAll Scope = "all"
)

// SpaceScope limits a query to the space at the given mission-control index.
func SpaceScope(index uint32) Scope {
	return Scope(strconv.FormatUint(uint64(index), 10))
}

// Spaces returns every space.
func (c *Client) Spaces(ctx context.Context) ([]Space, error) {
	return Query[[]Space](ctx, c, "query", "--spaces")
}

// FocusedSpace returns the space that currently has focus.
func (c *Client) FocusedSpace(ctx context.Context) (Space, error) {
	return Query[Space](ctx, c, "query", "--spaces", "--space")
}

// SpaceByID looks a space up by its id (not its index).
func (c *Client) SpaceByID(ctx context.Context, id uint32) (Space, bool, error) {
	spaces, err := c.Spaces(ctx)
	if err != nil {
		return Space{}, false, err
	}
	for _, s := range spaces {
		if s.ID == id {
			return s, true, nil
		}
	}
	return Space{}, false, nil
}

// Windows returns the windows in scope, without Hammerspoon helper windows.
func (c *Client) Windows(ctx context.Context, scope Scope) ([]Window, error) {
	args := []string{"query", "--windows"}
	switch scope {
	case ScopeAll:
	case ScopeCurrent:
		args = append(args, "--space")
	default:
		args = append(args, "--space", string(scope))
	}

	windows, err := Query[[]Window](ctx, c, args...)
	if err != nil {
		return nil, err
	}
	return withoutHelpers(windows), nil
}

// FocusedWindow returns the window that currently has focus.
func (c *Client) FocusedWindow(ctx context.Context) (Window, error) {
	return Query[Window](ctx, c, "query", "--windows", "--window")
}

// LastWindow resolves yabai's "last" window selector.
func (c *Client) LastWindow(ctx context.Context) (Window, error) {
	return Query[Window](ctx, c, "query", "--windows", "--window", "last")
}

// WindowByID returns the window with the given id.
func (c *Client) WindowByID(ctx context.Context, id uint32) (Window, error) {
	return Query[Window](ctx, c, "query", "--windows", "--window", formatID(id))
}

// FocusWindow focuses the window matching sel, which is either a window id
// or a yabai selector such as "mouse", "next" or "last".
func (c *Client) FocusWindow(ctx context.Context, sel string) error {
	return c.Execute(ctx, "window", "--focus", sel)
}

// MinimizeWindow minimizes the window with the given id.
func (c *Client) MinimizeWindow(ctx context.Context, id uint32) error {
	return c.Execute(ctx, "window", formatID(id), "--minimize")
}

// DestroySpace destroys the space at the given index.
func (c *Client) DestroySpace(ctx context.Context, index uint32) error {
	return c.Execute(ctx, "space", formatID(index), "--destroy")
}

// AddRule registers a window rule; args follow "rule --add".
func (c *Client) AddRule(ctx context.Context, args ...string) error {
	return c.Execute(ctx, append([]string{"rule", "--add"}, args...)...)
}

func formatID(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}
