package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/yctrl/internal/config"
	"github.com/1broseidon/yctrl/internal/runtimepath"
	"github.com/1broseidon/yctrl/internal/wire"
)

// clientGrace is how much longer a client waits than the daemon allows
// for one connection.
const clientGrace = time.Second

const DefaultClientTimeout = DefaultConnTimeout + clientGrace

// ClientTimeout returns the request timeout for a daemon whose connections
// are bounded by connTimeout.
func ClientTimeout(connTimeout time.Duration) time.Duration {
	if connTimeout <= 0 {
		connTimeout = DefaultConnTimeout
	}
	return connTimeout + clientGrace
}

// Client sends control requests to a running daemon.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for socketPath; an empty path selects the
// default control socket.
func NewClient(socketPath string) *Client {
	if socketPath == "" {
		socketPath = runtimepath.ControlSocketPath()
	}
	return &Client{
		socketPath: socketPath,
		timeout:    DefaultClientTimeout,
	}
}

// WithTimeout returns a copy of the client using timeout per request.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	cp := *c
	cp.timeout = timeout
	return &cp
}

func (c *Client) Timeout() time.Duration { return c.timeout }

// Send writes one request, half-closes the connection so the daemon sees the
// end of the body, and reads the response line.
func (c *Client) Send(ctx context.Context, kind string, args ...string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if _, err := conn.Write(wire.EncodeRequest(kind, args...)); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		if err := uc.CloseWrite(); err != nil {
			return nil, fmt.Errorf("failed to finish request: %w", err)
		}
	}

	respData, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status == StatusError {
		return nil, &RemoteError{Message: resp.Error}
	}
	return &resp, nil
}

// Event delivers a yabai event notification.
func (c *Client) Event(ctx context.Context, name string, args ...string) error {
	_, err := c.Send(ctx, KindEvent, append([]string{name}, args...)...)
	return err
}

// SetConfig updates a runtime config key.
func (c *Client) SetConfig(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return fmt.Errorf("config %s: missing value", key)
	}
	_, err := c.Send(ctx, KindConfig, append([]string{key}, values...)...)
	return err
}

// GetConfig reads a runtime config key.
func (c *Client) GetConfig(ctx context.Context, key string) (string, error) {
	resp, err := c.Send(ctx, KindConfig, key)
	if err != nil {
		return "", err
	}
	var v ConfigValue
	if err := json.Unmarshal(resp.Data, &v); err != nil {
		return "", fmt.Errorf("failed to parse config value: %w", err)
	}
	return v.Value, nil
}

// Toggle toggles the scratchpad tagged tag.
func (c *Client) Toggle(ctx context.Context, tag string) error {
	_, err := c.Send(ctx, KindScratchpad, tag)
	return err
}

// Status returns the daemon's runtime configuration.
func (c *Client) Status(ctx context.Context) (*config.RuntimeConfig, error) {
	resp, err := c.Send(ctx, KindStatus)
	if err != nil {
		return nil, err
	}
	var cfg config.RuntimeConfig
	if err := json.Unmarshal(resp.Data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}
	return &cfg, nil
}
