// Package yabai is a client for the yabai window manager's socket.
package yabai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/1broseidon/yctrl/internal/wire"
)

const (
	DefaultTimeout       = 2 * time.Second
	DefaultMaxRetries    = 8
	DefaultRetryInterval = 25 * time.Millisecond
)

// ErrEmptyResponse is returned by Query when yabai keeps answering a query
// with an empty body after all retries.
var ErrEmptyResponse = errors.New("yabai returned an empty response")

// Client talks to yabai. It holds no connection: every call dials the socket,
// writes one command and reads the answer.
type Client struct {
	socketPath string

	// Timeout bounds each round trip. The context deadline wins when sooner.
	Timeout time.Duration
	// MaxRetries bounds how often an empty query response is retried.
	MaxRetries int
	// RetryInterval is the first backoff interval between empty responses.
	RetryInterval time.Duration
}

// NewClient creates a client for the socket at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath:    socketPath,
		Timeout:       DefaultTimeout,
		MaxRetries:    DefaultMaxRetries,
		RetryInterval: DefaultRetryInterval,
	}
}

// SocketPath returns the socket this client dials.
func (c *Client) SocketPath() string {
	return c.socketPath
}

// send validates and writes args, returning the open connection for reading.
func (c *Client) send(ctx context.Context, args []string) (net.Conn, error) {
	payload, err := wire.EncodeCommand(args)
	if err != nil {
		return nil, err
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to yabai at %s: %w", c.socketPath, err)
	}
	conn.SetDeadline(c.deadline(ctx))

	if _, err := conn.Write(payload); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send %q to yabai: %w", args, err)
	}
	return conn, nil
}

func (c *Client) deadline(ctx context.Context) time.Time {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

// Execute sends a command and ignores any payload. It fails only on a
// transport error or when yabai answers with the BEL sentinel.
func (c *Client) Execute(ctx context.Context, args ...string) error {
	conn, err := c.send(ctx, args)
	if err != nil {
		return err
	}
	defer conn.Close()

	ack := make([]byte, 1)
	n, err := io.ReadFull(conn, ack)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return fmt.Errorf("yabai did not answer %q: %w", args, err)
		}
		return fmt.Errorf("failed to read yabai response to %q: %w", args, err)
	}
	ack = ack[:n]

	var rest []byte
	if n == 1 && ack[0] == wire.Bell {
		rest, _ = io.ReadAll(conn)
	}
	if err := wire.CheckAck(ack, rest); err != nil {
		return withArgs(err, args)
	}
	return nil
}

// Request sends a command and returns the full response text.
func (c *Client) Request(ctx context.Context, args ...string) (string, error) {
	conn, err := c.send(ctx, args)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	raw, err := io.ReadAll(conn)
	if err != nil {
		return "", fmt.Errorf("failed to read yabai response to %q: %w", args, err)
	}

	out, err := wire.DecodeResponse(raw)
	if err != nil {
		return "", withArgs(err, args)
	}
	return out, nil
}

// Query runs a query and decodes its JSON answer into out. An empty response
// is retried with exponential backoff; a JSON mismatch is not.
func (c *Client) Query(ctx context.Context, out any, args ...string) error {
	var raw string
	op := func() error {
		resp, err := c.Request(ctx, args...)
		if err != nil {
			return backoff.Permanent(err)
		}
		if resp == "" {
			return ErrEmptyResponse
		}
		raw = resp
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(c.retryPolicy(), ctx)); err != nil {
		if errors.Is(err, ErrEmptyResponse) {
			return fmt.Errorf("query %q: %w", args, err)
		}
		return err
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("failed to decode yabai response to %q: %w (raw: %s)", args, err, raw)
	}
	return nil
}

func (c *Client) retryPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.RetryInterval
	if b.InitialInterval <= 0 {
		b.InitialInterval = DefaultRetryInterval
	}
	b.MaxInterval = 20 * b.InitialInterval
	b.MaxElapsedTime = 0

	retries := c.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithMaxRetries(b, uint64(retries))
}

// Query is the typed form of Client.Query.
func Query[T any](ctx context.Context, c *Client, args ...string) (T, error) {
	var out T
	err := c.Query(ctx, &out, args...)
	return out, err
}

func withArgs(err error, args []string) error {
	var merr *wire.ManagerError
	if errors.As(err, &merr) {
		merr.Args = append([]string(nil), args...)
	}
	return err
}
