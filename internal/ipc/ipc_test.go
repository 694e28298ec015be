package ipc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/yctrl/internal/config"
	"github.com/1broseidon/yctrl/internal/wire"
)

type recorder struct {
	mu   sync.Mutex
	reqs []wire.Request
}

func (r *recorder) add(req wire.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
}

func (r *recorder) all() []wire.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]wire.Request(nil), r.reqs...)
}

func startServer(t *testing.T, h Handler, timeout time.Duration) (*Server, *Client) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "c.sock")
	srv := NewServer(path, h, ServerOptions{
		ConnTimeout: timeout,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv, NewClient(path).WithTimeout(2 * time.Second)
}

func testHandler(rec *recorder) Handler {
	return HandlerFunc(func(ctx context.Context, req wire.Request) (any, error) {
		rec.add(req)
		switch req.Kind {
		case KindEvent, KindScratchpad:
			if len(req.Args) > 0 && req.Args[0] == "boom" {
				panic("boom")
			}
			return nil, nil
		case KindConfig:
			if len(req.Args) == 1 {
				return ConfigValue{Key: req.Args[0], Value: "6:4:1:1:2:4"}, nil
			}
			if req.Args[0] == "yctrl_banana" {
				return nil, &config.UnknownKeyError{Key: req.Args[0]}
			}
			return nil, nil
		case KindStatus:
			return config.Default(), nil
		}
		return nil, errors.New("unknown request kind " + req.Kind)
	})
}

func TestClientServer_RoundTrips(t *testing.T) {
	rec := &recorder{}
	_, client := startServer(t, testHandler(rec), time.Second)
	ctx := context.Background()

	if err := client.Event(ctx, "window_created", "42"); err != nil {
		t.Fatalf("Event: %v", err)
	}
	if err := client.SetConfig(ctx, "yctrl_scratchpad_grid", "4:4:2:2:1:2"); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	v, err := client.GetConfig(ctx, "yctrl_scratchpad_grid")
	if err != nil || v != "6:4:1:1:2:4" {
		t.Fatalf("GetConfig = %q, %v", v, err)
	}
	if err := client.Toggle(ctx, "term"); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.AutoCloseEmptySpaces || status.ScratchpadGrid != config.DefaultScratchpadGrid {
		t.Fatalf("Status = %+v", status)
	}

	want := []wire.Request{
		{Kind: "event", Args: []string{"window_created", "42"}},
		{Kind: "config", Args: []string{"yctrl_scratchpad_grid", "4:4:2:2:1:2"}},
		{Kind: "config", Args: []string{"yctrl_scratchpad_grid"}},
		{Kind: "scratchpad", Args: []string{"term"}},
		{Kind: "status"},
	}
	if got := rec.all(); !reflect.DeepEqual(got, want) {
		t.Fatalf("requests = %+v, want %+v", got, want)
	}
}

func TestClientServer_ErrorResponse(t *testing.T) {
	_, client := startServer(t, testHandler(&recorder{}), time.Second)

	err := client.SetConfig(context.Background(), "yctrl_banana", "1")
	var rerr *RemoteError
	if !errors.As(err, &rerr) {
		t.Fatalf("error = %v, want *RemoteError", err)
	}
	if !strings.Contains(rerr.Message, "unknown config key") {
		t.Fatalf("message = %q", rerr.Message)
	}
}

func TestServer_MalformedRequest(t *testing.T) {
	rec := &recorder{}
	_, client := startServer(t, testHandler(rec), time.Second)

	_, err := client.Send(context.Background(), "")
	var rerr *RemoteError
	if !errors.As(err, &rerr) || !strings.Contains(rerr.Message, "malformed request") {
		t.Fatalf("error = %v, want malformed request", err)
	}
	if len(rec.all()) != 0 {
		t.Fatal("handler saw a malformed request")
	}
}

func TestServer_PanicIsContained(t *testing.T) {
	_, client := startServer(t, testHandler(&recorder{}), time.Second)
	ctx := context.Background()

	err := client.Event(ctx, "boom")
	var rerr *RemoteError
	if !errors.As(err, &rerr) || !strings.Contains(rerr.Message, "internal error") {
		t.Fatalf("error = %v, want internal error", err)
	}
	if err := client.Event(ctx, "window_created", "1"); err != nil {
		t.Fatalf("server did not survive the panic: %v", err)
	}
}

func TestServer_OneWayPeer(t *testing.T) {
	rec := &recorder{}
	srv, client := startServer(t, testHandler(rec), time.Second)

	conn, err := net.Dial("unix", srv.SocketPath())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if _, err := conn.Write([]byte("event space_changed 3 4\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for len(rec.all()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("one-way request never reached the handler")
		}
		time.Sleep(5 * time.Millisecond)
	}
	got := rec.all()[0]
	if got.Kind != "event" || !reflect.DeepEqual(got.Args, []string{"space_changed", "3", "4"}) {
		t.Fatalf("request = %+v", got)
	}

	if err := client.Event(context.Background(), "window_focused", "1"); err != nil {
		t.Fatalf("later request failed: %v", err)
	}
}

func TestServer_SlowPeerTimesOut(t *testing.T) {
	rec := &recorder{}
	srv, _ := startServer(t, testHandler(rec), 50*time.Millisecond)

	conn, err := net.Dial("unix", srv.SocketPath())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("event window_created 1")); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Never half-close: the server must give up on its own.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	if _, err := conn.Read(buf); err != io.EOF {
		t.Fatalf("read = %v, want EOF after server timeout", err)
	}
	if len(rec.all()) != 0 {
		t.Fatal("handler ran for an unfinished request")
	}
}

func TestServer_StopRemovesSocket(t *testing.T) {
	srv, client := startServer(t, testHandler(&recorder{}), time.Second)
	srv.Stop()

	if err := client.Event(context.Background(), "window_created", "1"); err == nil {
		t.Fatal("expected connect error after Stop")
	}
}

func TestNewServer_RemovesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.sock")
	stale, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	// Simulate a crashed daemon: the file stays, nobody accepts.
	stale.(*net.UnixListener).SetUnlinkOnClose(false)
	stale.Close()

	srv := NewServer(path, testHandler(&recorder{}), ServerOptions{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err := srv.Start(); err != nil {
		t.Fatalf("Start over stale socket: %v", err)
	}
	srv.Stop()
}

func TestClientTimeoutOutlastsDaemon(t *testing.T) {
	if got := NewClient("x.sock").Timeout(); got <= DefaultConnTimeout {
		t.Errorf("default client timeout = %v, want more than %v", got, DefaultConnTimeout)
	}
	if got := ClientTimeout(45 * time.Second); got <= 45*time.Second {
		t.Errorf("ClientTimeout(45s) = %v", got)
	}
	if got := ClientTimeout(0); got <= DefaultConnTimeout {
		t.Errorf("ClientTimeout(0) = %v", got)
	}
}
