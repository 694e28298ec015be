package yabai

import (
	"bufio"
	"context"
	"errors"
	"net"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/yctrl/internal/wire"
)

// fakeManager answers framed commands on a unix socket with canned replies.
type fakeManager struct {
	ln net.Listener

	mu       sync.Mutex
	replies  []string
	fallback string
	requests [][]string
}

func startFakeManager(t *testing.T, replies ...string) (*fakeManager, *Client) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "y.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	fm := &fakeManager{ln: ln, replies: replies}
	t.Cleanup(func() { ln.Close() })
	go fm.serve()

	c := NewClient(path)
	c.RetryInterval = time.Millisecond
	return fm, c
}

func (f *fakeManager) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeManager) handle(conn net.Conn) {
	defer conn.Close()
	args, err := readCommand(bufio.NewReader(conn))
	if err != nil {
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, args)
	reply := f.fallback
	if len(f.replies) > 0 {
		reply = f.replies[0]
		f.replies = f.replies[1:]
	}
	f.mu.Unlock()

	conn.Write([]byte(reply))
}

func (f *fakeManager) Requests() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.requests...)
}

// readCommand reads one NUL framed command: each argument ends with NUL and
// an empty argument marks the end.
func readCommand(r *bufio.Reader) ([]string, error) {
	var args []string
	for {
		arg, err := r.ReadString(0)
		if err != nil {
			return nil, err
		}
		arg = strings.TrimSuffix(arg, "\x00")
		if arg == "" {
			return args, nil
		}
		args = append(args, arg)
	}
}

func TestExecute_SendsFramedArguments(t *testing.T) {
	fm, c := startFakeManager(t, "")

	if err := c.Execute(context.Background(), "window", "--focus", "mouse"); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	want := [][]string{{"window", "--focus", "mouse"}}
	if got := fm.Requests(); !reflect.DeepEqual(got, want) {
		t.Fatalf("requests = %q, want %q", got, want)
	}
}

func TestExecute_BellIsError(t *testing.T) {
	_, c := startFakeManager(t, "\x07could not locate the window to act on!\n")

	err := c.Execute(context.Background(), "window", "--focus", "mouse")
	var merr *wire.ManagerError
	if !errors.As(err, &merr) {
		t.Fatalf("error = %v, want *wire.ManagerError", err)
	}
	if merr.Message != "could not locate the window to act on!" {
		t.Fatalf("Message = %q", merr.Message)
	}
	if !reflect.DeepEqual(merr.Args, []string{"window", "--focus", "mouse"}) {
		t.Fatalf("Args = %q", merr.Args)
	}
}

func TestExecute_RejectsNulWithoutConnecting(t *testing.T) {
	fm, c := startFakeManager(t)

	err := c.Execute(context.Background(), "window", "--focus", "a\x00b")
	if !errors.Is(err, wire.ErrNulInArgument) {
		t.Fatalf("error = %v, want ErrNulInArgument", err)
	}
	if n := len(fm.Requests()); n != 0 {
		t.Fatalf("manager saw %d requests, want 0", n)
	}
}

func TestRequest_BellSurfacesTrimmedMessage(t *testing.T) {
	_, c := startFakeManager(t, "\x07invalid selector ")

	_, err := c.Request(context.Background(), "query", "--windows", "--window", "bogus")
	if err == nil {
		t.Fatal("expected error")
	}
	var merr *wire.ManagerError
	if !errors.As(err, &merr) || merr.Message != "invalid selector" {
		t.Fatalf("error = %#v", err)
	}
	if !strings.Contains(err.Error(), "invalid selector") {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestQuery_RetriesEmptyResponse(t *testing.T) {
	fm, c := startFakeManager(t, "", `{"id":7,"index":2,"has-focus":true}`)

	space, err := c.FocusedSpace(context.Background())
	if err != nil {
		t.Fatalf("FocusedSpace error: %v", err)
	}
	if space.ID != 7 || space.Index != 2 || !space.HasFocus {
		t.Fatalf("space = %+v", space)
	}
	reqs := fm.Requests()
	if len(reqs) != 2 {
		t.Fatalf("manager saw %d requests, want 2", len(reqs))
	}
	if !reflect.DeepEqual(reqs[0], reqs[1]) {
		t.Fatalf("retry changed the request: %q vs %q", reqs[0], reqs[1])
	}
}

func TestQuery_GivesUpAfterMaxRetries(t *testing.T) {
	fm, c := startFakeManager(t)
	c.MaxRetries = 3

	_, err := c.Spaces(context.Background())
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("error = %v, want ErrEmptyResponse", err)
	}
	if n := len(fm.Requests()); n != 4 {
		t.Fatalf("manager saw %d requests, want 4", n)
	}
}

func TestQuery_DecodeErrorIsNotRetried(t *testing.T) {
	fm, c := startFakeManager(t, `{"id":"not-a-number"}`)

	_, err := c.FocusedWindow(context.Background())
	if err == nil || !strings.Contains(err.Error(), "failed to decode") {
		t.Fatalf("error = %v", err)
	}
	if n := len(fm.Requests()); n != 1 {
		t.Fatalf("manager saw %d requests, want 1", n)
	}
}

func TestWindows_ScopesAndFiltersHelpers(t *testing.T) {
	body := `[
		{"id":1,"app":"Terminal","subrole":"AXStandardWindow"},
		{"id":2,"app":"Hammerspoon","subrole":"AXUnknown.Hammerspoon"},
		{"id":3,"app":"Finder","subrole":"AXStandardWindow","is-minimized":true}
	]`
	fm, c := startFakeManager(t, body, body, body)
	ctx := context.Background()

	for _, scope := range []Scope{ScopeCurrent, ScopeAll, SpaceScope(4)} {
		windows, err := c.Windows(ctx, scope)
		if err != nil {
			t.Fatalf("Windows(%q) error: %v", scope, err)
		}
		if len(windows) != 2 || windows[0].ID != 1 || windows[1].ID != 3 {
			t.Fatalf("Windows(%q) = %+v", scope, windows)
		}
		if v := Visible(windows); len(v) != 1 || v[0].ID != 1 {
			t.Fatalf("Visible = %+v", v)
		}
	}

	want := [][]string{
		{"query", "--windows", "--space"},
		{"query", "--windows"},
		{"query", "--windows", "--space", "4"},
	}
	if got := fm.Requests(); !reflect.DeepEqual(got, want) {
		t.Fatalf("requests = %q, want %q", got, want)
	}
}

func TestCommands(t *testing.T) {
	fm, c := startFakeManager(t)
	ctx := context.Background()

	if err := c.MinimizeWindow(ctx, 12); err != nil {
		t.Fatal(err)
	}
	if err := c.DestroySpace(ctx, 3); err != nil {
		t.Fatal(err)
	}
	if err := c.AddRule(ctx, "app=^Terminal$", "manage=off"); err != nil {
		t.Fatal(err)
	}

	want := [][]string{
		{"window", "12", "--minimize"},
		{"space", "3", "--destroy"},
		{"rule", "--add", "app=^Terminal$", "manage=off"},
	}
	if got := fm.Requests(); !reflect.DeepEqual(got, want) {
		t.Fatalf("requests = %q, want %q", got, want)
	}
}

func TestSpaceByID(t *testing.T) {
	_, c := startFakeManager(t, `[{"id":10,"index":1},{"id":11,"index":2}]`, `[]`)
	ctx := context.Background()

	s, ok, err := c.SpaceByID(ctx, 11)
	if err != nil || !ok || s.Index != 2 {
		t.Fatalf("SpaceByID = %+v, %v, %v", s, ok, err)
	}
	if _, ok, err := c.SpaceByID(ctx, 11); err != nil || ok {
		t.Fatalf("SpaceByID on empty list = %v, %v", ok, err)
	}
}

func TestExecute_ConnectError(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing.sock"))
	err := c.Execute(context.Background(), "window", "--focus", "mouse")
	if err == nil || !strings.Contains(err.Error(), "failed to connect") {
		t.Fatalf("error = %v", err)
	}
}

// startSilentManager accepts connections and reads commands but never answers.
func startSilentManager(t *testing.T) *Client {
	t.Helper()
	path := filepath.Join(t.TempDir(), "silent.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	done := make(chan struct{})
	t.Cleanup(func() {
		close(done)
		ln.Close()
	})
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				readCommand(bufio.NewReader(conn))
				<-done
			}()
		}
	}()
	c := NewClient(path)
	c.Timeout = 100 * time.Millisecond
	return c
}

func TestExecute_TimeoutIsError(t *testing.T) {
	c := startSilentManager(t)

	err := c.Execute(context.Background(), "space", "2", "--destroy")
	if err == nil {
		t.Fatal("Execute succeeded without an answer from yabai")
	}
	var nerr net.Error
	if !errors.As(err, &nerr) || !nerr.Timeout() {
		t.Fatalf("error = %v, want a timeout", err)
	}
}

func TestExecute_ClosedWithoutAckIsSuccess(t *testing.T) {
	fm, c := startFakeManager(t, "")

	if err := c.Execute(context.Background(), "window", "--focus", "10"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := fm.Requests(); len(got) != 1 {
		t.Fatalf("requests = %v", got)
	}
}
