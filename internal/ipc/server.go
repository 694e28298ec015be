package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/1broseidon/yctrl/internal/wire"
)

const (
	DefaultConnTimeout = 30 * time.Second
	// MaxRequestSize bounds a request body; scratchpad lists are the
	// largest legitimate payload.
	MaxRequestSize = 1 << 20
)

// Handler serves one decoded control request. The returned value becomes the
// response data.
type Handler interface {
	Handle(ctx context.Context, req wire.Request) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req wire.Request) (any, error)

func (f HandlerFunc) Handle(ctx context.Context, req wire.Request) (any, error) {
	return f(ctx, req)
}

type ServerOptions struct {
	// ConnTimeout bounds reading, handling and answering one connection.
	ConnTimeout time.Duration
	Logger      *slog.Logger
}

// Server accepts control connections and hands each to its own goroutine.
type Server struct {
	socketPath  string
	listener    net.Listener
	handler     Handler
	connTimeout time.Duration
	logger      *slog.Logger

	base   context.Context
	cancel context.CancelFunc
	conns  sync.WaitGroup

	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a server for socketPath. A stale socket file left by a
// previous run is removed.
func NewServer(socketPath string, handler Handler, opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.ConnTimeout
	if timeout <= 0 {
		timeout = DefaultConnTimeout
	}

	os.Remove(socketPath)

	base, cancel := context.WithCancel(context.Background())
	return &Server{
		socketPath:  socketPath,
		handler:     handler,
		connTimeout: timeout,
		logger:      logger,
		base:        base,
		cancel:      cancel,
	}
}

// Start begins listening for control connections. Failing to bind is the
// only error that should stop the daemon.
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create control socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("control server listening", "socket", s.socketPath)

	go s.acceptLoop()

	return nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.stopping() {
				return
			}
			if errors.Is(err, net.ErrClosed) {
				s.logger.Error("control socket closed unexpectedly", "error", err)
				return
			}
			s.logger.Warn("accept error", "error", err)
			continue
		}

		s.shutdownMu.Lock()
		if s.shuttingDown {
			s.shutdownMu.Unlock()
			conn.Close()
			return
		}
		s.conns.Add(1)
		s.shutdownMu.Unlock()

		go s.handleConnection(conn)
	}
}

func (s *Server) stopping() bool {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	return s.shuttingDown
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.conns.Done()
	defer conn.Close()

	logger := s.logger.With("conn", uuid.NewString())

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while handling request", "panic", r, "stack", string(debug.Stack()))
			s.reply(conn, logger, NewErrorResponse(fmt.Sprintf("internal error: %v", r)))
		}
	}()

	ctx, cancel := context.WithTimeout(s.base, s.connTimeout)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	body, err := io.ReadAll(io.LimitReader(conn, MaxRequestSize+1))
	if err != nil {
		logger.Warn("read error", "error", err)
		return
	}
	if len(body) > MaxRequestSize {
		s.reply(conn, logger, NewErrorResponse(fmt.Sprintf("request exceeds %d bytes", MaxRequestSize)))
		return
	}

	req, err := wire.ParseRequest(body)
	if err != nil {
		logger.Warn("rejected request", "error", err)
		s.reply(conn, logger, NewErrorResponse(err.Error()))
		return
	}

	logger.Debug("handling request", "kind", req.Kind, "args", req.Args)
	start := time.Now()

	data, err := s.handler.Handle(ctx, req)
	if err != nil {
		logger.Warn("request failed", "request", req.String(), "error", err, "elapsed", time.Since(start))
		s.reply(conn, logger, NewErrorResponse(err.Error()))
		return
	}

	resp, err := NewOKResponse(data)
	if err != nil {
		logger.Error("failed to encode response", "error", err)
		resp = NewErrorResponse(err.Error())
	}
	logger.Debug("request handled", "kind", req.Kind, "elapsed", time.Since(start))
	s.reply(conn, logger, resp)
}

// reply writes resp. One-way peers such as `nc -U` may already be gone, so a
// failed write is only worth a debug line.
func (s *Server) reply(conn net.Conn, logger *slog.Logger, resp *Response) {
	data, err := resp.Marshal()
	if err != nil {
		logger.Error("failed to marshal response", "error", err)
		return
	}
	if _, err := conn.Write(data); err != nil {
		logger.Debug("failed to send response", "error", err)
	}
}

// Stop closes the listener, cancels in-flight requests, waits for their
// goroutines and removes the socket file.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.cancel()
	s.conns.Wait()
	os.Remove(s.socketPath)
}
