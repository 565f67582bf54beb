package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/tinyland-inc/wingmate/pkg/logger"
	"github.com/tinyland-inc/wingmate/pkg/transport/ipc"
)

// Handler serves one method. A returned error becomes the structured
// error field of the response, never a dropped connection.
type Handler func(ctx context.Context, params map[string]any) (any, error)

// Server owns the unix socket for its process lifetime. Connections stay
// open across any number of request/response round-trips.
type Server struct {
	socketPath string

	mu       sync.Mutex
	handlers map[string]Handler
	listener net.Listener
	wg       sync.WaitGroup
}

func NewServer(socketPath string) *Server {
	return &Server{
		socketPath: socketPath,
		handlers:   make(map[string]Handler),
	}
}

// Register adds a method to the dispatch registry.
func (s *Server) Register(method string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// Start binds the socket and serves until ctx is cancelled. A stale
// socket file from a previous run is removed before binding, and the
// fresh socket is restricted to the owning user.
func (s *Server) Start(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to bind control socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to restrict socket permissions: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	logger.InfoCF("rpc", "Control server listening", map[string]any{"socket": s.socketPath})

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			logger.WarnCF("rpc", "Accept failed", map[string]any{"error": err.Error()})
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}

	s.wg.Wait()
	os.Remove(s.socketPath)
	logger.InfoC("rpc", "Control server stopped")
	return nil
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	var fb ipc.FrameBuffer
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			for _, frame := range fb.Feed(buf[:n]) {
				resp := s.dispatch(ctx, frame)
				out, err := encodeFrame(resp)
				if err != nil {
					logger.ErrorCF("rpc", "Failed to encode response", map[string]any{"error": err.Error()})
					continue
				}
				if _, err := conn.Write(out); err != nil {
					return
				}
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, frame []byte) Response {
	var req Request
	if err := json.Unmarshal(frame, &req); err != nil {
		return errorResponse("", "invalid JSON")
	}

	s.mu.Lock()
	h, ok := s.handlers[req.Method]
	s.mu.Unlock()
	if !ok {
		return errorResponse(req.ID, "unknown method: "+req.Method)
	}

	result, err := h(ctx, req.Params)
	if err != nil {
		logger.WarnCF("rpc", "Method returned error", map[string]any{
			"method": req.Method,
			"error":  err.Error(),
		})
		return errorResponse(req.ID, err.Error())
	}
	return Response{ID: req.ID, Result: result}
}
