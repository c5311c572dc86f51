package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/g960059/pomobar/internal/protocol"
)

// maxPayloadBytes caps a single command payload.
const maxPayloadBytes = 64 << 10

// Accept retry backoff, doubling from min to max while Accept keeps failing.
const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// Server owns the rendezvous socket. It accepts one connection at a time,
// reads the payload to EOF and relays it to the state owner. There is no
// read deadline: a client that never closes its end stalls the accept loop.
type Server struct {
	socketPath string
	queue      *commandQueue
	clock      clockwork.Clock
	logger     *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	closing  bool
	shutdown sync.Once
}

func newServer(socketPath string, queue *commandQueue, clock clockwork.Clock, logger *slog.Logger) *Server {
	return &Server{
		socketPath: socketPath,
		queue:      queue,
		clock:      clock,
		logger:     logger,
	}
}

// Listen binds the socket, removing any stale artifact left at the path.
func (s *Server) Listen() error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o755); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}
	if err := os.Remove(s.socketPath); err == nil {
		s.logger.Debug("removed stale socket", "path", s.socketPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("remove stale socket", "path", s.socketPath, "error", err)
	}
	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen uds: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		ln.Close() //nolint:errcheck
		return fmt.Errorf("chmod socket: %w", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return nil
}

// Serve runs the accept loop until an exit command arrives, ctx is done, or
// the state owner goes away. Only the last case is an error.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("serve: socket not bound")
	}

	stop := context.AfterFunc(ctx, func() {
		s.Shutdown() //nolint:errcheck
	})
	defer stop()

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosing() {
				return nil
			}
			backoff = min(max(2*backoff, minAcceptBackoff), maxAcceptBackoff)
			s.logger.Warn("accept connection", "error", err, "retry_in", backoff)
			select {
			case <-s.clock.After(backoff):
			case <-ctx.Done():
				return s.Shutdown()
			}
			continue
		}
		backoff = 0
		payload, err := readPayload(conn)
		if err != nil {
			s.logger.Warn("read command payload", "error", err)
			continue
		}
		if protocol.IsExit(payload) {
			s.logger.Info("exit requested", "path", s.socketPath)
			return s.Shutdown()
		}
		e := envelope{id: uuid.NewString(), payload: payload, receivedAt: s.clock.Now()}
		if err := s.queue.Push(e); err != nil {
			s.Shutdown() //nolint:errcheck
			return fmt.Errorf("relay command: %w", err)
		}
		s.logger.Debug("command relayed", "command_id", e.id, "queued", s.queue.Len())
	}
}

// Shutdown closes the listener and removes the socket file.
func (s *Server) Shutdown() error {
	var shutdownErr error
	s.shutdown.Do(func() {
		s.mu.Lock()
		s.closing = true
		listener := s.listener
		s.mu.Unlock()

		var errs []error
		if listener != nil {
			if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				errs = append(errs, err)
			}
		}
		if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
		shutdownErr = errors.Join(errs...)
	})
	return shutdownErr
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func readPayload(conn net.Conn) (string, error) {
	defer conn.Close() //nolint:errcheck
	body, err := io.ReadAll(io.LimitReader(conn, maxPayloadBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Send writes msg to the instance listening at socketPath and closes the
// connection. There is no reply.
func Send(ctx context.Context, socketPath, msg string) error {
	var d net.Dialer
	dialCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	conn, err := d.DialContext(dialCtx, "unix", socketPath)
	if err != nil {
		return fmt.Errorf("dial %s: %w", socketPath, err)
	}
	defer conn.Close() //nolint:errcheck
	if _, err := io.WriteString(conn, msg); err != nil {
		return fmt.Errorf("write %s: %w", socketPath, err)
	}
	return nil
}
