package ipc

import (
	"errors"
	"log/slog"
	"net"
	"os"
	"runtime/debug"

	"github.com/adasa/adasa/internal/dispatcher"
	"github.com/adasa/adasa/internal/logcapture"
	"github.com/adasa/adasa/internal/registry"
)

// Server listens on a Unix domain socket and serves one framed Request/Reply
// exchange per accepted connection, grounded on the teacher's
// net.Listen("unix", ...) pattern in internal/api/server.go but replacing
// its HTTP framing with the raw length-prefixed protocol spec.md §6 calls
// for.
type Server struct {
	socketPath string
	dispatcher *dispatcher.Dispatcher
	logBuffer  *logcapture.RingBuffer
	logger     *slog.Logger
	listener   net.Listener

	shutdown func(reason string)
}

// New creates a Server bound to socketPath. shutdown is invoked when a
// client issues daemon_shutdown; the daemon bootstrap wires it to its own
// graceful-shutdown coordinator.
func New(socketPath string, d *dispatcher.Dispatcher, logBuffer *logcapture.RingBuffer, logger *slog.Logger, shutdown func(reason string)) *Server {
	return &Server{socketPath: socketPath, dispatcher: d, logBuffer: logBuffer, logger: logger, shutdown: shutdown}
}

// Listen creates the Unix socket, removing any stale file left behind by a
// previous (unclean) run, and sets owner-only permissions.
func (s *Server) Listen() error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	l, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return err
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		l.Close()
		return err
	}
	s.listener = l
	return nil
}

// Serve blocks accepting connections until the listener is closed.
func (s *Server) Serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("ipc accept failed", "error", err)
			continue
		}
		go s.handleConn(conn)
	}
}

// Close stops accepting connections and removes the socket file.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	err := s.listener.Close()
	_ = os.Remove(s.socketPath)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("ipc handler panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	var req Request
	if err := readFrame(conn, &req); err != nil {
		return
	}

	reply := s.dispatch(req)
	_ = writeFrame(conn, reply)
}

func (s *Server) dispatch(req Request) Reply {
	switch req.Kind {
	case KindStart:
		return s.handleStart(req)
	case KindStartFromConfig:
		return s.handleStartFromConfig(req)
	case KindReloadConfig:
		return s.handleReloadConfig(req)
	case KindStop:
		return s.toReply(nil, s.dispatcher.Stop(req.Selector, req.Force))
	case KindRestart:
		return s.toReply(nil, s.dispatcher.Restart(req.Selector, req.Rolling))
	case KindDelete:
		return s.toReply(nil, s.dispatcher.Delete(req.Selector))
	case KindList:
		return okReply(s.dispatcher.List())
	case KindStatus:
		return s.handleStatus(req)
	case KindLogs:
		return s.handleLogs(req)
	case KindDaemonStatus:
		return okReply(map[string]interface{}{"status": "running", "count": len(s.dispatcher.List())})
	case KindDaemonShutdown:
		if s.shutdown != nil {
			go s.shutdown("client requested shutdown")
		}
		return okReply(map[string]string{"status": "shutting down"})
	default:
		return errorReply(registry.NewError(registry.KindValidationFailed, "unknown request kind: "+string(req.Kind)))
	}
}

func (s *Server) handleStart(req Request) Reply {
	if req.Config == nil {
		return errorReply(registry.NewError(registry.KindValidationFailed, "start requires a config"))
	}
	req.Config.SetDefaults()
	result, err := s.dispatcher.Start(req.Config)
	if err != nil {
		return errorReply(err)
	}
	return okReply(result)
}

func (s *Server) handleStartFromConfig(req Request) Reply {
	result, err := s.dispatcher.StartFromConfig(req.Path)
	return s.toReply(result, err)
}

func (s *Server) handleReloadConfig(req Request) Reply {
	result, err := s.dispatcher.ReloadConfig(req.Path)
	return s.toReply(result, err)
}

func (s *Server) handleStatus(req Request) Reply {
	entries, err := s.dispatcher.Status(req.Selector)
	if err != nil {
		return errorReply(err)
	}
	return okReply(entries)
}

func (s *Server) handleLogs(req Request) Reply {
	if s.logBuffer == nil {
		return okReply([]logcapture.Line{})
	}
	lines := req.Lines
	if lines <= 0 {
		lines = 100
	}
	recent := s.logBuffer.Recent(lines)
	filtered := make([]logcapture.Line, 0, len(recent))
	for _, l := range recent {
		if req.Selector != "" && l.Name != req.Selector {
			continue
		}
		if req.StderrOnly && l.Stream != "stderr" {
			continue
		}
		filtered = append(filtered, l)
	}
	return okReply(filtered)
}

func (s *Server) toReply(payload interface{}, err error) Reply {
	if err != nil {
		return errorReply(err)
	}
	return okReply(payload)
}

func errorReply(err error) Reply {
	var regErr *registry.Error
	if errors.As(err, &regErr) {
		return Reply{Ok: false, Error: &ErrorPayload{Kind: string(regErr.Kind), Message: regErr.Message}}
	}
	return Reply{Ok: false, Error: &ErrorPayload{Kind: string(registry.KindSpawnFailed), Message: err.Error()}}
}
