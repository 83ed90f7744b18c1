package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"cageclock/internal/daemon"
	"cageclock/internal/logging"
	"cageclock/internal/services"
)

const serviceName = "CageClock"

// Server exposes the message bus via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. onStop is
// invoked when a client requests shutdown.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger, onStop func()) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	return newServer(ctx, path, NewHandler(d), d, logger, onStop)
}

func newServer(ctx context.Context, path string, h Handler, d *daemon.Daemon, logger *slog.Logger, onStop func()) (*Server, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	srv := &service{
		handler: h,
		daemon:  d,
		logger:  logging.NewComponentLogger(logger, "ipc"),
		ctx:     serverCtx,
		onStop:  onStop,
	}
	if err := rpcServer.RegisterName(serviceName, srv); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"),
				)
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun cageclock stop"),
		)
	}
}

type service struct {
	handler Handler
	daemon  *daemon.Daemon
	logger  *slog.Logger
	ctx     context.Context
	onStop  func()
}

// Dispatch decodes one bus message, routes it and encodes the result.
// Handler failures travel in Reply.Error; the RPC error is reserved for
// encoding faults.
func (s *service) Dispatch(env Envelope, reply *Reply) error {
	requestID := env.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx := services.WithRequestID(services.WithMessageType(s.ctx, string(env.Type)), requestID)
	logger := logging.WithContext(ctx, s.logger)

	reply.Type = env.Type
	reply.RequestID = requestID

	start := time.Now()
	req, err := DecodeRequest(env)
	var result any
	if err == nil {
		result, err = Route(ctx, s.handler, req)
	}
	if err != nil {
		reply.Error = NewErrorPayload(err)
		hint := reply.Error.Hint
		if hint == "" {
			hint = reply.Error.Message
		}
		logging.WarnWithContext(logger, "message failed", "ipc_message_failed",
			logging.String(logging.FieldErrorKind, reply.Error.Kind),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hint),
			logging.String(logging.FieldImpact, "client received an error reply"),
		)
		return nil
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode %s reply: %w", env.Type, err)
	}
	reply.Success = true
	reply.Payload = payload
	logger.Debug("message handled", logging.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	if s.daemon == nil {
		return errors.New("daemon unavailable")
	}
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.StartedAt = status.StartedAt
	resp.DatabasePath = status.DatabasePath
	resp.LockPath = status.LockFilePath
	resp.Focus = status.Focus
	resp.FocusError = status.FocusError
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Info("daemon stop requested via IPC", logging.String(logging.FieldEventType, "daemon_stop_requested"))
	if s.onStop != nil {
		// Reply before the listener goes away.
		go s.onStop()
	}
	resp.Stopped = true
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	if s.daemon == nil {
		return errors.New("daemon unavailable")
	}
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
