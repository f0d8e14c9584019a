package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/mcp-agent-go/internal/config"
	"github.com/wagiedev/mcp-agent-go/internal/errors"
	"github.com/wagiedev/mcp-agent-go/internal/protocol"
	"github.com/wagiedev/mcp-agent-go/internal/registry"
	"github.com/wagiedev/mcp-agent-go/internal/transport"
)

// Notification methods a server emits.
const (
	MethodResourcesListChanged = "notifications/resources/list_changed"
	MethodLogMessage           = "notifications/message"
)

// shutdownTimeout bounds the HTTP server's graceful shutdown.
const shutdownTimeout = 5 * time.Second

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default discards output.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithInstructions sets the instructions returned during the handshake.
func WithInstructions(instructions string) Option {
	return func(s *Server) {
		s.instructions = instructions
	}
}

// WithRequestTimeout bounds requests the server sends, such as sampling.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.requestTimeout = d
	}
}

// Server exposes a registry over the protocol.
type Server struct {
	log            *slog.Logger
	name           string
	version        string
	instructions   string
	requestTimeout time.Duration
	registry       *registry.Registry

	mu       sync.Mutex
	sessions map[*protocol.Session]struct{}
}

// New creates a server named name that serves reg.
func New(name, version string, reg *registry.Registry, opts ...Option) *Server {
	s := &Server{
		log:            slog.New(slog.DiscardHandler),
		name:           name,
		version:        version,
		requestTimeout: protocol.DefaultRequestTimeout,
		registry:       reg,
		sessions:       make(map[*protocol.Session]struct{}, 4),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.log = s.log.With("component", "server", "server", name)

	return s
}

// Registry returns the registry the server serves.
func (s *Server) Registry() *registry.Registry {
	return s.registry
}

// Info returns the implementation info announced during the handshake.
func (s *Server) Info() *mcp.Implementation {
	return &mcp.Implementation{Name: s.name, Version: s.version}
}

// Capabilities summarizes which kinds the registry declares.
func (s *Server) Capabilities() *mcp.ServerCapabilities {
	caps := &mcp.ServerCapabilities{}

	if s.registry.Len(registry.KindTool) > 0 {
		caps.Tools = &mcp.ToolCapabilities{}
	}

	if s.registry.Len(registry.KindResource) > 0 || s.registry.Len(registry.KindResourceTemplate) > 0 {
		caps.Resources = &mcp.ResourceCapabilities{ListChanged: true}
	}

	if s.registry.Len(registry.KindPrompt) > 0 {
		caps.Prompts = &mcp.PromptCapabilities{}
	}

	return caps
}

// Sessions returns the number of open sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// ServeTransport runs one session over t until ctx ends or the peer goes away.
// The transport must already be started; ServeTransport closes it on return.
func (s *Server) ServeTransport(ctx context.Context, t config.Transport) error {
	session := protocol.NewSession(s.log, t, protocol.RoleServer, protocol.WithRequestTimeout(s.requestTimeout))
	session.AcceptInitialize(protocol.ServerConfig{
		Info:         s.Info(),
		Capabilities: s.Capabilities(),
		Instructions: s.instructions,
	})
	s.bind(session)

	s.mu.Lock()
	s.sessions[session] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.sessions, session)
		s.mu.Unlock()

		_ = session.Close()
		_ = t.Close()
	}()

	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	select {
	case <-ctx.Done():
		s.log.Debug("Session context done")

		return nil
	case <-session.Done():
	}

	err := session.Err()

	switch {
	case err == nil,
		stderrors.Is(err, errors.ErrSessionClosed),
		stderrors.Is(err, errors.ErrTransportNotConnected),
		stderrors.Is(err, io.EOF):
		s.log.Info("Client disconnected")

		return nil
	default:
		return err
	}
}

// ServeStdio serves one session over r and w, typically os.Stdin and os.Stdout.
func (s *Server) ServeStdio(ctx context.Context, r io.Reader, w io.WriteCloser) error {
	t := transport.NewStreamTransport(s.log, r, w)

	if err := t.Start(ctx); err != nil {
		return err
	}

	return s.ServeTransport(ctx, t)
}

// Handler returns the HTTP+SSE binding: GET /sse opens a session and POST
// /message delivers client messages to it.
func (s *Server) Handler() http.Handler {
	return transport.NewSSEHandler(s.log, func(ctx context.Context, t config.Transport) {
		if err := s.ServeTransport(ctx, t); err != nil {
			s.log.Warn("SSE session ended with error", "error", err)
		}
	})
}

// ListenAndServe serves the HTTP+SSE binding on addr until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("Listening", "addr", addr)

		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", addr, err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()

		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// NotifyResourcesChanged tells every ready session the resource list changed.
func (s *Server) NotifyResourcesChanged(ctx context.Context) {
	s.broadcast(ctx, MethodResourcesListChanged, nil)
}

// Log sends a notifications/message to every ready session.
func (s *Server) Log(ctx context.Context, level mcp.LoggingLevel, data any) {
	s.broadcast(ctx, MethodLogMessage, &mcp.LoggingMessageParams{
		Level:  level,
		Logger: s.name,
		Data:   data,
	})
}

func (s *Server) broadcast(ctx context.Context, method string, params any) {
	s.mu.Lock()

	targets := make([]*protocol.Session, 0, len(s.sessions))
	for session := range s.sessions {
		if session.State() == protocol.StateReady {
			targets = append(targets, session)
		}
	}

	s.mu.Unlock()

	for _, session := range targets {
		if err := session.Notify(ctx, method, params); err != nil {
			s.log.Debug("Failed to notify session", "method", method, "error", err)
		}
	}
}
