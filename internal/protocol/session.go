package protocol

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcp-agent-go/internal/errors"
	"github.com/wagiedev/mcp-agent-go/internal/jsonrpc"
)

// LatestProtocolVersion is the version a client requests by default.
const LatestProtocolVersion = "2025-06-18"

// SupportedProtocolVersions lists every version this engine speaks, newest first.
var SupportedProtocolVersions = []string{LatestProtocolVersion, "2025-03-26", "2024-11-05"}

// Method names of the session lifecycle.
const (
	MethodInitialize    = "initialize"
	MethodInitialized   = "notifications/initialized"
	MethodPing          = "ping"
	MethodCreateMessage = "sampling/createMessage"
)

// DefaultSamplingTimeout bounds a sampling request. Nested model inference is
// slower than an ordinary request.
const DefaultSamplingTimeout = 2 * time.Minute

// State is the lifecycle state of a session.
type State int32

const (
	StateUninitialized State = iota
	StateHandshaking
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Role selects which side of the handshake a session plays.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// ServerConfig is what a server-role session announces during the handshake.
type ServerConfig struct {
	Info         *mcp.Implementation
	Capabilities *mcp.ServerCapabilities
	Instructions string

	// OnReady runs once the client confirms the handshake.
	OnReady func(ctx context.Context)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithRequestTimeout sets the timeout used for calls that pass no explicit timeout.
func WithRequestTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// Session is the per-connection protocol state machine:
// Uninitialized → Handshaking → Ready → Closed.
//
// Requests other than initialize and ping are refused until the session is
// Ready. A failed handshake moves the session straight to Closed.
type Session struct {
	log            *slog.Logger
	role           Role
	controller     *Controller
	requestTimeout time.Duration

	state atomic.Int32

	mu         sync.RWMutex
	version    string
	initResult *mcp.InitializeResult
	clientInfo *mcp.Implementation
	clientCaps *mcp.ClientCapabilities
	server     *ServerConfig

	closeOnce sync.Once
}

// NewSession creates a session over transport. Call Start before any exchange.
func NewSession(log *slog.Logger, transport Transport, role Role, opts ...SessionOption) *Session {
	s := &Session{
		log:            log.With("component", "session"),
		role:           role,
		controller:     NewController(log, transport),
		requestTimeout: DefaultRequestTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.controller.SetGate(s.admit)
	s.controller.RegisterHandler(MethodPing, func(context.Context, *jsonrpc.Message) (any, error) {
		return struct{}{}, nil
	})

	return s
}

// Controller exposes the correlation engine for handler registration.
func (s *Session) Controller() *Controller {
	return s.controller
}

// Role reports which side of the connection this session plays.
func (s *Session) Role() Role {
	return s.role
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	select {
	case <-s.controller.Done():
		return StateClosed
	default:
	}

	return State(s.state.Load())
}

// Done is closed when the session closes for any reason.
func (s *Session) Done() <-chan struct{} {
	return s.controller.Done()
}

// Err returns the reason the session closed, or nil while it is open.
func (s *Session) Err() error {
	return s.controller.FatalError()
}

// Start begins processing incoming messages.
func (s *Session) Start(ctx context.Context) error {
	return s.controller.Start(ctx)
}

// Close moves the session to Closed. Pending requests fail with
// SessionClosedError. It's safe to call Close multiple times.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.log.Debug("Closing session", "state", s.State())
		s.state.Store(int32(StateClosed))
		s.controller.SetFatalError(errors.ErrSessionClosed)
		s.controller.Stop()
	})

	return nil
}

// fail records err as the close reason and closes the session.
func (s *Session) fail(err error) {
	s.controller.SetFatalError(err)
	_ = s.Close()
}

// admit gates incoming requests by lifecycle state.
func (s *Session) admit(method string) error {
	state := s.State()
	if state == StateClosed {
		return errors.ErrSessionClosed
	}

	if method == MethodInitialize || method == MethodPing {
		return nil
	}

	if s.role == RoleServer && state != StateReady {
		return fmt.Errorf("%w: %s received in state %s", errors.ErrNotInitialized, method, state)
	}

	return nil
}

// Call sends a request once the session is Ready. A zero timeout uses the
// session's request timeout.
func (s *Session) Call(ctx context.Context, method string, params any, timeout time.Duration) (json.RawMessage, error) {
	switch state := s.State(); {
	case state == StateClosed:
		return nil, &errors.SessionClosedError{Method: method, Err: s.Err()}
	case state != StateReady && method != MethodPing:
		return nil, fmt.Errorf("%s: %w", method, errors.ErrNotInitialized)
	}

	if timeout <= 0 {
		timeout = s.requestTimeout
	}

	return s.controller.Call(ctx, method, params, timeout)
}

// Notify sends a notification.
func (s *Session) Notify(ctx context.Context, method string, params any) error {
	return s.controller.Notify(ctx, method, params)
}

// Ping checks the peer is responsive.
func (s *Session) Ping(ctx context.Context) error {
	_, err := s.Call(ctx, MethodPing, nil, 0)

	return err
}

// CallResult sends a request and decodes the result into T.
func CallResult[T any](ctx context.Context, s *Session, method string, params any, timeout time.Duration) (*T, error) {
	raw, err := s.Call(ctx, method, params, timeout)
	if err != nil {
		return nil, err
	}

	var result T
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", method, err)
	}

	return &result, nil
}

// Initialize runs the client side of the handshake.
//
// On success the session is Ready and notifications/initialized has been sent.
// Any failure closes the session and returns *errors.HandshakeError.
func (s *Session) Initialize(
	ctx context.Context,
	params *mcp.InitializeParams,
	timeout time.Duration,
) (*mcp.InitializeResult, error) {
	if s.role != RoleClient {
		return nil, fmt.Errorf("initialize: %w", errors.ErrAlreadyInitialized)
	}

	if !s.state.CompareAndSwap(int32(StateUninitialized), int32(StateHandshaking)) {
		return nil, errors.ErrAlreadyInitialized
	}

	if params.ProtocolVersion == "" {
		params.ProtocolVersion = LatestProtocolVersion
	}

	requested := params.ProtocolVersion

	s.log.Debug("Starting handshake", "protocol_version", requested)

	raw, err := s.controller.Call(ctx, MethodInitialize, params, timeout)
	if err != nil {
		hsErr, ok := stderrors.AsType[*errors.HandshakeError](err)
		if ok {
			hsErr.Requested = requested
		} else {
			hsErr = &errors.HandshakeError{Requested: requested, Err: err}
		}

		s.fail(hsErr)

		return nil, hsErr
	}

	var result mcp.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		hsErr := &errors.HandshakeError{Requested: requested, Err: fmt.Errorf("decode initialize result: %w", err)}
		s.fail(hsErr)

		return nil, hsErr
	}

	if !slices.Contains(SupportedProtocolVersions, result.ProtocolVersion) {
		hsErr := &errors.HandshakeError{
			Requested: requested,
			Received:  result.ProtocolVersion,
			Supported: SupportedProtocolVersions,
		}
		s.fail(hsErr)

		return nil, hsErr
	}

	s.mu.Lock()
	s.version = result.ProtocolVersion
	s.initResult = &result
	s.mu.Unlock()

	if err := s.controller.Notify(ctx, MethodInitialized, nil); err != nil {
		hsErr := &errors.HandshakeError{Requested: requested, Err: err}
		s.fail(hsErr)

		return nil, hsErr
	}

	s.state.Store(int32(StateReady))

	serverName := ""
	if result.ServerInfo != nil {
		serverName = result.ServerInfo.Name
	}

	s.log.Info("Session ready", "protocol_version", result.ProtocolVersion, "server", serverName)

	return &result, nil
}

// AcceptInitialize installs the server side of the handshake. It must be called
// before Start.
func (s *Session) AcceptInitialize(cfg ServerConfig) {
	s.mu.Lock()
	s.server = &cfg
	s.mu.Unlock()

	s.controller.RegisterHandler(MethodInitialize, s.handleInitialize)
	s.controller.RegisterNotificationHandler(MethodInitialized, s.handleInitialized)
}

func (s *Session) handleInitialize(_ context.Context, req *jsonrpc.Message) (any, error) {
	if !s.state.CompareAndSwap(int32(StateUninitialized), int32(StateHandshaking)) {
		return nil, errors.ErrAlreadyInitialized
	}

	var params mcp.InitializeParams
	if err := req.DecodeParams(&params); err != nil {
		s.state.Store(int32(StateUninitialized))

		return nil, &errors.ValidationError{Kind: "method", Name: MethodInitialize, Reason: err.Error()}
	}

	if !slices.Contains(SupportedProtocolVersions, params.ProtocolVersion) {
		hsErr := &errors.HandshakeError{
			Requested: params.ProtocolVersion,
			Received:  params.ProtocolVersion,
			Supported: SupportedProtocolVersions,
		}

		s.log.Warn("Rejecting handshake", "error", hsErr)
		s.state.Store(int32(StateClosed))
		s.controller.reply(req.ID, hsErr)
		s.controller.SetFatalError(hsErr)

		return nil, errResponded
	}

	s.mu.Lock()
	s.version = params.ProtocolVersion
	s.clientInfo = params.ClientInfo
	s.clientCaps = params.Capabilities
	result := &mcp.InitializeResult{
		ProtocolVersion: params.ProtocolVersion,
		ServerInfo:      s.server.Info,
		Capabilities:    s.server.Capabilities,
		Instructions:    s.server.Instructions,
	}
	s.initResult = result
	s.mu.Unlock()

	clientName := ""
	if params.ClientInfo != nil {
		clientName = params.ClientInfo.Name
	}

	s.log.Debug("Handshake accepted", "protocol_version", params.ProtocolVersion, "client", clientName)

	return result, nil
}

func (s *Session) handleInitialized(ctx context.Context, _ *jsonrpc.Message) {
	if !s.state.CompareAndSwap(int32(StateHandshaking), int32(StateReady)) {
		s.log.Debug("Ignoring initialized notification", "state", s.State())

		return
	}

	s.log.Info("Session ready", "protocol_version", s.ProtocolVersion())

	s.mu.RLock()
	onReady := s.server.OnReady
	s.mu.RUnlock()

	if onReady != nil {
		onReady(ctx)
	}
}

// ProtocolVersion returns the negotiated version, empty before the handshake.
func (s *Session) ProtocolVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.version
}

// InitializeResult returns the handshake result, nil before the handshake.
func (s *Session) InitializeResult() *mcp.InitializeResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.initResult
}

// ClientInfo returns the peer's implementation info on a server-role session.
func (s *Session) ClientInfo() *mcp.Implementation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.clientInfo
}

// ClientCapabilities returns the capabilities the client announced.
func (s *Session) ClientCapabilities() *mcp.ClientCapabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.clientCaps
}

// CreateMessage asks the connected client to run a model inference. It is only
// valid on a server-role session whose client announced sampling support.
func (s *Session) CreateMessage(ctx context.Context, params *mcp.CreateMessageParams) (*mcp.CreateMessageResult, error) {
	caps := s.ClientCapabilities()
	if s.role != RoleServer || caps == nil || caps.Sampling == nil {
		return nil, errors.ErrNoSamplingHandler
	}

	return CallResult[mcp.CreateMessageResult](ctx, s, MethodCreateMessage, params, DefaultSamplingTimeout)
}
