package mcpagent

import "github.com/wagiedev/mcp-agent-go/internal/errors"

// Re-export error types from internal package

// MCPError is the base interface for all errors of this module.
type MCPError = errors.MCPError

// FramingError indicates a frame could not be decoded into a protocol message.
type FramingError = errors.FramingError

// HandshakeError indicates the peers could not agree on a protocol version.
type HandshakeError = errors.HandshakeError

// ValidationError indicates arguments did not match a capability's parameters.
type ValidationError = errors.ValidationError

// InvocationError indicates a capability handler failed.
type InvocationError = errors.InvocationError

// ProtocolError indicates a message that violates the protocol was dropped.
type ProtocolError = errors.ProtocolError

// TimeoutError indicates a request got no response in time.
type TimeoutError = errors.TimeoutError

// SessionClosedError indicates the session closed while a request was in flight.
type SessionClosedError = errors.SessionClosedError

// MalformedResponseError indicates model output could not be used by a pipeline stage.
type MalformedResponseError = errors.MalformedResponseError

// RoundBudgetExceededError indicates the orchestration loop ran out of rounds.
type RoundBudgetExceededError = errors.RoundBudgetExceededError

// UnresolvedParameterError indicates a resource template variable had no value.
type UnresolvedParameterError = errors.UnresolvedParameterError

// ExtraParameterError indicates values for variables a template does not name.
type ExtraParameterError = errors.ExtraParameterError

// NotFoundError indicates a capability or resource does not exist.
type NotFoundError = errors.NotFoundError

// DuplicateNameError indicates a capability name is already registered.
type DuplicateNameError = errors.DuplicateNameError

// RPCError is a JSON-RPC error the peer returned that has no more specific type.
type RPCError = errors.RPCError

// ConnectionError indicates failure to connect to a server.
type ConnectionError = errors.ConnectionError

// ProcessError indicates the server process failed.
type ProcessError = errors.ProcessError

// Re-export sentinel errors from internal package.
var (
	// ErrClientNotConnected indicates the client is not connected.
	ErrClientNotConnected = errors.ErrClientNotConnected

	// ErrClientAlreadyConnected indicates the client is already connected.
	ErrClientAlreadyConnected = errors.ErrClientAlreadyConnected

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.ErrClientClosed

	// ErrTransportNotConnected indicates the transport is not connected.
	ErrTransportNotConnected = errors.ErrTransportNotConnected

	// ErrRequestTimeout indicates a request timed out.
	ErrRequestTimeout = errors.ErrRequestTimeout

	// ErrSessionClosed indicates the session is closed.
	ErrSessionClosed = errors.ErrSessionClosed

	// ErrNotInitialized indicates a request arrived before the handshake completed.
	ErrNotInitialized = errors.ErrNotInitialized

	// ErrOperationCancelled indicates an in-flight request was cancelled by the peer.
	ErrOperationCancelled = errors.ErrOperationCancelled

	// ErrStageOutOfOrder indicates a pipeline stage was run before its predecessor.
	ErrStageOutOfOrder = errors.ErrStageOutOfOrder

	// ErrNoSamplingHandler indicates the client cannot serve sampling requests.
	ErrNoSamplingHandler = errors.ErrNoSamplingHandler
)
