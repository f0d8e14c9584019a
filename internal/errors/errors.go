package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MCPError is the base interface for all agent errors.
type MCPError interface {
	error
	IsMCPError() bool
}

// Compile-time verification that all error types implement MCPError.
var (
	_ MCPError = (*FramingError)(nil)
	_ MCPError = (*HandshakeError)(nil)
	_ MCPError = (*ValidationError)(nil)
	_ MCPError = (*InvocationError)(nil)
	_ MCPError = (*ProtocolError)(nil)
	_ MCPError = (*TimeoutError)(nil)
	_ MCPError = (*SessionClosedError)(nil)
	_ MCPError = (*MalformedResponseError)(nil)
	_ MCPError = (*RoundBudgetExceededError)(nil)
	_ MCPError = (*UnresolvedParameterError)(nil)
	_ MCPError = (*ExtraParameterError)(nil)
	_ MCPError = (*NotFoundError)(nil)
	_ MCPError = (*DuplicateNameError)(nil)
	_ MCPError = (*RPCError)(nil)
	_ MCPError = (*ConnectionError)(nil)
	_ MCPError = (*ProcessError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrClientNotConnected indicates the client is not connected.
	ErrClientNotConnected = errors.New("client not connected")

	// ErrClientAlreadyConnected indicates the client is already connected.
	ErrClientAlreadyConnected = errors.New("client already connected")

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.New("client closed: clients are single-use, create a new one with NewClient()")

	// ErrTransportNotConnected indicates the transport is not connected.
	ErrTransportNotConnected = errors.New("transport not connected")

	// ErrRequestTimeout indicates a request timed out.
	ErrRequestTimeout = errors.New("request timeout")

	// ErrSessionClosed indicates the session is closed.
	ErrSessionClosed = errors.New("session closed")

	// ErrNotInitialized indicates a request arrived before the handshake completed.
	ErrNotInitialized = errors.New("session not initialized")

	// ErrAlreadyInitialized indicates a second initialize on the same connection.
	ErrAlreadyInitialized = errors.New("session already initialized")

	// ErrStdinClosed indicates the write side was closed due to context cancellation.
	ErrStdinClosed = errors.New("stdin closed")

	// ErrOperationCancelled indicates an in-flight request was cancelled by the peer.
	ErrOperationCancelled = errors.New("operation cancelled")

	// ErrFrameTooLarge indicates a frame exceeded the maximum frame size.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrStageOutOfOrder indicates a pipeline stage was run before its predecessor.
	ErrStageOutOfOrder = errors.New("pipeline stage out of order")

	// ErrNoSamplingHandler indicates the client cannot serve sampling requests.
	ErrNoSamplingHandler = errors.New("client does not support sampling")
)

// FramingError indicates a frame could not be decoded into a protocol message.
// The stream stays usable unless Fatal is set.
type FramingError struct {
	Raw   string
	Fatal bool
	Err   error
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("malformed frame: %v", e.Err)
}

func (e *FramingError) Unwrap() error {
	return e.Err
}

// IsMCPError implements MCPError.
func (e *FramingError) IsMCPError() bool { return true }

// HandshakeError indicates the peers could not agree on a protocol version.
type HandshakeError struct {
	Requested string
	Received  string
	Supported []string
	Err       error
}

func (e *HandshakeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("handshake failed (requested %q): %v", e.Requested, e.Err)
	}

	return fmt.Sprintf(
		"handshake failed: protocol version %q not supported (requested %q, supported %s)",
		e.Received, e.Requested, strings.Join(e.Supported, ", "),
	)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// IsMCPError implements MCPError.
func (e *HandshakeError) IsMCPError() bool { return true }

// ValidationError indicates arguments did not match a capability's parameter schema.
type ValidationError struct {
	Kind   string
	Name   string
	Param  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	var b strings.Builder

	b.WriteString("invalid arguments")

	if e.Name != "" {
		fmt.Fprintf(&b, " for %s %q", e.Kind, e.Name)
	}

	if e.Param != "" {
		fmt.Fprintf(&b, ": parameter %q", e.Param)
	}

	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}

	return b.String()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsMCPError implements MCPError.
func (e *ValidationError) IsMCPError() bool { return true }

// InvocationError indicates a capability handler failed.
type InvocationError struct {
	Kind string
	Name string
	Err  error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s %q failed: %v", e.Kind, e.Name, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// IsMCPError implements MCPError.
func (e *InvocationError) IsMCPError() bool { return true }

// ProtocolError indicates a message that violates correlation rules, such as a
// response whose id has no pending request. It is logged and dropped.
type ProtocolError struct {
	ID     string
	Reason string
}

func (e *ProtocolError) Error() string {
	if e.ID == "" {
		return "protocol error: " + e.Reason
	}

	return fmt.Sprintf("protocol error (id %s): %s", e.ID, e.Reason)
}

// IsMCPError implements MCPError.
func (e *ProtocolError) IsMCPError() bool { return true }

// TimeoutError indicates no response arrived within the request deadline.
type TimeoutError struct {
	Method  string
	ID      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s (id %s): no response after %s", e.Method, e.ID, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return ErrRequestTimeout
}

// IsMCPError implements MCPError.
func (e *TimeoutError) IsMCPError() bool { return true }

// SessionClosedError indicates an operation could not complete because the session
// closed. Err holds the reason the session closed, if known.
type SessionClosedError struct {
	Method string
	Err    error
}

func (e *SessionClosedError) Error() string {
	msg := "session closed"
	if e.Method != "" {
		msg = e.Method + ": " + msg
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return msg
}

func (e *SessionClosedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSessionClosed}
	}

	return []error{ErrSessionClosed, e.Err}
}

// IsMCPError implements MCPError.
func (e *SessionClosedError) IsMCPError() bool { return true }

// MalformedResponseError indicates a pipeline stage got output it could not parse.
type MalformedResponseError struct {
	Stage string
	Raw   string
	Err   error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed %s response: %v", e.Stage, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// IsMCPError implements MCPError.
func (e *MalformedResponseError) IsMCPError() bool { return true }

// RoundBudgetExceededError indicates the orchestration loop used all of its rounds
// without the model producing a final answer.
type RoundBudgetExceededError struct {
	Rounds int
}

func (e *RoundBudgetExceededError) Error() string {
	return fmt.Sprintf("no final answer after %d rounds", e.Rounds)
}

// IsMCPError implements MCPError.
func (e *RoundBudgetExceededError) IsMCPError() bool { return true }

// UnresolvedParameterError indicates template placeholders without a supplied value.
type UnresolvedParameterError struct {
	Template string
	Params   []string
}

func (e *UnresolvedParameterError) Error() string {
	return fmt.Sprintf("template %s: no value for %s", e.Template, strings.Join(e.Params, ", "))
}

// IsMCPError implements MCPError.
func (e *UnresolvedParameterError) IsMCPError() bool { return true }

// ExtraParameterError indicates supplied values that match no template placeholder.
type ExtraParameterError struct {
	Template string
	Params   []string
}

func (e *ExtraParameterError) Error() string {
	return fmt.Sprintf("template %s: unknown parameters %s", e.Template, strings.Join(e.Params, ", "))
}

// IsMCPError implements MCPError.
func (e *ExtraParameterError) IsMCPError() bool { return true }

// NotFoundError indicates a capability or resource does not exist.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Name)
}

// IsMCPError implements MCPError.
func (e *NotFoundError) IsMCPError() bool { return true }

// DuplicateNameError indicates a capability with the same kind and name exists.
type DuplicateNameError struct {
	Kind string
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("%s %q already registered", e.Kind, e.Name)
}

// IsMCPError implements MCPError.
func (e *DuplicateNameError) IsMCPError() bool { return true }

// RPCError is an error response received from the peer that maps to no more
// specific type.
type RPCError struct {
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// IsMCPError implements MCPError.
func (e *RPCError) IsMCPError() bool { return true }

// ConnectionError indicates failure to establish a transport.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsMCPError implements MCPError.
func (e *ConnectionError) IsMCPError() bool { return true }

// ProcessError indicates a server subprocess exited with an error.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("server process failed (exit %d): %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("server process failed (exit %d): %s", e.ExitCode, e.Stderr)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsMCPError implements MCPError.
func (e *ProcessError) IsMCPError() bool { return true }
