package errors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFramingError(t *testing.T) {
	root := errors.New("invalid character 'x'")
	err := &FramingError{Raw: "x", Err: root}

	require.Equal(t, "malformed frame: invalid character 'x'", err.Error())
	require.ErrorIs(t, err, root)
	require.False(t, err.Fatal)
	require.True(t, err.IsMCPError())
}

func TestHandshakeError_VersionMismatch(t *testing.T) {
	err := &HandshakeError{
		Requested: "2025-06-18",
		Received:  "1999-01-01",
		Supported: []string{"2025-06-18", "2024-11-05"},
	}

	require.Equal(
		t,
		`handshake failed: protocol version "1999-01-01" not supported (requested "2025-06-18", supported 2025-06-18, 2024-11-05)`,
		err.Error(),
	)
	require.NoError(t, err.Unwrap())
}

func TestHandshakeError_WithCause(t *testing.T) {
	root := &RPCError{Code: -32602, Message: "unsupported protocol version"}
	err := &HandshakeError{Requested: "2025-06-18", Err: root}

	target, ok := errors.AsType[*RPCError](err)
	require.True(t, ok)
	require.Equal(t, -32602, target.Code)
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Kind: "tool", Name: "get_forecast", Param: "latitude", Reason: "required"}

	require.Equal(t, `invalid arguments for tool "get_forecast": parameter "latitude": required`, err.Error())
	require.True(t, err.IsMCPError())

	bare := &ValidationError{Reason: "arguments must be an object"}
	require.Equal(t, "invalid arguments: arguments must be an object", bare.Error())
}

func TestInvocationError(t *testing.T) {
	root := errors.New("upstream 503")
	err := &InvocationError{Kind: "tool", Name: "get_alerts", Err: root}

	require.Equal(t, `tool "get_alerts" failed: upstream 503`, err.Error())
	require.ErrorIs(t, err, root)
}

func TestTimeoutError_IsRequestTimeout(t *testing.T) {
	err := &TimeoutError{Method: "tools/call", ID: "01J", Timeout: 2 * time.Second}

	require.ErrorIs(t, err, ErrRequestTimeout)
	require.Equal(t, "tools/call (id 01J): no response after 2s", err.Error())
}

func TestSessionClosedError(t *testing.T) {
	cause := errors.New("broken pipe")
	err := &SessionClosedError{Method: "tools/list", Err: cause}

	require.ErrorIs(t, err, ErrSessionClosed)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "tools/list: session closed: broken pipe", err.Error())

	bare := &SessionClosedError{}
	require.ErrorIs(t, bare, ErrSessionClosed)
	require.Equal(t, "session closed", bare.Error())
}

func TestParameterErrors(t *testing.T) {
	unresolved := &UnresolvedParameterError{Template: "resource://sales/{year}/{month}", Params: []string{"month"}}
	require.Equal(t, "template resource://sales/{year}/{month}: no value for month", unresolved.Error())

	extra := &ExtraParameterError{Template: "resource://sales/{year}/{month}", Params: []string{"day", "region"}}
	require.Equal(t, "template resource://sales/{year}/{month}: unknown parameters day, region", extra.Error())
}

func TestErrorsAs_ThroughWrapping(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), &RoundBudgetExceededError{Rounds: 3})

	target, ok := errors.AsType[*RoundBudgetExceededError](wrapped)
	require.True(t, ok)
	require.Equal(t, 3, target.Rounds)

	var base MCPError
	require.ErrorAs(t, wrapped, &base)
}
