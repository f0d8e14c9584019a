package mcpagent

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotFoundError_Message(t *testing.T) {
	err := &NotFoundError{Kind: "tool", Name: "get_weather"}

	require.Error(t, err)
	require.Contains(t, err.Error(), "tool not found")
	require.Contains(t, err.Error(), "get_weather")
	require.True(t, err.IsMCPError())
}

func TestValidationError_AsFromWrapped(t *testing.T) {
	inner := &ValidationError{Kind: "tool", Name: "get_forecast", Param: "latitude", Reason: "missing required parameter"}
	wrapped := fmt.Errorf("call: %w", inner)

	got, ok := stderrors.AsType[*ValidationError](wrapped)
	require.True(t, ok)
	require.Equal(t, "latitude", got.Param)
}

func TestSessionClosedError_IsSentinel(t *testing.T) {
	err := &SessionClosedError{}

	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestRoundBudgetExceededError_Message(t *testing.T) {
	err := &RoundBudgetExceededError{Rounds: 4}

	require.Contains(t, err.Error(), "4")
}

func TestMCPError_Interface(t *testing.T) {
	errs := []MCPError{
		&FramingError{},
		&HandshakeError{},
		&ValidationError{},
		&InvocationError{},
		&TimeoutError{},
		&MalformedResponseError{},
		&UnresolvedParameterError{},
		&NotFoundError{},
		&DuplicateNameError{},
	}

	for _, err := range errs {
		require.True(t, err.IsMCPError(), "%T", err)
	}
}
