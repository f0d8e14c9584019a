// Package errors defines the error taxonomy shared by every layer of the agent.
//
// Each failure class is a pointer struct type that carries enough context to be
// reported to a caller or a model, and that unwraps to its root cause. Types that
// correspond to a well-known condition also unwrap to a sentinel, so callers can use
// either errors.Is or errors.As. Only HandshakeError and FramingError with Fatal set
// end a connection; everything else is scoped to one operation.
package errors
