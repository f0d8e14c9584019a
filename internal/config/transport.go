// Package config provides configuration types shared by the agent's client and
// server roles.
package config

import (
	"context"

	"github.com/wagiedev/mcp-agent-go/internal/jsonrpc"
)

// Transport defines the interface for exchanging protocol messages with a peer.
// Implement this to provide custom transports for testing, mocking,
// or alternative communication methods (e.g., remote connections).
//
// The default client implementation is CommandTransport, which spawns the server
// as a subprocess. Custom transports can be injected via Options.Transport.
type Transport interface {
	// Start initializes the transport and prepares it for communication.
	// This is called before any messages are sent or received.
	Start(ctx context.Context) error

	// ReadMessages returns channels for receiving messages and errors.
	// The message channel yields decoded messages from the peer.
	// The error channel yields *errors.FramingError for dropped frames, which
	// are recoverable, and at most one terminal error.
	// Both channels are closed when reading completes.
	ReadMessages(ctx context.Context) (<-chan *jsonrpc.Message, <-chan error)

	// SendMessage frames and sends one message to the peer.
	// This method must be safe for concurrent use.
	SendMessage(ctx context.Context, msg *jsonrpc.Message) error

	// Close terminates the transport and releases resources.
	// It's safe to call Close multiple times.
	Close() error

	// IsReady returns true if the transport is ready for communication.
	IsReady() bool

	// EndInput signals that no more input will be sent.
	// For process-based transports, this typically closes stdin.
	EndInput() error
}
