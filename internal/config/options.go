package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SamplingHandler serves sampling/createMessage requests a server sends to the
// client mid-invocation.
type SamplingHandler func(ctx context.Context, params *mcp.CreateMessageParams) (*mcp.CreateMessageResult, error)

// NotificationHandler receives server notifications the client does not handle
// itself, such as notifications/resources/list_changed.
type NotificationHandler func(ctx context.Context, method string, params []byte)

// Options configures a client connection to a capability server.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// ClientName and ClientVersion are sent in the initialize request.
	ClientName    string
	ClientVersion string

	// ProtocolVersion is the version requested during the handshake.
	// Defaults to the newest supported version.
	ProtocolVersion string

	// RequestTimeout bounds every request that has no explicit timeout.
	RequestTimeout time.Duration

	// InitializeTimeout bounds the initialize request.
	// Falls back to MCPAGENT_INITIALIZE_TIMEOUT (seconds), then to 60s.
	InitializeTimeout *time.Duration

	// Command and Args start the server as a subprocess.
	Command string
	Args    []string

	// Env provides additional environment variables for the server process.
	Env map[string]string

	// Cwd sets the working directory for the server process.
	Cwd string

	// Stderr receives the server's stderr line by line.
	Stderr func(string)

	// URL connects to a server over the HTTP+SSE binding instead of a subprocess.
	URL string

	// Transport overrides Command and URL with a custom transport.
	Transport Transport

	// Sampling serves sampling requests from the server. When nil the client
	// does not advertise the sampling capability.
	Sampling SamplingHandler

	// OnNotification receives server notifications.
	OnNotification NotificationHandler
}

// AgentOptions configures the tool-orchestration loop.
type AgentOptions struct {
	// Logger is the slog logger for debug output.
	Logger *slog.Logger

	// SystemPrompt is prepended to every conversation.
	SystemPrompt string

	// MaxRounds bounds model round-trips for one query.
	MaxRounds int

	// RoundTimeout bounds a single model call.
	RoundTimeout time.Duration

	// MaxRetries is the number of retries for a failing model call.
	MaxRetries uint64
}
