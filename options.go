package mcpagent

import (
	"log/slog"
	"time"
)

// Option configures Options using the functional options pattern.
// This is the option type for connecting clients.
type Option func(*Options)

// applyOptions applies functional options to an Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithClientInfo sets the name and version sent in the initialize request.
func WithClientInfo(name, version string) Option {
	return func(o *Options) {
		o.ClientName = name
		o.ClientVersion = version
	}
}

// WithProtocolVersion sets the protocol version requested during the handshake.
func WithProtocolVersion(version string) Option {
	return func(o *Options) {
		o.ProtocolVersion = version
	}
}

// WithRequestTimeout bounds every request that has no explicit deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.RequestTimeout = d
	}
}

// WithInitializeTimeout bounds the initialize request.
func WithInitializeTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.InitializeTimeout = &d
	}
}

// ===== Connection =====

// WithCommand starts the server as a subprocess speaking over stdio.
func WithCommand(command string, args ...string) Option {
	return func(o *Options) {
		o.Command = command
		o.Args = args
	}
}

// WithEnv provides additional environment variables for the server process.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		o.Env = env
	}
}

// WithCwd sets the working directory for the server process.
func WithCwd(cwd string) Option {
	return func(o *Options) {
		o.Cwd = cwd
	}
}

// WithStderr sets a callback receiving the server process's stderr lines.
func WithStderr(handler func(string)) Option {
	return func(o *Options) {
		o.Stderr = handler
	}
}

// WithURL connects to a server's SSE endpoint instead of starting a process.
func WithURL(url string) Option {
	return func(o *Options) {
		o.URL = url
	}
}

// WithTransport injects a custom transport. It takes precedence over
// WithCommand and WithURL.
func WithTransport(t Transport) Option {
	return func(o *Options) {
		o.Transport = t
	}
}

// ===== Server Requests =====

// WithSampling serves the server's sampling/createMessage requests.
// Without it the client does not advertise the sampling capability.
func WithSampling(handler SamplingHandler) Option {
	return func(o *Options) {
		o.Sampling = handler
	}
}

// WithNotificationHandler receives server notifications such as
// notifications/resources/list_changed.
func WithNotificationHandler(handler NotificationHandler) Option {
	return func(o *Options) {
		o.OnNotification = handler
	}
}

// AgentOption configures AgentOptions.
type AgentOption func(*AgentOptions)

func applyAgentOptions(opts []AgentOption) *AgentOptions {
	options := &AgentOptions{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// WithAgentLogger sets the logger of the orchestration loop.
func WithAgentLogger(logger *slog.Logger) AgentOption {
	return func(o *AgentOptions) {
		o.Logger = logger
	}
}

// WithSystemPrompt sets the system prompt sent with every model call.
func WithSystemPrompt(prompt string) AgentOption {
	return func(o *AgentOptions) {
		o.SystemPrompt = prompt
	}
}

// WithMaxRounds bounds the model round-trips for one query.
func WithMaxRounds(n int) AgentOption {
	return func(o *AgentOptions) {
		o.MaxRounds = n
	}
}

// WithRoundTimeout bounds a single model call.
func WithRoundTimeout(d time.Duration) AgentOption {
	return func(o *AgentOptions) {
		o.RoundTimeout = d
	}
}

// WithMaxRetries sets how often a failing model call is retried.
func WithMaxRetries(n uint64) AgentOption {
	return func(o *AgentOptions) {
		o.MaxRetries = n
	}
}
