package mcpagent

import (
	"context"
	"log/slog"
	"time"

	"github.com/wagiedev/mcp-agent-go/internal/registry"
	"github.com/wagiedev/mcp-agent-go/internal/server"
)

// Server exposes a Registry's capabilities to MCP clients over stdio or
// HTTP with server-sent events.
type Server = server.Server

// ServerOption configures a Server.
type ServerOption = server.Option

// Sampler lets a handler ask the calling client's model for a completion.
type Sampler = server.Sampler

// NewRegistry creates an empty capability registry.
// A nil logger disables logging.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = NopLogger()
	}

	return registry.New(log)
}

// NewServer creates a server for reg's capabilities.
//
//	reg := mcpagent.NewRegistry(nil)
//	tool, _ := mcpagent.NewTool("echo", "Echo the input",
//	    func(ctx context.Context, in struct{ Text string `json:"text"` }) (*mcpagent.CallToolResult, error) {
//	        return mcpagent.TextResult(in.Text), nil
//	    })
//	reg.MustRegister(tool)
//
//	srv := mcpagent.NewServer("echo", "1.0.0", reg)
//	err := srv.ServeStdio(ctx, os.Stdin, os.Stdout)
func NewServer(name, version string, reg *Registry, opts ...ServerOption) *Server {
	return server.New(name, version, reg, opts...)
}

// WithServerLogger sets the server's logger.
func WithServerLogger(log *slog.Logger) ServerOption {
	return server.WithLogger(log)
}

// WithInstructions sets the instructions returned in the initialize result.
func WithInstructions(instructions string) ServerOption {
	return server.WithInstructions(instructions)
}

// WithServerRequestTimeout bounds the server's own requests, such as sampling.
func WithServerRequestTimeout(d time.Duration) ServerOption {
	return server.WithRequestTimeout(d)
}

// SamplerFrom returns the sampler of the client session that invoked the
// current handler. It reports false outside a handler.
func SamplerFrom(ctx context.Context) (Sampler, bool) {
	return server.SamplerFrom(ctx)
}

// NewTool declares a tool whose parameters are derived from the fields of In.
// Field descriptions come from `jsonschema` struct tags.
func NewTool[In any](
	name, description string,
	fn func(ctx context.Context, in In) (*CallToolResult, error),
) (Descriptor, error) {
	return registry.NewTool(name, description, fn)
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *CallToolResult {
	return registry.TextResult(text)
}

// ErrorResult creates a CallToolResult reporting a failure in-band.
func ErrorResult(message string) *CallToolResult {
	return registry.ErrorResult(message)
}

// ImageResult creates a CallToolResult with image content.
func ImageResult(data []byte, mimeType string) *CallToolResult {
	return registry.ImageResult(data, mimeType)
}

// TextOf joins the text content of a tool result.
func TextOf(result *CallToolResult) string {
	return registry.TextOf(result)
}
