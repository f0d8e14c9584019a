package mcpagent

import (
	"context"
	"encoding/json"
)

// Client is a connection to one MCP capability server.
//
// It performs the initialize handshake on Start and then exposes discovery and
// invocation of the server's tools, resources, and prompts. Requests may be
// issued concurrently; responses are matched to their requests by id.
//
// Lifecycle: Clients are single-use. After Close(), create a new client with NewClient().
//
// Example usage:
//
//	client := mcpagent.NewClient()
//	defer client.Close()
//
//	err := client.Start(ctx,
//	    mcpagent.WithLogger(slog.Default()),
//	    mcpagent.WithCommand("mcpagent", "serve", "weather"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := client.CallTool(ctx, "get_alerts", map[string]any{"state": "CA"})
type Client interface {
	// Start connects to the server and completes the handshake.
	// Must be called before any other methods.
	Start(ctx context.Context, opts ...Option) error

	// ServerInfo returns the server's initialize result, or nil before Start.
	ServerInfo() *InitializeResult

	// Ping checks that the server is responsive.
	Ping(ctx context.Context) error

	// ListTools returns the tools the server declares.
	ListTools(ctx context.Context) ([]*Tool, error)

	// CallTool invokes a tool. A tool that fails while running is reported
	// in-band with IsError set; unknown tools and invalid arguments are errors.
	CallTool(ctx context.Context, name string, args map[string]any) (*CallToolResult, error)

	// ListResources returns the static resources the server declares.
	ListResources(ctx context.Context) ([]*Resource, error)

	// ListResourceTemplates returns the resource templates the server declares.
	ListResourceTemplates(ctx context.Context) ([]*ResourceTemplate, error)

	// ReadResource reads a resource by URI.
	// Returns NotFoundError if no resource matches.
	ReadResource(ctx context.Context, uri string) (*ReadResourceResult, error)

	// ListPrompts returns the prompts the server declares.
	ListPrompts(ctx context.Context) ([]*Prompt, error)

	// GetPrompt renders a prompt with its string arguments.
	GetPrompt(ctx context.Context, name string, args map[string]string) (*GetPromptResult, error)

	// Raw sends an arbitrary request and returns its undecoded result.
	Raw(ctx context.Context, method string, params any) (json.RawMessage, error)

	// Done is closed when the connection ends.
	Done() <-chan struct{}

	// Close ends the session and releases the transport.
	// After Close(), the client cannot be reused. Safe to call multiple times.
	Close() error
}

// NewClient creates a new client.
//
// Call Start() with options to connect:
//
//	client := NewClient()
//	err := client.Start(ctx,
//	    WithLogger(slog.Default()),
//	    WithURL("http://localhost:8081/sse"),
//	)
func NewClient() Client {
	return newClientImpl()
}
