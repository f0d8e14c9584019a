package mcpagent

import (
	"context"
	"encoding/json"

	"github.com/wagiedev/mcp-agent-go/internal/client"
)

// clientWrapper wraps the internal client to adapt it to the public interface.
type clientWrapper struct {
	impl *client.Client
}

// Compile-time check that *clientWrapper implements the Client interface.
var _ Client = (*clientWrapper)(nil)

func newClientImpl() Client {
	return &clientWrapper{impl: client.New()}
}

func (c *clientWrapper) Start(ctx context.Context, opts ...Option) error {
	return c.impl.Start(ctx, applyOptions(opts))
}

func (c *clientWrapper) ServerInfo() *InitializeResult {
	return c.impl.ServerInfo()
}

func (c *clientWrapper) Ping(ctx context.Context) error {
	return c.impl.Ping(ctx)
}

func (c *clientWrapper) ListTools(ctx context.Context) ([]*Tool, error) {
	return c.impl.ListTools(ctx)
}

func (c *clientWrapper) CallTool(ctx context.Context, name string, args map[string]any) (*CallToolResult, error) {
	return c.impl.CallTool(ctx, name, args)
}

func (c *clientWrapper) ListResources(ctx context.Context) ([]*Resource, error) {
	return c.impl.ListResources(ctx)
}

func (c *clientWrapper) ListResourceTemplates(ctx context.Context) ([]*ResourceTemplate, error) {
	return c.impl.ListResourceTemplates(ctx)
}

func (c *clientWrapper) ReadResource(ctx context.Context, uri string) (*ReadResourceResult, error) {
	return c.impl.ReadResource(ctx, uri)
}

func (c *clientWrapper) ListPrompts(ctx context.Context) ([]*Prompt, error) {
	return c.impl.ListPrompts(ctx)
}

func (c *clientWrapper) GetPrompt(ctx context.Context, name string, args map[string]string) (*GetPromptResult, error) {
	return c.impl.GetPrompt(ctx, name, args)
}

func (c *clientWrapper) Raw(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return c.impl.Raw(ctx, method, params)
}

func (c *clientWrapper) Done() <-chan struct{} {
	return c.impl.Done()
}

func (c *clientWrapper) Close() error {
	return c.impl.Close()
}
