package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/mcp-agent-go/internal/config"
	"github.com/wagiedev/mcp-agent-go/internal/errors"
	"github.com/wagiedev/mcp-agent-go/internal/jsonrpc"
	"github.com/wagiedev/mcp-agent-go/internal/protocol"
	"github.com/wagiedev/mcp-agent-go/internal/transport"
)

const (
	// defaultInitializeTimeout bounds the handshake when nothing overrides it.
	defaultInitializeTimeout = 60 * time.Second

	// initializeTimeoutEnv overrides the handshake timeout, in seconds.
	initializeTimeoutEnv = "MCPAGENT_INITIALIZE_TIMEOUT"

	defaultClientName    = "mcpagent"
	defaultClientVersion = "0.1.0"
)

// Server notifications forwarded to Options.OnNotification.
var forwardedNotifications = []string{
	"notifications/resources/list_changed",
	"notifications/tools/list_changed",
	"notifications/prompts/list_changed",
	"notifications/message",
}

// Client is the client role of the protocol: it connects to one capability
// server, performs the handshake, and exposes discovery and invocation.
type Client struct {
	log       *slog.Logger
	transport config.Transport
	session   *protocol.Session
	options   *config.Options

	// Errgroup for goroutine management
	eg *errgroup.Group

	// Lifecycle management
	mu        sync.Mutex
	done      chan struct{}
	connected bool
	closed    bool      // Tracks if Close() has been called
	closeOnce sync.Once // Ensures Close() only runs once
}

// New creates a new client.
//
// The client is not connected after creation. Call Start() with options to connect.
func New() *Client {
	return &Client{
		done: make(chan struct{}),
	}
}

// Start connects to the server and performs the handshake.
//
// The transport is Options.Transport when set, else an HTTP+SSE connection when
// Options.URL is set, else a subprocess running Options.Command.
func (c *Client) Start(ctx context.Context, options *config.Options) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.ErrClientClosed
	}

	if c.connected {
		return errors.ErrClientAlreadyConnected
	}

	if options == nil {
		options = &config.Options{}
	}

	log := options.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	c.log = log.With("component", "client")
	c.options = options

	t, err := c.newTransport(options)
	if err != nil {
		return err
	}

	if err := t.Start(ctx); err != nil {
		return fmt.Errorf("start transport: %w", err)
	}

	c.transport = t
	c.session = protocol.NewSession(log, t, protocol.RoleClient, protocol.WithRequestTimeout(options.RequestTimeout))
	c.registerHandlers()

	if err := c.session.Start(ctx); err != nil {
		_ = t.Close()

		return fmt.Errorf("start session: %w", err)
	}

	if _, err := c.session.Initialize(ctx, c.initializeParams(), initializeTimeout(options)); err != nil {
		_ = c.session.Close()
		_ = t.Close()

		return fmt.Errorf("initialize session: %w", err)
	}

	c.eg = &errgroup.Group{}
	c.eg.Go(c.watch)

	c.connected = true
	c.log.Info("Client started successfully")

	return nil
}

func (c *Client) newTransport(options *config.Options) (config.Transport, error) {
	switch {
	case options.Transport != nil:
		c.log.Debug("Using injected custom transport")

		return options.Transport, nil
	case options.URL != "":
		return transport.NewSSEClientTransport(c.log, options.URL, http.DefaultClient), nil
	case options.Command != "":
		return transport.NewCommandTransport(c.log, options), nil
	default:
		return nil, &errors.ConnectionError{Err: stderrors.New("no server command, URL, or transport configured")}
	}
}

func (c *Client) initializeParams() *mcp.InitializeParams {
	name, version := c.options.ClientName, c.options.ClientVersion
	if name == "" {
		name = defaultClientName
	}

	if version == "" {
		version = defaultClientVersion
	}

	caps := &mcp.ClientCapabilities{}
	if c.options.Sampling != nil {
		caps.Sampling = &mcp.SamplingCapabilities{}
	}

	return &mcp.InitializeParams{
		ProtocolVersion: c.options.ProtocolVersion,
		ClientInfo:      &mcp.Implementation{Name: name, Version: version},
		Capabilities:    caps,
	}
}

// initializeTimeout resolves the handshake timeout: option, then environment,
// then the default.
func initializeTimeout(options *config.Options) time.Duration {
	if options.InitializeTimeout != nil && *options.InitializeTimeout > 0 {
		return *options.InitializeTimeout
	}

	if v := os.Getenv(initializeTimeoutEnv); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}

	return defaultInitializeTimeout
}

// registerHandlers installs the handlers for server-initiated messages.
func (c *Client) registerHandlers() {
	ctrl := c.session.Controller()

	if sampling := c.options.Sampling; sampling != nil {
		ctrl.RegisterHandler(protocol.MethodCreateMessage, func(ctx context.Context, req *jsonrpc.Message) (any, error) {
			var params mcp.CreateMessageParams
			if err := req.DecodeParams(&params); err != nil {
				return nil, &errors.ValidationError{Kind: "method", Name: protocol.MethodCreateMessage, Reason: err.Error()}
			}

			c.log.Debug("Serving sampling request", "messages", len(params.Messages))

			return sampling(ctx, &params)
		})
	}

	if notify := c.options.OnNotification; notify != nil {
		for _, method := range forwardedNotifications {
			ctrl.RegisterNotificationHandler(method, func(ctx context.Context, msg *jsonrpc.Message) {
				notify(ctx, msg.Method, msg.Params)
			})
		}
	}
}

// watch logs when the session ends without Close.
func (c *Client) watch() error {
	select {
	case <-c.done:
		return nil
	case <-c.session.Done():
		if err := c.session.Err(); err != nil && !stderrors.Is(err, errors.ErrSessionClosed) {
			c.log.Warn("Session ended", "error", err)
		}

		return nil
	}
}

// activeSession returns the session if the client is connected.
func (c *Client) activeSession() (*protocol.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.ErrClientClosed
	}

	if !c.connected {
		return nil, errors.ErrClientNotConnected
	}

	return c.session, nil
}

// Done is closed when the session ends.
func (c *Client) Done() <-chan struct{} {
	session, err := c.activeSession()
	if err != nil {
		closed := make(chan struct{})
		close(closed)

		return closed
	}

	return session.Done()
}

// ServerInfo returns the server's handshake result.
func (c *Client) ServerInfo() *mcp.InitializeResult {
	session, err := c.activeSession()
	if err != nil {
		return nil
	}

	return session.InitializeResult()
}

// Ping checks the server is responsive.
func (c *Client) Ping(ctx context.Context) error {
	session, err := c.activeSession()
	if err != nil {
		return err
	}

	return session.Ping(ctx)
}

// call sends a request and decodes its result.
func call[T any](ctx context.Context, c *Client, method string, params any) (*T, error) {
	session, err := c.activeSession()
	if err != nil {
		return nil, err
	}

	return protocol.CallResult[T](ctx, session, method, params, 0)
}

// cursorParams is the paging payload of every list method.
type cursorParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// paginate collects every page of a list method. A cursor the server repeats
// ends the walk.
func paginate[R any, T any](
	ctx context.Context,
	c *Client,
	method string,
	page func(*R) ([]T, string),
) ([]T, error) {
	var (
		items  []T
		cursor string
		seen   = map[string]bool{}
	)

	for {
		result, err := call[R](ctx, c, method, cursorParams{Cursor: cursor})
		if err != nil {
			return nil, err
		}

		pageItems, next := page(result)
		items = append(items, pageItems...)

		if next == "" || seen[next] {
			return items, nil
		}

		seen[next] = true
		cursor = next
	}
}

// ListTools returns the server's tools in declaration order.
func (c *Client) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	return paginate(ctx, c, "tools/list", func(r *mcp.ListToolsResult) ([]*mcp.Tool, string) {
		return r.Tools, r.NextCursor
	})
}

// CallTool invokes a tool. A tool that fails reports it in the result with
// IsError set; unknown tools and invalid arguments are returned as errors.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	return call[mcp.CallToolResult](ctx, c, "tools/call", map[string]any{
		"name":      name,
		"arguments": args,
	})
}

// ListResources returns the server's static resources.
func (c *Client) ListResources(ctx context.Context) ([]*mcp.Resource, error) {
	return paginate(ctx, c, "resources/list", func(r *mcp.ListResourcesResult) ([]*mcp.Resource, string) {
		return r.Resources, r.NextCursor
	})
}

// ListResourceTemplates returns the server's resource templates.
func (c *Client) ListResourceTemplates(ctx context.Context) ([]*mcp.ResourceTemplate, error) {
	return paginate(ctx, c, "resources/templates/list",
		func(r *mcp.ListResourceTemplatesResult) ([]*mcp.ResourceTemplate, string) {
			return r.ResourceTemplates, r.NextCursor
		})
}

// ReadResource fetches a resource by URI.
func (c *Client) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	return call[mcp.ReadResourceResult](ctx, c, "resources/read", map[string]string{"uri": uri})
}

// ListPrompts returns the server's prompts.
func (c *Client) ListPrompts(ctx context.Context) ([]*mcp.Prompt, error) {
	return paginate(ctx, c, "prompts/list", func(r *mcp.ListPromptsResult) ([]*mcp.Prompt, string) {
		return r.Prompts, r.NextCursor
	})
}

// GetPrompt renders a prompt with the given arguments.
func (c *Client) GetPrompt(ctx context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error) {
	return call[mcp.GetPromptResult](ctx, c, "prompts/get", map[string]any{
		"name":      name,
		"arguments": args,
	})
}

// Raw sends an arbitrary request and returns the raw result.
func (c *Client) Raw(ctx context.Context, method string, params any) (json.RawMessage, error) {
	session, err := c.activeSession()
	if err != nil {
		return nil, err
	}

	return session.Call(ctx, method, params, 0)
}

// Close terminates the session and cleans up resources.
//
// Pending requests fail with SessionClosedError. After Close(), the client
// cannot be reused - create a new client with New(). This method is safe to
// call multiple times.
func (c *Client) Close() error {
	var closeErr error

	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		wasConnected := c.connected
		c.connected = false
		c.mu.Unlock()

		if !wasConnected {
			return
		}

		c.log.Info("Closing client")

		// Signal shutdown
		close(c.done)

		if c.session != nil {
			_ = c.session.Close()
		}

		// Close transport and capture error
		if c.transport != nil {
			closeErr = c.transport.Close()
		}

		// Wait for errgroup goroutines to complete
		if c.eg != nil {
			if err := c.eg.Wait(); err != nil && closeErr == nil {
				closeErr = err
			}
		}

		c.log.Info("Client closed")
	})

	return closeErr
}
