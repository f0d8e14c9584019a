package mcpagent

import (
	"context"
	"io"
	"log/slog"

	"github.com/wagiedev/mcp-agent-go/internal/config"
	"github.com/wagiedev/mcp-agent-go/internal/transport"
)

// Transport moves framed protocol messages to and from a server.
// Implement this to provide custom transports for testing, mocking,
// or alternative bindings.
//
// The default implementation spawns the server as a subprocess; WithURL
// selects the HTTP+SSE binding. Custom transports are injected via WithTransport.
type Transport = config.Transport

// NewStreamTransport creates a transport that reads newline-delimited messages
// from r and writes them to w. A nil logger disables logging.
func NewStreamTransport(r io.Reader, w io.WriteCloser, log *slog.Logger) Transport {
	if log == nil {
		log = NopLogger()
	}

	return transport.NewStreamTransport(log, r, w)
}

// Pipe serves srv in-process and returns an option connecting a client to it.
// The server stops when ctx is cancelled; the returned channel then yields
// its exit error.
//
//	ctx, cancel := context.WithCancel(ctx)
//	defer cancel()
//
//	conn, done := mcpagent.Pipe(ctx, srv)
//	err := mcpagent.WithClient(ctx, fn, conn)
func Pipe(ctx context.Context, srv *Server) (Option, <-chan error) {
	clientR, serverW := io.Pipe()
	serverR, clientW := io.Pipe()

	done := make(chan error, 1)

	go func() {
		done <- srv.ServeStdio(ctx, serverR, serverW)
	}()

	return WithTransport(NewStreamTransport(clientR, clientW, nil)), done
}
