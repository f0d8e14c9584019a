package server

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcp-agent-go/internal/protocol"
)

// Sampler asks the connected client to run a model inference.
type Sampler interface {
	CreateMessage(ctx context.Context, params *mcp.CreateMessageParams) (*mcp.CreateMessageResult, error)
}

// Compile-time verification that protocol sessions can sample.
var _ Sampler = (*protocol.Session)(nil)

type sessionKey struct{}

func withSession(ctx context.Context, s *protocol.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SamplerFrom returns the sampler of the session that invoked the current
// handler. It reports false outside a handler.
func SamplerFrom(ctx context.Context) (Sampler, bool) {
	s, ok := ctx.Value(sessionKey{}).(*protocol.Session)
	if !ok || s == nil {
		return nil, false
	}

	return s, true
}
