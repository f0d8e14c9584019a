// Package protocol implements the session protocol engine shared by clients and
// servers.
//
// The Controller correlates JSON-RPC requests with their responses over one
// connection. Every outgoing request gets a ULID id and a pending slot; the slot
// completes with the matching response, a TimeoutError, or a SessionClosedError
// when the connection goes away. Responses with no pending slot are counted as
// protocol errors, logged, and dropped.
//
// The Session wraps a Controller with the connection lifecycle:
//
//	Uninitialized → Handshaking → Ready → Closed
//
// Example usage (client role):
//
//	session := protocol.NewSession(log, transport, protocol.RoleClient)
//	session.Start(ctx)
//
//	result, err := session.Initialize(ctx, &mcp.InitializeParams{
//		ClientInfo: &mcp.Implementation{Name: "mcpagent", Version: "0.1.0"},
//	}, 60*time.Second)
//
//	tools, err := protocol.CallResult[mcp.ListToolsResult](ctx, session, "tools/list", nil, 0)
package protocol
