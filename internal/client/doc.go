// Package client implements the client role of the protocol.
//
// A Client connects to one capability server over a subprocess, the HTTP+SSE
// binding, or an injected transport, runs the version handshake, and then
// exposes discovery (ListTools, ListResources, ListResourceTemplates,
// ListPrompts) and invocation (CallTool, ReadResource, GetPrompt).
//
// Server-initiated sampling requests are served by the Options.Sampling
// callback on the same connection, correlated through the same pending map as
// the client's own requests.
package client
