// Package server implements the server role of the protocol.
//
// A Server binds a capability registry to the discovery and invocation methods
// (tools/*, resources/*, prompts/*) and serves it over any transport: standard
// I/O for subprocess servers, or the HTTP+SSE binding. Each connection gets its
// own protocol session; the registry is shared between them.
package server
