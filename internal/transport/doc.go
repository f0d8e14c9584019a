// Package transport moves framed protocol messages between two peers.
//
// StreamTransport runs over any reader/writer pair and backs the server side of
// the stdio binding. CommandTransport spawns a capability server as a subprocess
// and talks to it over its stdin and stdout. The HTTP binding carries the same
// messages as server-sent events in one direction and POST bodies in the other.
package transport
