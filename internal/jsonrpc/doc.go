// Package jsonrpc models the JSON-RPC 2.0 envelope exchanged between agent and
// capability servers.
//
// A Message is one of four kinds: request (method and id), notification (method,
// no id), response (id and result) or error response (id and error). Decoding
// validates the envelope so that anything else is rejected before it reaches the
// session engine.
package jsonrpc
