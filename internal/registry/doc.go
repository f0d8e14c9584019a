// Package registry holds the capabilities a server declares.
//
// Descriptors are keyed by (kind, name) where kind is one of tool, resource,
// resource-template, or prompt. Each kind keeps its registration order, and
// Invoke validates arguments against the descriptor's parameters before the
// handler runs. Handler failures, including panics, come back as
// *errors.InvocationError and never escape as transport faults.
//
// The registry is safe for concurrent use. Handlers that share state must
// synchronize it themselves.
package registry
