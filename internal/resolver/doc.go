// Package resolver resolves resource templates into concrete URIs and reads them.
//
// Every placeholder of a template must receive a value or Resolve fails with
// *errors.UnresolvedParameterError. Values that match no placeholder fail with
// *errors.ExtraParameterError under the default RejectExtra policy, or are
// dropped under IgnoreExtra.
package resolver
