// Package http provides the HTTP client used to execute parsed requests.
//
// It wraps the standard library's http package with additional features:
//   - Configurable timeouts and redirect handling
//   - Optional proxy and TLS verification switches
//   - Request building from the parsed AST with variable resolution
//   - Response capture with timing
package http
