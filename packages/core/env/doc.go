// Package env handles environments and variable resolution for hitdesk.
//
// It provides functionality for:
//   - Finding and validating http-client.env.json (and its private override)
//   - Reading .env files for {{$dotenv NAME}} references
//   - Variable interpolation using {{variable}} syntax
//   - Dynamic variables ({{$uuid}}, {{$timestamp}}, {{$randomInt}}, ...)
//   - Request variables resolved through a caller-supplied lookup
package env
