// Package parser reads .http request files.
//
// The parser handles:
//   - Request separators (### optionally followed by a name)
//   - Name directives (# @name login or // @name login)
//   - File variables (@host = example.com)
//   - Request lines (METHOD URL [HTTP/version]), headers and bodies
//   - Expected-response assertions (EXPECTED_RESPONSE_STATUS, _BODY, _HEADERS)
//
// Response handler scripts (> {% ... %}) are skipped. Variable references
// are left unresolved; see package env.
package parser
