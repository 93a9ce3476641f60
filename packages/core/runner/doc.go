// Package runner executes the requests of a parsed .http file.
//
// It provides functionality for:
//   - Running one request or every request of a file in order
//   - Environment, dotenv and request variable resolution
//   - Evaluating EXPECTED_RESPONSE_* assertions
//   - Optional pacing between requests
//
// Execution is best effort: a failing request never stops the batch.
package runner
