// Package output renders execution results.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output with a run summary
//   - JSON: Machine-readable JSON output
//
// Formatters are stateless: each call renders exactly the results it is
// given.
package output
