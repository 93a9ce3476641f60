// Package cmd implements the hitdesk CLI commands using Cobra.
//
// Available commands:
//   - shell: Interactive workspace for browsing, editing and running .http files
//   - files: List the .http files under a directory
//   - requests: List the requests defined in a file
//   - run: Execute one or all requests of a file
//   - serve: Expose the local backend over a websocket
//   - version: Show hitdesk version information
//
// Most settings can come from flags, HITDESK_* environment variables or a
// .hitdesk.json / .hitdesk.yaml config file.
package cmd
