// Package workspace is the client-side orchestrator of hitdesk.
//
// A Workspace owns all mutable client state and processes it on a single
// goroutine. It provides:
//   - Workspace state: root directory, selected environment, editor and dirty tracking
//   - Catalog synchronization: file, request and environment lists kept in step with the backend
//   - Execution: running one request or a whole file and collecting results
//   - Transient status notices
//
// User actions are Command values handed to Dispatch. Backend calls run on
// their own goroutines and post their completion back to the workspace
// goroutine, where it is applied only if the resource it was issued for is
// still current. Stale completions are dropped silently.
package workspace
