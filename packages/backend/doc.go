// Package backend defines the execution backend the workspace drives and
// ships Local, the filesystem implementation.
//
// Local provides:
//   - Root directory state, mirrored to an optional session store
//   - Recursive discovery of .http files sorted by path
//   - Parsing with a modification-aware LRU cache
//   - Environment listing from http-client.env.json
//   - Request execution through the runner, recorded as run history
package backend
