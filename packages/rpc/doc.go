// Package rpc carries backend.Service over a websocket.
//
// Each call is a JSON frame {id, op, params}; the server answers with
// {id, result, error}. Calls are handled concurrently, so replies can
// arrive in a different order than the calls were made. The Client
// correlates them by id.
package rpc
