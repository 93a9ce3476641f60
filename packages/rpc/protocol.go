package rpc

import (
	"encoding/json"
	"errors"

	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
)

// Operation names.
const (
	OpGetRootDirectory = "get_root_directory"
	OpSetRootDirectory = "set_root_directory"
	OpListFiles        = "list_http_files"
	OpReadFile         = "read_file_content"
	OpWriteFile        = "write_file_content"
	OpParseFile        = "parse_http_file"
	OpListEnvironments = "list_environments"
	OpGetEnvironment   = "get_environment"
	OpSetEnvironment   = "set_environment"
	OpSelectFile       = "select_file"
	OpRunRequest       = "run_single_request"
	OpRunAll           = "run_all_requests"
)

// Error codes.
const (
	CodeInvalidArgument = "invalid_argument"
	CodeUnknownOp       = "unknown_op"
	CodeIndexOutOfRange = "index_out_of_range"
	CodeInternal        = "internal"
)

type Request struct {
	ID     uint64          `json:"id"`
	Op     string          `json:"op"`
	Params json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// Error is a failed call as seen by the client.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap maps wire codes back to the backend's sentinel errors.
func (e *Error) Unwrap() error {
	if e.Code == CodeIndexOutOfRange {
		return backend.ErrIndexOutOfRange
	}
	return nil
}

func toError(err error) *Error {
	code := CodeInternal
	if errors.Is(err, backend.ErrIndexOutOfRange) {
		code = CodeIndexOutOfRange
	}
	return &Error{Code: code, Message: err.Error()}
}

type pathParams struct {
	Path string `json:"path"`
}

type writeParams struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type nameParams struct {
	Name string `json:"name"`
}

type runParams struct {
	Path        string `json:"path"`
	Index       int    `json:"index"`
	Environment string `json:"environment,omitempty"`
}
