package backend

import (
	"context"
	"errors"
)

// ErrIndexOutOfRange is returned when a run names a request index the file does not have.
var ErrIndexOutOfRange = errors.New("request index out of bounds")

// FileEntry is a request file found under the root directory. Identity is Path.
type FileEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// RequestDefinition is one request of a parsed file. Index is only meaningful
// within the parse that produced it.
type RequestDefinition struct {
	Index  int    `json:"index"`
	Name   string `json:"name,omitempty"`
	Method string `json:"method"`
	URL    string `json:"url"`
}

// ExecutionResult is the outcome of running one request.
type ExecutionResult struct {
	Method       string  `json:"method"`
	URL          string  `json:"url"`
	Success      bool    `json:"success"`
	Status       *int    `json:"status,omitempty"`
	DurationMs   *int64  `json:"duration_ms,omitempty"`
	Error        string  `json:"error,omitempty"`
	ResponseBody *string `json:"response_body,omitempty"`
	// Skipped results were never sent because a @dependsOn or @if
	// directive was not met.
	Skipped    bool   `json:"skipped,omitempty"`
	SkipReason string `json:"skip_reason,omitempty"`
}

// Service is the execution backend the workspace talks to. Every call may
// block; callers run them off the workspace goroutine.
type Service interface {
	GetRootDirectory(ctx context.Context) (string, error)
	SetRootDirectory(ctx context.Context, path string) error
	ListFiles(ctx context.Context) ([]FileEntry, error)
	ReadFile(ctx context.Context, path string) (string, error)
	WriteFile(ctx context.Context, path, content string) error
	ParseFile(ctx context.Context, path string) ([]RequestDefinition, error)
	ListEnvironments(ctx context.Context, path string) ([]string, error)
	GetEnvironment(ctx context.Context) (string, error)
	SetEnvironment(ctx context.Context, name string) error
	SelectFile(ctx context.Context, path string) error
	RunRequest(ctx context.Context, path string, index int, environment string) (*ExecutionResult, error)
	RunAll(ctx context.Context, path, environment string) ([]*ExecutionResult, error)
}

// IntPtr returns a pointer to i.
func IntPtr(i int) *int {
	return &i
}

// Int64Ptr returns a pointer to i.
func Int64Ptr(i int64) *int64 {
	return &i
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
