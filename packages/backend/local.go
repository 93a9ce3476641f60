package backend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/abdul-hamid-achik/hitdesk/packages/core/env"
	"github.com/abdul-hamid-achik/hitdesk/packages/core/parser"
	"github.com/abdul-hamid-achik/hitdesk/packages/core/runner"
	"github.com/abdul-hamid-achik/hitdesk/packages/session"
)

const (
	// HTTPFileExt is the extension of request files.
	HTTPFileExt = ".http"
	// DefaultParseCacheSize is how many parsed files Local keeps.
	DefaultParseCacheSize = 128
)

// ErrPathNotFound is returned by SetRootDirectory for a missing directory.
var ErrPathNotFound = errors.New("path does not exist")

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

var _ Service = (*Local)(nil)

type parsed struct {
	modTime  time.Time
	size     int64
	requests []RequestDefinition
}

// Local is a Service backed by the local filesystem. It is safe for
// concurrent use.
type Local struct {
	mu          sync.Mutex
	root        string
	selected    string
	environment string

	runner    *runner.Runner
	store     *session.Store
	cache     *lru.Cache[string, *parsed]
	cacheSize int
	warn      WarnFunc
}

type LocalOption func(*Local)

// WithRunner sets the runner used to execute requests.
func WithRunner(r *runner.Runner) LocalOption {
	return func(l *Local) {
		l.runner = r
	}
}

// WithStore persists root, selection and environment and records run history.
func WithStore(s *session.Store) LocalOption {
	return func(l *Local) {
		l.store = s
	}
}

func WithParseCacheSize(n int) LocalOption {
	return func(l *Local) {
		l.cacheSize = n
	}
}

func WithWarnFunc(fn WarnFunc) LocalOption {
	return func(l *Local) {
		l.warn = fn
	}
}

// NewLocal returns a Local rooted at root. An empty root resumes the root
// saved in the store, falling back to the working directory.
func NewLocal(ctx context.Context, root string, opts ...LocalOption) (*Local, error) {
	l := &Local{
		cacheSize: DefaultParseCacheSize,
		warn:      func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.runner == nil {
		l.runner = runner.NewRunner(nil)
	}

	cache, err := lru.New[string, *parsed](l.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating parse cache: %w", err)
	}
	l.cache = cache

	if l.store != nil {
		if root == "" {
			if saved, ok, err := l.store.Get(ctx, session.KeyRoot); err != nil {
				l.warn("restoring root directory: %v", err)
			} else if ok && isDir(saved) {
				root = saved
			}
		}
		if saved, ok, err := l.store.Get(ctx, session.KeyEnvironment); err != nil {
			l.warn("restoring environment: %v", err)
		} else if ok {
			l.environment = saved
		}
	}

	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
	}
	if l.root, err = filepath.Abs(root); err != nil {
		return nil, fmt.Errorf("resolving root directory: %w", err)
	}
	return l, nil
}

func (l *Local) GetRootDirectory(ctx context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.root, nil
}

func (l *Local) SetRootDirectory(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	if !isDir(abs) {
		return fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}

	l.mu.Lock()
	l.root = abs
	l.selected = ""
	l.mu.Unlock()

	l.persist(ctx, session.KeyRoot, abs)
	l.persist(ctx, session.KeySelectedFile, "")
	return nil
}

// ListFiles walks the root for .http files. Unreadable entries are skipped.
func (l *Local) ListFiles(ctx context.Context) ([]FileEntry, error) {
	root, _ := l.GetRootDirectory(ctx)

	var files []FileEntry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), HTTPFileExt) {
			files = append(files, FileEntry{Name: d.Name(), Path: path})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (l *Local) ReadFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(data), nil
}

func (l *Local) WriteFile(ctx context.Context, path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	l.cache.Remove(path)
	return nil
}

// ParseFile returns the request definitions of path. Results are cached
// until the file's size or modification time changes.
func (l *Local) ParseFile(ctx context.Context, path string) ([]RequestDefinition, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if hit, ok := l.cache.Get(path); ok && hit.modTime.Equal(info.ModTime()) && hit.size == info.Size() {
		return cloneDefinitions(hit.requests), nil
	}

	file, err := parser.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	defs := make([]RequestDefinition, len(file.Requests))
	for i, req := range file.Requests {
		defs[i] = RequestDefinition{Index: i, Name: req.Name, Method: req.Method, URL: req.URL}
	}
	l.cache.Add(path, &parsed{modTime: info.ModTime(), size: info.Size(), requests: defs})
	return cloneDefinitions(defs), nil
}

// ListEnvironments returns the environments visible to path. A missing or
// invalid environment file yields an empty list.
func (l *Local) ListEnvironments(ctx context.Context, path string) ([]string, error) {
	names, err := env.ListEnvironments(path)
	if err != nil {
		l.warn("%v", err)
		return []string{}, nil
	}
	return names, nil
}

func (l *Local) GetEnvironment(ctx context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.environment, nil
}

func (l *Local) SetEnvironment(ctx context.Context, name string) error {
	l.mu.Lock()
	l.environment = name
	l.mu.Unlock()
	l.persist(ctx, session.KeyEnvironment, name)
	return nil
}

func (l *Local) SelectFile(ctx context.Context, path string) error {
	l.mu.Lock()
	l.selected = path
	l.mu.Unlock()
	l.persist(ctx, session.KeySelectedFile, path)
	return nil
}

// SelectedFile returns the path last passed to SelectFile.
func (l *Local) SelectedFile() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.selected
}

func (l *Local) RunRequest(ctx context.Context, path string, index int, environment string) (*ExecutionResult, error) {
	res, err := l.runner.RunRequest(ctx, path, index, environment)
	if errors.Is(err, runner.ErrIndexOutOfRange) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if err != nil {
		return nil, err
	}
	result := toExecutionResult(res)
	l.record(ctx, path, environment, []*ExecutionResult{result})
	return result, nil
}

func (l *Local) RunAll(ctx context.Context, path, environment string) ([]*ExecutionResult, error) {
	res, err := l.runner.RunFile(ctx, path, environment)
	if err != nil {
		return nil, err
	}
	results := make([]*ExecutionResult, len(res))
	for i, r := range res {
		results[i] = toExecutionResult(r)
	}
	l.record(ctx, path, environment, results)
	return results, nil
}

// History returns recorded runs, newest first. It is empty without a store.
func (l *Local) History(ctx context.Context, limit int) ([]*session.Run, error) {
	if l.store == nil {
		return nil, nil
	}
	return l.store.History(ctx, limit)
}

func (l *Local) persist(ctx context.Context, key, value string) {
	if l.store == nil {
		return
	}
	if err := l.store.Set(ctx, key, value); err != nil {
		l.warn("saving %s: %v", key, err)
	}
}

func (l *Local) record(ctx context.Context, path, environment string, results []*ExecutionResult) {
	if l.store == nil || len(results) == 0 {
		return
	}
	runs := make([]*session.Run, 0, len(results))
	for _, r := range results {
		if r == nil || r.Skipped {
			continue
		}
		runs = append(runs, &session.Run{
			File:        path,
			Environment: environment,
			Method:      r.Method,
			URL:         r.URL,
			Success:     r.Success,
			Status:      r.Status,
			DurationMs:  r.DurationMs,
			Error:       r.Error,
		})
	}
	if len(runs) == 0 {
		return
	}
	if _, err := l.store.RecordRuns(ctx, runs); err != nil {
		l.warn("recording run history: %v", err)
	}
}

func toExecutionResult(r *runner.RequestResult) *ExecutionResult {
	result := &ExecutionResult{
		Method:  r.Method,
		URL:     r.URL,
		Success: r.Passed,
	}
	if r.Skipped {
		result.Skipped = true
		result.SkipReason = r.SkipReason
		return result
	}
	result.DurationMs = Int64Ptr(r.Duration.Milliseconds())
	if r.Error != nil {
		result.Error = r.Error.Error()
	}
	if r.Response != nil {
		result.Status = IntPtr(r.Response.StatusCode)
		result.ResponseBody = StringPtr(r.Response.BodyString())
	}
	return result
}

func cloneDefinitions(defs []RequestDefinition) []RequestDefinition {
	out := make([]RequestDefinition, len(defs))
	copy(out, defs)
	return out
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
