package workspace

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
)

var errBackendDown = errors.New("backend unreachable")

// fakeBackend is an in-memory backend.Service. Calls can be held at a gate
// keyed "<op>:<path>" to force completions to arrive in a chosen order.
type fakeBackend struct {
	mu         sync.Mutex
	root       string
	rootErr    error
	files      map[string]string
	envs       map[string][]string
	env        string
	selected   string
	writeErr   error
	selectErr  error
	setEnvErr  error
	setRootErr error
	results    map[string][]*backend.ExecutionResult
	gates      map[string]chan struct{}
	calls      []string
	lastEnv    string
	started    chan string
}

func newFakeBackend(root string) *fakeBackend {
	return &fakeBackend{
		root:    root,
		files:   make(map[string]string),
		envs:    make(map[string][]string),
		results: make(map[string][]*backend.ExecutionResult),
		gates:   make(map[string]chan struct{}),
		started: make(chan string, 32),
	}
}

func (f *fakeBackend) hold(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gates[key] = make(chan struct{})
}

func (f *fakeBackend) release(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	close(f.gates[key])
}

func (f *fakeBackend) waitStarted(t *testing.T, key string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case got := <-f.started:
			if got == key {
				return
			}
		case <-timeout:
			t.Fatalf("backend call %s never started", key)
		}
	}
}

func (f *fakeBackend) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeBackend) enter(op, path string) {
	key := op + ":" + path
	f.mu.Lock()
	f.calls = append(f.calls, key)
	gate := f.gates[key]
	f.mu.Unlock()
	if gate != nil {
		f.started <- key
		<-gate
	}
}

func (f *fakeBackend) GetRootDirectory(ctx context.Context) (string, error) {
	f.enter("root", "")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rootErr != nil {
		return "", f.rootErr
	}
	return f.root, nil
}

func (f *fakeBackend) SetRootDirectory(ctx context.Context, path string) error {
	f.enter("setroot", path)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setRootErr != nil {
		return f.setRootErr
	}
	f.root = path
	return nil
}

func (f *fakeBackend) ListFiles(ctx context.Context) ([]backend.FileEntry, error) {
	f.mu.Lock()
	root := f.root
	f.mu.Unlock()
	f.enter("list", root)

	f.mu.Lock()
	defer f.mu.Unlock()
	var entries []backend.FileEntry
	for path := range f.files {
		if strings.HasPrefix(path, root+"/") {
			entries = append(entries, backend.FileEntry{Name: filepath.Base(path), Path: path})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (f *fakeBackend) ReadFile(ctx context.Context, path string) (string, error) {
	f.enter("read", path)
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.files[path]
	if !ok {
		return "", errors.New("no such file")
	}
	return content, nil
}

func (f *fakeBackend) WriteFile(ctx context.Context, path, content string) error {
	f.enter("write", path)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.files[path] = content
	return nil
}

// ParseFile treats every line starting with an HTTP method as a request and
// a "### name" line as the name of the next one.
func (f *fakeBackend) ParseFile(ctx context.Context, path string) ([]backend.RequestDefinition, error) {
	f.enter("parse", path)
	f.mu.Lock()
	content, ok := f.files[path]
	f.mu.Unlock()
	if !ok {
		return nil, errors.New("no such file")
	}
	return parseFake(content)
}

func parseFake(content string) ([]backend.RequestDefinition, error) {
	var defs []backend.RequestDefinition
	name := ""
	for _, line := range strings.Split(content, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "###":
			name = strings.Join(fields[1:], " ")
		case "GET", "POST", "PUT", "PATCH", "DELETE":
			if len(fields) < 2 {
				return nil, errors.New("missing URL")
			}
			defs = append(defs, backend.RequestDefinition{Index: len(defs), Name: name, Method: fields[0], URL: fields[1]})
			name = ""
		case "!!":
			return nil, errors.New("unexpected token")
		}
	}
	return defs, nil
}

func (f *fakeBackend) ListEnvironments(ctx context.Context, path string) ([]string, error) {
	f.enter("envs", path)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.envs[path], nil
}

func (f *fakeBackend) GetEnvironment(ctx context.Context) (string, error) {
	f.enter("getenv", "")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.env, nil
}

func (f *fakeBackend) SetEnvironment(ctx context.Context, name string) error {
	f.enter("setenv", name)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setEnvErr != nil {
		return f.setEnvErr
	}
	f.env = name
	return nil
}

func (f *fakeBackend) SelectFile(ctx context.Context, path string) error {
	f.enter("select", path)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selectErr != nil {
		return f.selectErr
	}
	f.selected = path
	return nil
}

func (f *fakeBackend) RunRequest(ctx context.Context, path string, index int, environment string) (*backend.ExecutionResult, error) {
	f.enter("run", path)
	results, err := f.run(path, environment)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(results) {
		return nil, backend.ErrIndexOutOfRange
	}
	return results[index], nil
}

func (f *fakeBackend) RunAll(ctx context.Context, path, environment string) ([]*backend.ExecutionResult, error) {
	f.enter("runall", path)
	return f.run(path, environment)
}

func (f *fakeBackend) run(path, environment string) ([]*backend.ExecutionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastEnv = environment
	if scripted, ok := f.results[path]; ok {
		return scripted, nil
	}
	defs, err := parseFake(f.files[path])
	if err != nil {
		return nil, err
	}
	results := make([]*backend.ExecutionResult, 0, len(defs))
	for _, d := range defs {
		results = append(results, &backend.ExecutionResult{
			Method:     d.Method,
			URL:        d.URL,
			Success:    true,
			Status:     backend.IntPtr(200),
			DurationMs: backend.Int64Ptr(1),
		})
	}
	return results, nil
}

func startWorkspace(t *testing.T, f *fakeBackend, opts ...Option) *Workspace {
	t.Helper()
	ws := New(f, append([]Option{WithNoticeTTL(0)}, opts...)...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = ws.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ws
}

// selectSettled selects path and waits for every load it started.
func selectSettled(ws *Workspace, path string) *View {
	ws.Dispatch(SelectFile{Path: path})
	ws.Settle()
	return ws.Snapshot()
}
