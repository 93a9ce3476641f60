package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of events into one notification.
const DefaultDebounce = 300 * time.Millisecond

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// Watcher calls onChange after the set of .http files under its root may
// have changed. Content writes to existing files are ignored.
type Watcher struct {
	fw       *fsnotify.Watcher
	onChange func()
	debounce time.Duration
	warn     WarnFunc
	ext      string

	mu       sync.Mutex
	root     string
	dirs     map[string]bool
	retarget chan struct{}
}

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

func WithWarnFunc(fn WarnFunc) Option {
	return func(w *Watcher) {
		w.warn = fn
	}
}

// WithExtension changes the watched file extension.
func WithExtension(ext string) Option {
	return func(w *Watcher) {
		w.ext = ext
	}
}

func New(onChange func(), opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{
		fw:       fw,
		onChange: onChange,
		debounce: DefaultDebounce,
		warn:     func(string, ...any) {},
		ext:      ".http",
		dirs:     make(map[string]bool),
		retarget: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Retarget switches the watched tree to root. It does not block; the walk
// happens on the Run goroutine.
func (w *Watcher) Retarget(root string) {
	w.mu.Lock()
	w.root = root
	w.mu.Unlock()
	select {
	case w.retarget <- struct{}{}:
	default:
	}
}

// Root returns the tree currently being watched.
func (w *Watcher) Root() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.root
}

// Run processes events until ctx is done. It closes the underlying watcher
// on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fw.Close()

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()
	changed := func() {
		if debounce != nil {
			debounce.Stop()
		}
		debounce = time.AfterFunc(w.debounce, w.onChange)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-w.retarget:
			w.rewatch()

		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if w.handle(event) {
				changed()
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.warn("watcher error: %v", err)
		}
	}
}

// handle reports whether event may have changed the file list.
func (w *Watcher) handle(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.addTree(event.Name)
			return true
		}
	}

	w.mu.Lock()
	wasDir := w.dirs[event.Name]
	if wasDir && !event.Has(fsnotify.Create) {
		for dir := range w.dirs {
			if dir == event.Name || strings.HasPrefix(dir, event.Name+string(filepath.Separator)) {
				delete(w.dirs, dir)
			}
		}
	}
	w.mu.Unlock()

	return wasDir || strings.EqualFold(filepath.Ext(event.Name), w.ext)
}

func (w *Watcher) rewatch() {
	w.mu.Lock()
	old := w.dirs
	w.dirs = make(map[string]bool)
	root := w.root
	w.mu.Unlock()

	for dir := range old {
		_ = w.fw.Remove(dir)
	}
	if root != "" {
		w.addTree(root)
	}
}

func (w *Watcher) addTree(root string) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fw.Add(path); err != nil {
			w.warn("failed to watch %s: %v", path, err)
			return nil
		}
		w.mu.Lock()
		w.dirs[path] = true
		w.mu.Unlock()
		return nil
	})
	if err != nil {
		w.warn("failed to watch %s: %v", root, err)
	}
}
