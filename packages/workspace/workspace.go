package workspace

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
)

var (
	ErrNoFile          = errors.New("no file selected")
	ErrDirty           = errors.New("file has unsaved changes")
	ErrNothingToSave   = errors.New("no unsaved changes")
	ErrStaleRequest    = errors.New("request list changed since it was shown")
	ErrRequestsLoading = errors.New("requests are still loading")

	errSuperseded = errors.New("superseded by a later save")
)

// inboxSize bounds the number of queued commands and completions.
const inboxSize = 64

// WarnFunc is called for conditions worth logging that are not shown as notices.
type WarnFunc func(format string, args ...any)

// Workspace owns the client state. All state is read and written on the
// goroutine running Run; other goroutines interact through Dispatch,
// Snapshot and Settle.
type Workspace struct {
	backend backend.Service
	inbox   chan task
	done    chan struct{}
	ctx     context.Context

	state state

	rootEpoch        epoch
	rootRequestEpoch epoch
	selectionEpoch   epoch
	filesEpoch       epoch
	requestsEpoch    epoch
	envsEpoch        epoch
	environmentEpoch epoch
	noticeEpoch      epoch
	saveEpoch        epoch

	// writeMu serializes writes and guards latestSave, the newest save
	// sequence per path.
	writeMu    sync.Mutex
	latestSave map[string]uint64

	noticeTTL     time.Duration
	warnFunc      WarnFunc
	rootListeners []func(root string)

	mu      sync.Mutex
	idle    *sync.Cond
	pending int
	stopped bool
}

type task struct {
	fn      func()
	tracked bool
}

type Option func(*Workspace)

// WithNoticeTTL sets how long notices stay visible. Zero keeps them until replaced.
func WithNoticeTTL(d time.Duration) Option {
	return func(w *Workspace) {
		w.noticeTTL = d
	}
}

func WithWarnFunc(fn WarnFunc) Option {
	return func(w *Workspace) {
		w.warnFunc = fn
	}
}

// WithRootListener registers fn to be called on the workspace goroutine
// whenever the root directory changes. fn must not block.
func WithRootListener(fn func(root string)) Option {
	return func(w *Workspace) {
		w.rootListeners = append(w.rootListeners, fn)
	}
}

func New(svc backend.Service, opts ...Option) *Workspace {
	w := &Workspace{
		backend:    svc,
		inbox:      make(chan task, inboxSize),
		done:       make(chan struct{}),
		noticeTTL:  DefaultNoticeTTL,
		latestSave: make(map[string]uint64),
	}
	w.idle = sync.NewCond(&w.mu)
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run processes commands and backend completions until ctx is done.
// Backend calls issued by the workspace receive ctx.
func (w *Workspace) Run(ctx context.Context) error {
	w.ctx = ctx
	defer func() {
		close(w.done)
		w.mu.Lock()
		w.stopped = true
		w.idle.Broadcast()
		w.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-w.inbox:
			t.fn()
			if t.tracked {
				w.finish()
			}
		}
	}
}

// Dispatch queues cmd for the workspace goroutine and returns immediately.
func (w *Workspace) Dispatch(cmd Command) {
	w.begin()
	if !w.enqueue(task{fn: func() { cmd.apply(w) }, tracked: true}) {
		w.finish()
	}
}

// Snapshot returns a copy of the current state, or nil once the workspace
// has stopped.
func (w *Workspace) Snapshot() *View {
	reply := make(chan *View, 1)
	if !w.enqueue(task{fn: func() { reply <- w.state.view() }}) {
		return nil
	}
	select {
	case v := <-reply:
		return v
	case <-w.done:
		return nil
	}
}

// Settle blocks until every dispatched command and every backend call it
// started has completed, or the workspace stops.
func (w *Workspace) Settle() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.pending > 0 && !w.stopped {
		w.idle.Wait()
	}
}

func (w *Workspace) begin() {
	w.mu.Lock()
	w.pending++
	w.mu.Unlock()
}

func (w *Workspace) finish() {
	w.mu.Lock()
	w.pending--
	if w.pending == 0 {
		w.idle.Broadcast()
	}
	w.mu.Unlock()
}

func (w *Workspace) enqueue(t task) bool {
	select {
	case w.inbox <- t:
		return true
	case <-w.done:
		return false
	}
}

func (w *Workspace) warn(format string, args ...any) {
	if w.warnFunc != nil {
		w.warnFunc(format, args...)
	}
}

// call runs fn off the workspace goroutine and applies then to its outcome
// back on it. Must be called from the workspace goroutine.
func call[T any](w *Workspace, fn func(ctx context.Context) (T, error), then func(T, error)) {
	w.begin()
	ctx := w.ctx
	go func() {
		v, err := fn(ctx)
		if !w.enqueue(task{fn: func() { then(v, err) }, tracked: true}) {
			w.finish()
		}
	}()
}

// exec is call for backend operations without a result value.
func exec(w *Workspace, fn func(ctx context.Context) error, then func(error)) {
	call(w, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, func(_ struct{}, err error) {
		then(err)
	})
}
