package workspace

import (
	"context"
	"fmt"

	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
)

// runRequest runs one request of the selected file.
// Pre: a file is selected and generation names the current request list.
// Unsaved edits are allowed; the backend runs the saved file.
// Post: the result list holds exactly this request's outcome.
func (w *Workspace) runRequest(generation uint64, index int) {
	editor := w.state.editor
	if !editor.Selected() {
		w.notify(LevelError, "Cannot run request: %v", ErrNoFile)
		return
	}
	if !w.state.requests.Loaded {
		w.notify(LevelError, "Cannot run request: %v", ErrRequestsLoading)
		return
	}
	if w.state.requests.Generation != generation {
		w.notify(LevelError, "Cannot run request: %v", ErrStaleRequest)
		return
	}

	path, env := editor.Path(), w.state.environment
	seq := w.selectionEpoch.n
	w.state.running++
	w.notify(LevelInfo, "Running request...")

	call(w, func(ctx context.Context) (*backend.ExecutionResult, error) {
		return w.backend.RunRequest(ctx, path, index, env)
	}, func(result *backend.ExecutionResult, err error) {
		w.state.running--
		if !w.selectionEpoch.current(seq) {
			return
		}
		if err != nil {
			w.fail("Failed to run request", err)
			return
		}
		w.state.results = []*backend.ExecutionResult{result}
		w.notify(LevelSuccess, "Request completed")
	})
}

// runAll runs every request of the selected file. The backend executes them
// in file order and keeps going past failures.
// Pre: a file is selected and not dirty.
// Post: the result list is the backend's ordered outcome list.
func (w *Workspace) runAll() {
	if err := w.checkRunAll(); err != nil {
		w.notify(LevelError, "Cannot run all requests: %v", err)
		return
	}

	path, env := w.state.editor.Path(), w.state.environment
	seq := w.selectionEpoch.n
	w.state.running++
	w.notify(LevelInfo, "Running all requests...")

	call(w, func(ctx context.Context) ([]*backend.ExecutionResult, error) {
		return w.backend.RunAll(ctx, path, env)
	}, func(results []*backend.ExecutionResult, err error) {
		w.state.running--
		if !w.selectionEpoch.current(seq) {
			return
		}
		if err != nil {
			w.fail("Failed to run requests", err)
			return
		}
		w.state.results = results
		w.notify(LevelSuccess, "%s", completedMessage(results))
	})
}

func (w *Workspace) checkRunAll() error {
	if !w.state.editor.Selected() {
		return ErrNoFile
	}
	if w.state.editor.Dirty() {
		return ErrDirty
	}
	return nil
}

func completedMessage(results []*backend.ExecutionResult) string {
	return fmt.Sprintf("Completed %d requests", len(results))
}
