package workspace

import (
	"context"

	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
)

// refreshFileList lists the files under the current root. A list requested
// before the root changed, or superseded by a newer refresh, is dropped.
func (w *Workspace) refreshFileList() {
	root := w.rootEpoch.n
	seq := w.filesEpoch.next()
	call(w, w.backend.ListFiles, func(files []backend.FileEntry, err error) {
		if !w.rootEpoch.current(root) || !w.filesEpoch.current(seq) {
			return
		}
		if err != nil {
			w.fail("Failed to list files", err)
			return
		}
		w.state.files = files
		w.state.filesLoaded = true
	})
}

// loadFileRequests parses path. The result is applied only while path is
// still the selection it was issued for and no newer parse was issued.
// A parse failure leaves an empty list that carries the error.
func (w *Workspace) loadFileRequests(path string, selection uint64) {
	seq := w.requestsEpoch.next()
	w.state.requests.Loaded = false
	call(w, func(ctx context.Context) ([]backend.RequestDefinition, error) {
		return w.backend.ParseFile(ctx, path)
	}, func(requests []backend.RequestDefinition, err error) {
		if !w.selectionEpoch.current(selection) || !w.requestsEpoch.current(seq) {
			return
		}
		list := RequestList{Path: path, Generation: seq, Loaded: true}
		if err != nil {
			w.warn("parsing %s: %v", path, err)
			list.Err = err.Error()
		} else {
			list.Requests = requests
		}
		w.state.requests = list
	})
}

// loadEnvironments lists the environments available to path. Failures leave
// the list empty.
func (w *Workspace) loadEnvironments(path string, selection uint64) {
	seq := w.envsEpoch.next()
	call(w, func(ctx context.Context) ([]string, error) {
		return w.backend.ListEnvironments(ctx, path)
	}, func(envs []string, err error) {
		if !w.selectionEpoch.current(selection) || !w.envsEpoch.current(seq) {
			return
		}
		if err != nil {
			w.warn("listing environments for %s: %v", path, err)
			envs = nil
		}
		w.state.environments = envs
	})
}

// loadCurrentEnvironment adopts the environment the backend remembers.
func (w *Workspace) loadCurrentEnvironment() {
	seq := w.environmentEpoch.next()
	call(w, w.backend.GetEnvironment, func(name string, err error) {
		if !w.environmentEpoch.current(seq) {
			return
		}
		if err != nil {
			w.warn("reading current environment: %v", err)
			return
		}
		w.state.environment = name
	})
}
