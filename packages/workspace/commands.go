package workspace

import (
	"context"
)

// Command is a user action. Each command is applied on the workspace
// goroutine by exactly one state transition.
type Command interface {
	apply(w *Workspace)
}

// Initialize loads the root directory from the backend and refreshes the catalog.
type Initialize struct{}

// SetRoot switches the workspace to another directory.
type SetRoot struct {
	Path string
}

// SelectFile binds the editor to Path.
type SelectFile struct {
	Path string
}

// SelectNone unbinds the editor.
type SelectNone struct{}

// Edit replaces the editor's current content.
type Edit struct {
	Content string
}

// Save writes the editor's current content.
type Save struct{}

// SetEnvironment selects the environment used by runs. Empty means none.
type SetEnvironment struct {
	Name string
}

// RefreshFiles re-lists the files under the root.
type RefreshFiles struct{}

// RunRequest runs the request at Index of the request list with the given
// Generation.
type RunRequest struct {
	Generation uint64
	Index      int
}

// RunAll runs every request of the selected file in order.
type RunAll struct{}

func (Initialize) apply(w *Workspace) { w.initialize() }
func (c SetRoot) apply(w *Workspace) { w.setRoot(c.Path) }
func (c SelectFile) apply(w *Workspace) { w.selectFile(c.Path) }
func (SelectNone) apply(w *Workspace) { w.selectNone() }
func (c Edit) apply(w *Workspace) { w.edit(c.Content) }
func (Save) apply(w *Workspace) { w.save() }
func (c SetEnvironment) apply(w *Workspace) { w.setEnvironment(c.Name) }
func (RefreshFiles) apply(w *Workspace) { w.refreshFileList() }
func (c RunRequest) apply(w *Workspace) { w.runRequest(c.Generation, c.Index) }
func (RunAll) apply(w *Workspace) { w.runAll() }

// initialize fetches the root directory, clears the selection and lists files.
// Post: on failure the root is absent and an error notice is shown.
func (w *Workspace) initialize() {
	seq := w.rootRequestEpoch.next()
	call(w, w.backend.GetRootDirectory, func(root string, err error) {
		if !w.rootRequestEpoch.current(seq) {
			return
		}
		if err != nil {
			w.state.root = ""
			w.fail("Failed to initialize", err)
			return
		}
		w.rootEpoch.next()
		w.state.root = root
		w.selectNone()
		w.refreshFileList()
		w.loadCurrentEnvironment()
		w.rootChanged()
	})
}

// setRoot switches directories. Only the latest Initialize or SetRoot is
// applied.
// Post: on success nothing loaded for the previous root remains visible and
// late completions issued for it are dropped. On failure the current root
// and everything loaded for it are untouched.
func (w *Workspace) setRoot(path string) {
	seq := w.rootRequestEpoch.next()
	exec(w, func(ctx context.Context) error {
		return w.backend.SetRootDirectory(ctx, path)
	}, func(err error) {
		if !w.rootRequestEpoch.current(seq) {
			return
		}
		if err != nil {
			w.fail("Failed to open folder", err)
			return
		}
		w.rootEpoch.next()
		w.state.root = path
		w.state.files = nil
		w.state.filesLoaded = false
		w.state.results = nil
		w.selectNone()
		w.refreshFileList()
		w.rootChanged()
	})
}

func (w *Workspace) rootChanged() {
	for _, fn := range w.rootListeners {
		fn(w.state.root)
	}
}

// selectNone unbinds the editor and drops per-file data.
func (w *Workspace) selectNone() {
	w.selectionEpoch.next()
	w.state.selecting = ""
	w.state.editor = Editor{}
	w.state.requests = RequestList{}
	w.state.environments = nil
}

// selectFile replaces the editor with path's content.
// Pre: none; selecting a file while another load is pending supersedes it.
// Post: once the read completes, saved == current == content and request and
// environment loads for path are in flight.
func (w *Workspace) selectFile(path string) {
	w.selectNone()
	seq := w.selectionEpoch.n
	w.state.selecting = path

	call(w, func(ctx context.Context) (string, error) {
		return w.backend.ReadFile(ctx, path)
	}, func(content string, err error) {
		if !w.selectionEpoch.current(seq) {
			return
		}
		w.state.selecting = ""
		if err != nil {
			w.fail("Failed to load file", err)
			return
		}
		w.state.editor = NewEditor(path, content)
		w.loadFileRequests(path, seq)
		w.loadEnvironments(path, seq)
		w.persistSelection(path)
	})
}

// persistSelection tells the backend which file is selected. Its outcome
// never affects the selection.
func (w *Workspace) persistSelection(path string) {
	exec(w, func(ctx context.Context) error {
		return w.backend.SelectFile(ctx, path)
	}, func(err error) {
		if err != nil {
			w.warn("persisting selection of %s: %v", path, err)
		}
	})
}

// edit replaces the current content.
// Pre: a file is selected. Post: Dirty() reflects the new content.
func (w *Workspace) edit(content string) {
	if !w.state.editor.Selected() {
		w.warn("edit ignored: %v", ErrNoFile)
		return
	}
	w.state.editor.Edit(content)
}

// save writes the content as of dispatch. Only the latest save's outcome
// is applied, and an older write of the same path never lands after a
// newer one.
// Pre: a file is selected and dirty.
// Post: on success saved == written content and the file is reparsed.
func (w *Workspace) save() {
	editor := w.state.editor
	if !editor.Selected() {
		w.notify(LevelError, "Cannot save: %v", ErrNoFile)
		return
	}
	if !editor.Dirty() {
		w.notify(LevelInfo, "Cannot save: %v", ErrNothingToSave)
		return
	}

	selection := w.selectionEpoch.n
	seq := w.saveEpoch.next()
	path, content := editor.Path(), editor.Current()
	w.writeMu.Lock()
	w.latestSave[path] = seq
	w.writeMu.Unlock()
	exec(w, func(ctx context.Context) error {
		w.writeMu.Lock()
		defer w.writeMu.Unlock()
		if w.latestSave[path] > seq {
			return errSuperseded
		}
		return w.backend.WriteFile(ctx, path, content)
	}, func(err error) {
		if !w.selectionEpoch.current(selection) || !w.saveEpoch.current(seq) {
			return
		}
		if err != nil {
			w.fail("Failed to save file", err)
			return
		}
		w.state.editor.MarkSaved(content)
		w.notify(LevelSuccess, "File saved successfully")
		w.loadFileRequests(path, selection)
		w.loadEnvironments(path, selection)
	})
}

// setEnvironment asks the backend to switch environments and records name
// once it accepts. The editor and selection are untouched.
// Post: on failure the previous environment stays selected.
func (w *Workspace) setEnvironment(name string) {
	seq := w.environmentEpoch.next()
	exec(w, func(ctx context.Context) error {
		return w.backend.SetEnvironment(ctx, name)
	}, func(err error) {
		if !w.environmentEpoch.current(seq) {
			return
		}
		if err != nil {
			w.fail("Failed to set environment", err)
			return
		}
		w.state.environment = name
	})
}
