package workspace

// Editor holds the text of the selected file. The zero value means no file
// is selected.
type Editor struct {
	path    string
	saved   string
	current string
}

// NewEditor returns an editor for path whose saved and current content are
// both content.
func NewEditor(path, content string) Editor {
	return Editor{path: path, saved: content, current: content}
}

func (e Editor) Path() string { return e.path }

func (e Editor) Saved() string { return e.saved }

func (e Editor) Current() string { return e.current }

// Selected reports whether the editor is bound to a file.
func (e Editor) Selected() bool {
	return e.path != ""
}

// Dirty reports whether the current content differs from the last saved content.
func (e Editor) Dirty() bool {
	return e.current != e.saved
}

// CanSave reports whether a save is permitted.
func (e Editor) CanSave() bool {
	return e.Selected() && e.Dirty()
}

// CanRunAll reports whether running the whole file is permitted. Running
// against the saved file while edits are pending would execute stale content.
func (e Editor) CanRunAll() bool {
	return e.Selected() && !e.Dirty()
}

// Edit replaces the current content.
func (e *Editor) Edit(content string) {
	e.current = content
}

// MarkSaved records content as written to disk. Edits made after the write
// was issued keep the editor dirty.
func (e *Editor) MarkSaved(content string) {
	e.saved = content
}
