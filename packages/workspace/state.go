package workspace

import (
	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
)

const (
	NoFilesPlaceholder      = "No .http files found"
	NoSelectionPlaceholder  = "Select a file to view requests"
	NoRequestsPlaceholder   = "No requests found"
	LoadingPlaceholder      = "Loading requests..."
	ParseFailurePlaceholder = "Failed to parse file"
)

// RequestList is the parsed request list of one file. Generation identifies
// the parse that produced it; indices are only valid against it.
type RequestList struct {
	Path       string
	Generation uint64
	Requests   []backend.RequestDefinition
	Loaded     bool
	Err        string
}

// state is the mutable workspace state. It is only touched on the
// workspace goroutine.
type state struct {
	root         string
	environment  string
	selecting    string
	editor       Editor
	files        []backend.FileEntry
	filesLoaded  bool
	requests     RequestList
	environments []string
	results      []*backend.ExecutionResult
	notice       *Notice
	running      int
}

// View is a point-in-time copy of the workspace state for rendering.
type View struct {
	Root         string
	Environment  string
	Selecting    string
	Editor       Editor
	Files        []backend.FileEntry
	FilesLoaded  bool
	Requests     RequestList
	Environments []string
	Results      []*backend.ExecutionResult
	Notice       *Notice
	Running      int
}

func (s *state) view() *View {
	v := &View{
		Root:         s.root,
		Environment:  s.environment,
		Selecting:    s.selecting,
		Editor:       s.editor,
		Files:        append([]backend.FileEntry(nil), s.files...),
		FilesLoaded:  s.filesLoaded,
		Requests:     s.requests,
		Environments: append([]string(nil), s.environments...),
		Results:      append([]*backend.ExecutionResult(nil), s.results...),
		Running:      s.running,
	}
	v.Requests.Requests = append([]backend.RequestDefinition(nil), s.requests.Requests...)
	if s.notice != nil {
		n := *s.notice
		v.Notice = &n
	}
	return v
}

// SelectedFile returns the path bound to the editor, or "".
func (v *View) SelectedFile() string {
	return v.Editor.Path()
}

func (v *View) Dirty() bool {
	return v.Editor.Dirty()
}

func (v *View) CanSave() bool {
	return v.Editor.CanSave()
}

func (v *View) CanRunAll() bool {
	return v.Editor.CanRunAll()
}

// FilesPlaceholder returns the text shown instead of an empty file list.
func (v *View) FilesPlaceholder() string {
	if v.FilesLoaded && len(v.Files) == 0 {
		return NoFilesPlaceholder
	}
	return ""
}

// RequestsPlaceholder returns the text shown instead of the request list,
// or "" when there are requests to show.
func (v *View) RequestsPlaceholder() string {
	switch {
	case !v.Editor.Selected():
		return NoSelectionPlaceholder
	case !v.Requests.Loaded:
		return LoadingPlaceholder
	case v.Requests.Err != "":
		return ParseFailurePlaceholder + ": " + v.Requests.Err
	case len(v.Requests.Requests) == 0:
		return NoRequestsPlaceholder
	}
	return ""
}
