package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
	"github.com/abdul-hamid-achik/hitdesk/packages/output"
	"github.com/abdul-hamid-achik/hitdesk/packages/workspace"
)

func newTestShell(t *testing.T, root string) (*shell, *bytes.Buffer) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	local, err := backend.NewLocal(ctx, root)
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	sh := &shell{
		ws:           workspace.New(local, workspace.WithNoticeTTL(0)),
		out:          buf,
		console:      output.NewConsoleFormatter(output.WithWriter(buf), output.WithNoColor(true)),
		historyLimit: 20,
		history:      local.History,
	}
	go func() { _ = sh.ws.Run(ctx) }()
	sh.dispatch(workspace.Initialize{})
	buf.Reset()
	return sh, buf
}

// run executes line and returns what it printed.
func run(sh *shell, buf *bytes.Buffer, line string) string {
	buf.Reset()
	sh.handle(context.Background(), line)
	return buf.String()
}

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"path":%q}`, r.URL.Path)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestShell_FilesAndSelect(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "api.http"), []byte("# @name list\nGET http://x/items\n"), 0o644))
	sh, buf := newTestShell(t, root)

	assert.Equal(t, "  1  api.http\n", run(sh, buf, "files"))

	out := run(sh, buf, "select 1")
	assert.Contains(t, out, "GET")
	assert.Contains(t, out, "http://x/items")
	assert.Contains(t, out, "(list)")

	assert.Contains(t, run(sh, buf, "select 9"), "no file 9")
	assert.Contains(t, run(sh, buf, "show"), "GET http://x/items")

	run(sh, buf, "close")
	assert.Equal(t, workspace.NoSelectionPlaceholder+"\n", run(sh, buf, "requests"))
}

func TestShell_Placeholders(t *testing.T) {
	root := t.TempDir()
	sh, buf := newTestShell(t, root)

	assert.Equal(t, workspace.NoFilesPlaceholder+"\n", run(sh, buf, "files"))

	require.NoError(t, os.WriteFile(filepath.Join(root, "empty.http"), []byte("# nothing here\n"), 0o644))
	assert.Contains(t, run(sh, buf, "refresh"), "empty.http")

	assert.Contains(t, run(sh, buf, "select empty.http"), workspace.NoRequestsPlaceholder)
	assert.Equal(t, output.NoResultsPlaceholder+"\n", run(sh, buf, "results"))
}

func TestShell_EditSaveAndRun(t *testing.T) {
	srv := testServer(t)
	root := t.TempDir()
	path := filepath.Join(root, "api.http")
	require.NoError(t, os.WriteFile(path, []byte("GET "+srv.URL+"/first\n"), 0o644))
	sh, buf := newTestShell(t, root)

	run(sh, buf, "select api.http")
	out := run(sh, buf, "run 1")
	assert.Contains(t, out, "Request completed")
	assert.Contains(t, out, "GET 200")
	assert.Contains(t, out, `"path": "/first"`)

	run(sh, buf, "append ###")
	run(sh, buf, "append GET "+srv.URL+"/second")
	assert.Contains(t, run(sh, buf, "status"), "(unsaved changes)")

	assert.Contains(t, run(sh, buf, "runall"), "Cannot run all requests: "+workspace.ErrDirty.Error())
	assert.Contains(t, run(sh, buf, "run 1"), "Request completed")

	assert.Contains(t, run(sh, buf, "save"), "File saved successfully")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "/second")

	out = run(sh, buf, "requests")
	assert.Contains(t, out, "  1  GET")
	assert.Contains(t, out, "  2  GET")

	out = run(sh, buf, "runall")
	assert.Contains(t, out, "Completed 2 requests")
	assert.Contains(t, out, "Requests: 2 passed, 2 total")
	assert.Less(t, strings.Index(out, "/first"), strings.Index(out, "/second"))
}

func TestShell_RunOutOfRange(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "api.http"), []byte("GET http://x/items\n"), 0o644))
	sh, buf := newTestShell(t, root)

	run(sh, buf, "select api.http")
	assert.Contains(t, run(sh, buf, "run 5"), "! Failed to run request")
	assert.Contains(t, run(sh, buf, "run zero"), "invalid request number")
}

func TestShell_EditorAndRevert(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "api.http"), []byte("GET http://x/a\n"), 0o644))
	sh, buf := newTestShell(t, root)
	sh.editor = func(content string) (string, error) {
		return strings.Replace(content, "/a", "/b", 1), nil
	}

	assert.Equal(t, workspace.NoSelectionPlaceholder+"\n", run(sh, buf, "edit"))

	run(sh, buf, "select api.http")
	run(sh, buf, "edit")
	assert.Equal(t, "GET http://x/b\n", run(sh, buf, "show"))
	assert.Contains(t, run(sh, buf, "status"), "(unsaved changes)")

	run(sh, buf, "revert")
	assert.Equal(t, "GET http://x/a\n", run(sh, buf, "show"))
	assert.NotContains(t, run(sh, buf, "status"), "(unsaved changes)")
	assert.Contains(t, run(sh, buf, "save"), workspace.ErrNothingToSave.Error())
}

func TestShell_Environments(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "api.http"), []byte("GET {{host}}/a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "http-client.env.json"),
		[]byte(`{"dev": {"host": "http://dev"}, "prod": {"host": "http://prod"}}`), 0o644))
	sh, buf := newTestShell(t, root)

	assert.Equal(t, "No environment selected\n", run(sh, buf, "env"))

	run(sh, buf, "select api.http")
	assert.Equal(t, "  dev\n  prod\n", run(sh, buf, "envs"))

	run(sh, buf, "env prod")
	assert.Equal(t, "  dev\n* prod\n", run(sh, buf, "envs"))
	assert.Equal(t, "prod\n", run(sh, buf, "env"))

	run(sh, buf, "env -")
	assert.Equal(t, "No environment selected\n", run(sh, buf, "env"))
}

func TestShell_Open(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(first, "one.http"), []byte("GET http://x\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(second, "two.http"), []byte("GET http://x\n"), 0o644))
	sh, buf := newTestShell(t, first)

	run(sh, buf, "select one.http")
	out := run(sh, buf, "open "+second)
	assert.Contains(t, out, "two.http")
	assert.NotContains(t, out, "one.http")
	assert.Contains(t, run(sh, buf, "status"), "File:        (none)")

	assert.Contains(t, run(sh, buf, "open "+filepath.Join(second, "missing")), "! Failed to open folder")
}

func TestShell_HistoryWithoutStore(t *testing.T) {
	sh, buf := newTestShell(t, t.TempDir())

	assert.Equal(t, "No runs recorded\n", run(sh, buf, "history"))
	assert.Contains(t, run(sh, buf, "history x"), "invalid limit")

	sh.history = nil
	assert.Contains(t, run(sh, buf, "history"), "local backend")
}

func TestShell_Handle(t *testing.T) {
	sh, buf := newTestShell(t, t.TempDir())

	assert.False(t, sh.handle(context.Background(), ""))
	assert.Contains(t, run(sh, buf, "bogus"), `unknown command "bogus"`)
	assert.Contains(t, run(sh, buf, "help"), "runall")
	assert.True(t, sh.handle(context.Background(), "quit"))
	assert.True(t, sh.handle(context.Background(), "exit"))
}

func TestShell_LoopStopsAtQuit(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "api.http"), []byte("GET http://x\n"), 0o644))
	sh, buf := newTestShell(t, root)

	err := sh.loop(context.Background(), strings.NewReader("files\nquit\nfiles\n"))

	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(buf.String(), "api.http"))
	assert.Contains(t, buf.String(), "[- | no env] > ")
}
