package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitdesk/packages/core/env"
	"github.com/abdul-hamid-achik/hitdesk/packages/session"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newLocal(t *testing.T, root string, opts ...LocalOption) *Local {
	t.Helper()
	l, err := NewLocal(context.Background(), root, opts...)
	require.NoError(t, err)
	return l
}

func TestLocal_ListFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.http"), "GET http://x")
	writeFile(t, filepath.Join(root, "a", "z.http"), "GET http://x")
	writeFile(t, filepath.Join(root, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(root, ".git", "hidden.http"), "GET http://x")

	files, err := newLocal(t, root).ListFiles(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []FileEntry{
		{Name: "z.http", Path: filepath.Join(root, "a", "z.http")},
		{Name: "b.http", Path: filepath.Join(root, "b.http")},
	}, files)
}

func TestLocal_SetRootDirectory(t *testing.T) {
	ctx := context.Background()
	l := newLocal(t, t.TempDir())
	other := t.TempDir()

	require.NoError(t, l.SetRootDirectory(ctx, other))
	root, err := l.GetRootDirectory(ctx)
	require.NoError(t, err)
	assert.Equal(t, other, root)

	err = l.SetRootDirectory(ctx, filepath.Join(other, "missing"))
	assert.ErrorIs(t, err, ErrPathNotFound)
	root, _ = l.GetRootDirectory(ctx)
	assert.Equal(t, other, root)
}

func TestLocal_ParseFileCache(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	path := filepath.Join(root, "api.http")
	writeFile(t, path, "# @name list\nGET http://x/items\n")
	l := newLocal(t, root)

	defs, err := l.ParseFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []RequestDefinition{{Index: 0, Name: "list", Method: "GET", URL: "http://x/items"}}, defs)

	defs[0].Name = "mutated"
	again, err := l.ParseFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "list", again[0].Name)

	require.NoError(t, l.WriteFile(ctx, path, "GET http://x/a\n\n###\nDELETE http://x/b\n"))
	defs, err = l.ParseFile(ctx, path)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "DELETE", defs[1].Method)
	assert.Equal(t, 1, defs[1].Index)

	writeFile(t, path, "POST\n")
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))
	_, err = l.ParseFile(ctx, path)
	assert.Error(t, err)
}

func TestLocal_ListEnvironments(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	path := filepath.Join(root, "api.http")
	writeFile(t, path, "GET http://x\n")
	l := newLocal(t, root)

	names, err := l.ListEnvironments(ctx, path)
	require.NoError(t, err)
	assert.Empty(t, names)

	writeFile(t, filepath.Join(root, env.EnvFileName), `{"prod": {}, "dev": {}}`)
	names, err = l.ListEnvironments(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"dev", "prod"}, names)

	writeFile(t, filepath.Join(root, env.EnvFileName), `{"prod": 1}`)
	names, err = l.ListEnvironments(ctx, path)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocal_RunAllRecordsHistory(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	store, err := session.Open(session.MemoryPath)
	require.NoError(t, err)
	defer store.Close()

	root := t.TempDir()
	path := filepath.Join(root, "api.http")
	writeFile(t, path, "GET http://127.0.0.1:1/down\n\n###\nGET "+server.URL+"/up\n")
	l := newLocal(t, root, WithStore(store))

	results, err := l.RunAll(ctx, path, "")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.False(t, results[0].Success)
	assert.NotEmpty(t, results[0].Error)
	assert.Nil(t, results[0].Status)
	assert.Nil(t, results[0].ResponseBody)

	assert.True(t, results[1].Success)
	require.NotNil(t, results[1].Status)
	assert.Equal(t, 200, *results[1].Status)
	require.NotNil(t, results[1].ResponseBody)
	assert.Equal(t, `{"ok":true}`, *results[1].ResponseBody)
	assert.NotNil(t, results[1].DurationMs)

	history, err := l.History(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestLocal_RunAllReportsSkipped(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store, err := session.Open(session.MemoryPath)
	require.NoError(t, err)
	defer store.Close()

	root := t.TempDir()
	path := filepath.Join(root, "api.http")
	writeFile(t, path, "# @name login\nGET http://127.0.0.1:1/down\n\n###\n# @dependsOn login\nGET "+server.URL+"/me\n")
	l := newLocal(t, root, WithStore(store))

	results, err := l.RunAll(ctx, path, "")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[1].Skipped)
	assert.False(t, results[1].Success)
	assert.Equal(t, `dependency "login" not met`, results[1].SkipReason)
	assert.Nil(t, results[1].DurationMs)
	assert.Nil(t, results[1].Status)

	history, err := l.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "http://127.0.0.1:1/down", history[0].URL)
}

func TestLocal_RunRequestIndexOutOfRange(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "api.http")
	writeFile(t, path, "GET http://x\n")

	_, err := newLocal(t, root).RunRequest(context.Background(), path, 3, "")

	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestLocal_RestoresFromStore(t *testing.T) {
	ctx := context.Background()
	store, err := session.Open(session.MemoryPath)
	require.NoError(t, err)
	defer store.Close()

	root := t.TempDir()
	first := newLocal(t, t.TempDir(), WithStore(store))
	require.NoError(t, first.SetRootDirectory(ctx, root))
	require.NoError(t, first.SetEnvironment(ctx, "staging"))
	require.NoError(t, first.SelectFile(ctx, filepath.Join(root, "a.http")))

	second := newLocal(t, "", WithStore(store))
	gotRoot, _ := second.GetRootDirectory(ctx)
	gotEnv, _ := second.GetEnvironment(ctx)
	assert.Equal(t, root, gotRoot)
	assert.Equal(t, "staging", gotEnv)
}
