package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
	"github.com/abdul-hamid-achik/hitdesk/packages/workspace"
)

func TestPrintRequests(t *testing.T) {
	tests := []struct {
		name string
		defs []backend.RequestDefinition
		want string
	}{
		{
			name: "empty",
			want: workspace.NoRequestsPlaceholder + "\n",
		},
		{
			name: "named and unnamed",
			defs: []backend.RequestDefinition{
				{Index: 0, Name: "login", Method: "POST", URL: "http://x/login"},
				{Index: 1, Method: "GET", URL: "http://x/me"},
			},
			want: "  1  POST    http://x/login  (login)\n  2  GET     http://x/me\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printRequests(&buf, tt.defs)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestExitError(t *testing.T) {
	cause := errors.New("boom")
	err := withExitCode(ExitParseError, cause)

	var exitErr *exitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, ExitParseError, exitErr.code)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "boom", err.Error())

	assert.Equal(t, "exit status 1", withExitCode(ExitRequestFailure, nil).Error())
}

func TestFilesCommand(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "users"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "users", "list.http"), []byte("GET http://x\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "health.http"), []byte("GET http://x\n"), 0o644))
	cfgPath := filepath.Join(t.TempDir(), "hitdesk.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"watch": false}`), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"files", root, "--config", cfgPath})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "health.http\n"+filepath.Join("users", "list.http")+"\n", out.String())
}

func TestVersionCommand(t *testing.T) {
	prevVersion, prevBuild := version, buildTime
	version, buildTime = "1.2.3", "2026-01-02T03:04:05Z"

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version", "--no-color"})
	t.Cleanup(func() {
		version, buildTime = prevVersion, prevBuild
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "hitdesk 1.2.3\n"+
		"  built    2026-01-02T03:04:05Z\n"+
		"  runtime  "+runtime.Version()+" "+runtime.GOOS+"/"+runtime.GOARCH+"\n", out.String())
}
