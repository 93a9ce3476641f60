package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	_, ok, err := s.Get(ctx, KeyRoot)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, KeyRoot, "/work"))
	require.NoError(t, s.Set(ctx, KeyRoot, "/other"))

	value, ok, err := s.Get(ctx, KeyRoot)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/other", value)

	require.NoError(t, s.Set(ctx, KeyRoot, ""))
	_, ok, err = s.Get(ctx, KeyRoot)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSettingsPersistAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, KeyEnvironment, "dev"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	value, ok, err := s.Get(ctx, KeyEnvironment)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dev", value)
}

func TestRecordRunsAndHistory(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	clock := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return clock }

	status := 200
	duration := int64(12)
	first, err := s.RecordRuns(ctx, []*Run{
		{File: "/w/a.http", Method: "GET", URL: "http://x/1", Success: false, Error: "connection refused"},
		{File: "/w/a.http", Method: "GET", URL: "http://x/2", Success: true, Status: &status, DurationMs: &duration},
	})
	require.NoError(t, err)

	clock = clock.Add(time.Minute)
	second, err := s.RecordRuns(ctx, []*Run{{File: "/w/b.http", Environment: "dev", Method: "POST", URL: "http://x/3", Success: true}})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	runs, err := s.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	assert.Equal(t, second, runs[0].Batch)
	assert.Equal(t, "dev", runs[0].Environment)

	assert.Equal(t, "http://x/1", runs[1].URL)
	assert.False(t, runs[1].Success)
	assert.Nil(t, runs[1].Status)
	assert.Equal(t, "connection refused", runs[1].Error)

	assert.Equal(t, "http://x/2", runs[2].URL)
	require.NotNil(t, runs[2].Status)
	assert.Equal(t, 200, *runs[2].Status)
	require.NotNil(t, runs[2].DurationMs)
	assert.Equal(t, int64(12), *runs[2].DurationMs)
	assert.NotEqual(t, runs[1].ID, runs[2].ID)

	limited, err := s.History(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
