package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("SIMPLE  =                    T\nEND\n"), 0o644))
}

func TestCollectHeaderPaths(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.yaml"))
	touch(t, filepath.Join(dir, "a.fits"))
	touch(t, filepath.Join(dir, "notes.txt"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	touch(t, filepath.Join(dir, "sub", "nested.fits"))

	extra := filepath.Join(t.TempDir(), "explicit.hdr")
	touch(t, extra)

	paths, err := collectHeaderPaths([]string{dir, extra})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.fits"),
		filepath.Join(dir, "b.yaml"),
		extra,
	}, paths)

	_, err = collectHeaderPaths([]string{filepath.Join(dir, "missing.fits")})
	assert.Error(t, err)
}

func TestFilterSince(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.fits")
	fresh := filepath.Join(dir, "fresh.fits")
	touch(t, old)
	touch(t, fresh)

	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, stale, stale))

	kept, dropped := filterSince([]string{old, fresh}, time.Now().Add(-time.Hour))
	assert.Equal(t, []string{fresh}, kept)
	assert.Equal(t, 1, dropped)

	kept, dropped = filterSince([]string{old, fresh}, time.Time{})
	assert.Len(t, kept, 2)
	assert.Zero(t, dropped)
}

func TestParseSince(t *testing.T) {
	got, err := parseSince("2026-08-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = parseSince("20260801")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = parseSince("2026-08-01T12:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 12, got.Hour())

	_, err = parseSince("xyzzy")
	assert.Error(t, err)
}
