package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/atlas/internal/application/cycle"
	"github.com/rezkam/atlas/internal/infrastructure/archive"
	"github.com/rezkam/atlas/internal/infrastructure/archive/compliance"
)

func TestFSStore_Compliance(t *testing.T) {
	compliance.RunArchiveComplianceTest(t, func() (archive.Archive, func()) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)
		return store, func() {}
	})
}

func TestFSStore_ListSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))
	require.NoError(t, store.Put(ctx, &cycle.Report{CycleID: "c1", CycleName: "Apollo - 1"}))

	reports, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "c1", reports[0].CycleID)
}

func TestFSStore_PathStaysInDirectory(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "passwd.json"), store.path("../../etc/passwd"))
}
