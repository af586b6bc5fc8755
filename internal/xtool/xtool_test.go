package xtool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirFileNamespacesByPrefix(t *testing.T) {
	d := Dir{Root: "/scratch", Prefix: "rsynth-42"}
	assert.Equal(t, filepath.Join("/scratch", "rsynth-42-1-in.qdimacs"), d.File("1-in.qdimacs"))
}

func TestCreateScratchAndCleanup(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "tmp")
	d, err := CreateScratch(Dir{Root: root, Prefix: "w0"})
	require.NoError(t, err)

	mine := d.File("query.in")
	other := filepath.Join(root, "w1-query.in")
	require.NoError(t, os.WriteFile(mine, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))

	Cleanup(d)

	_, err = os.Stat(mine)
	assert.True(t, os.IsNotExist(err), "own temp files are removed")
	_, err = os.Stat(other)
	assert.NoError(t, err, "other workers' files are left alone")
}
