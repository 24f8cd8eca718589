//go:build unix

package mmfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestOpen_Contents(t *testing.T) {
	want := []byte{'P', 'G', 'K', 'T', 0x06, 0x00, 0x00, 0x00}
	r, err := Open(writeFile(t, "page.prp", want))
	require.NoError(t, err)
	assert.Equal(t, want, r.Bytes())
	assert.Equal(t, len(want), r.Len())

	require.NoError(t, r.Close())
	assert.Nil(t, r.Bytes())
	require.NoError(t, r.Close())
}

func TestOpen_OldContentsAfterRename(t *testing.T) {
	path := writeFile(t, "page.prp", []byte("first copy"))
	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	next := filepath.Join(filepath.Dir(path), "page.prp.tmp")
	require.NoError(t, os.WriteFile(next, []byte("second copy"), 0o644))
	require.NoError(t, os.Rename(next, path))

	assert.Equal(t, "first copy", string(r.Bytes()))
}

func TestOpen_Empty(t *testing.T) {
	r, err := Open(writeFile(t, "empty.prp", nil))
	require.NoError(t, err)
	assert.Zero(t, r.Len())
	require.NoError(t, r.Close())
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.prp"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
